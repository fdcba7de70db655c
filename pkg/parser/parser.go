// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strings"

	"github.com/cockroachdb/errors"
	pg_query "github.com/pganalyze/pg_query_go/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/daviszhen/joinopt/pkg/feature"
)

func Parse(s string) ([]*pg_query.RawStmt, error) {
	result, err := pg_query.Parse(s)
	if err != nil {
		return nil, err
	}
	return result.Stmts, nil
}

// parseOne parses the first statement of the query. Empty input and
// parse errors are reported as feature.ErrInvalidQuery.
func parseOne(query string) (*pg_query.RawStmt, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(feature.ErrInvalidQuery, "empty query")
	}
	stmts, err := Parse(query)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse query"), feature.ErrInvalidQuery)
	}
	if len(stmts) == 0 || stmts[0].GetStmt() == nil {
		return nil, errors.Wrap(feature.ErrInvalidQuery, "no statement")
	}
	return stmts[0], nil
}

// walk visits every message of the parse tree in pre-order.
func walk(msg protoreflect.Message, visit func(m proto.Message)) {
	if !msg.IsValid() {
		return
	}
	visit(msg.Interface())
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsMap():
		case fd.IsList():
			if fd.Message() == nil {
				break
			}
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				walk(list.Get(i).Message(), visit)
			}
		case fd.Message() != nil:
			walk(v.Message(), visit)
		}
		return true
	})
}
