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
	"sort"
	"strings"
	"unicode/utf8"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"

	"github.com/daviszhen/joinopt/pkg/feature"
)

var aggregateFuncs = map[string]bool{
	"count": true,
	"sum":   true,
	"avg":   true,
	"max":   true,
	"min":   true,
}

var analyticalFuncs = map[string]bool{
	"rank":       true,
	"dense_rank": true,
	"row_number": true,
}

// FeatureExtractor implements feature.Extractor on top of the
// postgres parser.
type FeatureExtractor struct{}

func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

func (fe *FeatureExtractor) Extract(query string) (feature.Record, error) {
	feats, err := ExtractFeatures(query)
	if err != nil {
		return nil, err
	}
	return feats.Record(), nil
}

func ExtractFeatures(query string) (feature.Features, error) {
	stmt, err := parseOne(query)
	if err != nil {
		return feature.Features{}, err
	}
	trimmed := strings.TrimSpace(query)
	feats := feature.Features{
		Length: utf8.RuneCountInString(trimmed),
	}
	walk(stmt.GetStmt().ProtoReflect(), func(m proto.Message) {
		switch node := m.(type) {
		case *pg_query.JoinExpr:
			feats.Joins++
		case *pg_query.SubLink, *pg_query.RangeSubselect, *pg_query.CommonTableExpr:
			feats.Subqueries++
		case *pg_query.FuncCall:
			name := funcName(node)
			if node.GetOver() != nil || analyticalFuncs[name] {
				feats.AnalyticalFn = true
			} else if aggregateFuncs[name] {
				feats.Aggregations++
			}
		case *pg_query.SelectStmt:
			if len(node.GetGroupClause()) != 0 {
				feats.GroupBy = true
			}
			if node.GetHavingClause() != nil {
				feats.Having = true
			}
		}
	})
	return feats, nil
}

func funcName(call *pg_query.FuncCall) string {
	names := call.GetFuncname()
	if len(names) == 0 {
		return ""
	}
	//schema qualified names keep the function name last
	return strings.ToLower(names[len(names)-1].GetString_().GetSval())
}

// Tables returns the relations referenced by the query in order of
// first appearance. Qualified references keep their qualifiers
// ("sales.orders"), so same-named tables of different schemas stay
// apart. Names of common table expressions are skipped.
func Tables(query string) ([]string, error) {
	stmt, err := parseOne(query)
	if err != nil {
		return nil, err
	}
	ctes := make(map[string]bool)
	var refs []*pg_query.RangeVar
	walk(stmt.GetStmt().ProtoReflect(), func(m proto.Message) {
		switch node := m.(type) {
		case *pg_query.CommonTableExpr:
			ctes[node.GetCtename()] = true
		case *pg_query.RangeVar:
			refs = append(refs, node)
		}
	})
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].GetLocation() < refs[j].GetLocation()
	})
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.GetSchemaname() == "" && ctes[ref.GetRelname()] {
			continue
		}
		names = append(names, qualifiedName(ref))
	}
	return lo.Uniq(names), nil
}

func qualifiedName(ref *pg_query.RangeVar) string {
	parts := lo.Compact([]string{ref.GetCatalogname(), ref.GetSchemaname(), ref.GetRelname()})
	return strings.Join(parts, ".")
}
