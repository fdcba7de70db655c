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

package feature

import (
	"github.com/cockroachdb/errors"
)

const (
	FieldJoins           = "joins"
	FieldSubqueries      = "subqueries"
	FieldAggregations    = "aggregations"
	FieldGroupBy         = "group_by"
	FieldHaving          = "having"
	FieldAnalyticalFn    = "analytical_fn"
	FieldLength          = "length"
	FieldComplexityScore = "complexity_score"
)

// Fields fixes the vector position of every feature.
var Fields = []string{
	FieldJoins,
	FieldSubqueries,
	FieldAggregations,
	FieldGroupBy,
	FieldHaving,
	FieldAnalyticalFn,
	FieldLength,
}

var ErrInvalidQuery = errors.New("invalid SQL query")

// Record maps feature names to numbers or booleans.
type Record map[string]any

// Value coerces the field to a float. Missing fields and values
// of unknown type are 0.
func (rec Record) Value(field string) float64 {
	return coerce(rec[field])
}

func (rec Record) Has(field string) bool {
	_, has := rec[field]
	return has
}

func (rec Record) Copy() Record {
	ret := make(Record, len(rec))
	for k, v := range rec {
		ret[k] = v
	}
	return ret
}

func coerce(val any) float64 {
	switch v := val.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

// Features is the syntactic summary of one query.
type Features struct {
	Joins        int  `json:"joins"`
	Subqueries   int  `json:"subqueries"`
	Aggregations int  `json:"aggregations"`
	GroupBy      bool `json:"group_by"`
	Having       bool `json:"having"`
	AnalyticalFn bool `json:"analytical_fn"`
	Length       int  `json:"length"`
}

func (f Features) Record() Record {
	return Record{
		FieldJoins:        f.Joins,
		FieldSubqueries:   f.Subqueries,
		FieldAggregations: f.Aggregations,
		FieldGroupBy:      f.GroupBy,
		FieldHaving:       f.Having,
		FieldAnalyticalFn: f.AnalyticalFn,
		FieldLength:       f.Length,
	}
}

// Extractor turns a raw query into a Record. It returns an error
// wrapping ErrInvalidQuery when the query has no valid SQL structure.
type Extractor interface {
	Extract(query string) (Record, error)
}
