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
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinopt/pkg/util"
)

func TestNormalize(t *testing.T) {
	norm := NewNormalizer()
	recs := []Record{
		{FieldJoins: 2, FieldSubqueries: 1, FieldGroupBy: true, FieldLength: 200},
		{FieldJoins: 3, FieldSubqueries: 4},
		{FieldHaving: true},
		{FieldLength: 12.5, FieldAnalyticalFn: true, "unknown": 1000},
	}
	for _, rec := range recs {
		vec := norm.Normalize(rec)
		require.Len(t, vec, len(Fields))
		assert.InDelta(t, 1.0, vec.Norm(), 1e-9)
	}

	vec := norm.Normalize(Record{FieldJoins: 3, FieldSubqueries: 4})
	assert.InDelta(t, 0.6, vec[0], 1e-12)
	assert.InDelta(t, 0.8, vec[1], 1e-12)
}

func TestNormalizeZero(t *testing.T) {
	norm := NewNormalizer()
	for _, rec := range []Record{
		{},
		{FieldJoins: 0, FieldGroupBy: false},
		{"unknown": 7},
	} {
		vec := norm.Normalize(rec)
		require.Len(t, vec, len(Fields))
		for _, x := range vec {
			assert.Equal(t, float64(0), x)
		}
		assert.Equal(t, float64(0), vec.Norm())
	}
}

func TestEstimateCapacity(t *testing.T) {
	norm := NewNormalizer()
	cases := []struct {
		score any
		want  int
	}{
		{nil, 3},
		{-10, 3},
		{2, 3},
		{2.0001, 5},
		{5, 5},
		{5.5, 7},
		{208, 7},
		{math.Inf(1), 7},
		{math.NaN(), 7},
	}
	for _, c := range cases {
		rec := Record{}
		if c.score != nil {
			rec[FieldComplexityScore] = c.score
		}
		assert.Equal(t, c.want, norm.EstimateCapacity(rec), "score %v", c.score)
	}
}

func TestReadiness(t *testing.T) {
	norm := NewNormalizer()

	uniform := norm.Normalize(Record{
		FieldJoins: 1, FieldSubqueries: 1, FieldAggregations: 1,
		FieldGroupBy: true, FieldHaving: true, FieldAnalyticalFn: true, FieldLength: 1,
	})
	assert.Equal(t, 1.0, norm.Readiness(uniform))

	oneHot := norm.Normalize(Record{FieldLength: 42})
	assert.Equal(t, 0.0, norm.Readiness(oneHot))

	zero := norm.Normalize(Record{})
	assert.Equal(t, 0.0, norm.Readiness(zero))

	mixed := norm.Normalize(Record{FieldJoins: 3, FieldSubqueries: 4})
	assert.Equal(t, 0.249, norm.Readiness(mixed))

	for _, rec := range []Record{
		{FieldJoins: 2, FieldSubqueries: 1, FieldGroupBy: true, FieldLength: 200},
		{FieldJoins: 100, FieldLength: 1},
		{FieldAggregations: 5, FieldHaving: true, FieldLength: 30},
	} {
		r := norm.Readiness(norm.Normalize(rec))
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestPrepare(t *testing.T) {
	norm := NewNormalizer()
	rec := Record{FieldJoins: 3, FieldSubqueries: 4, FieldComplexityScore: 4}
	prep := norm.Prepare(rec)
	assert.Equal(t, norm.Normalize(rec), prep.Vector)
	assert.Equal(t, 5, prep.Capacity)
	assert.Equal(t, 0.249, prep.Readiness)
	assert.Equal(t, prep, norm.Prepare(rec))
}

func TestComputeScore(t *testing.T) {
	cfg := util.DefaultConfig().Classifier
	c := NewClassifier(cfg)
	rec := Record{
		FieldJoins:        2,
		FieldSubqueries:   1,
		FieldAggregations: 0,
		FieldGroupBy:      true,
		FieldHaving:       false,
		FieldAnalyticalFn: false,
		FieldLength:       200,
	}
	score := c.ComputeScore(rec)
	assert.Equal(t, float64(208), score)
	assert.Equal(t, Complex, c.Classify(score))

	//short query: length exempt
	rec[FieldLength] = 150
	assert.Equal(t, float64(8), c.ComputeScore(rec))

	assert.Equal(t, Simple, c.Classify(3.999))
	assert.Equal(t, Complex, c.Classify(4))
	assert.Equal(t, float64(0), c.ComputeScore(Record{}))
}

func TestComputeScoreCustomWeights(t *testing.T) {
	c := NewClassifier(util.ClassifierConfig{
		Weights:      map[string]float64{FieldJoins: 10, FieldLength: 0.5, "custom": 2},
		Threshold:    50,
		LengthExempt: 0,
	})
	rec := Record{FieldJoins: 3, FieldLength: 40, "custom": 1, FieldHaving: true}
	assert.Equal(t, float64(30+20+2), c.ComputeScore(rec))
	assert.Equal(t, Complex, c.Classify(52))
	assert.Equal(t, Simple, c.Classify(49))
}

type stubExtractor struct {
	rec Record
	err error
}

func (s stubExtractor) Extract(string) (Record, error) {
	return s.rec, s.err
}

func TestAnalyze(t *testing.T) {
	cfg := util.DefaultConfig().Classifier
	an := NewAnalyzer(stubExtractor{rec: Features{
		Joins:      2,
		Subqueries: 1,
		GroupBy:    true,
		Length:     200,
	}.Record()}, cfg)
	report, err := an.Analyze("select ...")
	require.NoError(t, err)
	assert.Equal(t, float64(208), report.Score)
	assert.Equal(t, Complex, report.Classification)
	assert.Equal(t, float64(208), report.Features.Value(FieldComplexityScore))
	assert.Equal(t, 7, report.Prepared.Capacity)
	assert.InDelta(t, 1.0, report.Prepared.Vector.Norm(), 1e-9)
}

func TestAnalyzeInvalid(t *testing.T) {
	cfg := util.DefaultConfig().Classifier
	an := NewAnalyzer(stubExtractor{err: errors.New("syntax error at or near")}, cfg)
	report, err := an.Analyze("selec")
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidQuery))

	an = NewAnalyzer(stubExtractor{err: errors.Wrap(ErrInvalidQuery, "empty")}, cfg)
	_, err = an.Analyze("")
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}
