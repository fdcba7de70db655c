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
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/util"
)

// Report is the complexity report of one query.
type Report struct {
	Features       Record         `json:"features"`
	Score          float64        `json:"complexity_score"`
	Classification Classification `json:"classification"`
	Prepared       Prepared       `json:"prep"`
}

type Analyzer struct {
	extractor  Extractor
	classifier *Classifier
	normalizer *Normalizer
}

func NewAnalyzer(extractor Extractor, cfg util.ClassifierConfig) *Analyzer {
	return &Analyzer{
		extractor:  extractor,
		classifier: NewClassifier(cfg),
		normalizer: NewNormalizer(),
	}
}

// Analyze extracts, scores and classifies the query. An extraction
// failure is returned as ErrInvalidQuery and nothing is scored.
func (an *Analyzer) Analyze(query string) (*Report, error) {
	rec, err := an.extractor.Extract(query)
	if err != nil {
		if !errors.Is(err, ErrInvalidQuery) {
			err = errors.Mark(err, ErrInvalidQuery)
		}
		return nil, err
	}
	return an.AnalyzeRecord(rec), nil
}

func (an *Analyzer) AnalyzeRecord(rec Record) *Report {
	score := an.classifier.ComputeScore(rec)
	scored := rec.Copy()
	scored[FieldComplexityScore] = score
	report := &Report{
		Features:       scored,
		Score:          score,
		Classification: an.classifier.Classify(score),
		Prepared:       an.normalizer.Prepare(scored),
	}
	util.Debug("query analyzed",
		zap.Float64("score", score),
		zap.String("classification", string(report.Classification)),
		zap.Float64("readiness", report.Prepared.Readiness))
	return report
}
