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
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/daviszhen/joinopt/pkg/util"
)

type Classification string

const (
	Simple  Classification = "Simple"
	Complex Classification = "Complex"
)

type Classifier struct {
	weights      map[string]float64
	order        []string
	threshold    float64
	lengthExempt float64
}

func NewClassifier(cfg util.ClassifierConfig) *Classifier {
	weights := make(map[string]float64, len(cfg.Weights))
	for k, v := range cfg.Weights {
		weights[k] = v
	}
	//fixed fields first, then the extra weighted fields by name
	order := make([]string, 0, len(weights))
	for _, field := range Fields {
		if _, has := weights[field]; has {
			order = append(order, field)
		}
	}
	extra := lo.Filter(lo.Keys(weights), func(field string, _ int) bool {
		return !slices.Contains(Fields, field)
	})
	sort.Strings(extra)
	order = append(order, extra...)
	return &Classifier{
		weights:      weights,
		order:        order,
		threshold:    cfg.Threshold,
		lengthExempt: cfg.LengthExempt,
	}
}

// ComputeScore sums weight*value over the weighted fields. A length
// not above the exemption threshold contributes nothing.
func (c *Classifier) ComputeScore(rec Record) float64 {
	score := float64(0)
	for _, field := range c.order {
		val := rec.Value(field)
		if field == FieldLength && val <= c.lengthExempt {
			continue
		}
		score += c.weights[field] * val
	}
	return score
}

func (c *Classifier) Classify(score float64) Classification {
	if score >= c.threshold {
		return Complex
	}
	return Simple
}

func (c *Classifier) Threshold() float64 {
	return c.threshold
}
