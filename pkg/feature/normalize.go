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

	dec "github.com/govalues/decimal"

	"github.com/daviszhen/joinopt/pkg/util"
)

const (
	defaultEpsilon      = 1e-9
	readinessScale      = 3
	capacitySmall       = 3
	capacityMedium      = 5
	capacityLarge       = 7
	capacitySmallScore  = 2
	capacityMediumScore = 5
)

// StateVector is a feature vector scaled to unit length.
type StateVector []float64

func (vec StateVector) Norm() float64 {
	sum := float64(0)
	for _, x := range vec {
		sum += x * x
	}
	return math.Sqrt(sum)
}

type Prepared struct {
	Vector    StateVector `json:"quantum_state"`
	Capacity  int         `json:"estimated_qubits"`
	Readiness float64     `json:"readiness_score"`
}

type Normalizer struct {
	fields  []string
	epsilon float64
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		fields:  Fields,
		epsilon: defaultEpsilon,
	}
}

// Normalize reads the fixed fields in order and divides by the
// euclidean norm. The all-zero record maps to the zero vector.
func (norm *Normalizer) Normalize(rec Record) StateVector {
	vec := make(StateVector, len(norm.fields))
	for i, field := range norm.fields {
		vec[i] = rec.Value(field)
	}
	l2 := vec.Norm()
	if l2 == 0 {
		l2 = 1
	}
	for i := range vec {
		vec[i] /= l2
	}
	return vec
}

// EstimateCapacity buckets complexity_score into a capacity class.
func (norm *Normalizer) EstimateCapacity(rec Record) int {
	score := rec.Value(FieldComplexityScore)
	if score <= capacitySmallScore {
		return capacitySmall
	} else if score <= capacityMediumScore {
		return capacityMedium
	}
	return capacityLarge
}

// Readiness is the normalized shannon entropy of the vector,
// clamped to [0,1] and rounded half-even to three places.
func (norm *Normalizer) Readiness(vec StateVector) float64 {
	if len(vec) < 2 {
		return 0
	}
	entropy := float64(0)
	for _, x := range vec {
		entropy -= x * math.Log2(x+norm.epsilon)
	}
	readiness := entropy / math.Log2(float64(len(vec)))
	if math.IsNaN(readiness) {
		return 0
	}
	return roundScale(util.Clamp(readiness, 0, 1), readinessScale)
}

func (norm *Normalizer) Prepare(rec Record) Prepared {
	vec := norm.Normalize(rec)
	return Prepared{
		Vector:    vec,
		Capacity:  norm.EstimateCapacity(rec),
		Readiness: norm.Readiness(vec),
	}
}

func roundScale(f float64, scale int) float64 {
	d, err := dec.NewFromFloat64(f)
	if err != nil {
		return f
	}
	ret, ok := d.Round(scale).Float64()
	if !ok {
		return f
	}
	return ret
}
