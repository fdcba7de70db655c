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

package plan

import (
	"fmt"

	"github.com/daviszhen/joinopt/pkg/util"
)

const (
	defaultPenalty = float64(1e6)
)

// EncodedProblem is a total energy function over the 2^Bits binary
// states. States below NumCandidates carry the candidate costs, the
// rest carry Penalty.
type EncodedProblem struct {
	Bits          int
	Energies      []float64
	NumCandidates int
	Penalty       float64
}

func (p *EncodedProblem) States() int {
	return len(p.Energies)
}

func (p *EncodedProblem) Energy(state int) float64 {
	if state < 0 || state >= len(p.Energies) {
		return p.Penalty
	}
	return p.Energies[state]
}

// Valid reports whether the state maps to a candidate.
func (p *EncodedProblem) Valid(state int) bool {
	return state >= 0 && state < p.NumCandidates
}

// BitString formats the state with Bits binary digits.
func (p *EncodedProblem) BitString(state int) string {
	return fmt.Sprintf("%0*b", p.Bits, state)
}

type Encoder struct {
	penalty float64
}

func NewEncoder(penalty float64) *Encoder {
	if penalty <= 0 {
		penalty = defaultPenalty
	}
	return &Encoder{penalty: penalty}
}

// Encode uses ceil(log2(n)) bits, at least one. When a cost reaches
// the configured penalty the padding is raised above the largest cost
// so padding states stay strictly worse than every candidate.
func (enc *Encoder) Encode(costs []float64) *EncodedProblem {
	n := len(costs)
	states := util.NextPowerOfTwo(uint64(max(n, 2)))
	penalty := enc.penalty
	maxCost := float64(0)
	for _, cost := range costs {
		maxCost = max(maxCost, cost)
	}
	if maxCost >= penalty {
		penalty = maxCost + enc.penalty
	}
	energies := make([]float64, states)
	for state := range energies {
		if state < n {
			energies[state] = costs[state]
		} else {
			energies[state] = penalty
		}
	}
	return &EncodedProblem{
		Bits:          util.Log2OfPowerOfTwo(states),
		Energies:      energies,
		NumCandidates: n,
		Penalty:       penalty,
	}
}
