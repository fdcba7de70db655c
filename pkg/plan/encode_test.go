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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	enc := NewEncoder(0)
	kases := []struct {
		n      int
		bits   int
		states int
	}{
		{0, 1, 2},
		{1, 1, 2},
		{2, 1, 2},
		{3, 2, 4},
		{4, 2, 4},
		{5, 3, 8},
		{6, 3, 8},
		{9, 4, 16},
	}
	for _, kase := range kases {
		costs := make([]float64, kase.n)
		for i := range costs {
			costs[i] = float64(i*10 + 1)
		}
		p := enc.Encode(costs)
		assert.Equal(t, kase.bits, p.Bits, kase.n)
		assert.Equal(t, kase.states, p.States(), kase.n)
		assert.Equal(t, kase.n, p.NumCandidates)
		for state := 0; state < p.States(); state++ {
			if state < kase.n {
				assert.True(t, p.Valid(state))
				assert.Equal(t, costs[state], p.Energy(state))
			} else {
				assert.False(t, p.Valid(state))
				assert.Equal(t, defaultPenalty, p.Energy(state))
			}
		}
	}
}

func TestEncodeLargeCost(t *testing.T) {
	p := NewEncoder(1e6).Encode([]float64{5e6, 2, 7})
	require.Equal(t, 4, p.States())
	assert.Greater(t, p.Energy(3), 5e6)
	for state := 0; state < p.NumCandidates; state++ {
		assert.Greater(t, p.Energy(3), p.Energy(state))
	}
}

func TestEncodeBitString(t *testing.T) {
	p := NewEncoder(0).Encode([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, "000", p.BitString(0))
	assert.Equal(t, "101", p.BitString(5))
	assert.Equal(t, p.Penalty, p.Energy(-1))
	assert.Equal(t, p.Penalty, p.Energy(100))
}
