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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateCandidates(t *testing.T) {
	model := NewCostModel(0.1)
	stats := threeTables()
	cands := EnumerateCandidates([]string{"A", "B", "C"}, stats, model)
	require.Len(t, cands, 6)

	orders := []JoinOrder{
		{"A", "B", "C"},
		{"A", "C", "B"},
		{"B", "A", "C"},
		{"B", "C", "A"},
		{"C", "A", "B"},
		{"C", "B", "A"},
	}
	for i, entry := range cands {
		assert.Equal(t, i, entry.Index)
		assert.Equal(t, i, entry.Origin)
		assert.True(t, entry.Order.Equal(orders[i]), entry.Order.String())
	}

	// duplicates collapse to the first appearance
	dup := EnumerateCandidates([]string{"B", "A", "B"}, stats, model)
	require.Len(t, dup, 2)
	assert.Equal(t, JoinOrder{"B", "A"}, dup[0].Order)

	assert.Empty(t, EnumerateCandidates(nil, stats, model))

	single := EnumerateCandidates([]string{"A"}, stats, model)
	require.Len(t, single, 1)
	assert.Equal(t, float64(0), single[0].Cost)
}

func TestEnumerateFactorial(t *testing.T) {
	model := NewCostModel(0.1)
	stats := Statistics{}
	var tables []string
	for n := 1; n <= 5; n++ {
		name := fmt.Sprintf("t%d", n)
		tables = append(tables, name)
		stats[name] = NewTableStats(int64(n * 10))
		cands := EnumerateCandidates(tables, stats, model)
		assert.Len(t, cands, factorial(n))
		seen := make(map[string]bool)
		for _, entry := range cands {
			key := entry.Order.String()
			assert.False(t, seen[key], key)
			seen[key] = true
		}
	}
}

func TestReduce(t *testing.T) {
	model := NewCostModel(0.1)
	cands := EnumerateCandidates([]string{"A", "B", "C"}, threeTables(), model)

	top := Reduce(cands, 4)
	require.Len(t, top, 4)
	wantOrigin := []int{4, 1, 0, 5}
	for i, entry := range top {
		assert.Equal(t, i, entry.Index)
		assert.Equal(t, wantOrigin[i], entry.Origin)
		assert.Equal(t, cands[entry.Origin].Cost, entry.Cost)
	}

	kept := make(map[int]bool)
	maxKept := float64(0)
	for _, entry := range top {
		kept[entry.Origin] = true
		maxKept = max(maxKept, entry.Cost)
	}
	for _, entry := range cands {
		if !kept[entry.Origin] {
			assert.LessOrEqual(t, maxKept, entry.Cost)
		}
	}

	// input untouched
	for i, entry := range cands {
		assert.Equal(t, i, entry.Index)
	}
}

func TestReduceSmall(t *testing.T) {
	cands := CandidateSet{
		{Index: 3, Origin: 3, Order: JoinOrder{"x", "y"}, Cost: 9},
		{Index: 7, Origin: 7, Order: JoinOrder{"y", "x"}, Cost: 1},
	}
	ret := Reduce(cands, 4)
	require.Len(t, ret, 2)
	// order preserved, reindexed
	assert.Equal(t, 0, ret[0].Index)
	assert.Equal(t, 3, ret[0].Origin)
	assert.Equal(t, 1, ret[1].Index)
	assert.Equal(t, 7, ret[1].Origin)

	assert.Len(t, Reduce(cands, 0), 2)
	assert.Empty(t, Reduce(nil, 4))
}

func TestReduceTies(t *testing.T) {
	cands := make(CandidateSet, 6)
	for i := range cands {
		cands[i] = &CostEntry{Index: i, Origin: i, Order: JoinOrder{fmt.Sprint(i)}, Cost: 5}
	}
	cands[4].Cost = 1
	top := Reduce(cands, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []int{4, 0, 1}, []int{top[0].Origin, top[1].Origin, top[2].Origin})
}

func TestCandidateSetMin(t *testing.T) {
	cands := CandidateSet{
		{Index: 0, Cost: 3},
		{Index: 1, Cost: 2},
		{Index: 2, Cost: 2},
	}
	assert.Equal(t, 1, cands.Min().Index)
	assert.Nil(t, CandidateSet(nil).Min())

	entry, ok := cands.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 2, entry.Index)
	_, ok = cands.Get(3)
	assert.False(t, ok)
	assert.Equal(t, []float64{3, 2, 2}, cands.Costs())
}
