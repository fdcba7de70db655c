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
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/btree"

	"github.com/daviszhen/joinopt/pkg/util"
)

// JoinOrder is a permutation of the tables of a query.
type JoinOrder []string

func (order JoinOrder) String() string {
	return strings.Join(order, " -> ")
}

func (order JoinOrder) Equal(o JoinOrder) bool {
	if len(order) != len(o) {
		return false
	}
	for i := range order {
		if order[i] != o[i] {
			return false
		}
	}
	return true
}

// CostEntry is one candidate join order. Index is its position in the
// owning CandidateSet. Origin is the enumeration index it was created
// with and survives reduction.
type CostEntry struct {
	Index  int       `json:"index"`
	Origin int       `json:"origin"`
	Order  JoinOrder `json:"order"`
	Cost   float64   `json:"cost"`
}

func (entry *CostEntry) String() string {
	return fmt.Sprintf("%2d: %-40s Cost: %.2f", entry.Index, entry.Order.String(), entry.Cost)
}

// CandidateSet is indexed 0..n-1 by CostEntry.Index.
type CandidateSet []*CostEntry

func (cands CandidateSet) Get(idx int) (*CostEntry, bool) {
	if idx < 0 || idx >= len(cands) {
		return nil, false
	}
	return cands[idx], true
}

func (cands CandidateSet) Costs() []float64 {
	costs := make([]float64, len(cands))
	for i, entry := range cands {
		costs[i] = entry.Cost
	}
	return costs
}

// Min returns the cheapest entry, the lowest index on ties.
func (cands CandidateSet) Min() *CostEntry {
	var best *CostEntry
	for _, entry := range cands {
		if best == nil || entry.Cost < best.Cost {
			best = entry
		}
	}
	return best
}

func (cands CandidateSet) String() string {
	sb := strings.Builder{}
	for _, entry := range cands {
		sb.WriteString(entry.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// EnumerateCandidates scores every permutation of tables. Permutations
// are generated in lexicographic order of the input positions and
// indexed in that order. Duplicate names are dropped.
//
// The enumeration is exhaustive and grows as n!. It is meant for the
// handful of tables of one query.
func EnumerateCandidates(tables []string, stats Statistics, model *CostModel) CandidateSet {
	tables = lo.Uniq(tables)
	if len(tables) == 0 {
		return nil
	}
	cands := make(CandidateSet, 0, factorial(len(tables)))
	used := make([]bool, len(tables))
	cur := make(JoinOrder, 0, len(tables))
	var permute func()
	permute = func() {
		if len(cur) == len(tables) {
			order := util.CopyTo(cur)
			idx := len(cands)
			cands = append(cands, &CostEntry{
				Index:  idx,
				Origin: idx,
				Order:  order,
				Cost:   model.Cost(order, stats),
			})
			return
		}
		for i, table := range tables {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, table)
			permute()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	permute()
	return cands
}

func factorial(n int) int {
	ret := 1
	for i := 2; i <= n; i++ {
		ret *= i
	}
	return ret
}

func candidateLess(a, b *CostEntry) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	return a.Index < b.Index
}

// Reduce bounds the candidates to the k cheapest, ordered by cost and
// then by index. A set that already fits, or a non-positive k, keeps its
// order. The result is always re-indexed from 0 and keeps Origin.
func Reduce(cands CandidateSet, k int) CandidateSet {
	if k <= 0 || len(cands) <= k {
		return reindex(cands)
	}
	ordered := btree.NewBTreeG[*CostEntry](candidateLess)
	for _, entry := range cands {
		ordered.Set(entry)
	}
	top := make(CandidateSet, 0, k)
	ordered.Scan(func(entry *CostEntry) bool {
		top = append(top, entry)
		return len(top) < k
	})
	return reindex(top)
}

func reindex(cands CandidateSet) CandidateSet {
	ret := make(CandidateSet, len(cands))
	for i, entry := range cands {
		ret[i] = &CostEntry{
			Index:  i,
			Origin: entry.Origin,
			Order:  entry.Order,
			Cost:   entry.Cost,
		}
	}
	return ret
}
