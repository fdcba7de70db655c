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

const (
	defaultSelectivity = float64(0.1)
)

// CostModel prices a left-deep join order as a chain of nested loop
// joins. The cost depends on the traversal order.
type CostModel struct {
	defaultSelectivity float64
}

// NewCostModel uses sel for table pairs without a selectivity. A
// non-positive sel falls back to 0.1.
func NewCostModel(sel float64) *CostModel {
	if sel <= 0 {
		sel = defaultSelectivity
	}
	return &CostModel{defaultSelectivity: sel}
}

func (model *CostModel) Selectivity(stats Statistics, prev, next string) float64 {
	if sel, has := stats.Selectivity(prev, next); has {
		return sel
	}
	return model.defaultSelectivity
}

// Cost is 0 for fewer than two tables. Otherwise each step joins the
// running intermediate result with the next table:
//
//	join  = intermediate * size(next) * sel(prev, next)
//	total += intermediate + join
//	intermediate *= sel(prev, next)
func (model *CostModel) Cost(order JoinOrder, stats Statistics) float64 {
	if len(order) < 2 {
		return 0
	}
	total := float64(0)
	intermediate := float64(stats.Size(order[0]))
	for i := 1; i < len(order); i++ {
		prev, cur := order[i-1], order[i]
		sel := model.Selectivity(stats, prev, cur)
		joinCost := intermediate * float64(stats.Size(cur)) * sel
		total += intermediate + joinCost
		intermediate *= sel
	}
	return total
}
