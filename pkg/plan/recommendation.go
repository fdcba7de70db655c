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
	"time"

	"github.com/xlab/treeprint"
)

type Recommendation struct {
	RunID         string        `json:"run_id"`
	Order         JoinOrder     `json:"join_order"`
	PredictedCost float64       `json:"predicted_cost"`
	Confidence    float64       `json:"confidence"`
	Source        Source        `json:"source"`
	State         SelectState   `json:"-"`
	Reason        string        `json:"reason,omitempty"`
	Index         int           `json:"index"`
	AllCandidates CandidateSet  `json:"all_candidates"`
	Distribution  Distribution  `json:"probabilities,omitempty"`
	Enumerated    int           `json:"enumerated"`
	SolveTime     time.Duration `json:"solve_time"`
}

func (rec *Recommendation) fill(best *CostEntry, confidence float64, src Source, st SelectState) {
	rec.Confidence = confidence
	rec.Source = src
	rec.State = st
	if best == nil {
		rec.Index = -1
		return
	}
	rec.Order = best.Order
	rec.PredictedCost = best.Cost
	rec.Index = best.Index
}

func (rec *Recommendation) Print(tree treeprint.Tree) {
	if rec == nil {
		return
	}
	tree = tree.AddMetaBranch("recommendation",
		fmt.Sprintf("cost=%.2f confidence=%.3f source=%s", rec.PredictedCost, rec.Confidence, rec.Source))
	printJoin(tree, rec.Order)
	cands := tree.AddBranch("candidates")
	for _, entry := range rec.AllCandidates {
		meta := fmt.Sprintf("%d", entry.Index)
		if entry.Index == rec.Index {
			meta += "*"
		}
		cands.AddMetaNode(meta, fmt.Sprintf("%s cost=%.2f", entry.Order, entry.Cost))
	}
}

// printJoin renders the left-deep tree of the order.
func printJoin(tree treeprint.Tree, order JoinOrder) {
	switch len(order) {
	case 0:
		return
	case 1:
		tree.AddMetaNode("scan", order[0])
	default:
		join := tree.AddMetaBranch("join", order.String())
		printJoin(join, order[:len(order)-1])
		join.AddMetaNode("scan", order[len(order)-1])
	}
}

func (rec *Recommendation) String() string {
	tree := treeprint.New()
	rec.Print(tree)
	return tree.String()
}
