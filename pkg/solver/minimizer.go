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

package solver

import (
	"context"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

// Minimizer is the classical backend. It scans the energy table and puts
// all weight on the lowest valid state.
type Minimizer struct{}

func NewMinimizer() *Minimizer {
	return &Minimizer{}
}

func (Minimizer) Solve(ctx context.Context, problem *plan.EncodedProblem) (plan.Distribution, error) {
	if err := util.Inject(util.FAULTS_SCOPE_SOLVER, util.FaultSolverMinimize); err != nil {
		return nil, err
	}
	if err := checkProblem(problem); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	best := 0
	for state := 1; state < problem.NumCandidates; state++ {
		if problem.Energy(state) < problem.Energy(best) {
			best = state
		}
	}
	return plan.Distribution{best: 1.0}, nil
}
