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

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

var ErrUnavailable = errors.New("solver unavailable")

type Func = plan.SolverFunc

// Unavailable always fails. It stands in for a backend that is
// configured but cannot be reached.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Solve(context.Context, *plan.EncodedProblem) (plan.Distribution, error) {
	if u.Reason == "" {
		return nil, ErrUnavailable
	}
	return nil, errors.Wrap(ErrUnavailable, u.Reason)
}

// Exclusive serializes the calls into a shared backend.
type Exclusive struct {
	lock  *util.ReentryLock
	inner plan.Solver
}

func NewExclusive(inner plan.Solver) *Exclusive {
	return &Exclusive{
		lock:  util.NewReentryLock(),
		inner: inner,
	}
}

// Solve waits for the backend no longer than ctx allows. A solver
// calling back into the same Exclusive from its own goroutine does not
// deadlock.
func (ex *Exclusive) Solve(ctx context.Context, problem *plan.EncodedProblem) (plan.Distribution, error) {
	if err := ex.lock.LockContext(ctx); err != nil {
		util.Debug("gave up waiting for shared solver", zap.Error(err))
		return nil, errors.Wrap(err, "wait for shared solver")
	}
	defer ex.lock.Unlock()
	return ex.inner.Solve(ctx, problem)
}

// New builds the backend named by optimizer.solver. "none" yields a nil
// solver, so every run ends in the classical fallback.
func New(cfg *util.Config) (plan.Solver, error) {
	switch cfg.Optimizer.Solver {
	case util.SolverSampler:
		return NewExclusive(NewSampler(cfg.Sampler)), nil
	case util.SolverMinimizer:
		return NewMinimizer(), nil
	case util.SolverNone, "":
		return nil, nil
	default:
		return nil, errors.Wrapf(ErrUnavailable, "unknown solver %q", cfg.Optimizer.Solver)
	}
}

func checkProblem(problem *plan.EncodedProblem) error {
	if problem == nil || problem.NumCandidates == 0 {
		return errors.New("empty problem")
	}
	return nil
}
