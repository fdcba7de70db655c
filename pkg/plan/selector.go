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
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/util"
)

const (
	defaultFallbackConfidence = 0.9
)

// Distribution maps a candidate index to a weight. Weights are
// probabilities or utilities, only their order matters.
type Distribution map[int]float64

// Solver minimizes an encoded problem. Implementations honor ctx
// cancellation and deadlines.
type Solver interface {
	Solve(ctx context.Context, problem *EncodedProblem) (Distribution, error)
}

type SolverFunc func(ctx context.Context, problem *EncodedProblem) (Distribution, error)

func (fun SolverFunc) Solve(ctx context.Context, problem *EncodedProblem) (Distribution, error) {
	return fun(ctx, problem)
}

type Source string

const (
	SourceSolver   Source = "solver"
	SourceFallback Source = "classical_fallback"
)

type SelectState int

const (
	StateReady SelectState = iota
	StateSolving
	StateResolved
	StateFallback
)

func (st SelectState) String() string {
	switch st {
	case StateReady:
		return "READY"
	case StateSolving:
		return "SOLVING"
	case StateResolved:
		return "RESOLVED"
	case StateFallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Selector turns a solver's distribution into one recommendation.
// Every failure of the solver ends in the classical fallback.
type Selector struct {
	fallbackConfidence float64
	timeout            time.Duration
}

func NewSelector(cfg util.OptimizerConfig) *Selector {
	conf := cfg.FallbackConfidence
	if conf < 0 || conf > 1 {
		conf = defaultFallbackConfidence
	}
	return &Selector{
		fallbackConfidence: conf,
		timeout:            cfg.SolverTimeout,
	}
}

type selection struct {
	state SelectState
	rec   *Recommendation
}

func (sel *selection) transit(to SelectState) {
	util.Debug("selector transition",
		zap.String("from", sel.state.String()),
		zap.String("to", to.String()))
	sel.state = to
}

// Select runs the solver once. The result is the candidate with the
// strictly greatest weight, the lowest index on ties. A missing solver,
// a failure, an empty distribution or one without any candidate index
// falls back to the cheapest candidate.
func (s *Selector) Select(
	ctx context.Context,
	problem *EncodedProblem,
	cands CandidateSet,
	solver Solver,
) *Recommendation {
	sel := &selection{
		state: StateReady,
		rec: &Recommendation{
			AllCandidates: cands,
		},
	}
	if solver == nil {
		s.fallback(sel, "no solver")
		return sel.rec
	}

	sel.transit(StateSolving)
	start := time.Now()
	dist, err := s.solve(ctx, solver, problem)
	sel.rec.SolveTime = time.Since(start)
	if err != nil {
		util.Warn("solver failed", zap.Error(err))
		s.fallback(sel, err.Error())
		return sel.rec
	}
	if len(dist) == 0 {
		s.fallback(sel, "empty distribution")
		return sel.rec
	}
	sel.rec.Distribution = dist

	bestIdx := -1
	bestWeight := float64(-1)
	for idx := range cands {
		weight, has := dist[idx]
		if !has || math.IsNaN(weight) || weight < 0 {
			continue
		}
		if weight > bestWeight {
			bestIdx = idx
			bestWeight = weight
		}
	}
	if bestIdx < 0 {
		s.fallback(sel, "no candidate in distribution")
		return sel.rec
	}

	sel.transit(StateResolved)
	best := cands[bestIdx]
	sel.rec.fill(best, util.Clamp(bestWeight, 0, 1), SourceSolver, StateResolved)
	return sel.rec
}

func (s *Selector) solve(ctx context.Context, solver Solver, problem *EncodedProblem) (dist Distribution, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			dist = nil
			err = util.ConvertPanicError(r)
		}
	}()
	return solver.Solve(ctx, problem)
}

func (s *Selector) fallback(sel *selection, reason string) {
	sel.transit(StateFallback)
	sel.rec.Reason = reason
	best := sel.rec.AllCandidates.Min()
	sel.rec.fill(best, s.fallbackConfidence, SourceFallback, StateFallback)
}
