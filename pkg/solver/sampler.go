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
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

const (
	defaultShots       = 1024
	defaultTemperature = 0.1
	checkEvery         = 64
)

// Sampler draws shots from the Boltzmann distribution of the energy
// table and reports how often each state was observed. Energies are
// scaled so that the valid states span [0,1]; padding states stay
// reachable but exponentially unlikely.
type Sampler struct {
	shots       int
	workers     int
	temperature float64
	seed        uint64
}

func NewSampler(cfg util.SamplerConfig) *Sampler {
	s := &Sampler{
		shots:       cfg.Shots,
		workers:     cfg.Workers,
		temperature: cfg.Temperature,
		seed:        cfg.Seed,
	}
	if s.shots <= 0 {
		s.shots = defaultShots
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.temperature <= 0 {
		s.temperature = defaultTemperature
	}
	return s
}

// boltzmann returns the cumulative weights over all states.
func (s *Sampler) boltzmann(problem *plan.EncodedProblem) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for state := 0; state < problem.NumCandidates; state++ {
		lo = min(lo, problem.Energy(state))
		hi = max(hi, problem.Energy(state))
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	cdf := make([]float64, problem.States())
	acc := float64(0)
	for state := range cdf {
		scaled := (problem.Energy(state) - lo) / span
		acc += math.Exp(-scaled / s.temperature)
		cdf[state] = acc
	}
	return cdf
}

func (s *Sampler) Solve(ctx context.Context, problem *plan.EncodedProblem) (plan.Distribution, error) {
	if err := util.Inject(util.FAULTS_SCOPE_SOLVER, util.FaultSolverSample); err != nil {
		return nil, err
	}
	if err := checkProblem(problem); err != nil {
		return nil, err
	}
	cdf := s.boltzmann(problem)
	total := cdf[len(cdf)-1]

	seed := s.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	workers := min(s.workers, s.shots)
	counts := make([][]int, workers)
	grp, gctx := errgroup.WithContext(ctx)
	for batch := 0; batch < workers; batch++ {
		shots := s.shots / workers
		if batch < s.shots%workers {
			shots++
		}
		local := make([]int, len(cdf))
		counts[batch] = local
		rng := rand.New(rand.NewPCG(seed, uint64(batch)))
		grp.Go(func() error {
			for i := 0; i < shots; i++ {
				if i%checkEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				x := rng.Float64() * total
				state := sort.SearchFloat64s(cdf, x)
				if state >= len(cdf) {
					state = len(cdf) - 1
				}
				local[state]++
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	dist := make(plan.Distribution)
	for _, local := range counts {
		for state, cnt := range local {
			if cnt > 0 {
				dist[state] += float64(cnt) / float64(s.shots)
			}
		}
	}
	util.Debug("sampling done",
		zap.Int("shots", s.shots),
		zap.Int("workers", workers),
		zap.Int("observed", len(dist)))
	return dist, nil
}
