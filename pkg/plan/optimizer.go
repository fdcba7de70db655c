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

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/util"
)

// JoinOrderOptimizer runs one optimization per call:
// statistics -> candidates -> top-K -> energy table -> solver -> recommendation.
// It keeps no state between runs.
type JoinOrderOptimizer struct {
	cfg      util.OptimizerConfig
	provider StatsProvider
	solver   Solver
	model    *CostModel
	encoder  *Encoder
	selector *Selector
}

func NewJoinOrderOptimizer(cfg util.OptimizerConfig, provider StatsProvider, solver Solver) *JoinOrderOptimizer {
	return &JoinOrderOptimizer{
		cfg:      cfg,
		provider: provider,
		solver:   solver,
		model:    NewCostModel(cfg.DefaultSelectivity),
		encoder:  NewEncoder(cfg.Penalty),
		selector: NewSelector(cfg),
	}
}

func (joinOrder *JoinOrderOptimizer) CostModel() *CostModel {
	return joinOrder.model
}

// Optimize loads the statistics of tables and recommends a join order.
func (joinOrder *JoinOrderOptimizer) Optimize(ctx context.Context, tables []string) (*Recommendation, error) {
	tables = lo.Uniq(tables)
	if len(tables) == 0 {
		OptimizeFailures.Inc()
		return nil, ErrNoTables
	}
	if joinOrder.provider == nil {
		OptimizeFailures.Inc()
		return nil, errors.New("no statistics provider")
	}
	stats, err := joinOrder.provider.Statistics(ctx, tables)
	if err != nil {
		OptimizeFailures.Inc()
		return nil, errors.Wrap(err, "load statistics")
	}
	return joinOrder.OptimizeWithStats(ctx, tables, stats)
}

// OptimizeWithStats works on a private snapshot of stats.
func (joinOrder *JoinOrderOptimizer) OptimizeWithStats(ctx context.Context, tables []string, stats Statistics) (*Recommendation, error) {
	tables = lo.Uniq(tables)
	if len(tables) == 0 {
		OptimizeFailures.Inc()
		return nil, ErrNoTables
	}
	snapshot := stats.Snapshot()
	if err := snapshot.Validate(tables); err != nil {
		OptimizeFailures.Inc()
		return nil, err
	}

	runID := uuid.NewString()
	logger := util.Logger().With(zap.String("runId", runID))
	if limit := joinOrder.cfg.MaxExhaustiveTables; limit > 0 && len(tables) > limit {
		logger.Warn("exhaustive join order enumeration over many tables",
			zap.Int("tables", len(tables)),
			zap.Int("limit", limit))
	}

	cands := EnumerateCandidates(tables, snapshot, joinOrder.model)
	CandidatesEnumerated.Observe(float64(len(cands)))
	reduced := Reduce(cands, joinOrder.cfg.Capacity)
	problem := joinOrder.encoder.Encode(reduced.Costs())
	logger.Debug("join order problem encoded",
		zap.Strings("tables", tables),
		zap.Int("enumerated", len(cands)),
		zap.Int("reduced", len(reduced)),
		zap.Int("bits", problem.Bits))

	rec := joinOrder.selector.Select(ctx, problem, reduced, joinOrder.solver)
	rec.RunID = runID
	rec.Enumerated = len(cands)

	RecommendationsTotal.WithLabelValues(string(rec.Source)).Inc()
	SolveDuration.WithLabelValues(string(rec.Source)).Observe(rec.SolveTime.Seconds())
	logger.Info("join order recommended",
		zap.String("order", rec.Order.String()),
		zap.Float64("cost", rec.PredictedCost),
		zap.Float64("confidence", rec.Confidence),
		zap.String("source", string(rec.Source)),
		zap.String("reason", rec.Reason))
	return rec, nil
}
