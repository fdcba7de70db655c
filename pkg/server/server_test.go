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

package server

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinopt/pkg/feature"
	"github.com/daviszhen/joinopt/pkg/parser"
	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/storage"
	"github.com/daviszhen/joinopt/pkg/util"
)

const threeWay = `SELECT c.name, p.product_name
FROM customers c
JOIN orders o ON c.id = o.customer_id
JOIN products p ON o.id = p.order_id`

func newTestServer() *Server {
	cfg := util.DefaultConfig()
	analyzer := feature.NewAnalyzer(parser.NewFeatureExtractor(), cfg.Classifier)
	provider := storage.SampleProvider(cfg.Stats.Selectivity)
	optimizer := plan.NewJoinOrderOptimizer(cfg.Optimizer, provider, nil)
	return New(cfg, analyzer, optimizer)
}

func TestExplain(t *testing.T) {
	srv := newTestServer()
	ret, err := srv.Explain(context.Background(), threeWay)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "products"}, ret.Tables)
	assert.Equal(t, feature.Complex, ret.Report.Classification)
	assert.Equal(t, float64(4), ret.Report.Score)

	require.NotNil(t, ret.Rec)
	assert.Equal(t, plan.JoinOrder{"customers", "products", "orders"}, ret.Rec.Order)
	assert.InDelta(t, 10.75, ret.Rec.PredictedCost, 1e-9)

	rows := ret.Rows()
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Len(t, row, len(Columns()))
	}
	assert.Equal(t, int64(0), rows[0][0])
	assert.Equal(t, "customers -> products -> orders", rows[0][1])
	assert.Equal(t, true, rows[0][3])
	assert.Equal(t, string(plan.SourceFallback), rows[0][4])
	assert.Equal(t, 0.9, rows[0][5])
	assert.Equal(t, false, rows[1][3])
	assert.Equal(t, float64(0), rows[1][5])
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1][2].(float64), rows[i][2].(float64))
	}
}

func TestExplainNoTables(t *testing.T) {
	ret, err := newTestServer().Explain(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Nil(t, ret.Rec)
	rows := ret.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-1), rows[0][0])
	assert.Equal(t, string(feature.Simple), rows[0][6])
}

func TestExplainErrors(t *testing.T) {
	srv := newTestServer()
	_, err := srv.Explain(context.Background(), "SELEC broken FROM")
	assert.True(t, errors.Is(err, feature.ErrInvalidQuery))

	_, err = srv.Explain(context.Background(), "SELECT * FROM lineitem JOIN orders ON true")
	assert.True(t, errors.Is(err, plan.ErrMissingStatistics))

	_, err = srv.handler(context.Background(), "")
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	srv := newTestServer()
	stmts, err := srv.handler(context.Background(), threeWay)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
	assert.NoError(t, srv.Close())
}
