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
	"fmt"

	"github.com/cockroachdb/errors"
	wire "github.com/jeroenrinzema/psql-wire"
	"github.com/lib/pq/oid"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/feature"
	"github.com/daviszhen/joinopt/pkg/parser"
	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

// Server answers every incoming SQL string with its complexity report
// and the ranked join orders of the tables it references. The query is
// never executed.
type Server struct {
	cfg       *util.Config
	analyzer  *feature.Analyzer
	optimizer *plan.JoinOrderOptimizer
	wire      *wire.Server
}

func New(cfg *util.Config, analyzer *feature.Analyzer, optimizer *plan.JoinOrderOptimizer) *Server {
	return &Server{
		cfg:       cfg,
		analyzer:  analyzer,
		optimizer: optimizer,
	}
}

// Result is the answer to one query.
type Result struct {
	Query  string
	Tables []string
	Report *feature.Report
	Rec    *plan.Recommendation
}

func (s *Server) Explain(ctx context.Context, query string) (*Result, error) {
	report, err := s.analyzer.Analyze(query)
	if err != nil {
		return nil, err
	}
	tables, err := parser.Tables(query)
	if err != nil {
		return nil, err
	}
	ret := &Result{
		Query:  query,
		Tables: tables,
		Report: report,
	}
	if len(tables) == 0 {
		return ret, nil
	}
	ret.Rec, err = s.optimizer.Optimize(ctx, tables)
	if err != nil {
		return nil, err
	}
	if s.cfg.Debug.PrintPlan {
		fmt.Println(ret.Rec.String())
	}
	return ret, nil
}

var columns = wire.Columns{
	{Name: "rank", Oid: oid.T_int8, Width: 8},
	{Name: "join_order", Oid: oid.T_text, Width: -1},
	{Name: "cost", Oid: oid.T_float8, Width: 8},
	{Name: "chosen", Oid: oid.T_bool, Width: 1},
	{Name: "source", Oid: oid.T_text, Width: -1},
	{Name: "confidence", Oid: oid.T_float8, Width: 8},
	{Name: "classification", Oid: oid.T_text, Width: -1},
	{Name: "complexity_score", Oid: oid.T_float8, Width: 8},
}

func Columns() wire.Columns {
	return columns
}

// Rows has one row per reduced candidate ordered by cost. A query
// without tables yields a single row carrying only the report.
func (ret *Result) Rows() [][]any {
	class := string(ret.Report.Classification)
	score := ret.Report.Score
	if ret.Rec == nil {
		return [][]any{{int64(-1), "", float64(0), false, "", float64(0), class, score}}
	}
	rows := make([][]any, 0, len(ret.Rec.AllCandidates))
	for _, entry := range ret.Rec.AllCandidates {
		chosen := entry.Index == ret.Rec.Index
		confidence := float64(0)
		if chosen {
			confidence = ret.Rec.Confidence
		}
		rows = append(rows, []any{
			int64(entry.Index),
			entry.Order.String(),
			entry.Cost,
			chosen,
			string(ret.Rec.Source),
			confidence,
			class,
			score,
		})
	}
	return rows
}

func (s *Server) handler(ctx context.Context, query string) (wire.PreparedStatements, error) {
	util.Info("incoming SQL :", zap.String("query", query))
	ret, err := s.Explain(ctx, query)
	if err != nil {
		util.Warn("explain failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	handle := func(ctx context.Context, writer wire.DataWriter, _ []wire.Parameter) error {
		rows := ret.Rows()
		for _, row := range rows {
			if err := writer.Row(row); err != nil {
				return err
			}
		}
		return writer.Complete(fmt.Sprintf("SELECT %d", len(rows)))
	}
	return wire.Prepared(
		wire.NewStatement(handle,
			wire.WithColumns(Columns()),
		),
	), nil
}

func (s *Server) ListenAndServe(addr string) error {
	srv, err := wire.NewServer(s.handler)
	if err != nil {
		return errors.Wrap(err, "create wire server")
	}
	s.wire = srv
	util.Info("wire server listening", zap.String("addr", addr))
	return srv.ListenAndServe(addr)
}

func (s *Server) Close() error {
	if s.wire == nil {
		return nil
	}
	return s.wire.Close()
}
