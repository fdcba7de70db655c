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

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/feature"
	"github.com/daviszhen/joinopt/pkg/parser"
	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/server"
	"github.com/daviszhen/joinopt/pkg/solver"
	"github.com/daviszhen/joinopt/pkg/storage"
	"github.com/daviszhen/joinopt/pkg/util"
)

func newAnalyzer() *feature.Analyzer {
	return feature.NewAnalyzer(parser.NewFeatureExtractor(), runCfg.Classifier)
}

func newOptimizer() (*plan.JoinOrderOptimizer, storage.Provider, error) {
	provider, err := storage.NewProvider(runCfg.Stats)
	if err != nil {
		return nil, nil, err
	}
	backend, err := solver.New(runCfg)
	if err != nil {
		_ = provider.Close()
		return nil, nil, err
	}
	return plan.NewJoinOrderOptimizer(runCfg.Optimizer, provider, backend), provider, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJson(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

//analyze cmd

var analyzeInfo = "classify the complexity of a query"
var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: analyzeInfo,
	Long:  analyzeInfo,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		report, err := newAnalyzer().Analyze(query)
		if err != nil {
			return err
		}
		return printJson(report)
	},
}

func initAnalyzeCmd() {
	RootCmd.AddCommand(analyzeCmd)
}

//optimize cmd

var optimizeQuery string
var optimizeInfo = "recommend a join order for tables or for the tables of a query"
var optimizeCmd = &cobra.Command{
	Use:   "optimize [table...]",
	Short: optimizeInfo,
	Long:  optimizeInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := args
		if optimizeQuery != "" {
			report, err := newAnalyzer().Analyze(optimizeQuery)
			if err != nil {
				return err
			}
			fmt.Printf("classification: %s score: %v readiness: %v\n",
				report.Classification, report.Score, report.Prepared.Readiness)
			tables, err = parser.Tables(optimizeQuery)
			if err != nil {
				return err
			}
		}
		if len(tables) == 0 {
			tables = runCfg.Stats.Tables
		}
		opt, provider, err := newOptimizer()
		if err != nil {
			return err
		}
		defer provider.Close()
		if len(tables) == 0 {
			tables = provider.Tables()
		}
		rec, err := opt.Optimize(cmdContext(cmd), lo.Uniq(tables))
		if err != nil {
			return err
		}
		if runCfg.Debug.PrintPlan {
			fmt.Println(rec.String())
		}
		fmt.Print(rec.AllCandidates.String())
		fmt.Printf("recommended: %s cost: %.2f confidence: %.3f source: %s\n",
			rec.Order, rec.PredictedCost, rec.Confidence, rec.Source)
		return nil
	},
}

func initOptimizeCmd() {
	RootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().StringVar(&optimizeQuery, "query", "", "take the tables from this query")
}

//serve cmd

var serveInfo = "serve join order recommendations over the postgres wire protocol"
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: serveInfo,
	Long:  serveInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, provider, err := newOptimizer()
		if err != nil {
			return err
		}
		defer provider.Close()

		if runCfg.Server.MetricsAddr != "" {
			registry := prometheus.NewRegistry()
			plan.RegisterMetrics(registry)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			go func() {
				err := http.ListenAndServe(runCfg.Server.MetricsAddr, mux)
				util.Error("metrics endpoint stopped", zap.Error(err))
			}()
		}

		srv := server.New(runCfg, newAnalyzer(), opt)
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			util.Info("shutting down")
			_ = srv.Close()
		}()
		return srv.ListenAndServe(runCfg.Server.Addr)
	},
}

func initServeCmd() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "127.0.0.1:5432", "wire protocol listen address")
	serveCmd.Flags().String("metrics_addr", "", "prometheus listen address. empty disables it")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.metricsAddr", serveCmd.Flags().Lookup("metrics_addr"))
}

//setup-db cmd

var setupDbPath string
var setupDbInfo = "create the sample sqlite database"
var setupDbCmd = &cobra.Command{
	Use:   "setup-db",
	Short: setupDbInfo,
	Long:  setupDbInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupDbPath == "" {
			return errors.New("missing --path")
		}
		db, err := sql.Open("sqlite", setupDbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err = storage.SetupSample(cmdContext(cmd), db); err != nil {
			return err
		}
		fmt.Printf("sample database ready: %s tables: %s\n",
			setupDbPath, strings.Join(storage.SampleTableNames(), ", "))
		return nil
	},
}

func initSetupDbCmd() {
	RootCmd.AddCommand(setupDbCmd)
	setupDbCmd.Flags().StringVar(&setupDbPath, "path", "sample.db", "sqlite database file")
}
