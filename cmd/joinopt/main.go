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
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initRootFlags()
	initAnalyzeCmd()
	initOptimizeCmd()
	initServeCmd()
	initSetupDbCmd()
}

var runCfg = util.DefaultConfig()
var cfgFile string

///root cmd

var info = "join order optimizer"
var RootCmd = &cobra.Command{
	Use:          "joinopt",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use joinopt --help or -h")
	},
}

func initRootFlags() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file. default: ./joinopt.toml or etc/joinopt.toml")
	flags.String("log_level", "info", "log level. debug, info, warn, error")
	flags.String("solver", util.SolverSampler, "optimization backend. sampler, minimizer, none")
	flags.Int("capacity", 4, "number of candidates handed to the solver")
	flags.Uint64("seed", 0, "sampler seed. 0 seeds from the clock")
	flags.String("stats_source", util.StatsSourceStatic, "statistics source. static, sqlite, postgres, csv, parquet")
	flags.String("stats_dsn", "", "data source name of the sqlite or postgres source")
	flags.String("stats_path", "", "statistics snapshot, sqlite file or data directory")
	flags.Bool("print_plan", false, "print the recommended join tree")

	viper.BindPFlag("debug.logLevel", flags.Lookup("log_level"))
	viper.BindPFlag("optimizer.solver", flags.Lookup("solver"))
	viper.BindPFlag("optimizer.capacity", flags.Lookup("capacity"))
	viper.BindPFlag("sampler.seed", flags.Lookup("seed"))
	viper.BindPFlag("stats.source", flags.Lookup("stats_source"))
	viper.BindPFlag("stats.dsn", flags.Lookup("stats_dsn"))
	viper.BindPFlag("stats.path", flags.Lookup("stats_path"))
	viper.BindPFlag("debug.printPlan", flags.Lookup("print_plan"))
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "joinopt.toml"

func findConfig() string {
	if cfgFile != "" {
		return cfgFile
	}
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			return fpath
		}
	}
	return ""
}

// loadConfig reads the toml file through viper. Flags the user set win
// over the file, the file wins over the defaults.
func loadConfig() {
	cfg, err := readConfig(viper.GetViper(), findConfig())
	if err != nil {
		util.Error("load config failed", zap.Error(err))
		os.Exit(1)
	}
	runCfg = cfg
	if err = util.InitLogger(runCfg.Debug.LogLevel); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func readConfig(v *viper.Viper, fpath string) (*util.Config, error) {
	if fpath != "" {
		v.SetConfigFile(fpath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", fpath)
		}
	}
	cfg := util.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
