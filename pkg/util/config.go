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

package util

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

type ClassifierConfig struct {
	Weights      map[string]float64 `toml:"weights" mapstructure:"weights"`
	Threshold    float64            `toml:"threshold" mapstructure:"threshold"`
	LengthExempt float64            `toml:"lengthExempt" mapstructure:"lengthExempt"`
}

const (
	SolverSampler   = "sampler"
	SolverMinimizer = "minimizer"
	SolverNone      = "none"
)

type OptimizerConfig struct {
	//top-K bound handed to the solver
	Capacity            int           `toml:"capacity" mapstructure:"capacity"`
	DefaultSelectivity  float64       `toml:"defaultSelectivity" mapstructure:"defaultSelectivity"`
	Penalty             float64       `toml:"penalty" mapstructure:"penalty"`
	FallbackConfidence  float64       `toml:"fallbackConfidence" mapstructure:"fallbackConfidence"`
	SolverTimeout       time.Duration `toml:"solverTimeout" mapstructure:"solverTimeout"`
	Solver              string        `toml:"solver" mapstructure:"solver"`
	MaxExhaustiveTables int           `toml:"maxExhaustiveTables" mapstructure:"maxExhaustiveTables"`
}

type SamplerConfig struct {
	Shots       int     `toml:"shots" mapstructure:"shots"`
	Workers     int     `toml:"workers" mapstructure:"workers"`
	Temperature float64 `toml:"temperature" mapstructure:"temperature"`
	//0 means seeded from the clock
	Seed uint64 `toml:"seed" mapstructure:"seed"`
}

const (
	StatsSourceStatic   = "static"
	StatsSourceSqlite   = "sqlite"
	StatsSourcePostgres = "postgres"
	StatsSourceCsv      = "csv"
	StatsSourceParquet  = "parquet"
)

type StatsConfig struct {
	Source    string   `toml:"source" mapstructure:"source"`
	Dsn       string   `toml:"dsn" mapstructure:"dsn"`
	Path      string   `toml:"path" mapstructure:"path"`
	Delimiter string   `toml:"delimiter" mapstructure:"delimiter"`
	Tables    []string `toml:"tables" mapstructure:"tables"`
	//left table -> right table -> selectivity
	Selectivity map[string]map[string]float64 `toml:"selectivity" mapstructure:"selectivity"`
}

type ServerConfig struct {
	Addr        string `toml:"addr" mapstructure:"addr"`
	MetricsAddr string `toml:"metricsAddr" mapstructure:"metricsAddr"`
}

type DebugOptions struct {
	PrintPlan bool   `toml:"printPlan" mapstructure:"printPlan"`
	LogLevel  string `toml:"logLevel" mapstructure:"logLevel"`
}

type Config struct {
	Classifier ClassifierConfig `toml:"classifier" mapstructure:"classifier"`
	Optimizer  OptimizerConfig  `toml:"optimizer" mapstructure:"optimizer"`
	Sampler    SamplerConfig    `toml:"sampler" mapstructure:"sampler"`
	Stats      StatsConfig      `toml:"stats" mapstructure:"stats"`
	Server     ServerConfig     `toml:"server" mapstructure:"server"`
	Debug      DebugOptions     `toml:"debug" mapstructure:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Weights: map[string]float64{
				"joins":         2,
				"subqueries":    3,
				"aggregations":  1,
				"group_by":      1,
				"having":        2,
				"analytical_fn": 3,
				"length":        1,
			},
			Threshold:    4,
			LengthExempt: 150,
		},
		Optimizer: OptimizerConfig{
			Capacity:            4,
			DefaultSelectivity:  0.1,
			Penalty:             1e6,
			FallbackConfidence:  0.9,
			SolverTimeout:       5 * time.Minute,
			Solver:              SolverSampler,
			MaxExhaustiveTables: 8,
		},
		Sampler: SamplerConfig{
			Shots:       1024,
			Workers:     4,
			Temperature: 0.1,
		},
		Stats: StatsConfig{
			Source:    StatsSourceStatic,
			Delimiter: "|",
			Selectivity: map[string]map[string]float64{
				"customers": {"orders": 0.3, "products": 0.1},
				"orders":    {"customers": 0.8, "products": 0.6},
				"products":  {"customers": 0.2, "orders": 0.9},
			},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:5432",
		},
		Debug: DebugOptions{
			LogLevel: "info",
		},
	}
}

// LoadConfig decodes a toml file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	opt := cfg.Optimizer
	if opt.Capacity < 1 {
		return errors.Newf("optimizer.capacity must be at least 1, got %d", opt.Capacity)
	}
	if opt.DefaultSelectivity <= 0 || opt.DefaultSelectivity > 1 {
		return errors.Newf("optimizer.defaultSelectivity must be in (0,1], got %v", opt.DefaultSelectivity)
	}
	if opt.Penalty <= 0 {
		return errors.Newf("optimizer.penalty must be positive, got %v", opt.Penalty)
	}
	if opt.FallbackConfidence < 0 || opt.FallbackConfidence > 1 {
		return errors.Newf("optimizer.fallbackConfidence must be in [0,1], got %v", opt.FallbackConfidence)
	}
	switch opt.Solver {
	case SolverSampler, SolverMinimizer, SolverNone:
	default:
		return errors.Newf("unknown solver %q", opt.Solver)
	}
	if cfg.Sampler.Shots < 0 || cfg.Sampler.Workers < 0 {
		return errors.New("sampler.shots and sampler.workers must not be negative")
	}
	if cfg.Sampler.Temperature < 0 {
		return errors.Newf("sampler.temperature must not be negative, got %v", cfg.Sampler.Temperature)
	}
	for left, rights := range cfg.Stats.Selectivity {
		for right, sel := range rights {
			if sel <= 0 || sel > 1 {
				return errors.Newf("stats.selectivity.%s.%s must be in (0,1], got %v", left, right, sel)
			}
		}
	}
	return nil
}
