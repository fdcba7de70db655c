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

package storage

import (
	"maps"

	"github.com/cockroachdb/errors"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

// Provider is a statistics source owned by the caller.
type Provider interface {
	plan.StatsProvider
	Tables() []string
	Close() error
}

// NewProvider opens the source named by stats.source.
func NewProvider(cfg util.StatsConfig) (Provider, error) {
	switch cfg.Source {
	case util.StatsSourceStatic, "":
		if cfg.Path != "" {
			return LoadSnapshot(cfg.Path)
		}
		return SampleProvider(cfg.Selectivity), nil
	case util.StatsSourceSqlite:
		dsn := cfg.Dsn
		if dsn == "" {
			dsn = cfg.Path
		}
		return OpenSQLProvider(sqliteDriver, dsn, cfg.Selectivity)
	case util.StatsSourcePostgres:
		return OpenSQLProvider(postgresDriver, cfg.Dsn, cfg.Selectivity)
	case util.StatsSourceCsv, util.StatsSourceParquet:
		return NewFileProvider(cfg.Path, cfg.Source, cfg.Delimiter, cfg.Selectivity)
	default:
		return nil, errors.Newf("unknown statistics source %q", cfg.Source)
	}
}

// attach copies the configured selectivities of table into ts.
func attach(ts *plan.TableStats, table string, selectivity map[string]map[string]float64) {
	if rights, has := selectivity[table]; has {
		maps.Copy(ts.Selectivity, rights)
	}
}

func checkSize(table string, size int64) error {
	if size < 0 {
		return errors.Wrapf(plan.ErrInvalidStatistics, "table %s has negative size %d", table, size)
	}
	return nil
}
