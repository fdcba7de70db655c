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
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

const (
	sqliteDriver   = "sqlite"
	postgresDriver = "postgres"

	sqliteTablesSQL   = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	postgresTablesSQL = "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name"
)

// SQLProvider counts rows in a live database. Selectivities are not
// measured, they come from configuration.
type SQLProvider struct {
	db          *sql.DB
	driver      string
	owned       bool
	selectivity map[string]map[string]float64
}

func NewSQLProvider(db *sql.DB, driver string, selectivity map[string]map[string]float64) *SQLProvider {
	return &SQLProvider{
		db:          db,
		driver:      driver,
		selectivity: selectivity,
	}
}

func OpenSQLProvider(driver, dsn string, selectivity map[string]map[string]float64) (*SQLProvider, error) {
	if dsn == "" {
		return nil, errors.Newf("empty dsn for driver %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	provider := NewSQLProvider(db, driver, selectivity)
	provider.owned = true
	return provider, nil
}

func (provider *SQLProvider) count(ctx context.Context, table string) (int64, error) {
	if err := util.Inject(util.FAULTS_SCOPE_STATS, util.FaultStatsLoad); err != nil {
		return 0, err
	}
	var cnt int64
	row := provider.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteTable(table))
	if err := row.Scan(&cnt); err != nil {
		return 0, errors.Wrapf(err, "count rows of %s", table)
	}
	return cnt, nil
}

// quoteTable quotes every part of a possibly schema qualified name.
func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

func (provider *SQLProvider) Statistics(ctx context.Context, tables []string) (plan.Statistics, error) {
	stats := make(plan.Statistics, len(tables))
	for _, table := range tables {
		cnt, err := provider.count(ctx, table)
		if err != nil {
			return nil, err
		}
		if err = checkSize(table, cnt); err != nil {
			return nil, err
		}
		ts := plan.NewTableStats(cnt)
		attach(ts, table, provider.selectivity)
		stats[table] = ts
		util.Debug("table statistics loaded",
			zap.String("table", table),
			zap.Int64("rows", cnt))
	}
	if err := stats.Validate(tables); err != nil {
		return nil, err
	}
	return stats, nil
}

// Tables lists the user tables of the database.
func (provider *SQLProvider) Tables() []string {
	query := sqliteTablesSQL
	if provider.driver == postgresDriver {
		query = postgresTablesSQL
	}
	rows, err := provider.db.Query(query)
	if err != nil {
		util.Warn("list tables failed", zap.Error(err))
		return nil
	}
	defer rows.Close()
	var ret []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil
		}
		ret = append(ret, name)
	}
	return ret
}

func (provider *SQLProvider) Close() error {
	if !provider.owned {
		return nil
	}
	return provider.db.Close()
}
