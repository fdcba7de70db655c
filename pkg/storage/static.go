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
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	treemap "github.com/liyue201/gostl/ds/map"

	"github.com/daviszhen/joinopt/pkg/plan"
)

// StaticProvider serves statistics kept in memory, ordered by table name.
type StaticProvider struct {
	tables *treemap.Map[string, *plan.TableStats]
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		tables: treemap.New[string, *plan.TableStats](strings.Compare),
	}
}

func (provider *StaticProvider) Put(table string, ts *plan.TableStats) error {
	if ts == nil {
		return errors.Newf("nil statistics for table %s", table)
	}
	if err := checkSize(table, ts.Size); err != nil {
		return err
	}
	if ts.Selectivity == nil {
		ts.Selectivity = make(map[string]float64)
	}
	provider.tables.Insert(table, ts)
	return nil
}

func (provider *StaticProvider) Tables() []string {
	ret := make([]string, 0, provider.tables.Size())
	for iter := provider.tables.Begin(); iter.IsValid(); iter.Next() {
		ret = append(ret, iter.Key())
	}
	return ret
}

func (provider *StaticProvider) Statistics(_ context.Context, tables []string) (plan.Statistics, error) {
	stats := make(plan.Statistics, len(tables))
	for _, table := range tables {
		ts, err := provider.tables.Get(table)
		if err != nil {
			return nil, errors.Wrapf(plan.ErrMissingStatistics, "table %s", table)
		}
		stats[table] = ts
	}
	if err := stats.Validate(tables); err != nil {
		return nil, err
	}
	return stats.Snapshot(), nil
}

func (provider *StaticProvider) Close() error {
	return nil
}

type snapshotFile struct {
	Tables map[string]*plan.TableStats `toml:"tables"`
}

// LoadSnapshot reads table statistics from a toml file:
//
//	[tables.orders]
//	size = 5
//	[tables.orders.selectivity]
//	customers = 0.8
func LoadSnapshot(path string) (*StaticProvider, error) {
	var file snapshotFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, errors.Wrapf(err, "decode statistics snapshot %s", path)
	}
	provider := NewStaticProvider()
	for table, ts := range file.Tables {
		if err := provider.Put(table, ts); err != nil {
			return nil, err
		}
	}
	return provider, nil
}

// SampleProvider serves the row counts of the sample database.
func SampleProvider(selectivity map[string]map[string]float64) *StaticProvider {
	provider := NewStaticProvider()
	for _, table := range sampleTables {
		ts := plan.NewTableStats(int64(len(table.rows)))
		attach(ts, table.name, selectivity)
		_ = provider.Put(table.name, ts)
	}
	return provider
}
