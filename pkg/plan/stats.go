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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/huandu/go-clone"
	"github.com/samber/lo"
)

var (
	ErrNoTables          = errors.New("no tables to join")
	ErrMissingStatistics = errors.New("missing table statistics")
	ErrInvalidStatistics = errors.New("invalid table statistics")
)

// TableStats holds the row count of a table and the selectivity of
// joining it to other tables. Selectivity is directional: the entry
// for t in the stats of p applies when t follows p.
type TableStats struct {
	Size        int64              `toml:"size" mapstructure:"size"`
	Selectivity map[string]float64 `toml:"selectivity" mapstructure:"selectivity"`
}

func NewTableStats(size int64) *TableStats {
	return &TableStats{
		Size:        size,
		Selectivity: make(map[string]float64),
	}
}

// Statistics maps a table name to its stats.
type Statistics map[string]*TableStats

// StatsProvider supplies statistics of the tables referenced by one
// query. Callers treat the result as read-only.
type StatsProvider interface {
	Statistics(ctx context.Context, tables []string) (Statistics, error)
}

func (stats Statistics) Size(table string) int64 {
	if ts, has := stats[table]; has && ts != nil {
		return ts.Size
	}
	return 0
}

// Selectivity returns the selectivity of joining next after prev.
func (stats Statistics) Selectivity(prev, next string) (float64, bool) {
	ts, has := stats[prev]
	if !has || ts == nil {
		return 0, false
	}
	sel, has := ts.Selectivity[next]
	return sel, has
}

func (stats Statistics) SetSelectivity(prev, next string, sel float64) {
	ts, has := stats[prev]
	if !has || ts == nil {
		ts = NewTableStats(0)
		stats[prev] = ts
	}
	if ts.Selectivity == nil {
		ts.Selectivity = make(map[string]float64)
	}
	ts.Selectivity[next] = sel
}

func (stats Statistics) Tables() []string {
	names := lo.Keys(stats)
	sort.Strings(names)
	return names
}

// Snapshot deep copies the statistics, so that one run never observes
// changes made by the provider afterwards.
func (stats Statistics) Snapshot() Statistics {
	if stats == nil {
		return nil
	}
	return clone.Clone(stats).(Statistics)
}

// Validate checks every table is known, sizes are not negative and
// selectivities lie in (0,1].
func (stats Statistics) Validate(tables []string) error {
	for _, table := range tables {
		if ts, has := stats[table]; !has || ts == nil {
			return errors.Wrapf(ErrMissingStatistics, "table %s", table)
		}
	}
	for _, table := range stats.Tables() {
		ts := stats[table]
		if ts == nil {
			continue
		}
		if ts.Size < 0 {
			return errors.Wrapf(ErrInvalidStatistics, "table %s has negative size %d", table, ts.Size)
		}
		for next, sel := range ts.Selectivity {
			if math.IsNaN(sel) || sel <= 0 || sel > 1 {
				return errors.Wrapf(ErrInvalidStatistics,
					"selectivity %s -> %s is %v, want (0,1]", table, next, sel)
			}
		}
	}
	return nil
}

func (stats Statistics) String() string {
	sb := strings.Builder{}
	for _, table := range stats.Tables() {
		ts := stats[table]
		if ts == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s size=%d", table, ts.Size))
		nexts := lo.Keys(ts.Selectivity)
		sort.Strings(nexts)
		for _, next := range nexts {
			sb.WriteString(fmt.Sprintf(" %s:%v", next, ts.Selectivity[next]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
