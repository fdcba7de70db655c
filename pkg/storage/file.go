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
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqReader "github.com/xitongsys/parquet-go/reader"

	"github.com/daviszhen/joinopt/pkg/plan"
	"github.com/daviszhen/joinopt/pkg/util"
)

// FileProvider counts the rows of <dir>/<table>.<format> data files.
// Csv files carry no header line.
type FileProvider struct {
	dir         string
	format      string
	comma       rune
	selectivity map[string]map[string]float64
}

func NewFileProvider(dir, format, delimiter string, selectivity map[string]map[string]float64) (*FileProvider, error) {
	if format != util.StatsSourceCsv && format != util.StatsSourceParquet {
		return nil, errors.Newf("unsupported data file format %q", format)
	}
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return nil, errors.Newf("data directory %q is invalid", dir)
	}
	comma := '|'
	if delimiter != "" {
		comma, _ = utf8.DecodeRuneInString(delimiter)
	}
	return &FileProvider{
		dir:         dir,
		format:      format,
		comma:       comma,
		selectivity: selectivity,
	}, nil
}

func (provider *FileProvider) path(table string) string {
	return filepath.Join(provider.dir, table+"."+provider.format)
}

func (provider *FileProvider) Statistics(ctx context.Context, tables []string) (plan.Statistics, error) {
	stats := make(plan.Statistics, len(tables))
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := util.Inject(util.FAULTS_SCOPE_STATS, util.FaultStatsLoad); err != nil {
			return nil, err
		}
		path := provider.path(table)
		if !util.FileIsValid(path) {
			return nil, errors.Wrapf(plan.ErrMissingStatistics, "no data file %s", path)
		}
		var cnt int64
		var err error
		switch provider.format {
		case util.StatsSourceCsv:
			cnt, err = countCsv(path, provider.comma)
		case util.StatsSourceParquet:
			cnt, err = countParquet(path)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "count rows of %s", path)
		}
		ts := plan.NewTableStats(cnt)
		attach(ts, table, provider.selectivity)
		stats[table] = ts
	}
	if err := stats.Validate(tables); err != nil {
		return nil, err
	}
	return stats, nil
}

func (provider *FileProvider) Tables() []string {
	matches, err := filepath.Glob(filepath.Join(provider.dir, "*."+provider.format))
	if err != nil {
		return nil
	}
	ret := make([]string, 0, len(matches))
	for _, match := range matches {
		ret = append(ret, strings.TrimSuffix(filepath.Base(match), "."+provider.format))
	}
	sort.Strings(ret)
	return ret
}

func (provider *FileProvider) Close() error {
	return nil
}

func countCsv(path string, comma rune) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	var cnt int64
	for {
		_, err = reader.Read()
		if err == io.EOF {
			return cnt, nil
		}
		if err != nil {
			return 0, err
		}
		cnt++
	}
}

func countParquet(path string) (int64, error) {
	file, err := pqLocal.NewLocalFileReader(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	reader, err := pqReader.NewParquetColumnReader(file, 1)
	if err != nil {
		return 0, err
	}
	defer reader.ReadStop()
	return reader.GetNumRows(), nil
}
