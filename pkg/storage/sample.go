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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/daviszhen/joinopt/pkg/util"
)

type sampleTable struct {
	name string
	ddl  string
	rows [][]any
}

var sampleTables = []sampleTable{
	{
		name: "customers",
		ddl: `CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	country TEXT
)`,
		rows: [][]any{
			{1, "Alice Johnson", "alice@example.com", "USA"},
			{2, "Bob Smith", "bob@example.com", "UK"},
			{3, "Charlie Brown", "charlie@example.com", "USA"},
			{4, "Diana Prince", "diana@example.com", "Canada"},
			{5, "Eve Wilson", "eve@example.com", "Australia"},
		},
	},
	{
		name: "orders",
		ddl: `CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER NOT NULL,
	order_date TEXT,
	total_amount REAL,
	FOREIGN KEY (customer_id) REFERENCES customers(id)
)`,
		rows: [][]any{
			{1, 1, "2024-01-15", 150.00},
			{2, 1, "2024-02-20", 200.00},
			{3, 2, "2024-01-25", 75.50},
			{4, 3, "2024-02-10", 300.00},
			{5, 3, "2024-03-05", 125.00},
		},
	},
	{
		name: "products",
		ddl: `CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	order_id INTEGER NOT NULL,
	product_name TEXT,
	price REAL,
	quantity INTEGER,
	FOREIGN KEY (order_id) REFERENCES orders(id)
)`,
		rows: [][]any{
			{1, 1, "Laptop", 800.00, 1},
			{2, 1, "Mouse", 25.00, 2},
			{3, 2, "Keyboard", 100.00, 1},
			{4, 3, "Monitor", 300.00, 1},
			{5, 4, "Headphones", 120.00, 2},
			{6, 5, "USB Cable", 15.00, 5},
		},
	},
}

// SampleTableNames returns the tables created by SetupSample.
func SampleTableNames() []string {
	ret := make([]string, len(sampleTables))
	for i, table := range sampleTables {
		ret[i] = table.name
	}
	return ret
}

// SetupSample creates and fills the customers, orders and products
// tables of a sqlite database. Existing tables are dropped first.
func SetupSample(ctx context.Context, db *sql.DB) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()
	//drop in reverse order of the foreign keys
	for i := len(sampleTables) - 1; i >= 0; i-- {
		if _, err = txn.ExecContext(ctx, "DROP TABLE IF EXISTS "+sampleTables[i].name); err != nil {
			return errors.Wrapf(err, "drop %s", sampleTables[i].name)
		}
	}
	for _, table := range sampleTables {
		if _, err = txn.ExecContext(ctx, table.ddl); err != nil {
			return errors.Wrapf(err, "create %s", table.name)
		}
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
			table.name, placeholders(len(table.rows[0])))
		for _, row := range table.rows {
			if _, err = txn.ExecContext(ctx, insert, row...); err != nil {
				return errors.Wrapf(err, "insert into %s", table.name)
			}
		}
		util.Info("sample table created",
			zap.String("table", table.name),
			zap.Int("rows", len(table.rows)))
	}
	err = txn.Commit()
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
