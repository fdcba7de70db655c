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

package parser

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinopt/pkg/feature"
)

func TestParser(t *testing.T) {
	stmts, err := Parse("SELECT 42")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(stmts))
	assert.Equal(t, int32(42), stmts[0].Stmt.GetSelectStmt().GetTargetList()[0].GetResTarget().GetVal().GetAConst().GetIval().Ival)
}

const threeWay = `SELECT c.name, COUNT(o.id)
FROM customers c
JOIN orders o ON c.id = o.customer_id
JOIN products p ON o.id = p.order_id
WHERE c.id IN (SELECT customer_id FROM orders WHERE total_amount > 100)
GROUP BY c.name
HAVING COUNT(o.id) > 1`

func TestExtractFeatures(t *testing.T) {
	feats, err := ExtractFeatures(threeWay)
	require.NoError(t, err)
	assert.Equal(t, 2, feats.Joins)
	assert.Equal(t, 1, feats.Subqueries)
	assert.Equal(t, 2, feats.Aggregations)
	assert.True(t, feats.GroupBy)
	assert.True(t, feats.Having)
	assert.False(t, feats.AnalyticalFn)
	assert.Equal(t, len(threeWay), feats.Length)

	feats, err = ExtractFeatures("  SELECT 1  ")
	require.NoError(t, err)
	assert.Equal(t, feature.Features{Length: 8}, feats)
}

func TestExtractAnalytical(t *testing.T) {
	feats, err := ExtractFeatures("SELECT id, RANK() OVER (ORDER BY total_amount DESC) FROM orders")
	require.NoError(t, err)
	assert.True(t, feats.AnalyticalFn)
	assert.Equal(t, 0, feats.Aggregations)

	feats, err = ExtractFeatures("SELECT customer_id, SUM(total_amount) OVER (PARTITION BY customer_id) FROM orders")
	require.NoError(t, err)
	assert.True(t, feats.AnalyticalFn)
	assert.Equal(t, 0, feats.Aggregations)
}

func TestExtractSubqueries(t *testing.T) {
	feats, err := ExtractFeatures(`SELECT * FROM customers c
WHERE EXISTS (SELECT 1 FROM orders o WHERE o.customer_id = c.id)`)
	require.NoError(t, err)
	assert.Equal(t, 1, feats.Subqueries)
	assert.Equal(t, 0, feats.Joins)

	feats, err = ExtractFeatures(`SELECT t.n FROM (SELECT COUNT(*) AS n FROM orders) t`)
	require.NoError(t, err)
	assert.Equal(t, 1, feats.Subqueries)
	assert.Equal(t, 1, feats.Aggregations)
}

func TestExtractor(t *testing.T) {
	ex := NewFeatureExtractor()
	rec, err := ex.Extract(threeWay)
	require.NoError(t, err)
	assert.Equal(t, float64(2), rec.Value(feature.FieldJoins))
	assert.Equal(t, float64(1), rec.Value(feature.FieldGroupBy))
	assert.Equal(t, float64(1), rec.Value(feature.FieldHaving))

	var _ feature.Extractor = ex
}

func TestInvalidQuery(t *testing.T) {
	for _, query := range []string{
		"",
		"   ",
		"SELEC * FROM",
		"SELECT * FROM WHERE",
		"-- only a comment",
	} {
		_, err := ExtractFeatures(query)
		require.Error(t, err, query)
		assert.True(t, errors.Is(err, feature.ErrInvalidQuery), query)

		_, err = Tables(query)
		assert.True(t, errors.Is(err, feature.ErrInvalidQuery), query)
	}
}

func TestTables(t *testing.T) {
	tables, err := Tables(threeWay)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "products"}, tables)

	tables, err = Tables("SELECT * FROM b, a, c WHERE a.x = b.x AND b.y = c.y")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, tables)

	tables, err = Tables(`WITH big AS (SELECT * FROM orders WHERE total_amount > 100)
SELECT * FROM big JOIN customers ON big.customer_id = customers.id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "customers"}, tables)

	tables, err = Tables(`SELECT * FROM sales.orders o
JOIN archive.orders a ON o.id = a.id
JOIN customers c ON o.customer_id = c.id
JOIN sales.orders again ON again.id = c.id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales.orders", "archive.orders", "customers"}, tables)

	tables, err = Tables(`WITH orders AS (SELECT 1 AS id)
SELECT * FROM orders JOIN sales.orders s ON orders.id = s.id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales.orders"}, tables)

	tables, err = Tables("SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestSchema(t *testing.T) {
	schs := []string{
		"create schema s1",
		"create schema if not exists s1",
	}

	for _, sch := range schs {
		stmts, err := Parse(sch)
		require.NoError(t, err)
		require.Equal(t, 1, len(stmts))
	}
}
