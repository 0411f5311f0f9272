package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"schemapanel/internal/table"
)

func orders(t *testing.T) table.Table {
	t.Helper()
	tb, err := table.New([]string{"id", "name", "amount", "created_at"}, []table.Row{
		{1, "Xavier", "15", "2024-03-01"},
		{2, "alex", "5", "2024-01-10"},
		{3, "Maxine", 30, "2024-02-20"},
		{4, "Bob", "10", nil},
		{5, "roxy", "12.5", "2024-03-01"},
		{6, "Ann", "abc", "2023-12-31"},
	})
	require.NoError(t, err)
	return tb
}

func ids(tb table.Table) []any {
	out := make([]any, len(tb.Rows))
	for i, r := range tb.Rows {
		out[i] = r[0]
	}
	return out
}

func mustApply(t *testing.T, tb table.Table, expr string) table.Table {
	t.Helper()
	q, err := Parse(expr)
	require.NoError(t, err, expr)
	return q.Apply(tb)
}

func TestParse(t *testing.T) {
	q, err := Parse("amount >= '10' and name CONTAINS x ORDER BY created_at desc")
	require.NoError(t, err)
	assert.Equal(t, []Condition{
		{Column: "amount", Op: OpGe, Value: "10"},
		{Column: "name", Op: OpContains, Value: "x"},
	}, q.Conditions)
	require.NotNil(t, q.Order)
	assert.Equal(t, Order{Column: "created_at", Desc: true}, *q.Order)
	assert.Equal(t, "amount >= '10' AND name CONTAINS 'x' ORDER BY created_at DESC", q.String())
}

func TestParse_OrderByOnly(t *testing.T) {
	q, err := Parse("ORDER BY amount ASC")
	require.NoError(t, err)
	assert.Empty(t, q.Conditions)
	assert.False(t, q.Order.Desc)
}

func TestParse_QuotedValueKeepsSpacesAndAND(t *testing.T) {
	q, err := Parse("name == 'Tom AND Jerry'")
	require.NoError(t, err)
	require.Len(t, q.Conditions, 1)
	assert.Equal(t, "Tom AND Jerry", q.Conditions[0].Value)
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{
		"name",
		"name = 'x'",
		"name == 'x",
		"name == 'x' OR id == '1'",
		"name ==",
		"== 'x'",
	} {
		_, err := Parse(expr)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, expr)
	}
}

func TestApply_SubsequenceOfInput(t *testing.T) {
	tb := orders(t)
	got := mustApply(t, tb, "name CONTAINS 'x'")
	assert.Equal(t, []any{1, 2, 3, 5}, ids(got))
	assert.Equal(t, tb.Columns, got.Columns)
}

func TestApply_UnparseableReturnsInput(t *testing.T) {
	tb := orders(t)
	got := Apply(tb, "name ~~ x", zaptest.NewLogger(t))
	assert.Equal(t, tb, got)

	rows := tb.Data()
	assert.Equal(t, rows, FilterAndSortRows(rows, tb.Columns, "garbage ((("))
}

func TestApply_EmptyExpressionKeepsAll(t *testing.T) {
	tb := orders(t)
	assert.Equal(t, ids(tb), ids(mustApply(t, tb, "   ")))
}

func TestApply_ConjunctionOfSingleFilters(t *testing.T) {
	tb := orders(t)
	both := mustApply(t, tb, "amount > '10' AND name CONTAINS 'x'")
	chained := mustApply(t, mustApply(t, tb, "amount > '10'"), "name CONTAINS 'x'")
	swapped := mustApply(t, tb, "name CONTAINS 'x' AND amount > '10'")

	assert.Equal(t, []any{1, 3, 5}, ids(both))
	assert.Equal(t, ids(both), ids(chained))
	assert.Equal(t, ids(both), ids(swapped))
}

func TestApply_UnknownColumnExcludesRows(t *testing.T) {
	tb := orders(t)
	assert.Empty(t, mustApply(t, tb, "ghost == '1'").Rows)
	assert.Empty(t, mustApply(t, tb, "name CONTAINS 'a' AND ghost CONTAINS ''").Rows)
}

func TestApply_Operators(t *testing.T) {
	tb := orders(t)
	cases := []struct {
		expr string
		want []any
	}{
		{"name STARTS_WITH 'RO'", []any{5}},
		{"name == 'alex'", []any{2}},
		{"name == 'Alex'", []any{}},
		{"amount < '10'", []any{2}},
		{"amount <= '10'", []any{2, 4}},
		{"amount >= '30'", []any{3}},
		{"created_at > '2024-02-01'", []any{1, 3, 5}},
		{"created_at <= '2024-01-10'", []any{2, 6}},
		{"created_at < 'someday'", []any{}},
	}
	for _, c := range cases {
		got := ids(mustApply(t, tb, c.expr))
		assert.Equal(t, c.want, got, c.expr)
	}
}

func TestApply_OrderByDescNonIncreasingAndStable(t *testing.T) {
	tb := orders(t)
	got := mustApply(t, tb, "amount > '0' ORDER BY created_at DESC")
	// 1 и 5 с одинаковой датой сохраняют исходный порядок, nil уходит в конец
	assert.Equal(t, []any{1, 5, 3, 2, 4}, ids(got))

	i := got.Index("created_at")
	for k := 1; k < len(got.Rows); k++ {
		assert.GreaterOrEqual(t, Compare(got.Rows[k-1][i], got.Rows[k][i]), 0)
	}
}

func TestApply_OrderByAscNilFirst(t *testing.T) {
	tb := orders(t)
	got := mustApply(t, tb, "ORDER BY created_at ASC")
	assert.Equal(t, []any{4, 6, 2, 3, 1, 5}, ids(got))
}

func TestApply_OrderByNumericNotLexical(t *testing.T) {
	tb := orders(t)
	got := mustApply(t, tb, "amount STARTS_WITH '' ORDER BY amount ASC")
	assert.Equal(t, []any{2, 4, 5, 1, 3, 6}, ids(got))
}

func TestApply_OrderByUnknownColumnKeepsOrder(t *testing.T) {
	tb := orders(t)
	assert.Equal(t, ids(tb), ids(mustApply(t, tb, "ORDER BY ghost DESC")))
}
