package filter

import (
	"sort"

	"go.uber.org/zap"

	"schemapanel/internal/table"
)

// Apply оставляет подходящие строки (порядок сохраняется) и сортирует их стабильно.
// Сортировка по неизвестной колонке не выполняется.
func (q *Query) Apply(t table.Table) table.Table {
	rows := make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if q.Match(t, r) {
			rows = append(rows, r)
		}
	}
	if q.Order != nil {
		if i := t.Index(q.Order.Column); i >= 0 {
			desc := q.Order.Desc
			key := func(r table.Row) any {
				if i < len(r) {
					return r[i]
				}
				return nil
			}
			sort.SliceStable(rows, func(a, b int) bool {
				rel := Compare(key(rows[a]), key(rows[b]))
				if desc {
					rel = -rel
				}
				return rel < 0
			})
		}
	}
	return t.WithRows(rows)
}

// Apply разбирает выражение и применяет его.
// Неразборное выражение означает "без фильтра": таблица возвращается как есть.
func Apply(t table.Table, expr string, log *zap.Logger) table.Table {
	q, err := Parse(expr)
	if err != nil {
		if log != nil {
			log.Debug("filter expression ignored", zap.String("expr", expr), zap.Error(err))
		}
		return t
	}
	return q.Apply(t)
}

// FilterAndSortRows: то же для сырых строк с отдельным списком колонок.
func FilterAndSortRows(rows [][]any, columns []string, expr string) [][]any {
	t := table.Table{Columns: columns, Rows: make([]table.Row, len(rows))}
	for i, r := range rows {
		t.Rows[i] = r
	}
	return Apply(t, expr, nil).Data()
}
