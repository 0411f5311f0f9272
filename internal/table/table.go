// Package table связывает позиционные строки с их списком колонок,
// чтобы индекс ячейки нельзя было перепутать при проекции или сортировке.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row: значения в порядке колонок таблицы.
type Row []any

// Table: набор строк вместе с колонками, которым они соответствуют.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"data"`
}

// WidthError: строка не совпадает по ширине со списком колонок.
type WidthError struct {
	Row  int
	Got  int
	Want int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("row %d has %d cells, want %d", e.Row, e.Got, e.Want)
}

// New проверяет ширину каждой строки.
func New(columns []string, rows []Row) (Table, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return Table{}, &WidthError{Row: i, Got: len(r), Want: len(columns)}
		}
	}
	return Table{Columns: columns, Rows: rows}, nil
}

// FromData принимает ответ бэкенда вида { columns, data }.
func FromData(columns []string, data [][]any) (Table, error) {
	rows := make([]Row, len(data))
	for i, d := range data {
		rows[i] = Row(d)
	}
	return New(columns, rows)
}

// Index возвращает позицию колонки или -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has сообщает, есть ли колонка.
func (t Table) Has(col string) bool { return t.Index(col) >= 0 }

// Len: число строк.
func (t Table) Len() int { return len(t.Rows) }

// Cell достаёт значение по имени колонки.
func (t Table) Cell(row int, col string) (any, bool) {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[row][i], true
}

// WithRows возвращает таблицу с теми же колонками и другим набором строк.
func (t Table) WithRows(rows []Row) Table {
	return Table{Columns: t.Columns, Rows: rows}
}

// Project оставляет только указанные колонки в указанном порядке.
func (t Table) Project(cols []string) (Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return Table{}, fmt.Errorf("unknown column %q", c)
		}
	}
	rows := make([]Row, len(t.Rows))
	for r, src := range t.Rows {
		dst := make(Row, len(idx))
		for i, j := range idx {
			dst[i] = src[j]
		}
		rows[r] = dst
	}
	return Table{Columns: append([]string(nil), cols...), Rows: rows}, nil
}

// Records превращает строки в объекты "колонка -> значение".
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out[r] = rec
	}
	return out
}

// Data возвращает строки в виде [][]any для отправки по сети.
func (t Table) Data() [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = []any(r)
	}
	return out
}

// FromRecords собирает таблицу из объектов; отсутствующие ключи дают nil.
func FromRecords(cols []string, recs []map[string]any) Table {
	rows := make([]Row, len(recs))
	for r, rec := range recs {
		row := make(Row, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		rows[r] = row
	}
	return Table{Columns: append([]string(nil), cols...), Rows: rows}
}

// Stringify приводит значение ячейки к строке: nil -> "", объекты -> JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strings.TrimSuffix(strconv.FormatFloat(f, 'f', -1, 64), ".0")
}
