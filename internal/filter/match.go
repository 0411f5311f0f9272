package filter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"schemapanel/internal/table"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Match проверяет все условия (AND). Неизвестная колонка исключает строку.
func (q *Query) Match(t table.Table, row table.Row) bool {
	for _, c := range q.Conditions {
		i := t.Index(c.Column)
		if i < 0 || i >= len(row) {
			return false
		}
		if !c.eval(row[i]) {
			return false
		}
	}
	return true
}

func (c Condition) eval(cell any) bool {
	s := table.Stringify(cell)
	switch c.Op {
	case OpContains:
		return strings.Contains(asciiLower(s), asciiLower(c.Value))
	case OpStartsWith:
		return strings.HasPrefix(asciiLower(s), asciiLower(c.Value))
	case OpEq:
		return s == c.Value
	}

	var rel int
	if want, ok := parseNumber(c.Value); ok {
		got, ok := cellNumber(cell)
		if !ok {
			return false
		}
		rel = cmpFloat(got, want)
	} else {
		want, ok := parseDate(c.Value)
		if !ok {
			return false
		}
		got, ok := parseDate(s)
		if !ok {
			return false
		}
		rel = got.Compare(want)
	}

	switch c.Op {
	case OpGt:
		return rel > 0
	case OpLt:
		return rel < 0
	case OpGe:
		return rel >= 0
	case OpLe:
		return rel <= 0
	}
	return false
}

// Compare: общий компаратор для сортировки: nil меньше всего,
// затем числа, затем даты, иначе строки.
func Compare(a, b any) int {
	na, nb := a == nil, b == nil
	switch {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	}
	if fa, ok := cellNumber(a); ok {
		if fb, ok := cellNumber(b); ok {
			return cmpFloat(fa, fb)
		}
	}
	sa, sb := table.Stringify(a), table.Stringify(b)
	if da, ok := parseDate(sa); ok {
		if db, ok := parseDate(sb); ok {
			return da.Compare(db)
		}
	}
	return strings.Compare(sa, sb)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func cellNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case string:
		return parseNumber(x)
	}
	return parseNumber(table.Stringify(v))
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
