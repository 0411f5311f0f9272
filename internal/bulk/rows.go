package bulk

import (
	"fmt"
	"strings"

	"schemapanel/internal/schema"
	"schemapanel/internal/table"
	"schemapanel/internal/validate"
)

// RowError: ошибки одной строки файла.
type RowError struct {
	Line   int                   `json:"line"`
	Errors []validate.FieldError `json:"errors"`
}

// RowsError отклоняет импорт до сетевого запроса.
type RowsError struct {
	Rows []RowError
}

func (e *RowsError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		msgs := make([]string, len(r.Errors))
		for i, fe := range r.Errors {
			msgs[i] = fe.Message
		}
		parts = append(parts, fmt.Sprintf("line %d: %s", r.Line, strings.Join(msgs, " ")))
	}
	return fmt.Sprintf("%d rows failed validation: %s", len(e.Rows), strings.Join(parts, "; "))
}

// ValidateRows прогоняет встроенные правила схемы по каждой строке.
// fields: проверяемые колонки; по умолчанию все несистемные колонки файла.
func ValidateRows(engine *validate.Engine, s *schema.EntitySchema, t table.Table, fields ...string) error {
	if len(fields) == 0 {
		for _, c := range t.Columns {
			if !schema.IsSystemField(c) {
				fields = append(fields, c)
			}
		}
	}
	var bad []RowError
	for r, row := range t.Rows {
		values := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			values[c] = cellString(row, i)
		}
		res := engine.ValidateSync(s, values, fields...)
		if !res.OK() {
			bad = append(bad, RowError{Line: r + 2, Errors: res.Errors})
		}
	}
	if len(bad) > 0 {
		return &RowsError{Rows: bad}
	}
	return nil
}
