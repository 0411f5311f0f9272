// Package bulk превращает CSV-файлы в пакетные запросы к бэкенду и обратно.
package bulk

import (
	"fmt"
	"io"
	"strings"
	"time"

	"schemapanel/internal/table"
)

// EscapeCell экранирует одну ячейку: кавычки удваиваются, а в кавычки
// значение берётся, только если в нём есть запятая, кавычка, \r или \n.
func EscapeCell(v any) string {
	s := table.Stringify(v)
	s = strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(s, ",\"\r\n") {
		s = `"` + s + `"`
	}
	return s
}

// Export пишет заголовок и строки; строки разделены "\n", без завершающего перевода.
func Export(w io.Writer, t table.Table) error {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, joinCells(stringsToAny(t.Columns)))
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return &table.WidthError{Row: i, Got: len(r), Want: len(t.Columns)}
		}
		lines = append(lines, joinCells(r))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func joinCells(cells []any) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = EscapeCell(c)
	}
	// пустая строка файла при чтении пропускается, поэтому единственную пустую ячейку пишем как ""
	if len(parts) == 1 && parts[0] == "" {
		return `""`
	}
	return strings.Join(parts, ",")
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ExportFilename добавляет к имени метку времени генерации: base_YYYYMMDD_HHMMSS.csv.
func ExportFilename(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, now.Format("20060102_150405"))
}
