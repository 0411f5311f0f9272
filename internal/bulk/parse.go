package bulk

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"schemapanel/internal/table"
)

var (
	ErrEmptyFile = errors.New("the file appears to be empty or improperly formatted")
	ErrNoRows    = errors.New("no data found in the CSV file")
)

// ParseError: файл не разобрать. Line считается с 1, заголовок занимает строку 1.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
	}
	return "csv: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

const bom = '\uFEFF'

// Parse читает CSV с заголовком. Все ячейки остаются строками.
// Файл без заголовка или без строк данных отклоняется целиком.
func Parse(r io.Reader) (table.Table, error) {
	br := bufio.NewReader(r)
	if ch, _, err := br.ReadRune(); err == nil && ch != bom {
		_ = br.UnreadRune()
	}

	cr := csv.NewReader(br)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table.Table{}, ErrEmptyFile
	}
	if err != nil {
		return table.Table{}, wrapCSV(err)
	}
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return table.Table{}, &ParseError{Line: 1, Err: fmt.Errorf("column %d has no name", i+1)}
		}
		if seen[h] {
			return table.Table{}, &ParseError{Line: 1, Err: fmt.Errorf("duplicate column %q", h)}
		}
		seen[h] = true
		cols[i] = h
	}

	var rows []table.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table.Table{}, wrapCSV(err)
		}
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return table.Table{}, ErrNoRows
	}
	return table.New(cols, rows)
}

func wrapCSV(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

// cellString: ячейка строки как строка; за границей строки пусто.
func cellString(r table.Row, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return table.Stringify(r[i])
}
