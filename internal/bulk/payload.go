package bulk

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"schemapanel/internal/schema"
	"schemapanel/internal/table"
)

var (
	ErrUnknownColumns = errors.New("columns not allowed for update")
	ErrNoIDColumn     = errors.New("the file has no id column")
	ErrNoValidIDs     = errors.New("no valid ids found in the file")
	ErrNoColumns      = errors.New("no columns to apply")
	ErrNoUser         = errors.New("user id is required")
)

// CreatePayload: тело bulk_create: строки позиционные и выровнены по Columns.
type CreatePayload struct {
	UserID  string     `json:"user_id"`
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
}

// UpdatePayload: тело bulk_update. Строки ключуются по колонкам, id есть всегда.
type UpdatePayload struct {
	UserID  string              `json:"user_id"`
	Columns []string            `json:"columns"`
	Data    []map[string]string `json:"data"`
}

// DeletePayload: тело bulk_delete.
type DeletePayload struct {
	UserID string `json:"user_id"`
	IDs    []int  `json:"ids"`
}

// BuildCreate выкидывает системные колонки и собирает позиционные строки.
func BuildCreate(t table.Table, userID string) (CreatePayload, error) {
	var cols []string
	var idx []int
	for i, c := range t.Columns {
		if schema.IsSystemField(c) {
			continue
		}
		cols = append(cols, c)
		idx = append(idx, i)
	}
	if len(cols) == 0 {
		return CreatePayload{}, ErrNoColumns
	}
	data := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		vals := make([]string, len(idx))
		for k, i := range idx {
			vals[k] = cellString(row, i)
		}
		data[r] = vals
	}
	return CreatePayload{UserID: userID, Columns: cols, Data: data}, nil
}

// updatableColumns: scopes.read без user_id и временных меток; id разрешён всегда.
func updatableColumns(s *schema.EntitySchema) map[string]bool {
	out := map[string]bool{"id": true}
	for _, f := range s.Scopes.Read {
		if schema.IsSystemField(f) {
			continue
		}
		out[f] = true
	}
	return out
}

// UpdateColumns проверяет колонки файла до разбора строк.
// Хотя бы одна лишняя колонка отклоняет весь файл.
func UpdateColumns(s *schema.EntitySchema, t table.Table) ([]string, error) {
	allowed := updatableColumns(s)
	var bad []string
	for _, c := range t.Columns {
		if !allowed[c] {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumns, strings.Join(bad, ", "))
	}
	return append([]string(nil), t.Columns...), nil
}

// ConfirmableColumns: колонки, которые пользователь выбирает для применения (без id).
func ConfirmableColumns(s *schema.EntitySchema, t table.Table) ([]string, error) {
	cols, err := UpdateColumns(s, t)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(cols, func(c string) bool { return c == "id" }), nil
}

// BuildUpdate собирает тело bulk_update из выбранных колонок; id добавляется первым.
func BuildUpdate(s *schema.EntitySchema, t table.Table, userID string, selected []string) (UpdatePayload, error) {
	if _, err := UpdateColumns(s, t); err != nil {
		return UpdatePayload{}, err
	}
	idIdx := t.Index("id")
	if idIdx < 0 {
		return UpdatePayload{}, ErrNoIDColumn
	}

	applied := []string{"id"}
	for _, c := range selected {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(applied, c) {
			continue
		}
		if !t.Has(c) {
			return UpdatePayload{}, fmt.Errorf("selected column %q is not in the file", c)
		}
		applied = append(applied, c)
	}
	if len(applied) == 1 {
		return UpdatePayload{}, ErrNoColumns
	}

	data := make([]map[string]string, len(t.Rows))
	for r, row := range t.Rows {
		if strings.TrimSpace(cellString(row, idIdx)) == "" {
			return UpdatePayload{}, &ParseError{Line: r + 2, Err: ErrNoIDColumn}
		}
		rec := make(map[string]string, len(applied))
		for _, c := range applied {
			rec[c] = cellString(row, t.Index(c))
		}
		data[r] = rec
	}
	return UpdatePayload{UserID: userID, Columns: applied, Data: data}, nil
}

// BuildDelete собирает целые id; неразборные молча пропускаются.
func BuildDelete(t table.Table, userID string) (DeletePayload, error) {
	if strings.TrimSpace(userID) == "" {
		return DeletePayload{}, ErrNoUser
	}
	idIdx := t.Index("id")
	if idIdx < 0 {
		return DeletePayload{}, ErrNoIDColumn
	}
	var ids []int
	for _, row := range t.Rows {
		id, err := strconv.Atoi(strings.TrimSpace(cellString(row, idIdx)))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return DeletePayload{}, ErrNoValidIDs
	}
	return DeletePayload{UserID: userID, IDs: ids}, nil
}
