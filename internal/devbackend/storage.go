// Package devbackend: in-memory реализация REST-контракта бэкенда
// для локальной разработки и сквозных тестов. Данные живут только в памяти процесса.
package devbackend

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"schemapanel/internal/config"
	"schemapanel/internal/schema"
	"schemapanel/internal/table"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownColumn  = errors.New("unknown column")
)

// Record: строка сущности. Пользовательские поля хранятся строками, как их присылает панель.
type Record struct {
	ID        int64
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      map[string]string
}

// Operation: запись журнала изменений сущности.
type Operation struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Type    string    `json:"operation_type"`
	Details any       `json:"operation_details"`
	At      time.Time `json:"created_at"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Type     string `json:"type"`
	password string
}

type Storage struct {
	mu      sync.RWMutex
	reg     *schema.Registry
	data    map[string]map[int64]*Record // сущность -> id -> запись
	nextID  map[string]int64
	logs    map[string][]Operation
	users   []User
	entropy io.Reader
	clock   atomic.Value // func() time.Time
}

// NewStorage заводит пустые таблицы под все схемы реестра и сидирует пользователей.
func NewStorage(reg *schema.Registry, users []config.DevUser) *Storage {
	s := &Storage{
		reg:     reg,
		data:    make(map[string]map[int64]*Record),
		nextID:  make(map[string]int64),
		logs:    make(map[string][]Operation),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	s.SetClock(func() time.Time { return time.Now().UTC() })
	for _, name := range reg.Names() {
		s.data[name] = make(map[int64]*Record)
	}
	for i, u := range users {
		s.users = append(s.users, User{ID: int64(i + 1), Username: u.Username, Type: u.Type, password: u.Password})
	}
	return s
}

// SetClock подменяет источник времени для created_at, updated_at и окон bulk_read.
func (s *Storage) SetClock(now func() time.Time) { s.clock.Store(now) }

func (s *Storage) now() time.Time { return s.clock.Load().(func() time.Time)() }

func (s *Storage) opID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// entity находит схему и каноническое имя таблицы.
func (s *Storage) entity(name string) (*schema.EntitySchema, error) {
	e, err := s.reg.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	return e, nil
}

// dataFields собирает пользовательские колонки таблицы из read, create и update без системных.
func dataFields(e *schema.EntitySchema) []string {
	var out []string
	for _, f := range slices.Concat(e.Scopes.Read, e.Scopes.CreateFields, e.Scopes.Update) {
		if !schema.IsSystemField(f) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// Columns: полный список колонок таблицы, id первым.
func Columns(e *schema.EntitySchema) []string {
	cols := []string{"id"}
	cols = append(cols, dataFields(e)...)
	return append(cols, "user_id", "created_at", "updated_at")
}

func (r *Record) row(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		switch c {
		case "id":
			row[i] = r.ID
		case "user_id":
			row[i] = r.UserID
		case "created_at":
			row[i] = r.CreatedAt.Format(time.RFC3339)
		case "updated_at":
			row[i] = r.UpdatedAt.Format(time.RFC3339)
		default:
			if v, ok := r.Data[c]; ok {
				row[i] = v
			}
		}
	}
	return row
}

// Table: снимок таблицы в порядке id. since отсекает записи, созданные раньше.
func (s *Storage) Table(entity string, since time.Time) (table.Table, error) {
	e, err := s.entity(entity)
	if err != nil {
		return table.Table{}, err
	}
	cols := Columns(e)

	s.mu.RLock()
	recs := make([]*Record, 0, len(s.data[e.Name]))
	for _, r := range s.data[e.Name] {
		if !r.CreatedAt.Before(since) {
			recs = append(recs, r)
		}
	}
	rows := make([]table.Row, 0, len(recs))
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	for _, r := range recs {
		rows = append(rows, r.row(cols))
	}
	s.mu.RUnlock()

	return table.New(cols, rows)
}

func (s *Storage) logLocked(entity, userID, op string, details any) {
	s.logs[entity] = append(s.logs[entity], Operation{
		ID:      s.opID(),
		UserID:  userID,
		Type:    op,
		Details: details,
		At:      s.now(),
	})
}

// Logs: журнал операций сущности.
func (s *Storage) Logs(entity string) ([]Operation, error) {
	e, err := s.entity(entity)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Operation(nil), s.logs[e.Name]...), nil
}

func pick(fields []string, in map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := in[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (s *Storage) insertLocked(e *schema.EntitySchema, data map[string]string, userID string) *Record {
	s.nextID[e.Name]++
	now := s.now()
	rec := &Record{
		ID:        s.nextID[e.Name],
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
	}
	s.data[e.Name][rec.ID] = rec
	return rec
}

// Create добавляет запись; поля вне create-проекции игнорируются.
func (s *Storage) Create(entity string, fields map[string]string, userID string) (int64, error) {
	e, err := s.entity(entity)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.insertLocked(e, pick(e.CreateFields(), fields), userID)
	s.logLocked(e.Name, userID, "CREATE", fields)
	return rec.ID, nil
}

// Update меняет только поля из scopes.update.
func (s *Storage) Update(entity string, id int64, fields map[string]string, userID string) error {
	e, err := s.entity(entity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.data[e.Name][id]
	if rec == nil {
		return fmt.Errorf("%w: %s/%d", ErrRecordNotFound, e.Name, id)
	}
	old := make(map[string]string, len(rec.Data))
	for k, v := range rec.Data {
		old[k] = v
	}
	for k, v := range pick(e.UpdateFields(), fields) {
		rec.Data[k] = v
	}
	rec.UpdatedAt = s.now()
	s.logLocked(e.Name, userID, "UPDATE", map[string]any{"old": old, "new": fields})
	return nil
}

// Delete удаляет запись.
func (s *Storage) Delete(entity string, id int64, userID string) error {
	e, err := s.entity(entity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.data[e.Name][id]
	if rec == nil {
		return fmt.Errorf("%w: %s/%d", ErrRecordNotFound, e.Name, id)
	}
	delete(s.data[e.Name], id)
	s.logLocked(e.Name, userID, "DELETE", map[string]any{"deleted_row": rec.Data})
	return nil
}

// BulkCreate вставляет позиционные строки; неизвестная колонка отклоняет весь пакет.
func (s *Storage) BulkCreate(entity string, columns []string, data [][]string, userID string) (int, error) {
	e, err := s.entity(entity)
	if err != nil {
		return 0, err
	}
	allowed := dataFields(e)
	for _, c := range columns {
		if !slices.Contains(allowed, c) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	for i, row := range data {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range data {
		rec := make(map[string]string, len(columns))
		for i, c := range columns {
			rec[c] = row[i]
		}
		s.insertLocked(e, rec, userID)
	}
	s.logLocked(e.Name, userID, "BULK_CREATE", map[string]any{"columns": columns, "rows": len(data)})
	return len(data), nil
}

// BulkUpdate применяет строки, ключованные по колонкам; каждая обязана нести существующий id.
// Проверка идёт до записи, поэтому пакет применяется целиком или никак.
func (s *Storage) BulkUpdate(entity string, columns []string, rows []map[string]string, userID string) (int, error) {
	e, err := s.entity(entity)
	if err != nil {
		return 0, err
	}
	allowed := dataFields(e)
	for _, c := range columns {
		if c != "id" && !slices.Contains(allowed, c) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	targets := make([]*Record, len(rows))
	for i, r := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(r["id"]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: invalid id %q", i, r["id"])
		}
		rec := s.data[e.Name][id]
		if rec == nil {
			return 0, fmt.Errorf("row %d: %w: %d", i, ErrRecordNotFound, id)
		}
		targets[i] = rec
	}
	now := s.now()
	for i, rec := range targets {
		for _, c := range columns {
			if c == "id" {
				continue
			}
			if v, ok := rows[i][c]; ok {
				rec.Data[c] = v
			}
		}
		rec.UpdatedAt = now
	}
	s.logLocked(e.Name, userID, "BULK_UPDATE", map[string]any{"columns": columns, "rows": len(rows)})
	return len(rows), nil
}

// BulkDelete удаляет найденные id и возвращает их число.
func (s *Storage) BulkDelete(entity string, ids []int64, userID string) (int, error) {
	e, err := s.entity(entity)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.data[e.Name][id]; ok {
			delete(s.data[e.Name], id)
			n++
		}
	}
	s.logLocked(e.Name, userID, "BULK_DELETE", map[string]any{"ids": ids, "deleted": n})
	return n, nil
}

// Authenticate сверяет логин и пароль с сидированными пользователями.
func (s *Storage) Authenticate(username, password string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.password == password {
			return u, true
		}
	}
	return User{}, false
}
