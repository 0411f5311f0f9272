// Package form ведёт состояние модального окна создания или редактирования:
// значения, динамические опции, живую валидацию и отправку.
package form

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"schemapanel/internal/client"
	"schemapanel/internal/cond"
	"schemapanel/internal/schema"
	"schemapanel/internal/validate"
)

var (
	ErrSubmitInProgress = errors.New("submit already in progress")
	ErrUnknownField     = errors.New("unknown field")
	ErrReadOnly         = errors.New("field is read-only")
	ErrNotMulti         = errors.New("field is not a multi-select")
	ErrNoUser           = errors.New("user id not found")
	ErrNoRecord         = errors.New("edit form without record id")
	ErrClosed           = errors.New("form was closed before the response arrived")
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Validator: то, что форме нужно от движка валидации.
type Validator interface {
	ValidateField(field, value string, rules []string) []validate.FieldError
	Validate(ctx context.Context, s *schema.EntitySchema, values map[string]string, fields ...string) validate.Result
}

// Backend: запись в бэкенд.
type Backend interface {
	Create(ctx context.Context, entity string, fields map[string]string, userID string) (client.Response, error)
	Update(ctx context.Context, entity, id string, fields map[string]string, userID string) (client.Response, error)
}

// FieldState: всё, что нужно для отрисовки одного поля.
type FieldState struct {
	Key      string                `json:"key"`
	Value    string                `json:"value"`
	Kind     schema.FieldKind      `json:"kind"`
	Options  []string              `json:"options,omitempty"`
	Selected []string              `json:"selected,omitempty"`
	Dynamic  bool                  `json:"dynamic,omitempty"`
	Editable bool                  `json:"editable"`
	Errors   []validate.FieldError `json:"errors,omitempty"`
}

// Controller: одна открытая форма. Отправки строго последовательны:
// пока запрос в пути, повторный Submit возвращает ErrSubmitInProgress.
type Controller struct {
	schema    *schema.EntitySchema
	mode      Mode
	recordID  string
	validator Validator
	backend   Backend
	ev        *cond.Evaluator
	log       *zap.Logger
	gens      *client.Generations
	key       string

	mu      sync.Mutex
	values  map[string]string
	errors  map[string][]validate.FieldError
	dynamic map[string][]string

	submitting atomic.Bool
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithEvaluator(ev *cond.Evaluator) Option {
	return func(c *Controller) {
		if ev != nil {
			c.ev = ev
		}
	}
}

// WithRecord заполняет форму редактирования значениями записи.
func WithRecord(id string, values map[string]string) Option {
	return func(c *Controller) {
		c.recordID = id
		for k, v := range values {
			c.values[k] = v
		}
	}
}

// New открывает форму.
func New(s *schema.EntitySchema, mode Mode, v Validator, b Backend, opts ...Option) *Controller {
	c := &Controller{
		schema:    s,
		mode:      mode,
		validator: v,
		backend:   b,
		log:       zap.NewNop(),
		gens:      client.NewGenerations(),
		key:       s.Name + "/" + mode.String(),
		values:    make(map[string]string),
		errors:    make(map[string][]validate.FieldError),
	}
	for _, o := range opts {
		o(c)
	}
	if c.ev == nil {
		c.ev = cond.NewEvaluator(c.log)
	}
	c.gens.Next(c.key)
	c.dynamic = s.DynamicOptions(c.ev, c.values)
	return c
}

// fields перечисляет, что показывает форма: при создании create-поля, при редактировании
// всё из read без системных полей.
func (c *Controller) fields() []string {
	if c.mode == ModeCreate {
		return c.schema.CreateFields()
	}
	out := make([]string, 0, len(c.schema.Scopes.Read))
	for _, f := range c.schema.Scopes.Read {
		if !schema.IsSystemField(f) {
			out = append(out, f)
		}
	}
	return out
}

// payloadFields: что уходит на бэкенд.
func (c *Controller) payloadFields() []string {
	if c.mode == ModeCreate {
		return c.schema.CreateFields()
	}
	return c.schema.UpdateFields()
}

func (c *Controller) editable(field string) bool {
	return slices.Contains(c.payloadFields(), field)
}

func (c *Controller) stateLocked(field string) FieldState {
	opts := c.schema.ResolveOptions(field, c.dynamic)
	st := FieldState{
		Key:      field,
		Value:    c.values[field],
		Kind:     opts.Kind,
		Options:  opts.Options,
		Dynamic:  opts.Dynamic,
		Editable: c.editable(field),
		Errors:   c.errors[field],
	}
	if opts.Kind == schema.KindMulti {
		st.Selected = schema.SplitMulti(st.Value)
	}
	return st
}

// Fields возвращает состояние всех полей формы в порядке схемы.
func (c *Controller) Fields() []FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields := c.fields()
	out := make([]FieldState, len(fields))
	for i, f := range fields {
		out[i] = c.stateLocked(f)
	}
	return out
}

// Values: копия текущих значений.
func (c *Controller) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *Controller) checkField(field string) error {
	if !slices.Contains(c.fields(), field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if !c.editable(field) {
		return fmt.Errorf("%w: %q", ErrReadOnly, field)
	}
	return nil
}

// Set меняет значение, пересчитывает динамические опции и сразу проверяет поле.
func (c *Controller) Set(field, value string) (FieldState, error) {
	if err := c.checkField(field); err != nil {
		return FieldState{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(field, value)
	return c.stateLocked(field), nil
}

func (c *Controller) setLocked(field, value string) {
	c.values[field] = value
	c.dynamic = c.schema.DynamicOptions(c.ev, c.values)
	if rules, ok := c.schema.ValidationRules[field]; ok {
		if errs := c.validator.ValidateField(field, value, rules); len(errs) > 0 {
			c.errors[field] = errs
		} else {
			delete(c.errors, field)
		}
	}
}

// ToggleMulti включает или выключает вариант OR-поля.
func (c *Controller) ToggleMulti(field, option string) (FieldState, error) {
	if err := c.checkField(field); err != nil {
		return FieldState{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := c.schema.ResolveOptions(field, c.dynamic)
	if opts.Kind != schema.KindMulti {
		return FieldState{}, fmt.Errorf("%w: %q", ErrNotMulti, field)
	}
	if !slices.Contains(opts.Options, option) {
		return FieldState{}, fmt.Errorf("%q is not an option of %q", option, field)
	}
	cur := schema.SplitMulti(c.values[field])
	if i := slices.Index(cur, option); i >= 0 {
		cur = slices.Delete(cur, i, i+1)
	} else {
		cur = append(cur, option)
	}
	c.setLocked(field, schema.JoinMulti(cur))
	return c.stateLocked(field), nil
}

// Close делает незавершённую отправку неактуальной: её ответ не применится к форме.
func (c *Controller) Close() {
	c.gens.Forget(c.key)
}

// Submit проверяет форму целиком (правила и внешние проверки) и отправляет её.
// Системные поля в тело не попадают, user_id добавляет клиент бэкенда.
func (c *Controller) Submit(ctx context.Context, userID string) (client.Response, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer c.submitting.Store(false)

	if userID == "" {
		return nil, ErrNoUser
	}
	if c.mode == ModeEdit && c.recordID == "" {
		return nil, ErrNoRecord
	}
	tok := c.gens.Next(c.key)

	fields := c.payloadFields()
	values := c.Values()

	res := c.validator.Validate(ctx, c.schema, values, fields...)
	c.mu.Lock()
	c.errors = res.ByField()
	c.mu.Unlock()
	if err := res.Err(); err != nil {
		return nil, err
	}

	payload := make(map[string]string, len(fields))
	for _, f := range fields {
		payload[f] = values[f]
	}

	var (
		resp client.Response
		err  error
	)
	if c.mode == ModeCreate {
		resp, err = c.backend.Create(ctx, c.schema.Name, payload, userID)
	} else {
		resp, err = c.backend.Update(ctx, c.schema.Name, c.recordID, payload, userID)
	}
	if !c.gens.Current(c.key, tok) {
		c.log.Debug("form response discarded", zap.String("entity", c.schema.Name), zap.Stringer("mode", c.mode))
		return resp, ErrClosed
	}
	if err != nil {
		c.log.Warn("form submit failed", zap.String("entity", c.schema.Name), zap.Stringer("mode", c.mode), zap.Error(err))
		return nil, err
	}
	return resp, nil
}
