// Package validate проверяет значения формы по правилам схемы и,
// если они прошли, по внешним проверкам качества.
package validate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schemapanel/internal/schema"
)

// Engine: движок валидации. Безопасен для конкурентного использования.
type Engine struct {
	quality QualityChecker
	clock   func() time.Time
	log     *zap.Logger
	limit   int
}

type Option func(*Engine)

// WithQualityChecker подключает внешний оценщик ai_quality_checks.
func WithQualityChecker(q QualityChecker) Option {
	return func(e *Engine) {
		if q != nil {
			e.quality = q
		}
	}
}

// WithClock подменяет "сейчас" для IS_AFTER_TODAY / IS_BEFORE_TODAY.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithConcurrency ограничивает число одновременных внешних проверок.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		quality: NopChecker{},
		clock:   time.Now,
		log:     zap.NewNop(),
		limit:   4,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.clock() }

func (e *Engine) today() time.Time {
	n := e.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

// ValidateSync прогоняет только встроенные правила.
// fields задаёт порядок и состав полей; пусто -> все поля с правилами.
func (e *Engine) ValidateSync(s *schema.EntitySchema, values map[string]string, fields ...string) Result {
	var res Result
	for _, f := range e.fieldOrder(s, fields) {
		res.Errors = append(res.Errors, e.ValidateField(f, values[f], s.ValidationRules[f])...)
	}
	return res
}

type qualityJob struct {
	field     string
	criterion string
}

// Validate: полная проверка перед отправкой.
// Внешние проверки поля запускаются, только если его встроенные правила прошли.
// Ошибка оценщика считается проваленной проверкой.
func (e *Engine) Validate(ctx context.Context, s *schema.EntitySchema, values map[string]string, fields ...string) Result {
	order := e.fieldOrder(s, fields)
	byField := make(map[string][]FieldError, len(order))
	var jobs []qualityJob
	for _, f := range order {
		errs := e.ValidateField(f, values[f], s.ValidationRules[f])
		byField[f] = errs
		if len(errs) > 0 {
			continue
		}
		for _, c := range s.QualityChecks[f] {
			jobs = append(jobs, qualityJob{field: f, criterion: c})
		}
	}

	results := e.runQuality(ctx, jobs, values)
	for i, j := range jobs {
		if results[i] != nil {
			byField[j.field] = append(byField[j.field], *results[i])
		}
	}

	var res Result
	for _, f := range order {
		res.Errors = append(res.Errors, byField[f]...)
	}
	return res
}

// runQuality выполняет проверки параллельно; результат i относится к jobs[i].
func (e *Engine) runQuality(ctx context.Context, jobs []qualityJob, values map[string]string) []*FieldError {
	out := make([]*FieldError, len(jobs))
	if len(jobs) == 0 {
		return out
	}
	var g errgroup.Group
	g.SetLimit(e.limit)
	for i, j := range jobs {
		g.Go(func() error {
			ok, err := e.quality.Check(ctx, j.field, values[j.field], j.criterion)
			switch {
			case err != nil:
				e.log.Warn("quality check failed",
					zap.String("field", j.field),
					zap.String("criterion", j.criterion),
					zap.Error(err))
				fe := ferr(ErrQualityCheckError, j.field, fmt.Sprintf("Error evaluating %s: %v", j.criterion, err))
				out[i] = &fe
			case !ok:
				fe := ferr(ErrQualityCheck, j.field, fmt.Sprintf("%s does not meet the criterion: %s", j.field, j.criterion))
				out[i] = &fe
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) fieldOrder(s *schema.EntitySchema, fields []string) []string {
	if len(fields) > 0 {
		return fields
	}
	seen := map[string]bool{}
	var out []string
	for f := range s.ValidationRules {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for f := range s.QualityChecks {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
