// Package schema хранит декларативные описания сущностей, из которых строятся
// таблицы, формы создания/редактирования и массовые операции.
package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// ErrSchemaNotFound: у сущности нет зарегистрированной схемы.
// Для UI это не фатально: показываем заглушку "загрузка".
var ErrSchemaNotFound = errors.New("schema not found")

// Registry: набор схем, загружаемый один раз при старте.
// Сеттеров нет, схемы копируются на входе и на выходе, поэтому
// конкурентное чтение безопасно без блокировок.
type Registry struct {
	entities map[string]*EntitySchema
	names    []string
}

// NewRegistry проверяет схемы линтером и замораживает их копии:
// последующие изменения переданных значений на реестр не влияют.
func NewRegistry(entities ...*EntitySchema) (*Registry, error) {
	r := &Registry{entities: make(map[string]*EntitySchema, len(entities))}
	frozen := make([]*EntitySchema, 0, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		e = e.Clone()
		frozen = append(frozen, e)
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.New("schema without name")
		}
		key := strings.ToLower(name)
		if _, dup := r.entities[key]; dup {
			return nil, fmt.Errorf("duplicate schema %q", name)
		}
		r.entities[key] = e
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	if issues := Lint(frozen...); len(issues) > 0 {
		return nil, &LintError{Issues: issues}
	}
	return r, nil
}

// Get возвращает копию схемы по имени (без учёта регистра).
func (r *Registry) Get(name string) (*EntitySchema, error) {
	if r != nil {
		if e, ok := r.entities[strings.ToLower(strings.TrimSpace(name))]; ok {
			return e.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
}

// Names: имена зарегистрированных сущностей в отсортированном порядке.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len: число схем.
func (r *Registry) Len() int { return len(r.entities) }

// Clone делает глубокую копию схемы.
func (e *EntitySchema) Clone() *EntitySchema {
	if e == nil {
		return nil
	}
	c := *e
	c.Options = cloneLists(e.Options)
	c.ValidationRules = cloneLists(e.ValidationRules)
	c.QualityChecks = cloneLists(e.QualityChecks)
	if e.ConditionalOptions != nil {
		c.ConditionalOptions = make(map[string][]ConditionalRule, len(e.ConditionalOptions))
		for k, rules := range e.ConditionalOptions {
			cp := slices.Clone(rules)
			for i := range cp {
				cp[i].Options = slices.Clone(cp[i].Options)
			}
			c.ConditionalOptions[k] = cp
		}
	}
	c.Scopes.CreateFields = slices.Clone(e.Scopes.CreateFields)
	c.Scopes.Read = slices.Clone(e.Scopes.Read)
	c.Scopes.Update = slices.Clone(e.Scopes.Update)
	c.ReadRoutes = slices.Clone(e.ReadRoutes)
	return &c
}

func cloneLists(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}
