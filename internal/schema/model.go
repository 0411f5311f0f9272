package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemFields ведёт бэкенд: в payload create/update они никогда не попадают.
var SystemFields = []string{"id", "user_id", "created_at", "updated_at"}

// IsSystemField сообщает, является ли поле служебным.
func IsSystemField(name string) bool {
	for _, f := range SystemFields {
		if f == name {
			return true
		}
	}
	return false
}

// EntitySchema описывает одну управляемую сущность (например, "customers").
// После загрузки в Registry схема только читается.
type EntitySchema struct {
	Name               string                       `yaml:"name" json:"name"`
	Options            map[string][]string          `yaml:"options" json:"options,omitempty"`
	ConditionalOptions map[string][]ConditionalRule `yaml:"conditional_options" json:"conditional_options,omitempty"`
	Scopes             Scopes                       `yaml:"scopes" json:"scopes"`
	ValidationRules    map[string][]string          `yaml:"validation_rules" json:"validation_rules,omitempty"`
	QualityChecks      map[string][]string          `yaml:"ai_quality_checks" json:"ai_quality_checks,omitempty"`
	ReadRoutes         []ReadRoute                  `yaml:"read_routes" json:"read_routes,omitempty"`
}

// ConditionalRule: если Condition истинно, поле получает Options.
type ConditionalRule struct {
	Condition string   `yaml:"condition" json:"condition"`
	Options   []string `yaml:"options" json:"options"`
}

// ReadRoute: именованный серверный вариант выборки.
// Filter понимает только devbackend (выражение мини-языка фильтров).
type ReadRoute struct {
	Key             string `yaml:"key" json:"key"`
	BelongsToUserID bool   `yaml:"belongs_to_user_id" json:"belongs_to_user_id,omitempty"`
	Filter          string `yaml:"filter" json:"-"`
}

// Scopes: какие операции разрешены и какие поля видны.
type Scopes struct {
	Create       bool     `json:"create"`
	CreateFields []string `json:"create_fields,omitempty"`
	Read         []string `json:"read"`
	Update       []string `json:"update,omitempty"`
	Delete       bool     `json:"delete"`
}

type scopesDoc struct {
	Create yaml.Node `yaml:"create"`
	Read   []string  `yaml:"read"`
	Update []string  `yaml:"update"`
	Delete bool      `yaml:"delete"`
}

// UnmarshalYAML: create бывает либо bool, либо списком редактируемых полей.
func (s *Scopes) UnmarshalYAML(n *yaml.Node) error {
	var raw scopesDoc
	if err := n.Decode(&raw); err != nil {
		return err
	}
	s.Read = raw.Read
	s.Update = raw.Update
	s.Delete = raw.Delete
	switch raw.Create.Kind {
	case 0:
	case yaml.ScalarNode:
		var b bool
		if err := raw.Create.Decode(&b); err != nil {
			return fmt.Errorf("scopes.create: %w", err)
		}
		s.Create = b
	case yaml.SequenceNode:
		if err := raw.Create.Decode(&s.CreateFields); err != nil {
			return fmt.Errorf("scopes.create: %w", err)
		}
		s.Create = true
	default:
		return fmt.Errorf("scopes.create: expected bool or list at line %d", raw.Create.Line)
	}
	return nil
}

// CanRead сообщает, входит ли поле в проекцию scopes.read.
func (e *EntitySchema) CanRead(field string) bool {
	for _, f := range e.Scopes.Read {
		if f == field {
			return true
		}
	}
	return false
}

// CreateFields: поля формы создания без системных.
// Если create задан списком, берём его, иначе всё из read.
func (e *EntitySchema) CreateFields() []string {
	src := e.Scopes.CreateFields
	if len(src) == 0 {
		src = e.Scopes.Read
	}
	return withoutSystem(src)
}

// UpdateFields: редактируемые поля без системных.
func (e *EntitySchema) UpdateFields() []string {
	return withoutSystem(e.Scopes.Update)
}

// CanUpdate сообщает, можно ли редактировать поле.
func (e *EntitySchema) CanUpdate(field string) bool {
	for _, f := range e.UpdateFields() {
		if f == field {
			return true
		}
	}
	return false
}

// Route ищет read-route по ключу.
func (e *EntitySchema) Route(key string) (ReadRoute, bool) {
	for _, r := range e.ReadRoutes {
		if r.Key == key {
			return r, true
		}
	}
	return ReadRoute{}, false
}

// RoutePath строит путь read/{entity}[/{route}[/{userID}]] относительно базового URL.
func (e *EntitySchema) RoutePath(routeKey, userID string) (string, error) {
	if routeKey == "" {
		return "read/" + e.Name, nil
	}
	r, ok := e.Route(routeKey)
	if !ok {
		return "", fmt.Errorf("entity %q has no read route %q", e.Name, routeKey)
	}
	if !r.BelongsToUserID {
		return "read/" + e.Name + "/" + r.Key, nil
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("read route %q is scoped to the current user, but no user id is known", r.Key)
	}
	return "read/" + e.Name + "/" + r.Key + "/" + userID, nil
}

func withoutSystem(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !IsSystemField(f) {
			out = append(out, f)
		}
	}
	return out
}
