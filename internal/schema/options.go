package schema

import (
	"sort"
	"strings"

	"schemapanel/internal/cond"
)

// Combination: режим группы опций, задаётся суффиксом ключа FIELD[XOR] / FIELD[OR].
type Combination int

const (
	// CombineNone: ключ без суффикса; ведёт себя как XOR, но уступает динамическим опциям.
	CombineNone Combination = iota
	CombineXOR
	CombineOR
)

func (c Combination) String() string {
	switch c {
	case CombineXOR:
		return "XOR"
	case CombineOR:
		return "OR"
	default:
		return ""
	}
}

// MultiValueSeparator разделяет значения OR-поля в хранимой строке.
const MultiValueSeparator = ";"

// FieldKind: как UI рисует поле.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindSelect FieldKind = "select"
	KindMulti  FieldKind = "multi"
)

// OptionGroup: статическая группа опций поля.
type OptionGroup struct {
	Field  string
	Mode   Combination
	Values []string
}

// FieldOptions: итог для отрисовки одного поля.
type FieldOptions struct {
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Dynamic bool      `json:"dynamic,omitempty"`
}

// ParseOptionKey разбирает "status[OR]" -> ("status", CombineOR).
func ParseOptionKey(key string) (string, Combination) {
	k := strings.TrimSpace(key)
	switch {
	case strings.HasSuffix(k, "[OR]"):
		return strings.TrimSuffix(k, "[OR]"), CombineOR
	case strings.HasSuffix(k, "[XOR]"):
		return strings.TrimSuffix(k, "[XOR]"), CombineXOR
	default:
		return k, CombineNone
	}
}

// StaticOptions возвращает статическую группу поля.
// Группа с явным суффиксом важнее ключа без суффикса; OR проверяется раньше XOR.
func (e *EntitySchema) StaticOptions(field string) (OptionGroup, bool) {
	var plain *OptionGroup
	var xor *OptionGroup
	keys := make([]string, 0, len(e.Options))
	for k := range e.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name, mode := ParseOptionKey(k)
		if name != field {
			continue
		}
		g := OptionGroup{Field: name, Mode: mode, Values: e.Options[k]}
		switch mode {
		case CombineOR:
			return g, true
		case CombineXOR:
			xor = &g
		default:
			plain = &g
		}
	}
	if xor != nil {
		return *xor, true
	}
	if plain != nil && len(plain.Values) > 0 {
		return *plain, true
	}
	return OptionGroup{}, false
}

// DynamicOptions пересчитывает условные опции для текущих значений формы.
//
// Для каждого поля правила проверяются строго по порядку объявления,
// первое истинное условие побеждает, остальные не вычисляются.
// Поле без сработавшего правила в результат не попадает.
func (e *EntitySchema) DynamicOptions(ev *cond.Evaluator, binding cond.Binding) map[string][]string {
	out := make(map[string][]string, len(e.ConditionalOptions))
	for field, rules := range e.ConditionalOptions {
		if opts, ok := firstMatch(ev, rules, binding); ok {
			out[field] = opts
		}
	}
	return out
}

func firstMatch(ev *cond.Evaluator, rules []ConditionalRule, binding cond.Binding) ([]string, bool) {
	for _, r := range rules {
		if ev.Eval(r.Condition, binding) {
			return r.Options, true
		}
	}
	return nil, false
}

// ResolveOptions выбирает, чем рисовать поле:
// OR/XOR-группы всегда главнее, затем динамические опции, затем группа без суффикса, иначе текст.
func (e *EntitySchema) ResolveOptions(field string, dynamic map[string][]string) FieldOptions {
	g, ok := e.StaticOptions(field)
	if ok && g.Mode == CombineOR {
		return FieldOptions{Kind: KindMulti, Options: g.Values}
	}
	if ok && g.Mode == CombineXOR {
		return FieldOptions{Kind: KindSelect, Options: g.Values}
	}
	if opts, has := dynamic[field]; has {
		return FieldOptions{Kind: KindSelect, Options: opts, Dynamic: true}
	}
	if ok {
		return FieldOptions{Kind: KindSelect, Options: g.Values}
	}
	return FieldOptions{Kind: KindText}
}

// SplitMulti разбирает хранимое значение OR-поля.
func SplitMulti(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, MultiValueSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinMulti собирает значения OR-поля в строку.
func JoinMulti(vals []string) string {
	return strings.Join(vals, MultiValueSeparator)
}
