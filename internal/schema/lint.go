package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"schemapanel/internal/cond"
	"schemapanel/internal/filter"
)

// Issue: противоречие в схеме.
type Issue struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LintError собирает все блокирующие проблемы схем.
type LintError struct {
	Issues []Issue
}

func (e *LintError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, it := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s.%s: %s", it.Entity, it.Field, it.Message))
	}
	return "schema has blocking issues: " + strings.Join(parts, "; ")
}

// Lint проверяет, что все упомянутые ключи полей существуют в scopes.read
// или среди системных полей, правила валидации известны, а условия разбираются.
func Lint(entities ...*EntitySchema) []Issue {
	var issues []Issue
	for _, e := range entities {
		if e == nil {
			continue
		}
		known := func(f string) bool { return IsSystemField(f) || e.CanRead(f) }
		add := func(field, code, format string, args ...any) {
			issues = append(issues, Issue{Entity: e.Name, Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
		}

		for _, field := range sortedKeys(e.ConditionalOptions) {
			if !known(field) {
				add(field, "unknown_field", "conditional_options refers to a field outside scopes.read")
			}
			for i, rule := range e.ConditionalOptions[field] {
				if _, err := cond.Parse(rule.Condition); err != nil {
					add(field, "bad_condition", "rule %d: %v", i, err)
				}
			}
		}

		for _, field := range sortedKeys(e.ValidationRules) {
			if !known(field) {
				add(field, "unknown_field", "validation_rules refers to a field outside scopes.read")
			}
			for _, raw := range e.ValidationRules[field] {
				name, param := SplitRule(raw)
				if !KnownRule(name) {
					add(field, "unknown_rule", "unknown validation rule %q", raw)
					continue
				}
				if name == RuleCharLength {
					if n, err := strconv.Atoi(strings.TrimSpace(param)); err != nil || n < 0 {
						add(field, "bad_rule_param", "%s expects a non-negative integer, got %q", RuleCharLength, param)
					}
				}
			}
		}

		for _, field := range sortedKeys(e.QualityChecks) {
			if !known(field) {
				add(field, "unknown_field", "ai_quality_checks refers to a field outside scopes.read")
			}
		}

		for _, field := range e.Scopes.Update {
			if !known(field) {
				add(field, "unknown_field", "scopes.update lists a field outside scopes.read")
			}
		}
		for _, field := range e.Scopes.CreateFields {
			if !known(field) {
				add(field, "unknown_field", "scopes.create lists a field outside scopes.read")
			}
		}

		for _, key := range sortedKeys(e.Options) {
			field, _ := ParseOptionKey(key)
			if !known(field) {
				add(field, "unknown_field", "options refers to a field outside scopes.read")
			}
		}

		seen := map[string]bool{}
		for _, r := range e.ReadRoutes {
			if strings.TrimSpace(r.Key) == "" {
				add("", "route_key_empty", "read route without key")
				continue
			}
			if seen[r.Key] {
				add("", "route_key_duplicate", "duplicate read route %q", r.Key)
			}
			seen[r.Key] = true
			if strings.TrimSpace(r.Filter) != "" {
				if _, err := filter.Parse(r.Filter); err != nil {
					add("", "bad_route_filter", "read route %q: %v", r.Key, err)
				}
			}
		}
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
