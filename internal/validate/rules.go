package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"schemapanel/internal/schema"
)

var (
	reMobile = regexp.MustCompile(`^[6789]\d{9}$`)
	reDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const dateLayout = "2006-01-02"

// ValidateField прогоняет все правила поля и собирает каждую ошибку.
// Пустое значение проверяет только REQUIRED, остальные правила его пропускают.
// Неизвестные правила игнорируются: их ловит schema.Lint.
func (e *Engine) ValidateField(field, value string, rules []string) []FieldError {
	var errs []FieldError
	empty := strings.TrimSpace(value) == ""
	for _, raw := range rules {
		name, param := schema.SplitRule(raw)
		if name == schema.RuleRequired {
			if empty {
				errs = append(errs, ferr(ErrMissingField, field, field+" is required."))
			}
			continue
		}
		if empty {
			continue
		}
		if fe, ok := e.checkRule(name, param, field, value); !ok {
			errs = append(errs, fe)
		}
	}
	return errs
}

func (e *Engine) checkRule(name, param, field, value string) (FieldError, bool) {
	switch name {
	case schema.RuleCharLength:
		n, err := strconv.Atoi(strings.TrimSpace(param))
		if err != nil || n < 0 {
			return FieldError{}, true
		}
		if utf8.RuneCountInString(value) != n {
			return ferr(ErrLengthMismatch, field, fmt.Sprintf("%s must be %d characters long.", field, n)), false
		}

	case schema.RuleNumeric:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) {
			return ferr(ErrNotNumeric, field, field+" must be numerically parseable."), false
		}

	case schema.RuleIndianMobile:
		if !reMobile.MatchString(value) || distinctRunes(value) < 4 {
			return ferr(ErrInvalidPhone, field, field+" must be a valid Indian mobile number."), false
		}

	case schema.RuleDate:
		if !reDate.MatchString(value) {
			return ferr(ErrInvalidDateFormat, field, field+" must be in YYYY-MM-DD format."), false
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return ferr(ErrInvalidDateFormat, field, field+" must be in YYYY-MM-DD format."), false
		}

	case schema.RuleAfterToday:
		d, ok := parseDay(value, e.now())
		if !ok || !d.After(e.today()) {
			return ferr(ErrInvalidDateRange, field, field+" must be a date after today."), false
		}

	case schema.RuleBeforeToday:
		d, ok := parseDay(value, e.now())
		if !ok || !d.Before(e.today()) {
			return ferr(ErrInvalidDateRange, field, field+" must be a date before today."), false
		}
	}
	return FieldError{}, true
}

func distinctRunes(s string) int {
	seen := map[rune]struct{}{}
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// parseDay приводит значение к началу дня в зоне часов движка.
func parseDay(value string, now time.Time) (time.Time, bool) {
	v := strings.TrimSpace(value)
	loc := now.Location()
	if t, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		return t, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			t = t.In(loc)
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}
