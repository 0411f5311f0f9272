package validate

import (
	"sort"
	"strings"
)

// FieldError: одна проблема конкретного поля.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок валидации
const (
	ErrMissingField      = "missing_field"
	ErrLengthMismatch    = "length_mismatch"
	ErrNotNumeric        = "not_numeric"
	ErrInvalidPhone      = "invalid_phone"
	ErrInvalidDateFormat = "invalid_date_format"
	ErrInvalidDateRange  = "invalid_date_range"
	ErrQualityCheck      = "quality_check_failed"
	ErrQualityCheckError = "quality_check_error"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// Result: все найденные ошибки, в порядке полей и правил.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// OK: ошибок нет, можно отправлять.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// ByField группирует ошибки по полям.
func (r Result) ByField() map[string][]FieldError {
	out := make(map[string][]FieldError)
	for _, e := range r.Errors {
		out[e.Field] = append(out[e.Field], e)
	}
	return out
}

// Messages: тексты ошибок без группировки.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Err возвращает *ValidationError или nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Errors: append([]FieldError(nil), r.Errors...)}
}

// ValidationError блокирует отправку формы и несёт полный список ошибок.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields: отсортированные имена полей с ошибками.
func (e *ValidationError) Fields() []string {
	seen := map[string]bool{}
	var out []string
	for _, fe := range e.Errors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			out = append(out, fe.Field)
		}
	}
	sort.Strings(out)
	return out
}
