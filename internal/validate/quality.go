package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// QualityChecker оценивает значение по критерию на естественном языке.
type QualityChecker interface {
	Check(ctx context.Context, field, value, criterion string) (bool, error)
}

// CheckerFunc адаптирует функцию к QualityChecker.
type CheckerFunc func(ctx context.Context, field, value, criterion string) (bool, error)

func (f CheckerFunc) Check(ctx context.Context, field, value, criterion string) (bool, error) {
	return f(ctx, field, value, criterion)
}

// NopChecker пропускает всё: внешние проверки выключены.
type NopChecker struct{}

func (NopChecker) Check(context.Context, string, string, string) (bool, error) { return true, nil }

// ErrNoAPIKey: оценщик настроен без ключа; такая проверка всегда проваливается.
var ErrNoAPIKey = errors.New("quality checker api key is not set")

// ErrBadEvaluation: модель ответила не в формате {"evaluation": "true"}.
var ErrBadEvaluation = errors.New("malformed evaluation")

func qualityPrompt(criterion string) string {
	return fmt.Sprintf("Your only job is to ascertain if the user's input meets this criterion '%s' "+
		`and output a boolean true or false, as JSON in this format {"evaluation": "true"}.`, criterion)
}

type evaluation struct {
	Evaluation json.RawMessage `json:"evaluation"`
}

// parseEvaluation понимает и "true", и true; всё кроме true -> не прошло.
func parseEvaluation(content string) (bool, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var ev evaluation
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &ev); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadEvaluation, err)
	}
	if len(ev.Evaluation) == 0 {
		return false, fmt.Errorf("%w: no evaluation key", ErrBadEvaluation)
	}
	raw := string(ev.Evaluation)
	if s, err := strconv.Unquote(raw); err == nil {
		raw = s
	}
	return strings.EqualFold(strings.TrimSpace(raw), "true"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
