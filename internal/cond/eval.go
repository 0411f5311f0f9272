package cond

import "go.uber.org/zap"

// Evaluator: тотальный вычислитель: любая ошибка разбора даёт false и пишется в лог.
type Evaluator struct {
	log *zap.Logger
}

// NewEvaluator создаёт вычислитель; nil-логгер заменяется на no-op.
func NewEvaluator(log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{log: log}
}

// Eval разбирает и вычисляет выражение. Паники и ошибки наружу не выходят.
func (ev *Evaluator) Eval(src string, b Binding) bool {
	expr, err := Parse(src)
	if err != nil {
		ev.logger().Warn("condition rejected", zap.String("expr", src), zap.Error(err))
		return false
	}
	return expr.Eval(b)
}

func (ev *Evaluator) logger() *zap.Logger {
	if ev == nil || ev.log == nil {
		return zap.NewNop()
	}
	return ev.log
}
