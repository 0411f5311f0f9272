package cond

import "fmt"

// Binding: текущие значения формы.
type Binding map[string]string

// Expr: узел выражения.
type Expr interface {
	Eval(b Binding) bool
	String() string
}

// Operand: левая или правая часть сравнения.
// Незакавыченный идентификатор подставляется из Binding, а если его там нет,
// означает сам себя.
type Operand struct {
	Text   string
	Quoted bool
}

func (o Operand) resolve(b Binding) string {
	if !o.Quoted {
		if v, ok := b[o.Text]; ok {
			return v
		}
	}
	return o.Text
}

func (o Operand) String() string {
	if o.Quoted {
		return fmt.Sprintf("%q", o.Text)
	}
	return o.Text
}

// Compare: `a == b` или `a != b`.
type Compare struct {
	Left   Operand
	Right  Operand
	Negate bool
}

func (c *Compare) Eval(b Binding) bool {
	eq := c.Left.resolve(b) == c.Right.resolve(b)
	if c.Negate {
		return !eq
	}
	return eq
}

func (c *Compare) String() string {
	op := "=="
	if c.Negate {
		op = "!="
	}
	return c.Left.String() + " " + op + " " + c.Right.String()
}

// LogicOp: && или ||.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// Logic: бинарная логическая операция с коротким замыканием.
type Logic struct {
	Op    LogicOp
	Left  Expr
	Right Expr
}

func (l *Logic) Eval(b Binding) bool {
	if l.Op == LogicAnd {
		return l.Left.Eval(b) && l.Right.Eval(b)
	}
	return l.Left.Eval(b) || l.Right.Eval(b)
}

func (l *Logic) String() string {
	op := "&&"
	if l.Op == LogicOr {
		op = "||"
	}
	return "(" + l.Left.String() + " " + op + " " + l.Right.String() + ")"
}
