// Package filter: клиентский мини-язык фильтрации уже загруженных строк:
//
//	mobile STARTS_WITH '98' AND amount > '100' ORDER BY created_at DESC
//
// Серверные query/search сюда не относятся: их строки уходят на бэкенд как есть.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Op: оператор условия.
type Op string

const (
	OpContains   Op = "CONTAINS"
	OpStartsWith Op = "STARTS_WITH"
	OpEq         Op = "=="
	OpGt         Op = ">"
	OpLt         Op = "<"
	OpGe         Op = ">="
	OpLe         Op = "<="
)

// Condition: одно условие COLUMN OP 'VALUE'.
type Condition struct {
	Column string
	Op     Op
	Value  string
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s '%s'", c.Column, c.Op, c.Value)
}

// Order: необязательная сортировка.
type Order struct {
	Column string
	Desc   bool
}

// Query: разобранное выражение.
type Query struct {
	Conditions []Condition
	Order      *Order
}

func (q *Query) String() string {
	parts := make([]string, len(q.Conditions))
	for i, c := range q.Conditions {
		parts[i] = c.String()
	}
	s := strings.Join(parts, " AND ")
	if q.Order != nil {
		dir := "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		s = strings.TrimSpace(s + " ORDER BY " + q.Order.Column + " " + dir)
	}
	return s
}

// ParseError: выражение не разобрать.
type ParseError struct {
	Source  string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter %q: col %d: %s", e.Source, e.Pos+1, e.Message)
}

var reOrderBy = regexp.MustCompile(`(?i)\bORDER\s+BY\s+(\w+)\s+(ASC|DESC)\b`)

// Parse сначала вырезает ORDER BY, потом разбирает цепочку условий через AND.
// Пустая строка условий допустима.
func Parse(expr string) (*Query, error) {
	q := &Query{}
	rest := expr
	if m := reOrderBy.FindStringSubmatchIndex(rest); m != nil {
		q.Order = &Order{
			Column: rest[m[2]:m[3]],
			Desc:   strings.EqualFold(rest[m[4]:m[5]], "DESC"),
		}
		rest = rest[:m[0]] + rest[m[1]:]
	}
	p := &parser{src: rest}
	conds, err := p.conditions()
	if err != nil {
		return nil, err
	}
	q.Conditions = conds
	return q, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(msg string, args ...any) error {
	return &ParseError{Source: p.src, Pos: p.pos, Message: fmt.Sprintf(msg, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) conditions() ([]Condition, error) {
	var out []Condition
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}
	for {
		c, err := p.condition()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		if !p.keyword("AND") {
			return nil, p.fail("expected AND")
		}
		p.skipSpace()
	}
}

func (p *parser) condition() (Condition, error) {
	col := p.word()
	if col == "" {
		return Condition{}, p.fail("expected column name")
	}
	p.skipSpace()
	op, ok := p.operator()
	if !ok {
		return Condition{}, p.fail("expected operator after %q", col)
	}
	p.skipSpace()
	val, err := p.value()
	if err != nil {
		return Condition{}, err
	}
	return Condition{Column: col, Op: op, Value: val}, nil
}

// word читает \w+.
func (p *parser) word() string {
	start := p.pos
	for p.pos < len(p.src) && isWord(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// keyword ждёт слово целиком, без учёта регистра, за которым идёт пробел или конец.
func (p *parser) keyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.src) || !strings.EqualFold(p.src[p.pos:end], kw) {
		return false
	}
	if end < len(p.src) && isWord(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) operator() (Op, bool) {
	for _, sym := range []Op{OpGe, OpLe, OpEq, OpGt, OpLt} {
		if strings.HasPrefix(p.src[p.pos:], string(sym)) {
			p.pos += len(sym)
			return sym, true
		}
	}
	for _, kw := range []Op{OpContains, OpStartsWith} {
		if p.keyword(string(kw)) {
			return kw, true
		}
	}
	return "", false
}

// value: 'в кавычках' или одно слово без пробелов.
func (p *parser) value() (string, error) {
	if p.eof() {
		return "", p.fail("expected value")
	}
	if p.src[p.pos] == '\'' {
		start := p.pos + 1
		end := strings.IndexByte(p.src[start:], '\'')
		if end < 0 {
			return "", p.fail("unterminated quote")
		}
		p.pos = start + end + 1
		return p.src[start : start+end], nil
	}
	start := p.pos
	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && p.src[p.pos] != '\'' {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("expected value")
	}
	return p.src[start:p.pos], nil
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isWord(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
