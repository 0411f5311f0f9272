package cond

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError: синтаксическая ошибка с позицией.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("col %d: %s", e.Pos+1, e.Message)
}

var errEmpty = errors.New("empty condition")

// Parse разбирает выражение:
//
//	expr    := and ('||' and)*
//	and     := primary ('&&' primary)*
//	primary := '(' expr ')' | operand ('==' | '!=') operand
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errEmpty
	}
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected %s after expression", tok.Type)}
	}
	return expr, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logic{Op: LogicOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenAnd {
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &Logic{Op: LogicAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.peek().Type == TokenLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.advance(); tok.Type != TokenRParen {
			return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("expected ), got %s", tok.Type)}
		}
		return expr, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	opTok := p.advance()
	var negate bool
	switch opTok.Type {
	case TokenEQ:
	case TokenNEQ:
		negate = true
	default:
		return nil, &ParseError{Pos: opTok.Pos, Message: fmt.Sprintf("expected == or !=, got %s", opTok.Type)}
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Compare{Left: left, Right: right, Negate: negate}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenIdent:
		return Operand{Text: tok.Literal}, nil
	case TokenString:
		return Operand{Text: tok.Literal, Quoted: true}, nil
	default:
		return Operand{}, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("expected identifier, got %s", tok.Type)}
	}
}
