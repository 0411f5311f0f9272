package cond

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer режет выражение на лексемы.
type Lexer struct {
	input string
	pos   int
}

// NewLexer создаёт лексер для строки.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize возвращает все лексемы (последняя: EOF) или первую ошибку.
func (l *Lexer) Tokenize() ([]Token, error) {
	var out []Token
	for {
		tok := l.next()
		if tok.Type == TokenIllegal {
			return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected %q", tok.Literal)}
		}
		out = append(out, tok)
		if tok.Type == TokenEOF {
			return out, nil
		}
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return r
}

func (l *Lexer) next() Token {
	for l.pos < len(l.input) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	r := l.peek()

	if r == '\'' || r == '"' {
		return l.scanString(start)
	}
	if isIdentPart(r) {
		for l.pos < len(l.input) && isIdentPart(l.peek()) {
			l.advance()
		}
		return Token{Type: TokenIdent, Literal: l.input[start:l.pos], Pos: start}
	}

	two := func(tt TokenType) Token {
		l.pos += 2
		return Token{Type: tt, Literal: l.input[start:l.pos], Pos: start}
	}
	switch {
	case r == '=' && l.peekAt(1) == '=':
		// "===" и длиннее: не наш синтаксис
		if l.peekAt(2) == '=' {
			break
		}
		return two(TokenEQ)
	case r == '!' && l.peekAt(1) == '=':
		if l.peekAt(2) == '=' {
			break
		}
		return two(TokenNEQ)
	case r == '&' && l.peekAt(1) == '&':
		if l.peekAt(2) == '&' {
			break
		}
		return two(TokenAnd)
	case r == '|' && l.peekAt(1) == '|':
		if l.peekAt(2) == '|' {
			break
		}
		return two(TokenOr)
	case r == '(':
		l.advance()
		return Token{Type: TokenLParen, Literal: "(", Pos: start}
	case r == ')':
		l.advance()
		return Token{Type: TokenRParen, Literal: ")", Pos: start}
	}

	l.advance()
	return Token{Type: TokenIllegal, Literal: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) scanString(start int) Token {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == quote {
			return Token{Type: TokenString, Literal: b.String(), Pos: start}
		}
		b.WriteRune(r)
	}
	return Token{Type: TokenIllegal, Literal: l.input[start:], Pos: start}
}

// Идентификатор: как \w в исходных конфигах, плюс '-' и '.' для дат и кодов.
func isIdentPart(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
