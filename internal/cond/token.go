// Package cond вычисляет маленькие булевы выражения вида `issue == A`
// над картой "поле -> текущее значение формы".
//
// Выражение никогда не исполняется как код: лексер -> AST -> интерпретатор.
package cond

// TokenType: вид лексемы.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdent  // issue, A, X1, 2024-01-01
	TokenString // 'quoted value'
	TokenEQ     // ==
	TokenNEQ    // !=
	TokenAnd    // &&
	TokenOr     // ||
	TokenLParen // (
	TokenRParen // )
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "illegal"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenEQ:
		return "=="
	case TokenNEQ:
		return "!="
	case TokenAnd:
		return "&&"
	case TokenOr:
		return "||"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return "unknown"
	}
}

// Token: лексема с байтовым смещением в исходной строке.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
