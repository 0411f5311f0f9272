package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEval_BoundIdentifier(t *testing.T) {
	ev := NewEvaluator(nil)
	b := Binding{"issue": "A"}

	assert.True(t, ev.Eval("issue == A", b))
	assert.False(t, ev.Eval("issue == B", b))
}

func TestEval_GarbledExpressionIsFalseAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ev := NewEvaluator(zap.New(core))

	assert.NotPanics(t, func() {
		assert.False(t, ev.Eval("issue ===== &&& B", Binding{"issue": "B"}))
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "issue ===== &&& B", logs.All()[0].ContextMap()["expr"])
}

func TestEval_UnboundIdentifierIsItsOwnLiteral(t *testing.T) {
	ev := NewEvaluator(nil)
	// ни "A", ни "issue" не заданы: сравниваются сами имена
	assert.False(t, ev.Eval("issue == A", Binding{}))
	assert.True(t, ev.Eval("A == A", Binding{}))
}

func TestEval_RightSideResolvesToo(t *testing.T) {
	ev := NewEvaluator(nil)
	assert.True(t, ev.Eval("issue == other", Binding{"issue": "x", "other": "x"}))
}

func TestEval_QuotedLiteralIsNeverResolved(t *testing.T) {
	ev := NewEvaluator(nil)
	b := Binding{"issue": "A", "A": "zzz"}
	assert.True(t, ev.Eval("issue == 'A'", b))
	assert.False(t, ev.Eval("issue == A", b))
}

func TestEval_LogicAndGrouping(t *testing.T) {
	ev := NewEvaluator(nil)
	b := Binding{"issue": "A", "status": "open"}

	assert.True(t, ev.Eval("issue == A && status == open", b))
	assert.False(t, ev.Eval("issue == A && status == closed", b))
	assert.True(t, ev.Eval("issue == B || status == open", b))
	assert.True(t, ev.Eval("(issue == B || issue == A) && status != closed", b))
}

func TestEval_InjectionAttemptsAreRejected(t *testing.T) {
	ev := NewEvaluator(nil)
	b := Binding{"issue": "A"}
	for _, src := range []string{
		"issue == A; process.exit()",
		"alert(1)",
		"issue = A",
		"issue == ",
		"",
		"(issue == A",
		"issue == 'A",
	} {
		assert.False(t, ev.Eval(src, b), src)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("issue ===== &&& B")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 6, pe.Pos)

	_, err = Parse("issue == A B")
	require.Error(t, err)
}

func TestParse_String(t *testing.T) {
	expr, err := Parse("a == b || c != 'd'")
	require.NoError(t, err)
	assert.Equal(t, `(a == b || c != "d")`, expr.String())
}

func TestLexer_Tokens(t *testing.T) {
	tokens, err := NewLexer("follow_up == 2024-01-05 && (x != 'y z')").Tokenize()
	require.NoError(t, err)

	expected := []TokenType{
		TokenIdent, TokenEQ, TokenIdent, TokenAnd,
		TokenLParen, TokenIdent, TokenNEQ, TokenString, TokenRParen, TokenEOF,
	}
	require.Len(t, tokens, len(expected))
	for i, tt := range expected {
		assert.Equal(t, tt, tokens[i].Type, "token %d", i)
	}
	assert.Equal(t, "2024-01-05", tokens[2].Literal)
	assert.Equal(t, "y z", tokens[7].Literal)
}
