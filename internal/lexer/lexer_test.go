package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexer_Keywords(t *testing.T) {
	source := "fn ret if el wh for match st enum ext use as sz brk cont nw del asm defer ct"
	l := New(source, "test.esc")

	expectedTypes := []TokenType{
		TokenFn, TokenRet, TokenIf, TokenEl, TokenWh, TokenFor, TokenMatch,
		TokenStruct, TokenEnum, TokenExtern, TokenUse, TokenAs, TokenSizeof,
		TokenBreak, TokenContinue, TokenNew, TokenDelete, TokenAsm, TokenDefer,
		TokenComptime, TokenEOF,
	}

	for i, expected := range expectedTypes {
		tok, err := l.NextToken()
		require.NoErrorf(t, err, "token %d", i)
		require.Equalf(t, expected, tok.Type, "token %d", i)
	}
}

func TestLexer_EmojiKeywordsMatchAsciiSpellings(t *testing.T) {
	source := "❓ ❗ 🔁 ↩ 🛑 ⏩ 🔧 📦 🔌 📥 ✨ 🗑 🔩 ⚡ 🔄 📏 ∅ 💧 📊 🔢 🔷 🔶 📈 🔵 💎 🌊 🌀 ⬛"
	l := New(source, "test.emoji.esc")

	expectedTypes := []TokenType{
		TokenIf, TokenEl, TokenWh, TokenRet, TokenBreak, TokenContinue,
		TokenFn, TokenStruct, TokenExtern, TokenUse, TokenNew, TokenDelete,
		TokenAsm, TokenComptime, TokenAs, TokenSizeof, TokenNull,
		TokenI8, TokenI16, TokenI32, TokenI64,
		TokenU8, TokenU16, TokenU32, TokenU64,
		TokenF32, TokenF64, TokenVoid,
	}

	for i, expected := range expectedTypes {
		tok, err := l.NextToken()
		require.NoErrorf(t, err, "token %d", i)
		require.Equalf(t, expected, tok.Type, "token %d", i)
	}
}

func TestLexer_Identifiers(t *testing.T) {
	source := "foo bar _temp myVar123"
	l := New(source, "test.esc")

	expected := []string{"foo", "bar", "_temp", "myVar123"}
	for i, name := range expected {
		tok, err := l.NextToken()
		require.NoErrorf(t, err, "token %d", i)
		require.Equal(t, TokenIdentifier, tok.Type)
		require.Equal(t, name, tok.Lexeme)
	}
}

func TestLexer_Numbers(t *testing.T) {
	tok, err := New("42", "test.esc").NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenInt, tok.Type)
	require.EqualValues(t, 42, tok.IntValue)

	tok, err = New("0x2A", "test.esc").NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenInt, tok.Type)
	require.EqualValues(t, 42, tok.IntValue)

	tok, err = New("3.5", "test.esc").NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenFloat, tok.Type)
	require.InDelta(t, 3.5, tok.FloatValue, 0.0001)
}

func TestLexer_Strings(t *testing.T) {
	l := New(`"hello\nworld"`, "test.esc")
	tok, err := l.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenString, tok.Type)
	require.Equal(t, "hello\nworld", string(tok.StringValue))
}

func TestLexer_UnterminatedStringErrors(t *testing.T) {
	l := New(`"oops`, "test.esc")
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestLexer_Operators(t *testing.T) {
	source := "+ - * / == != < <= > >= && || ! = += .. ..= |> -> :="
	l := New(source, "test.esc")

	expectedTypes := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash,
		TokenEq, TokenNeq, TokenLt, TokenLeq, TokenGt, TokenGeq,
		TokenAndAnd, TokenOrOr, TokenBang, TokenAssign, TokenPlusEq,
		TokenRange, TokenRangeInc, TokenPipeOp, TokenArrow, TokenDeclAssign,
		TokenEOF,
	}

	for i, expected := range expectedTypes {
		tok, err := l.NextToken()
		require.NoErrorf(t, err, "token %d", i)
		require.Equalf(t, expected, tok.Type, "token %d", i)
	}
}

func TestLexer_LineCommentsSkipped(t *testing.T) {
	source := "foo // a comment\nbar"
	l := New(source, "test.esc")

	tok, err := l.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenIdentifier, tok.Type)
	require.Equal(t, "foo", tok.Lexeme)

	tok, err = l.NextToken()
	require.NoError(t, err)
	require.Equal(t, TokenNewline, tok.Type)

	tok, err = l.NextToken()
	require.NoError(t, err)
	require.Equal(t, "bar", tok.Lexeme)
}

func TestLexer_ConsecutiveNewlinesCollapse(t *testing.T) {
	source := "foo\n\n\n\nbar"
	l := New(source, "test.esc")

	tok, _ := l.NextToken()
	require.Equal(t, "foo", tok.Lexeme)

	tok, _ = l.NextToken()
	require.Equal(t, TokenNewline, tok.Type)

	tok, _ = l.NextToken()
	require.Equal(t, "bar", tok.Lexeme)
}

func TestLexer_PositionTracking(t *testing.T) {
	source := "foo\nbar"
	l := New(source, "test.esc")

	tok1, _ := l.NextToken()
	require.Equal(t, 1, tok1.Position.Line)
	require.Equal(t, 1, tok1.Position.Column)

	_, _ = l.NextToken() // newline

	tok2, _ := l.NextToken()
	require.Equal(t, 2, tok2.Position.Line)
	require.Equal(t, 1, tok2.Position.Column)
}
