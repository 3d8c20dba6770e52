package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToken_String(t *testing.T) {
	tok := Token{
		Type:     TokenIdentifier,
		Lexeme:   "foo",
		Position: Position{Filename: "test.esc", Line: 1, Column: 1},
	}
	require.Equal(t, "<ident>(foo) at test.esc:1:1", tok.String())
}

func TestTokenType_String(t *testing.T) {
	require.Equal(t, "<eof>", TokenEOF.String())
	require.Equal(t, "<error>", TokenInvalid.String())
	require.Equal(t, "fn", TokenFn.String())
	require.Equal(t, "+", TokenPlus.String())
	require.Equal(t, "..=", TokenRangeInc.String())
	require.Equal(t, "|>", TokenPipeOp.String())
	require.Equal(t, "<unknown>", TokenType(9999).String())
}

func TestToken_IsStatementTerminator(t *testing.T) {
	require.True(t, Token{Type: TokenNewline}.IsStatementTerminator())
	require.False(t, Token{Type: TokenIdentifier}.IsStatementTerminator())
}

func TestKeywordTable_LongAndShortSpellingsAgree(t *testing.T) {
	pairs := map[string]string{
		"struct": "st",
		"extern": "ext",
		"sizeof": "sz",
		"break":  "brk",
		"delete": "del",
		"new":    "nw",
		"continue": "cont",
	}
	for long, short := range pairs {
		require.Equal(t, keywords[short], keywords[long], "%s vs %s", long, short)
	}
}
