package parser

import (
	"testing"

	"github.com/hassan/esc/internal/lexer"
	"github.com/stretchr/testify/require"
)

func TestBinaryPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		token    lexer.TokenType
		expected Precedence
	}{
		{"range", lexer.TokenRange, PrecRange},
		{"range inclusive", lexer.TokenRangeInc, PrecRange},
		{"logical or", lexer.TokenOrOr, PrecOr},
		{"logical and", lexer.TokenAndAnd, PrecAnd},
		{"bit or", lexer.TokenPipe, PrecBitOr},
		{"bit xor", lexer.TokenCaret, PrecBitXor},
		{"bit and", lexer.TokenAmp, PrecBitAnd},
		{"equal", lexer.TokenEq, PrecEquality},
		{"not equal", lexer.TokenNeq, PrecEquality},
		{"less", lexer.TokenLt, PrecComparison},
		{"less equal", lexer.TokenLeq, PrecComparison},
		{"greater", lexer.TokenGt, PrecComparison},
		{"greater equal", lexer.TokenGeq, PrecComparison},
		{"shift left", lexer.TokenShl, PrecShift},
		{"shift right", lexer.TokenShr, PrecShift},
		{"plus", lexer.TokenPlus, PrecTerm},
		{"minus", lexer.TokenMinus, PrecTerm},
		{"star", lexer.TokenStar, PrecFactor},
		{"slash", lexer.TokenSlash, PrecFactor},
		{"percent", lexer.TokenPercent, PrecFactor},
		{"not a binary op", lexer.TokenAssign, PrecNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, binaryPrecedence(tt.token))
		})
	}
}

func TestPrecedenceOrdering(t *testing.T) {
	require.Less(t, int(PrecRange), int(PrecOr))
	require.Less(t, int(PrecOr), int(PrecAnd))
	require.Less(t, int(PrecBitOr), int(PrecBitXor))
	require.Less(t, int(PrecBitXor), int(PrecBitAnd))
	require.Less(t, int(PrecEquality), int(PrecComparison))
	require.Less(t, int(PrecComparison), int(PrecShift))
	require.Less(t, int(PrecShift), int(PrecTerm))
	require.Less(t, int(PrecTerm), int(PrecFactor))
}

func TestIsRangeOp(t *testing.T) {
	require.True(t, isRangeOp(lexer.TokenRange))
	require.True(t, isRangeOp(lexer.TokenRangeInc))
	require.False(t, isRangeOp(lexer.TokenPlus))
}
