// Package comptime implements the compile-time constant folder for the
// integer-only sub-language spec.md §4.5 describes: the expression wrapped
// by a "ct expr" (ComptimeExpr) form must reduce to a single i64 without ever
// reaching the LLVM builder.
//
// DESIGN CHOICE: adapted from the teacher's internal/optimizer ConstantFoldingPass
// (Name/Run-style single-purpose visitor), but folding ast.Expr nodes
// directly instead of a three-address IR — there is no IR left to fold by
// the time this runs; comptime expressions are resolved during codegen,
// before any instruction is emitted for them.
package comptime

import (
	"fmt"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
)

// SizeofFunc resolves "sz Type" to the target's layout size for Type. Codegen
// supplies this so comptime never needs to know about LLVM target data.
type SizeofFunc func(t ast.TypeExpr) (int64, error)

// Fold evaluates x as a compile-time integer constant. sizeOf is consulted
// for any SizeofExpr node reached during folding; it may be nil if the
// expression is known not to contain one.
func Fold(x ast.Expr, sizeOf SizeofFunc) (int64, error) {
	switch n := x.(type) {
	case *ast.IntLit:
		return n.Value, nil

	case *ast.ComptimeExpr:
		return Fold(n.X, sizeOf)

	case *ast.SizeofExpr:
		if sizeOf == nil {
			return 0, foldErr(n, "sizeof not available in this comptime context")
		}
		return sizeOf(n.Type)

	case *ast.UnaryExpr:
		v, err := Fold(n.X, sizeOf)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case lexer.TokenMinus:
			return -v, nil
		case lexer.TokenTilde, lexer.TokenBang:
			return ^v, nil
		}
		return 0, foldErr(n, "unsupported comptime unary operator %s", n.Op)

	case *ast.TernaryExpr:
		c, err := Fold(n.Cond, sizeOf)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return Fold(n.Then, sizeOf)
		}
		return Fold(n.Else, sizeOf)

	case *ast.BinaryExpr:
		l, err := Fold(n.Left, sizeOf)
		if err != nil {
			return 0, err
		}
		r, err := Fold(n.Right, sizeOf)
		if err != nil {
			return 0, err
		}
		return foldBinary(n, n.Op, l, r)

	default:
		return 0, foldErr(x, "expression not foldable at compile time")
	}
}

func foldBinary(n ast.Node, op lexer.TokenType, l, r int64) (int64, error) {
	switch op {
	case lexer.TokenPlus:
		return l + r, nil
	case lexer.TokenMinus:
		return l - r, nil
	case lexer.TokenStar:
		return l * r, nil
	case lexer.TokenSlash:
		if r == 0 {
			return 0, nil // spec.md §4.5: division by zero yields zero
		}
		return l / r, nil
	case lexer.TokenPercent:
		if r == 0 {
			return 0, nil
		}
		return l % r, nil
	case lexer.TokenShl:
		return l << uint(r), nil
	case lexer.TokenShr:
		return l >> uint(r), nil
	case lexer.TokenAmp:
		return l & r, nil
	case lexer.TokenPipe:
		return l | r, nil
	case lexer.TokenCaret:
		return l ^ r, nil
	case lexer.TokenEq:
		return boolInt(l == r), nil
	case lexer.TokenNeq:
		return boolInt(l != r), nil
	case lexer.TokenLt:
		return boolInt(l < r), nil
	case lexer.TokenGt:
		return boolInt(l > r), nil
	case lexer.TokenLeq:
		return boolInt(l <= r), nil
	case lexer.TokenGeq:
		return boolInt(l >= r), nil
	default:
		return 0, foldErr(n, "unsupported comptime binary operator %s", op)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func foldErr(n ast.Node, format string, args ...interface{}) error {
	return fmt.Errorf("%s: comptime error: %s", n.Pos(), fmt.Sprintf(format, args...))
}
