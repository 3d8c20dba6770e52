package codegen

import (
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// Value pairs an LLVM value with the esc type it represents. lowerExpr
// returns one of these for every expression instead of mutating a type
// slot on the AST node (spec.md §3 describes a mutable type slot on the C
// union node; Go's AST here has no such field, and nothing downstream of
// codegen ever needs to re-read it, so the slot becomes a return value
// threaded through the recursion instead — see DESIGN.md).
type Value struct {
	V llvm.Value
	T types.Type
}

// coerce converts v to target, per spec.md §4.5's coercion rules: integer
// widen (zero-extend) or narrow (truncate), signed-int-to-float and back,
// float width changes, and pointer/integer conversions. It is a no-op when
// v is already of type target.
func (g *Generator) coerce(v Value, target types.Type) (llvm.Value, error) {
	if v.T.Equal(target) {
		return v.V, nil
	}

	switch {
	case types.IsInt(v.T) && types.IsInt(target):
		from, to := v.T.(*types.IntType), target.(*types.IntType)
		if to.Width > from.Width {
			return g.builder.CreateZExt(v.V, g.llvmType(target), ""), nil
		}
		if to.Width < from.Width {
			return g.builder.CreateTrunc(v.V, g.llvmType(target), ""), nil
		}
		return v.V, nil // same width, different signedness: bit pattern unchanged

	case types.IsInt(v.T) && types.IsFloat(target):
		return g.builder.CreateSIToFP(v.V, g.llvmType(target), ""), nil

	case types.IsFloat(v.T) && types.IsInt(target):
		return g.builder.CreateFPToSI(v.V, g.llvmType(target), ""), nil

	case types.IsFloat(v.T) && types.IsFloat(target):
		from, to := v.T.(*types.FloatType), target.(*types.FloatType)
		if to.Width > from.Width {
			return g.builder.CreateFPExt(v.V, g.llvmType(target), ""), nil
		}
		return g.builder.CreateFPTrunc(v.V, g.llvmType(target), ""), nil

	case types.IsPointer(v.T) && types.IsPointer(target):
		return g.builder.CreateBitCast(v.V, g.llvmType(target), ""), nil

	case types.IsPointer(v.T) && types.IsInt(target):
		return g.builder.CreatePtrToInt(v.V, g.llvmType(target), ""), nil

	case types.IsInt(v.T) && types.IsPointer(target):
		return g.builder.CreateIntToPtr(v.V, g.llvmType(target), ""), nil

	default:
		return llvm.Value{}, errors.Errorf("cannot coerce %s to %s", v.T, target)
	}
}

// binaryResultType computes the static result type of a binary operation
// under spec.md §4.5/§8's widening rules, without emitting any IR. Both
// lowerBinary (expr.go, its emitting twin) and typeOf (typeof.go, for
// field/index base decisions) call this so the two stay in lockstep.
func binaryResultType(op lexer.TokenType, l, r types.Type) (types.Type, error) {
	if isComparisonOp(op) {
		return types.I32, nil // booleans are i32 throughout this language
	}
	if isRangeOrLogical(op) {
		return types.I32, nil
	}

	switch {
	case types.IsPointer(l) && types.IsInt(r):
		return l, nil
	case types.IsPointer(r) && types.IsInt(l):
		return r, nil
	case types.IsPointer(l) && types.IsPointer(r):
		return types.I64, nil
	case types.IsInt(l) && types.IsInt(r):
		lt, rt := l.(*types.IntType), r.(*types.IntType)
		if lt.Width >= rt.Width {
			return lt, nil
		}
		return rt, nil
	case types.IsFloat(l) && types.IsFloat(r):
		lt, rt := l.(*types.FloatType), r.(*types.FloatType)
		if lt.Width >= rt.Width {
			return lt, nil
		}
		return rt, nil
	case types.IsInt(l) && types.IsFloat(r):
		return r, nil
	case types.IsFloat(l) && types.IsInt(r):
		return l, nil
	default:
		return nil, errors.Errorf("unsupported operand types %s and %s", l, r)
	}
}

func isComparisonOp(op lexer.TokenType) bool {
	switch op {
	case lexer.TokenEq, lexer.TokenNeq, lexer.TokenLt, lexer.TokenLeq, lexer.TokenGt, lexer.TokenGeq:
		return true
	}
	return false
}

func isRangeOrLogical(op lexer.TokenType) bool {
	switch op {
	case lexer.TokenAndAnd, lexer.TokenOrOr:
		return true
	}
	return false
}

// toBoolI1 produces an i1 truth value from v for use as a branch condition:
// integer zero is false, non-zero true (spec.md §4.5's "! is bitwise-not"
// note implies the language has no separate boolean type — every
// condition is "compare against zero").
func (g *Generator) toBoolI1(v Value) (llvm.Value, error) {
	switch {
	case types.IsInt(v.T):
		zero := llvm.ConstInt(g.llvmType(v.T), 0, false)
		return g.builder.CreateICmp(llvm.IntNE, v.V, zero, ""), nil
	case types.IsFloat(v.T):
		zero := llvm.ConstFloat(g.llvmType(v.T), 0)
		return g.builder.CreateFCmp(llvm.FloatONE, v.V, zero, ""), nil
	case types.IsPointer(v.T):
		nullv := llvm.ConstNull(g.llvmType(v.T))
		return g.builder.CreateICmp(llvm.IntNE, v.V, nullv, ""), nil
	default:
		return llvm.Value{}, errors.Errorf("cannot use %s as a condition", v.T)
	}
}
