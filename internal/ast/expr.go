package ast

import "github.com/hassan/esc/internal/lexer"

// IntLit is an integer literal, already decoded by the lexer.
type IntLit struct {
	Base
	Value int64
}

func (*IntLit) exprNode() {}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Base
	Value float64
}

func (*FloatLit) exprNode() {}

// StringLit is a string literal with escapes already decoded.
type StringLit struct {
	Base
	Value []byte
}

func (*StringLit) exprNode() {}

// NullLit is the null/∅ literal.
type NullLit struct {
	Base
}

func (*NullLit) exprNode() {}

// Ident is a bare identifier reference.
type Ident struct {
	Base
	Name string
}

func (*Ident) exprNode() {}

// BinaryExpr is "Left Op Right" for every binary operator: arithmetic,
// comparison, logical, bitwise, and the pipeline operator before it is
// rewritten away by the parser.
type BinaryExpr struct {
	Base
	Op    lexer.TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a prefix operator: -x, !x, ~x, &x, *x.
type UnaryExpr struct {
	Base
	Op lexer.TokenType
	X  Expr
}

func (*UnaryExpr) exprNode() {}

// CallExpr is "Callee(Args...)". When Callee is a FieldExpr, the parser has
// not yet decided between struct-field-holding-a-function-pointer and UFCS
// ("obj.method(args)" meaning "method(obj, args)") — that choice needs the
// symbol table, so the code generator resolves it at lowering time.
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// FieldExpr is "X.Name" — struct field access.
type FieldExpr struct {
	Base
	X    Expr
	Name string
}

func (*FieldExpr) exprNode() {}

// IndexExpr is "X[Index]" — array or pointer indexing.
type IndexExpr struct {
	Base
	X     Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

// CastExpr is "X as Type".
type CastExpr struct {
	Base
	X    Expr
	Type TypeExpr
}

func (*CastExpr) exprNode() {}

// TernaryExpr is "Cond ? Then : Else".
type TernaryExpr struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

func (*TernaryExpr) exprNode() {}

// SizeofExpr is "sz Type" / "sz(Type)" — sizeof a type, not an expression.
type SizeofExpr struct {
	Base
	Type TypeExpr
}

func (*SizeofExpr) exprNode() {}

// NewExpr is "nw Type" — heap allocation of one value of Type, returning a
// pointer to it.
type NewExpr struct {
	Base
	Type TypeExpr
}

func (*NewExpr) exprNode() {}

// StructInitExpr is "TypeName{ field: value, ... }" or, when Heap is set,
// "nw TypeName{ field: value, ... }". Codegen lowers both spellings the same
// way: a malloc of the struct followed by field stores through the resulting
// pointer; Heap only records which spelling was written.
type StructInitExpr struct {
	Base
	TypeName string
	Fields   []StructInitField
	Heap     bool
}

func (*StructInitExpr) exprNode() {}

// StructInitField is one "name: value" pair inside a StructInitExpr.
type StructInitField struct {
	Name  string
	Value Expr
}

// RangeExpr is "Start..End" or, when Inclusive, "Start..=End". It only ever
// appears as the iterable of a ForStmt or the argument of a ReducerExpr —
// it has no standalone value, so codegen never lowers it outside those two
// contexts.
type RangeExpr struct {
	Base
	Start     Expr
	End       Expr
	Inclusive bool
}

func (*RangeExpr) exprNode() {}

// ReducerKind identifies which built-in reducer intrinsic a ReducerExpr
// invokes.
type ReducerKind int

const (
	ReducerProduct ReducerKind = iota
	ReducerSum
	ReducerCount
	ReducerMin
	ReducerMax
)

// ReducerExpr is "product(range)", "sum(range)", "count(range)", "min(range)",
// or "max(range)" — compiler-recognized builtins over a range expression,
// not ordinary function calls.
type ReducerExpr struct {
	Base
	Kind  ReducerKind
	Range *RangeExpr
}

func (*ReducerExpr) exprNode() {}

// ComptimeExpr wraps an expression that must be fully evaluated at compile
// time (the "⚡ expr" form the preprocessor deliberately leaves untouched).
type ComptimeExpr struct {
	Base
	X Expr
}

func (*ComptimeExpr) exprNode() {}
