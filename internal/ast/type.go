package ast

import "github.com/hassan/esc/internal/lexer"

// TypeExpr is the syntactic representation of a type as written in source,
// before internal/codegen resolves it against the struct table into a
// concrete internal/types.Type.
type TypeExpr interface {
	Node
	typeExprNode()
}

// NamedTypeExpr is either a primitive keyword (i32, f64, bool, v, ...) or a
// struct name — which one it is can't be decided until the struct table is
// consulted, so the parser never has to distinguish them.
type NamedTypeExpr struct {
	Base
	Name string
}

func (*NamedTypeExpr) typeExprNode() {}

// PointerTypeExpr is "*Elem".
type PointerTypeExpr struct {
	Base
	Elem TypeExpr
}

func (*PointerTypeExpr) typeExprNode() {}

// ArrayTypeExpr is "[Len]Elem".
type ArrayTypeExpr struct {
	Base
	Elem TypeExpr
	Len  int64
}

func (*ArrayTypeExpr) typeExprNode() {}

// FuncTypeExpr is the callee side of a function-pointer type, "fn(Params) ->
// Return". It only ever appears as the Elem of a PointerTypeExpr — the
// language has no bare (non-pointer) function-typed value.
type FuncTypeExpr struct {
	Base
	Params   []TypeExpr
	Variadic bool
	Return   TypeExpr
}

func (*FuncTypeExpr) typeExprNode() {}

func NewNamedType(pos lexer.Position, name string) *NamedTypeExpr {
	return &NamedTypeExpr{Base: Base{pos}, Name: name}
}
