package ast

// Param is one "name Type" pair in a function signature or struct field
// list.
type Param struct {
	Name string
	Type TypeExpr
}

// FuncDecl is "fn name(params) RetType { body }".
type FuncDecl struct {
	Base
	Name     string
	Params   []Param
	Variadic bool
	Return   TypeExpr
	Body     *BlockStmt
}

func (*FuncDecl) stmtNode() {}
func (*FuncDecl) declNode() {}

// ExternDecl is "ext name(params) RetType" — a declaration-only function
// signature resolved by the external linker, never given a body.
type ExternDecl struct {
	Base
	Name     string
	Params   []Param
	Variadic bool
	Return   TypeExpr
}

func (*ExternDecl) stmtNode() {}
func (*ExternDecl) declNode() {}

// StructDecl is "st Name { fields }".
type StructDecl struct {
	Base
	Name   string
	Fields []Param
}

func (*StructDecl) stmtNode() {}
func (*StructDecl) declNode() {}

// EnumDecl is "enum Name { Member, Member = value, ... }". Each member
// becomes a private i32 global in the code generator, matching the
// original compiler's enum lowering.
type EnumDecl struct {
	Base
	Name    string
	Members []EnumMember
}

func (*EnumDecl) stmtNode() {}
func (*EnumDecl) declNode() {}

// EnumMember is one "Name" or "Name = Value" entry in an EnumDecl. Value is
// nil when the member takes the previous member's value plus one (or zero,
// for the first member).
type EnumMember struct {
	Name  string
	Value Expr // nil for auto-numbered members
}

// UseDecl is "use Name" — pulls in a prelude module by name.
type UseDecl struct {
	Base
	Name string
}

func (*UseDecl) stmtNode() {}
func (*UseDecl) declNode() {}
