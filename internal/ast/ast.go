// Package ast defines the single shared Abstract Syntax Tree that both
// concrete surfaces (the keyword/emoji grammar in internal/parser and the
// S-expression grammar in internal/sexpr) build. internal/codegen only ever
// walks this tree — it never knows which surface produced it.
//
// DESIGN CHOICE: nodes are lowered through type switches in the code
// generator rather than a Visitor interface. A dual-surface compiler has
// exactly one consumer of the tree (codegen), so the Visitor pattern's
// benefit — adding new operations without touching node types — doesn't pay
// for its boilerplate here; a type switch is what the target ecosystem's own
// compilers (and the retrieved LLVM-backed vslc compiler) use for this
// shape of problem.
package ast

import (
	"github.com/hassan/esc/internal/lexer"
)

// Node is the base interface implemented by every AST node.
type Node interface {
	Pos() lexer.Position
}

// Expr is any node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any node that performs an action.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is a top-level declaration. Every Decl is also a Stmt so a single
// []Stmt can hold a mix of local declarations and ordinary statements
// inside a function body.
type Decl interface {
	Stmt
	declNode()
}

// Program is the root of the tree: one source file's declarations, in the
// order they appeared (top-level processing order — structs, then enums,
// then functions — is decided by the code generator, not by this order).
type Program struct {
	Decls    []Decl
	Filename string
}

// Base embeds a position into every concrete node without repeating the
// Pos() method everywhere.
type Base struct {
	Position lexer.Position
}

func (b Base) Pos() lexer.Position { return b.Position }

// NewBase builds the embeddable Base for a node at pos, for use by parser
// packages constructing nodes outside this package.
func NewBase(pos lexer.Position) Base { return Base{Position: pos} }
