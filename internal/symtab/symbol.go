// Package symtab implements a stack-based symbol table for name resolution.
//
// DESIGN PHILOSOPHY:
// The code generator processes one function at a time and enters/exits
// nested blocks in strict source order. Rather than build a scope tree with
// parent pointers, the table is a single growing stack of bindings: entering
// a block records the stack's current length (a "mark"), declaring a name
// pushes onto the stack, and leaving the block truncates back to the mark.
// Lookup scans the stack from the top down, so the most recently pushed
// binding for a name always wins — shadowing falls out of the scan order
// for free, with no separate shadowing rule to implement.
//
// This mirrors the original C code generator's flat `syms[1024]` array and
// its backward linear scan in sym_lookup(); see internal/codegen for the
// mark/restore calls at block and function boundaries.
package symtab

import (
	"fmt"

	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/types"
)

// SymbolKind classifies what a name in the table refers to.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolParameter
	SymbolFunction
	SymbolExtern
	SymbolConstant // enum member or comptime-resolved constant
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolParameter:
		return "parameter"
	case SymbolFunction:
		return "function"
	case SymbolExtern:
		return "extern"
	case SymbolConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Symbol is one binding on the stack.
//
// DESIGN CHOICE: Value is interface{} holding the code generator's LLVM
// value (an llvm.Value for variables/params, a pointer or function value
// for functions/externs). symtab itself never imports the LLVM binding —
// that dependency belongs entirely to internal/codegen — so the stack can
// be unit-tested without linking against LLVM.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Type     types.Type
	Pos      lexer.Position
	Constant bool
	Used     bool
	Value    interface{}

	// ConstValue holds the folded value for SymbolConstant bindings (enum
	// members, comptime results), used directly by the comptime folder and
	// the code generator instead of re-evaluating an initializer expression.
	ConstValue int64
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s: %s at %s", s.Kind, s.Name, s.Type, s.Pos)
}

// CanAssign reports whether this binding may appear on the left of '='.
func (s *Symbol) CanAssign() bool {
	if s.Constant {
		return false
	}
	switch s.Kind {
	case SymbolVariable, SymbolParameter:
		return true
	default:
		return false
	}
}

func (s *Symbol) MarkUsed() {
	s.Used = true
}
