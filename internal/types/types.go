// Package types implements the value-object type system for the compiler.
//
// DESIGN PHILOSOPHY:
// A type is constructed on demand and compared structurally. Types are never
// mutated after creation, so a *IntType for i32 built by the parser and one
// built by the code generator during an implicit coercion are interchangeable
// even though they are different pointers.
//
// KEY DESIGN CHOICES:
// - Nominal typing for structs (two structs with identical fields but
//   different names are different types).
// - Structural typing for function types (parameter/return shape decides
//   equality, not declaration site).
// - Signedness lives on the integer variant, not as a separate type, so
//   width-promotion code can switch on (Width, Signed) directly.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies which variant of Type a value holds.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindFunction
)

// Type is the interface every type variant implements.
//
// DESIGN CHOICE: interface + one struct per kind (matching the teacher's
// semantic/types package) rather than a single struct with a Kind field,
// because Go's type switches give us exhaustiveness checks for free in the
// code generator's lowering switches.
type Type interface {
	String() string
	Kind() Kind
	// Equal reports structural equality (nominal for structs).
	Equal(other Type) bool
}

// Void is the singleton absence-of-value type.
var Void Type = &VoidType{}

type VoidType struct{}

func (*VoidType) String() string { return "void" }
func (*VoidType) Kind() Kind     { return KindVoid }
func (*VoidType) Equal(o Type) bool {
	_, ok := o.(*VoidType)
	return ok
}

// IntType is one of the eight fixed-width integer variants: i8/i16/i32/i64
// and u8/u16/u32/u64. Width is in bits; Signed carries signedness.
type IntType struct {
	Width  int
	Signed bool
}

func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}
func (t *IntType) Kind() Kind { return KindInt }
func (t *IntType) Equal(o Type) bool {
	other, ok := o.(*IntType)
	return ok && other.Width == t.Width && other.Signed == t.Signed
}

var (
	I8  = &IntType{Width: 8, Signed: true}
	I16 = &IntType{Width: 16, Signed: true}
	I32 = &IntType{Width: 32, Signed: true}
	I64 = &IntType{Width: 64, Signed: true}
	U8  = &IntType{Width: 8, Signed: false}
	U16 = &IntType{Width: 16, Signed: false}
	U32 = &IntType{Width: 32, Signed: false}
	U64 = &IntType{Width: 64, Signed: false}
	// Bool is a synonym for i32, per the superset lexer keyword table noted
	// in spec.md's open questions: "support bool as a synonym for i32".
	Bool = I32
)

// FloatType is f32 or f64.
type FloatType struct {
	Width int // 32 or 64
}

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Width) }
func (t *FloatType) Kind() Kind     { return KindFloat }
func (t *FloatType) Equal(o Type) bool {
	other, ok := o.(*FloatType)
	return ok && other.Width == t.Width
}

var (
	F32 = &FloatType{Width: 32}
	F64 = &FloatType{Width: 64}
)

// PointerType owns its pointee; pointer arithmetic stride is the pointee's
// layout size (see internal/codegen's layout helpers).
type PointerType struct {
	Elem Type
}

func (t *PointerType) String() string { return "*" + t.Elem.String() }
func (t *PointerType) Kind() Kind     { return KindPointer }
func (t *PointerType) Equal(o Type) bool {
	other, ok := o.(*PointerType)
	return ok && other.Elem.Equal(t.Elem)
}

func Ptr(elem Type) *PointerType { return &PointerType{Elem: elem} }

// ArrayType is a fixed-size array (no slices, no growth).
type ArrayType struct {
	Elem Type
	Len  int
}

func (t *ArrayType) String() string { return fmt.Sprintf("[%d]%s", t.Len, t.Elem.String()) }
func (t *ArrayType) Kind() Kind     { return KindArray }
func (t *ArrayType) Equal(o Type) bool {
	other, ok := o.(*ArrayType)
	return ok && other.Len == t.Len && other.Elem.Equal(t.Elem)
}

// StructType is nominal: only the Name participates in Equal. Fields are
// resolved against the struct table during codegen, not at construction
// time, so a forward reference to a not-yet-declared struct can still be
// represented (its Fields slice is filled in once the declaration is seen).
type StructType struct {
	Name   string
	Fields []StructField
}

type StructField struct {
	Name string
	Type Type
}

func (t *StructType) String() string { return t.Name }
func (t *StructType) Kind() Kind     { return KindStruct }
func (t *StructType) Equal(o Type) bool {
	other, ok := o.(*StructType)
	return ok && other.Name == t.Name
}

func (t *StructType) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FunctionType is structural: two function types are equal if their
// parameter types, return type, and variadic flag all match.
type FunctionType struct {
	Params   []Type
	Return   Type
	Variadic bool
}

func (t *FunctionType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	variadic := ""
	if t.Variadic {
		variadic = ", ..."
	}
	return fmt.Sprintf("fn(%s%s) -> %s", strings.Join(parts, ", "), variadic, t.Return.String())
}
func (t *FunctionType) Kind() Kind { return KindFunction }
func (t *FunctionType) Equal(o Type) bool {
	other, ok := o.(*FunctionType)
	if !ok || other.Variadic != t.Variadic || len(other.Params) != len(t.Params) {
		return false
	}
	if !other.Return.Equal(t.Return) {
		return false
	}
	for i := range t.Params {
		if !other.Params[i].Equal(t.Params[i]) {
			return false
		}
	}
	return true
}

// IsInt, IsFloat, IsNumeric are convenience predicates used throughout the
// code generator's coercion logic.
func IsInt(t Type) bool   { return t != nil && t.Kind() == KindInt }
func IsFloat(t Type) bool { return t != nil && t.Kind() == KindFloat }
func IsNumeric(t Type) bool {
	return IsInt(t) || IsFloat(t)
}
func IsPointer(t Type) bool { return t != nil && t.Kind() == KindPointer }

// FromName resolves a primitive type keyword/emoji lexeme to its Type, or
// reports ok=false for names that must be looked up as structs instead.
func FromName(name string) (Type, bool) {
	switch name {
	case "v", "void":
		return Void, true
	case "i8":
		return I8, true
	case "i16":
		return I16, true
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "u8":
		return U8, true
	case "u16":
		return U16, true
	case "u32":
		return U32, true
	case "u64":
		return U64, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	case "bool":
		return Bool, true
	default:
		return nil, false
	}
}
