// Package codegen lowers the shared internal/ast tree to an LLVM module and
// then to a native or WebAssembly object file, using the real LLVM binding
// tinygo.org/x/go-llvm rather than a hand-rolled three-address-code IR — see
// SPEC_FULL.md's DOMAIN STACK section and the `hhramberg-go-vslc` reference's
// src/ir/llvm/transform.go, which this package's call shape (Context,
// Builder, Module, TargetMachine, opaque element-typed loads/GEPs) follows.
//
// PASS ORDER (spec.md §4.5): structs, then enums, then functions — exactly
// once each, over the top-level declaration list in source order. A struct
// or function body may reference any struct regardless of where it sits in
// that list, because the struct pass runs to completion first.
package codegen

import (
	"fmt"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/symtab"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// Target selects the object file flavor §6 of spec.md recognizes.
type Target int

const (
	TargetNative Target = iota
	TargetWasm32
)

// Options configures one compilation.
type Options struct {
	Target   Target
	OptLevel int // 0-3, per spec.md §6
}

// structInfo is one entry in the struct table (spec.md §4.5's "Struct
// table"): the resolved type plus the opaque LLVM named-struct handle
// created in pass 1a and given a body in pass 1b.
type structInfo struct {
	typ  *types.StructType
	llvm llvm.Type
}

// funcInfo is one entry recorded for every fn/ext declaration in pass 3a,
// before any body is lowered — so a call to a function declared later in
// the file still resolves (spec.md §3's "Function declarations must be
// registered ... before any call to them is lowered").
type funcInfo struct {
	name     string
	typ      *types.FunctionType
	value    llvm.Value
	llvmType llvm.Type
}

// Generator lowers one parsed Program to one LLVM module. It is not
// reentrant across Programs: construct a fresh Generator per compilation.
type Generator struct {
	opts Options

	ctx     llvm.Context
	builder llvm.Builder
	module  llvm.Module

	structs      map[string]*structInfo
	structOrder  []string
	funcs        map[string]*funcInfo
	syms         *symtab.Table
	stringLits   map[string]llvm.Value // interned global constant C-strings

	tinfo         *targetInfo
	wasmExportAll bool

	// per-function lowering state, reset at the start of every FuncDecl body.
	curFunc      *funcInfo
	curRetType   types.Type
	breakTargets []llvm.BasicBlock
	contTargets  []llvm.BasicBlock
	defers       []ast.Stmt

	errs []error
}

// New creates a Generator with a fresh LLVM context, builder, and module
// named after moduleName (conventionally the input file's base name), and
// resolves opts.Target to a concrete TargetMachine immediately.
func New(moduleName string, opts Options) (*Generator, error) {
	ctx := llvm.NewContext()
	g := &Generator{
		opts:       opts,
		ctx:        ctx,
		builder:    ctx.NewBuilder(),
		module:     ctx.NewModule(moduleName),
		structs:    make(map[string]*structInfo),
		funcs:      make(map[string]*funcInfo),
		syms:       symtab.New(),
		stringLits: make(map[string]llvm.Value),
	}
	if err := g.setupTarget(); err != nil {
		g.builder.Dispose()
		g.module.Dispose()
		g.ctx.Dispose()
		return nil, err
	}
	return g, nil
}

// Module exposes the underlying LLVM module for verification, printing, and
// object emission — see target.go.
func (g *Generator) Module() llvm.Module { return g.module }

// Dispose releases the target machine, builder, module, and context. Call
// once, after the object file has been written.
func (g *Generator) Dispose() {
	g.disposeTarget()
	g.builder.Dispose()
	g.module.Dispose()
	g.ctx.Dispose()
}

// Compile runs the three-pass lowering of prog.Decls (spec.md §4.5) and
// returns every error encountered. Lowering does not stop at the first
// error within a pass — spec.md §7's "first error aborts" policy applies at
// the compiler's outer driver boundary (cmd/compiler), not inside codegen,
// so a single Compile call can report every semantic problem it finds in
// one shot before the driver decides to abort.
func (g *Generator) Compile(prog *ast.Program) []error {
	g.declareStructsPass(prog.Decls)
	g.declareEnumsPass(prog.Decls)
	g.declareFunctionsPass(prog.Decls)
	g.lowerFunctionBodiesPass(prog.Decls)
	return g.errs
}

func (g *Generator) errorf(pos lexer.Position, format string, args ...interface{}) {
	g.errs = append(g.errs, errors.Errorf("%s: %s", pos, fmt.Sprintf(format, args...)))
}

// ---- pass 1: structs ----

func (g *Generator) declareStructsPass(decls []ast.Decl) {
	// 1a: register every struct name with an opaque LLVM named-struct type
	// before resolving any field, so mutually referential pointer fields
	// (A has *B, B has *A) resolve regardless of declaration order.
	for _, d := range decls {
		sd, ok := d.(*ast.StructDecl)
		if !ok {
			continue
		}
		if _, dup := g.structs[sd.Name]; dup {
			continue // spec.md §4.5: duplicate declarations are ignored
		}
		g.structs[sd.Name] = &structInfo{
			typ:  &types.StructType{Name: sd.Name},
			llvm: g.ctx.StructCreateNamed(sd.Name),
		}
		g.structOrder = append(g.structOrder, sd.Name)
	}

	// 1b: resolve field types and give every named struct its body.
	for _, d := range decls {
		sd, ok := d.(*ast.StructDecl)
		if !ok {
			continue
		}
		info := g.structs[sd.Name]
		if len(info.typ.Fields) > 0 {
			continue // already filled in by an earlier (non-duplicate) decl
		}
		fields := make([]types.StructField, 0, len(sd.Fields))
		llvmFields := make([]llvm.Type, 0, len(sd.Fields))
		for _, f := range sd.Fields {
			ft, err := g.resolveTypeExpr(f.Type)
			if err != nil {
				g.errorf(sd.Pos(), "field %q of struct %q: %s", f.Name, sd.Name, err)
				continue
			}
			fields = append(fields, types.StructField{Name: f.Name, Type: ft})
			llvmFields = append(llvmFields, g.llvmType(ft))
		}
		info.typ.Fields = fields
		info.llvm.StructSetBody(llvmFields, false)
	}
}

// ---- pass 2: enums ----

func (g *Generator) declareEnumsPass(decls []ast.Decl) {
	for _, d := range decls {
		ed, ok := d.(*ast.EnumDecl)
		if !ok {
			continue
		}
		next := int64(0)
		for _, m := range ed.Members {
			val := next
			if m.Value != nil {
				v, err := evalConstIntLiteral(m.Value)
				if err != nil {
					g.errorf(ed.Pos(), "enum %q member %q: %s", ed.Name, m.Name, err)
					continue
				}
				val = v
			}
			next = val + 1

			i32 := g.ctx.Int32Type()
			global := llvm.AddGlobal(g.module, i32, ed.Name+"."+m.Name)
			global.SetInitializer(llvm.ConstInt(i32, uint64(val), true))
			global.SetLinkage(llvm.PrivateLinkage)
			global.SetGlobalConstant(true)

			g.syms.Push(&symtab.Symbol{
				Name:       m.Name,
				Kind:       symtab.SymbolConstant,
				Type:       types.I32,
				Pos:        ed.Pos(),
				Constant:   true,
				ConstValue: val,
				Value:      global,
			})
		}
	}
}

// evalConstIntLiteral accepts only the bare integer literal the parser ever
// produces for an explicit enum value (spec.md §4.3's grammar has no room
// for a richer constant expression here).
func evalConstIntLiteral(x ast.Expr) (int64, error) {
	lit, ok := x.(*ast.IntLit)
	if !ok {
		return 0, errors.New("enum values must be integer literals")
	}
	return lit.Value, nil
}

// ---- pass 3: functions ----

func (g *Generator) declareFunctionsPass(decls []ast.Decl) {
	for _, d := range decls {
		switch n := d.(type) {
		case *ast.ExternDecl:
			g.declareFunc(n.Name, n.Params, n.Variadic, n.Return, n.Pos(), false)
		case *ast.FuncDecl:
			g.declareFunc(n.Name, n.Params, n.Variadic, n.Return, n.Pos(), true)
		}
	}
}

func (g *Generator) declareFunc(name string, params []ast.Param, variadic bool, retExpr ast.TypeExpr, pos lexer.Position, hasBody bool) {
	if _, dup := g.funcs[name]; dup {
		return
	}
	retTy, err := g.resolveTypeExpr(retExpr)
	if err != nil {
		g.errorf(pos, "return type of %q: %s", name, err)
		return
	}
	paramTypes := make([]types.Type, 0, len(params))
	llvmParams := make([]llvm.Type, 0, len(params))
	for _, p := range params {
		pt, err := g.resolveTypeExpr(p.Type)
		if err != nil {
			g.errorf(pos, "parameter %q of %q: %s", p.Name, name, err)
			continue
		}
		paramTypes = append(paramTypes, pt)
		llvmParams = append(llvmParams, g.llvmType(pt))
	}

	fnType := &types.FunctionType{Params: paramTypes, Return: retTy, Variadic: variadic}
	llvmFnType := llvm.FunctionType(g.llvmType(retTy), llvmParams, variadic)
	fnValue := llvm.AddFunction(g.module, name, llvmFnType)

	if hasBody && g.wasmExportAll {
		fnValue.SetLinkage(llvm.ExternalLinkage)
		fnValue.SetVisibility(llvm.DefaultVisibility)
	}

	info := &funcInfo{name: name, typ: fnType, value: fnValue, llvmType: llvmFnType}
	g.funcs[name] = info

	kind := symtab.SymbolExtern
	if hasBody {
		kind = symtab.SymbolFunction
	}
	g.syms.Push(&symtab.Symbol{Name: name, Kind: kind, Type: fnType, Pos: pos, Value: fnValue})
}
