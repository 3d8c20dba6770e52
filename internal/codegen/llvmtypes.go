package codegen

import (
	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// resolveTypeExpr turns the parser's syntactic TypeExpr into a concrete
// internal/types.Type, consulting the struct table for any name that isn't
// a primitive keyword (spec.md §3: "named struct ... resolved against a
// table during codegen").
func (g *Generator) resolveTypeExpr(te ast.TypeExpr) (types.Type, error) {
	switch n := te.(type) {
	case *ast.NamedTypeExpr:
		if t, ok := types.FromName(n.Name); ok {
			return t, nil
		}
		if info, ok := g.structs[n.Name]; ok {
			return info.typ, nil
		}
		return nil, errors.Errorf("undefined struct %q", n.Name)

	case *ast.PointerTypeExpr:
		elem, err := g.resolveTypeExpr(n.Elem)
		if err != nil {
			return nil, err
		}
		return types.Ptr(elem), nil

	case *ast.ArrayTypeExpr:
		elem, err := g.resolveTypeExpr(n.Elem)
		if err != nil {
			return nil, err
		}
		return &types.ArrayType{Elem: elem, Len: int(n.Len)}, nil

	case *ast.FuncTypeExpr:
		params := make([]types.Type, 0, len(n.Params))
		for _, p := range n.Params {
			pt, err := g.resolveTypeExpr(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
		ret, err := g.resolveTypeExpr(n.Return)
		if err != nil {
			return nil, err
		}
		return &types.FunctionType{Params: params, Return: ret, Variadic: n.Variadic}, nil

	default:
		return nil, errors.Errorf("unsupported type expression %T", te)
	}
}

// llvmType maps a resolved types.Type to its LLVM representation. Every
// pointer is built with an explicit element type even though the target
// LLVM version may treat pointers as opaque at the IR level, because every
// load/store/GEP in this package is emitted through the *2-suffixed,
// explicit-element-type builder calls spec.md §9 requires.
func (g *Generator) llvmType(t types.Type) llvm.Type {
	switch t.Kind() {
	case types.KindVoid:
		return g.ctx.VoidType()

	case types.KindInt:
		it := t.(*types.IntType)
		switch it.Width {
		case 8:
			return g.ctx.Int8Type()
		case 16:
			return g.ctx.Int16Type()
		case 32:
			return g.ctx.Int32Type()
		case 64:
			return g.ctx.Int64Type()
		default:
			return g.ctx.Int32Type()
		}

	case types.KindFloat:
		ft := t.(*types.FloatType)
		if ft.Width == 32 {
			return g.ctx.FloatType()
		}
		return g.ctx.DoubleType()

	case types.KindPointer:
		pt := t.(*types.PointerType)
		elem := g.llvmType(pt.Elem)
		if elem.TypeKind() == llvm.VoidTypeKind {
			// void* has no sized pointee in LLVM; alias it to i8* the way
			// the prelude's malloc/free signatures expect.
			elem = g.ctx.Int8Type()
		}
		return llvm.PointerType(elem, 0)

	case types.KindArray:
		at := t.(*types.ArrayType)
		return llvm.ArrayType(g.llvmType(at.Elem), at.Len)

	case types.KindStruct:
		st := t.(*types.StructType)
		if info, ok := g.structs[st.Name]; ok {
			return info.llvm
		}
		return g.ctx.StructCreateNamed(st.Name)

	case types.KindFunction:
		ft := t.(*types.FunctionType)
		params := make([]llvm.Type, len(ft.Params))
		for i, p := range ft.Params {
			params[i] = g.llvmType(p)
		}
		return llvm.FunctionType(g.llvmType(ft.Return), params, ft.Variadic)

	default:
		return g.ctx.VoidType()
	}
}

// sizeOf is the target's ABI layout size for t, in bytes — the value both
// `sz T` and the `nw`/struct-init heap allocators pass to malloc.
func (g *Generator) sizeOf(t types.Type) int64 {
	return int64(g.targetData().ABISizeOfType(g.llvmType(t)))
}

// sizeOfTypeExpr resolves and measures a syntactic type in one step; it is
// handed to internal/comptime as the SizeofFunc callback for "sz Type"
// inside a "ct" block.
func (g *Generator) sizeOfTypeExpr(te ast.TypeExpr) (int64, error) {
	t, err := g.resolveTypeExpr(te)
	if err != nil {
		return 0, err
	}
	return g.sizeOf(t), nil
}
