package codegen

import (
	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/symtab"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
)

// typeOf statically infers x's type without emitting any IR. It mirrors
// lowerExpr's and lowerLValue's type bookkeeping exactly, node for node, so
// that lowering field/index bases can decide — before emitting anything —
// whether a base expression is an addressable aggregate (use lowerLValue) or
// a pointer-valued rvalue (use lowerExpr), without evaluating it twice.
func (g *Generator) typeOf(x ast.Expr) (types.Type, error) {
	switch n := x.(type) {
	case *ast.IntLit:
		return types.I32, nil
	case *ast.FloatLit:
		return types.F64, nil
	case *ast.StringLit:
		return types.Ptr(types.U8), nil
	case *ast.NullLit:
		return types.Ptr(types.Void), nil
	case *ast.ComptimeExpr:
		return types.I64, nil
	case *ast.SizeofExpr:
		return types.I64, nil
	case *ast.ReducerExpr:
		return types.I64, nil

	case *ast.Ident:
		sym := g.syms.Lookup(n.Name)
		if sym == nil {
			return nil, errors.Errorf("undefined name %q", n.Name)
		}
		return sym.Type, nil

	case *ast.UnaryExpr:
		return g.typeOfUnary(n)

	case *ast.BinaryExpr:
		lt, err := g.typeOf(n.Left)
		if err != nil {
			return nil, err
		}
		rt, err := g.typeOf(n.Right)
		if err != nil {
			return nil, err
		}
		return binaryResultType(n.Op, lt, rt)

	case *ast.TernaryExpr:
		return g.typeOf(n.Then)

	case *ast.CastExpr:
		return g.resolveTypeExpr(n.Type)

	case *ast.NewExpr:
		t, err := g.resolveTypeExpr(n.Type)
		if err != nil {
			return nil, err
		}
		return types.Ptr(t), nil

	case *ast.StructInitExpr:
		info, ok := g.structs[n.TypeName]
		if !ok {
			return nil, errors.Errorf("undefined struct %q", n.TypeName)
		}
		return types.Ptr(info.typ), nil

	case *ast.FieldExpr:
		baseTy, err := g.typeOf(n.X)
		if err != nil {
			return nil, err
		}
		st, ok := structTypeOf(baseTy)
		if !ok {
			return nil, errors.Errorf("%s is not a struct", baseTy)
		}
		idx := st.FieldIndex(n.Name)
		if idx < 0 {
			return nil, errors.Errorf("struct %q has no field %q", st.Name, n.Name)
		}
		return st.Fields[idx].Type, nil

	case *ast.IndexExpr:
		baseTy, err := g.typeOf(n.X)
		if err != nil {
			return nil, err
		}
		switch bt := baseTy.(type) {
		case *types.ArrayType:
			return bt.Elem, nil
		case *types.PointerType:
			return bt.Elem, nil
		default:
			return nil, errors.Errorf("%s is not indexable", baseTy)
		}

	case *ast.CallExpr:
		return g.typeOfCall(n)

	default:
		return nil, errors.Errorf("cannot infer type of %T", x)
	}
}

func (g *Generator) typeOfUnary(n *ast.UnaryExpr) (types.Type, error) {
	switch n.Op {
	case lexer.TokenAmp:
		xt, err := g.typeOf(n.X)
		if err != nil {
			return nil, err
		}
		return types.Ptr(xt), nil
	case lexer.TokenStar:
		xt, err := g.typeOf(n.X)
		if err != nil {
			return nil, err
		}
		pt, ok := xt.(*types.PointerType)
		if !ok {
			return nil, errors.Errorf("cannot dereference non-pointer %s", xt)
		}
		return pt.Elem, nil
	default:
		return g.typeOf(n.X)
	}
}

// typeOfCall resolves the callee's declared return type, including the
// UFCS rewrite (obj.method(args) -> method(obj, args)) when the callee is a
// field access whose name actually names a free function.
func (g *Generator) typeOfCall(n *ast.CallExpr) (types.Type, error) {
	if fe, ok := n.Callee.(*ast.FieldExpr); ok {
		if sym := g.syms.Lookup(fe.Name); sym != nil &&
			(sym.Kind == symtab.SymbolFunction || sym.Kind == symtab.SymbolExtern) {
			if ft, ok := sym.Type.(*types.FunctionType); ok {
				return ft.Return, nil
			}
		}
		// ordinary field access yielding a function-pointer value
		baseTy, err := g.typeOf(fe.X)
		if err != nil {
			return nil, err
		}
		st, ok := structTypeOf(baseTy)
		if !ok {
			return nil, errors.Errorf("%s is not a struct", baseTy)
		}
		idx := st.FieldIndex(fe.Name)
		if idx < 0 {
			return nil, errors.Errorf("struct %q has no field %q", st.Name, fe.Name)
		}
		ft, ok := fieldFuncType(st.Fields[idx].Type)
		if !ok {
			return nil, errors.Errorf("field %q is not callable", fe.Name)
		}
		return ft.Return, nil
	}

	if id, ok := n.Callee.(*ast.Ident); ok {
		if sym := g.syms.Lookup(id.Name); sym != nil {
			if ft, ok := sym.Type.(*types.FunctionType); ok {
				return ft.Return, nil
			}
			if pt, ok := sym.Type.(*types.PointerType); ok {
				if ft, ok := pt.Elem.(*types.FunctionType); ok {
					return ft.Return, nil
				}
			}
		}
		return nil, errors.Errorf("undefined function %q", id.Name)
	}

	ct, err := g.typeOf(n.Callee)
	if err != nil {
		return nil, err
	}
	if ft, ok := fieldFuncType(ct); ok {
		return ft.Return, nil
	}
	return nil, errors.Errorf("%s is not callable", ct)
}

func structTypeOf(t types.Type) (*types.StructType, bool) {
	switch v := t.(type) {
	case *types.StructType:
		return v, true
	case *types.PointerType:
		return structTypeOf(v.Elem)
	default:
		return nil, false
	}
}

func fieldFuncType(t types.Type) (*types.FunctionType, bool) {
	switch v := t.(type) {
	case *types.FunctionType:
		return v, true
	case *types.PointerType:
		return fieldFuncType(v.Elem)
	default:
		return nil, false
	}
}
