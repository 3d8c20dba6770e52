package codegen

import (
	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/comptime"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/symtab"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// lowerExpr evaluates x as an rvalue, returning the LLVM value it produces
// and the esc type it was produced at.
func (g *Generator) lowerExpr(x ast.Expr) (Value, error) {
	switch n := x.(type) {
	case *ast.IntLit:
		return Value{llvm.ConstInt(g.ctx.Int32Type(), uint64(n.Value), true), types.I32}, nil

	case *ast.FloatLit:
		return Value{llvm.ConstFloat(g.ctx.DoubleType(), n.Value), types.F64}, nil

	case *ast.StringLit:
		return Value{g.internString(string(n.Value)), types.Ptr(types.U8)}, nil

	case *ast.NullLit:
		t := types.Ptr(types.Void)
		return Value{llvm.ConstNull(g.llvmType(t)), t}, nil

	case *ast.Ident:
		return g.lowerIdent(n)

	case *ast.BinaryExpr:
		return g.lowerBinary(n)

	case *ast.UnaryExpr:
		return g.lowerUnary(n)

	case *ast.CallExpr:
		return g.lowerCall(n)

	case *ast.FieldExpr, *ast.IndexExpr:
		addr, ty, err := g.lowerLValue(x)
		if err != nil {
			return Value{}, err
		}
		return Value{g.builder.CreateLoad2(g.llvmType(ty), addr, ""), ty}, nil

	case *ast.CastExpr:
		return g.lowerCastExpr(n)

	case *ast.TernaryExpr:
		return g.lowerTernary(n)

	case *ast.SizeofExpr:
		t, err := g.resolveTypeExpr(n.Type)
		if err != nil {
			return Value{}, err
		}
		return Value{llvm.ConstInt(g.ctx.Int64Type(), uint64(g.sizeOf(t)), false), types.I64}, nil

	case *ast.NewExpr:
		return g.lowerNew(n)

	case *ast.StructInitExpr:
		return g.lowerStructInit(n)

	case *ast.ReducerExpr:
		return g.lowerReducer(n)

	case *ast.ComptimeExpr:
		val, err := comptime.Fold(n.X, g.sizeOfTypeExpr)
		if err != nil {
			return Value{}, err
		}
		return Value{llvm.ConstInt(g.ctx.Int64Type(), uint64(val), true), types.I64}, nil

	default:
		return Value{}, errors.Errorf("%s: unsupported expression %T", x.Pos(), x)
	}
}

func (g *Generator) lowerIdent(n *ast.Ident) (Value, error) {
	sym := g.syms.Lookup(n.Name)
	if sym == nil {
		return Value{}, errors.Errorf("%s: undefined name %q", n.Pos(), n.Name)
	}
	switch sym.Kind {
	case symtab.SymbolFunction, symtab.SymbolExtern:
		return Value{sym.Value.(llvm.Value), sym.Type}, nil
	case symtab.SymbolConstant:
		return Value{llvm.ConstInt(g.ctx.Int32Type(), uint64(sym.ConstValue), true), sym.Type}, nil
	default:
		addr := sym.Value.(llvm.Value)
		return Value{g.builder.CreateLoad2(g.llvmType(sym.Type), addr, n.Name), sym.Type}, nil
	}
}

// internString returns the (deduplicated) global C-string pointer for s.
func (g *Generator) internString(s string) llvm.Value {
	if v, ok := g.stringLits[s]; ok {
		return v
	}
	v := g.builder.CreateGlobalStringPtr(s, "str")
	g.stringLits[s] = v
	return v
}

// ---- lvalues ----

// lowerLValue evaluates x for its address: a variable's stack slot, a
// struct field, an array/pointer index, or a pointer dereference. It is the
// only path allowed to appear on the left of '=' (spec.md's "L-value"
// glossary entry).
func (g *Generator) lowerLValue(x ast.Expr) (llvm.Value, types.Type, error) {
	switch n := x.(type) {
	case *ast.Ident:
		sym := g.syms.Lookup(n.Name)
		if sym == nil {
			return llvm.Value{}, nil, errors.Errorf("%s: undefined name %q", n.Pos(), n.Name)
		}
		if !sym.CanAssign() {
			return llvm.Value{}, nil, errors.Errorf("%s: %q is not an lvalue", n.Pos(), n.Name)
		}
		return sym.Value.(llvm.Value), sym.Type, nil

	case *ast.UnaryExpr:
		if n.Op != lexer.TokenStar {
			return llvm.Value{}, nil, errors.Errorf("%s: not an lvalue", n.Pos())
		}
		v, err := g.lowerExpr(n.X)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		pt, ok := v.T.(*types.PointerType)
		if !ok {
			return llvm.Value{}, nil, errors.Errorf("%s: cannot dereference non-pointer %s", n.Pos(), v.T)
		}
		return v.V, pt.Elem, nil

	case *ast.FieldExpr:
		return g.lowerFieldLValue(n)

	case *ast.IndexExpr:
		return g.lowerIndexLValue(n)

	default:
		return llvm.Value{}, nil, errors.Errorf("%s: not an lvalue", x.Pos())
	}
}

// structPointerBase resolves x to a pointer-to-struct LLVM value, whichever
// way x denotes its struct: an addressable struct-by-value local (the
// address of the alloca already is the pointer GEP needs) or a
// pointer-typed expression (its loaded value already is the pointer).
func (g *Generator) structPointerBase(x ast.Expr) (llvm.Value, *types.StructType, error) {
	xt, err := g.typeOf(x)
	if err != nil {
		return llvm.Value{}, nil, err
	}
	if st, ok := xt.(*types.StructType); ok {
		addr, _, err := g.lowerLValue(x)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		return addr, st, nil
	}
	if pt, ok := xt.(*types.PointerType); ok {
		if st, ok := pt.Elem.(*types.StructType); ok {
			v, err := g.lowerExpr(x)
			if err != nil {
				return llvm.Value{}, nil, err
			}
			return v.V, st, nil
		}
	}
	return llvm.Value{}, nil, errors.Errorf("%s: not a struct or pointer to struct", xt)
}

func (g *Generator) lowerFieldLValue(n *ast.FieldExpr) (llvm.Value, types.Type, error) {
	base, st, err := g.structPointerBase(n.X)
	if err != nil {
		return llvm.Value{}, nil, errors.Wrapf(err, "%s", n.Pos())
	}
	idx := st.FieldIndex(n.Name)
	if idx < 0 {
		return llvm.Value{}, nil, errors.Errorf("%s: struct %q has no field %q", n.Pos(), st.Name, n.Name)
	}
	structLLVM := g.structs[st.Name].llvm
	i32 := g.ctx.Int32Type()
	addr := g.builder.CreateGEP2(structLLVM, base, []llvm.Value{
		llvm.ConstInt(i32, 0, false),
		llvm.ConstInt(i32, uint64(idx), false),
	}, "")
	return addr, st.Fields[idx].Type, nil
}

func (g *Generator) lowerIndexLValue(n *ast.IndexExpr) (llvm.Value, types.Type, error) {
	xt, err := g.typeOf(n.X)
	if err != nil {
		return llvm.Value{}, nil, err
	}
	idxV, err := g.lowerExpr(n.Index)
	if err != nil {
		return llvm.Value{}, nil, err
	}
	idxI64, err := g.coerce(idxV, types.I64)
	if err != nil {
		return llvm.Value{}, nil, err
	}

	switch t := xt.(type) {
	case *types.ArrayType:
		addr, _, err := g.lowerLValue(n.X)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		i32 := g.ctx.Int32Type()
		elemAddr := g.builder.CreateGEP2(g.llvmType(t), addr, []llvm.Value{
			llvm.ConstInt(i32, 0, false), idxI64,
		}, "")
		return elemAddr, t.Elem, nil

	case *types.PointerType:
		ptrVal, err := g.lowerExpr(n.X)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		elemAddr := g.builder.CreateGEP2(g.llvmType(t.Elem), ptrVal.V, []llvm.Value{idxI64}, "")
		return elemAddr, t.Elem, nil

	default:
		return llvm.Value{}, nil, errors.Errorf("%s: %s is not indexable", n.Pos(), xt)
	}
}

// ---- binary / call ----

func (g *Generator) lowerBinary(n *ast.BinaryExpr) (Value, error) {
	if n.Op == lexer.TokenAndAnd || n.Op == lexer.TokenOrOr {
		return g.lowerShortCircuit(n)
	}

	lv, err := g.lowerExpr(n.Left)
	if err != nil {
		return Value{}, err
	}
	rv, err := g.lowerExpr(n.Right)
	if err != nil {
		return Value{}, err
	}

	// Pointer arithmetic and pointer-difference take the raw values without
	// the usual numeric-widening coercion (spec.md §4.5: "pointer + int
	// steps by the pointee's stride; pointer - pointer yields i64").
	if types.IsPointer(lv.T) && types.IsInt(rv.T) {
		return g.lowerPointerArith(lv, rv, n.Op)
	}
	if types.IsPointer(rv.T) && types.IsInt(lv.T) && n.Op == lexer.TokenPlus {
		return g.lowerPointerArith(rv, lv, n.Op)
	}
	if types.IsPointer(lv.T) && types.IsPointer(rv.T) && n.Op == lexer.TokenMinus {
		return g.lowerPointerDiff(lv, rv)
	}

	resTy, err := binaryResultType(n.Op, lv.T, rv.T)
	if err != nil {
		return Value{}, errors.Wrapf(err, "%s", n.Pos())
	}

	if isComparisonOp(n.Op) {
		cmpTy := lv.T
		if types.IsFloat(lv.T) || types.IsFloat(rv.T) {
			cmpTy = types.F64
		} else {
			ct, err := binaryResultType(lexer.TokenPlus, lv.T, rv.T)
			if err == nil {
				cmpTy = ct
			}
		}
		lc, err := g.coerce(lv, cmpTy)
		if err != nil {
			return Value{}, err
		}
		rc, err := g.coerce(rv, cmpTy)
		if err != nil {
			return Value{}, err
		}
		boolV, err := g.lowerComparison(n.Op, lc, rc, cmpTy)
		if err != nil {
			return Value{}, err
		}
		return Value{g.builder.CreateZExt(boolV, g.ctx.Int32Type(), ""), types.I32}, nil
	}

	lc, err := g.coerce(lv, resTy)
	if err != nil {
		return Value{}, err
	}
	rc, err := g.coerce(rv, resTy)
	if err != nil {
		return Value{}, err
	}

	if types.IsFloat(resTy) {
		switch n.Op {
		case lexer.TokenPlus:
			return Value{g.builder.CreateFAdd(lc, rc, ""), resTy}, nil
		case lexer.TokenMinus:
			return Value{g.builder.CreateFSub(lc, rc, ""), resTy}, nil
		case lexer.TokenStar:
			return Value{g.builder.CreateFMul(lc, rc, ""), resTy}, nil
		case lexer.TokenSlash:
			return Value{g.builder.CreateFDiv(lc, rc, ""), resTy}, nil
		default:
			return Value{}, errors.Errorf("%s: unsupported float operator %s", n.Pos(), n.Op)
		}
	}

	it := resTy.(*types.IntType)
	switch n.Op {
	case lexer.TokenPlus:
		return Value{g.builder.CreateAdd(lc, rc, ""), resTy}, nil
	case lexer.TokenMinus:
		return Value{g.builder.CreateSub(lc, rc, ""), resTy}, nil
	case lexer.TokenStar:
		return Value{g.builder.CreateMul(lc, rc, ""), resTy}, nil
	case lexer.TokenSlash:
		if it.Signed {
			return Value{g.builder.CreateSDiv(lc, rc, ""), resTy}, nil
		}
		return Value{g.builder.CreateUDiv(lc, rc, ""), resTy}, nil
	case lexer.TokenPercent:
		if it.Signed {
			return Value{g.builder.CreateSRem(lc, rc, ""), resTy}, nil
		}
		return Value{g.builder.CreateURem(lc, rc, ""), resTy}, nil
	case lexer.TokenAmp:
		return Value{g.builder.CreateAnd(lc, rc, ""), resTy}, nil
	case lexer.TokenPipe:
		return Value{g.builder.CreateOr(lc, rc, ""), resTy}, nil
	case lexer.TokenCaret:
		return Value{g.builder.CreateXor(lc, rc, ""), resTy}, nil
	case lexer.TokenShl:
		return Value{g.builder.CreateShl(lc, rc, ""), resTy}, nil
	case lexer.TokenShr:
		if it.Signed {
			return Value{g.builder.CreateAShr(lc, rc, ""), resTy}, nil
		}
		return Value{g.builder.CreateLShr(lc, rc, ""), resTy}, nil
	default:
		return Value{}, errors.Errorf("%s: unsupported operator %s", n.Pos(), n.Op)
	}
}

func (g *Generator) lowerComparison(op lexer.TokenType, l, r llvm.Value, ty types.Type) (llvm.Value, error) {
	if types.IsFloat(ty) {
		pred, ok := map[lexer.TokenType]llvm.FloatPredicate{
			lexer.TokenEq: llvm.FloatOEQ, lexer.TokenNeq: llvm.FloatONE,
			lexer.TokenLt: llvm.FloatOLT, lexer.TokenLeq: llvm.FloatOLE,
			lexer.TokenGt: llvm.FloatOGT, lexer.TokenGeq: llvm.FloatOGE,
		}[op]
		if !ok {
			return llvm.Value{}, errors.Errorf("unsupported comparison %s", op)
		}
		return g.builder.CreateFCmp(pred, l, r, ""), nil
	}
	signed := true
	if it, ok := ty.(*types.IntType); ok {
		signed = it.Signed
	}
	preds := map[lexer.TokenType]llvm.IntPredicate{
		lexer.TokenEq: llvm.IntEQ, lexer.TokenNeq: llvm.IntNE,
	}
	if signed {
		preds[lexer.TokenLt] = llvm.IntSLT
		preds[lexer.TokenLeq] = llvm.IntSLE
		preds[lexer.TokenGt] = llvm.IntSGT
		preds[lexer.TokenGeq] = llvm.IntSGE
	} else {
		preds[lexer.TokenLt] = llvm.IntULT
		preds[lexer.TokenLeq] = llvm.IntULE
		preds[lexer.TokenGt] = llvm.IntUGT
		preds[lexer.TokenGeq] = llvm.IntUGE
	}
	pred, ok := preds[op]
	if !ok {
		return llvm.Value{}, errors.Errorf("unsupported comparison %s", op)
	}
	return g.builder.CreateICmp(pred, l, r, ""), nil
}

func (g *Generator) lowerPointerArith(ptr, idx Value, op lexer.TokenType) (Value, error) {
	pt := ptr.T.(*types.PointerType)
	signedIdx, err := g.coerce(idx, types.I64)
	if err != nil {
		return Value{}, err
	}
	if op == lexer.TokenMinus {
		signedIdx = g.builder.CreateNeg(signedIdx, "")
	} else if op != lexer.TokenPlus {
		return Value{}, errors.Errorf("unsupported pointer operator %s", op)
	}
	addr := g.builder.CreateGEP2(g.llvmType(pt.Elem), ptr.V, []llvm.Value{signedIdx}, "")
	return Value{addr, pt}, nil
}

func (g *Generator) lowerPointerDiff(l, r Value) (Value, error) {
	i64 := g.ctx.Int64Type()
	lv := g.builder.CreatePtrToInt(l.V, i64, "")
	rv := g.builder.CreatePtrToInt(r.V, i64, "")
	diff := g.builder.CreateSub(lv, rv, "")
	elemSize := g.sizeOf(l.T.(*types.PointerType).Elem)
	if elemSize > 1 {
		diff = g.builder.CreateSDiv(diff, llvm.ConstInt(i64, uint64(elemSize), false), "")
	}
	return Value{diff, types.I64}, nil
}

// lowerShortCircuit lowers && and || with real control flow rather than a
// bitwise-and/or, since the right-hand side must not execute when the left
// side already determines the result (spec.md §4.5).
func (g *Generator) lowerShortCircuit(n *ast.BinaryExpr) (Value, error) {
	lv, err := g.lowerExpr(n.Left)
	if err != nil {
		return Value{}, err
	}
	lb, err := g.toBoolI1(lv)
	if err != nil {
		return Value{}, err
	}

	fn := g.curFunc.value
	rhsBB := g.ctx.AddBasicBlock(fn, "sc.rhs")
	mergeBB := g.ctx.AddBasicBlock(fn, "sc.merge")
	startBB := g.builder.GetInsertBlock()

	if n.Op == lexer.TokenAndAnd {
		g.builder.CreateCondBr(lb, rhsBB, mergeBB)
	} else {
		g.builder.CreateCondBr(lb, mergeBB, rhsBB)
	}

	g.builder.SetInsertPointAtEnd(rhsBB)
	rv, err := g.lowerExpr(n.Right)
	if err != nil {
		return Value{}, err
	}
	rb, err := g.toBoolI1(rv)
	if err != nil {
		return Value{}, err
	}
	rhsEndBB := g.builder.GetInsertBlock()
	g.builder.CreateBr(mergeBB)

	g.builder.SetInsertPointAtEnd(mergeBB)
	i1 := g.ctx.Int1Type()
	phi := g.builder.CreatePHI(i1, "")
	shortCircuitConst := llvm.ConstInt(i1, boolToUint(n.Op == lexer.TokenOrOr), false)
	phi.AddIncoming([]llvm.Value{shortCircuitConst, rb}, []llvm.BasicBlock{startBB, rhsEndBB})

	return Value{g.builder.CreateZExt(phi, g.ctx.Int32Type(), ""), types.I32}, nil
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// lowerCall lowers a direct call, an indirect call through a function-
// pointer value, or a UFCS rewrite ("obj.method(args)" -> "method(obj,
// args)" when method names a free function rather than a struct field).
func (g *Generator) lowerCall(n *ast.CallExpr) (Value, error) {
	if fe, ok := n.Callee.(*ast.FieldExpr); ok {
		if sym := g.syms.Lookup(fe.Name); sym != nil &&
			(sym.Kind == symtab.SymbolFunction || sym.Kind == symtab.SymbolExtern) {
			args := append([]ast.Expr{fe.X}, n.Args...)
			return g.emitCall(sym.Value.(llvm.Value), sym.Type.(*types.FunctionType), args, n.Pos())
		}
		// plain field access to a function-pointer-valued field
		fieldAddr, fieldTy, err := g.lowerFieldLValue(fe)
		if err != nil {
			return Value{}, err
		}
		ft, ok := fieldFuncType(fieldTy)
		if !ok {
			return Value{}, errors.Errorf("%s: field %q is not callable", n.Pos(), fe.Name)
		}
		fnVal := g.builder.CreateLoad2(g.llvmType(fieldTy), fieldAddr, "")
		return g.emitIndirectCall(fnVal, ft, n.Args, n.Pos())
	}

	if id, ok := n.Callee.(*ast.Ident); ok {
		sym := g.syms.Lookup(id.Name)
		if sym == nil {
			return Value{}, errors.Errorf("%s: undefined function %q", n.Pos(), id.Name)
		}
		if ft, ok := sym.Type.(*types.FunctionType); ok {
			return g.emitCall(sym.Value.(llvm.Value), ft, n.Args, n.Pos())
		}
		if pt, ok := sym.Type.(*types.PointerType); ok {
			if ft, ok := pt.Elem.(*types.FunctionType); ok {
				fnVal := g.builder.CreateLoad2(g.llvmType(sym.Type), sym.Value.(llvm.Value), "")
				return g.emitIndirectCall(fnVal, ft, n.Args, n.Pos())
			}
		}
		return Value{}, errors.Errorf("%s: %q is not callable", n.Pos(), id.Name)
	}

	v, err := g.lowerExpr(n.Callee)
	if err != nil {
		return Value{}, err
	}
	ft, ok := fieldFuncType(v.T)
	if !ok {
		return Value{}, errors.Errorf("%s: value is not callable", n.Pos())
	}
	return g.emitIndirectCall(v.V, ft, n.Args, n.Pos())
}

func (g *Generator) emitCall(fn llvm.Value, ft *types.FunctionType, args []ast.Expr, pos interface{ String() string }) (Value, error) {
	return g.emitIndirectCall(fn, ft, args, pos)
}

func (g *Generator) emitIndirectCall(fn llvm.Value, ft *types.FunctionType, args []ast.Expr, pos interface{ String() string }) (Value, error) {
	llvmArgs := make([]llvm.Value, 0, len(args))
	for i, a := range args {
		av, err := g.lowerExpr(a)
		if err != nil {
			return Value{}, err
		}
		if i < len(ft.Params) {
			coerced, err := g.coerce(av, ft.Params[i])
			if err != nil {
				return Value{}, errors.Wrapf(err, "%s: argument %d", pos, i+1)
			}
			llvmArgs = append(llvmArgs, coerced)
		} else {
			llvmArgs = append(llvmArgs, av.V) // variadic tail: no coercion
		}
	}
	llvmFnType := llvm.FunctionType(g.llvmType(ft.Return), typeList(g, ft.Params), ft.Variadic)
	call := g.builder.CreateCall2(llvmFnType, fn, llvmArgs, "")
	return Value{call, ft.Return}, nil
}

func typeList(g *Generator, ts []types.Type) []llvm.Type {
	out := make([]llvm.Type, len(ts))
	for i, t := range ts {
		out[i] = g.llvmType(t)
	}
	return out
}

// ---- unary / cast / ternary ----

func (g *Generator) lowerUnary(n *ast.UnaryExpr) (Value, error) {
	switch n.Op {
	case lexer.TokenAmp:
		addr, ty, err := g.lowerLValue(n.X)
		if err != nil {
			return Value{}, err
		}
		return Value{addr, types.Ptr(ty)}, nil

	case lexer.TokenStar:
		v, err := g.lowerExpr(n.X)
		if err != nil {
			return Value{}, err
		}
		pt, ok := v.T.(*types.PointerType)
		if !ok {
			return Value{}, errors.Errorf("%s: cannot dereference non-pointer %s", n.Pos(), v.T)
		}
		return Value{g.builder.CreateLoad2(g.llvmType(pt.Elem), v.V, ""), pt.Elem}, nil

	case lexer.TokenMinus:
		v, err := g.lowerExpr(n.X)
		if err != nil {
			return Value{}, err
		}
		if types.IsFloat(v.T) {
			return Value{g.builder.CreateFNeg(v.V, ""), v.T}, nil
		}
		return Value{g.builder.CreateNeg(v.V, ""), v.T}, nil

	case lexer.TokenBang, lexer.TokenTilde:
		v, err := g.lowerExpr(n.X)
		if err != nil {
			return Value{}, err
		}
		if !types.IsInt(v.T) {
			return Value{}, errors.Errorf("%s: '!' requires an integer operand, got %s", n.Pos(), v.T)
		}
		return Value{g.builder.CreateNot(v.V, ""), v.T}, nil

	default:
		return Value{}, errors.Errorf("%s: unsupported unary operator %s", n.Pos(), n.Op)
	}
}

func (g *Generator) lowerCastExpr(n *ast.CastExpr) (Value, error) {
	v, err := g.lowerExpr(n.X)
	if err != nil {
		return Value{}, err
	}
	target, err := g.resolveTypeExpr(n.Type)
	if err != nil {
		return Value{}, err
	}
	casted, err := g.coerce(v, target)
	if err != nil {
		return Value{}, errors.Wrapf(err, "%s", n.Pos())
	}
	return Value{casted, target}, nil
}

func (g *Generator) lowerTernary(n *ast.TernaryExpr) (Value, error) {
	condV, err := g.lowerExpr(n.Cond)
	if err != nil {
		return Value{}, err
	}
	condB, err := g.toBoolI1(condV)
	if err != nil {
		return Value{}, err
	}

	fn := g.curFunc.value
	thenBB := g.ctx.AddBasicBlock(fn, "ternary.then")
	elseBB := g.ctx.AddBasicBlock(fn, "ternary.else")
	mergeBB := g.ctx.AddBasicBlock(fn, "ternary.merge")
	g.builder.CreateCondBr(condB, thenBB, elseBB)

	g.builder.SetInsertPointAtEnd(thenBB)
	thenV, err := g.lowerExpr(n.Then)
	if err != nil {
		return Value{}, err
	}
	thenEndBB := g.builder.GetInsertBlock()
	g.builder.CreateBr(mergeBB)

	g.builder.SetInsertPointAtEnd(elseBB)
	elseVraw, err := g.lowerExpr(n.Else)
	if err != nil {
		return Value{}, err
	}
	elseCoerced, err := g.coerce(elseVraw, thenV.T)
	if err != nil {
		return Value{}, err
	}
	elseEndBB := g.builder.GetInsertBlock()
	g.builder.CreateBr(mergeBB)

	g.builder.SetInsertPointAtEnd(mergeBB)
	phi := g.builder.CreatePHI(g.llvmType(thenV.T), "")
	phi.AddIncoming([]llvm.Value{thenV.V, elseCoerced}, []llvm.BasicBlock{thenEndBB, elseEndBB})
	return Value{phi, thenV.T}, nil
}

// ---- new / struct-init ----

// lowerNew lowers "nw T" to a malloc call sized by T's layout, bitcast to
// *T. `malloc` must be in scope — supplied by the standard prelude.
func (g *Generator) lowerNew(n *ast.NewExpr) (Value, error) {
	t, err := g.resolveTypeExpr(n.Type)
	if err != nil {
		return Value{}, err
	}
	return g.heapAlloc(t, n.Pos())
}

func (g *Generator) heapAlloc(t types.Type, pos interface{ String() string }) (Value, error) {
	mallocSym := g.syms.Lookup("malloc")
	if mallocSym == nil {
		return Value{}, errors.Errorf("%s: 'malloc' is not in scope (missing standard prelude?)", pos)
	}
	mallocFn := mallocSym.Value.(llvm.Value)
	mallocTy := mallocSym.Type.(*types.FunctionType)
	size := llvm.ConstInt(g.ctx.Int64Type(), uint64(g.sizeOf(t)), false)
	raw := g.builder.CreateCall2(g.llvmType(mallocTy), mallocFn, []llvm.Value{size}, "")
	ptrTy := types.Ptr(t)
	casted := g.builder.CreateBitCast(raw, g.llvmType(ptrTy), "")
	return Value{casted, ptrTy}, nil
}

// lowerStructInit lowers "TypeName{ f: v, ... }" (and its heap-allocating
// "nw TypeName{...}" spelling — both forms allocate, per spec.md §4.5:
// "Struct-init literal allocates via malloc").
func (g *Generator) lowerStructInit(n *ast.StructInitExpr) (Value, error) {
	info, ok := g.structs[n.TypeName]
	if !ok {
		return Value{}, errors.Errorf("%s: undefined struct %q", n.Pos(), n.TypeName)
	}
	alloc, err := g.heapAlloc(info.typ, n.Pos())
	if err != nil {
		return Value{}, err
	}
	for _, fld := range n.Fields {
		idx := info.typ.FieldIndex(fld.Name)
		if idx < 0 {
			return Value{}, errors.Errorf("%s: struct %q has no field %q", n.Pos(), n.TypeName, fld.Name)
		}
		val, err := g.lowerExpr(fld.Value)
		if err != nil {
			return Value{}, err
		}
		coerced, err := g.coerce(val, info.typ.Fields[idx].Type)
		if err != nil {
			return Value{}, err
		}
		i32 := g.ctx.Int32Type()
		addr := g.builder.CreateGEP2(info.llvm, alloc.V, []llvm.Value{
			llvm.ConstInt(i32, 0, false),
			llvm.ConstInt(i32, uint64(idx), false),
		}, "")
		g.builder.CreateStore(coerced, addr)
	}
	return alloc, nil
}
