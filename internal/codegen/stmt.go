package codegen

import (
	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/symtab"
	"github.com/hassan/esc/internal/types"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// lowerFunctionBodiesPass is pass 3b: every FuncDecl's body is lowered now
// that every struct, enum, and function signature (including ones declared
// later in the file) is already registered.
func (g *Generator) lowerFunctionBodiesPass(decls []ast.Decl) {
	for _, d := range decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := g.lowerFuncBody(fd); err != nil {
			g.errorf(fd.Pos(), "%s", err)
		}
	}
}

func (g *Generator) lowerFuncBody(fd *ast.FuncDecl) error {
	info := g.funcs[fd.Name]
	if info == nil {
		return errors.Errorf("function %q was not registered", fd.Name)
	}

	mark := g.syms.Mark()
	defer g.syms.Restore(mark)

	g.curFunc = info
	g.curRetType = info.typ.Return
	g.defers = nil
	savedBreak, savedCont := g.breakTargets, g.contTargets
	g.breakTargets, g.contTargets = nil, nil
	defer func() {
		g.curFunc = nil
		g.breakTargets, g.contTargets = savedBreak, savedCont
	}()

	entry := g.ctx.AddBasicBlock(info.value, "entry")
	g.builder.SetInsertPointAtEnd(entry)

	for i, p := range fd.Params {
		pt := info.typ.Params[i]
		alloca := g.builder.CreateAlloca(g.llvmType(pt), p.Name)
		g.builder.CreateStore(info.value.Param(i), alloca)
		g.syms.Push(&symtab.Symbol{
			Name: p.Name, Kind: symtab.SymbolParameter, Type: pt,
			Pos: fd.Pos(), Value: alloca,
		})
	}

	if err := g.lowerBlock(fd.Body); err != nil {
		return err
	}

	// Implicit fall-through return: the parser already rewrites a trailing
	// expression-as-value into a ReturnStmt when the declared return type is
	// non-void, so reaching here with no terminator means either a void
	// function's bare fall-through (lowered to "ret void") or a non-void body
	// that ends without a ret (lowered to a return of the zero value).
	if g.builder.GetInsertBlock().LastInstruction().IsNil() || !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.emitDefers()
		if !blockIsTerminated(g.builder.GetInsertBlock()) {
			if info.typ.Return.Kind() == types.KindVoid {
				g.builder.CreateRetVoid()
			} else {
				g.builder.CreateRet(llvm.ConstNull(g.llvmType(info.typ.Return)))
			}
		}
	}
	return nil
}

func blockIsTerminated(bb llvm.BasicBlock) bool {
	last := bb.LastInstruction()
	if last.IsNil() {
		return false
	}
	return !last.IsATerminatorInst().IsNil()
}

func (g *Generator) lowerBlock(b *ast.BlockStmt) error {
	mark := g.syms.Mark()
	defer g.syms.Restore(mark)
	for _, s := range b.Stmts {
		if err := g.lowerStmt(s); err != nil {
			return err
		}
		if blockIsTerminated(g.builder.GetInsertBlock()) {
			break
		}
	}
	return nil
}

func (g *Generator) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.BlockStmt:
		return g.lowerBlock(n)
	case *ast.VarDeclStmt:
		return g.lowerVarDecl(n)
	case *ast.AssignStmt:
		return g.lowerAssign(n)
	case *ast.ExprStmt:
		_, err := g.lowerExpr(n.X)
		return err
	case *ast.ReturnStmt:
		return g.lowerReturn(n)
	case *ast.IfStmt:
		return g.lowerIf(n)
	case *ast.WhileStmt:
		return g.lowerWhile(n)
	case *ast.ForStmt:
		return g.lowerFor(n)
	case *ast.BreakStmt:
		if len(g.breakTargets) == 0 {
			return errors.Errorf("%s: 'brk' outside a loop", n.Pos())
		}
		g.builder.CreateBr(g.breakTargets[len(g.breakTargets)-1])
		return nil
	case *ast.ContinueStmt:
		if len(g.contTargets) == 0 {
			return errors.Errorf("%s: 'cont' outside a loop", n.Pos())
		}
		g.builder.CreateBr(g.contTargets[len(g.contTargets)-1])
		return nil
	case *ast.MatchStmt:
		return g.lowerMatch(n)
	case *ast.DeferStmt:
		g.defers = append(g.defers, n)
		return nil
	case *ast.DeleteStmt:
		return g.lowerDelete(n)
	case *ast.AsmStmt:
		return g.lowerAsm(n)
	default:
		return errors.Errorf("%s: unsupported statement %T", s.Pos(), s)
	}
}

func (g *Generator) lowerVarDecl(n *ast.VarDeclStmt) error {
	val, err := g.lowerExpr(n.Init)
	if err != nil {
		return err
	}
	declTy := val.T
	if n.Type != nil {
		declTy, err = g.resolveTypeExpr(n.Type)
		if err != nil {
			return err
		}
	}
	coerced, err := g.coerce(val, declTy)
	if err != nil {
		return errors.Wrapf(err, "%s: initializer for %q", n.Pos(), n.Name)
	}
	alloca := g.builder.CreateAlloca(g.llvmType(declTy), n.Name)
	g.builder.CreateStore(coerced, alloca)
	g.syms.Push(&symtab.Symbol{
		Name: n.Name, Kind: symtab.SymbolVariable, Type: declTy,
		Pos: n.Pos(), Value: alloca,
	})
	return nil
}

func (g *Generator) lowerAssign(n *ast.AssignStmt) error {
	addr, ty, err := g.lowerLValue(n.Target)
	if err != nil {
		return err
	}
	rhs, err := g.lowerExpr(n.Value)
	if err != nil {
		return err
	}

	// The parser desugars every compound assignment ('+=' etc.) to a plain
	// '=' with the operation spelled out in Value ("target = target op
	// value") before AssignStmt is ever built, so n.Op is always
	// TokenAssign here.
	coerced, err := g.coerce(rhs, ty)
	if err != nil {
		return errors.Wrapf(err, "%s", n.Pos())
	}
	g.builder.CreateStore(coerced, addr)
	return nil
}

func (g *Generator) lowerReturn(n *ast.ReturnStmt) error {
	if n.Value == nil {
		g.emitDefers()
		if !blockIsTerminated(g.builder.GetInsertBlock()) {
			g.builder.CreateRetVoid()
		}
		return nil
	}
	val, err := g.lowerExpr(n.Value)
	if err != nil {
		return err
	}
	coerced, err := g.coerce(val, g.curRetType)
	if err != nil {
		return errors.Wrapf(err, "%s: return value", n.Pos())
	}
	g.emitDefers()
	if !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.builder.CreateRet(coerced)
	}
	return nil
}

// emitDefers runs the function's pending defers in reverse registration
// order, at the current insertion point, just before any return terminator
// (spec.md §4.5: defers are per-function, not per-scope, and never run on
// break/continue).
//
// A deferred statement can itself be a "ret" (spec.md §8 scenario 5: "defer
// ret 7" overrides the value an outer "ret 3" already computed), so the
// pending list is snapshotted and cleared before running it: lowerStmt on a
// deferred ReturnStmt calls back into lowerReturn, which calls emitDefers
// again, and that nested call must see an empty list rather than replay the
// same defers forever. Once a deferred statement terminates the block (its
// own "ret"), the remaining defers below it never run, matching how a real
// return unwinds — the rest of the stack is moot once one frame has left.
func (g *Generator) emitDefers() {
	pending := g.defers
	g.defers = nil
	for i := len(pending) - 1; i >= 0; i-- {
		if blockIsTerminated(g.builder.GetInsertBlock()) {
			break
		}
		stmt := pending[i].(*ast.DeferStmt).Stmt
		if err := g.lowerStmt(stmt); err != nil {
			g.errorf(pending[i].Pos(), "deferred statement: %s", err)
		}
	}
}

func (g *Generator) lowerIf(n *ast.IfStmt) error {
	condV, err := g.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	condB, err := g.toBoolI1(condV)
	if err != nil {
		return err
	}

	fn := g.curFunc.value
	thenBB := g.ctx.AddBasicBlock(fn, "if.then")
	mergeBB := g.ctx.AddBasicBlock(fn, "if.merge")
	elseBB := mergeBB
	if n.Else != nil {
		elseBB = g.ctx.AddBasicBlock(fn, "if.else")
	}
	g.builder.CreateCondBr(condB, thenBB, elseBB)

	g.builder.SetInsertPointAtEnd(thenBB)
	if err := g.lowerBlock(n.Then); err != nil {
		return err
	}
	if !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.builder.CreateBr(mergeBB)
	}

	if n.Else != nil {
		g.builder.SetInsertPointAtEnd(elseBB)
		if err := g.lowerStmt(n.Else); err != nil {
			return err
		}
		if !blockIsTerminated(g.builder.GetInsertBlock()) {
			g.builder.CreateBr(mergeBB)
		}
	}

	g.builder.SetInsertPointAtEnd(mergeBB)
	return nil
}

func (g *Generator) lowerWhile(n *ast.WhileStmt) error {
	fn := g.curFunc.value
	condBB := g.ctx.AddBasicBlock(fn, "wh.cond")
	bodyBB := g.ctx.AddBasicBlock(fn, "wh.body")
	endBB := g.ctx.AddBasicBlock(fn, "wh.end")

	g.builder.CreateBr(condBB)
	g.builder.SetInsertPointAtEnd(condBB)
	condV, err := g.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	condB, err := g.toBoolI1(condV)
	if err != nil {
		return err
	}
	g.builder.CreateCondBr(condB, bodyBB, endBB)

	g.breakTargets = append(g.breakTargets, endBB)
	g.contTargets = append(g.contTargets, condBB)
	g.builder.SetInsertPointAtEnd(bodyBB)
	if err := g.lowerBlock(n.Body); err != nil {
		return err
	}
	if !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.builder.CreateBr(condBB)
	}
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.contTargets = g.contTargets[:len(g.contTargets)-1]

	g.builder.SetInsertPointAtEnd(endBB)
	return nil
}

// lowerFor lowers "for x := a..b { body }" to a counted loop: an induction
// variable alloca, a comparison against End (exclusive or inclusive per
// n.Range.Inclusive), and an increment before branching back.
func (g *Generator) lowerFor(n *ast.ForStmt) error {
	startV, err := g.lowerExpr(n.Range.Start)
	if err != nil {
		return err
	}
	endV, err := g.lowerExpr(n.Range.End)
	if err != nil {
		return err
	}
	ivTy, err := binaryResultType(lexer.TokenPlus, startV.T, endV.T)
	if err != nil {
		return err
	}
	startC, err := g.coerce(startV, ivTy)
	if err != nil {
		return err
	}
	endC, err := g.coerce(endV, ivTy)
	if err != nil {
		return err
	}

	ivAddr := g.builder.CreateAlloca(g.llvmType(ivTy), n.Var)
	g.builder.CreateStore(startC, ivAddr)

	mark := g.syms.Mark()
	g.syms.Push(&symtab.Symbol{Name: n.Var, Kind: symtab.SymbolVariable, Type: ivTy, Pos: n.Pos(), Value: ivAddr})

	fn := g.curFunc.value
	condBB := g.ctx.AddBasicBlock(fn, "for.cond")
	bodyBB := g.ctx.AddBasicBlock(fn, "for.body")
	incBB := g.ctx.AddBasicBlock(fn, "for.inc")
	endBB := g.ctx.AddBasicBlock(fn, "for.end")

	g.builder.CreateBr(condBB)
	g.builder.SetInsertPointAtEnd(condBB)
	cur := g.builder.CreateLoad2(g.llvmType(ivTy), ivAddr, "")
	it, _ := ivTy.(*types.IntType)
	pred := llvm.IntSLT
	if it != nil && !it.Signed {
		pred = llvm.IntULT
	}
	if n.Range.Inclusive {
		if it != nil && !it.Signed {
			pred = llvm.IntULE
		} else {
			pred = llvm.IntSLE
		}
	}
	cond := g.builder.CreateICmp(pred, cur, endC, "")
	g.builder.CreateCondBr(cond, bodyBB, endBB)

	g.breakTargets = append(g.breakTargets, endBB)
	g.contTargets = append(g.contTargets, incBB)
	g.builder.SetInsertPointAtEnd(bodyBB)
	if err := g.lowerBlock(n.Body); err != nil {
		return err
	}
	if !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.builder.CreateBr(incBB)
	}
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.contTargets = g.contTargets[:len(g.contTargets)-1]

	g.builder.SetInsertPointAtEnd(incBB)
	curInc := g.builder.CreateLoad2(g.llvmType(ivTy), ivAddr, "")
	next := g.builder.CreateAdd(curInc, llvm.ConstInt(g.llvmType(ivTy), 1, false), "")
	g.builder.CreateStore(next, ivAddr)
	g.builder.CreateBr(condBB)

	g.builder.SetInsertPointAtEnd(endBB)
	g.syms.Restore(mark)
	return nil
}

// lowerMatch lowers "match subject { v1 { b1 } v2 { b2 } _ { default } }" to a
// linear chain of equality-compare diamonds, evaluating subject exactly once
// (spec.md §4.5).
func (g *Generator) lowerMatch(n *ast.MatchStmt) error {
	subjV, err := g.lowerExpr(n.Subject)
	if err != nil {
		return err
	}

	fn := g.curFunc.value
	endBB := g.ctx.AddBasicBlock(fn, "match.end")

	for _, c := range n.Cases {
		caseV, err := g.lowerExpr(c.Value)
		if err != nil {
			return err
		}
		caseC, err := g.coerce(caseV, subjV.T)
		if err != nil {
			return err
		}
		eq, err := g.lowerComparison(lexer.TokenEq, subjV.V, caseC, subjV.T)
		if err != nil {
			return err
		}
		bodyBB := g.ctx.AddBasicBlock(fn, "match.body")
		nextBB := g.ctx.AddBasicBlock(fn, "match.next")
		g.builder.CreateCondBr(eq, bodyBB, nextBB)

		g.builder.SetInsertPointAtEnd(bodyBB)
		if err := g.lowerBlock(c.Body); err != nil {
			return err
		}
		if !blockIsTerminated(g.builder.GetInsertBlock()) {
			g.builder.CreateBr(endBB)
		}
		g.builder.SetInsertPointAtEnd(nextBB)
	}

	if n.Default != nil {
		if err := g.lowerBlock(n.Default); err != nil {
			return err
		}
	}
	if !blockIsTerminated(g.builder.GetInsertBlock()) {
		g.builder.CreateBr(endBB)
	}

	g.builder.SetInsertPointAtEnd(endBB)
	return nil
}

// lowerDelete frees a pointer previously produced by nw/struct-init — both
// of which always allocate via malloc, so del always lowers to a plain
// free() call (spec.md §4.5).
func (g *Generator) lowerDelete(n *ast.DeleteStmt) error {
	v, err := g.lowerExpr(n.X)
	if err != nil {
		return err
	}
	if !types.IsPointer(v.T) {
		return errors.Errorf("%s: 'del' requires a pointer, got %s", n.Pos(), v.T)
	}
	freeSym := g.syms.Lookup("free")
	if freeSym == nil {
		return errors.Errorf("%s: 'free' is not in scope (missing standard prelude?)", n.Pos())
	}
	freeFn := freeSym.Value.(llvm.Value)
	freeTy := freeSym.Type.(*types.FunctionType)
	voidPtr := g.builder.CreateBitCast(v.V, g.llvmType(freeTy.Params[0]), "")
	g.builder.CreateCall2(g.llvmType(freeTy), freeFn, []llvm.Value{voidPtr}, "")
	return nil
}
