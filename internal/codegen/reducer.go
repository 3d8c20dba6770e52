package codegen

import (
	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/types"
	"tinygo.org/x/go-llvm"
)

// lowerReducer lowers product/sum/count/min/max over a range to a runtime
// counted loop — the range bounds need not be compile-time constants, so
// this always emits a loop rather than folding at compile time (constant
// ranges are instead the domain of internal/comptime, reached only through
// an explicit "ct" block).
func (g *Generator) lowerReducer(n *ast.ReducerExpr) (Value, error) {
	startV, err := g.lowerExpr(n.Range.Start)
	if err != nil {
		return Value{}, err
	}
	endV, err := g.lowerExpr(n.Range.End)
	if err != nil {
		return Value{}, err
	}
	ivTy, err := binaryResultType(lexer.TokenPlus, startV.T, endV.T)
	if err != nil {
		return Value{}, err
	}
	startC, err := g.coerce(startV, ivTy)
	if err != nil {
		return Value{}, err
	}
	endC, err := g.coerce(endV, ivTy)
	if err != nil {
		return Value{}, err
	}

	resTy := types.I64
	llvmIvTy := g.llvmType(ivTy)

	var initAcc llvm.Value
	switch n.Kind {
	case ast.ReducerProduct:
		initAcc = llvm.ConstInt(g.llvmType(resTy), 1, true)
	case ast.ReducerMin:
		initAcc = llvm.ConstInt(g.llvmType(resTy), 0x7fffffffffffffff, true)
	case ast.ReducerMax:
		initAcc = llvm.ConstInt(g.llvmType(resTy), 0x8000000000000000, true)
	default: // sum, count
		initAcc = llvm.ConstInt(g.llvmType(resTy), 0, true)
	}

	accAddr := g.builder.CreateAlloca(g.llvmType(resTy), "acc")
	g.builder.CreateStore(initAcc, accAddr)
	ivAddr := g.builder.CreateAlloca(llvmIvTy, "riv")
	g.builder.CreateStore(startC, ivAddr)

	fn := g.curFunc.value
	condBB := g.ctx.AddBasicBlock(fn, "reduce.cond")
	bodyBB := g.ctx.AddBasicBlock(fn, "reduce.body")
	incBB := g.ctx.AddBasicBlock(fn, "reduce.inc")
	endBB := g.ctx.AddBasicBlock(fn, "reduce.end")

	g.builder.CreateBr(condBB)
	g.builder.SetInsertPointAtEnd(condBB)
	cur := g.builder.CreateLoad2(llvmIvTy, ivAddr, "")
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

	g.builder.SetInsertPointAtEnd(bodyBB)
	curI64, err := g.coerce(Value{cur, ivTy}, resTy)
	if err != nil {
		return Value{}, err
	}
	accCur := g.builder.CreateLoad2(g.llvmType(resTy), accAddr, "")
	var next llvm.Value
	switch n.Kind {
	case ast.ReducerSum:
		next = g.builder.CreateAdd(accCur, curI64, "")
	case ast.ReducerProduct:
		next = g.builder.CreateMul(accCur, curI64, "")
	case ast.ReducerCount:
		next = g.builder.CreateAdd(accCur, llvm.ConstInt(g.llvmType(resTy), 1, true), "")
	case ast.ReducerMin:
		isLess := g.builder.CreateICmp(llvm.IntSLT, curI64, accCur, "")
		next = g.builder.CreateSelect(isLess, curI64, accCur, "")
	case ast.ReducerMax:
		isMore := g.builder.CreateICmp(llvm.IntSGT, curI64, accCur, "")
		next = g.builder.CreateSelect(isMore, curI64, accCur, "")
	}
	g.builder.CreateStore(next, accAddr)
	g.builder.CreateBr(incBB)

	g.builder.SetInsertPointAtEnd(incBB)
	incCur := g.builder.CreateLoad2(llvmIvTy, ivAddr, "")
	incNext := g.builder.CreateAdd(incCur, llvm.ConstInt(llvmIvTy, 1, false), "")
	g.builder.CreateStore(incNext, ivAddr)
	g.builder.CreateBr(condBB)

	g.builder.SetInsertPointAtEnd(endBB)
	result := g.builder.CreateLoad2(g.llvmType(resTy), accAddr, "")
	return Value{result, resTy}, nil
}
