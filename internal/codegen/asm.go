package codegen

import (
	"strings"

	"github.com/hassan/esc/internal/ast"
	"tinygo.org/x/go-llvm"
)

// lowerAsm lowers an AsmStmt to an LLVM inline-asm call. Inputs are passed
// as call arguments; outputs are extracted from the call result — a single
// scalar for one output, an anonymous struct for more than one — and
// stored back to their target l-values. The constraint string is the
// standard "outputs,inputs,~{clobbers}" concatenation.
func (g *Generator) lowerAsm(n *ast.AsmStmt) error {
	var inVals []llvm.Value
	var inTypes []llvm.Type
	for _, in := range n.Inputs {
		v, err := g.lowerExpr(in.Expr)
		if err != nil {
			return err
		}
		inVals = append(inVals, v.V)
		inTypes = append(inTypes, g.llvmType(v.T))
	}

	var outAddrs []llvm.Value
	var outTypes []llvm.Type
	for _, out := range n.Outputs {
		addr, ty, err := g.lowerLValue(out.Expr)
		if err != nil {
			return err
		}
		outAddrs = append(outAddrs, addr)
		outTypes = append(outTypes, g.llvmType(ty))
	}

	var retType llvm.Type
	switch len(outTypes) {
	case 0:
		retType = g.ctx.VoidType()
	case 1:
		retType = outTypes[0]
	default:
		retType = g.ctx.StructType(outTypes, false)
	}

	var constraints []string
	for _, out := range n.Outputs {
		constraints = append(constraints, out.Constraint)
	}
	for _, in := range n.Inputs {
		constraints = append(constraints, in.Constraint)
	}
	for _, c := range n.Clobbers {
		constraints = append(constraints, "~{"+c+"}")
	}

	fnType := llvm.FunctionType(retType, inTypes, false)
	asm := llvm.InlineAsm(fnType, n.Text, strings.Join(constraints, ","), true, false, llvm.InlineAsmDialectATT, false)
	result := g.builder.CreateCall2(fnType, asm, inVals, "")

	if len(outAddrs) == 1 {
		g.builder.CreateStore(result, outAddrs[0])
	} else {
		for i, addr := range outAddrs {
			ev := g.builder.CreateExtractValue(result, i, "")
			g.builder.CreateStore(ev, addr)
		}
	}
	return nil
}
