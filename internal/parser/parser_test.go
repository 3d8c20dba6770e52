package parser

import (
	"testing"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New(src, "test.es")
	p := New(l)
	prog, errs := p.Parse("test.es")
	require.Empty(t, errs, "unexpected parse errors: %v", errs)
	return prog
}

func TestParse_SimpleFunction(t *testing.T) {
	prog := parseSource(t, "fn add(a: i32, b: i32) -> i32 {\n  ret a + b\n}\n")
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)
	require.False(t, fn.Variadic)
	require.Len(t, fn.Body.Stmts, 1)
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, lexer.TokenPlus, bin.Op)
}

func TestParse_KeywordFreeFunction(t *testing.T) {
	prog := parseSource(t, "square(x: i32) -> i32 {\n  ret x * x\n}\n")
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "square", fn.Name)
}

func TestParse_OneLinerImplicitReturn(t *testing.T) {
	prog := parseSource(t, "fn double(x: i32) = x * 2\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	require.Len(t, fn.Body.Stmts, 1)
	_, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
}

func TestParse_MainShorthandDefaultsToI32(t *testing.T) {
	prog := parseSource(t, "fn main {\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	ret := fn.Return.(*ast.NamedTypeExpr)
	require.Equal(t, "i32", ret.Name)
}

func TestParse_ExternDecl(t *testing.T) {
	prog := parseSource(t, "ext printf(*i8, ...) -> i32\n")
	ext, ok := prog.Decls[0].(*ast.ExternDecl)
	require.True(t, ok)
	require.Equal(t, "printf", ext.Name)
	require.True(t, ext.Variadic)
	require.Len(t, ext.Params, 1)
	_, isPtr := ext.Params[0].Type.(*ast.PointerTypeExpr)
	require.True(t, isPtr)
}

func TestParse_StructDeclAndInit(t *testing.T) {
	prog := parseSource(t, "st Point {\n  x: i32\n  y: i32\n}\nfn origin() -> Point {\n  ret Point { x: 0, y: 0 }\n}\n")
	require.Len(t, prog.Decls, 2)
	st := prog.Decls[0].(*ast.StructDecl)
	require.Equal(t, "Point", st.Name)
	require.Len(t, st.Fields, 2)

	fn := prog.Decls[1].(*ast.FuncDecl)
	ret := fn.Body.Stmts[len(fn.Body.Stmts)-1].(*ast.ReturnStmt)
	init, ok := ret.Value.(*ast.StructInitExpr)
	require.True(t, ok)
	require.Equal(t, "Point", init.TypeName)
	require.False(t, init.Heap)
	require.Len(t, init.Fields, 2)
}

func TestParse_EnumDecl(t *testing.T) {
	prog := parseSource(t, "enum Color {\n  Red\n  Green = 5\n  Blue\n}\n")
	en := prog.Decls[0].(*ast.EnumDecl)
	require.Equal(t, "Color", en.Name)
	require.Len(t, en.Members, 3)
	require.Nil(t, en.Members[0].Value)
	lit, ok := en.Members[1].Value.(*ast.IntLit)
	require.True(t, ok)
	require.EqualValues(t, 5, lit.Value)
}

func TestParse_IfElseIfChain(t *testing.T) {
	prog := parseSource(t, "fn classify(x: i32) -> i32 {\n"+
		"  if x < 0 {\n    ret -1\n  } el if x == 0 {\n    ret 0\n  } el {\n    ret 1\n  }\n"+
		"}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	ifs, ok := fn.Body.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, ifs.Else)
	elif, ok := ifs.Else.(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, elif.Else)
	_, ok = elif.Else.(*ast.BlockStmt)
	require.True(t, ok)
}

func TestParse_ForLoopDesugarsToRange(t *testing.T) {
	prog := parseSource(t, "fn main {\n  for i := 0..10 {\n    print i\n  }\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	forStmt, ok := fn.Body.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.Equal(t, "i", forStmt.Var)
	require.False(t, forStmt.Range.Inclusive)
}

func TestParse_InclusiveRange(t *testing.T) {
	prog := parseSource(t, "fn main {\n  for i := 0..=10 {\n    print i\n  }\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	forStmt := fn.Body.Stmts[0].(*ast.ForStmt)
	require.True(t, forStmt.Range.Inclusive)
}

func TestParse_MatchStmtWithDefault(t *testing.T) {
	prog := parseSource(t, "fn main {\n  match x {\n    1 {\n      print 1\n    }\n    _ {\n      print 0\n    }\n  }\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	m, ok := fn.Body.Stmts[0].(*ast.MatchStmt)
	require.True(t, ok)
	require.Len(t, m.Cases, 1)
	require.NotNil(t, m.Default)
}

func TestParse_DeferRunsBeforeReturn(t *testing.T) {
	prog := parseSource(t, "fn main {\n  defer close(f)\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	d, ok := fn.Body.Stmts[0].(*ast.DeferStmt)
	require.True(t, ok)
	exprStmt, ok := d.Stmt.(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.X.(*ast.CallExpr)
	require.True(t, ok)
	ident := call.Callee.(*ast.Ident)
	require.Equal(t, "close", ident.Name)
}

func TestParse_DeferAcceptsReturnStatement(t *testing.T) {
	prog := parseSource(t, "fn main -> i32 {\n  defer ret 7\n  ret 3\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	d, ok := fn.Body.Stmts[0].(*ast.DeferStmt)
	require.True(t, ok)
	ret, ok := d.Stmt.(*ast.ReturnStmt)
	require.True(t, ok)
	lit, ok := ret.Value.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, int64(7), lit.Value)
}

func TestParse_AsmStmtWithConstrainedOperands(t *testing.T) {
	prog := parseSource(t, "fn main {\n  asm(\"mov %1, %0\" : \"=r\"(y) : \"r\"(x) : \"cc\", \"memory\")\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	a, ok := fn.Body.Stmts[0].(*ast.AsmStmt)
	require.True(t, ok)
	require.Equal(t, "mov %1, %0", a.Text)
	require.Len(t, a.Outputs, 1)
	require.Equal(t, "=r", a.Outputs[0].Constraint)
	require.Equal(t, "y", a.Outputs[0].Expr.(*ast.Ident).Name)
	require.Len(t, a.Inputs, 1)
	require.Equal(t, "r", a.Inputs[0].Constraint)
	require.Equal(t, "x", a.Inputs[0].Expr.(*ast.Ident).Name)
	require.Equal(t, []string{"cc", "memory"}, a.Clobbers)
}

func TestParse_PipeOperatorPrependsArgument(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := 5 |> double\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	call, ok := decl.Init.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	_, ok = call.Args[0].(*ast.IntLit)
	require.True(t, ok)
}

func TestParse_PipeIntoExistingCallPrependsArgument(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := 5 |> add(1)\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	call := decl.Init.(*ast.CallExpr)
	require.Len(t, call.Args, 2)
}

func TestParse_UFCSFieldAccessStaysAsFieldExpr(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := p.x\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	_, ok := decl.Init.(*ast.FieldExpr)
	require.True(t, ok)
}

func TestParse_ReducerIntrinsicRecognized(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := sum(0..10)\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	reducer, ok := decl.Init.(*ast.ReducerExpr)
	require.True(t, ok)
	require.Equal(t, ast.ReducerSum, reducer.Kind)
}

func TestParse_NewAllocatesPointer(t *testing.T) {
	prog := parseSource(t, "fn main {\n  p := nw i32\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	_, ok := decl.Init.(*ast.NewExpr)
	require.True(t, ok)
}

func TestParse_NewStructInitIsHeapAllocated(t *testing.T) {
	prog := parseSource(t, "fn main {\n  p := nw Point { x: 1, y: 2 }\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	init, ok := decl.Init.(*ast.StructInitExpr)
	require.True(t, ok)
	require.True(t, init.Heap)
}

func TestParse_DeleteDesugarsToDeleteStmt(t *testing.T) {
	prog := parseSource(t, "fn main {\n  del p\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	_, ok := fn.Body.Stmts[0].(*ast.DeleteStmt)
	require.True(t, ok)
}

func TestParse_CompoundAssignmentDesugarsToBinaryAssign(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := 1\n  x += 2\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	assign, ok := fn.Body.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	require.Equal(t, lexer.TokenAssign, assign.Op)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, lexer.TokenPlus, bin.Op)
}

func TestParse_TernaryExpression(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := 1 ? 2 : 3\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	_, ok := decl.Init.(*ast.TernaryExpr)
	require.True(t, ok)
}

func TestParse_CastBindsTighterThanBinary(t *testing.T) {
	prog := parseSource(t, "fn main {\n  x := a as i32 + b\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	bin, ok := decl.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	_, ok = bin.Left.(*ast.CastExpr)
	require.True(t, ok)
}

func TestParse_PrintSugarWithoutParens(t *testing.T) {
	prog := parseSource(t, "fn main {\n  print 42\n  ret 0\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	stmt, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := stmt.X.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "print", call.Callee.(*ast.Ident).Name)
}

func TestParse_ScriptModeWrapsTopLevelStatementsInMain(t *testing.T) {
	prog := parseSource(t, "print 1\nprint 2\n")
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "main", fn.Name)
	require.Len(t, fn.Body.Stmts, 2)
}

func TestParse_FunctionPointerType(t *testing.T) {
	prog := parseSource(t, "fn apply(f: *fn(i32) -> i32, x: i32) -> i32 {\n  ret f(x)\n}\n")
	fn := prog.Decls[0].(*ast.FuncDecl)
	ptr, ok := fn.Params[0].Type.(*ast.PointerTypeExpr)
	require.True(t, ok)
	ft, ok := ptr.Elem.(*ast.FuncTypeExpr)
	require.True(t, ok)
	require.Len(t, ft.Params, 1)
}

func TestParse_UseDecl(t *testing.T) {
	prog := parseSource(t, "use collections\nfn main {\n  ret 0\n}\n")
	use, ok := prog.Decls[0].(*ast.UseDecl)
	require.True(t, ok)
	require.Equal(t, "collections", use.Name)
}
