package sexpr

import (
	"testing"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := Parse(src, "test.esx")
	require.Empty(t, errs, "unexpected parse errors: %v", errs)
	return prog
}

func TestParse_SimpleFunction(t *testing.T) {
	prog := parseProgram(t, `(fn add ((a i32) (b i32)) i32 (^ (+ a b)))`)
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

func TestParse_ExternVariadic(t *testing.T) {
	prog := parseProgram(t, `(ext printf ((fmt (* u8)) ...) i32)`)
	ext, ok := prog.Decls[0].(*ast.ExternDecl)
	require.True(t, ok)
	require.Equal(t, "printf", ext.Name)
	require.True(t, ext.Variadic)
	require.Len(t, ext.Params, 1)
	ptr, ok := ext.Params[0].Type.(*ast.PointerTypeExpr)
	require.True(t, ok)
	named, ok := ptr.Elem.(*ast.NamedTypeExpr)
	require.True(t, ok)
	require.Equal(t, "u8", named.Name)
}

func TestParse_StructAndHeapInit(t *testing.T) {
	prog := parseProgram(t, `
(st P (x i32) (y i32))
(fn main () i32
  (: p (* P) (nw P (x 10) (y 20)))
  (^ (+ (. p x) (. p y))))
`)
	require.Len(t, prog.Decls, 2)
	st, ok := prog.Decls[0].(*ast.StructDecl)
	require.True(t, ok)
	require.Equal(t, "P", st.Name)
	require.Len(t, st.Fields, 2)

	fn, ok := prog.Decls[1].(*ast.FuncDecl)
	require.True(t, ok)
	decl, ok := fn.Body.Stmts[0].(*ast.VarDeclStmt)
	require.True(t, ok)
	init, ok := decl.Init.(*ast.StructInitExpr)
	require.True(t, ok)
	require.True(t, init.Heap)
	require.Equal(t, "P", init.TypeName)
	require.Len(t, init.Fields, 2)

	ret, ok := fn.Body.Stmts[1].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	lhs, ok := bin.Left.(*ast.FieldExpr)
	require.True(t, ok)
	require.Equal(t, "x", lhs.Name)
}

func TestParse_ForRangeAndMatch(t *testing.T) {
	prog := parseProgram(t, `
(fn main () i32
  (= x 0)
  (for i (..= 1 4) (block (+= x i)))
  (match x
    (case 10 (block (^ 1)))
    (default (block (^ 0)))))
`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	forStmt, ok := fn.Body.Stmts[1].(*ast.ForStmt)
	require.True(t, ok)
	require.Equal(t, "i", forStmt.Var)
	require.True(t, forStmt.Range.Inclusive)

	match, ok := fn.Body.Stmts[2].(*ast.MatchStmt)
	require.True(t, ok)
	require.Len(t, match.Cases, 1)
	require.NotNil(t, match.Default)
}

func TestParse_CompoundAssignDesugars(t *testing.T) {
	prog := parseProgram(t, `(fn main () v (= x 1) (+= x 2))`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	assign, ok := fn.Body.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	require.Equal(t, lexer.TokenAssign, assign.Op)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, lexer.TokenPlus, bin.Op)
}

func TestParse_ReducerOverRange(t *testing.T) {
	prog := parseProgram(t, `(fn main () i32 (^ (sum (.. 0 10))))`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	reducer, ok := ret.Value.(*ast.ReducerExpr)
	require.True(t, ok)
	require.Equal(t, ast.ReducerSum, reducer.Kind)
}

func TestParse_BareTopLevelExprsGetImplicitMain(t *testing.T) {
	prog := parseProgram(t, `(^ 14)`)
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "main", fn.Name)
	ret := fn.Return.(*ast.NamedTypeExpr)
	require.Equal(t, "i32", ret.Name)
}

func TestParseDeclarations_RejectsBareStatements(t *testing.T) {
	_, errs := ParseDeclarations(`(^ 1)`, "std.esx")
	require.NotEmpty(t, errs)
}

func TestParse_Negative(t *testing.T) {
	prog := parseProgram(t, `(fn main () i32 (^ (- 5)))`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	unary, ok := ret.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, lexer.TokenMinus, unary.Op)
	lit, ok := unary.X.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, int64(5), lit.Value)
}
