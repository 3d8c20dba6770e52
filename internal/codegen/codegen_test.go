package codegen

import (
	"strings"
	"testing"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/parser"
	"github.com/stretchr/testify/require"
)

// compileSource runs a source string through the keyword-surface parser and
// a fresh Generator, returning the Generator so the caller can inspect its
// emitted IR. Callers must Dispose() it.
func compileSource(t *testing.T, src string, opts Options) *Generator {
	t.Helper()
	l := lexer.New(src, "test.esc")
	p := parser.New(l)
	prog, errs := p.Parse("test.esc")
	require.Empty(t, errs, "unexpected parse errors: %v", errs)

	g, err := New("test", opts)
	require.NoError(t, err)

	cgErrs := g.Compile(prog)
	require.Empty(t, cgErrs, "unexpected codegen errors: %v", cgErrs)
	require.NoError(t, g.Verify())
	return g
}

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New(src, "test.esc")
	p := parser.New(l)
	prog, errs := p.Parse("test.esc")
	require.Empty(t, errs, "unexpected parse errors: %v", errs)
	return prog
}

func TestCompile_SimpleFunctionEmitsDefine(t *testing.T) {
	g := compileSource(t, `fn add(a: i32, b: i32) -> i32 { ret a + b }`, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "define i32 @add"), ir)
}

func TestCompile_ExternDeclaresNoBody(t *testing.T) {
	src := `
ext putchar(c: i32) -> i32
fn main() -> i32 {
	putchar(65)
	ret 0
}
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "declare i32 @putchar"), ir)
	require.True(t, strings.Contains(ir, "define i32 @main"), ir)
}

func TestCompile_StructFieldAccessAndHeapInit(t *testing.T) {
	src := `
ext malloc(size: i64) -> *u8
st P { x: i32, y: i32 }
fn main() -> i32 {
	p : *P = nw P{x: 1, y: 2}
	ret p.x + p.y
}
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "%P = type"), ir)
}

func TestCompile_WasmTargetExportsAllFunctions(t *testing.T) {
	g := compileSource(t, `fn add(a: i32, b: i32) -> i32 { ret a + b }`, Options{Target: TargetWasm32})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "wasm32"), ir)
}

func TestCompile_DuplicateStructDeclIgnored(t *testing.T) {
	src := `
st P { x: i32 }
st P { y: i32 }
fn main() -> i32 { ret 0 }
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	require.Len(t, g.structs, 1)
	require.Len(t, g.structs["P"].typ.Fields, 1)
	require.Equal(t, "x", g.structs["P"].typ.Fields[0].Name)
}

func TestCompile_EnumMembersAreSequentialConstants(t *testing.T) {
	src := `
enum Color { Red, Green, Blue }
fn main() -> i32 { ret Green }
`
	prog := parseProgram(t, src)
	g, err := New("test", Options{Target: TargetNative})
	require.NoError(t, err)
	defer g.Dispose()
	cgErrs := g.Compile(prog)
	require.Empty(t, cgErrs)
	require.NoError(t, g.Verify())

	sym := g.syms.Lookup("Green")
	require.NotNil(t, sym)
	require.True(t, sym.Constant)
	require.Equal(t, int64(1), sym.ConstValue)
}

func TestCompile_EnumExplicitValueResetsSequence(t *testing.T) {
	src := `
enum Flag { A, B = 10, C }
fn main() -> i32 { ret C }
`
	prog := parseProgram(t, src)
	g, err := New("test", Options{Target: TargetNative})
	require.NoError(t, err)
	defer g.Dispose()
	cgErrs := g.Compile(prog)
	require.Empty(t, cgErrs)

	sym := g.syms.Lookup("C")
	require.NotNil(t, sym)
	require.Equal(t, int64(11), sym.ConstValue)
}

func TestCompile_UndefinedStructErrors(t *testing.T) {
	src := `
fn main() -> i32 {
	p : *Ghost = nw Ghost{}
	ret 0
}
`
	prog := parseProgram(t, src)
	g, err := New("test", Options{Target: TargetNative})
	require.NoError(t, err)
	defer g.Dispose()
	cgErrs := g.Compile(prog)
	require.NotEmpty(t, cgErrs)
}

func TestOptimize_NoopAtLevelZero(t *testing.T) {
	g := compileSource(t, `fn main() -> i32 { ret 0 }`, Options{Target: TargetNative, OptLevel: 0})
	defer g.Dispose()
	require.NoError(t, g.Optimize())
}

func TestOptimize_RunsPassPipelineAtLevelOne(t *testing.T) {
	g := compileSource(t, `fn main() -> i32 { ret 1 + 2 }`, Options{Target: TargetNative, OptLevel: 1})
	defer g.Dispose()
	require.NoError(t, g.Optimize())
}

func TestCompile_ReducerLowersToCountedLoop(t *testing.T) {
	src := `fn main() -> i64 { ret sum(0..10) }`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "reduce.cond"), ir)
	require.True(t, strings.Contains(ir, "reduce.body"), ir)
	require.True(t, strings.Contains(ir, "reduce.end"), ir)
}

func TestCompile_AsmEmitsInlineAsmCall(t *testing.T) {
	src := `
fn main() -> i32 {
	asm("nop")
	ret 0
}
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "call void asm"), ir)
}

func TestCompile_AsmWithConstrainedOperandsStoresOutput(t *testing.T) {
	src := `
fn main() -> i32 {
	x : i32 = 5
	y : i32 = 0
	asm("mov %1, %0" : "=r"(y) : "r"(x) : "cc")
	ret y
}
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "call i32 asm"), ir)
	require.True(t, strings.Contains(ir, "=r,r,~{cc}"), ir)
	require.True(t, strings.Contains(ir, "store i32"), ir)
}

func TestCompile_DeferRunsBeforeReturnAndOverridesValue(t *testing.T) {
	src := `
fn main() -> i32 {
	defer ret 7
	ret 3
}
`
	g := compileSource(t, src, Options{Target: TargetNative})
	defer g.Dispose()
	ir := g.Module().String()
	require.True(t, strings.Contains(ir, "ret i32 7"), ir)
	require.False(t, strings.Contains(ir, "ret i32 3"), ir)
}
