package prelude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hassan/esc/internal/ast"
	"github.com/stretchr/testify/require"
)

// withPreludeDir creates "prelude/<name>.esc" under a fresh temp working
// directory and chdirs into it for the duration of the test, mirroring the
// "./prelude" relative search location.
func withPreludeDir(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "prelude"), 0o755))
	for name, src := range files {
		path := filepath.Join(dir, "prelude", name+".esc")
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLocate_FindsRelativeModule(t *testing.T) {
	withPreludeDir(t, map[string]string{"std": "ext malloc(size: i64) -> *u8"})
	path, err := Locate("std")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("prelude", "std.esc"), path)
}

func TestLocate_MissingModuleErrors(t *testing.T) {
	withPreludeDir(t, map[string]string{})
	_, err := Locate("nope")
	require.Error(t, err)
}

func TestLoad_ParsesDeclarationsOnly(t *testing.T) {
	withPreludeDir(t, map[string]string{
		"std": "ext malloc(size: i64) -> *u8\next free(p: *u8) -> v",
	})
	decls, err := Load("std")
	require.NoError(t, err)
	require.Len(t, decls, 2)
	ext, ok := decls[0].(*ast.ExternDecl)
	require.True(t, ok)
	require.Equal(t, "malloc", ext.Name)
}

func TestLoad_RejectsBareStatements(t *testing.T) {
	withPreludeDir(t, map[string]string{"std": "1 + 1"})
	_, err := Load("std")
	require.Error(t, err)
}

func TestResolve_PrependsStandardModuleByDefault(t *testing.T) {
	withPreludeDir(t, map[string]string{
		"std": "ext putchar(c: i32) -> i32",
	})
	prog := &ast.Program{
		Decls: []ast.Decl{&ast.FuncDecl{Name: "main"}},
	}
	require.NoError(t, Resolve(prog, false))
	require.Len(t, prog.Decls, 2)
	ext, ok := prog.Decls[0].(*ast.ExternDecl)
	require.True(t, ok)
	require.Equal(t, "putchar", ext.Name)
	fn, ok := prog.Decls[1].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "main", fn.Name)
}

func TestResolve_SkipsStandardModuleWhenRequested(t *testing.T) {
	withPreludeDir(t, map[string]string{})
	prog := &ast.Program{Decls: []ast.Decl{&ast.FuncDecl{Name: "main"}}}
	require.NoError(t, Resolve(prog, true))
	require.Len(t, prog.Decls, 1)
}

func TestResolve_PullsInUseDeclsAndDedupes(t *testing.T) {
	withPreludeDir(t, map[string]string{
		"std":  "ext malloc(size: i64) -> *u8",
		"math": "ext sqrt(x: f64) -> f64",
	})
	prog := &ast.Program{
		Decls: []ast.Decl{
			&ast.UseDecl{Name: "math"},
			&ast.UseDecl{Name: "math"},
			&ast.FuncDecl{Name: "main"},
		},
	}
	require.NoError(t, Resolve(prog, false))
	// std + math (deduped) + main
	require.Len(t, prog.Decls, 3)
	names := []string{}
	for _, d := range prog.Decls {
		if ext, ok := d.(*ast.ExternDecl); ok {
			names = append(names, ext.Name)
		}
	}
	require.ElementsMatch(t, []string{"malloc", "sqrt"}, names)
}

func TestResolve_MissingUseModuleErrors(t *testing.T) {
	withPreludeDir(t, map[string]string{})
	prog := &ast.Program{
		Decls: []ast.Decl{&ast.UseDecl{Name: "ghost"}},
	}
	require.Error(t, Resolve(prog, true))
}
