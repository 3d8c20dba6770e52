// Package prelude locates and loads standard-library source files pulled in
// by a top-level "use NAME" declaration, including the implicit load of the
// standard prelude at the start of compilation (spec.md: "Auto-load of the
// standard prelude occurs once at the start of top-level parsing unless a
// configuration flag suppresses it").
package prelude

import (
	"os"
	"path/filepath"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/parser"
	"github.com/hassan/esc/internal/preproc"
	"github.com/pkg/errors"
)

// StandardModule is the name `use`d implicitly at the start of every
// compilation unless suppressed (spec.md's "standard prelude").
const StandardModule = "std"

// searchDirs are the two well-known locations spec.md describes: a
// directory relative to the working directory, and an absolute fallback
// for an installed toolchain.
var searchDirs = []string{
	"./prelude",
	"/usr/local/share/esc/prelude",
}

// Locate finds the source file for a `use NAME` module, searching each of
// searchDirs in order for "NAME.esc".
func Locate(name string) (string, error) {
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, name+".esc")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Errorf("prelude module %q not found in %v", name, searchDirs)
}

// Load locates, reads, preprocesses, and parses a named module with the
// declaration-only entry point, returning its declarations ready to be
// prepended to a Program.
func Load(name string) ([]ast.Decl, error) {
	path, err := Locate(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading prelude module %q", name)
	}

	expanded := preproc.Expand(string(src))
	l := lexer.New(expanded, path)
	p := parser.New(l)
	prog, errs := p.ParseDeclarations(path)
	if len(errs) > 0 {
		return nil, errors.Wrapf(errs[0], "parsing prelude module %q", name)
	}
	return prog.Decls, nil
}

// Resolve walks prog's top-level UseDecls (and the implicit standard module,
// unless suppressed) and prepends every pulled-in module's declarations
// ahead of prog's own — so a later struct/enum/function pass sees prelude
// names first, exactly as if they had been written at the top of the file.
func Resolve(prog *ast.Program, skipStandard bool) error {
	var names []string
	if !skipStandard {
		names = append(names, StandardModule)
	}
	var rest []ast.Decl
	for _, d := range prog.Decls {
		if ud, ok := d.(*ast.UseDecl); ok {
			names = append(names, ud.Name)
			continue
		}
		rest = append(rest, d)
	}

	var prelude []ast.Decl
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		decls, err := Load(name)
		if err != nil {
			return err
		}
		prelude = append(prelude, decls...)
	}

	prog.Decls = append(prelude, rest...)
	return nil
}
