// Package main is the compiler's command-line entry point: read one source
// file, preprocess and parse it, resolve its preludes, lower it to LLVM IR,
// verify and optimize the module, emit an object file, and invoke the
// external linker — spec.md §6's full pipeline end to end.
package main

import (
	"fmt"
	"os"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/codegen"
	"github.com/hassan/esc/internal/config"
	"github.com/hassan/esc/internal/lexer"
	"github.com/hassan/esc/internal/link"
	"github.com/hassan/esc/internal/parser"
	"github.com/hassan/esc/internal/prelude"
	"github.com/hassan/esc/internal/preproc"
	"github.com/hassan/esc/internal/sexpr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var resolve func(args []string) (config.Options, error)

	cmd := &cobra.Command{
		Use:   "esc <file>",
		Short: "esc compiles a single source file to a native or WebAssembly object and links it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolve(args)
			if err != nil {
				return err
			}
			if opts.Verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return run(opts, log)
		},
		SilenceUsage: true,
	}
	resolve = config.Bind(cmd)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(opts config.Options, log *logrus.Logger) error {
	src, err := os.ReadFile(opts.Input)
	if err != nil {
		return errors.Wrapf(err, "reading %s", opts.Input)
	}

	log.WithField("file", opts.Input).Debug("preprocessing")
	expanded := preproc.Expand(string(src))

	prog, errs := parseSource(expanded, opts.Input)
	if len(errs) > 0 {
		return reportAndAbort("parse", errs)
	}

	log.Debug("resolving preludes")
	if err := prelude.Resolve(prog, opts.NoPrelude); err != nil {
		return err
	}

	gen, err := codegen.New(baseName(opts.Input), codegen.Options{
		Target:   opts.Target,
		OptLevel: opts.OptLevel,
	})
	if err != nil {
		return errors.Wrap(err, "initializing code generator")
	}
	defer gen.Dispose()

	log.Debug("lowering to LLVM IR")
	if errs := gen.Compile(prog); len(errs) > 0 {
		return reportAndAbort("codegen", errs)
	}

	// spec.md §7: verification runs before any optimization; failure prints
	// the full IR and aborts.
	if err := gen.Verify(); err != nil {
		gen.DumpIR()
		return err
	}

	if opts.EmitIR {
		gen.DumpIR()
	}

	log.WithField("level", opts.OptLevel).Debug("optimizing")
	if err := gen.Optimize(); err != nil {
		return errors.Wrap(err, "optimization failed")
	}

	objPath := opts.Output + ".o"
	if err := gen.EmitObject(objPath); err != nil {
		return err
	}

	log.WithField("target", opts.Target).Debug("linking")
	return link.Link(link.Options{
		Target:     opts.Target,
		ObjectPath: objPath,
		OutputPath: opts.Output,
		Linker:     opts.Linker,
	})
}

// parseSource picks the concrete surface by file extension: ".esx" selects
// the S-expression surface, everything else the keyword/emoji surface
// (spec.md §4.4 describes both as producing the same shared AST).
func parseSource(src, filename string) (*ast.Program, []error) {
	if hasSuffix(filename, ".esx") {
		return sexpr.Parse(src, filename)
	}
	l := lexer.New(src, filename)
	p := parser.New(l)
	return p.Parse(filename)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// reportAndAbort prints every accumulated error in spec.md §7's mandated
// "file:line:col: error: message" shape (falling back to a bare
// "error: message" for errors with no position) and returns the first one,
// matching spec.md's "first error aborts" policy at the driver boundary.
func reportAndAbort(stage string, errs []error) error {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s\n", e)
	}
	return errors.Errorf("%s failed with %d error(s)", stage, len(errs))
}
