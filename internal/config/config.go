// Package config defines the compiler's command-line surface: a plain
// Options struct populated from Cobra flags: output path, optimization level,
// target selector, --emit-ir and --no-prelude, plus --verbose and --linker.
package config

import (
	"github.com/hassan/esc/internal/codegen"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Options holds one compilation's resolved command-line configuration.
type Options struct {
	Input       string
	Output      string
	OptLevel    int
	Target      codegen.Target
	EmitIR      bool
	NoPrelude   bool
	Verbose     bool
	Linker      string
}

// targetNames maps each accepted raw --target flag value to its
// codegen.Target.
var targetNames = map[string]codegen.Target{
	"native": codegen.TargetNative,
	"wasm32": codegen.TargetWasm32,
	"wasm":   codegen.TargetWasm32,
}

// Bind registers every flag spec.md §6 lists on cmd and returns a closure
// that resolves them into Options once Cobra has parsed argv.
func Bind(cmd *cobra.Command) func(args []string) (Options, error) {
	var output, target, linker string
	var optLevel int
	var emitIR, noPrelude, verbose bool

	cmd.Flags().StringVarP(&output, "output", "o", "a.out", "output file path")
	cmd.Flags().IntVarP(&optLevel, "opt", "O", 0, "optimization level (0-3)")
	cmd.Flags().StringVar(&target, "target", "native", "target: native or wasm32")
	cmd.Flags().BoolVar(&emitIR, "emit-ir", false, "print LLVM IR to stderr before emitting the object")
	cmd.Flags().BoolVar(&noPrelude, "no-prelude", false, "suppress the implicit standard-prelude use")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	cmd.Flags().StringVar(&linker, "linker", "", "override the external linker/cc binary")

	return func(args []string) (Options, error) {
		if len(args) != 1 {
			return Options{}, errors.New("expected exactly one input file")
		}
		if optLevel < 0 || optLevel > 3 {
			return Options{}, errors.Errorf("invalid optimization level %d: must be 0-3", optLevel)
		}
		t, ok := targetNames[target]
		if !ok {
			return Options{}, errors.Errorf("unknown target %q: must be native or wasm32", target)
		}
		return Options{
			Input:     args[0],
			Output:    output,
			OptLevel:  optLevel,
			Target:    t,
			EmitIR:    emitIR,
			NoPrelude: noPrelude,
			Verbose:   verbose,
			Linker:    linker,
		}, nil
	}
}
