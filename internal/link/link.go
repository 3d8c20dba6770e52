// Package link invokes the external linker after object emission — the
// system C compiler for the native target, or a WebAssembly linker for the
// wasm32 target — exactly as spec.md §6 describes, and removes the
// temporary object file once the linker succeeds.
package link

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hassan/esc/internal/codegen"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// wasmStackSize, wasmInitialMemory, and wasmMaxMemory are the fixed values
// spec.md §6 mandates for the WebAssembly linker invocation.
const (
	wasmStackSize     = 8192
	wasmInitialMemory = 65536
	wasmMaxMemory     = 16777216
)

// Options configures one link invocation.
type Options struct {
	Target     codegen.Target
	ObjectPath string
	OutputPath string
	Linker     string // overrides the default "cc"/"wasm-ld" when non-empty
}

// Link runs the external linker over opts.ObjectPath, producing
// opts.OutputPath, then deletes the object file on success.
func Link(opts Options) error {
	var cmd *exec.Cmd
	switch opts.Target {
	case codegen.TargetWasm32:
		cmd = wasmLinkCmd(opts)
	default:
		cmd = nativeLinkCmd(opts)
	}

	logrus.WithFields(logrus.Fields{
		"linker": cmd.Path,
		"args":   cmd.Args[1:],
	}).Debug("invoking external linker")

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "linking failed")
	}

	if err := os.Remove(opts.ObjectPath); err != nil {
		logrus.WithError(err).Warn("failed to remove temporary object file")
	}
	return nil
}

// nativeLinkCmd reproduces the exact invocation shape of the original
// compiler's driver (main.c): "cc <obj> -o <out> -lc -lm".
func nativeLinkCmd(opts Options) *exec.Cmd {
	linker := opts.Linker
	if linker == "" {
		linker = "cc"
	}
	return exec.Command(linker, opts.ObjectPath, "-o", opts.OutputPath, "-lc", "-lm")
}

// wasmLinkCmd reproduces spec.md §6's fixed WebAssembly linker flags: no
// implicit entry point, every function exported, undefined symbols allowed
// (resolved by the host), and a bounded linear memory.
func wasmLinkCmd(opts Options) *exec.Cmd {
	linker := opts.Linker
	if linker == "" {
		linker = "wasm-ld"
	}
	return exec.Command(linker,
		opts.ObjectPath,
		"-o", opts.OutputPath,
		"--no-entry",
		"--export-all",
		"--allow-undefined",
		"-z", fmt.Sprintf("stack-size=%d", wasmStackSize),
		fmt.Sprintf("--initial-memory=%d", wasmInitialMemory),
		fmt.Sprintf("--max-memory=%d", wasmMaxMemory),
	)
}
