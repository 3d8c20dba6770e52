package codegen

import (
	"os"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// machine and data are initialized once per Generator, immediately in New, because
// sizeOf (used throughout struct/array/heap-allocation lowering) needs a
// live TargetData for the whole Compile call, not just at final object
// emission — matching the way the `hhramberg-go-vslc` reference sets
// module.SetDataLayout/SetTarget before code generation finishes rather
// than only right before emitting.
type targetInfo struct {
	machine llvm.TargetMachine
	data    llvm.TargetData
}

func (g *Generator) targetData() llvm.TargetData {
	return g.tinfo.data
}

// setupTarget resolves the requested Target to an LLVM triple, builds a
// TargetMachine, and stamps the module's data layout and triple from it.
func (g *Generator) setupTarget() error {
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargets()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()

	triple := llvm.DefaultTargetTriple()
	cpu := "generic"
	features := ""
	if g.opts.Target == TargetWasm32 {
		triple = "wasm32-unknown-unknown"
		cpu = ""
	}

	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return errors.Wrap(err, "resolving target triple")
	}

	machine := target.CreateTargetMachine(triple, cpu, features,
		optLevelToCodeGenLevel(g.opts.OptLevel),
		llvm.RelocDefault,
		llvm.CodeModelDefault)

	data := machine.CreateTargetData()
	g.module.SetDataLayout(data.String())
	g.module.SetTarget(triple)

	g.tinfo = &targetInfo{machine: machine, data: data}

	// WebAssembly has no implicit export list: every user function needs
	// default visibility and external linkage for wasm-ld's --export-all to
	// see it, per spec.md §4.5's module-finalization note.
	if g.opts.Target == TargetWasm32 {
		g.wasmExportAll = true
	}
	return nil
}

func optLevelToCodeGenLevel(level int) llvm.CodeGenOptLevel {
	switch level {
	case 0:
		return llvm.CodeGenLevelNone
	case 1:
		return llvm.CodeGenLevelLess
	case 2:
		return llvm.CodeGenLevelDefault
	default:
		return llvm.CodeGenLevelAggressive
	}
}

// Verify runs the LLVM module verifier (spec.md §4.5: "Verification runs
// before any optimization; failure prints the full IR and aborts").
func (g *Generator) Verify() error {
	if err := llvm.VerifyModule(g.module, llvm.ReturnStatusAction); err != nil {
		return errors.Wrap(err, "module verification failed")
	}
	return nil
}

// DumpIR prints the full unoptimized (or optimized, if called after
// Optimize) IR to stderr — the --emit-ir debug switch from spec.md §6, and
// also the mandated behavior on verifier failure from spec.md §7.
func (g *Generator) DumpIR() {
	os.Stderr.WriteString(g.module.String())
}

// Optimize runs the standard LLVM pass pipeline at the Generator's
// configured OptLevel (0 is a no-op).
func (g *Generator) Optimize() error {
	if g.opts.OptLevel <= 0 {
		return nil
	}
	pm := llvm.NewPassManager()
	defer pm.Dispose()

	pmb := llvm.NewPassManagerBuilder()
	defer pmb.Dispose()
	pmb.SetOptLevel(g.opts.OptLevel)
	pmb.Populate(pm)

	pm.Run(g.module)
	return nil
}

// EmitObject writes the compiled module to path as an object file in the
// target's native format (ELF/Mach-O/COFF) or a WebAssembly object, per
// spec.md §6.
func (g *Generator) EmitObject(path string) error {
	if err := g.tinfo.machine.EmitToFile(g.module, path, llvm.ObjectFile); err != nil {
		return errors.Wrap(err, "emitting object file")
	}
	return nil
}

// disposeTarget releases the target machine and data layout created by
// setupTarget; disposing the module does not free them.
func (g *Generator) disposeTarget() {
	if g.tinfo == nil {
		return
	}
	g.tinfo.data.Dispose()
	g.tinfo.machine.Dispose()
}
