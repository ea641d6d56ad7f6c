// Package ptx renders a lowered module as PTX assembly text. Line
// mapping uses .file/.loc directives; full debug emission additionally
// appends the DWARF section stubs the driver-side debugger expects.
package ptx

import (
	"fmt"
	"strings"

	"warp/internal/backend/names"
	"warp/internal/debuginfo"
	"warp/internal/kir"
	"warp/internal/source"
)

// DefaultTarget is the architecture used when none is requested.
const DefaultTarget = "sm_50"

// Options configures one module emission.
type Options struct {
	// Emission selects the debug directive level.
	Emission debuginfo.EmissionKind
	// PythonErrors enables the checked error model, mirroring the IR
	// stage: zero divisors and failing callees return a nonzero status.
	PythonErrors bool
	// Target is the sm architecture string.
	Target string
	// Producer appears in the banner comment.
	Producer string
}

// Result is the generated assembly.
type Result struct {
	ASM          string
	KernelSymbol string
}

type emitter struct {
	mod  *kir.Module
	fs   *source.FileSet
	opts Options
	buf  strings.Builder

	names map[kir.FuncID]string
}

// EmitModule renders the whole module: device functions first (callees
// are instantiated after their callers, so reverse order keeps
// definitions ahead of uses), then the kernel body, then the visible
// entry wrapper.
func EmitModule(mod *kir.Module, fs *source.FileSet, opts Options) (*Result, error) {
	if mod == nil || mod.Func(mod.Kernel) == nil {
		return nil, fmt.Errorf("ptx: module has no kernel")
	}
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	if opts.Producer == "" {
		opts.Producer = "warp"
	}
	e := &emitter{
		mod:   mod,
		fs:    fs,
		opts:  opts,
		names: make(map[kir.FuncID]string),
	}
	for _, f := range mod.Funcs {
		e.names[f.ID] = names.FuncSymbol(mod.Types, f)
	}
	kernel := mod.Func(mod.Kernel)
	wrapperSym := names.WrapperSymbol(mod.Types, kernel)

	e.emitHeader(wrapperSym)

	for i := len(mod.Funcs) - 1; i >= 0; i-- {
		if err := e.emitFunc(mod.Funcs[i]); err != nil {
			return nil, err
		}
	}
	if err := e.emitEntry(kernel, wrapperSym); err != nil {
		return nil, err
	}
	if e.opts.Emission.FullTables() {
		e.emitDebugSections()
	}

	return &Result{ASM: e.buf.String(), KernelSymbol: wrapperSym}, nil
}

func (e *emitter) emitHeader(wrapperSym string) {
	fmt.Fprintf(&e.buf, "//\n// Generated by %s\n//\n\n", e.opts.Producer)
	e.buf.WriteString(".version 8.2\n")
	fmt.Fprintf(&e.buf, ".target %s", e.opts.Target)
	if e.opts.Emission.FullTables() {
		e.buf.WriteString(", debug")
	}
	e.buf.WriteString("\n.address_size 64\n\n")
	fmt.Fprintf(&e.buf, "\t// .globl\t%s\n", wrapperSym)
	if e.opts.Emission.LineTables() {
		file := e.fs.Get(e.mod.File)
		fmt.Fprintf(&e.buf, "\t.file\t1 %q\n", file.Path)
	}
	e.buf.WriteString("\n")
}

// emitDebugSections appends the DWARF container sections. The payload is
// a minimal skeleton; the driver only requires the sections to exist for
// the module to register as debuggable.
func (e *emitter) emitDebugSections() {
	e.buf.WriteString("\t.section\t.debug_abbrev\n\t{\n")
	e.buf.WriteString("\t.b8 1, 17, 1, 37, 8, 19, 5, 3, 8, 16, 6, 27, 8, 17, 1, 18, 1, 0, 0, 0\n")
	e.buf.WriteString("\t}\n")
	e.buf.WriteString("\t.section\t.debug_info\n\t{\n")
	e.buf.WriteString("\t.b32 12\n\t.b8 2, 0\n\t.b32 .debug_abbrev\n\t.b8 8, 1\n")
	e.buf.WriteString("\t}\n")
	e.buf.WriteString("\t.section\t.debug_line\n\t{\n")
	e.buf.WriteString("\t}\n")
	e.buf.WriteString("\t.section\t.debug_loc\n\t{\n")
	e.buf.WriteString("\t}\n")
}

