// Package nvvm renders a lowered module as textual NVVM IR, the
// LLVM dialect consumed by the PTX code generator. Debug metadata is
// attached according to the requested emission kind.
package nvvm

import (
	"fmt"
	"path/filepath"
	"strings"

	"warp/internal/backend/names"
	"warp/internal/debuginfo"
	"warp/internal/kir"
	"warp/internal/source"
)

// Options configures one module emission.
type Options struct {
	// Emission selects how much debug metadata is attached.
	Emission debuginfo.EmissionKind
	// PythonErrors enables the checked error model: integer and float
	// division test the divisor and return a nonzero status on zero, and
	// device call statuses propagate to the caller.
	PythonErrors bool
	// Optimized is recorded in the compile unit.
	Optimized bool
	// Producer names the compiler in the compile unit.
	Producer string
}

// Result is the emitted IR plus the symbols the PTX stage needs.
type Result struct {
	IR string
	// KernelSymbol is the visible entry wrapper.
	KernelSymbol string
	// Symbols maps every function to its emitted symbol.
	Symbols map[kir.FuncID]string
	// Meta is the metadata table built during emission.
	Meta *debuginfo.Table
}

// statusOK and statusDivByZero are the i32 statuses kernel bodies return.
const (
	statusOK        = 0
	statusDivByZero = 1
)

type emitter struct {
	mod  *kir.Module
	fs   *source.FileSet
	opts Options

	buf      strings.Builder
	meta     *debuginfo.Table
	fileMeta debuginfo.MetaID
	names    map[kir.FuncID]string
}

// EmitModule renders the module. The kernel body and device functions
// return an i32 status; a void wrapper with kernel linkage calls the body
// and is the symbol the launcher binds to.
func EmitModule(mod *kir.Module, fs *source.FileSet, opts Options) (*Result, error) {
	if mod == nil || mod.Func(mod.Kernel) == nil {
		return nil, fmt.Errorf("nvvm: module has no kernel")
	}
	if opts.Producer == "" {
		opts.Producer = "warp"
	}
	e := &emitter{
		mod:   mod,
		fs:    fs,
		opts:  opts,
		meta:  debuginfo.NewTable(opts.Emission),
		names: make(map[kir.FuncID]string),
	}

	for _, f := range mod.Funcs {
		e.names[f.ID] = names.FuncSymbol(mod.Types, f)
	}
	kernel := mod.Func(mod.Kernel)
	wrapperSym := names.WrapperSymbol(mod.Types, kernel)

	e.emitPreamble()
	if opts.Emission.LineTables() {
		file := fs.Get(mod.File)
		dir, name := filepath.Split(file.Path)
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			dir = "."
		}
		e.fileMeta = e.meta.AddFile(name, dir)
		e.meta.AddCompileUnit(e.fileMeta, opts.Producer, opts.Optimized)
	}

	for _, f := range mod.Funcs {
		if err := e.emitFunc(f); err != nil {
			return nil, err
		}
	}
	if err := e.emitWrapper(kernel, wrapperSym); err != nil {
		return nil, err
	}
	if err := e.emitMetadata(kernel, wrapperSym); err != nil {
		return nil, err
	}

	return &Result{
		IR:           e.buf.String(),
		KernelSymbol: wrapperSym,
		Symbols:      e.names,
		Meta:         e.meta,
	}, nil
}

func (e *emitter) emitPreamble() {
	file := e.fs.Get(e.mod.File)
	fmt.Fprintf(&e.buf, "; ModuleID = '%s'\n", file.Path)
	fmt.Fprintf(&e.buf, "source_filename = %q\n", file.Path)
	e.buf.WriteString("target datalayout = \"e-p:64:64:64-i1:8:8-i8:8:8-i16:16:16-i32:32:32-i64:64:64-f32:32:32-f64:64:64-v16:16:16-v32:32:32-v64:64:64-v128:128:128-n16:32:64\"\n")
	e.buf.WriteString("target triple = \"nvptx64-nvidia-cuda\"\n\n")
}

// emitWrapper renders the void entry function that launches the kernel
// body and discards its status. Grid launch never observes the status;
// the checked error model is visible only through the body's returns.
func (e *emitter) emitWrapper(kernel *kir.Func, sym string) error {
	params, err := e.paramList(kernel)
	if err != nil {
		return err
	}

	dbg := ""
	if e.opts.Emission.LineTables() {
		start, _ := e.fs.Resolve(kernel.Span)
		sp := e.meta.AddSubprogram(kernel.Name, sym, e.fileMeta, start.Line)
		loc := e.meta.AddLocation(start.Line, start.Col, sp)
		dbg = ", !dbg " + loc.Ref()
		fmt.Fprintf(&e.buf, "define void @%s(%s) !dbg %s {\n", sym, params, sp.Ref())
	} else {
		fmt.Fprintf(&e.buf, "define void @%s(%s) {\n", sym, params)
	}

	args := make([]string, len(kernel.Params))
	for i, p := range kernel.Params {
		ty, err := llvmType(e.mod.Types, kernel.Local(p).Type)
		if err != nil {
			return err
		}
		args[i] = fmt.Sprintf("%s %%arg%d", ty, i)
	}
	e.buf.WriteString("entry:\n")
	fmt.Fprintf(&e.buf, "  %%status = call i32 @%s(%s)%s\n", e.names[kernel.ID], strings.Join(args, ", "), dbg)
	fmt.Fprintf(&e.buf, "  ret void%s\n", dbg)
	e.buf.WriteString("}\n\n")
	return nil
}

func (e *emitter) paramList(f *kir.Func) (string, error) {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		ty, err := llvmType(e.mod.Types, f.Local(p).Type)
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("%s %%arg%d", ty, i)
	}
	return strings.Join(parts, ", "), nil
}

// emitMetadata writes the nvvm kernel annotation and the debug graph.
func (e *emitter) emitMetadata(kernel *kir.Func, wrapperSym string) error {
	parts := make([]string, len(kernel.Params))
	for i, p := range kernel.Params {
		ty, err := llvmType(e.mod.Types, kernel.Local(p).Type)
		if err != nil {
			return err
		}
		parts[i] = ty
	}
	ann := e.meta.AddRaw(fmt.Sprintf("!{void (%s)* @%s, !\"kernel\", i32 1}", strings.Join(parts, ", "), wrapperSym))
	fmt.Fprintf(&e.buf, "!nvvm.annotations = !{%s}\n", ann.Ref())
	e.meta.Render(&e.buf)
	return nil
}
