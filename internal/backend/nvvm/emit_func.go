package nvvm

import (
	"fmt"

	"warp/internal/debuginfo"
	"warp/internal/kir"
	"warp/internal/source"
)

type funcEmitter struct {
	e     *emitter
	f     *kir.Func
	sym   string
	sub   debuginfo.MetaID
	tmpID int
}

// emitFunc renders one function body. Every function, kernel body and
// device alike, returns an i32 status so the checked error model can
// unwind through calls.
func (e *emitter) emitFunc(f *kir.Func) error {
	fe := &funcEmitter{e: e, f: f, sym: e.names[f.ID], sub: debuginfo.NoMetaID}

	params, err := e.paramList(f)
	if err != nil {
		return err
	}
	// Only the wrapper is externally visible; bodies stay internal.
	if e.opts.Emission.LineTables() {
		start, _ := e.fs.Resolve(f.Span)
		fe.sub = e.meta.AddSubprogram(f.Name, fe.sym, e.fileMeta, start.Line)
		fmt.Fprintf(&e.buf, "define internal i32 @%s(%s) !dbg %s {\n", fe.sym, params, fe.sub.Ref())
	} else {
		fmt.Fprintf(&e.buf, "define internal i32 @%s(%s) {\n", fe.sym, params)
	}

	if err := fe.emitPrologue(); err != nil {
		return err
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&e.buf, "bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			if err := fe.emitInstr(&bb.Instrs[j]); err != nil {
				return err
			}
		}
		if err := fe.emitTerm(&bb.Term); err != nil {
			return err
		}
	}
	e.buf.WriteString("}\n\n")
	return nil
}

// emitPrologue allocates a stack slot per local and spills the incoming
// arguments. mem2reg-style promotion is left to the downstream optimizer.
func (fe *funcEmitter) emitPrologue() error {
	fmt.Fprintf(&fe.e.buf, "start:\n")
	for i := range fe.f.Locals {
		ty, err := llvmType(fe.e.mod.Types, fe.f.Locals[i].Type)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.e.buf, "  %%l%d = alloca %s\n", i, ty)
	}
	for i, p := range fe.f.Params {
		ty, err := llvmType(fe.e.mod.Types, fe.f.Local(p).Type)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.e.buf, "  store %s %%arg%d, %s* %%l%d\n", ty, i, ty, p)
	}
	fmt.Fprintf(&fe.e.buf, "  br label %%bb%d\n", fe.f.Entry)
	return nil
}

// dbg renders the location attachment for a span, or "" when line tables
// are off.
func (fe *funcEmitter) dbg(sp source.Span) string {
	if !fe.e.opts.Emission.LineTables() || fe.sub == debuginfo.NoMetaID {
		return ""
	}
	start, _ := fe.e.fs.Resolve(sp)
	loc := fe.e.meta.AddLocation(start.Line, start.Col, fe.sub)
	return ", !dbg " + loc.Ref()
}

// temp returns a fresh SSA name.
func (fe *funcEmitter) temp() string {
	fe.tmpID++
	return fmt.Sprintf("%%t%d", fe.tmpID-1)
}

// label returns a fresh synthetic block label for checks that split the
// current block.
func (fe *funcEmitter) label(prefix string) string {
	fe.tmpID++
	return fmt.Sprintf("%s.%d", prefix, fe.tmpID-1)
}
