package ptx

import (
	"fmt"
	"strings"

	"warp/internal/kir"
	"warp/internal/source"
)

type funcEmitter struct {
	e   *emitter
	f   *kir.Func
	sym string

	ra    regAlloc
	body  strings.Builder
	regOf map[kir.LocalID]string
	clsOf map[kir.LocalID]regClass

	labelID  int
	lastLine uint32
	lastCol  uint32
}

// emitFunc renders one callable function. Device functions get weak
// linkage so several modules holding the same specialization link; the
// kernel body stays module-local. Both return the i32 status through a
// return param.
func (e *emitter) emitFunc(f *kir.Func) error {
	fe := &funcEmitter{
		e:     e,
		f:     f,
		sym:   e.names[f.ID],
		regOf: make(map[kir.LocalID]string),
		clsOf: make(map[kir.LocalID]regClass),
	}
	if err := fe.allocLocals(); err != nil {
		return err
	}
	if err := fe.emitBody(); err != nil {
		return err
	}

	linkage := ".func"
	if f.Kind == kir.FuncDevice {
		linkage = ".weak .func"
	}
	fmt.Fprintf(&e.buf, "%s (.param .b32 func_retval0) %s(\n", linkage, fe.sym)
	for i, p := range f.Params {
		sep := ","
		if i == len(f.Params)-1 {
			sep = ""
		}
		fmt.Fprintf(&e.buf, "\t.param %s %s_param_%d%s\n", fe.clsOf[p].paramDecl(), fe.sym, i, sep)
	}
	e.buf.WriteString(")\n{\n")
	fe.writeRegDecls()
	e.buf.WriteString("\n")
	e.buf.WriteString(fe.body.String())
	e.buf.WriteString("}\n\n")
	return nil
}

// paramDecl is the .param declaration type for a register class.
func (c regClass) paramDecl() string {
	switch c {
	case regPred:
		return ".b8"
	case regB32:
		return ".b32"
	case regB64:
		return ".b64"
	case regF32:
		return ".f32"
	case regF64:
		return ".f64"
	}
	return ".b32"
}

func (fe *funcEmitter) allocLocals() error {
	for i := range fe.f.Locals {
		id := kir.LocalID(i) //nolint:gosec // bounded by local count
		cls, err := classOf(fe.e.mod.Types, fe.f.Locals[i].Type)
		if err != nil {
			return err
		}
		fe.clsOf[id] = cls
		fe.regOf[id] = fe.ra.alloc(cls)
	}
	return nil
}

func (fe *funcEmitter) emitBody() error {
	for i, p := range fe.f.Params {
		if err := fe.loadParam(p, fmt.Sprintf("%s_param_%d", fe.sym, i)); err != nil {
			return err
		}
	}
	fmt.Fprintf(&fe.body, "\tbra\t$L_BB_%d;\n", fe.f.Entry)
	for i := range fe.f.Blocks {
		bb := &fe.f.Blocks[i]
		fmt.Fprintf(&fe.body, "$L_BB_%d:\n", bb.ID)
		for j := range bb.Instrs {
			if err := fe.emitInstr(&bb.Instrs[j]); err != nil {
				return err
			}
		}
		if err := fe.emitTerm(&bb.Term); err != nil {
			return err
		}
	}
	return nil
}

func (fe *funcEmitter) loadParam(p kir.LocalID, paramName string) error {
	cls := fe.clsOf[p]
	reg := fe.regOf[p]
	switch cls {
	case regPred:
		tmp := fe.ra.alloc(regB32)
		fmt.Fprintf(&fe.body, "\tld.param.u8\t%s, [%s];\n", tmp, paramName)
		fmt.Fprintf(&fe.body, "\tsetp.ne.s32\t%s, %s, 0;\n", reg, tmp)
	case regB32:
		fmt.Fprintf(&fe.body, "\tld.param.u32\t%s, [%s];\n", reg, paramName)
	case regB64:
		fmt.Fprintf(&fe.body, "\tld.param.u64\t%s, [%s];\n", reg, paramName)
	case regF32:
		fmt.Fprintf(&fe.body, "\tld.param.f32\t%s, [%s];\n", reg, paramName)
	case regF64:
		fmt.Fprintf(&fe.body, "\tld.param.f64\t%s, [%s];\n", reg, paramName)
	}
	return nil
}

func (fe *funcEmitter) writeRegDecls() {
	order := []regClass{regPred, regB32, regB64, regF32, regF64}
	for _, c := range order {
		if n := fe.ra.count(c); n > 0 {
			fmt.Fprintf(&fe.e.buf, "\t.reg %s \t%s<%d>;\n", c.decl(), c.prefix(), n+1)
		}
	}
}

// loc writes a .loc directive for the span, skipping repeats of the
// previous position.
func (fe *funcEmitter) loc(sp source.Span) {
	if !fe.e.opts.Emission.LineTables() || sp.Empty() && sp.Start == 0 {
		return
	}
	start, _ := fe.e.fs.Resolve(sp)
	if start.Line == fe.lastLine && start.Col == fe.lastCol {
		return
	}
	fe.lastLine, fe.lastCol = start.Line, start.Col
	fmt.Fprintf(&fe.body, "\t.loc\t1 %d %d\n", start.Line, start.Col)
}

func (fe *funcEmitter) newLabel(prefix string) string {
	fe.labelID++
	return fmt.Sprintf("$L_%s_%d", prefix, fe.labelID)
}

// retStatus writes the status into the return param and leaves the
// function.
func (fe *funcEmitter) retStatus(val string) {
	tmp := fe.ra.alloc(regB32)
	fmt.Fprintf(&fe.body, "\tmov.b32\t%s, %s;\n", tmp, val)
	fmt.Fprintf(&fe.body, "\tst.param.b32\t[func_retval0], %s;\n", tmp)
	fmt.Fprintf(&fe.body, "\tret;\n")
}

// emitEntry renders the visible kernel wrapper: it forwards the grid
// arguments to the kernel body and discards the status.
func (e *emitter) emitEntry(kernel *kir.Func, sym string) error {
	fe := &funcEmitter{
		e:     e,
		f:     kernel,
		sym:   sym,
		regOf: make(map[kir.LocalID]string),
		clsOf: make(map[kir.LocalID]regClass),
	}
	for _, p := range kernel.Params {
		cls, err := classOf(e.mod.Types, kernel.Local(p).Type)
		if err != nil {
			return err
		}
		fe.clsOf[p] = cls
		fe.regOf[p] = fe.ra.alloc(cls)
	}

	for i, p := range kernel.Params {
		if err := fe.loadParam(p, fmt.Sprintf("%s_param_%d", sym, i)); err != nil {
			return err
		}
	}
	fe.loc(kernel.Span)
	args := make([]argVal, len(kernel.Params))
	for i, p := range kernel.Params {
		args[i] = argVal{val: fe.regOf[p], cls: fe.clsOf[p]}
	}
	// The grid launch cannot observe the status; it is dropped here.
	if _, err := fe.emitCallSeq(e.names[kernel.ID], args); err != nil {
		return err
	}
	fmt.Fprintf(&fe.body, "\tret;\n")

	fmt.Fprintf(&e.buf, ".visible .entry %s(\n", sym)
	for i, p := range kernel.Params {
		sep := ","
		if i == len(kernel.Params)-1 {
			sep = ""
		}
		fmt.Fprintf(&e.buf, "\t.param %s %s_param_%d%s\n", fe.clsOf[p].paramDecl(), sym, i, sep)
	}
	e.buf.WriteString(")\n{\n")
	fe.writeRegDecls()
	e.buf.WriteString("\n")
	e.buf.WriteString(fe.body.String())
	e.buf.WriteString("}\n\n")
	return nil
}

// argVal is one marshalled call argument: a register or an immediate,
// with its class.
type argVal struct {
	val string
	cls regClass
}

// emitCallSeq renders a PTX call with param space marshalling and returns
// the register holding the callee status.
func (fe *funcEmitter) emitCallSeq(callee string, args []argVal) (string, error) {
	fe.body.WriteString("\t{\n")
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = fmt.Sprintf("param%d", i)
		fmt.Fprintf(&fe.body, "\t.param %s %s;\n", a.cls.paramDecl(), names[i])
		fe.storeParam(names[i], a.val, a.cls)
	}
	fe.body.WriteString("\t.param .b32 retval0;\n")
	fmt.Fprintf(&fe.body, "\tcall.uni (retval0), %s, (%s);\n", callee, strings.Join(names, ", "))
	status := fe.ra.alloc(regB32)
	fmt.Fprintf(&fe.body, "\tld.param.b32\t%s, [retval0];\n", status)
	fe.body.WriteString("\t}\n")
	return status, nil
}

func (fe *funcEmitter) storeParam(param, reg string, cls regClass) {
	switch cls {
	case regPred:
		tmp := fe.ra.alloc(regB32)
		fmt.Fprintf(&fe.body, "\tselp.b32\t%s, 1, 0, %s;\n", tmp, reg)
		fmt.Fprintf(&fe.body, "\tst.param.b8\t[%s], %s;\n", param, tmp)
	case regB32:
		fmt.Fprintf(&fe.body, "\tst.param.b32\t[%s], %s;\n", param, reg)
	case regB64:
		fmt.Fprintf(&fe.body, "\tst.param.b64\t[%s], %s;\n", param, reg)
	case regF32:
		fmt.Fprintf(&fe.body, "\tst.param.f32\t[%s], %s;\n", param, reg)
	case regF64:
		fmt.Fprintf(&fe.body, "\tst.param.f64\t[%s], %s;\n", param, reg)
	}
}
