package ptx

import (
	"fmt"
	"math"

	"warp/internal/kir"
	"warp/internal/types"
)

// operand yields a register or immediate plus its class. Bool constants
// materialize into a predicate register.
func (fe *funcEmitter) operand(op *kir.Operand) (string, regClass, error) {
	switch op.Kind {
	case kir.OperandConstInt:
		cls, err := classOf(fe.e.mod.Types, op.Type)
		if err != nil {
			return "", regB32, err
		}
		return fmt.Sprintf("%d", op.Int), cls, nil
	case kir.OperandConstFloat:
		cls, err := classOf(fe.e.mod.Types, op.Type)
		if err != nil {
			return "", regB32, err
		}
		if cls == regF32 {
			return fmt.Sprintf("0f%08X", math.Float32bits(float32(op.Float))), cls, nil
		}
		return fmt.Sprintf("0d%016X", math.Float64bits(op.Float)), cls, nil
	case kir.OperandConstBool:
		p := fe.ra.alloc(regPred)
		v := 0
		if op.Bool {
			v = 1
		}
		fmt.Fprintf(&fe.body, "\tsetp.ne.s32\t%s, %d, 0;\n", p, v)
		return p, regPred, nil
	case kir.OperandLocal:
		return fe.regOf[op.Local], fe.clsOf[op.Local], nil
	}
	return "", regB32, fmt.Errorf("ptx: unknown operand kind %d", op.Kind)
}

func (fe *funcEmitter) emitInstr(in *kir.Instr) error {
	fe.loc(in.Span)
	switch in.Kind {
	case kir.InstrAssign:
		return fe.emitAssign(&in.Assign)
	case kir.InstrCall:
		return fe.emitCall(&in.Call)
	}
	return fmt.Errorf("ptx: unknown instruction kind %d", in.Kind)
}

func (fe *funcEmitter) emitAssign(as *kir.AssignInstr) error {
	switch as.Dst.Kind {
	case kir.PlaceLocal:
		return fe.rvalueInto(fe.regOf[as.Dst.Local], fe.clsOf[as.Dst.Local], &as.Src)
	case kir.PlaceElem:
		cls, err := fe.elemClass(as.Dst.Local)
		if err != nil {
			return err
		}
		tmp := fe.ra.alloc(cls)
		if err := fe.rvalueInto(tmp, cls, &as.Src); err != nil {
			return err
		}
		addr, elemID, err := fe.elemAddr(as.Dst.Local, &as.Dst.Index)
		if err != nil {
			return err
		}
		return fe.storeGlobal(addr, tmp, cls, elemID)
	}
	return fmt.Errorf("ptx: unknown place kind %d", as.Dst.Kind)
}

func (fe *funcEmitter) elemClass(slice kir.LocalID) (regClass, error) {
	t, ok := fe.e.mod.Types.Lookup(fe.f.Locals[slice].Type)
	if !ok || t.Kind != types.KindSlice {
		return regB32, fmt.Errorf("ptx: L%d is not a slice", slice)
	}
	return classOf(fe.e.mod.Types, t.Elem)
}

func (fe *funcEmitter) rvalueInto(dst string, dstCls regClass, rv *kir.RValue) error {
	switch rv.Kind {
	case kir.RValueUse:
		val, _, err := fe.operand(&rv.Use)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.body, "\tmov.%s\t%s, %s;\n", movSuffix(dstCls), dst, val)
		return nil

	case kir.RValueUnary:
		val, _, err := fe.operand(&rv.X)
		if err != nil {
			return err
		}
		if rv.UnOp == kir.UnNot {
			fmt.Fprintf(&fe.body, "\tnot.pred\t%s, %s;\n", dst, val)
			return nil
		}
		sfx, err := scalarSuffix(fe.e.mod.Types, rv.X.Type)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.body, "\tneg.%s\t%s, %s;\n", sfx, dst, val)
		return nil

	case kir.RValueBinary:
		return fe.emitBinaryInto(dst, rv)

	case kir.RValueLoad:
		addr, elemID, err := fe.elemAddr(rv.Slice, &rv.Index)
		if err != nil {
			return err
		}
		return fe.loadGlobal(dst, dstCls, addr, elemID)
	}
	return fmt.Errorf("ptx: unknown rvalue kind %d", rv.Kind)
}

func movSuffix(c regClass) string {
	switch c {
	case regPred:
		return "pred"
	case regB32:
		return "b32"
	case regB64:
		return "b64"
	case regF32:
		return "f32"
	case regF64:
		return "f64"
	}
	return "b32"
}

func (fe *funcEmitter) emitBinaryInto(dst string, rv *kir.RValue) error {
	x, _, err := fe.operand(&rv.X)
	if err != nil {
		return err
	}
	y, _, err := fe.operand(&rv.Y)
	if err != nil {
		return err
	}
	t, ok := fe.e.mod.Types.Lookup(rv.X.Type)
	if !ok {
		return fmt.Errorf("ptx: operand has unknown type")
	}

	if t.Kind == types.KindBool {
		// Only equality survives the checker for bools.
		fmt.Fprintf(&fe.body, "\txor.pred\t%s, %s, %s;\n", dst, x, y)
		if rv.BinOp == kir.BinEq {
			fmt.Fprintf(&fe.body, "\tnot.pred\t%s, %s;\n", dst, dst)
		}
		return nil
	}

	sfx, err := scalarSuffix(fe.e.mod.Types, rv.X.Type)
	if err != nil {
		return err
	}
	isFloat := t.Kind == types.KindFloat

	if fe.e.opts.PythonErrors && (rv.BinOp == kir.BinDiv || rv.BinOp == kir.BinRem) {
		fe.emitDivGuard(y, sfx, isFloat)
	}

	if rv.BinOp.IsCompare() {
		pred := cmpName(rv.BinOp)
		fmt.Fprintf(&fe.body, "\tsetp.%s.%s\t%s, %s, %s;\n", pred, sfx, dst, x, y)
		return nil
	}

	name, err := arithName(rv.BinOp, isFloat)
	if err != nil {
		return err
	}
	fmt.Fprintf(&fe.body, "\t%s.%s\t%s, %s, %s;\n", name, sfx, dst, x, y)
	return nil
}

// emitDivGuard tests the divisor and returns the error status when it is
// zero. The guard is what distinguishes the checked error model in the
// final assembly.
func (fe *funcEmitter) emitDivGuard(y, sfx string, isFloat bool) {
	zero := "0"
	if isFloat {
		zero = "0f00000000"
		if sfx == "f64" {
			zero = "0d0000000000000000"
		}
	}
	p := fe.ra.alloc(regPred)
	ok := fe.newLabel("noerr")
	fmt.Fprintf(&fe.body, "\tsetp.eq.%s\t%s, %s, %s;\n", sfx, p, y, zero)
	fmt.Fprintf(&fe.body, "\t@!%s bra \t%s;\n", p, ok)
	fe.retStatus("1")
	fmt.Fprintf(&fe.body, "%s:\n", ok)
}

func arithName(op kir.BinOp, isFloat bool) (string, error) {
	switch op {
	case kir.BinAdd:
		return "add", nil
	case kir.BinSub:
		return "sub", nil
	case kir.BinMul:
		if isFloat {
			return "mul", nil
		}
		return "mul.lo", nil
	case kir.BinDiv:
		if isFloat {
			return "div.rn", nil
		}
		return "div", nil
	case kir.BinRem:
		return "rem", nil
	}
	return "", fmt.Errorf("ptx: op %s has no instruction", op)
}

func cmpName(op kir.BinOp) string {
	switch op {
	case kir.BinEq:
		return "eq"
	case kir.BinNe:
		return "ne"
	case kir.BinLt:
		return "lt"
	case kir.BinLe:
		return "le"
	case kir.BinGt:
		return "gt"
	case kir.BinGe:
		return "ge"
	}
	return "eq"
}

// elemAddr computes the global address of slice[index].
func (fe *funcEmitter) elemAddr(slice kir.LocalID, index *kir.Operand) (string, types.TypeID, error) {
	t, ok := fe.e.mod.Types.Lookup(fe.f.Locals[slice].Type)
	if !ok || t.Kind != types.KindSlice {
		return "", types.NoTypeID, fmt.Errorf("ptx: L%d is not a slice", slice)
	}
	base := fe.regOf[slice]
	size := elemSize(fe.e.mod.Types, t.Elem)
	addr := fe.ra.alloc(regB64)

	if index.Kind == kir.OperandConstInt {
		fmt.Fprintf(&fe.body, "\tadd.s64\t%s, %s, %d;\n", addr, base, index.Int*int64(size))
		return addr, t.Elem, nil
	}

	idx, idxCls, err := fe.operand(index)
	if err != nil {
		return "", types.NoTypeID, err
	}
	scaled := fe.ra.alloc(regB64)
	if idxCls == regB64 {
		fmt.Fprintf(&fe.body, "\tmul.lo.s64\t%s, %s, %d;\n", scaled, idx, size)
	} else {
		fmt.Fprintf(&fe.body, "\tmul.wide.s32\t%s, %s, %d;\n", scaled, idx, size)
	}
	fmt.Fprintf(&fe.body, "\tadd.s64\t%s, %s, %s;\n", addr, base, scaled)
	return addr, t.Elem, nil
}

func memSuffix(in *types.Interner, id types.TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "u32"
	}
	switch t.Kind {
	case types.KindBool:
		return "u8"
	case types.KindInt:
		if t.Width == types.Width64 {
			return "u64"
		}
		return "u32"
	case types.KindFloat:
		if t.Width == types.Width64 {
			return "f64"
		}
		return "f32"
	}
	return "u32"
}

func (fe *funcEmitter) loadGlobal(dst string, dstCls regClass, addr string, elemID types.TypeID) error {
	if dstCls == regPred {
		tmp := fe.ra.alloc(regB32)
		fmt.Fprintf(&fe.body, "\tld.global.u8\t%s, [%s];\n", tmp, addr)
		fmt.Fprintf(&fe.body, "\tsetp.ne.s32\t%s, %s, 0;\n", dst, tmp)
		return nil
	}
	fmt.Fprintf(&fe.body, "\tld.global.%s\t%s, [%s];\n", memSuffix(fe.e.mod.Types, elemID), dst, addr)
	return nil
}

func (fe *funcEmitter) storeGlobal(addr, val string, cls regClass, elemID types.TypeID) error {
	if cls == regPred {
		tmp := fe.ra.alloc(regB32)
		fmt.Fprintf(&fe.body, "\tselp.b32\t%s, 1, 0, %s;\n", tmp, val)
		fmt.Fprintf(&fe.body, "\tst.global.u8\t[%s], %s;\n", addr, tmp)
		return nil
	}
	fmt.Fprintf(&fe.body, "\tst.global.%s\t[%s], %s;\n", memSuffix(fe.e.mod.Types, elemID), addr, val)
	return nil
}

func (fe *funcEmitter) emitCall(call *kir.CallInstr) error {
	args := make([]argVal, len(call.Args))
	for i := range call.Args {
		val, cls, err := fe.operand(&call.Args[i])
		if err != nil {
			return err
		}
		args[i] = argVal{val: val, cls: cls}
	}
	callee, ok := fe.e.names[call.Callee]
	if !ok {
		return fmt.Errorf("ptx: call to unknown fn#%d", call.Callee)
	}
	status, err := fe.emitCallSeq(callee, args)
	if err != nil {
		return err
	}
	if fe.e.opts.PythonErrors {
		p := fe.ra.alloc(regPred)
		ok := fe.newLabel("callok")
		fmt.Fprintf(&fe.body, "\tsetp.ne.s32\t%s, %s, 0;\n", p, status)
		fmt.Fprintf(&fe.body, "\t@!%s bra \t%s;\n", p, ok)
		fmt.Fprintf(&fe.body, "\tst.param.b32\t[func_retval0], %s;\n", status)
		fmt.Fprintf(&fe.body, "\tret;\n")
		fmt.Fprintf(&fe.body, "%s:\n", ok)
	}
	return nil
}

func (fe *funcEmitter) emitTerm(term *kir.Terminator) error {
	fe.loc(term.Span)
	switch term.Kind {
	case kir.TermReturn:
		fe.retStatus("0")
		return nil
	case kir.TermGoto:
		fmt.Fprintf(&fe.body, "\tbra \t$L_BB_%d;\n", term.Goto.Target)
		return nil
	case kir.TermIf:
		cond, cls, err := fe.operand(&term.If.Cond)
		if err != nil {
			return err
		}
		if cls != regPred {
			return fmt.Errorf("ptx: branch condition is not a predicate")
		}
		fmt.Fprintf(&fe.body, "\t@%s bra \t$L_BB_%d;\n", cond, term.If.Then)
		fmt.Fprintf(&fe.body, "\tbra \t$L_BB_%d;\n", term.If.Else)
		return nil
	case kir.TermNone:
		fmt.Fprintf(&fe.body, "\ttrap;\n")
		return nil
	}
	return fmt.Errorf("ptx: unknown terminator kind %d", term.Kind)
}
