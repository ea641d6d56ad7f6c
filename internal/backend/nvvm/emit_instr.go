package nvvm

import (
	"fmt"
	"math"

	"warp/internal/kir"
	"warp/internal/types"
)

// operand materializes a value: constants render inline, locals load from
// their stack slot.
func (fe *funcEmitter) operand(op *kir.Operand, dbg string) (val, ty string, err error) {
	ty, err = llvmType(fe.e.mod.Types, op.Type)
	if err != nil {
		return "", "", err
	}
	switch op.Kind {
	case kir.OperandConstInt:
		return fmt.Sprintf("%d", op.Int), ty, nil
	case kir.OperandConstFloat:
		return floatLit(op.Float, ty), ty, nil
	case kir.OperandConstBool:
		if op.Bool {
			return "true", ty, nil
		}
		return "false", ty, nil
	case kir.OperandLocal:
		t := fe.temp()
		fmt.Fprintf(&fe.e.buf, "  %s = load %s, %s* %%l%d%s\n", t, ty, ty, op.Local, dbg)
		return t, ty, nil
	}
	return "", "", fmt.Errorf("nvvm: unknown operand kind %d", op.Kind)
}

// floatLit renders a float constant in hex form so the value survives
// the round trip through text exactly. Single-precision values are
// truncated first, as the IR requires.
func floatLit(v float64, ty string) string {
	if ty == "float" {
		v = float64(float32(v))
	}
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}

func (fe *funcEmitter) typeKind(id types.TypeID) types.Kind {
	t, ok := fe.e.mod.Types.Lookup(id)
	if !ok {
		return types.KindInvalid
	}
	return t.Kind
}

func (fe *funcEmitter) emitInstr(in *kir.Instr) error {
	dbg := fe.dbg(in.Span)
	switch in.Kind {
	case kir.InstrAssign:
		val, ty, err := fe.rvalue(&in.Assign.Src, dbg)
		if err != nil {
			return err
		}
		return fe.store(&in.Assign.Dst, val, ty, dbg)
	case kir.InstrCall:
		return fe.emitCall(&in.Call, dbg)
	}
	return fmt.Errorf("nvvm: unknown instruction kind %d", in.Kind)
}

func (fe *funcEmitter) rvalue(rv *kir.RValue, dbg string) (val, ty string, err error) {
	switch rv.Kind {
	case kir.RValueUse:
		return fe.operand(&rv.Use, dbg)

	case kir.RValueUnary:
		return fe.emitUnary(rv, dbg)

	case kir.RValueBinary:
		return fe.emitBinary(rv, dbg)

	case kir.RValueLoad:
		ptr, elemTy, err := fe.elemPtr(rv.Slice, &rv.Index, dbg)
		if err != nil {
			return "", "", err
		}
		t := fe.temp()
		fmt.Fprintf(&fe.e.buf, "  %s = load %s, %s* %s%s\n", t, elemTy, elemTy, ptr, dbg)
		return t, elemTy, nil
	}
	return "", "", fmt.Errorf("nvvm: unknown rvalue kind %d", rv.Kind)
}

func (fe *funcEmitter) emitUnary(rv *kir.RValue, dbg string) (val, ty string, err error) {
	x, xty, err := fe.operand(&rv.X, dbg)
	if err != nil {
		return "", "", err
	}
	t := fe.temp()
	switch {
	case rv.UnOp == kir.UnNot:
		fmt.Fprintf(&fe.e.buf, "  %s = xor i1 %s, true%s\n", t, x, dbg)
		return t, "i1", nil
	case fe.typeKind(rv.X.Type) == types.KindFloat:
		fmt.Fprintf(&fe.e.buf, "  %s = fneg %s %s%s\n", t, xty, x, dbg)
		return t, xty, nil
	default:
		fmt.Fprintf(&fe.e.buf, "  %s = sub %s 0, %s%s\n", t, xty, x, dbg)
		return t, xty, nil
	}
}

func (fe *funcEmitter) emitBinary(rv *kir.RValue, dbg string) (val, ty string, err error) {
	x, xty, err := fe.operand(&rv.X, dbg)
	if err != nil {
		return "", "", err
	}
	y, _, err := fe.operand(&rv.Y, dbg)
	if err != nil {
		return "", "", err
	}
	kind := fe.typeKind(rv.X.Type)
	isFloat := kind == types.KindFloat

	// The checked error model guards every division: a zero divisor
	// aborts the kernel with a nonzero status instead of producing
	// undefined behavior or an inf.
	if fe.e.opts.PythonErrors && (rv.BinOp == kir.BinDiv || rv.BinOp == kir.BinRem) {
		zero := "0"
		cmp := "icmp eq"
		if isFloat {
			zero = floatLit(0, xty)
			cmp = "fcmp oeq"
		}
		c := fe.temp()
		errBB := fe.label("divzero")
		okBB := fe.label("divok")
		fmt.Fprintf(&fe.e.buf, "  %s = %s %s %s, %s%s\n", c, cmp, xty, y, zero, dbg)
		fmt.Fprintf(&fe.e.buf, "  br i1 %s, label %%%s, label %%%s%s\n", c, errBB, okBB, dbg)
		fmt.Fprintf(&fe.e.buf, "%s:\n", errBB)
		fmt.Fprintf(&fe.e.buf, "  ret i32 %d%s\n", statusDivByZero, dbg)
		fmt.Fprintf(&fe.e.buf, "%s:\n", okBB)
	}

	if rv.BinOp.IsCompare() {
		pred, err := cmpPred(rv.BinOp, kind)
		if err != nil {
			return "", "", err
		}
		op := "icmp"
		if isFloat {
			op = "fcmp"
		}
		t := fe.temp()
		fmt.Fprintf(&fe.e.buf, "  %s = %s %s %s %s, %s%s\n", t, op, pred, xty, x, y, dbg)
		return t, "i1", nil
	}

	instr, err := arithInstr(rv.BinOp, isFloat)
	if err != nil {
		return "", "", err
	}
	t := fe.temp()
	fmt.Fprintf(&fe.e.buf, "  %s = %s %s %s, %s%s\n", t, instr, xty, x, y, dbg)
	return t, xty, nil
}

func arithInstr(op kir.BinOp, isFloat bool) (string, error) {
	if isFloat {
		switch op {
		case kir.BinAdd:
			return "fadd", nil
		case kir.BinSub:
			return "fsub", nil
		case kir.BinMul:
			return "fmul", nil
		case kir.BinDiv:
			return "fdiv", nil
		case kir.BinRem:
			return "frem", nil
		}
		return "", fmt.Errorf("nvvm: float op %s has no IR form", op)
	}
	switch op {
	case kir.BinAdd:
		return "add", nil
	case kir.BinSub:
		return "sub", nil
	case kir.BinMul:
		return "mul", nil
	case kir.BinDiv:
		return "sdiv", nil
	case kir.BinRem:
		return "srem", nil
	}
	return "", fmt.Errorf("nvvm: int op %s has no IR form", op)
}

func cmpPred(op kir.BinOp, kind types.Kind) (string, error) {
	if kind == types.KindFloat {
		switch op {
		case kir.BinEq:
			return "oeq", nil
		case kir.BinNe:
			return "one", nil
		case kir.BinLt:
			return "olt", nil
		case kir.BinLe:
			return "ole", nil
		case kir.BinGt:
			return "ogt", nil
		case kir.BinGe:
			return "oge", nil
		}
		return "", fmt.Errorf("nvvm: float compare %s has no predicate", op)
	}
	switch op {
	case kir.BinEq:
		return "eq", nil
	case kir.BinNe:
		return "ne", nil
	case kir.BinLt:
		return "slt", nil
	case kir.BinLe:
		return "sle", nil
	case kir.BinGt:
		return "sgt", nil
	case kir.BinGe:
		return "sge", nil
	}
	return "", fmt.Errorf("nvvm: compare %s has no predicate", op)
}

// elemPtr computes the address of slice[index].
func (fe *funcEmitter) elemPtr(slice kir.LocalID, index *kir.Operand, dbg string) (ptr, elemTy string, err error) {
	sliceTy, ok := fe.e.mod.Types.Lookup(fe.f.Local(slice).Type)
	if !ok || sliceTy.Kind != types.KindSlice {
		return "", "", fmt.Errorf("nvvm: L%d is not a slice", slice)
	}
	elemTy, err = llvmType(fe.e.mod.Types, sliceTy.Elem)
	if err != nil {
		return "", "", err
	}

	base := fe.temp()
	fmt.Fprintf(&fe.e.buf, "  %s = load %s*, %s** %%l%d%s\n", base, elemTy, elemTy, slice, dbg)

	idx, idxTy, err := fe.operand(index, dbg)
	if err != nil {
		return "", "", err
	}
	if idxTy != "i64" {
		wide := fe.temp()
		fmt.Fprintf(&fe.e.buf, "  %s = sext %s %s to i64%s\n", wide, idxTy, idx, dbg)
		idx = wide
	}

	p := fe.temp()
	fmt.Fprintf(&fe.e.buf, "  %s = getelementptr %s, %s* %s, i64 %s%s\n", p, elemTy, elemTy, base, idx, dbg)
	return p, elemTy, nil
}

func (fe *funcEmitter) store(dst *kir.Place, val, ty, dbg string) error {
	switch dst.Kind {
	case kir.PlaceLocal:
		fmt.Fprintf(&fe.e.buf, "  store %s %s, %s* %%l%d%s\n", ty, val, ty, dst.Local, dbg)
		return nil
	case kir.PlaceElem:
		ptr, elemTy, err := fe.elemPtr(dst.Local, &dst.Index, dbg)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.e.buf, "  store %s %s, %s* %s%s\n", elemTy, val, elemTy, ptr, dbg)
		return nil
	}
	return fmt.Errorf("nvvm: unknown place kind %d", dst.Kind)
}

func (fe *funcEmitter) emitCall(call *kir.CallInstr, dbg string) error {
	args := make([]string, len(call.Args))
	for i := range call.Args {
		val, ty, err := fe.operand(&call.Args[i], dbg)
		if err != nil {
			return err
		}
		args[i] = ty + " " + val
	}
	callee, ok := fe.e.names[call.Callee]
	if !ok {
		return fmt.Errorf("nvvm: call to unknown fn#%d", call.Callee)
	}
	status := fe.temp()
	fmt.Fprintf(&fe.e.buf, "  %s = call i32 @%s(%s)%s\n", status, callee, joinArgs(args), dbg)

	// Status propagation exists only in the checked error model. The
	// unchecked model discards the status, matching hardware semantics.
	if fe.e.opts.PythonErrors {
		c := fe.temp()
		errBB := fe.label("callerr")
		okBB := fe.label("callok")
		fmt.Fprintf(&fe.e.buf, "  %s = icmp ne i32 %s, 0%s\n", c, status, dbg)
		fmt.Fprintf(&fe.e.buf, "  br i1 %s, label %%%s, label %%%s%s\n", c, errBB, okBB, dbg)
		fmt.Fprintf(&fe.e.buf, "%s:\n", errBB)
		fmt.Fprintf(&fe.e.buf, "  ret i32 %s%s\n", status, dbg)
		fmt.Fprintf(&fe.e.buf, "%s:\n", okBB)
	}
	return nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

func (fe *funcEmitter) emitTerm(term *kir.Terminator) error {
	dbg := fe.dbg(term.Span)
	switch term.Kind {
	case kir.TermReturn:
		fmt.Fprintf(&fe.e.buf, "  ret i32 %d%s\n", statusOK, dbg)
		return nil
	case kir.TermGoto:
		fmt.Fprintf(&fe.e.buf, "  br label %%bb%d%s\n", term.Goto.Target, dbg)
		return nil
	case kir.TermIf:
		cond, _, err := fe.operand(&term.If.Cond, dbg)
		if err != nil {
			return err
		}
		fmt.Fprintf(&fe.e.buf, "  br i1 %s, label %%bb%d, label %%bb%d%s\n", cond, term.If.Then, term.If.Else, dbg)
		return nil
	case kir.TermNone:
		fmt.Fprintf(&fe.e.buf, "  unreachable\n")
		return nil
	}
	return fmt.Errorf("nvvm: unknown terminator kind %d", term.Kind)
}
