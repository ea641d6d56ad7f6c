package kir

import (
	"fmt"
	"io"

	"warp/internal/types"
)

// DumpModule writes a human-readable dump of the module, kernel first,
// device functions in instantiation order.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	fmt.Fprintf(w, "funcs=%d\n", len(m.Funcs))
	for _, f := range m.Funcs {
		if err := dumpFunc(w, f, m.Types); err != nil {
			return err
		}
	}
	return nil
}

func dumpFunc(w io.Writer, f *Func, typesIn *types.Interner) error {
	if f == nil {
		return nil
	}
	kind := "device"
	if f.Kind == FuncKernel {
		kind = "kernel"
	}
	fmt.Fprintf(w, "\n%s %s:\n", kind, f.Name)

	fmt.Fprintf(w, "  locals:\n")
	for i := range f.Locals {
		l := &f.Locals[i]
		tag := ""
		if l.Param {
			tag = " param"
		}
		fmt.Fprintf(w, "    L%d: %s%s name=%s\n", i, typeStr(typesIn, l.Type), tag, l.Name)
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			fmt.Fprintf(w, "    %s\n", formatInstr(&bb.Instrs[j]))
		}
		fmt.Fprintf(w, "    %s\n", formatTerm(&bb.Term))
	}
	return nil
}

func formatInstr(ins *Instr) string {
	switch ins.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s", formatPlace(ins.Assign.Dst), formatRValue(&ins.Assign.Src))
	case InstrCall:
		return fmt.Sprintf("call fn#%d(%s)", ins.Call.Callee, formatOperands(ins.Call.Args))
	}
	return "<instr?>"
}

func formatTerm(term *Terminator) string {
	switch term.Kind {
	case TermReturn:
		return "return"
	case TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", formatOperand(&term.If.Cond), term.If.Then, term.If.Else)
	case TermNone:
		return "unreachable"
	}
	return "<term?>"
}

func formatPlace(p Place) string {
	switch p.Kind {
	case PlaceLocal:
		return fmt.Sprintf("L%d", p.Local)
	case PlaceElem:
		return fmt.Sprintf("L%d[%s]", p.Local, formatOperand(&p.Index))
	}
	return "L?"
}

func formatRValue(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return formatOperand(&rv.Use)
	case RValueBinary:
		return fmt.Sprintf("(%s %s %s)", formatOperand(&rv.X), rv.BinOp, formatOperand(&rv.Y))
	case RValueUnary:
		return fmt.Sprintf("(%s %s)", rv.UnOp, formatOperand(&rv.X))
	case RValueLoad:
		return fmt.Sprintf("load L%d[%s]", rv.Slice, formatOperand(&rv.Index))
	}
	return "<rvalue?>"
}

func formatOperands(ops []Operand) string {
	out := ""
	for i := range ops {
		if i > 0 {
			out += ", "
		}
		out += formatOperand(&ops[i])
	}
	return out
}

func formatOperand(op *Operand) string {
	switch op.Kind {
	case OperandConstInt:
		return fmt.Sprintf("const %d", op.Int)
	case OperandConstFloat:
		return fmt.Sprintf("const %g", op.Float)
	case OperandConstBool:
		if op.Bool {
			return "const true"
		}
		return "const false"
	case OperandLocal:
		return fmt.Sprintf("L%d", op.Local)
	}
	return "<op?>"
}

func typeStr(typesIn *types.Interner, id types.TypeID) string {
	if typesIn == nil {
		return fmt.Sprintf("type#%d", id)
	}
	return typesIn.String(id)
}
