package kir

import (
	"warp/internal/source"
)

// BinOp enumerates binary operators in the IR.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinDiv:
		return "div"
	case BinRem:
		return "rem"
	case BinEq:
		return "eq"
	case BinNe:
		return "ne"
	case BinLt:
		return "lt"
	case BinLe:
		return "le"
	case BinGt:
		return "gt"
	case BinGe:
		return "ge"
	}
	return "?"
}

// IsCompare reports whether the operator yields a bool.
func (op BinOp) IsCompare() bool {
	return op >= BinEq
}

// UnOp enumerates unary operators.
type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
)

func (op UnOp) String() string {
	if op == UnNeg {
		return "neg"
	}
	return "not"
}

// RValueKind enumerates right-hand-side forms.
type RValueKind uint8

const (
	// RValueUse copies an operand.
	RValueUse RValueKind = iota
	// RValueBinary applies a binary operator.
	RValueBinary
	// RValueUnary applies a unary operator.
	RValueUnary
	// RValueLoad reads an element of a slice parameter.
	RValueLoad
)

// RValue is the right-hand side of an assignment.
type RValue struct {
	Kind RValueKind

	Use    Operand
	BinOp  BinOp
	UnOp   UnOp
	X      Operand
	Y      Operand
	Slice  LocalID
	Index  Operand
}

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAssign stores an rvalue into a place.
	InstrAssign InstrKind = iota
	// InstrCall invokes a device function.
	InstrCall
)

// Instr is one IR instruction. Span points at the source statement or
// expression it was lowered from; the backends map it to line info.
type Instr struct {
	Kind InstrKind
	Span source.Span

	Assign AssignInstr
	Call   CallInstr
}

// AssignInstr stores Src into Dst.
type AssignInstr struct {
	Dst Place
	Src RValue
}

// CallInstr invokes a device function by FuncID.
type CallInstr struct {
	Callee FuncID
	Args   []Operand
}

// TermKind enumerates block terminators.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
)

// Terminator ends a block.
type Terminator struct {
	Kind TermKind
	Span source.Span

	Goto GotoTerm
	If   IfTerm
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

// Block is a basic block: instructions then a terminator.
type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}
