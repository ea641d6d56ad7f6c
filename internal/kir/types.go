package kir

import (
	"warp/internal/source"
	"warp/internal/types"
)

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

// FuncKind distinguishes the kernel from device functions.
type FuncKind uint8

const (
	FuncKernel FuncKind = iota
	FuncDevice
)

// Local is a typed slot: a parameter, a let binding, or a lowering
// temporary.
type Local struct {
	Name  string
	Type  types.TypeID
	Span  source.Span
	Param bool
}

// OperandKind enumerates operand forms.
type OperandKind uint8

const (
	OperandConstInt OperandKind = iota
	OperandConstFloat
	OperandConstBool
	OperandLocal
)

// Operand is a value usable by instructions: a constant or a local read.
type Operand struct {
	Kind  OperandKind
	Int   int64
	Float float64
	Bool  bool
	Local LocalID
	Type  types.TypeID
}

func ConstInt(v int64, ty types.TypeID) Operand {
	return Operand{Kind: OperandConstInt, Int: v, Type: ty}
}

func ConstFloat(v float64, ty types.TypeID) Operand {
	return Operand{Kind: OperandConstFloat, Float: v, Type: ty}
}

func ConstBool(v bool, ty types.TypeID) Operand {
	return Operand{Kind: OperandConstBool, Bool: v, Type: ty}
}

func UseLocal(id LocalID, ty types.TypeID) Operand {
	return Operand{Kind: OperandLocal, Local: id, Type: ty}
}

// PlaceKind enumerates assignable locations.
type PlaceKind uint8

const (
	// PlaceLocal writes a local slot.
	PlaceLocal PlaceKind = iota
	// PlaceElem writes an element of a slice parameter.
	PlaceElem
)

// Place is an assignable location.
type Place struct {
	Kind  PlaceKind
	Local LocalID // the slot, or the slice holding the element
	Index Operand // PlaceElem only
}
