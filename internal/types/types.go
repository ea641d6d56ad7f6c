package types

import (
	"fmt"
)

// TypeID is a stable handle into an Interner.
type TypeID uint32

// NoTypeID is the invalid type handle.
const NoTypeID TypeID = 0

// Kind enumerates the structural kinds a kernel type can have.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnit is the empty result of a kernel or void device function.
	KindUnit
	KindBool
	KindInt
	KindFloat
	// KindSlice is a device-memory view: pointer + element count.
	KindSlice
)

// Width is the bit width of a numeric scalar.
type Width uint8

const (
	WidthNone Width = 0
	Width32   Width = 32
	Width64   Width = 64
)

// Type is a structural descriptor; equal descriptors intern to the same ID.
type Type struct {
	Kind  Kind
	Width Width  // KindInt / KindFloat
	Elem  TypeID // KindSlice
}

// MakeInt builds an integer descriptor of the given width.
func MakeInt(w Width) Type { return Type{Kind: KindInt, Width: w} }

// MakeFloat builds a float descriptor of the given width.
func MakeFloat(w Width) Type { return Type{Kind: KindFloat, Width: w} }

// MakeSlice builds a slice-of-elem descriptor.
func MakeSlice(elem TypeID) Type { return Type{Kind: KindSlice, Elem: elem} }

// IsNumeric reports whether t is an int or float scalar.
func (t Type) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindSlice:
		return "slice"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}
