package ptx

import (
	"fmt"

	"warp/internal/types"
)

// regClass is one PTX virtual register class.
type regClass uint8

const (
	regPred regClass = iota // %p  - predicates
	regB32                  // %r  - 32-bit integers
	regB64                  // %rd - 64-bit integers and pointers
	regF32                  // %f  - single floats
	regF64                  // %fd - double floats
	numRegClasses
)

func (c regClass) prefix() string {
	switch c {
	case regPred:
		return "%p"
	case regB32:
		return "%r"
	case regB64:
		return "%rd"
	case regF32:
		return "%f"
	case regF64:
		return "%fd"
	}
	return "%x"
}

func (c regClass) decl() string {
	switch c {
	case regPred:
		return ".pred"
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

// classOf maps a scalar or slice type to its register class. Slices live
// in 64-bit pointer registers, bools in predicates.
func classOf(in *types.Interner, id types.TypeID) (regClass, error) {
	t, ok := in.Lookup(id)
	if !ok {
		return regB32, fmt.Errorf("ptx: unknown type #%d", id)
	}
	switch t.Kind {
	case types.KindBool:
		return regPred, nil
	case types.KindInt:
		if t.Width == types.Width64 {
			return regB64, nil
		}
		return regB32, nil
	case types.KindFloat:
		if t.Width == types.Width64 {
			return regF64, nil
		}
		return regF32, nil
	case types.KindSlice:
		return regB64, nil
	}
	return regB32, fmt.Errorf("ptx: type %s has no register class", in.String(id))
}

// scalarSuffix is the PTX type suffix for arithmetic on a scalar type.
func scalarSuffix(in *types.Interner, id types.TypeID) (string, error) {
	t, ok := in.Lookup(id)
	if !ok {
		return "", fmt.Errorf("ptx: unknown type #%d", id)
	}
	switch t.Kind {
	case types.KindInt:
		if t.Width == types.Width64 {
			return "s64", nil
		}
		return "s32", nil
	case types.KindFloat:
		if t.Width == types.Width64 {
			return "f64", nil
		}
		return "f32", nil
	case types.KindBool:
		return "pred", nil
	}
	return "", fmt.Errorf("ptx: type %s has no scalar suffix", in.String(id))
}

// elemSize is the in-memory size of a scalar element.
func elemSize(in *types.Interner, id types.TypeID) uint32 {
	t, ok := in.Lookup(id)
	if !ok {
		return 4
	}
	switch t.Kind {
	case types.KindBool:
		return 1
	case types.KindInt, types.KindFloat:
		if t.Width == types.Width64 {
			return 8
		}
		return 4
	}
	return 4
}

// regAlloc hands out virtual registers per class.
type regAlloc struct {
	next [numRegClasses]int
}

func (ra *regAlloc) alloc(c regClass) string {
	ra.next[c]++
	return fmt.Sprintf("%s%d", c.prefix(), ra.next[c])
}

// count returns how many registers of the class were used; the function
// header declares count+1 as PTX requires an exclusive bound.
func (ra *regAlloc) count(c regClass) int {
	return ra.next[c]
}
