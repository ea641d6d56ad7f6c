package nvvm

import (
	"fmt"

	"warp/internal/types"
)

// llvmType maps a source type to its NVVM IR spelling. Slices lower to a
// raw device pointer to the element type.
func llvmType(in *types.Interner, id types.TypeID) (string, error) {
	t, ok := in.Lookup(id)
	if !ok {
		return "", fmt.Errorf("nvvm: unknown type #%d", id)
	}
	switch t.Kind {
	case types.KindBool:
		return "i1", nil
	case types.KindInt:
		if t.Width == types.Width64 {
			return "i64", nil
		}
		return "i32", nil
	case types.KindFloat:
		if t.Width == types.Width64 {
			return "double", nil
		}
		return "float", nil
	case types.KindSlice:
		elem, err := llvmType(in, t.Elem)
		if err != nil {
			return "", err
		}
		return elem + "*", nil
	case types.KindUnit:
		return "void", nil
	}
	return "", fmt.Errorf("nvvm: type %s has no IR form", in.String(id))
}

