// Package names builds the linkage symbols shared by the IR and PTX
// backends. Both must agree on them, or the assembly would not link
// against the metadata the IR stage records.
package names

import (
	"strings"

	"warp/internal/kir"
	"warp/internal/types"
)

// KernelPrefix marks the visible entry wrapper.
const KernelPrefix = "wk_"

// DevicePrefix marks device function symbols.
const DevicePrefix = "wd_"

// TypeCode is the mangling fragment for one type.
func TypeCode(in *types.Interner, id types.TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "x"
	}
	switch t.Kind {
	case types.KindBool:
		return "b"
	case types.KindInt:
		if t.Width == types.Width64 {
			return "i64"
		}
		return "i32"
	case types.KindFloat:
		if t.Width == types.Width64 {
			return "f64"
		}
		return "f32"
	case types.KindSlice:
		return "p" + TypeCode(in, t.Elem)
	}
	return "x"
}

// Mangle builds the base symbol for an instantiated function: the source
// name followed by the parameter type codes, so each specialization gets
// its own symbol.
func Mangle(in *types.Interner, f *kir.Func) string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	for _, p := range f.Params {
		sb.WriteByte('_')
		sb.WriteString(TypeCode(in, f.Local(p).Type))
	}
	return sb.String()
}

// FuncSymbol is the final symbol for a lowered function: device
// functions are prefixed, the kernel body keeps the mangled name (the
// wrapper owns the kernel prefix).
func FuncSymbol(in *types.Interner, f *kir.Func) string {
	sym := Mangle(in, f)
	if f.Kind == kir.FuncDevice {
		return DevicePrefix + sym
	}
	return sym
}

// WrapperSymbol is the visible entry symbol for the kernel.
func WrapperSymbol(in *types.Interner, kernel *kir.Func) string {
	return KernelPrefix + Mangle(in, kernel)
}
