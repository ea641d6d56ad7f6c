package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive kernel types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	I32     TypeID
	I64     TypeID
	F32     TypeID
	F64     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with the built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 16),
	}
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.I32 = in.Intern(MakeInt(Width32))
	in.builtins.I64 = in.Intern(MakeInt(Width64))
	in.builtins.F32 = in.Intern(MakeFloat(Width32))
	in.builtins.F64 = in.Intern(MakeFloat(Width64))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// Slice interns slice-of-elem.
func (in *Interner) Slice(elem TypeID) TypeID {
	return in.Intern(MakeSlice(elem))
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// ByName resolves a source-level scalar type name.
func (in *Interner) ByName(name string) (TypeID, bool) {
	switch name {
	case "bool":
		return in.builtins.Bool, true
	case "i32":
		return in.builtins.I32, true
	case "i64":
		return in.builtins.I64, true
	case "f32":
		return in.builtins.F32, true
	case "f64":
		return in.builtins.F64, true
	}
	return NoTypeID, false
}

// String renders a TypeID in source syntax, e.g. "i32" or "[]f32".
func (in *Interner) String(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return fmt.Sprintf("i%d", t.Width)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Width)
	case KindSlice:
		return "[]" + in.String(t.Elem)
	}
	return "<invalid>"
}

// ParseName resolves a signature type string: a scalar name or "[]" + scalar.
func (in *Interner) ParseName(s string) (TypeID, bool) {
	if len(s) > 2 && s[0] == '[' && s[1] == ']' {
		elem, ok := in.ByName(s[2:])
		if !ok {
			return NoTypeID, false
		}
		return in.Slice(elem), true
	}
	return in.ByName(s)
}
