package kir

import (
	"warp/internal/source"
	"warp/internal/types"
)

// Func is one lowered function.
type Func struct {
	ID   FuncID
	Kind FuncKind
	Name string
	Span source.Span

	Params []LocalID
	Locals []Local
	Blocks []Block
	Entry  BlockID
}

// Module is the unit of compilation: the kernel plus the device functions
// it (transitively) calls.
type Module struct {
	File   source.FileID
	Kernel FuncID
	Funcs  []*Func
	Types  *types.Interner
}

// Func resolves a FuncID, or nil.
func (m *Module) Func(id FuncID) *Func {
	if id < 0 || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}

// Local resolves a LocalID inside f, or nil.
func (f *Func) Local(id LocalID) *Local {
	if id < 0 || int(id) >= len(f.Locals) {
		return nil
	}
	return &f.Locals[id]
}

// Block resolves a BlockID inside f, or nil.
func (f *Func) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// NewLocal appends a local slot and returns its ID.
func (f *Func) NewLocal(l Local) LocalID {
	id := LocalID(len(f.Locals)) //nolint:gosec // local counts are tiny
	f.Locals = append(f.Locals, l)
	return id
}

// NewBlock appends an empty block and returns its ID.
func (f *Func) NewBlock() BlockID {
	id := BlockID(len(f.Blocks)) //nolint:gosec // block counts are tiny
	f.Blocks = append(f.Blocks, Block{ID: id})
	return id
}
