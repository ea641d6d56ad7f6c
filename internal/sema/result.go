package sema

import (
	"warp/internal/ast"
	"warp/internal/source"
	"warp/internal/types"
)

// FuncID indexes instantiated functions inside a Result, in discovery
// order: the kernel itself first, then device callees.
type FuncID int32

const NoFuncID FuncID = -1

// RefKind says what an identifier resolved to.
type RefKind uint8

const (
	RefParam RefKind = iota
	RefLocal
	RefFunc
)

// Ref is the resolution of one identifier expression.
type Ref struct {
	Kind  RefKind
	Index int    // param or local index within the enclosing function
	Func  FuncID // RefFunc
}

// ParamInfo is one parameter with its concrete (signature-bound) type.
type ParamInfo struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// LocalInfo is one let-binding with its inferred type.
type LocalInfo struct {
	Name string
	Type types.TypeID
	Span source.Span
	Stmt ast.StmtID
}

// FuncInfo is one instantiated function: the kernel or a device callee
// specialised to concrete parameter types.
type FuncInfo struct {
	ID     FuncID
	Item   ast.ItemID
	Kind   ast.ItemKind
	Name   string
	Span   source.Span
	Params []ParamInfo
	Locals []LocalInfo
}

// Result carries everything lowering needs: the instantiated functions,
// per-expression types and identifier resolutions.
type Result struct {
	Types *types.Interner
	Funcs []*FuncInfo

	// ExprTypes maps every checked expression to its type.
	ExprTypes map[ast.ExprID]types.TypeID
	// Refs maps identifier expressions to their resolution.
	Refs map[ast.ExprID]Ref
	// LocalOf maps a let statement to its local index.
	LocalOf map[ast.StmtID]int
	// CalleeOf maps call expressions to the instantiated callee.
	CalleeOf map[ast.ExprID]FuncID
}

// Func returns the instantiated function with the given ID, or nil.
func (r *Result) Func(id FuncID) *FuncInfo {
	if id < 0 || int(id) >= len(r.Funcs) {
		return nil
	}
	return r.Funcs[id]
}

// FuncByName returns the first instantiated function with the given name.
func (r *Result) FuncByName(name string) *FuncInfo {
	for _, f := range r.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
