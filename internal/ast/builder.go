package ast

import (
	"warp/internal/source"
)

// Hints sizes the builder arenas up front.
type Hints struct{ Files, Items, Stmts, Exprs uint }

// Builder owns the arenas for one parse session. Node IDs are only
// meaningful relative to the builder that produced them.
type Builder struct {
	Files  *Arena[File]
	Items  *Arena[Item]
	Params *Arena[Param]
	Stmts  *Arena[Stmt]
	Exprs  *Arena[Expr]
	Types  *Arena[Type]
}

func NewBuilder(hints Hints) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Items == 0 {
		hints.Items = 1 << 4
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 7
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 7
	}
	return &Builder{
		Files:  NewArena[File](hints.Files),
		Items:  NewArena[Item](hints.Items),
		Params: NewArena[Param](hints.Items * 4),
		Stmts:  NewArena[Stmt](hints.Stmts),
		Exprs:  NewArena[Expr](hints.Exprs),
		Types:  NewArena[Type](hints.Items * 4),
	}
}

func (b *Builder) NewFile(sp source.Span) FileID {
	return FileID(b.Files.Allocate(File{Span: sp}))
}

func (b *Builder) NewItem(item Item) ItemID {
	return ItemID(b.Items.Allocate(item))
}

func (b *Builder) NewParam(p Param) ParamID {
	return ParamID(b.Params.Allocate(p))
}

func (b *Builder) NewStmt(s Stmt) StmtID {
	return StmtID(b.Stmts.Allocate(s))
}

func (b *Builder) NewExpr(e Expr) ExprID {
	return ExprID(b.Exprs.Allocate(e))
}

func (b *Builder) NewType(t Type) TypeID {
	return TypeID(b.Types.Allocate(t))
}

func (b *Builder) File(id FileID) *File   { return b.Files.Get(uint32(id)) }
func (b *Builder) Item(id ItemID) *Item   { return b.Items.Get(uint32(id)) }
func (b *Builder) Param(id ParamID) *Param { return b.Params.Get(uint32(id)) }
func (b *Builder) Stmt(id StmtID) *Stmt   { return b.Stmts.Get(uint32(id)) }
func (b *Builder) Expr(id ExprID) *Expr   { return b.Exprs.Get(uint32(id)) }
func (b *Builder) Type(id TypeID) *Type   { return b.Types.Get(uint32(id)) }

// PushItem appends an item to a file's item list.
func (b *Builder) PushItem(file FileID, item ItemID) {
	f := b.File(file)
	f.Items = append(f.Items, item)
}

// FindItem returns the first item with the given name, if any.
func (b *Builder) FindItem(file FileID, name string) (ItemID, bool) {
	f := b.File(file)
	if f == nil {
		return NoItemID, false
	}
	for _, id := range f.Items {
		if it := b.Item(id); it != nil && it.Name == name {
			return id, true
		}
	}
	return NoItemID, false
}
