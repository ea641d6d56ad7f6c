package kir

import (
	"fmt"

	"warp/internal/ast"
	"warp/internal/sema"
	"warp/internal/source"
	"warp/internal/types"
)

// Lower converts the checked functions into a Module. Sema has already
// rejected ill-typed programs; lowering failures indicate internal
// inconsistencies and surface as errors.
func Lower(b *ast.Builder, res *sema.Result, file source.FileID) (*Module, error) {
	mod := &Module{
		File:   file,
		Kernel: NoFuncID,
		Types:  res.Types,
	}

	for _, fn := range res.Funcs {
		lowered, err := lowerFunc(b, res, fn)
		if err != nil {
			return nil, err
		}
		mod.Funcs = append(mod.Funcs, lowered)
		if fn.Kind == ast.ItemKernel && mod.Kernel == NoFuncID {
			mod.Kernel = lowered.ID
		}
	}
	if mod.Kernel == NoFuncID {
		return nil, fmt.Errorf("kir: no kernel in checked result")
	}
	return mod, nil
}

// lowerer is per-function lowering state.
type lowerer struct {
	b     *ast.Builder
	res   *sema.Result
	info  *sema.FuncInfo
	fn    *Func
	cur   BlockID
	tmpID int

	// localSlot maps sema local indices to IR locals.
	localSlot []LocalID
}

func lowerFunc(b *ast.Builder, res *sema.Result, info *sema.FuncInfo) (*Func, error) {
	kind := FuncDevice
	if info.Kind == ast.ItemKernel {
		kind = FuncKernel
	}
	fn := &Func{
		ID:   FuncID(info.ID),
		Kind: kind,
		Name: info.Name,
		Span: info.Span,
	}

	lw := &lowerer{
		b:         b,
		res:       res,
		info:      info,
		fn:        fn,
		localSlot: make([]LocalID, len(info.Locals)),
	}

	for _, p := range info.Params {
		id := fn.NewLocal(Local{Name: p.Name, Type: p.Type, Span: p.Span, Param: true})
		fn.Params = append(fn.Params, id)
	}
	for i := range lw.localSlot {
		lw.localSlot[i] = NoLocalID
	}

	fn.Entry = fn.NewBlock()
	lw.cur = fn.Entry

	item := b.Item(info.Item)
	if err := lw.lowerBlockStmt(item.Body); err != nil {
		return nil, err
	}

	// Fall off the end of the body: implicit return.
	if lw.block().Term.Kind == TermNone {
		lw.setTerm(Terminator{Kind: TermReturn, Span: endSpan(item.Span)})
	}
	return fn, nil
}

func (lw *lowerer) block() *Block {
	return lw.fn.Block(lw.cur)
}

func (lw *lowerer) emit(in Instr) {
	b := lw.block()
	if b.Term.Kind != TermNone {
		// Unreachable code after a return; drop it.
		return
	}
	b.Instrs = append(b.Instrs, in)
}

func (lw *lowerer) setTerm(t Terminator) {
	b := lw.block()
	if b.Term.Kind != TermNone {
		return
	}
	b.Term = t
}

// newTemp allocates a compiler temporary of the given type.
func (lw *lowerer) newTemp(ty types.TypeID, sp source.Span) LocalID {
	lw.tmpID++
	return lw.fn.NewLocal(Local{
		Name: fmt.Sprintf("t%d", lw.tmpID-1),
		Type: ty,
		Span: sp,
	})
}

func (lw *lowerer) lowerBlockStmt(id ast.StmtID) error {
	block := lw.b.Stmt(id)
	for _, sid := range block.Stmts {
		if err := lw.lowerStmt(sid); err != nil {
			return err
		}
	}
	return nil
}

func (lw *lowerer) lowerStmt(id ast.StmtID) error {
	stmt := lw.b.Stmt(id)
	switch stmt.Kind {
	case ast.StmtBlock:
		return lw.lowerBlockStmt(id)

	case ast.StmtLet:
		init, err := lw.lowerExpr(stmt.Init)
		if err != nil {
			return err
		}
		semaIdx, ok := lw.res.LocalOf[id]
		if !ok {
			return fmt.Errorf("kir: let %q has no local slot", stmt.Name)
		}
		local := lw.fn.NewLocal(Local{
			Name: stmt.Name,
			Type: lw.info.Locals[semaIdx].Type,
			Span: stmt.NameSpan,
		})
		lw.localSlot[semaIdx] = local
		lw.emit(Instr{
			Kind: InstrAssign,
			Span: stmt.Span,
			Assign: AssignInstr{
				Dst: Place{Kind: PlaceLocal, Local: local},
				Src: RValue{Kind: RValueUse, Use: init},
			},
		})
		return nil

	case ast.StmtAssign:
		return lw.lowerAssign(stmt)

	case ast.StmtExpr:
		return lw.lowerExprStmt(stmt)

	case ast.StmtIf:
		return lw.lowerIf(stmt)

	case ast.StmtWhile:
		return lw.lowerWhile(stmt)

	case ast.StmtReturn:
		lw.setTerm(Terminator{Kind: TermReturn, Span: stmt.Span})
		return nil
	}
	return fmt.Errorf("kir: unknown statement kind %d", stmt.Kind)
}

func (lw *lowerer) lowerAssign(stmt *ast.Stmt) error {
	place, err := lw.lowerPlace(stmt.Target)
	if err != nil {
		return err
	}
	value, err := lw.lowerExpr(stmt.Value)
	if err != nil {
		return err
	}

	src := RValue{Kind: RValueUse, Use: value}
	if stmt.Op != ast.AssignSet {
		// Compound assignment: read the place, apply, write back.
		current, err := lw.readPlace(place, stmt.Span)
		if err != nil {
			return err
		}
		var op BinOp
		switch stmt.Op {
		case ast.AssignAdd:
			op = BinAdd
		case ast.AssignSub:
			op = BinSub
		case ast.AssignMul:
			op = BinMul
		case ast.AssignDiv:
			op = BinDiv
		}
		src = RValue{Kind: RValueBinary, BinOp: op, X: current, Y: value}
	}

	lw.emit(Instr{
		Kind:   InstrAssign,
		Span:   stmt.Span,
		Assign: AssignInstr{Dst: place, Src: src},
	})
	return nil
}

func (lw *lowerer) lowerExprStmt(stmt *ast.Stmt) error {
	expr := lw.b.Expr(stmt.Expr)
	if expr.Kind == ast.ExprCall {
		calleeID, ok := lw.res.CalleeOf[stmt.Expr]
		if !ok {
			return fmt.Errorf("kir: call without resolved callee")
		}
		args := make([]Operand, 0, len(expr.Args))
		for _, arg := range expr.Args {
			op, err := lw.lowerExpr(arg)
			if err != nil {
				return err
			}
			args = append(args, op)
		}
		lw.emit(Instr{
			Kind: InstrCall,
			Span: stmt.Span,
			Call: CallInstr{Callee: FuncID(calleeID), Args: args},
		})
		return nil
	}

	// Effect-free expression statement: lower for side effects of
	// evaluation only (loads may still trap on OOB in debug builds).
	_, err := lw.lowerExpr(stmt.Expr)
	return err
}

func (lw *lowerer) lowerIf(stmt *ast.Stmt) error {
	cond, err := lw.lowerExpr(stmt.Cond)
	if err != nil {
		return err
	}

	thenBB := lw.fn.NewBlock()
	joinBB := lw.fn.NewBlock()
	elseBB := joinBB
	if stmt.Else.IsValid() {
		elseBB = lw.fn.NewBlock()
	}

	lw.setTerm(Terminator{
		Kind: TermIf,
		Span: lw.b.Expr(stmt.Cond).Span,
		If:   IfTerm{Cond: cond, Then: thenBB, Else: elseBB},
	})

	lw.cur = thenBB
	if err := lw.lowerBlockStmt(stmt.Then); err != nil {
		return err
	}
	lw.setTerm(Terminator{Kind: TermGoto, Span: stmt.Span, Goto: GotoTerm{Target: joinBB}})

	if stmt.Else.IsValid() {
		lw.cur = elseBB
		if err := lw.lowerStmt(stmt.Else); err != nil {
			return err
		}
		lw.setTerm(Terminator{Kind: TermGoto, Span: stmt.Span, Goto: GotoTerm{Target: joinBB}})
	}

	lw.cur = joinBB
	return nil
}

func (lw *lowerer) lowerWhile(stmt *ast.Stmt) error {
	headBB := lw.fn.NewBlock()
	bodyBB := lw.fn.NewBlock()
	exitBB := lw.fn.NewBlock()

	lw.setTerm(Terminator{Kind: TermGoto, Span: stmt.Span, Goto: GotoTerm{Target: headBB}})

	lw.cur = headBB
	cond, err := lw.lowerExpr(stmt.Cond)
	if err != nil {
		return err
	}
	lw.setTerm(Terminator{
		Kind: TermIf,
		Span: lw.b.Expr(stmt.Cond).Span,
		If:   IfTerm{Cond: cond, Then: bodyBB, Else: exitBB},
	})

	lw.cur = bodyBB
	if err := lw.lowerBlockStmt(stmt.Body); err != nil {
		return err
	}
	lw.setTerm(Terminator{Kind: TermGoto, Span: stmt.Span, Goto: GotoTerm{Target: headBB}})

	lw.cur = exitBB
	return nil
}

// lowerPlace maps an assignable expression to a Place.
func (lw *lowerer) lowerPlace(id ast.ExprID) (Place, error) {
	expr := lw.b.Expr(id)
	switch expr.Kind {
	case ast.ExprIdent:
		local, err := lw.localForIdent(id, expr)
		if err != nil {
			return Place{}, err
		}
		return Place{Kind: PlaceLocal, Local: local}, nil

	case ast.ExprIndex:
		base := lw.b.Expr(expr.Base)
		if base.Kind != ast.ExprIdent {
			return Place{}, fmt.Errorf("kir: indexed place base is not a name")
		}
		slice, err := lw.localForIdent(expr.Base, base)
		if err != nil {
			return Place{}, err
		}
		idx, err := lw.lowerExpr(expr.Index)
		if err != nil {
			return Place{}, err
		}
		return Place{Kind: PlaceElem, Local: slice, Index: idx}, nil
	}
	return Place{}, fmt.Errorf("kir: expression is not a place")
}

// readPlace produces an operand holding the current value of place.
func (lw *lowerer) readPlace(place Place, sp source.Span) (Operand, error) {
	switch place.Kind {
	case PlaceLocal:
		l := lw.fn.Local(place.Local)
		return UseLocal(place.Local, l.Type), nil
	case PlaceElem:
		sliceTy, _ := lw.res.Types.Lookup(lw.fn.Local(place.Local).Type)
		tmp := lw.newTemp(sliceTy.Elem, sp)
		lw.emit(Instr{
			Kind: InstrAssign,
			Span: sp,
			Assign: AssignInstr{
				Dst: Place{Kind: PlaceLocal, Local: tmp},
				Src: RValue{Kind: RValueLoad, Slice: place.Local, Index: place.Index},
			},
		})
		return UseLocal(tmp, sliceTy.Elem), nil
	}
	return Operand{}, fmt.Errorf("kir: unreadable place")
}

// localForIdent resolves an identifier expression to its IR local.
func (lw *lowerer) localForIdent(id ast.ExprID, expr *ast.Expr) (LocalID, error) {
	ref, ok := lw.res.Refs[id]
	if !ok {
		return NoLocalID, fmt.Errorf("kir: unresolved identifier %q", expr.Name)
	}
	switch ref.Kind {
	case sema.RefParam:
		return lw.fn.Params[ref.Index], nil
	case sema.RefLocal:
		slot := lw.localSlot[ref.Index]
		if slot == NoLocalID {
			return NoLocalID, fmt.Errorf("kir: local %q used before lowering", expr.Name)
		}
		return slot, nil
	}
	return NoLocalID, fmt.Errorf("kir: identifier %q is not a value", expr.Name)
}

// endSpan is a zero-length span at the end of sp, used for implicit
// returns so they map to the closing brace.
func endSpan(sp source.Span) source.Span {
	end := sp.End
	if end > sp.Start {
		end--
	}
	return source.Span{File: sp.File, Start: end, End: sp.End}
}
