package kir

import (
	"fmt"
	"strconv"

	"warp/internal/ast"
	"warp/internal/types"
)

// lowerExpr evaluates an expression into an operand, emitting loads and
// temporaries into the current block as needed.
func (lw *lowerer) lowerExpr(id ast.ExprID) (Operand, error) {
	expr := lw.b.Expr(id)
	ty, ok := lw.res.ExprTypes[id]
	if !ok {
		return Operand{}, fmt.Errorf("kir: untyped expression at %v", expr.Span)
	}

	switch expr.Kind {
	case ast.ExprGroup:
		return lw.lowerExpr(expr.X)

	case ast.ExprIdent:
		local, err := lw.localForIdent(id, expr)
		if err != nil {
			return Operand{}, err
		}
		return UseLocal(local, ty), nil

	case ast.ExprIntLit:
		v, err := strconv.ParseInt(expr.Text, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("kir: bad integer literal %q: %w", expr.Text, err)
		}
		// Sema may have adapted the literal to a float type.
		if t, _ := lw.res.Types.Lookup(ty); t.Kind == types.KindFloat {
			return ConstFloat(float64(v), ty), nil
		}
		return ConstInt(v, ty), nil

	case ast.ExprFloatLit:
		v, err := strconv.ParseFloat(expr.Text, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("kir: bad float literal %q: %w", expr.Text, err)
		}
		return ConstFloat(v, ty), nil

	case ast.ExprBoolLit:
		return ConstBool(expr.Bool, ty), nil

	case ast.ExprIndex:
		place, err := lw.lowerPlace(id)
		if err != nil {
			return Operand{}, err
		}
		return lw.readPlace(place, expr.Span)

	case ast.ExprUnary:
		x, err := lw.lowerExpr(expr.X)
		if err != nil {
			return Operand{}, err
		}
		op := UnNeg
		if expr.Unary == ast.UnaryNot {
			op = UnNot
		}
		tmp := lw.newTemp(ty, expr.Span)
		lw.emit(Instr{
			Kind: InstrAssign,
			Span: expr.Span,
			Assign: AssignInstr{
				Dst: Place{Kind: PlaceLocal, Local: tmp},
				Src: RValue{Kind: RValueUnary, UnOp: op, X: x},
			},
		})
		return UseLocal(tmp, ty), nil

	case ast.ExprBinary:
		if expr.Bin == ast.BinAnd || expr.Bin == ast.BinOr {
			return lw.lowerShortCircuit(expr)
		}
		x, err := lw.lowerExpr(expr.X)
		if err != nil {
			return Operand{}, err
		}
		y, err := lw.lowerExpr(expr.Y)
		if err != nil {
			return Operand{}, err
		}
		op, err := binOpFor(expr.Bin)
		if err != nil {
			return Operand{}, err
		}
		tmp := lw.newTemp(ty, expr.Span)
		lw.emit(Instr{
			Kind: InstrAssign,
			Span: expr.Span,
			Assign: AssignInstr{
				Dst: Place{Kind: PlaceLocal, Local: tmp},
				Src: RValue{Kind: RValueBinary, BinOp: op, X: x, Y: y},
			},
		})
		return UseLocal(tmp, ty), nil

	case ast.ExprCall:
		return Operand{}, fmt.Errorf("kir: call in value position at %v", expr.Span)
	}
	return Operand{}, fmt.Errorf("kir: unknown expression kind %d", expr.Kind)
}

// lowerShortCircuit lowers && and || with control flow so the right-hand
// side is only evaluated when it matters.
func (lw *lowerer) lowerShortCircuit(expr *ast.Expr) (Operand, error) {
	ty := lw.res.ExprTypes[expr.X]
	tmp := lw.newTemp(ty, expr.Span)

	x, err := lw.lowerExpr(expr.X)
	if err != nil {
		return Operand{}, err
	}

	// Seed the temp with the short-circuit value, then branch into the
	// right-hand side only when the left side does not decide.
	short := expr.Bin == ast.BinOr
	lw.emit(Instr{
		Kind: InstrAssign,
		Span: expr.Span,
		Assign: AssignInstr{
			Dst: Place{Kind: PlaceLocal, Local: tmp},
			Src: RValue{Kind: RValueUse, Use: ConstBool(short, ty)},
		},
	})

	rhsBB := lw.fn.NewBlock()
	joinBB := lw.fn.NewBlock()
	branch := IfTerm{Cond: x, Then: rhsBB, Else: joinBB}
	if short {
		branch = IfTerm{Cond: x, Then: joinBB, Else: rhsBB}
	}
	lw.setTerm(Terminator{Kind: TermIf, Span: expr.Span, If: branch})

	lw.cur = rhsBB
	y, err := lw.lowerExpr(expr.Y)
	if err != nil {
		return Operand{}, err
	}
	lw.emit(Instr{
		Kind: InstrAssign,
		Span: expr.Span,
		Assign: AssignInstr{
			Dst: Place{Kind: PlaceLocal, Local: tmp},
			Src: RValue{Kind: RValueUse, Use: y},
		},
	})
	lw.setTerm(Terminator{Kind: TermGoto, Span: expr.Span, Goto: GotoTerm{Target: joinBB}})

	lw.cur = joinBB
	return UseLocal(tmp, ty), nil
}

func binOpFor(op ast.BinaryOp) (BinOp, error) {
	switch op {
	case ast.BinAdd:
		return BinAdd, nil
	case ast.BinSub:
		return BinSub, nil
	case ast.BinMul:
		return BinMul, nil
	case ast.BinDiv:
		return BinDiv, nil
	case ast.BinRem:
		return BinRem, nil
	case ast.BinEq:
		return BinEq, nil
	case ast.BinNe:
		return BinNe, nil
	case ast.BinLt:
		return BinLt, nil
	case ast.BinLe:
		return BinLe, nil
	case ast.BinGt:
		return BinGt, nil
	case ast.BinGe:
		return BinGe, nil
	}
	return 0, fmt.Errorf("kir: operator %d has no IR form", op)
}
