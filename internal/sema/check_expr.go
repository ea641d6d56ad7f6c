package sema

import (
	"fmt"
	"strconv"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/types"
)

// checkExpr types an expression, records it in ExprTypes, and returns the
// type (NoTypeID on error; the error is already reported).
func (c *checker) checkExpr(sc *scope, id ast.ExprID) types.TypeID {
	expr := c.b.Expr(id)
	ty := c.checkExprInner(sc, id, expr)
	c.res.ExprTypes[id] = ty
	return ty
}

func (c *checker) checkExprInner(sc *scope, id ast.ExprID, expr *ast.Expr) types.TypeID {
	switch expr.Kind {
	case ast.ExprIdent:
		ref, ok := sc.lookup(expr.Name)
		if !ok {
			// Maybe a function name used as a value: only calls allow that.
			if _, isFn := c.b.FindItem(c.file, expr.Name); isFn {
				c.report(diag.SemaNotCallable, expr.Span,
					fmt.Sprintf("%q is a function, call it", expr.Name))
			} else {
				c.report(diag.SemaUnresolvedSymbol, expr.Span,
					fmt.Sprintf("unresolved name %q", expr.Name))
			}
			return types.NoTypeID
		}
		c.res.Refs[id] = ref
		switch ref.Kind {
		case RefParam:
			return sc.fn.Params[ref.Index].Type
		case RefLocal:
			return sc.fn.Locals[ref.Index].Type
		}
		return types.NoTypeID

	case ast.ExprIntLit:
		if _, err := strconv.ParseInt(expr.Text, 10, 64); err != nil {
			c.report(diag.SemaTypeMismatch, expr.Span, "integer literal out of range")
			return types.NoTypeID
		}
		return c.types.Builtins().I32

	case ast.ExprFloatLit:
		if _, err := strconv.ParseFloat(expr.Text, 64); err != nil {
			c.report(diag.SemaTypeMismatch, expr.Span, "float literal out of range")
			return types.NoTypeID
		}
		return c.types.Builtins().F32

	case ast.ExprBoolLit:
		return c.types.Builtins().Bool

	case ast.ExprGroup:
		return c.checkExpr(sc, expr.X)

	case ast.ExprIndex:
		baseTy := c.checkExpr(sc, expr.Base)
		idxTy := c.checkExpr(sc, expr.Index)
		if idxTy != types.NoTypeID {
			if t, _ := c.types.Lookup(idxTy); t.Kind != types.KindInt {
				c.report(diag.SemaTypeMismatch, c.b.Expr(expr.Index).Span,
					fmt.Sprintf("index is %s, not an integer", c.types.String(idxTy)))
			}
		}
		if baseTy == types.NoTypeID {
			return types.NoTypeID
		}
		base, _ := c.types.Lookup(baseTy)
		if base.Kind != types.KindSlice {
			c.report(diag.SemaNotIndexable, expr.Span,
				fmt.Sprintf("%s is not indexable", c.types.String(baseTy)))
			return types.NoTypeID
		}
		return base.Elem

	case ast.ExprUnary:
		xTy := c.checkExpr(sc, expr.X)
		if xTy == types.NoTypeID {
			return types.NoTypeID
		}
		xt, _ := c.types.Lookup(xTy)
		switch expr.Unary {
		case ast.UnaryNeg:
			if !xt.IsNumeric() {
				c.report(diag.SemaBadUnaryOperand, expr.Span,
					fmt.Sprintf("cannot negate %s", c.types.String(xTy)))
				return types.NoTypeID
			}
			return xTy
		case ast.UnaryNot:
			if xt.Kind != types.KindBool {
				c.report(diag.SemaBadUnaryOperand, expr.Span,
					fmt.Sprintf("cannot apply '!' to %s", c.types.String(xTy)))
				return types.NoTypeID
			}
			return xTy
		}
		return types.NoTypeID

	case ast.ExprBinary:
		return c.checkBinary(sc, expr)

	case ast.ExprCall:
		return c.checkCall(sc, id, expr)
	}
	return types.NoTypeID
}

// adaptLiteral re-types a numeric literal (possibly behind grouping or
// negation) to want, so untyped literals follow the concrete type of the
// other side. Integer literals adapt to any numeric type, float literals
// only to float types. The caller keeps its mismatch diagnostic when
// adaptation fails.
func (c *checker) adaptLiteral(id ast.ExprID, want types.TypeID) bool {
	if want == types.NoTypeID || c.res.ExprTypes[id] == types.NoTypeID {
		return false
	}
	wt, ok := c.types.Lookup(want)
	if !ok || (wt.Kind != types.KindInt && wt.Kind != types.KindFloat) {
		return false
	}
	expr := c.b.Expr(id)
	switch expr.Kind {
	case ast.ExprGroup:
		if !c.adaptLiteral(expr.X, want) {
			return false
		}
	case ast.ExprUnary:
		if expr.Unary != ast.UnaryNeg || !c.adaptLiteral(expr.X, want) {
			return false
		}
	case ast.ExprIntLit:
	case ast.ExprFloatLit:
		if wt.Kind != types.KindFloat {
			return false
		}
	default:
		return false
	}
	c.res.ExprTypes[id] = want
	return true
}

func (c *checker) checkBinary(sc *scope, expr *ast.Expr) types.TypeID {
	xTy := c.checkExpr(sc, expr.X)
	yTy := c.checkExpr(sc, expr.Y)
	if xTy == types.NoTypeID || yTy == types.NoTypeID {
		return types.NoTypeID
	}
	if xTy != yTy {
		if c.adaptLiteral(expr.Y, xTy) {
			yTy = xTy
		} else if c.adaptLiteral(expr.X, yTy) {
			xTy = yTy
		}
	}
	xt, _ := c.types.Lookup(xTy)

	mismatch := func() types.TypeID {
		c.report(diag.SemaBadBinaryOperands, expr.Span,
			fmt.Sprintf("invalid operands %s and %s",
				c.types.String(xTy), c.types.String(yTy)))
		return types.NoTypeID
	}

	switch expr.Bin {
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv:
		if !xt.IsNumeric() || xTy != yTy {
			return mismatch()
		}
		return xTy
	case ast.BinRem:
		if xt.Kind != types.KindInt || xTy != yTy {
			return mismatch()
		}
		return xTy
	case ast.BinEq, ast.BinNe:
		if xTy != yTy {
			return mismatch()
		}
		return c.types.Builtins().Bool
	case ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		if !xt.IsNumeric() || xTy != yTy {
			return mismatch()
		}
		return c.types.Builtins().Bool
	case ast.BinAnd, ast.BinOr:
		if xt.Kind != types.KindBool || xTy != yTy {
			return mismatch()
		}
		return xTy
	}
	return types.NoTypeID
}

// checkCall resolves a device-function call and instantiates the callee
// with the argument types.
func (c *checker) checkCall(sc *scope, id ast.ExprID, expr *ast.Expr) types.TypeID {
	callee := c.b.Expr(expr.Base)
	if callee.Kind != ast.ExprIdent {
		c.report(diag.SemaNotCallable, callee.Span, "expression is not callable")
		return types.NoTypeID
	}

	itemID, ok := c.b.FindItem(c.file, callee.Name)
	if !ok {
		c.report(diag.SemaUnresolvedSymbol, callee.Span,
			fmt.Sprintf("unresolved function %q", callee.Name))
		return types.NoTypeID
	}
	item := c.b.Item(itemID)
	if item.Kind != ast.ItemDeviceFn {
		c.report(diag.SemaNotCallable, callee.Span,
			fmt.Sprintf("kernel %q cannot be called from device code", callee.Name))
		return types.NoTypeID
	}

	argSig := make(Signature, 0, len(expr.Args))
	bad := false
	for _, arg := range expr.Args {
		ty := c.checkExpr(sc, arg)
		if ty == types.NoTypeID {
			bad = true
		}
		argSig = append(argSig, ty)
	}
	if bad {
		return types.NoTypeID
	}
	if len(expr.Args) != len(item.Params) {
		c.report(diag.SemaBadCallArity, expr.Span,
			fmt.Sprintf("%q takes %d arguments, got %d",
				callee.Name, len(item.Params), len(expr.Args)))
		return types.NoTypeID
	}

	fnID := c.instantiate(itemID, argSig, expr.Span)
	if fnID == NoFuncID {
		return types.NoTypeID
	}
	c.res.CalleeOf[id] = fnID
	return c.types.Builtins().Unit
}
