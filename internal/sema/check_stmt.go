package sema

import (
	"fmt"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/types"
)

func (c *checker) checkBlock(sc *scope, id ast.StmtID) {
	block := c.b.Stmt(id)
	sc.pushFrame()
	for _, sid := range block.Stmts {
		c.checkStmt(sc, sid)
	}
	sc.popFrame()
}

func (c *checker) checkStmt(sc *scope, id ast.StmtID) {
	stmt := c.b.Stmt(id)
	switch stmt.Kind {
	case ast.StmtBlock:
		c.checkBlock(sc, id)

	case ast.StmtLet:
		initTy := c.checkExpr(sc, stmt.Init)
		declared := c.resolveTypeExpr(stmt.Type)
		ty := initTy
		if declared != types.NoTypeID {
			if initTy != types.NoTypeID && initTy != declared &&
				!c.adaptLiteral(stmt.Init, declared) {
				c.report(diag.SemaTypeMismatch, stmt.Span,
					fmt.Sprintf("cannot initialise %s with %s",
						c.types.String(declared), c.types.String(initTy)))
			}
			ty = declared
		}
		idx, _ := sc.declareLocal(stmt.Name, ty, stmt.NameSpan)
		c.res.LocalOf[id] = idx

	case ast.StmtAssign:
		targetTy := c.checkExpr(sc, stmt.Target)
		valueTy := c.checkExpr(sc, stmt.Value)
		c.checkAssignTarget(sc, stmt.Target)
		if targetTy != types.NoTypeID && valueTy != types.NoTypeID && targetTy != valueTy &&
			!c.adaptLiteral(stmt.Value, targetTy) {
			c.report(diag.SemaTypeMismatch, stmt.Span,
				fmt.Sprintf("cannot assign %s to %s",
					c.types.String(valueTy), c.types.String(targetTy)))
		}
		if stmt.Op != ast.AssignSet && targetTy != types.NoTypeID {
			if t, _ := c.types.Lookup(targetTy); !t.IsNumeric() {
				c.report(diag.SemaBadBinaryOperands, stmt.Span,
					"compound assignment needs a numeric target")
			}
		}

	case ast.StmtExpr:
		c.checkExpr(sc, stmt.Expr)

	case ast.StmtIf:
		condTy := c.checkExpr(sc, stmt.Cond)
		c.requireBool(condTy, stmt.Cond)
		c.checkBlock(sc, stmt.Then)
		if stmt.Else.IsValid() {
			c.checkStmt(sc, stmt.Else)
		}

	case ast.StmtWhile:
		condTy := c.checkExpr(sc, stmt.Cond)
		c.requireBool(condTy, stmt.Cond)
		c.checkBlock(sc, stmt.Body)

	case ast.StmtReturn:
		if stmt.Expr.IsValid() {
			c.checkExpr(sc, stmt.Expr)
			// Kernels and device functions produce no value; the i32
			// status slot belongs to the backend's error model.
			c.report(diag.SemaReturnInKernel, stmt.Span,
				"functions cannot return a value")
		}
	}
}

// checkAssignTarget rejects assignments into parameters of scalar type:
// scalars are passed by value, so the write would be invisible to the host.
func (c *checker) checkAssignTarget(sc *scope, target ast.ExprID) {
	expr := c.b.Expr(target)
	if expr.Kind != ast.ExprIdent {
		return
	}
	ref, ok := sc.lookup(expr.Name)
	if !ok || ref.Kind != RefParam {
		return
	}
	t, _ := c.types.Lookup(sc.fn.Params[ref.Index].Type)
	if t.Kind != types.KindSlice {
		c.report(diag.SemaAssignImmutable, expr.Span,
			fmt.Sprintf("cannot assign to scalar parameter %q", expr.Name))
	}
}

func (c *checker) requireBool(ty types.TypeID, e ast.ExprID) {
	if ty == types.NoTypeID {
		return
	}
	if ty != c.types.Builtins().Bool {
		c.report(diag.SemaCondNotBool, c.b.Expr(e).Span,
			fmt.Sprintf("condition is %s, not bool", c.types.String(ty)))
	}
}
