package parser

import (
	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/token"
)

// Binding powers for precedence climbing, loosest first.
const (
	precNone = iota
	precOr
	precAnd
	precCmp
	precAdd
	precMul
)

func binaryPrec(k token.Kind) (ast.BinaryOp, int) {
	switch k {
	case token.OrOr:
		return ast.BinOr, precOr
	case token.AndAnd:
		return ast.BinAnd, precAnd
	case token.EqEq:
		return ast.BinEq, precCmp
	case token.BangEq:
		return ast.BinNe, precCmp
	case token.Lt:
		return ast.BinLt, precCmp
	case token.LtEq:
		return ast.BinLe, precCmp
	case token.Gt:
		return ast.BinGt, precCmp
	case token.GtEq:
		return ast.BinGe, precCmp
	case token.Plus:
		return ast.BinAdd, precAdd
	case token.Minus:
		return ast.BinSub, precAdd
	case token.Star:
		return ast.BinMul, precMul
	case token.Slash:
		return ast.BinDiv, precMul
	case token.Percent:
		return ast.BinRem, precMul
	}
	return 0, precNone
}

func (p *Parser) parseExpr() (ast.ExprID, bool) {
	return p.parseBinary(precNone + 1)
}

// parseBinary implements precedence climbing over parseUnary.
func (p *Parser) parseBinary(minPrec int) (ast.ExprID, bool) {
	lhs, ok := p.parseUnary()
	if !ok {
		return ast.NoExprID, false
	}

	for {
		op, prec := binaryPrec(p.lx.Peek().Kind)
		if prec < minPrec {
			return lhs, true
		}
		p.bump()

		rhs, ok := p.parseBinary(prec + 1)
		if !ok {
			return ast.NoExprID, false
		}
		span := p.arenas.Expr(lhs).Span.Cover(p.arenas.Expr(rhs).Span)
		lhs = p.arenas.NewExpr(ast.Expr{
			Kind: ast.ExprBinary,
			Span: span,
			Bin:  op,
			X:    lhs,
			Y:    rhs,
		})
	}
}

func (p *Parser) parseUnary() (ast.ExprID, bool) {
	switch p.lx.Peek().Kind {
	case token.Minus:
		tok := p.bump()
		x, ok := p.parseUnary()
		if !ok {
			return ast.NoExprID, false
		}
		return p.arenas.NewExpr(ast.Expr{
			Kind:  ast.ExprUnary,
			Span:  tok.Span.Cover(p.arenas.Expr(x).Span),
			Unary: ast.UnaryNeg,
			X:     x,
		}), true
	case token.Bang:
		tok := p.bump()
		x, ok := p.parseUnary()
		if !ok {
			return ast.NoExprID, false
		}
		return p.arenas.NewExpr(ast.Expr{
			Kind:  ast.ExprUnary,
			Span:  tok.Span.Cover(p.arenas.Expr(x).Span),
			Unary: ast.UnaryNot,
			X:     x,
		}), true
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses a primary followed by any number of index and call
// suffixes.
func (p *Parser) parsePostfix() (ast.ExprID, bool) {
	e, ok := p.parsePrimary()
	if !ok {
		return ast.NoExprID, false
	}

	for {
		switch p.lx.Peek().Kind {
		case token.LBracket:
			p.bump()
			idx, ok := p.parseExpr()
			if !ok {
				return ast.NoExprID, false
			}
			if _, ok := p.expect(token.RBracket, diag.SynUnclosedBracket, "expected ']'"); !ok {
				return ast.NoExprID, false
			}
			e = p.arenas.NewExpr(ast.Expr{
				Kind:  ast.ExprIndex,
				Span:  p.arenas.Expr(e).Span.Cover(p.lastSpan),
				Base:  e,
				Index: idx,
			})

		case token.LParen:
			open := p.bump()
			var args []ast.ExprID
			for !p.at(token.RParen) {
				if p.at(token.EOF) {
					p.report(diag.SynUnclosedParen, open.Span, "unclosed call")
					return ast.NoExprID, false
				}
				arg, ok := p.parseExpr()
				if !ok {
					return ast.NoExprID, false
				}
				args = append(args, arg)
				if p.at(token.Comma) {
					p.bump()
					continue
				}
				break
			}
			if _, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')'"); !ok {
				return ast.NoExprID, false
			}
			e = p.arenas.NewExpr(ast.Expr{
				Kind: ast.ExprCall,
				Span: p.arenas.Expr(e).Span.Cover(p.lastSpan),
				Base: e,
				Args: args,
			})

		default:
			return e, true
		}
	}
}

func (p *Parser) parsePrimary() (ast.ExprID, bool) {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.Ident:
		p.bump()
		return p.arenas.NewExpr(ast.Expr{Kind: ast.ExprIdent, Span: tok.Span, Name: tok.Text}), true

	case token.IntLit:
		p.bump()
		return p.arenas.NewExpr(ast.Expr{Kind: ast.ExprIntLit, Span: tok.Span, Text: tok.Text}), true

	case token.FloatLit:
		p.bump()
		return p.arenas.NewExpr(ast.Expr{Kind: ast.ExprFloatLit, Span: tok.Span, Text: tok.Text}), true

	case token.KwTrue, token.KwFalse:
		p.bump()
		return p.arenas.NewExpr(ast.Expr{
			Kind: ast.ExprBoolLit,
			Span: tok.Span,
			Bool: tok.Kind == token.KwTrue,
		}), true

	case token.LParen:
		open := p.bump()
		inner, ok := p.parseExpr()
		if !ok {
			return ast.NoExprID, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')'"); !ok {
			return ast.NoExprID, false
		}
		return p.arenas.NewExpr(ast.Expr{
			Kind: ast.ExprGroup,
			Span: open.Span.Cover(p.lastSpan),
			X:    inner,
		}), true

	default:
		p.report(diag.SynExpectExpression, tok.Span, "expected expression")
		return ast.NoExprID, false
	}
}
