package parser

import (
	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/token"
)

// parseBlock parses `{ stmt* }`.
func (p *Parser) parseBlock() (ast.StmtID, bool) {
	open, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected '{'")
	if !ok {
		return ast.NoStmtID, false
	}

	var stmts []ast.StmtID
	for !p.at(token.RBrace) {
		if p.at(token.EOF) {
			p.report(diag.SynUnclosedBrace, open.Span, "unclosed block")
			return ast.NoStmtID, false
		}
		stmt, ok := p.parseStmt()
		if !ok {
			p.resyncStmt()
			continue
		}
		stmts = append(stmts, stmt)
	}
	p.bump() // '}'

	return p.arenas.NewStmt(ast.Stmt{
		Kind:  ast.StmtBlock,
		Span:  open.Span.Cover(p.lastSpan),
		Stmts: stmts,
	}), true
}

func (p *Parser) parseStmt() (ast.StmtID, bool) {
	switch p.lx.Peek().Kind {
	case token.KwLet:
		return p.parseLet()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwReturn:
		return p.parseReturn()
	case token.LBrace:
		return p.parseBlock()
	default:
		return p.parseAssignOrExprStmt()
	}
}

// parseLet parses `let name (: type)? = expr ;`.
func (p *Parser) parseLet() (ast.StmtID, bool) {
	letTok := p.bump()

	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected name after 'let'")
	if !ok {
		return ast.NoStmtID, false
	}

	var ty ast.TypeID
	if p.at(token.Colon) {
		p.bump()
		ty, ok = p.parseType()
		if !ok {
			return ast.NoStmtID, false
		}
	}

	if _, ok := p.expect(token.Assign, diag.SynUnexpectedToken, "expected '=' in let binding"); !ok {
		return ast.NoStmtID, false
	}
	init, ok := p.parseExpr()
	if !ok {
		return ast.NoStmtID, false
	}
	if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'"); !ok {
		return ast.NoStmtID, false
	}

	return p.arenas.NewStmt(ast.Stmt{
		Kind:     ast.StmtLet,
		Span:     letTok.Span.Cover(p.lastSpan),
		Name:     nameTok.Text,
		NameSpan: nameTok.Span,
		Type:     ty,
		Init:     init,
	}), true
}

func (p *Parser) parseIf() (ast.StmtID, bool) {
	ifTok := p.bump()

	cond, ok := p.parseExpr()
	if !ok {
		return ast.NoStmtID, false
	}
	then, ok := p.parseBlock()
	if !ok {
		return ast.NoStmtID, false
	}

	var elseStmt ast.StmtID
	if p.at(token.KwElse) {
		p.bump()
		if p.at(token.KwIf) {
			elseStmt, ok = p.parseIf()
		} else {
			elseStmt, ok = p.parseBlock()
		}
		if !ok {
			return ast.NoStmtID, false
		}
	}

	return p.arenas.NewStmt(ast.Stmt{
		Kind: ast.StmtIf,
		Span: ifTok.Span.Cover(p.lastSpan),
		Cond: cond,
		Then: then,
		Else: elseStmt,
	}), true
}

func (p *Parser) parseWhile() (ast.StmtID, bool) {
	whileTok := p.bump()

	cond, ok := p.parseExpr()
	if !ok {
		return ast.NoStmtID, false
	}
	body, ok := p.parseBlock()
	if !ok {
		return ast.NoStmtID, false
	}

	return p.arenas.NewStmt(ast.Stmt{
		Kind: ast.StmtWhile,
		Span: whileTok.Span.Cover(p.lastSpan),
		Cond: cond,
		Body: body,
	}), true
}

func (p *Parser) parseReturn() (ast.StmtID, bool) {
	retTok := p.bump()

	var expr ast.ExprID
	if !p.at(token.Semicolon) {
		var ok bool
		expr, ok = p.parseExpr()
		if !ok {
			return ast.NoStmtID, false
		}
	}
	if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'"); !ok {
		return ast.NoStmtID, false
	}

	return p.arenas.NewStmt(ast.Stmt{
		Kind: ast.StmtReturn,
		Span: retTok.Span.Cover(p.lastSpan),
		Expr: expr,
	}), true
}

// parseAssignOrExprStmt parses `place (=|+=|-=|*=|/=) expr ;` or `expr ;`.
func (p *Parser) parseAssignOrExprStmt() (ast.StmtID, bool) {
	start := p.lx.Peek().Span
	lhs, ok := p.parseExpr()
	if !ok {
		return ast.NoStmtID, false
	}

	if p.lx.Peek().IsAssignOp() {
		opTok := p.bump()
		op, ok := assignOpFor(opTok.Kind)
		if !ok {
			p.report(diag.SynUnexpectedToken, opTok.Span, "unexpected assignment operator")
			return ast.NoStmtID, false
		}
		if !isPlaceExpr(p.arenas, lhs) {
			p.report(diag.SynBadAssignTarget, p.arenas.Expr(lhs).Span, "invalid assignment target")
			return ast.NoStmtID, false
		}
		value, ok := p.parseExpr()
		if !ok {
			return ast.NoStmtID, false
		}
		if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'"); !ok {
			return ast.NoStmtID, false
		}
		return p.arenas.NewStmt(ast.Stmt{
			Kind:   ast.StmtAssign,
			Span:   start.Cover(p.lastSpan),
			Op:     op,
			Target: lhs,
			Value:  value,
		}), true
	}

	if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'"); !ok {
		return ast.NoStmtID, false
	}
	return p.arenas.NewStmt(ast.Stmt{
		Kind: ast.StmtExpr,
		Span: start.Cover(p.lastSpan),
		Expr: lhs,
	}), true
}

func assignOpFor(k token.Kind) (ast.AssignOp, bool) {
	switch k {
	case token.Assign:
		return ast.AssignSet, true
	case token.PlusAssign:
		return ast.AssignAdd, true
	case token.MinusAssign:
		return ast.AssignSub, true
	case token.StarAssign:
		return ast.AssignMul, true
	case token.SlashAssign:
		return ast.AssignDiv, true
	}
	return 0, false
}

// isPlaceExpr reports whether e can stand on the left of an assignment.
func isPlaceExpr(b *ast.Builder, e ast.ExprID) bool {
	expr := b.Expr(e)
	if expr == nil {
		return false
	}
	switch expr.Kind {
	case ast.ExprIdent:
		return true
	case ast.ExprIndex:
		return isPlaceExpr(b, expr.Base)
	default:
		return false
	}
}

// resyncStmt skips to just past the next ';' or to a block/item boundary.
func (p *Parser) resyncStmt() {
	for {
		switch p.lx.Peek().Kind {
		case token.EOF, token.RBrace, token.KwKernel, token.KwDevice:
			return
		case token.Semicolon:
			p.bump()
			return
		default:
			p.bump()
		}
	}
}
