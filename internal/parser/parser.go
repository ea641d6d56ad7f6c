package parser

import (
	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/lexer"
	"warp/internal/source"
	"warp/internal/token"
)

// Options configures a parse session.
type Options struct {
	MaxErrors     uint
	currentErrors uint
	Reporter      diag.Reporter
}

// enough reports whether the error budget is exhausted.
func (o *Options) enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.currentErrors >= o.MaxErrors
}

// Result is the outcome of parsing one file.
type Result struct {
	File ast.FileID
}

// Parser holds the per-file parse state.
type Parser struct {
	lx       *lexer.Lexer
	arenas   *ast.Builder
	file     ast.FileID
	opts     Options
	lastSpan source.Span // span of the last consumed token
}

// ParseFile parses one kernel source file into the builder's arenas.
func ParseFile(sf *source.File, arenas *ast.Builder, opts Options) Result {
	lx := lexer.New(sf, lexer.Options{Reporter: opts.Reporter})
	p := Parser{
		lx:     lx,
		arenas: arenas,
		opts:   opts,
	}
	p.file = arenas.NewFile(source.Span{File: sf.ID})

	p.parseItems()
	return Result{File: p.file}
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) bump() token.Token {
	tok := p.lx.Next()
	p.lastSpan = tok.Span
	return tok
}

// expect consumes a token of the given kind or reports code and returns false.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.bump(), true
	}
	p.report(code, p.lx.Peek().Span, msg)
	return token.Token{}, false
}

func (p *Parser) report(code diag.Code, sp source.Span, msg string) {
	p.opts.currentErrors++
	if p.opts.Reporter != nil && !p.opts.enough() {
		diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
	}
}

// parseItems is the top-level loop: items until EOF, resync on failure.
func (p *Parser) parseItems() {
	startSpan := p.lx.Peek().Span
	for !p.at(token.EOF) {
		itemID, ok := p.parseItem()
		if !ok {
			p.resyncTop()
			continue
		}
		p.arenas.PushItem(p.file, itemID)
	}
	p.arenas.File(p.file).Span = startSpan.Cover(p.lastSpan)
}

// parseItem dispatches on the leading keyword: kernel or device fn.
func (p *Parser) parseItem() (ast.ItemID, bool) {
	switch p.lx.Peek().Kind {
	case token.KwKernel:
		return p.parseFnItem(ast.ItemKernel)
	case token.KwDevice:
		return p.parseFnItem(ast.ItemDeviceFn)
	default:
		p.report(diag.SynUnexpectedItem, p.lx.Peek().Span, "expected 'kernel' or 'device fn'")
		return ast.NoItemID, false
	}
}

// parseFnItem parses `kernel NAME(params) block` or
// `device fn NAME(params) block`.
func (p *Parser) parseFnItem(kind ast.ItemKind) (ast.ItemID, bool) {
	lead := p.bump() // 'kernel' or 'device'
	if kind == ast.ItemDeviceFn {
		if _, ok := p.expect(token.KwFn, diag.SynUnexpectedToken, "expected 'fn' after 'device'"); !ok {
			return ast.NoItemID, false
		}
	}

	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected function name")
	if !ok {
		return ast.NoItemID, false
	}

	params, ok := p.parseParams()
	if !ok {
		return ast.NoItemID, false
	}

	body, ok := p.parseBlock()
	if !ok {
		return ast.NoItemID, false
	}

	item := ast.Item{
		Kind:     kind,
		Span:     lead.Span.Cover(p.lastSpan),
		Name:     nameTok.Text,
		NameSpan: nameTok.Span,
		Params:   params,
		Body:     body,
	}
	return p.arenas.NewItem(item), true
}

// parseParams parses `( name (: type)?, ... )`.
func (p *Parser) parseParams() ([]ast.ParamID, bool) {
	open, ok := p.expect(token.LParen, diag.SynUnclosedParen, "expected '('")
	if !ok {
		return nil, false
	}

	var params []ast.ParamID
	seen := make(map[string]source.Span)
	for !p.at(token.RParen) {
		if p.at(token.EOF) {
			p.report(diag.SynUnclosedParen, open.Span, "unclosed parameter list")
			return nil, false
		}

		nameTok, ok := p.expect(token.Ident, diag.SynExpectParamName, "expected parameter name")
		if !ok {
			return nil, false
		}
		if prev, dup := seen[nameTok.Text]; dup {
			diag.ReportError(p.opts.Reporter, diag.SynDuplicateParam, nameTok.Span, "duplicate parameter name").
				WithNote(prev, "previous declaration here").
				Emit()
			p.opts.currentErrors++
		}
		seen[nameTok.Text] = nameTok.Span

		param := ast.Param{Span: nameTok.Span, Name: nameTok.Text}
		if p.at(token.Colon) {
			p.bump()
			ty, ok := p.parseType()
			if !ok {
				return nil, false
			}
			param.Type = ty
			param.Span = nameTok.Span.Cover(p.lastSpan)
		}
		params = append(params, p.arenas.NewParam(param))

		if p.at(token.Comma) {
			p.bump()
			continue
		}
		break
	}

	if _, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')'"); !ok {
		return nil, false
	}
	return params, true
}

// parseType parses `[]T` or a scalar type name.
func (p *Parser) parseType() (ast.TypeID, bool) {
	if p.at(token.LBracket) {
		open := p.bump()
		if _, ok := p.expect(token.RBracket, diag.SynUnclosedBracket, "expected ']' in slice type"); !ok {
			return ast.NoTypeID, false
		}
		elem, ok := p.parseType()
		if !ok {
			return ast.NoTypeID, false
		}
		return p.arenas.NewType(ast.Type{
			Kind: ast.TypeSlice,
			Span: open.Span.Cover(p.lastSpan),
			Elem: elem,
		}), true
	}

	nameTok, ok := p.expect(token.Ident, diag.SynExpectType, "expected type")
	if !ok {
		return ast.NoTypeID, false
	}
	return p.arenas.NewType(ast.Type{
		Kind: ast.TypeScalar,
		Span: nameTok.Span,
		Name: nameTok.Text,
	}), true
}

// resyncTop skips tokens until the next plausible item start.
func (p *Parser) resyncTop() {
	for {
		switch p.lx.Peek().Kind {
		case token.EOF, token.KwKernel, token.KwDevice:
			return
		default:
			p.bump()
		}
	}
}
