package lexer

import (
	"testing"

	"warp/internal/diag"
	"warp/internal/source"
	"warp/internal/token"
)

func tokenize(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.wk", []byte(src))
	bag := diag.NewBag(16)
	toks := Tokenize(fs.Get(id), Options{Reporter: diag.BagReporter{Bag: bag}})
	return toks, bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		out = append(out, tk.Kind)
	}
	return out
}

func TestTokenizeKernelHeader(t *testing.T) {
	toks, bag := tokenize(t, "kernel foo(x: []i32) {}")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	want := []token.Kind{
		token.KwKernel, token.Ident, token.LParen, token.Ident, token.Colon,
		token.LBracket, token.RBracket, token.Ident, token.RParen,
		token.LBrace, token.RBrace, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
	if toks[1].Text != "foo" {
		t.Errorf("kernel name text = %q, want foo", toks[1].Text)
	}
}

func TestTokenizeOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "compound assign",
			src:  "x[0] += 1;",
			want: []token.Kind{token.Ident, token.LBracket, token.IntLit, token.RBracket, token.PlusAssign, token.IntLit, token.Semicolon, token.EOF},
		},
		{
			name: "comparisons",
			src:  "a <= b != c",
			want: []token.Kind{token.Ident, token.LtEq, token.Ident, token.BangEq, token.Ident, token.EOF},
		},
		{
			name: "logical",
			src:  "a && b || !c",
			want: []token.Kind{token.Ident, token.AndAnd, token.Ident, token.OrOr, token.Bang, token.Ident, token.EOF},
		},
		{
			name: "float literal",
			src:  "let k = 2.5;",
			want: []token.Kind{token.KwLet, token.Ident, token.Assign, token.FloatLit, token.Semicolon, token.EOF},
		},
		{
			name: "division not comment",
			src:  "x / y",
			want: []token.Kind{token.Ident, token.Slash, token.Ident, token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, bag := tokenize(t, tt.src)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
			got := kinds(toks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenizeComments(t *testing.T) {
	toks, bag := tokenize(t, "// header\nkernel /* inline */ f() {}\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	got := kinds(toks)
	want := []token.Kind{token.KwKernel, token.Ident, token.LParen, token.RParen, token.LBrace, token.RBrace, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeReportsUnknownChar(t *testing.T) {
	_, bag := tokenize(t, "kernel f() { $ }")
	if bag.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1", bag.Len())
	}
	if bag.Items()[0].Code != diag.LexUnknownChar {
		t.Errorf("code = %v, want LexUnknownChar", bag.Items()[0].Code)
	}
}

func TestTokenizeReportsBadNumber(t *testing.T) {
	toks, bag := tokenize(t, "let a = 12x;")
	if bag.Len() != 1 || bag.Items()[0].Code != diag.LexBadNumber {
		t.Fatalf("expected one LexBadNumber, got %v", bag.Items())
	}
	if toks[3].Kind != token.Invalid {
		t.Errorf("bad number token kind = %v, want Invalid", toks[3].Kind)
	}
}

func TestTokenizeUnterminatedBlockComment(t *testing.T) {
	_, bag := tokenize(t, "kernel f() {} /* no end")
	if bag.Len() != 1 || bag.Items()[0].Code != diag.LexUnterminatedBlockComment {
		t.Fatalf("expected one LexUnterminatedBlockComment, got %v", bag.Items())
	}
}

func TestTokenSpans(t *testing.T) {
	toks, _ := tokenize(t, "kernel foo() {}")
	if toks[0].Span.Start != 0 || toks[0].Span.End != 6 {
		t.Errorf("kernel span = %v", toks[0].Span)
	}
	if toks[1].Span.Start != 7 || toks[1].Span.End != 10 {
		t.Errorf("ident span = %v", toks[1].Span)
	}
}
