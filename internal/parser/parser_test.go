package parser

import (
	"testing"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/source"
	"warp/internal/testkit"
)

func parseSource(t *testing.T, src string) (*ast.Builder, ast.FileID, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.wk", []byte(src))
	b := ast.NewBuilder(ast.Hints{})
	bag := diag.NewBag(32)
	res := ParseFile(fs.Get(id), b, Options{Reporter: diag.BagReporter{Bag: bag}})
	return b, res.File, bag
}

func TestParseKernelAndDeviceFn(t *testing.T) {
	src := `
kernel caller(x) {
    x[0] = 1;
    bump(x);
}

device fn bump(x: []i32) {
    x[0] += 1;
}
`
	b, file, bag := parseSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	f := b.File(file)
	if len(f.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(f.Items))
	}

	caller := b.Item(f.Items[0])
	if caller.Kind != ast.ItemKernel || caller.Name != "caller" {
		t.Errorf("first item = %+v", caller)
	}
	if len(caller.Params) != 1 {
		t.Fatalf("caller params = %d, want 1", len(caller.Params))
	}
	if p := b.Param(caller.Params[0]); p.Type.IsValid() {
		t.Errorf("untyped param got type annotation %v", p.Type)
	}

	bump := b.Item(f.Items[1])
	if bump.Kind != ast.ItemDeviceFn || bump.Name != "bump" {
		t.Errorf("second item = %+v", bump)
	}
	p := b.Param(bump.Params[0])
	if !p.Type.IsValid() {
		t.Fatal("typed param lost its annotation")
	}
	ty := b.Type(p.Type)
	if ty.Kind != ast.TypeSlice {
		t.Errorf("param type kind = %v, want TypeSlice", ty.Kind)
	}
	if elem := b.Type(ty.Elem); elem.Kind != ast.TypeScalar || elem.Name != "i32" {
		t.Errorf("elem type = %+v", elem)
	}
}

func TestParseStatements(t *testing.T) {
	src := `
kernel f(x: []f32, n: i32) {
    let half: f32 = 0.5;
    let i = 0;
    while i < n {
        if x[i] >= half && !done(x, i) {
            x[i] = x[i] / 2.0;
        } else {
            x[i] *= 3.0;
        }
        i += 1;
    }
}
`
	b, file, bag := parseSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	f := b.File(file)
	body := b.Stmt(b.Item(f.Items[0]).Body)
	if body.Kind != ast.StmtBlock || len(body.Stmts) != 3 {
		t.Fatalf("body = %+v", body)
	}
	if b.Stmt(body.Stmts[0]).Kind != ast.StmtLet {
		t.Errorf("stmt 0 kind = %v, want StmtLet", b.Stmt(body.Stmts[0]).Kind)
	}
	loop := b.Stmt(body.Stmts[2])
	if loop.Kind != ast.StmtWhile {
		t.Fatalf("stmt 2 kind = %v, want StmtWhile", loop.Kind)
	}
	loopBody := b.Stmt(loop.Body)
	if len(loopBody.Stmts) != 2 {
		t.Fatalf("loop body stmts = %d, want 2", len(loopBody.Stmts))
	}
	ifStmt := b.Stmt(loopBody.Stmts[0])
	if ifStmt.Kind != ast.StmtIf || !ifStmt.Else.IsValid() {
		t.Errorf("if stmt = %+v", ifStmt)
	}
}

func TestParsePrecedence(t *testing.T) {
	src := "kernel f(a: i32, b: i32, c: i32) { let r = a + b * c; }"
	b, file, bag := parseSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	body := b.Stmt(b.Item(b.File(file).Items[0]).Body)
	let := b.Stmt(body.Stmts[0])
	root := b.Expr(let.Init)
	if root.Kind != ast.ExprBinary || root.Bin != ast.BinAdd {
		t.Fatalf("root = %+v, want add", root)
	}
	rhs := b.Expr(root.Y)
	if rhs.Kind != ast.ExprBinary || rhs.Bin != ast.BinMul {
		t.Errorf("rhs = %+v, want mul", rhs)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{name: "bad top level", src: "let x = 1;", code: diag.SynUnexpectedItem},
		{name: "missing semicolon", src: "kernel f(x) { x[0] = 1 }", code: diag.SynExpectSemicolon},
		{name: "bad assign target", src: "kernel f(x) { 1 = 2; }", code: diag.SynBadAssignTarget},
		{name: "missing fn after device", src: "device bump(x) {}", code: diag.SynUnexpectedToken},
		{name: "duplicate param", src: "kernel f(x, x) {}", code: diag.SynDuplicateParam},
		{name: "unclosed block", src: "kernel f(x) { x[0] = 1;", code: diag.SynUnclosedBrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, bag := parseSource(t, tt.src)
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %v, got %v", tt.code, bag.Items())
			}
		})
	}
}

func TestParseRecoversPerItem(t *testing.T) {
	src := `
kernel broken( {
}

kernel ok(x) { x[0] = 1; }
`
	b, file, bag := parseSource(t, src)
	if !bag.HasErrors() {
		t.Fatal("expected errors from broken kernel")
	}
	if _, found := b.FindItem(file, "ok"); !found {
		t.Error("parser did not recover to parse the second kernel")
	}
}

func TestParseSpanInvariants(t *testing.T) {
	src := `
kernel scale(x: []f32, f: f32) {
    let i = 0;
    while i < 4 {
        x[i] = x[i] * f;
        i += 1;
    }
}

device fn bump(x: []i32) {
    x[0] += 1;
}
`
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.wk", []byte(src))
	b := ast.NewBuilder(ast.Hints{})
	bag := diag.NewBag(32)
	res := ParseFile(fs.Get(id), b, Options{Reporter: diag.BagReporter{Bag: bag}})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if err := testkit.CheckSpanInvariants(b, res.File, fs.Get(id)); err != nil {
		t.Fatal(err)
	}
}
