package sema

import (
	"testing"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/parser"
	"warp/internal/source"
	"warp/internal/types"
)

func checkSource(t *testing.T, src, kernel string, sigNames []string) (*Result, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.wk", []byte(src))
	b := ast.NewBuilder(ast.Hints{})
	bag := diag.NewBag(32)
	rep := diag.BagReporter{Bag: bag}
	pres := parser.ParseFile(fs.Get(id), b, parser.Options{Reporter: rep})
	if bag.HasErrors() {
		t.Fatalf("parse errors: %v", bag.Items())
	}

	in := types.NewInterner()
	sig := make(Signature, 0, len(sigNames))
	for _, name := range sigNames {
		ty, ok := in.ParseName(name)
		if !ok {
			t.Fatalf("bad signature type %q", name)
		}
		sig = append(sig, ty)
	}
	res := CheckKernel(b, pres.File, in, kernel, sig, Options{Reporter: rep})
	return res, bag
}

func TestCheckBindsUntypedParams(t *testing.T) {
	res, bag := checkSource(t, "kernel foo(x) { x[0] = 1; }", "foo", []string{"[]i32"})
	if res == nil {
		t.Fatalf("check failed: %v", bag.Items())
	}
	fn := res.FuncByName("foo")
	if fn == nil || len(fn.Params) != 1 {
		t.Fatalf("foo not instantiated: %+v", res.Funcs)
	}
	if got := res.Types.String(fn.Params[0].Type); got != "[]i32" {
		t.Errorf("param type = %s, want []i32", got)
	}
}

func TestCheckInstantiatesCallee(t *testing.T) {
	src := `
kernel caller(x) {
    x[0] = 1;
    bump(x);
}

device fn bump(x) {
    x[0] += 1;
}
`
	res, bag := checkSource(t, src, "caller", []string{"[]i32"})
	if res == nil {
		t.Fatalf("check failed: %v", bag.Items())
	}
	if len(res.Funcs) != 2 {
		t.Fatalf("funcs = %d, want 2 (caller + callee)", len(res.Funcs))
	}
	callee := res.FuncByName("bump")
	if callee == nil {
		t.Fatal("bump not instantiated")
	}
	if got := res.Types.String(callee.Params[0].Type); got != "[]i32" {
		t.Errorf("callee param = %s, want []i32", got)
	}
}

func TestCheckLetInference(t *testing.T) {
	src := `
kernel f(x: []f32) {
    let half = x[0] / 2.0;
    x[0] = half;
}
`
	res, bag := checkSource(t, src, "f", []string{"[]f32"})
	if res == nil {
		t.Fatalf("check failed: %v", bag.Items())
	}
	fn := res.FuncByName("f")
	if len(fn.Locals) != 1 {
		t.Fatalf("locals = %d, want 1", len(fn.Locals))
	}
	if got := res.Types.String(fn.Locals[0].Type); got != "f32" {
		t.Errorf("local type = %s, want f32", got)
	}
}

func TestCheckLiteralAdaptation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		sig  []string
	}{
		{
			name: "compound assign on f32 slice",
			src:  "kernel f(x) { x[0] += 1; }",
			sig:  []string{"[]f32"},
		},
		{
			name: "compound assign on f64 slice",
			src:  "kernel f(x) { x[0] += 1; }",
			sig:  []string{"[]f64"},
		},
		{
			name: "binary operand follows the typed side",
			src:  "kernel f(x) { x[0] = x[0] * 2; }",
			sig:  []string{"[]f32"},
		},
		{
			name: "negated literal",
			src:  "kernel f(x) { x[0] = -1; }",
			sig:  []string{"[]f64"},
		},
		{
			name: "grouped literal",
			src:  "kernel f(x) { x[0] = (1); }",
			sig:  []string{"[]i64"},
		},
		{
			name: "let with declared type",
			src:  "kernel f(x: []f32) { let k: f32 = 2; x[0] = x[0] * k; }",
			sig:  []string{"[]f32"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, bag := checkSource(t, tt.src, "f", tt.sig)
			if res == nil {
				t.Fatalf("check failed: %v", bag.Items())
			}
			if bag.Len() != 0 {
				t.Errorf("unexpected diagnostics: %v", bag.Items())
			}
		})
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		kernel string
		sig    []string
		code   diag.Code
	}{
		{
			name: "kernel not found",
			src:  "kernel f(x) {}", kernel: "g", sig: nil,
			code: diag.SemaKernelNotFound,
		},
		{
			name: "arity mismatch",
			src:  "kernel f(x, y) {}", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaSigArityMismatch,
		},
		{
			name: "declared type conflicts with signature",
			src:  "kernel f(x: []i32) {}", kernel: "f", sig: []string{"[]f32"},
			code: diag.SemaSigTypeMismatch,
		},
		{
			name: "unresolved name",
			src:  "kernel f(x: []i32) { x[0] = y; }", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaUnresolvedSymbol,
		},
		{
			name: "assign type mismatch",
			src:  "kernel f(x: []i32) { x[0] = 1.5; }", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaTypeMismatch,
		},
		{
			name: "condition not bool",
			src:  "kernel f(x: []i32) { if x[0] { } }", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaCondNotBool,
		},
		{
			name: "indexing a scalar",
			src:  "kernel f(n: i32) { let a = n[0]; }", kernel: "f", sig: []string{"i32"},
			code: diag.SemaNotIndexable,
		},
		{
			name: "calling a kernel",
			src:  "kernel f(x: []i32) { g(x); }\nkernel g(x: []i32) {}", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaNotCallable,
		},
		{
			name: "return value rejected",
			src:  "kernel f(x: []i32) { return 1; }", kernel: "f", sig: []string{"[]i32"},
			code: diag.SemaReturnInKernel,
		},
		{
			name: "write to scalar param",
			src:  "kernel f(n: i32) { n = 2; }", kernel: "f", sig: []string{"i32"},
			code: diag.SemaAssignImmutable,
		},
		{
			name: "mixed operand widths",
			src:  "kernel f(x: []i32, y: []i64) { x[0] = x[0] + y[0]; }", kernel: "f",
			sig:  []string{"[]i32", "[]i64"},
			code: diag.SemaBadBinaryOperands,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, bag := checkSource(t, tt.src, tt.kernel, tt.sig)
			if res != nil {
				t.Fatal("check unexpectedly succeeded")
			}
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %v, got %v", tt.code, bag.Items())
			}
		})
	}
}

func TestCheckSharedInstantiation(t *testing.T) {
	src := `
kernel f(x: []i32) {
    bump(x);
    bump(x);
}

device fn bump(x) {
    x[0] += 1;
}
`
	res, bag := checkSource(t, src, "f", []string{"[]i32"})
	if res == nil {
		t.Fatalf("check failed: %v", bag.Items())
	}
	if len(res.Funcs) != 2 {
		t.Errorf("funcs = %d, want 2: same-type calls share one instantiation", len(res.Funcs))
	}
}
