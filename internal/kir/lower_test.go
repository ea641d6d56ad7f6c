package kir

import (
	"strings"
	"testing"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/parser"
	"warp/internal/sema"
	"warp/internal/source"
	"warp/internal/types"
)

func lowerSource(t *testing.T, src, kernel string, sigNames []string) *Module {
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
	sig := make(sema.Signature, 0, len(sigNames))
	for _, name := range sigNames {
		ty, ok := in.ParseName(name)
		if !ok {
			t.Fatalf("bad signature type %q", name)
		}
		sig = append(sig, ty)
	}
	res := sema.CheckKernel(b, pres.File, in, kernel, sig, sema.Options{Reporter: rep})
	if res == nil {
		t.Fatalf("check failed: %v", bag.Items())
	}

	mod, err := Lower(b, res, id)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := Validate(mod); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return mod
}

func TestLowerStraightLine(t *testing.T) {
	mod := lowerSource(t, `
kernel scale(x: []f32, n: i32) {
    let half = x[0] / 2.0;
    x[0] = half;
}
`, "scale", []string{"[]f32", "i32"})

	fn := mod.Func(mod.Kernel)
	if fn == nil || fn.Kind != FuncKernel {
		t.Fatal("kernel function missing")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("params = %d, want 2", len(fn.Params))
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 for straight-line code", len(fn.Blocks))
	}
	bb := fn.Block(fn.Entry)
	if bb.Term.Kind != TermReturn {
		t.Errorf("entry terminator = %v, want return", bb.Term.Kind)
	}
	// The division produces a temp, the let and the store are assigns.
	assigns := 0
	for _, ins := range bb.Instrs {
		if ins.Kind == InstrAssign {
			assigns++
		}
	}
	if assigns < 3 {
		t.Errorf("assigns = %d, want at least 3 (load, div temp, store)", assigns)
	}
}

func TestLowerIfElse(t *testing.T) {
	mod := lowerSource(t, `
kernel clamp(x: []i32) {
    if x[0] > 10 {
        x[0] = 10;
    } else {
        x[0] = 0;
    }
}
`, "clamp", []string{"[]i32"})

	fn := mod.Func(mod.Kernel)
	var ifs, gotos int
	for i := range fn.Blocks {
		switch fn.Blocks[i].Term.Kind {
		case TermIf:
			ifs++
		case TermGoto:
			gotos++
		}
	}
	if ifs != 1 {
		t.Errorf("if terminators = %d, want 1", ifs)
	}
	if gotos != 2 {
		t.Errorf("goto terminators = %d, want 2 (both arms join)", gotos)
	}
}

func TestLowerWhile(t *testing.T) {
	mod := lowerSource(t, `
kernel count(x: []i32, n: i32) {
    let i = 0;
    while i < n {
        x[i] = i;
        i += 1;
    }
}
`, "count", []string{"[]i32", "i32"})

	fn := mod.Func(mod.Kernel)
	if len(fn.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4 (entry, head, body, exit)", len(fn.Blocks))
	}
	// Body must jump back to the loop head.
	head := fn.Blocks[1]
	if head.Term.Kind != TermIf {
		t.Fatalf("loop head terminator = %v, want if", head.Term.Kind)
	}
	body := fn.Block(head.Term.If.Then)
	if body.Term.Kind != TermGoto || body.Term.Goto.Target != head.ID {
		t.Error("loop body does not branch back to the head")
	}
}

func TestLowerDeviceCall(t *testing.T) {
	mod := lowerSource(t, `
kernel caller(x) {
    bump(x);
}

device fn bump(x) {
    x[0] += 1;
}
`, "caller", []string{"[]i32"})

	if len(mod.Funcs) != 2 {
		t.Fatalf("funcs = %d, want 2", len(mod.Funcs))
	}
	kernel := mod.Func(mod.Kernel)
	var call *CallInstr
	for i := range kernel.Blocks {
		for j := range kernel.Blocks[i].Instrs {
			if kernel.Blocks[i].Instrs[j].Kind == InstrCall {
				call = &kernel.Blocks[i].Instrs[j].Call
			}
		}
	}
	if call == nil {
		t.Fatal("no call instruction in kernel")
	}
	callee := mod.Func(call.Callee)
	if callee == nil || callee.Name != "bump" || callee.Kind != FuncDevice {
		t.Fatalf("callee = %+v, want device fn bump", callee)
	}
	if len(call.Args) != 1 {
		t.Errorf("call args = %d, want 1", len(call.Args))
	}
}

func TestLowerShortCircuit(t *testing.T) {
	mod := lowerSource(t, `
kernel pick(x: []i32, n: i32) {
    if n > 0 && x[0] > 0 {
        x[0] = 1;
    }
}
`, "pick", []string{"[]i32", "i32"})

	fn := mod.Func(mod.Kernel)
	// The right-hand load of x[0] must sit in its own block, entered only
	// when n > 0 holds.
	entry := fn.Block(fn.Entry)
	if entry.Term.Kind != TermIf {
		t.Fatalf("entry terminator = %v, want if (short-circuit branch)", entry.Term.Kind)
	}
	for _, ins := range entry.Instrs {
		if ins.Kind == InstrAssign && ins.Assign.Src.Kind == RValueLoad {
			t.Error("slice load emitted before the short-circuit branch")
		}
	}
}

func TestLowerSpansPointAtStatements(t *testing.T) {
	src := `kernel f(x: []i32) {
    x[0] = 1;
}
`
	mod := lowerSource(t, src, "f", []string{"[]i32"})
	fn := mod.Func(mod.Kernel)
	bb := fn.Block(fn.Entry)
	if len(bb.Instrs) == 0 {
		t.Fatal("no instructions")
	}
	store := bb.Instrs[len(bb.Instrs)-1]
	text := src[store.Span.Start:store.Span.End]
	if !strings.HasPrefix(text, "x[0] = 1") {
		t.Errorf("store span covers %q, want the assignment statement", text)
	}
}

func TestSimplifyCFGCollapsesJoins(t *testing.T) {
	mod := lowerSource(t, `
kernel f(x: []i32) {
    if x[0] > 0 {
        x[0] = 1;
    }
    x[0] += 1;
}
`, "f", []string{"[]i32"})

	fn := mod.Func(mod.Kernel)
	before := len(fn.Blocks)
	SimplifyCFG(fn)
	if err := Validate(mod); err != nil {
		t.Fatalf("validate after simplify: %v", err)
	}
	if len(fn.Blocks) > before {
		t.Errorf("simplify grew the graph: %d -> %d", before, len(fn.Blocks))
	}
	for i := range fn.Blocks {
		bb := &fn.Blocks[i]
		if len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto && bb.ID != fn.Entry {
			t.Errorf("bb%d is still an empty goto block", bb.ID)
		}
	}
}

func TestDumpModule(t *testing.T) {
	mod := lowerSource(t, `
kernel f(x: []i32) {
    x[0] = 1;
}
`, "f", []string{"[]i32"})

	var sb strings.Builder
	if err := DumpModule(&sb, mod); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{"kernel f:", "L0: []i32 param name=x", "bb0:", "return"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
