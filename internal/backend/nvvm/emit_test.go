package nvvm

import (
	"strings"
	"testing"

	"warp/internal/ast"
	"warp/internal/debuginfo"
	"warp/internal/diag"
	"warp/internal/kir"
	"warp/internal/parser"
	"warp/internal/sema"
	"warp/internal/source"
	"warp/internal/types"
)

func buildModule(t *testing.T, src, kernel string, sigNames []string) (*kir.Module, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("kernels.wk", []byte(src))
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
	mod, err := kir.Lower(b, res, id)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return mod, fs
}

const divKernel = `
kernel div_kernel(x: []i32, y: i32) {
    x[0] = x[0] / y;
}
`

func emit(t *testing.T, src, kernel string, sig []string, opts Options) *Result {
	t.Helper()
	mod, fs := buildModule(t, src, kernel, sig)
	res, err := EmitModule(mod, fs, opts)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return res
}

func TestEmitNoDebugHasNoMetadata(t *testing.T) {
	res := emit(t, divKernel, "div_kernel", []string{"[]i32", "i32"}, Options{
		Emission: debuginfo.EmissionNone,
	})
	for _, forbidden := range []string{"!dbg", "DICompileUnit", "DIFile", "DISubprogram"} {
		if strings.Contains(res.IR, forbidden) {
			t.Errorf("IR without debug must not contain %q", forbidden)
		}
	}
	if !strings.Contains(res.IR, `!"kernel", i32 1`) {
		t.Error("kernel annotation missing")
	}
}

func TestEmitLineinfoAttachesLocations(t *testing.T) {
	res := emit(t, divKernel, "div_kernel", []string{"[]i32", "i32"}, Options{
		Emission: debuginfo.EmissionDebugDirectivesOnly,
	})
	if !strings.Contains(res.IR, "emissionKind: DebugDirectivesOnly") {
		t.Error("compile unit must use DebugDirectivesOnly for line-only emission")
	}
	if !strings.Contains(res.IR, "!dbg") {
		t.Error("instructions carry no !dbg attachments")
	}
	if strings.Contains(res.IR, "ret i32 1") {
		t.Error("unchecked error model must not emit the zero-divisor status return")
	}
}

func TestEmitDebugUsesCheckedDivision(t *testing.T) {
	res := emit(t, divKernel, "div_kernel", []string{"[]i32", "i32"}, Options{
		Emission:     debuginfo.EmissionFullDebug,
		PythonErrors: true,
	})
	if !strings.Contains(res.IR, "emissionKind: FullDebug") {
		t.Error("compile unit must use FullDebug")
	}
	if !strings.Contains(res.IR, "icmp eq i32") || !strings.Contains(res.IR, "ret i32 1") {
		t.Error("checked error model must branch on a zero divisor and return a status")
	}
}

func TestEmitSubprogramPerFunction(t *testing.T) {
	src := `
kernel caller(x) {
    callee(x);
}

device fn callee(x) {
    x[0] += 1;
}
`
	res := emit(t, src, "caller", []string{"[]f32"}, Options{
		Emission: debuginfo.EmissionDebugDirectivesOnly,
	})
	// Wrapper, kernel body, device function: one distinct node each.
	if got := strings.Count(res.IR, "distinct !DISubprogram"); got != 3 {
		t.Errorf("distinct !DISubprogram count = %d, want 3:\n%s", got, res.IR)
	}
	if got := len(res.Meta.Subprograms()); got != 3 {
		t.Errorf("Subprograms() = %d, want 3", got)
	}
}

func TestEmitWrapperCallsBody(t *testing.T) {
	res := emit(t, divKernel, "div_kernel", []string{"[]i32", "i32"}, Options{
		Emission: debuginfo.EmissionNone,
	})
	if res.KernelSymbol != "wk_div_kernel_pi32_i32" {
		t.Errorf("kernel symbol = %q", res.KernelSymbol)
	}
	if !strings.Contains(res.IR, "define void @wk_div_kernel_pi32_i32(i32* %arg0, i32 %arg1)") {
		t.Error("wrapper definition missing or mis-typed")
	}
	if !strings.Contains(res.IR, "call i32 @div_kernel_pi32_i32(") {
		t.Error("wrapper does not call the kernel body")
	}
	if !strings.Contains(res.IR, "define internal i32 @div_kernel_pi32_i32(") {
		t.Error("kernel body must be internal and return a status")
	}
}

func TestEmitCallStatusPropagation(t *testing.T) {
	src := `
kernel caller(x: []i32, y: i32) {
    half(x, y);
}

device fn half(x, y) {
    x[0] = x[0] / y;
}
`
	checked := emit(t, src, "caller", []string{"[]i32", "i32"}, Options{
		Emission:     debuginfo.EmissionFullDebug,
		PythonErrors: true,
	})
	if !strings.Contains(checked.IR, "icmp ne i32 %") {
		t.Error("checked model must test the callee status")
	}

	unchecked := emit(t, src, "caller", []string{"[]i32", "i32"}, Options{
		Emission: debuginfo.EmissionDebugDirectivesOnly,
	})
	if strings.Contains(unchecked.IR, "icmp ne i32 %") {
		t.Error("unchecked model must discard the callee status")
	}
}

func TestEmitTargetsNVPTX(t *testing.T) {
	res := emit(t, divKernel, "div_kernel", []string{"[]i32", "i32"}, Options{})
	if !strings.Contains(res.IR, `target triple = "nvptx64-nvidia-cuda"`) {
		t.Error("module must target nvptx64")
	}
	if !strings.Contains(res.IR, "source_filename = \"kernels.wk\"") {
		t.Error("source filename missing")
	}
}

func TestEmitFloatConstants(t *testing.T) {
	src := `
kernel scale(x: []f32) {
    x[0] = x[0] * 0.5;
}
`
	res := emit(t, src, "scale", []string{"[]f32"}, Options{})
	// 0.5 is exactly representable; the hex form of the double is stable.
	if !strings.Contains(res.IR, "fmul float") {
		t.Error("float multiply missing")
	}
	if !strings.Contains(res.IR, "0x3FE0000000000000") {
		t.Errorf("constant 0.5 not rendered in hex:\n%s", res.IR)
	}
}

func TestEmitAdaptedIntLiteral(t *testing.T) {
	src := `
kernel bump(x) {
    x[0] += 1;
}
`
	res := emit(t, src, "bump", []string{"[]f32"}, Options{})
	if !strings.Contains(res.IR, "fadd float") {
		t.Error("adapted literal must use the float add form")
	}
	if strings.Contains(res.IR, "add i32") {
		t.Error("integer add leaked into a float specialization")
	}
	if !strings.Contains(res.IR, "0x3FF0000000000000") {
		t.Errorf("constant 1 not rendered as a float:\n%s", res.IR)
	}
}
