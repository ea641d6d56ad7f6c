package jit

import (
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"warp/internal/debuginfo"
	"warp/internal/diag"
	"warp/internal/source"
)

const divSrc = `
kernel div_kernel(x, y) {
    x[0] = x[0] / y;
}
`

const typedDivSrc = `
kernel div_kernel(x: []i32, y: i32) {
    x[0] = x[0] / y;
}
`

const callerSrc = `
kernel caller(x) {
    callee(x);
}

device fn callee(x) {
    x[0] += 1;
}
`

func newDispatcher(t *testing.T, src, kernel string, opts Options) (*Dispatcher, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("kernels.wk", []byte(src))
	bag := diag.NewBag(32)
	d, err := NewDispatcher(fs, id, kernel, opts, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("NewDispatcher: %v (diags: %v)", err, bag.Items())
	}
	return d, bag
}

func countCode(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestNoDebugNoLineinfo(t *testing.T) {
	d, bag := newDispatcher(t, divSrc, "div_kernel", Options{})
	asm, err := d.InspectASM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	llvm, err := d.InspectLLVM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(asm, ".file") || strings.Contains(asm, ".loc") {
		t.Error("assembly carries line mapping without a request")
	}
	if strings.Contains(llvm, "DICompileUnit") {
		t.Error("IR carries a compile unit without a request")
	}
	if bag.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestLineinfoOnly(t *testing.T) {
	d, bag := newDispatcher(t, divSrc, "div_kernel", Options{Lineinfo: true})
	if got := d.Config().Emission; got != debuginfo.EmissionDebugDirectivesOnly {
		t.Fatalf("emission = %v, want DebugDirectivesOnly", got)
	}
	asm, err := d.InspectASM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	llvm, err := d.InspectLLVM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(asm, ".file\t1 \"kernels.wk\"") || !strings.Contains(asm, ".loc\t1 ") {
		t.Error("lineinfo build must emit .file and .loc directives")
	}
	if strings.Contains(asm, ".section\t.debug_") {
		t.Error("lineinfo build must not emit debug sections")
	}
	if !strings.Contains(llvm, "emissionKind: DebugDirectivesOnly") {
		t.Error("compile unit must be directives-only")
	}
	// Lineinfo keeps the unchecked error model: no status-1 return for
	// the division.
	if strings.Contains(llvm, "ret i32 1") {
		t.Error("lineinfo build must not use the checked division path")
	}
	if bag.Len() != 0 {
		t.Errorf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestDebugFullTables(t *testing.T) {
	d, _ := newDispatcher(t, divSrc, "div_kernel", Options{Debug: true})
	asm, err := d.InspectASM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	llvm, err := d.InspectLLVM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llvm, "emissionKind: FullDebug") {
		t.Error("debug build must use FullDebug emission")
	}
	if !strings.Contains(asm, ".section\t.debug_info") {
		t.Error("debug build must emit debug sections")
	}
	// Debug ties in the checked error model: a zero divisor returns a
	// nonzero status.
	if !strings.Contains(llvm, "ret i32 1") {
		t.Error("debug build must use the checked division path")
	}
}

func TestDebugAndLineinfoWarnsOnce(t *testing.T) {
	d, bag := newDispatcher(t, divSrc, "div_kernel", Options{Debug: true, Lineinfo: true})

	if got := countCode(bag, diag.ConfDebugLineinfo); got != 1 {
		t.Fatalf("conflict warnings = %d, want exactly 1: %v", got, bag.Items())
	}
	found := false
	for _, item := range bag.Items() {
		if item.Code == diag.ConfDebugLineinfo {
			found = true
			if item.Severity != diag.SevWarning {
				t.Errorf("conflict severity = %v, want warning", item.Severity)
			}
			if !strings.Contains(item.Message, "debug and lineinfo are mutually exclusive") {
				t.Errorf("conflict message = %q", item.Message)
			}
		}
	}
	if !found {
		t.Fatal("conflict warning missing")
	}

	// Debug wins: full tables, checked error model.
	if got := d.Config().Emission; got != debuginfo.EmissionFullDebug {
		t.Errorf("emission = %v, want FullDebug", got)
	}
	llvm, err := d.InspectLLVM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llvm, "emissionKind: FullDebug") {
		t.Error("debug must win over lineinfo")
	}

	// Compiling more signatures must not repeat the warning.
	if _, err := d.Compile([]string{"[]i64", "i64"}); err != nil {
		t.Fatal(err)
	}
	if got := countCode(bag, diag.ConfDebugLineinfo); got != 1 {
		t.Errorf("conflict warnings after second compile = %d, want 1", got)
	}
}

func TestDebugAndOptWarnsSeparately(t *testing.T) {
	d, bag := newDispatcher(t, divSrc, "div_kernel", Options{Debug: true, Opt: true})
	if got := countCode(bag, diag.ConfDebugOpt); got != 1 {
		t.Fatalf("opt conflict warnings = %d, want 1: %v", got, bag.Items())
	}
	if got := countCode(bag, diag.ConfDebugLineinfo); got != 0 {
		t.Errorf("lineinfo conflict reported without lineinfo: %v", bag.Items())
	}
	if d.Config().Optimized {
		t.Error("debug must disable optimization")
	}
	llvm, err := d.InspectLLVM([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llvm, "isOptimized: false") {
		t.Error("compile unit must record the disabled optimization")
	}
}

func TestSubprogramPerEmittedFunction(t *testing.T) {
	d, _ := newDispatcher(t, callerSrc, "caller", Options{Lineinfo: true})
	llvm, err := d.InspectLLVM([]string{"[]f32"})
	if err != nil {
		t.Fatal(err)
	}
	// Wrapper, kernel body and device callee each get a distinct scope.
	if got := strings.Count(llvm, "distinct !DISubprogram"); got != 3 {
		t.Errorf("distinct !DISubprogram count = %d, want 3", got)
	}

	asm, err := d.InspectASM([]string{"[]f32"})
	if err != nil {
		t.Fatal(err)
	}
	weak := strings.Index(asm, ".weak .func")
	if weak < 0 {
		t.Fatal("device function not emitted as .weak .func")
	}
	if !strings.Contains(asm[weak:], ".loc\t1 ") {
		t.Error("device function body lost its line mapping")
	}
}

func TestSpecializationCache(t *testing.T) {
	d, _ := newDispatcher(t, divSrc, "div_kernel", Options{})
	a, err := d.Compile([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Compile([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same signature must reuse the cached artifact")
	}

	c, err := d.Compile([]string{"[]i64", "i64"})
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("different signatures must compile separately")
	}
	if a.KernelSymbol == c.KernelSymbol {
		t.Errorf("specializations share the symbol %q", a.KernelSymbol)
	}
	if got := len(d.Specializations()); got != 2 {
		t.Errorf("specializations = %d, want 2", got)
	}
}

func TestConcurrentCompile(t *testing.T) {
	d, _ := newDispatcher(t, divSrc, "div_kernel", Options{Lineinfo: true})
	var g errgroup.Group
	sigs := [][]string{
		{"[]i32", "i32"},
		{"[]i64", "i64"},
		{"[]f32", "f32"},
		{"[]f64", "f64"},
	}
	for n := 0; n < 8; n++ {
		for _, sig := range sigs {
			sig := sig
			g.Go(func() error {
				_, err := d.Compile(sig)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := len(d.Specializations()); got != len(sigs) {
		t.Errorf("specializations = %d, want %d", got, len(sigs))
	}
}

func TestAnnotatedParamsPinSignature(t *testing.T) {
	d, bag := newDispatcher(t, typedDivSrc, "div_kernel", Options{})
	if _, err := d.Compile([]string{"[]f32", "f32"}); err == nil {
		t.Fatal("annotated parameters must reject a different signature")
	}
	if countCode(bag, diag.SemaSigTypeMismatch) == 0 {
		t.Errorf("signature mismatch not reported: %v", bag.Items())
	}
	if _, err := d.Compile([]string{"[]i32", "i32"}); err != nil {
		t.Fatalf("declared signature must still compile: %v", err)
	}
}

func TestCompileErrors(t *testing.T) {
	d, bag := newDispatcher(t, divSrc, "div_kernel", Options{})
	if _, err := d.Compile([]string{"[]i32"}); err == nil {
		t.Error("arity mismatch must fail")
	}
	if countCode(bag, diag.SemaSigArityMismatch) == 0 {
		t.Error("arity mismatch not reported")
	}
	if _, err := d.Compile([]string{"[]i32", "nope"}); err == nil {
		t.Error("unknown signature type must fail")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cache, err := OpenDiskCache("warp-test")
	if err != nil {
		t.Fatal(err)
	}

	d, _ := newDispatcher(t, divSrc, "div_kernel", Options{Lineinfo: true})
	d.WithDiskCache(cache)
	first, err := d.Compile([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}

	// A fresh dispatcher over the same source and config must hit the
	// persisted artifact.
	d2, _ := newDispatcher(t, divSrc, "div_kernel", Options{Lineinfo: true})
	d2.WithDiskCache(cache)
	second, err := d2.Compile([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if second.LLVM != first.LLVM || second.ASM != first.ASM {
		t.Error("disk cache returned a different artifact")
	}

	// A different configuration must miss.
	d3, _ := newDispatcher(t, divSrc, "div_kernel", Options{Debug: true})
	d3.WithDiskCache(cache)
	third, err := d3.Compile([]string{"[]i32", "i32"})
	if err != nil {
		t.Fatal(err)
	}
	if third.LLVM == first.LLVM {
		t.Error("debug artifact cannot equal the lineinfo artifact")
	}
}
