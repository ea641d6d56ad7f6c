package debuginfo

import (
	"strings"
	"testing"
)

func TestEmissionKindString(t *testing.T) {
	tests := []struct {
		kind EmissionKind
		want string
	}{
		{EmissionNone, "NoDebug"},
		{EmissionDebugDirectivesOnly, "DebugDirectivesOnly"},
		{EmissionFullDebug, "FullDebug"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
	if EmissionDebugDirectivesOnly.FullTables() {
		t.Error("directives-only emission must not request debug sections")
	}
	if !EmissionDebugDirectivesOnly.LineTables() {
		t.Error("directives-only emission must request line tables")
	}
}

func TestTableRender(t *testing.T) {
	tab := NewTable(EmissionDebugDirectivesOnly)
	file := tab.AddFile("kernels.wk", "/src")
	tab.AddCompileUnit(file, "warp", false)
	sp := tab.AddSubprogram("scale", "scale_i32", file, 4)
	tab.AddLocation(5, 9, sp)

	var sb strings.Builder
	tab.Render(&sb)
	out := sb.String()

	for _, want := range []string{
		"!llvm.dbg.cu = !{!1}",
		`!DIFile(filename: "kernels.wk", directory: "/src")`,
		"distinct !DICompileUnit(",
		"emissionKind: DebugDirectivesOnly",
		`distinct !DISubprogram(name: "scale", linkageName: "scale_i32"`,
		"!DILocation(line: 5, column: 9, scope: !6)",
		`!{i32 2, !"Debug Info Version", i32 3}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestTableInternsFilesAndLocations(t *testing.T) {
	tab := NewTable(EmissionFullDebug)
	f1 := tab.AddFile("a.wk", "/src")
	f2 := tab.AddFile("a.wk", "/src")
	if f1 != f2 {
		t.Error("same file interned twice")
	}
	tab.AddCompileUnit(f1, "warp", false)
	sp := tab.AddSubprogram("f", "f", f1, 1)
	l1 := tab.AddLocation(2, 5, sp)
	l2 := tab.AddLocation(2, 5, sp)
	if l1 != l2 {
		t.Error("same location interned twice")
	}
	if l3 := tab.AddLocation(3, 5, sp); l3 == l1 {
		t.Error("distinct locations shared a node")
	}
}

func TestTableDistinctSubprograms(t *testing.T) {
	tab := NewTable(EmissionFullDebug)
	file := tab.AddFile("k.wk", "/src")
	tab.AddCompileUnit(file, "warp", false)
	a := tab.AddSubprogram("f", "f", file, 1)
	b := tab.AddSubprogram("f", "f", file, 1)
	if a == b {
		t.Fatal("subprograms must be distinct nodes even for identical functions")
	}
	if got := len(tab.Subprograms()); got != 2 {
		t.Errorf("subprograms = %d, want 2", got)
	}

	var sb strings.Builder
	tab.Render(&sb)
	if got := strings.Count(sb.String(), "distinct !DISubprogram"); got != 2 {
		t.Errorf("distinct !DISubprogram count = %d, want 2", got)
	}
}
