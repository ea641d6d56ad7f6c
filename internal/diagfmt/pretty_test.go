package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"warp/internal/diag"
	"warp/internal/source"
)

func testBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	src := "kernel f(x) {\n    x[0] = bad;\n}\n"
	id := fs.AddVirtual("demo.wk", []byte(src))

	// Span covering "bad" on line 2.
	start := uint32(strings.Index(src, "bad"))
	sp := source.Span{File: id, Start: start, End: start + 3}

	bag := diag.NewBag(8)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.SemaUnresolvedSymbol,
		Message:  `unresolved symbol "bad"`,
		Primary:  sp,
		Notes:    []diag.Note{{Span: sp, Msg: "declare it as a parameter"}},
	})
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.ConfDebugLineinfo,
		Message:  "debug and lineinfo are mutually exclusive; keeping debug and dropping lineinfo",
	})
	return bag, fs
}

func TestPrettyPlain(t *testing.T) {
	bag, fs := testBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	out := buf.String()

	if !strings.Contains(out, "demo.wk:2:12: ERROR SEM3001:") {
		t.Errorf("header missing or wrong:\n%s", out)
	}
	if !strings.Contains(out, "    x[0] = bad;") {
		t.Errorf("context line missing:\n%s", out)
	}
	if !strings.Contains(out, "^~~") {
		t.Errorf("underline missing:\n%s", out)
	}
	if !strings.Contains(out, "note: declare it as a parameter") {
		t.Errorf("note missing:\n%s", out)
	}
	// The config warning has no span, so no location prefix.
	if !strings.Contains(out, "WARNING CONF4001: debug and lineinfo are mutually exclusive") {
		t.Errorf("spanless warning missing:\n%s", out)
	}
}

func TestPrettyHidesNotes(t *testing.T) {
	bag, fs := testBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: false})
	if strings.Contains(buf.String(), "note:") {
		t.Errorf("notes shown despite ShowNotes=false:\n%s", buf.String())
	}
}

func TestPrettyUnderlineWidth(t *testing.T) {
	bag, fs := testBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	// "bad" is three characters wide.
	if !strings.Contains(buf.String(), "^~~\n") {
		t.Errorf("underline width wrong:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "^~~~") {
		t.Errorf("underline too wide:\n%s", buf.String())
	}
}
