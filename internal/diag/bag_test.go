package diag

import (
	"testing"

	"warp/internal/source"
)

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(Diagnostic{Code: LexUnknownChar}) {
		t.Fatal("first add rejected")
	}
	if !b.Add(Diagnostic{Code: LexBadNumber}) {
		t.Fatal("second add rejected")
	}
	if b.Add(Diagnostic{Code: SynUnexpectedToken}) {
		t.Fatal("add above cap accepted")
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}

func TestBagSeverityQueries(t *testing.T) {
	b := NewBag(10)
	b.Add(Diagnostic{Severity: SevInfo, Code: ConfInfo})
	if b.HasWarnings() || b.HasErrors() {
		t.Fatal("info-only bag reports warnings or errors")
	}

	b.Add(Diagnostic{Severity: SevWarning, Code: ConfDebugLineinfo})
	if !b.HasWarnings() {
		t.Fatal("bag with warning does not report warnings")
	}
	if b.HasErrors() {
		t.Fatal("warning counted as error")
	}
	if got := b.CountSeverity(SevWarning); got != 1 {
		t.Fatalf("CountSeverity(SevWarning) = %d, want 1", got)
	}

	b.Add(Diagnostic{Severity: SevError, Code: SemaTypeMismatch})
	if !b.HasErrors() {
		t.Fatal("bag with error does not report errors")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	sp := func(file source.FileID, start uint32) source.Span {
		return source.Span{File: file, Start: start, End: start + 1}
	}

	b := NewBag(10)
	b.Add(Diagnostic{Severity: SevWarning, Code: SynUnexpectedToken, Primary: sp(1, 20)})
	b.Add(Diagnostic{Severity: SevError, Code: SemaTypeMismatch, Primary: sp(0, 5)})
	b.Add(Diagnostic{Severity: SevWarning, Code: SynUnexpectedToken, Primary: sp(1, 20)})
	b.Add(Diagnostic{Severity: SevError, Code: LexUnknownChar, Primary: sp(1, 20)})

	b.Sort()
	b.Dedup()

	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("after dedup: %d items, want 3", len(items))
	}
	if items[0].Code != SemaTypeMismatch {
		t.Errorf("first item = %v, want SemaTypeMismatch", items[0].Code)
	}
	// Same span: error sorts before warning.
	if items[1].Code != LexUnknownChar {
		t.Errorf("second item = %v, want LexUnknownChar", items[1].Code)
	}
}

func TestReportBuilderEmitOnce(t *testing.T) {
	bag := NewBag(10)
	r := BagReporter{Bag: bag}

	b := ReportWarning(r, ConfDebugLineinfo, source.Span{}, "debug and lineinfo are mutually exclusive, using debug")
	b.WithNote(source.Span{}, "lineinfo disabled")
	b.Emit()
	b.Emit()

	if bag.Len() != 1 {
		t.Fatalf("emitted %d diagnostics, want 1", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != ConfDebugLineinfo || d.Severity != SevWarning {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	if len(d.Notes) != 1 {
		t.Errorf("notes = %d, want 1", len(d.Notes))
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{LexUnknownChar, "LEX1001"},
		{SynUnexpectedToken, "SYN2001"},
		{SemaTypeMismatch, "SEM3003"},
		{ConfDebugLineinfo, "CONF4001"},
		{GenUnsupported, "GEN5001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("ID(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
