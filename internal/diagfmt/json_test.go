package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := testBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, diagnostics = %d, want 2", out.Count, len(out.Diagnostics))
	}

	first := out.Diagnostics[0]
	if first.Severity != "ERROR" || first.Code != "SEM3001" {
		t.Errorf("first diagnostic = %+v", first)
	}
	if first.Location.File != "demo.wk" || first.Location.StartLine != 2 || first.Location.StartCol != 12 {
		t.Errorf("location = %+v", first.Location)
	}
	if len(first.Notes) != 1 || first.Notes[0].Message != "declare it as a parameter" {
		t.Errorf("notes = %+v", first.Notes)
	}

	second := out.Diagnostics[1]
	if second.Severity != "WARNING" || second.Code != "CONF4001" {
		t.Errorf("second diagnostic = %+v", second)
	}
}

func TestJSONMaxCapsOutput(t *testing.T) {
	bag, fs := testBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Errorf("capped output = %+v", out)
	}
	if bag.Len() != 2 {
		t.Errorf("bag mutated by formatting: len = %d", bag.Len())
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	bag, fs := testBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if out.Diagnostics[0].Location.StartLine != 0 {
		t.Errorf("positions included without request: %+v", out.Diagnostics[0].Location)
	}
	if out.Diagnostics[0].Location.EndByte == 0 {
		t.Error("byte offsets must always be present")
	}
}
