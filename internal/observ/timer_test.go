package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("parse")
	tm.End(idx, "2 files")
	tm.Observe("compile", 5*time.Millisecond, "")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "parse" || report.Phases[0].Note != "2 files" {
		t.Errorf("first phase = %+v", report.Phases[0])
	}
	if report.Phases[1].DurationMS != 5.0 {
		t.Errorf("observed duration = %v ms, want 5", report.Phases[1].DurationMS)
	}
	if report.TotalMS < 5.0 {
		t.Errorf("total = %v ms, want >= 5", report.TotalMS)
	}
}

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	tm.Observe("emit", 2*time.Millisecond, "ptx")
	s := tm.Summary()
	for _, want := range []string{"timings:", "emit", "// ptx", "total"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestTimerEndOutOfRange(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "ignored")
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Errorf("phases = %d, want 0", len(got.Phases))
	}
}
