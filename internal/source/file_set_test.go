package source

import (
	"testing"
)

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("kernel.wk", []byte("kernel foo(x) {\n    x[0] = 1;\n}\n"))

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{name: "start of file", off: 0, want: LineCol{Line: 1, Col: 1}},
		{name: "middle of first line", off: 7, want: LineCol{Line: 1, Col: 8}},
		{name: "newline belongs to its line", off: 15, want: LineCol{Line: 1, Col: 16}},
		{name: "start of second line", off: 16, want: LineCol{Line: 2, Col: 1}},
		{name: "statement on second line", off: 20, want: LineCol{Line: 2, Col: 5}},
		{name: "end of second line", off: 29, want: LineCol{Line: 2, Col: 14}},
		{name: "closing brace", off: 30, want: LineCol{Line: 3, Col: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if start != tt.want {
				t.Errorf("Resolve(%d) = %+v, want %+v", tt.off, start, tt.want)
			}
		})
	}
}

func TestFileSetLatestWins(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("a.wk", []byte("kernel a() {}"))
	second := fs.AddVirtual("a.wk", []byte("kernel a(x) {}"))

	if first == second {
		t.Fatalf("expected distinct IDs for re-added file")
	}
	latest, ok := fs.GetLatest("a.wk")
	if !ok {
		t.Fatalf("GetLatest did not find a.wk")
	}
	if latest != second {
		t.Errorf("GetLatest = %d, want %d", latest, second)
	}
}

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name      string
		in        []byte
		want      string
		wantFlags FileFlags
	}{
		{
			name:      "plain ascii untouched",
			in:        []byte("kernel f() {}"),
			want:      "kernel f() {}",
			wantFlags: 0,
		},
		{
			name:      "crlf rewritten",
			in:        []byte("a\r\nb"),
			want:      "a\nb",
			wantFlags: FileNormalizedCRLF,
		},
		{
			name:      "bom stripped",
			in:        []byte("\xEF\xBB\xBFkernel"),
			want:      "kernel",
			wantFlags: FileHadBOM,
		},
		{
			name:      "decomposed identifier recomposed",
			in:        []byte("ke\x72ne\x6C // caf\x65\xCC\x81"),
			want:      "kernel // caf\xC3\xA9",
			wantFlags: FileNormalizedNFC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, flags := normalizeContent(tt.in)
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if flags != tt.wantFlags {
				t.Errorf("flags = %v, want %v", flags, tt.wantFlags)
			}
		})
	}
}

func TestFileLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("k.wk", []byte("one\ntwo\nthree"))
	f := fs.Get(id)

	if got := f.Line(1); got != "one" {
		t.Errorf("Line(1) = %q", got)
	}
	if got := f.Line(2); got != "two" {
		t.Errorf("Line(2) = %q", got)
	}
	if got := f.Line(3); got != "three" {
		t.Errorf("Line(3) = %q", got)
	}
	if got := f.Line(4); got != "" {
		t.Errorf("Line(4) = %q, want empty", got)
	}
}
