package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"warp/internal/diag"
	"warp/internal/source"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgYellow, color.Bold)
	infoStyle    = color.New(color.FgCyan, color.Bold)
	noteStyle    = color.New(color.FgBlue)
	caretStyle   = color.New(color.FgGreen, color.Bold)
)

// Pretty renders each diagnostic as
//
//	<path>:<line>:<col>: <severity> <CODE>: <message>
//
// followed by the offending source line with a ^~~~ underline and any
// notes. Call bag.Sort() first if stable ordering matters.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeDiagnostic(w, fs, d, opts)
	}
}

func writeDiagnostic(w io.Writer, fs *source.FileSet, d diag.Diagnostic, opts PrettyOpts) {
	sev := paint(severityStyle(d.Severity), d.Severity.String(), opts.Color)
	head := fmt.Sprintf("%s %s: %s", sev, d.Code.ID(), d.Message)
	if loc := formatLoc(fs, d.Primary, opts.PathMode); loc != "" {
		head = loc + ": " + head
	}
	fmt.Fprintln(w, head)
	writeContext(w, fs, d.Primary, opts)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			line := paint(noteStyle, "note", opts.Color) + ": " + note.Msg
			if loc := formatLoc(fs, note.Span, opts.PathMode); loc != "" {
				line = loc + ": " + line
			}
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// writeContext prints the source line under the span with an underline.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	if fs == nil || sp.Empty() {
		return
	}
	f := fs.Get(sp.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(sp)
	text := f.Line(start.Line)
	if text == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	} else if end.Line > start.Line {
		// Multi-line spans underline to the end of the first line.
		width = len(text) - int(start.Col) + 1
	}
	if width < 1 {
		width = 1
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", int(start.Col)-1), paint(caretStyle, underline, opts.Color))
}

func formatLoc(fs *source.FileSet, sp source.Span, mode PathMode) string {
	if fs == nil || sp.Empty() {
		return ""
	}
	f := fs.Get(sp.File)
	if f == nil {
		return ""
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, fs, mode), start.Line, start.Col)
}

func formatPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

func severityStyle(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorStyle
	case diag.SevWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

func paint(style *color.Color, s string, enabled bool) string {
	if !enabled {
		return s
	}
	return style.Sprint(s)
}
