// Package debuginfo builds the LLVM debug metadata graph attached to
// generated modules: the compile unit, per-function subprograms and
// source locations. The emission kind controls how much of the graph the
// backends materialize.
package debuginfo

// EmissionKind selects how much debug metadata a compilation carries.
type EmissionKind uint8

const (
	// EmissionNone emits no debug metadata at all.
	EmissionNone EmissionKind = iota
	// EmissionDebugDirectivesOnly emits line mapping directives without
	// variable or type information. This is the lineinfo mode: profilers
	// can attribute samples to source lines, debuggers get nothing else.
	EmissionDebugDirectivesOnly
	// EmissionFullDebug emits the complete metadata graph, including the
	// debug sections in the final assembly.
	EmissionFullDebug
)

func (k EmissionKind) String() string {
	switch k {
	case EmissionNone:
		return "NoDebug"
	case EmissionDebugDirectivesOnly:
		return "DebugDirectivesOnly"
	case EmissionFullDebug:
		return "FullDebug"
	}
	return "NoDebug"
}

// LineTables reports whether line mapping should be emitted.
func (k EmissionKind) LineTables() bool {
	return k != EmissionNone
}

// FullTables reports whether the debug sections should be emitted in
// addition to line mapping.
func (k EmissionKind) FullTables() bool {
	return k == EmissionFullDebug
}
