// Package diag defines the diagnostic model shared by all compiler phases.
//
// Diagnostic is the central record: severity, a compact numeric code with a
// stable string form, a message, the primary source span, and optional notes.
// Phases emit through a Reporter so producers stay decoupled from storage;
// BagReporter aggregates into a Bag, which supports sorting, deduplication
// and limits. Rendering lives in internal/diagfmt, never here.
//
// Code ranges are allocated per phase: 1xxx lexer, 2xxx parser, 3xxx sema,
// 4xxx configuration, 5xxx codegen. Configuration codes cover the
// debug/lineinfo/opt conflict warnings the dispatcher resolves.
package diag
