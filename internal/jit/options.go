// Package jit compiles kernels on demand, one specialization per
// argument signature, and caches the generated IR and assembly.
package jit

import (
	"warp/internal/debuginfo"
	"warp/internal/diag"
	"warp/internal/source"
)

// Options are the user-facing compilation switches.
type Options struct {
	// Debug requests full debug info and the checked error model.
	Debug bool
	// Lineinfo requests source line mapping without full debug info.
	Lineinfo bool
	// Opt enables the CFG cleanup passes.
	Opt bool
	// Target is the sm architecture, defaulting to the PTX backend's.
	Target string
	// Producer overrides the compiler name recorded in the output.
	Producer string
}

// Config is the resolved, conflict-free configuration a compilation
// actually runs with.
type Config struct {
	Emission     debuginfo.EmissionKind
	PythonErrors bool
	Optimized    bool
	Target       string
	Producer     string
}

// Resolve applies the precedence rules and reports each conflict as a
// single warning:
//
//   - debug wins over lineinfo; requesting both drops lineinfo
//   - debug disables optimization
//
// The checked (python-style) error model is tied to debug: lineinfo-only
// builds keep the unchecked model.
func (o Options) Resolve(rep diag.Reporter) Config {
	cfg := Config{
		Target:   o.Target,
		Producer: o.Producer,
	}

	debug := o.Debug
	lineinfo := o.Lineinfo
	if debug && lineinfo {
		diag.ReportWarning(rep, diag.ConfDebugLineinfo, source.Span{},
			"debug and lineinfo are mutually exclusive; keeping debug and dropping lineinfo").Emit()
		lineinfo = false
	}

	cfg.Optimized = o.Opt
	if debug && o.Opt {
		diag.ReportWarning(rep, diag.ConfDebugOpt, source.Span{},
			"debug disables optimization; compiling without opt").Emit()
		cfg.Optimized = false
	}

	switch {
	case debug:
		cfg.Emission = debuginfo.EmissionFullDebug
	case lineinfo:
		cfg.Emission = debuginfo.EmissionDebugDirectivesOnly
	default:
		cfg.Emission = debuginfo.EmissionNone
	}
	cfg.PythonErrors = debug
	return cfg
}
