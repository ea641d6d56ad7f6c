package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warp/internal/trace"
)

// setupTracing reads the trace flags and initializes a tracer. The
// WARP_TRACE environment variable stands in for --trace when the flag
// is not given. The returned cleanup flushes and closes the tracer.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	if traceOutput == "" {
		traceOutput = os.Getenv("WARP_TRACE")
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}
	// A trace path without an explicit level means phase tracing.
	if level == trace.LevelOff {
		if traceOutput == "" {
			return trace.Nop, func() {}, nil
		}
		level = trace.LevelPhase
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		OutputPath: traceOutput,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
