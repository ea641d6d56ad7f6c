package main

import (
	"fmt"
	"io"

	"warp/internal/observ"
	"warp/internal/pipeline"
)

// printPipelineTimings aggregates per-file stage durations into one
// report.
func printPipelineTimings(out io.Writer, results []pipeline.FileResult) {
	if out == nil || len(results) == 0 {
		return
	}
	tm := observ.NewTimer()
	for _, res := range results {
		for _, stage := range []pipeline.Stage{pipeline.StageParse, pipeline.StageCompile} {
			if res.Timings.Has(stage) {
				tm.Observe(string(stage), res.Timings.Duration(stage), res.Path)
			}
		}
	}
	fmt.Fprint(out, tm.Summary())
}
