package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"warp/internal/pipeline"
	"warp/internal/source"
	"warp/internal/ui"
)

type compileOutcome struct {
	results []pipeline.FileResult
	err     error
}

// runCompileWithUI drives the pipeline behind a Bubble Tea progress view.
func runCompileWithUI(cmd *cobra.Command, title string, fileSet *source.FileSet, files []string, req pipeline.Request) ([]pipeline.FileResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	go func() {
		reqCopy := req
		reqCopy.Sink = pipeline.ChannelSink{Ch: events}
		results, err := pipeline.CompileFiles(cmd.Context(), fileSet, files, reqCopy)
		outcomeCh <- compileOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
