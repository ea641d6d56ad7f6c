package main

import (
	"os"

	"github.com/spf13/cobra"

	"warp/internal/diag"
	"warp/internal/diagfmt"
	"warp/internal/source"
)

// useColor resolves the --color flag against the terminal.
func useColor(cmd *cobra.Command) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stderr))
}

// printBag pretty-prints a diagnostic bag to stderr.
func printBag(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
		Color:     useColor(cmd),
		PathMode:  diagfmt.PathModeAuto,
		ShowNotes: true,
	})
}
