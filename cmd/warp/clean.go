package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"warp/internal/jit"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the persistent kernel cache",
	Long:  "Remove every compiled specialization from the on-disk kernel cache.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := jit.OpenDiskCache("warp")
	if err != nil {
		return fmt.Errorf("failed to open kernel cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop kernel cache: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "kernel cache removed")
	return err
}
