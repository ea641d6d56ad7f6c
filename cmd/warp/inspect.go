package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"warp/internal/diag"
	"warp/internal/jit"
	"warp/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] file.wk",
	Short: "Show the generated IR for one specialization",
	Long: `Inspect compiles a single kernel specialization and prints the
requested intermediate form to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("kernel", "", "kernel name to compile")
	inspectCmd.Flags().String("sig", "", "argument signature, e.g. \"[]f32,i32\"")
	inspectCmd.Flags().String("show", "ptx", "which form to print (ptx|llvm|kir)")
	inspectCmd.Flags().Bool("debug", false, "emit full debug info and use the checked error model")
	inspectCmd.Flags().Bool("lineinfo", false, "emit source line mapping only")
	inspectCmd.Flags().Bool("opt", false, "run the CFG cleanup passes")
	inspectCmd.Flags().String("target", "", "PTX target architecture, e.g. sm_80")
}

func runInspect(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	kernel, sig, opts, err := readKernelSelection(cmd, filepath.Dir(filePath))
	if err != nil {
		return err
	}
	show, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}

	tracer, traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer traceCleanup()

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	fs := source.NewFileSet()
	id, err := fs.Load(filePath)
	if err != nil {
		return fmt.Errorf("cannot load %q: %w", filePath, err)
	}

	bag := diag.NewBag(maxDiagnostics)
	d, err := jit.NewDispatcher(fs, id, kernel, opts, diag.BagReporter{Bag: bag})
	if err != nil {
		printBag(cmd, bag, fs)
		return err
	}
	d.WithTracer(tracer)

	var text string
	switch show {
	case "ptx":
		text, err = d.InspectASM(sig)
	case "llvm":
		text, err = d.InspectLLVM(sig)
	case "kir":
		text, err = d.InspectKIR(sig)
	default:
		return fmt.Errorf("unknown form %q (expected ptx|llvm|kir)", show)
	}
	printBag(cmd, bag, fs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
