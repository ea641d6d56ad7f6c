package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"warp/internal/diag"
	"warp/internal/jit"
	"warp/internal/pipeline"
	"warp/internal/source"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file.wk | dir>",
	Short: "Compile kernels to PTX",
	Long: `Compile specializes the named kernel for one argument signature and
writes the generated PTX (and optionally NVVM IR and the lowered IR)
next to each source file or into --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().String("kernel", "", "kernel name to compile")
	compileCmd.Flags().String("sig", "", "argument signature, e.g. \"[]f32,i32\"")
	compileCmd.Flags().Bool("debug", false, "emit full debug info and use the checked error model")
	compileCmd.Flags().Bool("lineinfo", false, "emit source line mapping only")
	compileCmd.Flags().Bool("opt", false, "run the CFG cleanup passes")
	compileCmd.Flags().String("target", "", "PTX target architecture, e.g. sm_80")
	compileCmd.Flags().Bool("emit-llvm", false, "also write the NVVM IR (.ll)")
	compileCmd.Flags().Bool("emit-kir", false, "also write the lowered kernel IR dump (.kir)")
	compileCmd.Flags().StringP("out", "o", "", "output directory (\"-\" prints PTX to stdout, single file only)")
	compileCmd.Flags().Int("jobs", 0, "parallel compile jobs (0 = GOMAXPROCS)")
	compileCmd.Flags().String("ui", "auto", "interactive progress (auto|on|off)")
	compileCmd.Flags().Bool("no-cache", false, "skip the persistent kernel cache")
}

type compileFlags struct {
	kernel   string
	sig      []string
	opts     jit.Options
	emitLLVM bool
	emitKIR  bool
	out      string
	jobs     int
	ui       uiMode
	noCache  bool
}

// readKernelSelection resolves kernel name, signature and emission
// options from flags, falling back to warp.toml for what the flags
// leave blank. Shared by compile and inspect.
func readKernelSelection(cmd *cobra.Command, startDir string) (kernel string, sig []string, opts jit.Options, err error) {
	if kernel, err = cmd.Flags().GetString("kernel"); err != nil {
		return
	}
	var sigStr string
	if sigStr, err = cmd.Flags().GetString("sig"); err != nil {
		return
	}
	if opts.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
		return
	}
	if opts.Lineinfo, err = cmd.Flags().GetBool("lineinfo"); err != nil {
		return
	}
	if opts.Opt, err = cmd.Flags().GetBool("opt"); err != nil {
		return
	}
	if opts.Target, err = cmd.Flags().GetString("target"); err != nil {
		return
	}

	manifest, found, err := loadProjectManifest(startDir)
	if err != nil {
		return
	}
	if found {
		if kernel == "" {
			kernel = manifest.Config.Kernel.Name
		}
		if sigStr == "" {
			sigStr = manifest.Config.Kernel.Signature
		}
		if opts.Target == "" {
			opts.Target = manifest.Config.Kernel.Target
		}
	}

	if kernel == "" {
		err = fmt.Errorf("no kernel selected: pass --kernel or set [kernel].name in warp.toml")
		return
	}
	sig = parseSigNames(sigStr)
	if len(sig) == 0 {
		err = fmt.Errorf("no signature given: pass --sig or set [kernel].signature in warp.toml")
	}
	return
}

func readCompileFlags(cmd *cobra.Command, startDir string) (compileFlags, error) {
	var cf compileFlags
	var err error

	if cf.kernel, cf.sig, cf.opts, err = readKernelSelection(cmd, startDir); err != nil {
		return cf, err
	}
	if cf.emitLLVM, err = cmd.Flags().GetBool("emit-llvm"); err != nil {
		return cf, err
	}
	if cf.emitKIR, err = cmd.Flags().GetBool("emit-kir"); err != nil {
		return cf, err
	}
	if cf.out, err = cmd.Flags().GetString("out"); err != nil {
		return cf, err
	}
	if cf.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return cf, err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return cf, err
	}
	if cf.ui, err = readUIMode(uiValue); err != nil {
		return cf, err
	}
	if cf.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return cf, err
	}
	return cf, nil
}

// parseSigNames splits "[]f32, i32" into its type names.
func parseSigNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func runCompile(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", target, err)
	}

	startDir := target
	if !info.IsDir() {
		startDir = filepath.Dir(target)
	}
	cf, err := readCompileFlags(cmd, startDir)
	if err != nil {
		return err
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	tracer, traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer traceCleanup()

	var cache *jit.DiskCache
	if !cf.noCache {
		if cache, err = jit.OpenDiskCache("warp"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: kernel cache unavailable: %v\n", err)
			cache = nil
		}
	}

	var files []string
	fileSet := source.NewFileSet()
	if info.IsDir() {
		fileSet.SetBaseDir(target)
		if files, err = pipeline.ListKernelFiles(target); err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .wk files under %q", target)
		}
	} else {
		fileSet.SetBaseDir(filepath.Dir(target))
		files = []string{target}
	}

	confBag := diag.NewBag(16)
	req := pipeline.Request{
		Kernel:         cf.kernel,
		Signature:      cf.sig,
		Options:        cf.opts,
		Reporter:       diag.BagReporter{Bag: confBag},
		MaxDiagnostics: maxDiagnostics,
		Jobs:           cf.jobs,
		Cache:          cache,
		Tracer:         tracer,
	}

	var results []pipeline.FileResult
	if shouldUseTUI(cf.ui) && len(files) > 1 {
		results, err = runCompileWithUI(cmd, "warp compile", fileSet, files, req)
	} else {
		results, err = pipeline.CompileFiles(cmd.Context(), fileSet, files, req)
	}
	printBag(cmd, confBag, fileSet)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		printBag(cmd, res.Bag, fileSet)
		if res.Err != nil {
			failed++
			continue
		}
		if err := writeArtifacts(cmd, res, cf, len(files)); err != nil {
			return err
		}
	}

	if showTimings {
		printPipelineTimings(cmd.OutOrStdout(), results)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	if !quiet && cf.out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %d kernel file(s) for %s(%s)\n",
			len(results), cf.kernel, strings.Join(cf.sig, ","))
	}
	return nil
}

// writeArtifacts places the outputs next to the source or under --out.
func writeArtifacts(cmd *cobra.Command, res pipeline.FileResult, cf compileFlags, fileCount int) error {
	art := res.Artifact
	if cf.out == "-" {
		if fileCount > 1 {
			return fmt.Errorf("-o - needs a single input file")
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), art.ASM)
		return err
	}

	dir := filepath.Dir(res.Path)
	if cf.out != "" {
		dir = cf.out
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	base := strings.TrimSuffix(filepath.Base(res.Path), ".wk")

	if err := os.WriteFile(filepath.Join(dir, base+".ptx"), []byte(art.ASM), 0o644); err != nil {
		return err
	}
	if cf.emitLLVM {
		if err := os.WriteFile(filepath.Join(dir, base+".ll"), []byte(art.LLVM), 0o644); err != nil {
			return err
		}
	}
	if cf.emitKIR {
		if err := os.WriteFile(filepath.Join(dir, base+".kir"), []byte(art.KIR), 0o644); err != nil {
			return err
		}
	}
	return nil
}
