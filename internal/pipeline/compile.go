package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"warp/internal/diag"
	"warp/internal/jit"
	"warp/internal/source"
	"warp/internal/trace"
)

// Request describes one batch compilation. Every file is compiled
// against the same kernel name, signature and configuration.
type Request struct {
	// Kernel is the name of the kernel to specialize in each file.
	Kernel string
	// Signature is the argument type list in source syntax, e.g.
	// []string{"[]f32", "i32"}.
	Signature []string
	// Options are resolved once for the whole batch; conflicts warn a
	// single time through Reporter, not once per file.
	Options jit.Options
	// Reporter receives configuration warnings. May be nil.
	Reporter diag.Reporter
	// MaxDiagnostics caps each file's diagnostic bag.
	MaxDiagnostics int
	// Jobs limits compile parallelism; <= 0 means GOMAXPROCS.
	Jobs int
	// Sink receives progress events. May be nil.
	Sink ProgressSink
	// Cache, when set, is consulted before compiling each file.
	Cache *jit.DiskCache
	// Tracer receives per-specialization spans. May be nil.
	Tracer trace.Tracer
}

// FileResult is the outcome for one kernel file.
type FileResult struct {
	Path     string
	FileID   source.FileID
	Bag      *diag.Bag
	Artifact *jit.Artifact
	Timings  Timings
	Err      error
}

// ListKernelFiles returns the sorted list of *.wk files under dir.
func ListKernelFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".wk") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Deterministic order regardless of the walk.
	sort.Strings(files)
	return files, nil
}

// CompileDir compiles every *.wk file under dir in parallel.
func CompileDir(ctx context.Context, dir string, req Request) (*source.FileSet, []FileResult, error) {
	files, err := ListKernelFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSet()
	fileSet.SetBaseDir(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}
	results, err := CompileFiles(ctx, fileSet, files, req)
	return fileSet, results, err
}

// CompileFiles compiles the given files into fileSet in parallel. Load
// failures and per-file diagnostics land in each FileResult; only a
// cancelled context or a listing error is returned as err.
func CompileFiles(ctx context.Context, fileSet *source.FileSet, files []string, req Request) ([]FileResult, error) {
	// Preload everything up front so goroutines never mutate the set.
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = id
	}

	cfg := req.Options.Resolve(req.Reporter)

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiag := req.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = 64
	}

	// Each goroutine owns one slot, so no mutex is needed.
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bag := diag.NewBag(maxDiag)
			res := FileResult{Path: path, Bag: bag}

			if loadErr, ok := loadErrors[path]; ok {
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.IOLoadFile,
					Message:  "failed to load file: " + loadErr.Error(),
				})
				res.Err = loadErr
				emit(req.Sink, Event{File: path, Stage: StageParse, Status: StatusError, Err: loadErr})
				results[i] = res
				return nil
			}

			res.FileID = fileIDs[path]
			results[i] = compileOne(fileSet, res, cfg, req)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// compileOne runs the parse and compile stages for a single file,
// recording timings and reporting progress as it goes.
func compileOne(fileSet *source.FileSet, res FileResult, cfg jit.Config, req Request) FileResult {
	emit(req.Sink, Event{File: res.Path, Stage: StageParse, Status: StatusWorking})
	start := time.Now()
	d, err := jit.NewDispatcherWith(fileSet, res.FileID, req.Kernel, cfg, diag.BagReporter{Bag: res.Bag})
	elapsed := time.Since(start)
	res.Timings.Set(StageParse, elapsed)
	if err != nil {
		res.Err = err
		emit(req.Sink, Event{File: res.Path, Stage: StageParse, Status: StatusError, Err: err, Elapsed: elapsed})
		return res
	}
	emit(req.Sink, Event{File: res.Path, Stage: StageParse, Status: StatusDone, Elapsed: elapsed})

	if req.Cache != nil {
		d.WithDiskCache(req.Cache)
	}
	d.WithTracer(req.Tracer)

	emit(req.Sink, Event{File: res.Path, Stage: StageCompile, Status: StatusWorking})
	start = time.Now()
	art, err := d.Compile(req.Signature)
	elapsed = time.Since(start)
	res.Timings.Set(StageCompile, elapsed)
	if err != nil {
		res.Err = err
		emit(req.Sink, Event{File: res.Path, Stage: StageCompile, Status: StatusError, Err: err, Elapsed: elapsed})
		return res
	}
	res.Artifact = art
	emit(req.Sink, Event{File: res.Path, Stage: StageCompile, Status: StatusDone, Elapsed: elapsed})
	return res
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
