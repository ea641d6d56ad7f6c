package jit

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"warp/internal/ast"
	"warp/internal/backend/nvvm"
	"warp/internal/backend/ptx"
	"warp/internal/debuginfo"
	"warp/internal/diag"
	"warp/internal/kir"
	"warp/internal/parser"
	"warp/internal/sema"
	"warp/internal/source"
	"warp/internal/trace"
	"warp/internal/types"
)

// Artifact is one compiled specialization.
type Artifact struct {
	Signature    string
	KernelSymbol string
	LLVM         string
	ASM          string
	KIR          string
	Meta         *debuginfo.Table
}

// Dispatcher owns one kernel and compiles it lazily per signature.
// Safe for concurrent Compile calls.
type Dispatcher struct {
	fs     *source.FileSet
	file   source.FileID
	b      *ast.Builder
	parsed ast.FileID
	kernel string
	cfg    Config
	rep    diag.Reporter
	disk   *DiskCache
	tr     trace.Tracer

	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewDispatcher parses the source and resolves the option conflicts.
// Conflict warnings are reported here, once per dispatcher, not per
// compiled signature.
func NewDispatcher(fs *source.FileSet, file source.FileID, kernel string, opts Options, rep diag.Reporter) (*Dispatcher, error) {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return NewDispatcherWith(fs, file, kernel, opts.Resolve(rep), rep)
}

// NewDispatcherWith parses the source against an already resolved
// configuration. Batch callers that compile many files under one
// configuration resolve it once and construct each dispatcher through
// here, so the conflict warnings do not repeat per file.
func NewDispatcherWith(fs *source.FileSet, file source.FileID, kernel string, cfg Config, rep diag.Reporter) (*Dispatcher, error) {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	bag := diag.NewBag(64)
	both := multiReporter{diag.BagReporter{Bag: bag}, rep}

	b := ast.NewBuilder(ast.Hints{})
	pres := parser.ParseFile(fs.Get(file), b, parser.Options{Reporter: both})
	if bag.HasErrors() {
		return nil, fmt.Errorf("jit: %d parse errors in %s", bag.CountSeverity(diag.SevError), fs.Get(file).Path)
	}

	return &Dispatcher{
		fs:     fs,
		file:   file,
		b:      b,
		parsed: pres.File,
		kernel: kernel,
		cfg:    cfg,
		rep:    rep,
		tr:     trace.Nop,
		cache:  make(map[string]*Artifact),
	}, nil
}

// WithTracer attaches a tracer that receives one span per compiled
// specialization.
func (d *Dispatcher) WithTracer(t trace.Tracer) *Dispatcher {
	if t != nil {
		d.tr = t
	}
	return d
}

// WithDiskCache attaches a persistent cache consulted before compiling.
func (d *Dispatcher) WithDiskCache(c *DiskCache) *Dispatcher {
	d.disk = c
	return d
}

// Config returns the resolved configuration.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// Compile returns the artifact for the given argument types, compiling
// on first use. Type names follow source syntax ("[]f32", "i32").
func (d *Dispatcher) Compile(sigNames []string) (*Artifact, error) {
	key := strings.Join(sigNames, ",")

	d.mu.Lock()
	defer d.mu.Unlock()
	if art, ok := d.cache[key]; ok {
		return art, nil
	}

	span := trace.Begin(d.tr, trace.ScopeKernel, "specialize:"+d.kernel, 0)
	if d.disk != nil {
		if art, ok := d.diskLookup(key); ok {
			d.cache[key] = art
			span.WithExtra("sig", key).End("disk cache hit")
			return art, nil
		}
	}

	art, err := d.compileLocked(sigNames, key)
	if err != nil {
		span.WithExtra("sig", key).End("failed")
		return nil, err
	}
	d.cache[key] = art
	if d.disk != nil {
		d.diskStore(key, art)
	}
	span.WithExtra("sig", key).End("compiled")
	return art, nil
}

func (d *Dispatcher) compileLocked(sigNames []string, key string) (*Artifact, error) {
	in := types.NewInterner()
	sig := make(sema.Signature, 0, len(sigNames))
	for _, name := range sigNames {
		ty, ok := in.ParseName(name)
		if !ok {
			return nil, fmt.Errorf("jit: unknown type %q in signature", name)
		}
		sig = append(sig, ty)
	}

	bag := diag.NewBag(64)
	both := multiReporter{diag.BagReporter{Bag: bag}, d.rep}
	res := sema.CheckKernel(d.b, d.parsed, in, d.kernel, sig, sema.Options{Reporter: both})
	if res == nil {
		return nil, fmt.Errorf("jit: kernel %q does not type-check for (%s)", d.kernel, key)
	}

	mod, err := kir.Lower(d.b, res, d.file)
	if err != nil {
		return nil, err
	}
	if d.cfg.Optimized {
		for _, f := range mod.Funcs {
			kir.SimplifyCFG(f)
		}
	}
	if err := kir.Validate(mod); err != nil {
		diag.ReportError(d.rep, diag.GenInvalidIR, source.Span{}, err.Error()).Emit()
		return nil, err
	}

	var kirDump strings.Builder
	if err := kir.DumpModule(&kirDump, mod); err != nil {
		return nil, err
	}

	irRes, err := nvvm.EmitModule(mod, d.fs, nvvm.Options{
		Emission:     d.cfg.Emission,
		PythonErrors: d.cfg.PythonErrors,
		Optimized:    d.cfg.Optimized,
		Producer:     d.cfg.Producer,
	})
	if err != nil {
		return nil, err
	}
	asmRes, err := ptx.EmitModule(mod, d.fs, ptx.Options{
		Emission:     d.cfg.Emission,
		PythonErrors: d.cfg.PythonErrors,
		Target:       d.cfg.Target,
		Producer:     d.cfg.Producer,
	})
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Signature:    key,
		KernelSymbol: irRes.KernelSymbol,
		LLVM:         irRes.IR,
		ASM:          asmRes.ASM,
		KIR:          kirDump.String(),
		Meta:         irRes.Meta,
	}, nil
}

// InspectLLVM compiles (or reuses) the specialization and returns its IR.
func (d *Dispatcher) InspectLLVM(sigNames []string) (string, error) {
	art, err := d.Compile(sigNames)
	if err != nil {
		return "", err
	}
	return art.LLVM, nil
}

// InspectASM compiles (or reuses) the specialization and returns its PTX.
func (d *Dispatcher) InspectASM(sigNames []string) (string, error) {
	art, err := d.Compile(sigNames)
	if err != nil {
		return "", err
	}
	return art.ASM, nil
}

// InspectKIR compiles (or reuses) the specialization and returns the IR
// dump of the lowering stage.
func (d *Dispatcher) InspectKIR(sigNames []string) (string, error) {
	art, err := d.Compile(sigNames)
	if err != nil {
		return "", err
	}
	return art.KIR, nil
}

// Specializations returns the signatures compiled so far.
func (d *Dispatcher) Specializations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.cache))
	for k := range d.cache {
		keys = append(keys, k)
	}
	return keys
}

// cacheKey derives the persistent cache digest for one specialization:
// source content, kernel name, signature and configuration all
// contribute, so stale artifacts cannot be confused across builds.
func (d *Dispatcher) cacheKey(sig string) Digest {
	h := sha256.New()
	h.Write(d.fs.Get(d.file).Content)
	fmt.Fprintf(h, "|%s|%s|%d|%t|%t|%s",
		d.kernel, sig, d.cfg.Emission, d.cfg.PythonErrors, d.cfg.Optimized, d.cfg.Target)
	var dg Digest
	copy(dg[:], h.Sum(nil))
	return dg
}

func (d *Dispatcher) diskLookup(sig string) (*Artifact, bool) {
	var payload diskPayload
	ok, err := d.disk.Get(d.cacheKey(sig), &payload)
	if err != nil || !ok || payload.Schema != diskCacheSchemaVersion {
		return nil, false
	}
	return &Artifact{
		Signature:    payload.Signature,
		KernelSymbol: payload.KernelSymbol,
		LLVM:         payload.LLVM,
		ASM:          payload.ASM,
		KIR:          payload.KIR,
	}, true
}

func (d *Dispatcher) diskStore(sig string, art *Artifact) {
	payload := &diskPayload{
		Schema:       diskCacheSchemaVersion,
		Signature:    art.Signature,
		KernelSymbol: art.KernelSymbol,
		LLVM:         art.LLVM,
		ASM:          art.ASM,
		KIR:          art.KIR,
	}
	// Cache write failures are not compile failures.
	_ = d.disk.Put(d.cacheKey(sig), payload)
}

// multiReporter fans one diagnostic out to several reporters.
type multiReporter []diag.Reporter

func (m multiReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	for _, r := range m {
		if r != nil {
			r.Report(code, sev, primary, msg, notes)
		}
	}
}
