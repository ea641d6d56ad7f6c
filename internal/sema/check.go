package sema

import (
	"fmt"

	"warp/internal/ast"
	"warp/internal/diag"
	"warp/internal/source"
	"warp/internal/types"
)

// Signature is the concrete argument types a kernel is specialised for.
type Signature []types.TypeID

// Options configures a check session.
type Options struct {
	Reporter diag.Reporter
}

// checker holds the state for one kernel specialisation.
type checker struct {
	b     *ast.Builder
	file  ast.FileID
	types *types.Interner
	opts  Options

	res *Result
	// instantiated device functions keyed by item + concrete param types
	instances map[instanceKey]FuncID
	failed    bool
}

type instanceKey struct {
	item ast.ItemID
	sig  string
}

// CheckKernel type-checks the named kernel against sig, instantiating any
// device functions it calls. On errors it reports through opts.Reporter and
// returns a nil Result.
func CheckKernel(b *ast.Builder, file ast.FileID, interner *types.Interner, kernelName string, sig Signature, opts Options) *Result {
	c := &checker{
		b:     b,
		file:  file,
		types: interner,
		opts:  opts,
		res: &Result{
			Types:     interner,
			ExprTypes: make(map[ast.ExprID]types.TypeID),
			Refs:      make(map[ast.ExprID]Ref),
			LocalOf:   make(map[ast.StmtID]int),
			CalleeOf:  make(map[ast.ExprID]FuncID),
		},
		instances: make(map[instanceKey]FuncID),
	}

	itemID, ok := b.FindItem(file, kernelName)
	if !ok {
		c.report(diag.SemaKernelNotFound, b.File(file).Span, fmt.Sprintf("kernel %q not found", kernelName))
		return nil
	}
	item := b.Item(itemID)
	if item.Kind != ast.ItemKernel {
		c.report(diag.SemaKernelNotFound, item.Span, fmt.Sprintf("%q is a device function, not a kernel", kernelName))
		return nil
	}

	c.instantiate(itemID, sig, item.Span)
	if c.failed {
		return nil
	}
	return c.res
}

// instantiate binds concrete parameter types for item and checks its body.
func (c *checker) instantiate(itemID ast.ItemID, sig Signature, callSpan source.Span) FuncID {
	item := c.b.Item(itemID)

	key := instanceKey{item: itemID, sig: sigKey(c.types, sig)}
	if id, ok := c.instances[key]; ok {
		return id
	}

	if len(sig) != len(item.Params) {
		c.report(diag.SemaSigArityMismatch, callSpan,
			fmt.Sprintf("%q takes %d parameters, signature has %d", item.Name, len(item.Params), len(sig)))
		return NoFuncID
	}

	fn := &FuncInfo{
		ID:   FuncID(len(c.res.Funcs)), //nolint:gosec // function counts are tiny
		Item: itemID,
		Kind: item.Kind,
		Name: item.Name,
		Span: item.Span,
	}
	for i, pid := range item.Params {
		p := c.b.Param(pid)
		declared := c.resolveTypeExpr(p.Type)
		bound := sig[i]
		if declared != types.NoTypeID && declared != bound {
			c.report(diag.SemaSigTypeMismatch, p.Span,
				fmt.Sprintf("parameter %q declared %s but signature binds %s",
					p.Name, c.types.String(declared), c.types.String(bound)))
			return NoFuncID
		}
		if bound == types.NoTypeID {
			c.report(diag.SemaUntypedParam, p.Span,
				fmt.Sprintf("cannot infer type for parameter %q", p.Name))
			return NoFuncID
		}
		fn.Params = append(fn.Params, ParamInfo{Name: p.Name, Type: bound, Span: p.Span})
	}

	c.res.Funcs = append(c.res.Funcs, fn)
	c.instances[key] = fn.ID

	sc := &scope{checker: c, fn: fn}
	sc.pushFrame()
	c.checkBlock(sc, item.Body)
	return fn.ID
}

// resolveTypeExpr maps a syntactic type annotation to a TypeID.
func (c *checker) resolveTypeExpr(id ast.TypeID) types.TypeID {
	if !id.IsValid() {
		return types.NoTypeID
	}
	t := c.b.Type(id)
	switch t.Kind {
	case ast.TypeScalar:
		tid, ok := c.types.ByName(t.Name)
		if !ok {
			c.report(diag.SemaTypeMismatch, t.Span, fmt.Sprintf("unknown type %q", t.Name))
			return types.NoTypeID
		}
		return tid
	case ast.TypeSlice:
		elem := c.resolveTypeExpr(t.Elem)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.types.Slice(elem)
	}
	return types.NoTypeID
}

func (c *checker) report(code diag.Code, sp source.Span, msg string) {
	c.failed = true
	if c.opts.Reporter != nil {
		diag.ReportError(c.opts.Reporter, code, sp, msg).Emit()
	}
}

func sigKey(in *types.Interner, sig Signature) string {
	out := ""
	for i, t := range sig {
		if i > 0 {
			out += ","
		}
		out += in.String(t)
	}
	return out
}

// SigString renders a signature the way the CLI accepts it, e.g.
// "([]i32,i32)".
func SigString(in *types.Interner, sig Signature) string {
	return "(" + sigKey(in, sig) + ")"
}
