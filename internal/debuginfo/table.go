package debuginfo

import (
	"fmt"
	"strings"
)

// MetaID numbers a metadata node; rendered as !N.
type MetaID int

const NoMetaID MetaID = -1

func (id MetaID) Ref() string {
	return fmt.Sprintf("!%d", int(id))
}

type node struct {
	distinct bool
	body     string
}

type locKey struct {
	line, col uint32
	scope     MetaID
}

// Table accumulates the metadata graph for one module. Node IDs are
// allocated in insertion order, so output is deterministic for a given
// build sequence.
type Table struct {
	Kind EmissionKind

	nodes []node

	files    map[string]MetaID
	locs     map[locKey]MetaID
	unit     MetaID
	subTy    MetaID
	subprogs []MetaID
	flags    []MetaID
}

func NewTable(kind EmissionKind) *Table {
	return &Table{
		Kind:  kind,
		files: make(map[string]MetaID),
		locs:  make(map[locKey]MetaID),
		unit:  NoMetaID,
		subTy: NoMetaID,
	}
}

func (t *Table) add(distinct bool, body string) MetaID {
	id := MetaID(len(t.nodes))
	t.nodes = append(t.nodes, node{distinct: distinct, body: body})
	return id
}

// AddFile interns a DIFile node for the given path.
func (t *Table) AddFile(filename, directory string) MetaID {
	key := directory + "\x00" + filename
	if id, ok := t.files[key]; ok {
		return id
	}
	id := t.add(false, fmt.Sprintf("!DIFile(filename: %q, directory: %q)", filename, directory))
	t.files[key] = id
	return id
}

// AddCompileUnit creates the module's DICompileUnit and the module flag
// nodes. There is exactly one per module.
func (t *Table) AddCompileUnit(file MetaID, producer string, optimized bool) MetaID {
	if t.unit != NoMetaID {
		return t.unit
	}
	t.unit = t.add(true, fmt.Sprintf(
		"!DICompileUnit(language: DW_LANG_C, file: %s, producer: %q, isOptimized: %t, runtimeVersion: 0, emissionKind: %s)",
		file.Ref(), producer, optimized, t.Kind))
	t.flags = []MetaID{
		t.add(false, `!{i32 2, !"Dwarf Version", i32 4}`),
		t.add(false, `!{i32 2, !"Debug Info Version", i32 3}`),
	}
	return t.unit
}

// CompileUnit returns the unit node, or NoMetaID before AddCompileUnit.
func (t *Table) CompileUnit() MetaID {
	return t.unit
}

// subroutineType lazily creates the single shared DISubroutineType.
// Kernels and device functions return nothing at the source level, so
// one void signature covers them all.
func (t *Table) subroutineType() MetaID {
	if t.subTy == NoMetaID {
		tuple := t.add(false, "!{null}")
		t.subTy = t.add(false, fmt.Sprintf("!DISubroutineType(types: %s)", tuple.Ref()))
	}
	return t.subTy
}

// AddSubprogram creates a distinct DISubprogram for one emitted function.
// Each function gets its own node even when several share a source item.
func (t *Table) AddSubprogram(name, linkageName string, file MetaID, line uint32) MetaID {
	ty := t.subroutineType()
	id := t.add(true, fmt.Sprintf(
		"!DISubprogram(name: %q, linkageName: %q, scope: %s, file: %s, line: %d, type: %s, scopeLine: %d, flags: DIFlagPrototyped, spFlags: DISPFlagDefinition, unit: %s)",
		name, linkageName, file.Ref(), file.Ref(), line, ty.Ref(), line, t.unit.Ref()))
	t.subprogs = append(t.subprogs, id)
	return id
}

// AddLocation interns a DILocation inside the given subprogram scope.
func (t *Table) AddLocation(line, col uint32, scope MetaID) MetaID {
	key := locKey{line: line, col: col, scope: scope}
	if id, ok := t.locs[key]; ok {
		return id
	}
	id := t.add(false, fmt.Sprintf("!DILocation(line: %d, column: %d, scope: %s)", line, col, scope.Ref()))
	t.locs[key] = id
	return id
}

// AddRaw appends an arbitrary metadata node, for module-level metadata
// that is not part of the debug graph (target annotations and the like).
func (t *Table) AddRaw(body string) MetaID {
	return t.add(false, body)
}

// Subprograms returns the DISubprogram nodes in creation order.
func (t *Table) Subprograms() []MetaID {
	return t.subprogs
}

// Empty reports whether nothing was recorded.
func (t *Table) Empty() bool {
	return len(t.nodes) == 0
}

// Render writes the named metadata and every numbered node.
func (t *Table) Render(sb *strings.Builder) {
	if t.Empty() {
		return
	}
	if t.unit != NoMetaID {
		fmt.Fprintf(sb, "!llvm.dbg.cu = !{%s}\n", t.unit.Ref())
		refs := make([]string, len(t.flags))
		for i, f := range t.flags {
			refs[i] = f.Ref()
		}
		fmt.Fprintf(sb, "!llvm.module.flags = !{%s}\n", strings.Join(refs, ", "))
	}
	for i, n := range t.nodes {
		if n.distinct {
			fmt.Fprintf(sb, "!%d = distinct %s\n", i, n.body)
		} else {
			fmt.Fprintf(sb, "!%d = %s\n", i, n.body)
		}
	}
}
