package kir

import (
	"errors"
	"fmt"

	"warp/internal/types"
)

// Validate checks module invariants after lowering (and after
// SimplifyCFG). Violations are lowering bugs, not user errors.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.Func(m.Kernel) == nil {
		errs = append(errs, fmt.Errorf("kernel fn#%d does not exist", m.Kernel))
	}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(f, m.Types); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func, typesIn *types.Interner) error {
	var errs []error
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateLocals(f, typesIn); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		if f.Blocks[i].Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	var errs []error
	exists := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}
	if !exists(f.Entry) {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}
	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			if !exists(term.Goto.Target) {
				errs = append(errs, fmt.Errorf("bb%d: goto target bb%d does not exist", i, term.Goto.Target))
			}
		case TermIf:
			if !exists(term.If.Then) {
				errs = append(errs, fmt.Errorf("bb%d: then target bb%d does not exist", i, term.If.Then))
			}
			if !exists(term.If.Else) {
				errs = append(errs, fmt.Errorf("bb%d: else target bb%d does not exist", i, term.If.Else))
			}
		}
	}
	return errors.Join(errs...)
}

func validateLocals(f *Func, typesIn *types.Interner) error {
	var errs []error
	localOK := func(id LocalID) bool {
		return id >= 0 && int(id) < len(f.Locals)
	}
	checkOperand := func(bb int, op *Operand) {
		if op.Kind == OperandLocal && !localOK(op.Local) {
			errs = append(errs, fmt.Errorf("bb%d: operand references missing L%d", bb, op.Local))
		}
	}
	for i := range f.Locals {
		if _, ok := typesIn.Lookup(f.Locals[i].Type); !ok {
			errs = append(errs, fmt.Errorf("L%d (%s): unknown type", i, f.Locals[i].Name))
		}
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			switch ins.Kind {
			case InstrAssign:
				if !localOK(ins.Assign.Dst.Local) {
					errs = append(errs, fmt.Errorf("bb%d: assign to missing L%d", i, ins.Assign.Dst.Local))
				}
				if ins.Assign.Dst.Kind == PlaceElem {
					checkOperand(i, &ins.Assign.Dst.Index)
				}
				src := &ins.Assign.Src
				switch src.Kind {
				case RValueUse:
					checkOperand(i, &src.Use)
				case RValueBinary:
					checkOperand(i, &src.X)
					checkOperand(i, &src.Y)
				case RValueUnary:
					checkOperand(i, &src.X)
				case RValueLoad:
					if !localOK(src.Slice) {
						errs = append(errs, fmt.Errorf("bb%d: load from missing L%d", i, src.Slice))
					}
					checkOperand(i, &src.Index)
				}
			case InstrCall:
				for k := range ins.Call.Args {
					checkOperand(i, &ins.Call.Args[k])
				}
			}
		}
		if bb.Term.Kind == TermIf {
			checkOperand(i, &bb.Term.If.Cond)
		}
	}
	return errors.Join(errs...)
}
