package sema

import (
	"warp/internal/source"
	"warp/internal/types"
)

// scope is a lexical scope stack for one function body.
type scope struct {
	checker *checker
	fn      *FuncInfo
	frames  []map[string]Ref
}

func (s *scope) pushFrame() {
	s.frames = append(s.frames, make(map[string]Ref))
}

func (s *scope) popFrame() {
	s.frames = s.frames[:len(s.frames)-1]
}

// lookup walks frames innermost-first, then falls back to parameters.
func (s *scope) lookup(name string) (Ref, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if ref, ok := s.frames[i][name]; ok {
			return ref, true
		}
	}
	for i, p := range s.fn.Params {
		if p.Name == name {
			return Ref{Kind: RefParam, Index: i}, true
		}
	}
	return Ref{}, false
}

// declareLocal registers a new let binding in the innermost frame and in
// the function's local table.
func (s *scope) declareLocal(name string, ty types.TypeID, sp source.Span) (int, Ref) {
	idx := len(s.fn.Locals)
	s.fn.Locals = append(s.fn.Locals, LocalInfo{Name: name, Type: ty, Span: sp})
	ref := Ref{Kind: RefLocal, Index: idx}
	s.frames[len(s.frames)-1][name] = ref
	return idx, ref
}
