package kir

// SimplifyCFG cleans up the block graph of a function:
// 1. Collapse chains of empty goto blocks
// 2. Remove unreachable blocks
// 3. Renumber blocks deterministically
//
// The lowering pass freely creates join blocks; optimized builds run this
// so the emitted IR does not carry empty fallthrough blocks.
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	redirects := buildRedirectMap(f)
	applyRedirects(f, redirects)
	reachable := computeReachability(f)
	compactBlocks(f, reachable)
}

// buildRedirectMap maps every empty goto block to its final target,
// following chains.
func buildRedirectMap(f *Func) map[BlockID]BlockID {
	redirects := make(map[BlockID]BlockID)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) != 0 || bb.Term.Kind != TermGoto {
			continue
		}
		target := bb.Term.Goto.Target
		visited := map[BlockID]bool{}
		for !visited[target] {
			visited[target] = true
			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialGotoBlock(f, target) {
				target = f.Blocks[target].Term.Goto.Target
				continue
			}
			break
		}
		redirects[bb.ID] = target
	}
	return redirects
}

func isTrivialGotoBlock(f *Func, id BlockID) bool {
	if id < 0 || int(id) >= len(f.Blocks) {
		return false
	}
	bb := &f.Blocks[id]
	return len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto
}

func applyRedirects(f *Func, redirects map[BlockID]BlockID) {
	if len(redirects) == 0 {
		return
	}
	redirect := func(id BlockID) BlockID {
		if newID, ok := redirects[id]; ok {
			return newID
		}
		return id
	}
	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = redirect(term.Goto.Target)
		case TermIf:
			term.If.Then = redirect(term.If.Then)
			term.If.Else = redirect(term.If.Else)
		}
	}
	f.Entry = redirect(f.Entry)
}

func computeReachability(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) || reachable[id] {
			return
		}
		reachable[id] = true
		term := &f.Blocks[id].Term
		switch term.Kind {
		case TermGoto:
			visit(term.Goto.Target)
		case TermIf:
			visit(term.If.Then)
			visit(term.If.Else)
		}
	}
	visit(f.Entry)
	return reachable
}

func compactBlocks(f *Func, reachable []bool) {
	count := 0
	for _, r := range reachable {
		if r {
			count++
		}
	}
	if count == len(f.Blocks) {
		for i := range f.Blocks {
			f.Blocks[i].ID = BlockID(i) //nolint:gosec // bounded by block count
		}
		return
	}

	oldToNew := make(map[BlockID]BlockID)
	newBlocks := make([]Block, 0, count)
	for i, keep := range reachable {
		if keep {
			//nolint:gosec // bounded by block count
			oldToNew[BlockID(i)] = BlockID(len(newBlocks))
			newBlocks = append(newBlocks, f.Blocks[i])
		}
	}

	remap := func(id BlockID) BlockID {
		if newID, ok := oldToNew[id]; ok {
			return newID
		}
		return id
	}
	for i := range newBlocks {
		newBlocks[i].ID = BlockID(i) //nolint:gosec // bounded by block count
		term := &newBlocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = remap(term.Goto.Target)
		case TermIf:
			term.If.Then = remap(term.If.Then)
			term.If.Else = remap(term.If.Else)
		}
	}
	f.Blocks = newBlocks
	f.Entry = remap(f.Entry)
}
