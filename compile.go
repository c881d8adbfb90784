package sprig

import (
	"cmp"
	"slices"
)

// drawItem is one visible interfacer with its effective state.
type drawItem struct {
	iface *Interfacer
	state State
	seq   uint64
}

func compareItems(a, b drawItem) int {
	if c := cmp.Compare(a.state.Hash(), b.state.Hash()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.iface.domain.id, b.iface.domain.id); c != 0 {
		return c
	}
	if c := cmp.Compare(a.iface.mode, b.iface.mode); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// zipChains merges src into dst chain by chain. Chains of equal-order
// siblings carry no order relative to each other, so chain i of each
// sibling can share one run.
func zipChains(dst, src [][]drawItem) [][]drawItem {
	for i, c := range src {
		if i < len(dst) {
			dst[i] = append(dst[i], c...)
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

// visit flattens the subtree at idx into chains. Chain order is draw order;
// order inside a chain is free. Invisible leaves are freed and their
// interfacers parked on idx; child groups that produce nothing are pruned.
func (l *DrawList) visit(idx int32, inherited State, st *Stats) [][]drawItem {
	t := &l.tree
	n := &t.nodes[idx]
	if l.debug {
		debugCheckBranch(n)
	}
	state := inherited.Merge(n.state)

	kids := n.children
	slices.SortFunc(kids, func(a, b int32) int {
		na, nb := &t.nodes[a], &t.nodes[b]
		if c := cmp.Compare(na.order, nb.order); c != 0 {
			return c
		}
		return cmp.Compare(na.seq, nb.seq)
	})

	var out [][]drawItem
	keep := kids[:0]
	for i := 0; i < len(kids); {
		order := t.nodes[kids[i]].order
		var run [][]drawItem
		for ; i < len(kids) && t.nodes[kids[i]].order == order; i++ {
			c := kids[i]
			cn := &t.nodes[c]
			if cn.kind == groupLeaf {
				if !cn.iface.visible {
					t.park(idx, cn.iface)
					t.free(c)
					st.Pruned++
					continue
				}
				keep = append(keep, c)
				item := drawItem{iface: cn.iface, state: state.Merge(cn.iface.state), seq: cn.seq}
				run = zipChains(run, [][]drawItem{{item}})
				continue
			}
			sub := l.visit(c, state, st)
			if len(sub) == 0 {
				t.prune(c)
				st.Pruned++
				continue
			}
			keep = append(keep, c)
			run = zipChains(run, sub)
		}
		out = append(out, run...)
	}
	n.children = keep
	return out
}

// flatten turns chains into operations and an index buffer. Each chain is
// sorted so equal states are adjacent; a draw is flushed whenever the state
// diff is non-empty, the domain or program changes, or the mode changes.
func flatten(chains [][]drawItem, ops []Op, indices []uint32, st *Stats) ([]Op, []uint32) {
	var (
		cur      State
		domain   *VertexDomain
		program  *Program
		mode     DrawMode
		started  bool
		runStart int
	)
	flush := func() {
		if n := len(indices) - runStart; n > 0 {
			ops = append(ops, Op{Kind: OpDrawIndexed, Mode: mode, Start: runStart, Count: n})
			st.DrawCalls++
		}
		runStart = len(indices)
	}

	for _, chain := range chains {
		slices.SortFunc(chain, compareItems)
		for _, it := range chain {
			f := it.iface
			if len(f.indices) == 0 {
				continue
			}
			prog := it.state.Program()
			diff := Switch(cur, it.state)
			rebind := !started || f.domain != domain || prog != program
			if len(diff) > 0 || rebind || f.mode != mode {
				flush()
			}
			if rebind {
				ops = append(ops, Op{Kind: OpBindBuffer, Domain: f.domain, Program: prog})
				st.BufferBinds++
				domain, program = f.domain, prog
			}
			for _, p := range diff {
				ops = append(ops, Op{Kind: OpApplyState, Part: p})
				st.StateChanges++
			}
			cur, mode, started = it.state, f.mode, true

			base := uint32(f.start)
			for _, ix := range f.indices {
				indices = append(indices, base+ix)
			}
		}
	}
	flush()
	return ops, indices
}
