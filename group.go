package sprig

import "fmt"

type groupKind uint8

const (
	groupUnused groupKind = iota
	groupBranch           // structural group, may carry state
	groupLeaf             // owns exactly one interfacer, never has children
)

const rootGroup int32 = 0

// GroupID identifies a draw group within one DrawList. The zero value is the
// list's implicit root group.
type GroupID struct {
	index int32
	gen   uint32
}

// RootGroup is the implicit top group of every draw list. It is never pruned.
var RootGroup = GroupID{}

// IsRoot reports whether id is the root group.
func (id GroupID) IsRoot() bool {
	return id.index == rootGroup
}

type groupNode struct {
	kind     groupKind
	gen      uint32
	order    int
	seq      uint64 // creation order, breaks order ties
	parent   int32
	children []int32
	state    State
	iface    *Interfacer

	// A group that produced nothing is pruned: freed, or kept out of its
	// parent's children as dangling while parked interfacers or detached
	// groups below it may come back.
	dangling bool
	parked   []*Interfacer // hidden interfacers whose leaf was pruned
	detached []int32       // dangling child groups
}

// groupTree is an index arena of draw groups. Node 0 is the root.
type groupTree struct {
	nodes  []groupNode
	unused []int32
	seq    uint64
}

func (t *groupTree) init() {
	t.nodes = append(t.nodes[:0], groupNode{kind: groupBranch, parent: noNode})
	t.unused = t.unused[:0]
}

func (t *groupTree) nextSeq() uint64 {
	t.seq++
	return t.seq
}

func (t *groupTree) valid(id GroupID) bool {
	if id.index < 0 || int(id.index) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[id.index]
	return n.kind != groupUnused && n.gen == id.gen
}

func (t *groupTree) idOf(idx int32) GroupID {
	return GroupID{index: idx, gen: t.nodes[idx].gen}
}

func (t *groupTree) newNode(n groupNode) int32 {
	if k := len(t.unused); k > 0 {
		idx := t.unused[k-1]
		t.unused = t.unused[:k-1]
		n.gen = t.nodes[idx].gen
		t.nodes[idx] = n
		return idx
	}
	n.gen = 1
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

// free recycles a node. The generation bump invalidates outstanding IDs.
func (t *groupTree) free(idx int32) {
	n := &t.nodes[idx]
	clear(n.parked)
	*n = groupNode{
		kind:     groupUnused,
		gen:      n.gen + 1,
		parent:   noNode,
		children: n.children[:0],
		parked:   n.parked[:0],
		detached: n.detached[:0],
	}
	t.unused = append(t.unused, idx)
}

// branch resolves id to a node that may take children.
func (t *groupTree) branch(id GroupID) (int32, error) {
	if !t.valid(id) {
		return noNode, fmt.Errorf("%w: %v", ErrStaleGroup, id)
	}
	if t.nodes[id.index].kind == groupLeaf {
		return noNode, fmt.Errorf("%w: %v", ErrLeafGroup, id)
	}
	return id.index, nil
}

func (t *groupTree) addGroup(parent GroupID, order int, state State) (GroupID, error) {
	p, err := t.branch(parent)
	if err != nil {
		return GroupID{}, err
	}
	idx := t.newNode(groupNode{
		kind:     groupBranch,
		order:    order,
		seq:      t.nextSeq(),
		parent:   p,
		state:    state,
	})
	t.nodes[p].children = append(t.nodes[p].children, idx)
	t.relink(p)
	return t.idOf(idx), nil
}

func (t *groupTree) addLeaf(parent GroupID, order int, it *Interfacer) (GroupID, error) {
	p, err := t.branch(parent)
	if err != nil {
		return GroupID{}, err
	}
	idx := t.newNode(groupNode{
		kind:   groupLeaf,
		order:  order,
		seq:    t.nextSeq(),
		parent: p,
		iface:  it,
	})
	t.nodes[p].children = append(t.nodes[p].children, idx)
	t.relink(p)
	return t.idOf(idx), nil
}

// relink puts idx and its dangling ancestors back into their parents'
// children.
func (t *groupTree) relink(idx int32) {
	for idx != noNode && t.nodes[idx].dangling {
		n := &t.nodes[idx]
		n.dangling = false
		p := &t.nodes[n.parent]
		p.detached = removeIndex(p.detached, idx)
		p.children = append(p.children, idx)
		idx = n.parent
	}
}

// prune takes a group that produced nothing out of the tree. It stays
// allocated only while something parked below it can return.
func (t *groupTree) prune(idx int32) {
	n := &t.nodes[idx]
	if len(n.parked) == 0 && len(n.detached) == 0 {
		t.free(idx)
		return
	}
	n.dangling = true
	p := &t.nodes[n.parent]
	p.detached = append(p.detached, idx)
}

// park records a hidden interfacer whose leaf under idx was pruned.
func (t *groupTree) park(idx int32, it *Interfacer) {
	t.nodes[idx].parked = append(t.nodes[idx].parked, it)
}

func (t *groupTree) unpark(idx int32, it *Interfacer) {
	n := &t.nodes[idx]
	for i, p := range n.parked {
		if p == it {
			n.parked = append(n.parked[:i], n.parked[i+1:]...)
			return
		}
	}
}

// release drops a parked interfacer for good and frees dangling groups that
// no longer lead to anything.
func (t *groupTree) release(idx int32, it *Interfacer) {
	t.unpark(idx, it)
	t.collect(idx)
}

func (t *groupTree) collect(idx int32) {
	for idx != noNode {
		n := &t.nodes[idx]
		if !n.dangling || len(n.parked) > 0 || len(n.detached) > 0 || len(n.children) > 0 {
			return
		}
		p := n.parent
		t.nodes[p].detached = removeIndex(t.nodes[p].detached, idx)
		t.free(idx)
		idx = p
	}
}

func removeIndex(s []int32, idx int32) []int32 {
	for i, c := range s {
		if c == idx {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func (t *groupTree) unlink(idx int32) {
	p := t.nodes[idx].parent
	if p == noNode {
		return
	}
	if t.nodes[idx].dangling {
		t.nodes[p].detached = removeIndex(t.nodes[p].detached, idx)
		t.nodes[idx].dangling = false
		t.collect(p)
		return
	}
	t.nodes[p].children = removeIndex(t.nodes[p].children, idx)
}

// removeLeaf detaches and frees a leaf node.
func (t *groupTree) removeLeaf(id GroupID) bool {
	if !t.valid(id) || t.nodes[id.index].kind != groupLeaf {
		return false
	}
	t.unlink(id.index)
	t.free(id.index)
	return true
}

// removeGroup frees id and its whole subtree. Interfacers found in the
// subtree, parked ones included, are passed to detach.
func (t *groupTree) removeGroup(id GroupID, detach func(*Interfacer)) error {
	if id.IsRoot() {
		return ErrRootGroup
	}
	if !t.valid(id) {
		return fmt.Errorf("%w: %v", ErrStaleGroup, id)
	}
	t.unlink(id.index)
	t.freeSubtree(id.index, detach)
	return nil
}

func (t *groupTree) freeSubtree(idx int32, detach func(*Interfacer)) {
	n := &t.nodes[idx]
	for _, c := range n.children {
		t.freeSubtree(c, detach)
	}
	for _, c := range n.detached {
		t.freeSubtree(c, detach)
	}
	if detach != nil {
		if n.iface != nil {
			detach(n.iface)
		}
		for _, it := range n.parked {
			detach(it)
		}
	}
	t.free(idx)
}

func (t *groupTree) setState(id GroupID, state State) error {
	idx, err := t.branch(id)
	if err != nil {
		return err
	}
	t.nodes[idx].state = state
	return nil
}

func (t *groupTree) setOrder(id GroupID, order int) error {
	if id.IsRoot() {
		return ErrRootGroup
	}
	if !t.valid(id) {
		return fmt.Errorf("%w: %v", ErrStaleGroup, id)
	}
	t.nodes[id.index].order = order
	return nil
}

// live counts the nodes that take part in compilation: the root plus every
// node reachable from it.
func (t *groupTree) live() int {
	var walk func(int32) int
	walk = func(idx int32) int {
		n := 1
		for _, c := range t.nodes[idx].children {
			n += walk(c)
		}
		return n
	}
	return walk(rootGroup)
}

func (t *groupTree) String() string {
	var out string
	var walk func(int32, string)
	walk = func(idx int32, indent string) {
		n := &t.nodes[idx]
		switch {
		case n.kind == groupLeaf:
			out += fmt.Sprintf("%sleaf order=%d seq=%d\n", indent, n.order, n.seq)
		default:
			tag := ""
			if n.dangling {
				tag = " dangling"
			}
			out += fmt.Sprintf("%sgroup order=%d seq=%d state=%v%s\n", indent, n.order, n.seq, n.state, tag)
		}
		for _, c := range n.children {
			walk(c, indent+"  ")
		}
	}
	walk(rootGroup, "")
	return out
}
