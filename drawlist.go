package sprig

import (
	"fmt"
	"time"
)

// DrawList is the compiled draw order for one render target. It owns a tree
// of draw groups and caches the operations and index buffer produced from
// it. Mutations only mark the list dirty; the next Draw or Compile rebuilds
// the cache.
type DrawList struct {
	name  string
	batch *Batch
	tree  groupTree
	base  State
	debug bool

	dirty bool
	busy  bool

	ops     []Op
	indices []uint32
	stats   Stats
}

// DefaultBaseState is the state every draw list starts from: the built-in
// program with normal blending.
func DefaultBaseState() State {
	return NewState(ProgramPart(DefaultProgram), BlendPart(BlendNormal))
}

func newDrawList(b *Batch, name string) *DrawList {
	l := &DrawList{
		name:  name,
		batch: b,
		base:  DefaultBaseState(),
		debug: b.cfg.Debug,
		dirty: true,
	}
	l.tree.init()
	return l
}

// Name returns the list name within its batch.
func (l *DrawList) Name() string {
	return l.name
}

// Batch returns the owning batch.
func (l *DrawList) Batch() *Batch {
	return l.batch
}

// BaseState returns the state inherited by the root group.
func (l *DrawList) BaseState() State {
	return l.base
}

// SetBaseState replaces the state inherited by the root group.
func (l *DrawList) SetBaseState(s State) {
	l.base = s
	l.dirty = true
}

// AddGroup adds a structural group under parent. Groups with equal order
// under the same parent draw in no particular order relative to each other;
// a lower order always draws first. state is merged over the parent's state
// for everything below the group.
func (l *DrawList) AddGroup(parent GroupID, order int, state State) (GroupID, error) {
	id, err := l.tree.addGroup(parent, order, state)
	if err != nil {
		return GroupID{}, fmt.Errorf("sprig: add group: %w", err)
	}
	if l.debug {
		debugCheckTreeDepth(&l.tree, id.index)
		debugCheckChildCount(&l.tree, parent.index)
	}
	l.dirty = true
	return id, nil
}

// RemoveGroup removes a group and everything below it. Interfacers in the
// removed subtree, hidden ones included, stay allocated but are detached from
// the list until re-attached with Interfacer.Attach.
func (l *DrawList) RemoveGroup(id GroupID) error {
	err := l.tree.removeGroup(id, func(it *Interfacer) {
		it.attached = false
		it.leaf = GroupID{index: noNode}
	})
	if err != nil {
		return fmt.Errorf("sprig: remove group: %w", err)
	}
	l.dirty = true
	return nil
}

// SetGroupState replaces the state of a structural group.
func (l *DrawList) SetGroupState(id GroupID, s State) error {
	if err := l.tree.setState(id, s); err != nil {
		return fmt.Errorf("sprig: set group state: %w", err)
	}
	l.dirty = true
	return nil
}

// SetGroupOrder changes the sibling order of a group.
func (l *DrawList) SetGroupOrder(id GroupID, order int) error {
	if err := l.tree.setOrder(id, order); err != nil {
		return fmt.Errorf("sprig: set group order: %w", err)
	}
	l.dirty = true
	return nil
}

// GroupState returns the state of a group.
func (l *DrawList) GroupState(id GroupID) (State, bool) {
	if !l.tree.valid(id) {
		return State{}, false
	}
	return l.tree.nodes[id.index].state, true
}

// Parent returns the parent of a group. The root has no parent.
func (l *DrawList) Parent(id GroupID) (GroupID, bool) {
	if !l.tree.valid(id) || id.IsRoot() {
		return GroupID{}, false
	}
	return l.tree.idOf(l.tree.nodes[id.index].parent), true
}

// Valid reports whether id refers to a live group of this list.
func (l *DrawList) Valid(id GroupID) bool {
	return l.tree.valid(id)
}

// InTree reports whether id takes part in compilation: it is live and the
// last compile did not prune it or an ancestor. A group pruned while hidden
// interfacers below it were parked stays valid until they are shown again or
// deleted; an empty group is freed and its ID goes stale.
func (l *DrawList) InTree(id GroupID) bool {
	if !l.tree.valid(id) {
		return false
	}
	for idx := id.index; idx != noNode; idx = l.tree.nodes[idx].parent {
		if l.tree.nodes[idx].dangling {
			return false
		}
	}
	return true
}

// LiveGroups returns the number of groups reached by compilation, root
// included.
func (l *DrawList) LiveGroups() int {
	return l.tree.live()
}

// MarkDirty forces a recompile on the next Draw.
func (l *DrawList) MarkDirty() {
	l.dirty = true
}

// Dirty reports whether the cached operations are out of date.
func (l *DrawList) Dirty() bool {
	return l.dirty
}

// Compile rebuilds the cached operations if the list is dirty.
func (l *DrawList) Compile() error {
	if l.busy {
		return ErrReentrantDraw
	}
	if l.dirty {
		l.compile()
	}
	return nil
}

func (l *DrawList) compile() {
	l.busy = true
	defer func() { l.busy = false }()

	start := time.Now()
	var st Stats
	chains := l.visit(rootGroup, l.base, &st)
	st.Chains = len(chains)
	for _, c := range chains {
		st.Items += len(c)
	}
	l.ops, l.indices = flatten(chains, l.ops[:0], l.indices[:0], &st)
	st.Indices = len(l.indices)
	st.CompileTime = time.Since(start)

	l.stats = st
	l.dirty = false
	l.debugLog(st)
}

// Ops returns the operations of the last compile. Callers must not modify
// the slice.
func (l *DrawList) Ops() []Op {
	return l.ops
}

// Indices returns the index buffer of the last compile. Callers must not
// modify the slice.
func (l *DrawList) Indices() []uint32 {
	return l.indices
}

// Stats returns statistics of the last compile.
func (l *DrawList) Stats() Stats {
	return l.stats
}

// Draw recompiles if dirty and replays the operations on d.
func (l *DrawList) Draw(d Driver) error {
	if l.busy {
		return ErrReentrantDraw
	}
	if l.dirty {
		l.compile()
	}
	l.busy = true
	defer func() { l.busy = false }()
	Replay(d, l.ops, l.indices)
	return nil
}

// String dumps the group tree, one group per line.
func (l *DrawList) String() string {
	return l.tree.String()
}
