package sprig

import (
	"fmt"
	"slices"
)

// Placement says where an interfacer sits in a draw list.
type Placement struct {
	List   *DrawList // nil selects the batch's default list
	Parent GroupID   // zero value is the list root
	Order  int       // sibling order under Parent
}

// Interfacer is one drawable's claim on a contiguous range of a vertex
// domain, together with its primitive mode, local indices, visibility and
// state. It is owned by the drawable that created it and deleted exactly once.
type Interfacer struct {
	batch   *Batch
	domain  *VertexDomain
	start   int
	count   int
	mode    DrawMode
	indices []uint32
	visible bool
	state   State

	list     *DrawList
	parent   GroupID
	order    int
	leaf     GroupID
	attached bool // false after the enclosing group was removed
	deleted  bool
}

// Batch returns the batch that created the interfacer.
func (it *Interfacer) Batch() *Batch { return it.batch }

// Domain returns the vertex domain holding the interfacer's elements.
func (it *Interfacer) Domain() *VertexDomain { return it.domain }

// Start returns the first element index within the domain.
func (it *Interfacer) Start() int { return it.start }

// Count returns the number of elements.
func (it *Interfacer) Count() int { return it.count }

// Mode returns the primitive mode.
func (it *Interfacer) Mode() DrawMode { return it.mode }

// Indices returns the local indices. Callers must not modify the slice.
func (it *Interfacer) Indices() []uint32 { return it.indices }

// Visible reports whether the interfacer is drawn.
func (it *Interfacer) Visible() bool { return it.visible }

// State returns the interfacer's own state, before group inheritance.
func (it *Interfacer) State() State { return it.state }

// List returns the draw list the interfacer is placed in.
func (it *Interfacer) List() *DrawList { return it.list }

// Group returns the interfacer's leaf group. It is stale while the leaf is
// pruned or detached.
func (it *Interfacer) Group() GroupID { return it.leaf }

// Deleted reports whether Delete has been called.
func (it *Interfacer) Deleted() bool { return it.deleted }

func (it *Interfacer) check() error {
	if it.deleted {
		return ErrInterfacerDeleted
	}
	return nil
}

func checkIndices(indices []uint32, count int) error {
	for _, ix := range indices {
		if int(ix) >= count {
			return fmt.Errorf("%w: index %d of %d elements", ErrIndexOutOfRange, ix, count)
		}
	}
	return nil
}

// SetIndices replaces the local indices.
func (it *Interfacer) SetIndices(indices []uint32) error {
	if err := it.check(); err != nil {
		return err
	}
	if err := checkIndices(indices, it.count); err != nil {
		return err
	}
	it.indices = append(it.indices[:0], indices...)
	it.list.dirty = true
	return nil
}

// SetMode changes the primitive mode.
func (it *Interfacer) SetMode(m DrawMode) error {
	if err := it.check(); err != nil {
		return err
	}
	if it.mode != m {
		it.mode = m
		it.list.dirty = true
	}
	return nil
}

// SetVisible shows or hides the interfacer. A hidden leaf is pruned by the
// next compile; showing it again re-attaches it under its parent group. An
// interfacer detached by RemoveGroup stays detached.
func (it *Interfacer) SetVisible(v bool) error {
	if err := it.check(); err != nil {
		return err
	}
	if it.visible == v {
		return nil
	}
	it.visible = v
	if v && it.attached && !it.list.tree.valid(it.leaf) {
		leaf, err := it.list.tree.addLeaf(it.parent, it.order, it)
		if err != nil {
			panic(fmt.Sprintf("sprig: re-attach under parked group failed: %v", err))
		}
		it.list.tree.unpark(it.parent.index, it)
		it.leaf = leaf
	}
	it.list.dirty = true
	return nil
}

// SetState replaces the interfacer's own state.
func (it *Interfacer) SetState(s State) error {
	if err := it.check(); err != nil {
		return err
	}
	if !it.state.Equal(s) {
		it.list.dirty = true
	}
	it.state = s
	return nil
}

// SetData writes raw bytes of the named attribute for this interfacer.
func (it *Interfacer) SetData(name string, data []byte) error {
	if err := it.check(); err != nil {
		return err
	}
	return it.domain.SetData(name, it.start, it.count, data)
}

// Data returns the bytes of the named attribute for this interfacer. The
// slice aliases the domain until it grows.
func (it *Interfacer) Data(name string) ([]byte, error) {
	if err := it.check(); err != nil {
		return nil, err
	}
	return it.domain.Data(name, it.start, it.count)
}

// SetFloat32s writes float32 components of the named attribute.
func (it *Interfacer) SetFloat32s(name string, vals []float32) error {
	if err := it.check(); err != nil {
		return err
	}
	return it.domain.SetFloat32s(name, it.start, it.count, vals)
}

// Float32s returns the float32 components of the named attribute.
func (it *Interfacer) Float32s(name string) ([]float32, error) {
	if err := it.check(); err != nil {
		return nil, err
	}
	return it.domain.Float32s(name, it.start, it.count)
}

// Resize changes the element count, moving the range if needed. Existing
// indices must stay within the new count.
func (it *Interfacer) Resize(count int) error {
	if err := it.check(); err != nil {
		return err
	}
	if err := checkIndices(it.indices, count); err != nil {
		return err
	}
	start, err := it.domain.Reallocate(it.start, it.count, count)
	if err != nil {
		return fmt.Errorf("sprig: resize interfacer: %w", err)
	}
	it.start, it.count = start, count
	it.list.dirty = true
	return nil
}

// Attach moves the interfacer to a new place in a draw list of its batch.
func (it *Interfacer) Attach(at Placement) error {
	if err := it.check(); err != nil {
		return err
	}
	list, err := it.batch.resolve(at)
	if err != nil {
		return err
	}
	leaf, err := list.tree.addLeaf(at.Parent, at.Order, it)
	if err != nil {
		return fmt.Errorf("sprig: attach interfacer: %w", err)
	}
	it.detachLeaf()
	it.place(list, at, leaf)
	return nil
}

// Migrate moves the interfacer's elements into domain d and places it in a
// draw list. d must carry exactly the same attributes. On error nothing
// changes.
func (it *Interfacer) Migrate(d *VertexDomain, at Placement) error {
	if err := it.check(); err != nil {
		return err
	}
	if !d.Compatible(it.domain.formats) {
		return fmt.Errorf("%w: %s into %s", ErrAttributeMismatch, it.domain.key, d.key)
	}
	batch := it.batch
	if at.List != nil {
		batch = at.List.batch
	}
	list, err := batch.resolve(at)
	if err != nil {
		return err
	}
	if _, err := list.tree.branch(at.Parent); err != nil {
		return fmt.Errorf("sprig: migrate interfacer: %w", err)
	}
	start, err := d.Allocate(it.count)
	if err != nil {
		return fmt.Errorf("sprig: migrate interfacer: %w", err)
	}
	for i, src := range it.domain.attrs {
		copy(d.attrs[i].bytes(start, it.count), src.bytes(it.start, it.count))
	}
	if err := it.domain.Deallocate(it.start, it.count); err != nil {
		panic(fmt.Sprintf("sprig: migrate lost source range: %v", err))
	}
	leaf, err := list.tree.addLeaf(at.Parent, at.Order, it)
	if err != nil {
		panic(fmt.Sprintf("sprig: migrate into checked group failed: %v", err))
	}
	it.detachLeaf()
	if it.batch != batch {
		it.batch.live--
		batch.live++
	}
	it.batch, it.domain, it.start = batch, d, start
	it.place(list, at, leaf)
	return nil
}

// MigrateBatch moves the interfacer into dst, using dst's domain for the
// same attributes.
func (it *Interfacer) MigrateBatch(dst *Batch, at Placement) error {
	if err := it.check(); err != nil {
		return err
	}
	d, err := dst.Domain(it.domain.formats)
	if err != nil {
		return err
	}
	if at.List == nil {
		at.List = dst.Default()
	}
	return it.Migrate(d, at)
}

func (it *Interfacer) detachLeaf() {
	if it.list == nil {
		return
	}
	t := &it.list.tree
	if !t.removeLeaf(it.leaf) && it.attached {
		t.release(it.parent.index, it)
	}
	it.list.dirty = true
}

func (it *Interfacer) place(list *DrawList, at Placement, leaf GroupID) {
	it.list = list
	it.parent = at.Parent
	it.order = at.Order
	it.leaf = leaf
	it.attached = true
	list.dirty = true
}

// Delete releases the interfacer's elements and removes it from its draw
// list. A second Delete returns ErrInterfacerDeleted.
func (it *Interfacer) Delete() error {
	if err := it.check(); err != nil {
		return err
	}
	if err := it.domain.Deallocate(it.start, it.count); err != nil {
		return fmt.Errorf("sprig: delete interfacer: %w", err)
	}
	it.detachLeaf()
	it.deleted = true
	it.visible = false
	it.indices = slices.Clip(it.indices[:0])
	it.batch.live--
	return nil
}
