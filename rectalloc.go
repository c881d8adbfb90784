package sprig

import (
	"fmt"
	"image"
)

// nodeKind is the role of a rectangle allocator node.
type nodeKind uint8

const (
	nodeUnused    nodeKind = iota // recycled slot, not part of the tree
	nodeFree                      // free region, listed in exactly one bucket
	nodeAlloc                     // allocated region
	nodeContainer                 // split point; rect is the union of its children
)

// orientation describes how a node is laid out relative to its siblings.
type orientation uint8

const (
	vertical   orientation = iota // siblings stacked top to bottom
	horizontal                    // siblings side by side, left to right
)

func (o orientation) flipped() orientation {
	if o == vertical {
		return horizontal
	}
	return vertical
}

const (
	bucketSmall = iota
	bucketNormal
	bucketLarge
	numBuckets
)

const noNode int32 = -1

type rectNode struct {
	rect   image.Rectangle
	kind   nodeKind
	orient orientation
	parent int32
	next   int32
	prev   int32
	bucket int8  // free-list bucket, -1 when not listed
	pos    int32 // index within free[bucket]
	gen    uint32
}

// AllocID identifies one live allocation of a RectAllocator. It becomes
// invalid once deallocated; the zero value is never valid.
type AllocID struct {
	index int32
	gen   uint32
}

// Allocation is the result of a successful RectAllocator.Allocate.
type Allocation struct {
	ID   AllocID
	Rect image.Rectangle
}

// RectAllocator packs rectangles into a fixed-size surface using guillotine
// splits. Free space is tracked in three size buckets; freed space is merged
// with free neighbours and collapsed back into parent regions.
type RectAllocator struct {
	size   image.Point
	small  int
	large  int
	nodes  []rectNode
	unused []int32
	free   [numBuckets][]int32

	allocCount int
	allocArea  int
}

// NewRectAllocator creates an allocator for a width x height surface.
func NewRectAllocator(width, height int, opts AllocatorOptions) (*RectAllocator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: allocator size %dx%d", ErrInvalidConfig, width, height)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	a := &RectAllocator{
		size:  image.Pt(width, height),
		small: opts.SmallSizeThreshold,
		large: opts.LargeSizeThreshold,
		nodes: make([]rectNode, 0, 16),
	}
	a.reset()
	return a, nil
}

// reset recycles every node and restores a single free root. Generations are
// bumped rather than discarded so that IDs from before the reset stay invalid.
func (a *RectAllocator) reset() {
	for i := range a.free {
		a.free[i] = a.free[i][:0]
	}
	a.unused = a.unused[:0]
	for i := len(a.nodes) - 1; i >= 1; i-- {
		n := &a.nodes[i]
		n.kind = nodeUnused
		n.bucket = -1
		n.gen++
		a.unused = append(a.unused, int32(i))
	}
	root := rectNode{
		rect:   image.Rectangle{Max: a.size},
		kind:   nodeFree,
		orient: vertical,
		parent: noNode,
		next:   noNode,
		prev:   noNode,
		bucket: -1,
		gen:    1,
	}
	if len(a.nodes) == 0 {
		a.nodes = append(a.nodes, root)
	} else {
		root.gen = a.nodes[0].gen + 1
		a.nodes[0] = root
	}
	a.addFree(0)
	a.allocCount = 0
	a.allocArea = 0
}

// Clear drops every allocation. All previously returned AllocIDs become invalid.
func (a *RectAllocator) Clear() {
	a.reset()
}

// Size returns the surface dimensions.
func (a *RectAllocator) Size() image.Point {
	return a.size
}

// IsEmpty reports whether the allocator holds no allocations and all free
// space has been coalesced back into the root.
func (a *RectAllocator) IsEmpty() bool {
	root := &a.nodes[0]
	return root.kind == nodeFree && root.next == noNode
}

// Len returns the number of live allocations.
func (a *RectAllocator) Len() int {
	return a.allocCount
}

// AllocatedArea returns the total area of live allocations.
func (a *RectAllocator) AllocatedArea() int {
	return a.allocArea
}

// Rect returns the rectangle of a live allocation.
func (a *RectAllocator) Rect(id AllocID) (image.Rectangle, bool) {
	if !a.valid(id) {
		return image.Rectangle{}, false
	}
	return a.nodes[id.index].rect, true
}

func (a *RectAllocator) valid(id AllocID) bool {
	if id.index < 0 || int(id.index) >= len(a.nodes) {
		return false
	}
	n := &a.nodes[id.index]
	return n.kind == nodeAlloc && n.gen == id.gen
}

func (a *RectAllocator) bucketFor(w, h int) int8 {
	switch {
	case w >= a.large || h >= a.large:
		return bucketLarge
	case w >= a.small || h >= a.small:
		return bucketNormal
	default:
		return bucketSmall
	}
}

func (a *RectAllocator) newNode() int32 {
	if n := len(a.unused); n > 0 {
		id := a.unused[n-1]
		a.unused = a.unused[:n-1]
		return id
	}
	a.nodes = append(a.nodes, rectNode{bucket: -1})
	return int32(len(a.nodes) - 1)
}

// initNode overwrites a fresh node while keeping its generation counter.
func (a *RectAllocator) initNode(id int32, n rectNode) {
	n.gen = a.nodes[id].gen
	n.bucket = -1
	a.nodes[id] = n
}

func (a *RectAllocator) markUnused(id int32) {
	n := &a.nodes[id]
	n.kind = nodeUnused
	n.parent, n.next, n.prev = noNode, noNode, noNode
	n.gen++
	a.unused = append(a.unused, id)
}

func (a *RectAllocator) markAlloc(id int32, r image.Rectangle) {
	n := &a.nodes[id]
	n.kind = nodeAlloc
	n.rect = r
	n.gen++
}

func (a *RectAllocator) addFree(id int32) {
	n := &a.nodes[id]
	b := a.bucketFor(n.rect.Dx(), n.rect.Dy())
	n.bucket = b
	n.pos = int32(len(a.free[b]))
	a.free[b] = append(a.free[b], id)
}

func (a *RectAllocator) removeFree(id int32) {
	n := &a.nodes[id]
	if n.bucket < 0 {
		return
	}
	list := a.free[n.bucket]
	last := list[len(list)-1]
	list[n.pos] = last
	a.nodes[last].pos = n.pos
	a.free[n.bucket] = list[:len(list)-1]
	n.bucket = -1
}

// Allocate reserves a width x height rectangle. It returns false when no free
// region is large enough; that is a normal outcome, not an error.
func (a *RectAllocator) Allocate(width, height int) (Allocation, bool) {
	if width <= 0 || height <= 0 || width > a.size.X || height > a.size.Y {
		return Allocation{}, false
	}
	id := a.findSuitable(width, height)
	if id == noNode {
		return Allocation{}, false
	}
	a.removeFree(id)

	chosen := a.nodes[id]
	cur := chosen.orient
	req := image.Pt(width, height)
	allocRect := image.Rectangle{Min: chosen.rect.Min, Max: chosen.rect.Min.Add(req)}
	split, leftover, orient := guillotine(chosen.rect, req, cur)

	// A full-extent allocation against the node's orientation has no split
	// remainder; its leftover is then a plain sibling along cur.
	if split.Empty() && !leftover.Empty() && orient != cur {
		split, leftover, orient = leftover, image.Rectangle{}, cur
	}

	allocID, splitID, leftID := noNode, noNode, noNode
	if orient == cur {
		if !split.Empty() {
			splitID = a.newNode()
			a.initNode(splitID, rectNode{
				rect:   split,
				kind:   nodeFree,
				orient: cur,
				parent: chosen.parent,
				next:   chosen.next,
				prev:   id,
			})
			a.nodes[id].next = splitID
			if chosen.next != noNode {
				a.nodes[chosen.next].prev = splitID
			}
		}
		if !leftover.Empty() {
			allocID = a.newNode()
			leftID = a.newNode()
			a.nodes[id].kind = nodeContainer
			a.nodes[id].rect = allocRect.Union(leftover)
			a.initNode(allocID, rectNode{
				orient: cur.flipped(),
				parent: id,
				next:   leftID,
				prev:   noNode,
			})
			a.initNode(leftID, rectNode{
				rect:   leftover,
				kind:   nodeFree,
				orient: cur.flipped(),
				parent: id,
				next:   noNode,
				prev:   allocID,
			})
		} else {
			allocID = id
		}
	} else {
		// Both remainders are non-empty here: the chosen node becomes a
		// container of [allocated+leftover container, split] laid out
		// against cur.
		contID := a.newNode()
		splitID = a.newNode()
		allocID = a.newNode()
		leftID = a.newNode()
		a.nodes[id].kind = nodeContainer
		a.initNode(contID, rectNode{
			rect:   allocRect.Union(leftover),
			kind:   nodeContainer,
			orient: cur.flipped(),
			parent: id,
			next:   splitID,
			prev:   noNode,
		})
		a.initNode(splitID, rectNode{
			rect:   split,
			kind:   nodeFree,
			orient: cur.flipped(),
			parent: id,
			next:   noNode,
			prev:   contID,
		})
		a.initNode(allocID, rectNode{
			orient: cur,
			parent: contID,
			next:   leftID,
			prev:   noNode,
		})
		a.initNode(leftID, rectNode{
			rect:   leftover,
			kind:   nodeFree,
			orient: cur,
			parent: contID,
			next:   noNode,
			prev:   allocID,
		})
	}

	a.markAlloc(allocID, allocRect)
	if splitID != noNode {
		a.addFree(splitID)
	}
	if leftID != noNode {
		a.addFree(leftID)
	}

	a.allocCount++
	a.allocArea += width * height
	return Allocation{
		ID:   AllocID{index: allocID, gen: a.nodes[allocID].gen},
		Rect: allocRect,
	}, true
}

// findSuitable returns the free node to carve the request from, searching the
// request's own bucket first and then larger ones. Small and normal buckets
// use best fit, the large bucket worst fit. Perfect fits always win and equal
// scores prefer the lowest surface offset.
func (a *RectAllocator) findSuitable(w, h int) int32 {
	for b := a.bucketFor(w, h); b < numBuckets; b++ {
		worst := b == bucketLarge
		best := noNode
		var bestScore int
		var bestPerfect bool
		for _, id := range a.free[b] {
			r := a.nodes[id].rect
			dx, dy := r.Dx()-w, r.Dy()-h
			if dx < 0 || dy < 0 {
				continue
			}
			perfect := dx == 0 || dy == 0
			score := min(dx, dy)
			if best == noNode {
				best, bestScore, bestPerfect = id, score, perfect
				continue
			}
			var better bool
			switch {
			case perfect != bestPerfect:
				better = perfect
			case !perfect && score != bestScore:
				better = (worst && score > bestScore) || (!worst && score < bestScore)
			default:
				better = lowerOffset(r.Min, a.nodes[best].rect.Min)
			}
			if better {
				best, bestScore, bestPerfect = id, score, perfect
			}
		}
		if best != noNode {
			return best
		}
	}
	return noNode
}

func lowerOffset(p, q image.Point) bool {
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

// guillotine splits chosen around an allocation of size req placed at its
// top-left corner. It returns the split remainder, the leftover remainder and
// the orientation of the cut between the allocation row/column and split.
//
//	+-------+-------+      +-------+-------+
//	| alloc | left  |      | alloc |       |
//	+-------+-------+  or  +-------+ split |
//	|     split     |      | left  |       |
//	+---------------+      +-------+-------+
//	    vertical              horizontal
func guillotine(chosen image.Rectangle, req image.Point, def orientation) (split, leftover image.Rectangle, o orientation) {
	if chosen.Size() == req {
		return image.Rectangle{}, image.Rectangle{}, def
	}
	right := image.Rectangle{
		Min: image.Pt(chosen.Min.X+req.X, chosen.Min.Y),
		Max: image.Pt(chosen.Max.X, chosen.Min.Y+req.Y),
	}
	bottom := image.Rectangle{
		Min: image.Pt(chosen.Min.X, chosen.Min.Y+req.Y),
		Max: image.Pt(chosen.Min.X+req.X, chosen.Max.Y),
	}
	if area(right) >= area(bottom) {
		split = image.Rectangle{Min: bottom.Min, Max: chosen.Max}
		return split, right, vertical
	}
	split = image.Rectangle{Min: right.Min, Max: chosen.Max}
	return split, bottom, horizontal
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// Deallocate releases an allocation and coalesces the freed space with its
// free neighbours. Unknown or already freed IDs return ErrInvalidAllocation
// and leave the allocator untouched.
func (a *RectAllocator) Deallocate(id AllocID) error {
	if !a.valid(id) {
		return fmt.Errorf("%w: %v", ErrInvalidAllocation, id)
	}
	idx := id.index
	r := a.nodes[idx].rect
	a.allocCount--
	a.allocArea -= r.Dx() * r.Dy()
	a.nodes[idx].kind = nodeFree
	a.nodes[idx].gen++

	for {
		n := a.nodes[idx]
		if n.next != noNode && a.nodes[n.next].kind == nodeFree {
			a.mergeSiblings(idx, n.next, n.orient)
		}
		if prev := a.nodes[idx].prev; prev != noNode && a.nodes[prev].kind == nodeFree {
			a.removeFree(prev)
			a.mergeSiblings(prev, idx, n.orient)
			idx = prev
		}

		n = a.nodes[idx]
		if n.prev == noNode && n.next == noNode && n.parent != noNode {
			parent := n.parent
			a.nodes[parent].rect = n.rect
			a.nodes[parent].kind = nodeFree
			a.markUnused(idx)
			idx = parent
			continue
		}
		a.addFree(idx)
		return nil
	}
}

// mergeSiblings grows node over its free next sibling and recycles next.
func (a *RectAllocator) mergeSiblings(node, next int32, o orientation) {
	a.removeFree(next)
	r1, r2 := a.nodes[node].rect, a.nodes[next].rect
	switch o {
	case horizontal:
		if r1.Min.Y != r2.Min.Y || r1.Max.Y != r2.Max.Y || r1.Max.X != r2.Min.X {
			panic(fmt.Sprintf("sprig: misaligned horizontal siblings %v %v", r1, r2))
		}
		a.nodes[node].rect.Max.X = r2.Max.X
	case vertical:
		if r1.Min.X != r2.Min.X || r1.Max.X != r2.Max.X || r1.Max.Y != r2.Min.Y {
			panic(fmt.Sprintf("sprig: misaligned vertical siblings %v %v", r1, r2))
		}
		a.nodes[node].rect.Max.Y = r2.Max.Y
	}
	nn := a.nodes[next].next
	a.nodes[node].next = nn
	if nn != noNode {
		a.nodes[nn].prev = node
	}
	a.markUnused(next)
}
