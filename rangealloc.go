package sprig

import (
	"fmt"
	"sort"
)

// rangeBlock is a run of used elements. Adjacent used runs are kept merged.
type rangeBlock struct {
	start, size int
}

func (b rangeBlock) end() int { return b.start + b.size }

// errAllocatorFull reports that no free gap of the needed size exists below
// the current capacity.
type errAllocatorFull struct {
	needed int
}

func (e errAllocatorFull) Error() string {
	return fmt.Sprintf("sprig: range allocator full, %d elements needed", e.needed)
}

// rangeAllocator tracks used element ranges of a vertex domain. It is first
// fit over the gaps between used blocks and never moves live ranges.
type rangeAllocator struct {
	capacity int
	blocks   []rangeBlock // sorted by start
}

func newRangeAllocator(capacity int) *rangeAllocator {
	return &rangeAllocator{capacity: capacity}
}

// setCapacity grows the managed index space. Shrinking is ignored.
func (a *rangeAllocator) setCapacity(capacity int) {
	if capacity > a.capacity {
		a.capacity = capacity
	}
}

// usedExtent returns one past the highest used element.
func (a *rangeAllocator) usedExtent() int {
	if len(a.blocks) == 0 {
		return 0
	}
	return a.blocks[len(a.blocks)-1].end()
}

// usedSize returns the number of used elements.
func (a *rangeAllocator) usedSize() int {
	n := 0
	for _, b := range a.blocks {
		n += b.size
	}
	return n
}

func (a *rangeAllocator) alloc(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: alloc size %d", ErrInvalidRange, size)
	}
	free := 0
	for i, b := range a.blocks {
		if b.start-free >= size {
			a.insert(i, rangeBlock{free, size})
			return free, nil
		}
		free = b.end()
	}
	if a.capacity-free >= size {
		a.insert(len(a.blocks), rangeBlock{free, size})
		return free, nil
	}
	return 0, errAllocatorFull{needed: size}
}

// insert places nb at index i and merges it with touching neighbours.
func (a *rangeAllocator) insert(i int, nb rangeBlock) {
	if i > 0 && a.blocks[i-1].end() == nb.start {
		a.blocks[i-1].size += nb.size
		if i < len(a.blocks) && a.blocks[i-1].end() == a.blocks[i].start {
			a.blocks[i-1].size += a.blocks[i].size
			a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
		}
		return
	}
	if i < len(a.blocks) && nb.end() == a.blocks[i].start {
		a.blocks[i].start = nb.start
		a.blocks[i].size += nb.size
		return
	}
	a.blocks = append(a.blocks, rangeBlock{})
	copy(a.blocks[i+1:], a.blocks[i:])
	a.blocks[i] = nb
}

// find returns the index of the block wholly containing [start, start+size).
func (a *rangeAllocator) find(start, size int) (int, bool) {
	i := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].end() > start })
	if i == len(a.blocks) {
		return 0, false
	}
	b := a.blocks[i]
	return i, size > 0 && b.start <= start && start+size <= b.end()
}

func (a *rangeAllocator) dealloc(start, size int) error {
	i, ok := a.find(start, size)
	if !ok {
		return fmt.Errorf("%w: dealloc [%d, %d)", ErrInvalidRange, start, start+size)
	}
	b := a.blocks[i]
	head := rangeBlock{b.start, start - b.start}
	tail := rangeBlock{start + size, b.end() - start - size}
	switch {
	case head.size == 0 && tail.size == 0:
		a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
	case head.size == 0:
		a.blocks[i] = tail
	case tail.size == 0:
		a.blocks[i] = head
	default:
		a.blocks[i] = head
		a.blocks = append(a.blocks, rangeBlock{})
		copy(a.blocks[i+2:], a.blocks[i+1:])
		a.blocks[i+1] = tail
	}
	return nil
}

// realloc resizes the range at start. It grows in place when the following
// gap allows, otherwise it allocates a new range before releasing the old
// one, so a failure leaves the allocator unchanged. The caller copies data
// when the returned start differs.
func (a *rangeAllocator) realloc(start, size, newSize int) (int, error) {
	if newSize <= 0 {
		return 0, fmt.Errorf("%w: realloc size %d", ErrInvalidRange, newSize)
	}
	i, ok := a.find(start, size)
	if !ok {
		return 0, fmt.Errorf("%w: realloc [%d, %d)", ErrInvalidRange, start, start+size)
	}
	switch {
	case newSize == size:
		return start, nil
	case newSize < size:
		return start, a.dealloc(start+newSize, size-newSize)
	}
	grow := newSize - size
	if a.blocks[i].end() == start+size {
		limit := a.capacity
		if i+1 < len(a.blocks) {
			limit = a.blocks[i+1].start
		}
		if limit-(start+size) >= grow {
			a.blocks[i].size += grow
			if i+1 < len(a.blocks) && a.blocks[i].end() == a.blocks[i+1].start {
				a.blocks[i].size += a.blocks[i+1].size
				a.blocks = append(a.blocks[:i+1], a.blocks[i+2:]...)
			}
			return start, nil
		}
	}
	ns, err := a.alloc(newSize)
	if err != nil {
		return 0, err
	}
	if err := a.dealloc(start, size); err != nil {
		panic(fmt.Sprintf("sprig: realloc lost range [%d, %d): %v", start, start+size, err))
	}
	return ns, nil
}
