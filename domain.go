package sprig

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// VertexDomain is a bundle of attribute buffers sharing one element index
// space. Every interfacer owns a contiguous element range that is valid in
// all attributes at once.
type VertexDomain struct {
	id      uint32
	key     string
	formats []AttributeFormat
	attrs   []*AttributeBuffer
	byName  map[string]int
	alloc   *rangeAllocator
	cfg     DomainConfig

	growths int
}

var nextDomainID atomic.Uint32

// NewVertexDomain creates a domain for the given attributes.
func NewVertexDomain(formats []AttributeFormat, cfg DomainConfig) (*VertexDomain, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: vertex domain without attributes", ErrInvalidConfig)
	}
	d := &VertexDomain{
		key:     formatsKey(formats),
		formats: append([]AttributeFormat(nil), formats...),
		byName:  make(map[string]int, len(formats)),
		alloc:   newRangeAllocator(cfg.InitialCapacity),
		cfg:     cfg,
	}
	for i, f := range formats {
		if f.Count < 1 || f.Count > 4 || f.Name == "" {
			return nil, fmt.Errorf("%w: attribute %s", ErrInvalidConfig, f)
		}
		if _, dup := d.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: attribute %q listed twice", ErrInvalidConfig, f.Name)
		}
		d.byName[f.Name] = i
		d.attrs = append(d.attrs, newAttributeBuffer(f, cfg.InitialCapacity))
	}
	d.id = nextDomainID.Add(1)
	return d, nil
}

// ID returns a process-unique identifier for the domain.
func (d *VertexDomain) ID() uint32 {
	return d.id
}

// Formats returns the attribute formats in declaration order.
func (d *VertexDomain) Formats() []AttributeFormat {
	return d.formats
}

// Capacity returns the element capacity of every attribute buffer.
func (d *VertexDomain) Capacity() int {
	return d.alloc.capacity
}

// Used returns the number of allocated elements.
func (d *VertexDomain) Used() int {
	return d.alloc.usedSize()
}

// Attribute returns the buffer for the named attribute.
func (d *VertexDomain) Attribute(name string) (*AttributeBuffer, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.attrs[i], true
}

// Compatible reports whether d has exactly the given attribute formats.
func (d *VertexDomain) Compatible(formats []AttributeFormat) bool {
	return d.key == formatsKey(formats)
}

// Allocate reserves size contiguous elements, growing every attribute buffer
// when no gap is large enough. Growth fails only past MaxCapacity.
func (d *VertexDomain) Allocate(size int) (int, error) {
	start, err := d.alloc.alloc(size)
	var full errAllocatorFull
	if !errors.As(err, &full) {
		return start, err
	}
	if err := d.grow(size); err != nil {
		return 0, err
	}
	start, err = d.alloc.alloc(size)
	if err != nil {
		panic(fmt.Sprintf("sprig: allocation of %d failed after growth to %d: %v", size, d.Capacity(), err))
	}
	return start, nil
}

// Reallocate resizes an existing range, possibly moving it. Data in the
// surviving prefix is preserved across a move.
func (d *VertexDomain) Reallocate(start, size, newSize int) (int, error) {
	ns, err := d.alloc.realloc(start, size, newSize)
	var full errAllocatorFull
	if errors.As(err, &full) {
		if err := d.grow(newSize); err != nil {
			return 0, err
		}
		ns, err = d.alloc.realloc(start, size, newSize)
	}
	if err != nil {
		return 0, err
	}
	if ns != start {
		n := min(size, newSize)
		for _, b := range d.attrs {
			copy(b.bytes(ns, n), b.bytes(start, n))
		}
	}
	return ns, nil
}

// Deallocate releases a range. Buffers never shrink.
func (d *VertexDomain) Deallocate(start, size int) error {
	return d.alloc.dealloc(start, size)
}

// grow raises the capacity so that size more elements fit past the current
// used extent. Live ranges keep their offsets.
func (d *VertexDomain) grow(size int) error {
	old := d.alloc.capacity
	newCap := max(nextPow2(old+1), nextPow2(size), nextPow2(d.alloc.usedExtent()+size))
	if d.cfg.MaxCapacity > 0 && newCap > d.cfg.MaxCapacity {
		if d.cfg.MaxCapacity-d.alloc.usedExtent() < size {
			return fmt.Errorf("%w: need %d elements, capacity %d of max %d",
				ErrDomainFull, size, old, d.cfg.MaxCapacity)
		}
		newCap = d.cfg.MaxCapacity
	}
	for _, b := range d.attrs {
		b.resize(newCap)
	}
	d.alloc.setCapacity(newCap)
	d.growths++
	Logger().WithFields(logrus.Fields{
		"domain": d.key,
		"from":   old,
		"to":     newCap,
	}).Debug("sprig: vertex domain grown")
	return nil
}

// SetData writes raw bytes for the named attribute into [start, start+count).
func (d *VertexDomain) SetData(name string, start, count int, data []byte) error {
	b, err := d.rangeAttr(name, start, count)
	if err != nil {
		return err
	}
	return b.setBytes(start, count, data)
}

// Data returns the bytes of the named attribute in [start, start+count). The
// slice aliases the buffer until the next growth.
func (d *VertexDomain) Data(name string, start, count int) ([]byte, error) {
	b, err := d.rangeAttr(name, start, count)
	if err != nil {
		return nil, err
	}
	return b.bytes(start, count), nil
}

// SetFloat32s writes float32 components for the named attribute.
func (d *VertexDomain) SetFloat32s(name string, start, count int, vals []float32) error {
	b, err := d.rangeAttr(name, start, count)
	if err != nil {
		return err
	}
	return b.setFloat32s(start, count, vals)
}

// Float32s returns the float32 components of the named attribute. The slice
// aliases the buffer until the next growth.
func (d *VertexDomain) Float32s(name string, start, count int) ([]float32, error) {
	b, err := d.rangeAttr(name, start, count)
	if err != nil {
		return nil, err
	}
	if b.format.Type != Float32 {
		return nil, fmt.Errorf("%w: %q is %s, not float32", ErrAttributeMismatch, name, b.format)
	}
	return b.float32s(start, count), nil
}

func (d *VertexDomain) rangeAttr(name string, start, count int) (*AttributeBuffer, error) {
	b, ok := d.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	if start < 0 || count < 0 || start+count > d.alloc.capacity {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrInvalidRange, start, start+count, d.alloc.capacity)
	}
	return b, nil
}
