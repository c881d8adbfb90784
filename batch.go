package sprig

import (
	"fmt"
	"image"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"
)

// DefaultListName is the name of the draw list every batch starts with.
const DefaultListName = "default"

// VertexSpec describes a new interfacer for Batch.Add.
type VertexSpec struct {
	// Formats are the vertex attributes. Interfacers with identical formats
	// share one vertex domain.
	Formats []AttributeFormat

	// Count is the number of elements to reserve.
	Count int

	Mode    DrawMode
	Indices []uint32
	State   State

	// Hidden creates the interfacer invisible.
	Hidden bool

	At Placement
}

// Batch owns vertex domains, draw lists and a texture atlas bin. It is the
// entry point for creating interfacers. A Batch is not safe for concurrent
// use; separate batches are independent.
type Batch struct {
	cfg     Config
	domains map[string]*VertexDomain
	lists   map[string]*DrawList
	def     *DrawList
	atlases *AtlasBin
	live    int
}

// NewBatch creates a batch. Zero config fields take the package defaults.
func NewBatch(cfg Config) (*Batch, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	bin, err := NewAtlasBin(cfg.Atlas)
	if err != nil {
		return nil, err
	}
	b := &Batch{
		cfg:     cfg,
		domains: make(map[string]*VertexDomain),
		lists:   make(map[string]*DrawList),
		atlases: bin,
	}
	b.def = b.List(DefaultListName)
	return b, nil
}

// Config returns the normalized configuration.
func (b *Batch) Config() Config {
	return b.cfg
}

// Default returns the batch's default draw list.
func (b *Batch) Default() *DrawList {
	return b.def
}

// List returns the named draw list, creating it on first use.
func (b *Batch) List(name string) *DrawList {
	if l, ok := b.lists[name]; ok {
		return l
	}
	l := newDrawList(b, name)
	b.lists[name] = l
	return l
}

// Lists returns the names of all draw lists in sorted order.
func (b *Batch) Lists() []string {
	return slices.Sorted(maps.Keys(b.lists))
}

// Domain returns the vertex domain for formats, creating it on first use.
func (b *Batch) Domain(formats []AttributeFormat) (*VertexDomain, error) {
	key := formatsKey(formats)
	if d, ok := b.domains[key]; ok {
		return d, nil
	}
	d, err := NewVertexDomain(formats, b.cfg.Domain)
	if err != nil {
		return nil, err
	}
	b.domains[key] = d
	if b.cfg.Debug {
		Logger().WithFields(logrus.Fields{
			"domain":  d.ID(),
			"formats": key,
		}).Debug("sprig: vertex domain created")
	}
	return d, nil
}

// Domains returns the number of vertex domains.
func (b *Batch) Domains() int {
	return len(b.domains)
}

// Atlases returns the batch's texture atlas bin.
func (b *Batch) Atlases() *AtlasBin {
	return b.atlases
}

// AddImage packs img into the batch's atlas bin.
func (b *Batch) AddImage(img image.Image) (TextureRegion, BinAllocID, error) {
	return b.atlases.Add(img)
}

// Len returns the number of live interfacers.
func (b *Batch) Len() int {
	return b.live
}

// resolve returns the draw list named by at, which must belong to b.
func (b *Batch) resolve(at Placement) (*DrawList, error) {
	if at.List == nil {
		return b.def, nil
	}
	if at.List.batch != b {
		return nil, ErrForeignList
	}
	return at.List, nil
}

// Add allocates an interfacer. Nothing is allocated when the placement or
// the indices are invalid.
func (b *Batch) Add(spec VertexSpec) (*Interfacer, error) {
	if spec.Count <= 0 {
		return nil, fmt.Errorf("sprig: add interfacer: %w: count %d", ErrInvalidRange, spec.Count)
	}
	if err := checkIndices(spec.Indices, spec.Count); err != nil {
		return nil, fmt.Errorf("sprig: add interfacer: %w", err)
	}
	list, err := b.resolve(spec.At)
	if err != nil {
		return nil, fmt.Errorf("sprig: add interfacer: %w", err)
	}
	if _, err := list.tree.branch(spec.At.Parent); err != nil {
		return nil, fmt.Errorf("sprig: add interfacer: %w", err)
	}
	d, err := b.Domain(spec.Formats)
	if err != nil {
		return nil, fmt.Errorf("sprig: add interfacer: %w", err)
	}
	start, err := d.Allocate(spec.Count)
	if err != nil {
		return nil, fmt.Errorf("sprig: add interfacer: %w", err)
	}

	it := &Interfacer{
		batch:   b,
		domain:  d,
		start:   start,
		count:   spec.Count,
		mode:    spec.Mode,
		indices: slices.Clone(spec.Indices),
		visible: !spec.Hidden,
		state:   spec.State,
	}
	leaf, err := list.tree.addLeaf(spec.At.Parent, spec.At.Order, it)
	if err != nil {
		panic(fmt.Sprintf("sprig: leaf under checked group failed: %v", err))
	}
	it.place(list, spec.At, leaf)
	b.live++
	return it, nil
}

// Draw draws the default list on d.
func (b *Batch) Draw(d Driver) error {
	return b.def.Draw(d)
}

// Dispose releases every atlas image. The batch must not be used afterwards.
func (b *Batch) Dispose() {
	for slot := range b.atlases.Slots() {
		if a := b.atlases.Atlas(slot); a != nil {
			a.Dispose()
		}
	}
}
