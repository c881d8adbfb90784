package sprig

import (
	"fmt"
	"image"
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// maxAtlasSize is the largest atlas dimension a TextureRegion can address.
const maxAtlasSize = 1<<16 - 1

// TextureRegion describes a sub-rectangle within an atlas page.
// Value type, safe to copy.
type TextureRegion struct {
	Page   uint16 // slot of the owning atlas within its bin
	X, Y   uint16 // top-left corner of the image within the atlas page
	Width  uint16 // width of the image in pixels
	Height uint16 // height of the image in pixels

	atlas *TextureAtlas
}

// Atlas returns the atlas holding the region, or nil for a zero region.
func (r TextureRegion) Atlas() *TextureAtlas {
	return r.atlas
}

// Rect returns the region bounds in atlas pixel coordinates.
func (r TextureRegion) Rect() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

// TexCoords returns the region corners in texels, the unit Ebitengine uses
// for vertex source coordinates.
func (r TextureRegion) TexCoords() (u0, v0, u1, v1 float32) {
	u0, v0 = float32(r.X), float32(r.Y)
	return u0, v0, u0 + float32(r.Width), v0 + float32(r.Height)
}

// TextureAtlas is one fixed-size image surface packed by a RectAllocator.
// Pixels live in a CPU-side RGBA surface and are uploaded to the GPU image
// the next time Image is called after a change.
type TextureAtlas struct {
	id     uint64
	alloc  *RectAllocator
	border int
	pixels *image.RGBA
	img    *ebiten.Image
	dirty  bool
}

// NewTextureAtlas creates an empty width x height atlas. Every image added is
// surrounded by border transparent pixels.
func NewTextureAtlas(width, height, border int, opts AllocatorOptions) (*TextureAtlas, error) {
	if width > maxAtlasSize || height > maxAtlasSize {
		return nil, fmt.Errorf("%w: atlas size %dx%d exceeds %d", ErrInvalidConfig, width, height, maxAtlasSize)
	}
	if border < 0 || 2*border >= width || 2*border >= height {
		return nil, fmt.Errorf("%w: atlas border %d", ErrInvalidConfig, border)
	}
	alloc, err := NewRectAllocator(width, height, opts)
	if err != nil {
		return nil, err
	}
	return &TextureAtlas{
		id:     nextTextureID(),
		alloc:  alloc,
		border: border,
		pixels: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Add packs img into the atlas and copies its pixels. It returns false,
// leaving the surface untouched, when no free region is large enough.
func (a *TextureAtlas) Add(img image.Image) (TextureRegion, AllocID, bool) {
	b := img.Bounds()
	al, ok := a.alloc.Allocate(b.Dx()+2*a.border, b.Dy()+2*a.border)
	if !ok {
		return TextureRegion{}, AllocID{}, false
	}
	inner := al.Rect.Inset(a.border)
	draw.Copy(a.pixels, inner.Min, img, b, draw.Src, nil)
	a.dirty = true
	return TextureRegion{
		X:      uint16(inner.Min.X),
		Y:      uint16(inner.Min.Y),
		Width:  uint16(inner.Dx()),
		Height: uint16(inner.Dy()),
		atlas:  a,
	}, al.ID, true
}

// Remove frees the region identified by id and clears its pixels.
func (a *TextureAtlas) Remove(id AllocID) error {
	r, ok := a.alloc.Rect(id)
	if !ok {
		return fmt.Errorf("sprig: atlas remove: %w", ErrInvalidAllocation)
	}
	if err := a.alloc.Deallocate(id); err != nil {
		return fmt.Errorf("sprig: atlas remove: %w", err)
	}
	draw.Draw(a.pixels, r, image.Transparent, image.Point{}, draw.Src)
	a.dirty = true
	return nil
}

// IsEmpty reports whether the atlas holds no images.
func (a *TextureAtlas) IsEmpty() bool {
	return a.alloc.IsEmpty()
}

// Len returns the number of images in the atlas.
func (a *TextureAtlas) Len() int {
	return a.alloc.Len()
}

// Size returns the atlas dimensions.
func (a *TextureAtlas) Size() image.Point {
	return a.alloc.Size()
}

// Pixels returns the CPU-side surface. Callers must not modify it.
func (a *TextureAtlas) Pixels() *image.RGBA {
	return a.pixels
}

// TextureID implements Texture.
func (a *TextureAtlas) TextureID() uint64 {
	return a.id
}

// Image implements Texture. It creates the GPU image on first use and
// uploads pending pixel changes.
func (a *TextureAtlas) Image() *ebiten.Image {
	if a.img == nil {
		sz := a.alloc.Size()
		a.img = ebiten.NewImage(sz.X, sz.Y)
		a.dirty = true
	}
	if a.dirty {
		a.img.WritePixels(a.pixels.Pix)
		a.dirty = false
	}
	return a.img
}

// Dispose releases the GPU image. The atlas must not be used afterwards.
func (a *TextureAtlas) Dispose() {
	if a.img != nil {
		a.img.Deallocate()
		a.img = nil
	}
	a.alloc.Clear()
}

// BinAllocID identifies an image added to an AtlasBin.
type BinAllocID struct {
	Slot  int
	ID    AllocID
	atlas uint64
}

// AtlasBin routes images to a growing set of same-sized atlases. Empty
// atlases are destroyed and their slots reused.
type AtlasBin struct {
	cfg       AtlasConfig
	atlases   []*TextureAtlas
	freeSlots []int // sorted ascending
	live      int
}

// NewAtlasBin creates an empty bin. No atlas is created until the first Add.
func NewAtlasBin(cfg AtlasConfig) (*AtlasBin, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &AtlasBin{cfg: cfg}, nil
}

// Config returns the normalized bin configuration.
func (b *AtlasBin) Config() AtlasConfig {
	return b.cfg
}

// CanHold reports whether an image of the given size fits in an empty atlas.
func (b *AtlasBin) CanHold(width, height int) bool {
	return width > 0 && height > 0 &&
		width+2*b.cfg.Border <= b.cfg.Width &&
		height+2*b.cfg.Border <= b.cfg.Height
}

// Add places img in the first atlas with room, creating a new atlas in the
// lowest free slot when none has room.
func (b *AtlasBin) Add(img image.Image) (TextureRegion, BinAllocID, error) {
	sz := img.Bounds().Size()
	if !b.CanHold(sz.X, sz.Y) {
		return TextureRegion{}, BinAllocID{}, fmt.Errorf("%w: %dx%d in %dx%d atlas",
			ErrImageTooLarge, sz.X, sz.Y, b.cfg.Width, b.cfg.Height)
	}
	for slot, a := range b.atlases {
		if a == nil {
			continue
		}
		if r, id, ok := a.Add(img); ok {
			r.Page = uint16(slot)
			return r, BinAllocID{Slot: slot, ID: id, atlas: a.id}, nil
		}
	}
	if b.cfg.MaxAtlases > 0 && b.live >= b.cfg.MaxAtlases {
		return TextureRegion{}, BinAllocID{}, fmt.Errorf("%w: %d atlases", ErrAtlasLimit, b.live)
	}
	a, err := NewTextureAtlas(b.cfg.Width, b.cfg.Height, b.cfg.Border, b.cfg.Allocator)
	if err != nil {
		return TextureRegion{}, BinAllocID{}, err
	}
	r, id, ok := a.Add(img)
	if !ok {
		panic(fmt.Sprintf("sprig: %dx%d image rejected by an empty atlas", sz.X, sz.Y))
	}
	slot := b.takeSlot(a)
	r.Page = uint16(slot)
	Logger().WithFields(logrus.Fields{"slot": slot, "live": b.live}).Debug("sprig: atlas created")
	return r, BinAllocID{Slot: slot, ID: id, atlas: a.id}, nil
}

func (b *AtlasBin) takeSlot(a *TextureAtlas) int {
	b.live++
	if len(b.freeSlots) > 0 {
		slot := b.freeSlots[0]
		b.freeSlots = b.freeSlots[1:]
		b.atlases[slot] = a
		return slot
	}
	b.atlases = append(b.atlases, a)
	return len(b.atlases) - 1
}

// Remove frees an image. An atlas left empty is destroyed and its slot
// becomes available to later adds.
func (b *AtlasBin) Remove(id BinAllocID) error {
	a := b.Atlas(id.Slot)
	if a == nil || a.id != id.atlas {
		return fmt.Errorf("sprig: atlas bin remove slot %d: %w", id.Slot, ErrInvalidAllocation)
	}
	if err := a.Remove(id.ID); err != nil {
		return err
	}
	if !a.IsEmpty() {
		return nil
	}
	a.Dispose()
	b.atlases[id.Slot] = nil
	i, _ := slices.BinarySearch(b.freeSlots, id.Slot)
	b.freeSlots = slices.Insert(b.freeSlots, i, id.Slot)
	b.live--
	Logger().WithFields(logrus.Fields{"slot": id.Slot, "live": b.live}).Debug("sprig: atlas destroyed")
	return nil
}

// Atlas returns the atlas in slot, or nil if the slot is empty or out of range.
func (b *AtlasBin) Atlas(slot int) *TextureAtlas {
	if slot < 0 || slot >= len(b.atlases) {
		return nil
	}
	return b.atlases[slot]
}

// Len returns the number of live atlases.
func (b *AtlasBin) Len() int {
	return b.live
}

// Slots returns the number of slots, including empty ones.
func (b *AtlasBin) Slots() int {
	return len(b.atlases)
}
