package sprig

import (
	"fmt"
	"math"
)

// GID flag bits, following the Tiled TMX convention.
const (
	TileFlipH    uint32 = 1 << 31 // horizontal flip
	TileFlipV    uint32 = 1 << 30 // vertical flip
	TileFlipD    uint32 = 1 << 29 // diagonal flip (90° rotation)
	tileFlagMask uint32 = TileFlipH | TileFlipV | TileFlipD
)

// AnimFrame is one frame of a tile animation.
type AnimFrame struct {
	GID      uint32 // tile GID for this frame, without flag bits
	Duration int    // milliseconds
}

// uvOrder maps each combination of flip flags, indexed by
// (flipH << 2) | (flipV << 1) | flipD, to the source corner shown at each
// destination vertex. Corners are TL=0, TR=1, BL=2, BR=3.
var uvOrder = [8][4]int{
	{0, 1, 2, 3}, // no flags
	{2, 0, 3, 1}, // D only (90° CW + H flip)
	{2, 3, 0, 1}, // V flip
	{3, 2, 1, 0}, // V+D (90° CCW)
	{1, 0, 3, 2}, // H flip
	{0, 2, 1, 3}, // H+D (90° CW)
	{3, 2, 1, 0}, // H+V
	{1, 3, 0, 2}, // H+V+D (90° CW + V flip)
}

// TileMap keeps a window of tile layers around a camera's visible area.
// Each layer is one interfacer whose quads are rewritten only when the
// camera crosses a tile boundary, so panning never recompiles the draw
// list. Without a camera the whole map is buffered.
type TileMap struct {
	TileWidth  int
	TileHeight int

	// MaxZoomOut is the smallest zoom the camera is expected to reach. It
	// sizes the buffers. Zero means 1.
	MaxZoomOut float64

	// MarginTiles is the number of extra tiles buffered beyond each edge of
	// the visible area.
	MarginTiles int

	batch       *Batch
	camera      *Camera
	layers      []*TileLayer
	animElapsed int
}

// TileLayer is one grid of tile GIDs drawn from a single atlas.
type TileLayer struct {
	Tint  Color
	Alpha float64

	m       *TileMap
	data    []uint32
	width   int
	height  int
	regions []TextureRegion
	anims   map[uint32][]AnimFrame
	iface   *Interfacer

	// buffer slots
	capacity  int
	tileCount int
	slotCol   []int32
	slotRow   []int32
	pos       []float32
	uv        []float32
	col       []float32

	bufStartCol int
	bufStartRow int
	bufCols     int
	bufRows     int
	bufDirty    bool
	lastTint    Color
	lastAlpha   float64
}

// NewTileMap creates a tile map with the given tile size in pixels. cam may
// be nil.
func NewTileMap(b *Batch, tileWidth, tileHeight int, cam *Camera) (*TileMap, error) {
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, fmt.Errorf("sprig: new tile map: %w: tile size %dx%d", ErrInvalidConfig, tileWidth, tileHeight)
	}
	return &TileMap{
		TileWidth:   tileWidth,
		TileHeight:  tileHeight,
		MaxZoomOut:  1,
		MarginTiles: 2,
		batch:       b,
		camera:      cam,
	}, nil
}

// SetCamera binds the map to a camera. nil buffers the whole map.
func (m *TileMap) SetCamera(cam *Camera) {
	m.camera = cam
	for _, l := range m.layers {
		l.InvalidateBuffer()
	}
}

// Layers returns the layers in creation order.
func (m *TileMap) Layers() []*TileLayer {
	return m.layers
}

// AddLayer creates a layer of w x h tiles. data is row-major with 0 for an
// empty cell. regions is indexed by GID and must come from one atlas.
func (m *TileMap) AddLayer(w, h int, data []uint32, regions []TextureRegion, at Placement) (*TileLayer, error) {
	if len(data) != w*h {
		return nil, fmt.Errorf("sprig: add tile layer: %w: %d cells for %dx%d", ErrInvalidConfig, len(data), w, h)
	}
	var atlas *TextureAtlas
	for _, r := range regions {
		a := r.Atlas()
		if a == nil {
			continue
		}
		if atlas != nil && a != atlas {
			return nil, fmt.Errorf("sprig: add tile layer: %w: regions span atlases", ErrInvalidConfig)
		}
		atlas = a
	}
	var tex Texture = WhiteTexture()
	if atlas != nil {
		tex = atlas
	}
	it, err := m.batch.Add(VertexSpec{
		Formats: spriteFormats,
		Count:   4,
		Mode:    ModeTriangles,
		Indices: quadIndices,
		State:   NewState(TexturePart(0, tex)),
		At:      at,
	})
	if err != nil {
		return nil, fmt.Errorf("sprig: add tile layer: %w", err)
	}
	l := &TileLayer{
		Tint:        ColorWhite,
		Alpha:       1,
		m:           m,
		data:        data,
		width:       w,
		height:      h,
		regions:     regions,
		iface:       it,
		bufDirty:    true,
		bufStartCol: -1,
		bufStartRow: -1,
	}
	m.layers = append(m.layers, l)
	return l, nil
}

// Update moves each layer's window to follow the camera and advances tile
// animations by dt seconds.
func (m *TileMap) Update(dt float64) error {
	for _, l := range m.layers {
		if !l.iface.Visible() {
			continue
		}
		startCol, startRow, cols, rows := m.window(l)
		if err := l.ensureBuffer(cols * rows); err != nil {
			return err
		}
		if l.bufDirty || startCol != l.bufStartCol || startRow != l.bufStartRow || cols != l.bufCols || rows != l.bufRows {
			if err := l.rebuild(startCol, startRow, cols, rows); err != nil {
				return err
			}
		} else if l.Tint != l.lastTint || l.Alpha != l.lastAlpha {
			if err := l.writeColors(); err != nil {
				return err
			}
		}
	}
	if ms := int(dt * 1000); ms > 0 {
		m.animElapsed += ms
		return m.updateAnimations()
	}
	return nil
}

// window returns the tile range to buffer for l.
func (m *TileMap) window(l *TileLayer) (startCol, startRow, cols, rows int) {
	cam := m.camera
	if cam == nil {
		return 0, 0, l.width, l.height
	}
	tw, th := float64(m.TileWidth), float64(m.TileHeight)
	zoom := m.MaxZoomOut
	if zoom <= 0 {
		zoom = 1
	}
	bounds := cam.VisibleBounds()
	// +2 covers partial tiles at both edges when the camera is not aligned
	cols = min(int(math.Ceil(cam.Viewport.Width/tw/zoom))+2+2*m.MarginTiles, l.width)
	rows = min(int(math.Ceil(cam.Viewport.Height/th/zoom))+2+2*m.MarginTiles, l.height)
	startCol = clampInt(int(math.Floor(bounds.X/tw))-m.MarginTiles, 0, l.width-cols)
	startRow = clampInt(int(math.Floor(bounds.Y/th))-m.MarginTiles, 0, l.height-rows)
	return startCol, startRow, cols, rows
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Interfacer returns the layer's vertex claim.
func (l *TileLayer) Interfacer() *Interfacer {
	return l.iface
}

// TileCount returns the number of non-empty tiles in the buffer.
func (l *TileLayer) TileCount() int {
	return l.tileCount
}

// Tile returns the GID at col, row, or 0 outside the map.
func (l *TileLayer) Tile(col, row int) uint32 {
	if col < 0 || col >= l.width || row < 0 || row >= l.height {
		return 0
	}
	return l.data[row*l.width+col]
}

// SetTile changes one cell. Cells inside the buffered window are redrawn on
// the next Update.
func (l *TileLayer) SetTile(col, row int, gid uint32) {
	if col < 0 || col >= l.width || row < 0 || row >= l.height {
		return
	}
	l.data[row*l.width+col] = gid
	if col >= l.bufStartCol && col < l.bufStartCol+l.bufCols &&
		row >= l.bufStartRow && row < l.bufStartRow+l.bufRows {
		l.bufDirty = true
	}
}

// SetData replaces the grid.
func (l *TileLayer) SetData(data []uint32, w, h int) error {
	if len(data) != w*h {
		return fmt.Errorf("sprig: tile layer data: %w: %d cells for %dx%d", ErrInvalidConfig, len(data), w, h)
	}
	l.data, l.width, l.height = data, w, h
	l.InvalidateBuffer()
	return nil
}

// InvalidateBuffer forces a rebuild on the next Update.
func (l *TileLayer) InvalidateBuffer() {
	l.bufDirty = true
	l.bufStartCol, l.bufStartRow = -1, -1
}

// SetAnimations sets the animations keyed by base GID.
func (l *TileLayer) SetAnimations(anims map[uint32][]AnimFrame) {
	l.anims = anims
}

// SetVisible shows or hides the layer.
func (l *TileLayer) SetVisible(v bool) error {
	if v {
		l.bufDirty = true
	}
	return l.iface.SetVisible(v)
}

// Delete releases the layer and removes it from its map.
func (l *TileLayer) Delete() error {
	for i, o := range l.m.layers {
		if o == l {
			l.m.layers = append(l.m.layers[:i], l.m.layers[i+1:]...)
			break
		}
	}
	return l.iface.Delete()
}

// ensureBuffer grows the interfacer to hold n tiles.
func (l *TileLayer) ensureBuffer(n int) error {
	if n <= l.capacity {
		return nil
	}
	indices := make([]uint32, 0, 6*n)
	for i := range n {
		base := uint32(4 * i)
		for _, q := range quadIndices {
			indices = append(indices, base+q)
		}
	}
	if err := l.iface.Resize(4 * n); err != nil {
		return err
	}
	if err := l.iface.SetIndices(indices); err != nil {
		return err
	}
	l.capacity = n
	l.slotCol = make([]int32, n)
	l.slotRow = make([]int32, n)
	l.pos = make([]float32, 8*n)
	l.uv = make([]float32, 8*n)
	l.col = make([]float32, 16*n)
	return nil
}

// rebuild fills the slots with the non-empty tiles of the window. Unused
// slots are written as degenerate quads.
func (l *TileLayer) rebuild(startCol, startRow, cols, rows int) error {
	l.bufStartCol, l.bufStartRow = startCol, startRow
	l.bufCols, l.bufRows = cols, rows
	l.bufDirty = false

	tw, th := float32(l.m.TileWidth), float32(l.m.TileHeight)
	clear(l.pos)
	n := 0
	for row := startRow; row < startRow+rows && row < l.height; row++ {
		for col := startCol; col < startCol+cols && col < l.width; col++ {
			gid := l.data[row*l.width+col]
			id := gid &^ tileFlagMask
			if id == 0 || int(id) >= len(l.regions) {
				continue
			}
			x, y := float32(col)*tw, float32(row)*th
			copy(l.pos[8*n:], []float32{x, y, x + tw, y, x, y + th, x + tw, y + th})
			setTileUVs(l.uv[8*n:], l.regions[id], gid&tileFlagMask)
			l.slotCol[n], l.slotRow[n] = int32(col), int32(row)
			n++
		}
	}
	l.tileCount = n
	if err := l.iface.SetFloat32s(AttrPosition, l.pos); err != nil {
		return err
	}
	if err := l.iface.SetFloat32s(AttrTexCoord, l.uv); err != nil {
		return err
	}
	return l.writeColors()
}

func (l *TileLayer) writeColors() error {
	c := l.Tint
	c.A *= l.Alpha
	p := c.premultiplied()
	for i := 0; i < 4*l.capacity; i++ {
		copy(l.col[4*i:], p[:])
	}
	l.lastTint, l.lastAlpha = l.Tint, l.Alpha
	return l.iface.SetFloat32s(AttrColor, l.col)
}

// setTileUVs writes the four texel corners of region into uv, reordered by
// the flip flags.
func setTileUVs(uv []float32, region TextureRegion, flags uint32) {
	u0, v0, u1, v1 := region.TexCoords()
	us := [4]float32{u0, u1, u0, u1}
	vs := [4]float32{v0, v0, v1, v1}
	idx := 0
	if flags&TileFlipH != 0 {
		idx |= 4
	}
	if flags&TileFlipV != 0 {
		idx |= 2
	}
	if flags&TileFlipD != 0 {
		idx |= 1
	}
	for k, src := range uvOrder[idx] {
		uv[2*k], uv[2*k+1] = us[src], vs[src]
	}
}

// updateAnimations rewrites the texcoords of animated tiles in the window.
func (m *TileMap) updateAnimations() error {
	for _, l := range m.layers {
		if len(l.anims) == 0 || !l.iface.Visible() {
			continue
		}
		changed := false
		for i := range l.tileCount {
			gid := l.data[int(l.slotRow[i])*l.width+int(l.slotCol[i])]
			frames := l.anims[gid&^tileFlagMask]
			cur, ok := animFrame(frames, m.animElapsed)
			if !ok || int(cur) >= len(l.regions) {
				continue
			}
			setTileUVs(l.uv[8*i:], l.regions[cur], gid&tileFlagMask)
			changed = true
		}
		if changed {
			if err := l.iface.SetFloat32s(AttrTexCoord, l.uv); err != nil {
				return err
			}
		}
	}
	return nil
}

// animFrame returns the GID shown elapsed milliseconds into a looping
// sequence.
func animFrame(frames []AnimFrame, elapsed int) (uint32, bool) {
	total := 0
	for _, f := range frames {
		total += f.Duration
	}
	if total == 0 {
		return 0, false
	}
	elapsed %= total
	acc := 0
	for _, f := range frames {
		acc += f.Duration
		if elapsed < acc {
			return f.GID, true
		}
	}
	return frames[0].GID, true
}
