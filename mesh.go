package sprig

import (
	"fmt"
	"slices"
)

// Vec2 is a 2D point.
type Vec2 struct {
	X, Y float64
}

// MeshVertex is one local-space mesh vertex. U and V are in texels.
type MeshVertex struct {
	X, Y  float32
	U, V  float32
	Color Color
}

// Mesh is an arbitrary triangle list drawn with one texture, backed by one
// interfacer. Vertices are kept in local space and transformed on Update.
type Mesh struct {
	Transform
	Tint  Color
	Alpha float64

	texture Texture
	blend   BlendMode
	verts   []MeshVertex
	indices []uint32
	iface   *Interfacer

	aabb      Rect
	aabbDirty bool
	dataDirty bool
	lastTint  Color
	lastAlpha float64
}

// NewMesh creates a mesh. tex nil selects the shared white texture.
func NewMesh(b *Batch, tex Texture, verts []MeshVertex, indices []uint32, at Placement) (*Mesh, error) {
	if len(verts) == 0 {
		return nil, fmt.Errorf("sprig: new mesh: %w: no vertices", ErrInvalidRange)
	}
	if tex == nil {
		tex = WhiteTexture()
	}
	m := &Mesh{
		Transform: NewTransform(),
		Tint:      ColorWhite,
		Alpha:     1,
		texture:   tex,
		verts:     slices.Clone(verts),
		indices:   slices.Clone(indices),
		aabbDirty: true,
		dataDirty: true,
	}
	it, err := b.Add(VertexSpec{
		Formats: spriteFormats,
		Count:   len(verts),
		Mode:    ModeTriangles,
		Indices: indices,
		State:   m.state(),
		At:      at,
	})
	if err != nil {
		return nil, fmt.Errorf("sprig: new mesh: %w", err)
	}
	m.iface = it
	if err := m.Update(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewPolygon creates a fan-triangulated convex polygon of one color.
func NewPolygon(b *Batch, points []Vec2, c Color, at Placement) (*Mesh, error) {
	verts, inds := buildPolygonFan(points, c)
	if verts == nil {
		return nil, fmt.Errorf("sprig: new polygon: %w: %d points", ErrInvalidRange, len(points))
	}
	return NewMesh(b, nil, verts, inds, at)
}

// buildPolygonFan returns N vertices and 3*(N-2) indices with vertex 0 as
// the hub. Fewer than three points yield nil.
func buildPolygonFan(points []Vec2, c Color) ([]MeshVertex, []uint32) {
	n := len(points)
	if n < 3 {
		return nil, nil
	}
	verts := make([]MeshVertex, n)
	for i, p := range points {
		// center of the white pixel
		verts[i] = MeshVertex{X: float32(p.X), Y: float32(p.Y), U: 0.5, V: 0.5, Color: c}
	}
	inds := make([]uint32, 0, (n-2)*3)
	for i := 0; i < n-2; i++ {
		inds = append(inds, 0, uint32(i+1), uint32(i+2))
	}
	return verts, inds
}

func (m *Mesh) state() State {
	return NewState(TexturePart(0, m.texture), BlendPart(m.blend))
}

// Interfacer returns the mesh's vertex claim.
func (m *Mesh) Interfacer() *Interfacer {
	return m.iface
}

// Vertices returns the local-space vertices. Call SetVertices after editing.
func (m *Mesh) Vertices() []MeshVertex {
	return m.verts
}

// Indices returns the local indices.
func (m *Mesh) Indices() []uint32 {
	return m.indices
}

// SetVertices replaces vertices and indices, resizing the interfacer.
func (m *Mesh) SetVertices(verts []MeshVertex, indices []uint32) error {
	if err := checkIndices(indices, len(verts)); err != nil {
		return fmt.Errorf("sprig: mesh vertices: %w", err)
	}
	it := m.iface
	if len(verts) < it.Count() {
		if err := it.SetIndices(indices); err != nil {
			return err
		}
		if err := it.Resize(len(verts)); err != nil {
			return err
		}
	} else {
		if err := it.Resize(len(verts)); err != nil {
			return err
		}
		if err := it.SetIndices(indices); err != nil {
			return err
		}
	}
	m.verts = append(m.verts[:0], verts...)
	m.indices = append(m.indices[:0], indices...)
	m.aabbDirty = true
	m.dataDirty = true
	return nil
}

// InvalidateVertices marks the vertices as edited in place.
func (m *Mesh) InvalidateVertices() {
	m.aabbDirty = true
	m.dataDirty = true
}

// SetTexture changes the texture.
func (m *Mesh) SetTexture(tex Texture) error {
	if tex == nil {
		tex = WhiteTexture()
	}
	m.texture = tex
	return m.iface.SetState(m.state())
}

// SetBlend changes the blend mode.
func (m *Mesh) SetBlend(b BlendMode) error {
	m.blend = b
	return m.iface.SetState(m.state())
}

// SetVisible shows or hides the mesh.
func (m *Mesh) SetVisible(v bool) error {
	return m.iface.SetVisible(v)
}

// LocalBounds returns the local-space bounding box of the vertices.
func (m *Mesh) LocalBounds() Rect {
	if m.aabbDirty {
		m.aabb = computeMeshAABB(m.verts)
		m.aabbDirty = false
	}
	return m.aabb
}

// Bounds returns the world-space bounding box.
func (m *Mesh) Bounds() Rect {
	r := m.LocalBounds()
	if r.Width == 0 && r.Height == 0 {
		return Rect{}
	}
	return worldAABB(m.Matrix(), float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height))
}

func computeMeshAABB(verts []MeshVertex) Rect {
	if len(verts) == 0 {
		return Rect{}
	}
	minX, minY := verts[0].X, verts[0].Y
	maxX, maxY := minX, minY
	for _, v := range verts[1:] {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	return Rect{X: float64(minX), Y: float64(minY), Width: float64(maxX - minX), Height: float64(maxY - minY)}
}

// Update transforms the vertices and writes them with the tint applied.
func (m *Mesh) Update() error {
	if !m.dataDirty && !m.dirty && m.Tint == m.lastTint && m.Alpha == m.lastAlpha {
		return nil
	}
	n := len(m.verts)
	mat := m.Matrix()
	pos := make([]float32, 0, 2*n)
	uv := make([]float32, 0, 2*n)
	col := make([]float32, 0, 4*n)
	tint := m.Tint
	tint.A *= m.Alpha
	for _, v := range m.verts {
		x, y := transformPoint(mat, v.X, v.Y)
		pos = append(pos, x, y)
		uv = append(uv, v.U, v.V)
		c := Color{R: v.Color.R * tint.R, G: v.Color.G * tint.G, B: v.Color.B * tint.B, A: v.Color.A * tint.A}
		p := c.premultiplied()
		col = append(col, p[:]...)
	}
	if err := m.iface.SetFloat32s(AttrPosition, pos); err != nil {
		return err
	}
	if err := m.iface.SetFloat32s(AttrTexCoord, uv); err != nil {
		return err
	}
	if err := m.iface.SetFloat32s(AttrColor, col); err != nil {
		return err
	}
	m.dataDirty, m.dirty = false, false
	m.lastTint, m.lastAlpha = m.Tint, m.Alpha
	return nil
}

// Delete releases the mesh's vertices.
func (m *Mesh) Delete() error {
	return m.iface.Delete()
}
