package sprig

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// Attribute names understood by EbitenDriver. A domain must carry a 2f
// position; texcoord (2f, texels) and color (4f premultiplied or 4Bn) are
// optional and default to (0,0) and opaque white.
const (
	AttrPosition = "position"
	AttrTexCoord = "texcoord"
	AttrColor    = "color"
)

// maxTextureUnits matches the image slots of an Ebitengine shader.
const maxTextureUnits = 4

// EbitenDriver replays compiled draw lists onto an Ebitengine image with
// DrawTriangles32, or DrawTrianglesShader32 when the bound program carries a
// shader. Only ModeTriangles is rendered; other modes are skipped with a
// warning.
type EbitenDriver struct {
	target *ebiten.Image
	view   mgl32.Mat3

	indices  []uint32
	domain   *VertexDomain
	program  *Program
	verts    []ebiten.Vertex
	cache    map[*VertexDomain][]ebiten.Vertex
	textures [maxTextureUnits]Texture
	blend    BlendMode
	uniforms map[string]any
	scissor  image.Rectangle

	warned map[DrawMode]bool

	// Draws counts the draw calls issued since the last ResetStats.
	Draws int
	// Skipped counts draws dropped for an unsupported mode or a domain
	// without positions.
	Skipped int
}

// NewEbitenDriver returns a driver drawing onto target with an identity view.
func NewEbitenDriver(target *ebiten.Image) *EbitenDriver {
	return &EbitenDriver{
		target:   target,
		view:     mgl32.Ident3(),
		cache:    make(map[*VertexDomain][]ebiten.Vertex),
		uniforms: make(map[string]any),
		warned:   make(map[DrawMode]bool),
	}
}

// SetTarget changes the destination image.
func (d *EbitenDriver) SetTarget(target *ebiten.Image) {
	d.target = target
}

// SetView sets the 2D homogeneous matrix applied to every position, usually
// Camera.ViewMatrix.
func (d *EbitenDriver) SetView(m mgl32.Mat3) {
	d.view = m
}

// View returns the current view matrix.
func (d *EbitenDriver) View() mgl32.Mat3 {
	return d.view
}

// ResetStats zeroes Draws and Skipped.
func (d *EbitenDriver) ResetStats() {
	d.Draws, d.Skipped = 0, 0
}

// SetIndices implements Driver. It starts a new replay, so all bound state
// returns to its defaults.
func (d *EbitenDriver) SetIndices(indices []uint32) {
	d.indices = indices
	d.domain, d.program, d.verts = nil, nil, nil
	d.textures = [maxTextureUnits]Texture{}
	d.blend = BlendNormal
	clear(d.uniforms)
	d.scissor = image.Rectangle{}
}

// BindBuffer implements Driver. The domain's vertices are converted once per
// bind.
func (d *EbitenDriver) BindBuffer(dom *VertexDomain, p *Program) {
	d.domain, d.program = dom, p
	buf, ok := convertVertices(dom, d.view, d.cache[dom])
	if !ok {
		Logger().WithField("domain", dom.ID()).Warn("sprig: vertex domain has no 2f position attribute")
		d.verts = nil
		return
	}
	d.cache[dom] = buf
	d.verts = buf
}

// ApplyState implements Driver.
func (d *EbitenDriver) ApplyState(p StatePart) {
	switch p.Kind() {
	case PartProgram:
		d.program = p.Program()
	case PartTexture:
		unit, tex := p.Texture()
		if unit >= 0 && unit < maxTextureUnits {
			d.textures[unit] = tex
		}
	case PartBlend:
		d.blend = p.Blend()
	case PartUniform:
		name, v := p.Uniform()
		d.uniforms[name] = v
	case PartScissor:
		d.scissor = p.Scissor()
	}
}

// DrawIndexed implements Driver.
func (d *EbitenDriver) DrawIndexed(mode DrawMode, start, count int) {
	if mode != ModeTriangles {
		d.Skipped++
		if !d.warned[mode] {
			d.warned[mode] = true
			Logger().WithField("mode", mode).Warn("sprig: draw mode not supported by the Ebitengine driver")
		}
		return
	}
	if d.verts == nil || d.target == nil {
		d.Skipped++
		return
	}
	dst := d.target
	if !d.scissor.Empty() {
		sub, ok := d.target.SubImage(d.scissor).(*ebiten.Image)
		if !ok {
			d.Skipped++
			return
		}
		dst = sub
	}
	inds := d.indices[start : start+count]

	if d.program != nil && d.program.Shader != nil {
		var op ebiten.DrawTrianglesShaderOptions
		op.Blend = d.blend.EbitenBlend()
		op.Uniforms = d.uniforms
		for i, t := range d.textures {
			if t != nil {
				op.Images[i] = t.Image()
			}
		}
		if op.Images[0] == nil {
			op.Images[0] = WhiteTexture().Image()
		}
		dst.DrawTrianglesShader32(d.verts, inds, d.program.Shader, &op)
	} else {
		src := WhiteTexture().Image()
		if t := d.textures[0]; t != nil {
			src = t.Image()
		}
		var op ebiten.DrawTrianglesOptions
		op.Blend = d.blend.EbitenBlend()
		op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
		dst.DrawTriangles32(d.verts, inds, src, &op)
	}
	d.Draws++
}

// convertVertices expands the used extent of dom into Ebitengine vertices,
// reusing dst's storage. It reports false when dom has no 2f position.
func convertVertices(dom *VertexDomain, view mgl32.Mat3, dst []ebiten.Vertex) ([]ebiten.Vertex, bool) {
	pos, ok := dom.Attribute(AttrPosition)
	if !ok || pos.format.Type != Float32 || pos.format.Count != 2 {
		return dst, false
	}
	n := dom.alloc.usedExtent()
	if cap(dst) < n {
		dst = make([]ebiten.Vertex, n)
	}
	dst = dst[:n]

	p := pos.float32s(0, n)
	for i := range dst {
		v := view.Mul3x1(mgl32.Vec3{p[2*i], p[2*i+1], 1})
		dst[i] = ebiten.Vertex{DstX: v[0], DstY: v[1], ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1}
	}

	if tc, ok := dom.Attribute(AttrTexCoord); ok && tc.format.Type == Float32 && tc.format.Count == 2 {
		uv := tc.float32s(0, n)
		for i := range dst {
			dst[i].SrcX, dst[i].SrcY = uv[2*i], uv[2*i+1]
		}
	}

	if c, ok := dom.Attribute(AttrColor); ok && c.format.Count == 4 {
		switch {
		case c.format.Type == Float32:
			cs := c.float32s(0, n)
			for i := range dst {
				dst[i].ColorR, dst[i].ColorG, dst[i].ColorB, dst[i].ColorA = cs[4*i], cs[4*i+1], cs[4*i+2], cs[4*i+3]
			}
		case c.format.Type == Uint8 && c.format.Normalized:
			cs := c.bytes(0, n)
			for i := range dst {
				dst[i].ColorR = float32(cs[4*i]) / 255
				dst[i].ColorG = float32(cs[4*i+1]) / 255
				dst[i].ColorB = float32(cs[4*i+2]) / 255
				dst[i].ColorA = float32(cs[4*i+3]) / 255
			}
		}
	}
	return dst, true
}
