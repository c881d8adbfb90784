package sprig

import "fmt"

// SpriteFormats is the vertex layout of sprites and meshes.
const SpriteFormats = "position:2f,texcoord:2f,color:4f"

var spriteFormats = mustParseFormats(SpriteFormats)

func mustParseFormats(s string) []AttributeFormat {
	f, err := ParseAttributeFormats(s)
	if err != nil {
		panic(err)
	}
	return f
}

// quadIndices draws TL-TR-BL, TR-BR-BL.
var quadIndices = []uint32{0, 1, 2, 1, 3, 2}

// Sprite is a textured quad backed by one interfacer. Change its fields or
// call its setters, then call Update before drawing to push the vertices.
type Sprite struct {
	Transform
	Color Color
	Alpha float64

	region  TextureRegion
	texture Texture
	blend   BlendMode
	program *Program
	iface   *Interfacer

	lastColor   Color
	lastAlpha   float64
	uvDirty     bool
	stateDirty  bool
	width       float32
	height      float32
	initialized bool
}

// NewSprite creates a sprite showing an atlas region.
func NewSprite(b *Batch, region TextureRegion, at Placement) (*Sprite, error) {
	var tex Texture = WhiteTexture()
	if a := region.Atlas(); a != nil {
		tex = a
	}
	return newSprite(b, region, tex, float32(region.Width), float32(region.Height), ColorWhite, at)
}

// NewRectSprite creates a solid-color w x h rectangle.
func NewRectSprite(b *Batch, w, h float64, c Color, at Placement) (*Sprite, error) {
	return newSprite(b, TextureRegion{Width: 1, Height: 1}, WhiteTexture(), float32(w), float32(h), c, at)
}

// NewTextureSprite creates a sprite showing all of tex, such as a
// RenderTexture. Texture coordinates follow the image size at creation.
func NewTextureSprite(b *Batch, tex Texture, at Placement) (*Sprite, error) {
	w, h := textureSize(tex)
	region := TextureRegion{Width: uint16(w), Height: uint16(h)}
	return newSprite(b, region, tex, float32(w), float32(h), ColorWhite, at)
}

func newSprite(b *Batch, region TextureRegion, tex Texture, w, h float32, c Color, at Placement) (*Sprite, error) {
	s := &Sprite{
		Transform: NewTransform(),
		Color:     c,
		Alpha:     1,
		region:    region,
		texture:   tex,
		width:     w,
		height:    h,
		uvDirty:   true,
	}
	it, err := b.Add(VertexSpec{
		Formats: spriteFormats,
		Count:   4,
		Mode:    ModeTriangles,
		Indices: quadIndices,
		State:   s.state(),
		At:      at,
	})
	if err != nil {
		return nil, fmt.Errorf("sprig: new sprite: %w", err)
	}
	s.iface = it
	if err := s.Update(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sprite) state() State {
	parts := []StatePart{TexturePart(0, s.texture), BlendPart(s.blend)}
	if s.program != nil {
		parts = append(parts, ProgramPart(s.program))
	}
	return NewState(parts...)
}

// Interfacer returns the sprite's vertex claim.
func (s *Sprite) Interfacer() *Interfacer {
	return s.iface
}

// Region returns the displayed atlas region.
func (s *Sprite) Region() TextureRegion {
	return s.region
}

// Size returns the unscaled quad size.
func (s *Sprite) Size() (w, h float64) {
	return float64(s.width), float64(s.height)
}

// SetRegion shows another region, possibly from another atlas.
func (s *Sprite) SetRegion(r TextureRegion) {
	s.region = r
	s.width, s.height = float32(r.Width), float32(r.Height)
	var tex Texture = WhiteTexture()
	if a := r.Atlas(); a != nil {
		tex = a
	}
	if tex.TextureID() != s.texture.TextureID() {
		s.texture = tex
		s.stateDirty = true
	}
	s.uvDirty = true
	s.dirty = true
}

// SetBlend changes the blend mode.
func (s *Sprite) SetBlend(b BlendMode) {
	if b != s.blend {
		s.blend = b
		s.stateDirty = true
	}
}

// Blend returns the blend mode.
func (s *Sprite) Blend() BlendMode {
	return s.blend
}

// SetProgram selects a shader program. nil restores the list's program.
func (s *Sprite) SetProgram(p *Program) {
	if p != s.program {
		s.program = p
		s.stateDirty = true
	}
}

// SetColor sets the tint.
func (s *Sprite) SetColor(c Color) {
	s.Color = c
}

// SetAlpha sets the opacity multiplier.
func (s *Sprite) SetAlpha(a float64) {
	s.Alpha = a
}

// SetVisible shows or hides the sprite.
func (s *Sprite) SetVisible(v bool) error {
	return s.iface.SetVisible(v)
}

// Visible reports whether the sprite is drawn.
func (s *Sprite) Visible() bool {
	return s.iface.Visible()
}

// Bounds returns the world-space bounding box of the quad.
func (s *Sprite) Bounds() Rect {
	return worldAABB(s.Matrix(), 0, 0, s.width, s.height)
}

// Update writes whatever changed since the last Update into the vertex
// domain and the interfacer state.
func (s *Sprite) Update() error {
	it := s.iface
	if s.stateDirty {
		if err := it.SetState(s.state()); err != nil {
			return err
		}
		s.stateDirty = false
	}
	if s.dirty || !s.initialized {
		m := s.Matrix()
		var pos [8]float32
		lx := [4]float32{0, s.width, 0, s.width}
		ly := [4]float32{0, 0, s.height, s.height}
		for i := range 4 {
			pos[2*i], pos[2*i+1] = transformPoint(m, lx[i], ly[i])
		}
		if err := it.SetFloat32s(AttrPosition, pos[:]); err != nil {
			return err
		}
		s.dirty = false
	}
	if s.uvDirty {
		x0, y0, x1, y1 := s.region.TexCoords()
		uv := [8]float32{x0, y0, x1, y0, x0, y1, x1, y1}
		if err := it.SetFloat32s(AttrTexCoord, uv[:]); err != nil {
			return err
		}
		s.uvDirty = false
	}
	if !s.initialized || s.Color != s.lastColor || s.Alpha != s.lastAlpha {
		c := s.Color
		c.A *= s.Alpha
		p := c.premultiplied()
		var cs [16]float32
		for i := range 4 {
			copy(cs[4*i:], p[:])
		}
		if err := it.SetFloat32s(AttrColor, cs[:]); err != nil {
			return err
		}
		s.lastColor, s.lastAlpha = s.Color, s.Alpha
	}
	s.initialized = true
	return nil
}

// Delete releases the sprite's vertices. The sprite must not be used
// afterwards.
func (s *Sprite) Delete() error {
	return s.iface.Delete()
}
