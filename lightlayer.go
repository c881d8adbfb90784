package sprig

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// circleRadius is the radius of the generated light texture. Lights of any
// radius scale it.
const circleRadius = 64

// Erase holes are drawn first, tints on top.
const (
	eraseOrder = 0
	tintOrder  = 1
)

// Light is a light source in a LightLayer.
type Light struct {
	// X and Y are the light's position in the layer's local space.
	X, Y float64
	// Radius controls the drawn size (diameter = Radius*2 pixels).
	Radius   float64
	Rotation float64
	// Intensity is the light brightness in [0, 1].
	Intensity float64
	// Enabled lights are drawn by Redraw.
	Enabled bool
	// Color is the tint. Zero or white means no tint.
	Color Color
	// Region, if non-zero, replaces the feathered circle.
	Region TextureRegion
	// Target, if set, makes the light follow the target's pivot.
	Target *Transform
	// OffsetX and OffsetY offset the light from the target in layer space.
	OffsetX, OffsetY float64

	erase *Sprite
	tint  *Sprite
}

// LightLayer darkens the scene everywhere except where lights shine. Lights
// are erase-blended sprites of a private draw list, rendered into an
// offscreen texture filled with the ambient darkness. The texture is shown
// by a multiply-blended sprite of the caller's list.
type LightLayer struct {
	rt           *RenderTexture
	sprite       *Sprite
	batch        *Batch
	list         *DrawList
	circle       TextureRegion
	lights       []*Light
	ambientAlpha float64
}

// NewLightLayer creates a light layer covering w x h pixels. ambientAlpha is
// the base darkness, 0 fully transparent and 1 fully opaque black.
func NewLightLayer(b *Batch, w, h int, ambientAlpha float64, at Placement) (*LightLayer, error) {
	circle, _, err := b.AddImage(generateCircle(circleRadius))
	if err != nil {
		return nil, fmt.Errorf("sprig: new light layer: %w", err)
	}
	rt := NewRenderTexture(w, h)
	list := b.List(fmt.Sprintf("sprig.lights.%d", rt.TextureID()))
	sprite, err := NewTextureSprite(b, rt, at)
	if err != nil {
		return nil, err
	}
	sprite.SetBlend(BlendMultiply)
	if err := sprite.Update(); err != nil {
		return nil, err
	}
	return &LightLayer{
		rt:           rt,
		sprite:       sprite,
		batch:        b,
		list:         list,
		circle:       circle,
		ambientAlpha: ambientAlpha,
	}, nil
}

// Sprite returns the sprite that displays the layer.
func (ll *LightLayer) Sprite() *Sprite {
	return ll.sprite
}

// RenderTexture returns the offscreen texture the lights are drawn into.
func (ll *LightLayer) RenderTexture() *RenderTexture {
	return ll.rt
}

// List returns the private draw list holding the light sprites.
func (ll *LightLayer) List() *DrawList {
	return ll.list
}

// AddLight adds a light to the layer.
func (ll *LightLayer) AddLight(l *Light) error {
	region := ll.region(l)
	erase, err := NewSprite(ll.batch, region, Placement{List: ll.list, Order: eraseOrder})
	if err != nil {
		return fmt.Errorf("sprig: add light: %w", err)
	}
	erase.SetBlend(BlendErase)
	tint, err := NewSprite(ll.batch, region, Placement{List: ll.list, Order: tintOrder})
	if err != nil {
		_ = erase.Delete()
		return fmt.Errorf("sprig: add light: %w", err)
	}
	tint.SetBlend(BlendAdd)
	l.erase, l.tint = erase, tint
	ll.lights = append(ll.lights, l)
	return ll.sync(l)
}

// RemoveLight removes a light from the layer.
func (ll *LightLayer) RemoveLight(l *Light) error {
	i := slices.Index(ll.lights, l)
	if i < 0 {
		return nil
	}
	ll.lights = slices.Delete(ll.lights, i, i+1)
	return releaseLight(l)
}

// ClearLights removes all lights from the layer.
func (ll *LightLayer) ClearLights() error {
	var firstErr error
	for _, l := range ll.lights {
		if err := releaseLight(l); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ll.lights = ll.lights[:0]
	return firstErr
}

func releaseLight(l *Light) error {
	err := l.erase.Delete()
	if terr := l.tint.Delete(); err == nil {
		err = terr
	}
	l.erase, l.tint = nil, nil
	return err
}

// Lights returns the current lights. The slice must not be modified.
func (ll *LightLayer) Lights() []*Light {
	return ll.lights
}

// SetAmbientAlpha sets the base darkness.
func (ll *LightLayer) SetAmbientAlpha(a float64) {
	ll.ambientAlpha = a
}

// AmbientAlpha returns the base darkness.
func (ll *LightLayer) AmbientAlpha() float64 {
	return ll.ambientAlpha
}

func (ll *LightLayer) region(l *Light) TextureRegion {
	if l.Region.Width > 0 && l.Region.Height > 0 {
		return l.Region
	}
	return ll.circle
}

// sync writes a light's fields into its sprites.
func (ll *LightLayer) sync(l *Light) error {
	if l.Target != nil {
		wx, wy := l.Target.LocalToWorld(l.Target.PivotX, l.Target.PivotY)
		lx, ly := ll.sprite.WorldToLocal(wx, wy)
		l.X, l.Y = lx+l.OffsetX, ly+l.OffsetY
	}
	on := l.Enabled && l.Radius > 0
	tinted := l.Color != (Color{}) && l.Color != ColorWhite
	intensity := clamp01(l.Intensity)
	region := ll.region(l)

	for _, s := range []*Sprite{l.erase, l.tint} {
		if s.Region() != region {
			s.SetRegion(region)
		}
		w, h := s.Size()
		s.PivotX, s.PivotY = w/2, h/2
		s.X, s.Y = l.X, l.Y
		s.ScaleX, s.ScaleY = 2*l.Radius/w, 2*l.Radius/h
		s.Rotation = l.Rotation
		s.MarkDirty()
	}
	l.erase.Color = Color{R: 1, G: 1, B: 1, A: intensity}
	l.tint.Color = Color{R: l.Color.R, G: l.Color.G, B: l.Color.B, A: intensity * 0.3}

	if l.erase.Visible() != on {
		if err := l.erase.SetVisible(on); err != nil {
			return err
		}
	}
	if l.tint.Visible() != (on && tinted) {
		if err := l.tint.SetVisible(on && tinted); err != nil {
			return err
		}
	}
	if err := l.erase.Update(); err != nil {
		return err
	}
	return l.tint.Update()
}

// Redraw fills the texture with the ambient darkness and erases the enabled
// lights from it. Call it whenever lights change, before drawing the scene.
func (ll *LightLayer) Redraw() error {
	for _, l := range ll.lights {
		if err := ll.sync(l); err != nil {
			return err
		}
	}
	a := clamp01(ll.ambientAlpha)
	ll.rt.Clear()
	ll.rt.Image().Fill(color.NRGBA{A: uint8(a * 255)})
	if err := ll.rt.Render(ll.list, mgl32.Ident3()); err != nil {
		return err
	}
	return ll.sprite.Update()
}

// Dispose releases the lights, the display sprite and the texture.
func (ll *LightLayer) Dispose() error {
	err := ll.ClearLights()
	if serr := ll.sprite.Delete(); err == nil {
		err = serr
	}
	ll.rt.Dispose()
	return err
}

// generateCircle creates a feathered white circle with smoothstep falloff
// and premultiplied alpha.
func generateCircle(radius float64) *image.RGBA {
	size := max(int(math.Ceil(radius*2)), 1)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			dx := float64(x) + 0.5 - radius
			dy := float64(y) + 0.5 - radius
			dist := math.Sqrt(dx*dx+dy*dy) / radius

			var alpha float64
			if dist < 1 {
				t := 1 - dist
				alpha = t * t * (3 - 2*t)
			}
			a := uint8(alpha * 255)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = a
			img.Pix[off+1] = a
			img.Pix[off+2] = a
			img.Pix[off+3] = a
		}
	}
	return img
}
