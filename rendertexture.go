package sprig

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// RenderTexture is a persistent offscreen canvas. It implements Texture, so
// a draw list rendered into it can be shown by sprites and meshes of another
// list. It is owned by the caller and never recycled.
type RenderTexture struct {
	id     uint64
	image  *ebiten.Image
	w, h   int
	driver *EbitenDriver
}

// NewRenderTexture creates an offscreen canvas of the given size.
func NewRenderTexture(w, h int) *RenderTexture {
	img := ebiten.NewImage(w, h)
	return &RenderTexture{
		id:     nextTextureID(),
		image:  img,
		w:      w,
		h:      h,
		driver: NewEbitenDriver(img),
	}
}

// TextureID implements Texture. It survives Resize.
func (rt *RenderTexture) TextureID() uint64 {
	return rt.id
}

// Image implements Texture.
func (rt *RenderTexture) Image() *ebiten.Image {
	return rt.image
}

// Width returns the texture width in pixels.
func (rt *RenderTexture) Width() int {
	return rt.w
}

// Height returns the texture height in pixels.
func (rt *RenderTexture) Height() int {
	return rt.h
}

// Clear fills the texture with transparent black.
func (rt *RenderTexture) Clear() {
	rt.image.Clear()
}

// Fill fills the entire texture with the given color.
func (rt *RenderTexture) Fill(c Color) {
	rt.image.Fill(c.RGBA())
}

// DrawImageAt draws src at the given position with the specified blend mode.
func (rt *RenderTexture) DrawImageAt(src *ebiten.Image, x, y float64, blend BlendMode) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(x, y)
	op.Blend = blend.EbitenBlend()
	rt.image.DrawImage(src, &op)
}

// Render replays l into the texture under view. The texture is not cleared
// first.
func (rt *RenderTexture) Render(l *DrawList, view mgl32.Mat3) error {
	rt.driver.SetTarget(rt.image)
	rt.driver.SetView(view)
	return l.Draw(rt.driver)
}

// Driver returns the driver used by Render, for its statistics.
func (rt *RenderTexture) Driver() *EbitenDriver {
	return rt.driver
}

// Resize deallocates the old image and creates a new one at the given
// dimensions. States binding the texture stay valid.
func (rt *RenderTexture) Resize(width, height int) {
	if rt.image != nil {
		rt.image.Deallocate()
	}
	rt.image = ebiten.NewImage(width, height)
	rt.w = width
	rt.h = height
}

// Dispose deallocates the underlying image. The RenderTexture should not be
// used after calling Dispose.
func (rt *RenderTexture) Dispose() {
	if rt.image != nil {
		rt.image.Deallocate()
		rt.image = nil
	}
}
