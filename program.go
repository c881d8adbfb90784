package sprig

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

var textureIDs atomic.Uint64

func nextTextureID() uint64 {
	return textureIDs.Add(1)
}

// Texture is an image that can be bound by a texture state part. The ID is
// part of the state identity, so two textures never share one.
type Texture interface {
	TextureID() uint64
	Image() *ebiten.Image
}

// ImageTexture adapts a plain *ebiten.Image to Texture.
type ImageTexture struct {
	id  uint64
	img *ebiten.Image
}

// NewImageTexture wraps img with a fresh texture ID.
func NewImageTexture(img *ebiten.Image) *ImageTexture {
	return &ImageTexture{id: nextTextureID(), img: img}
}

// TextureID implements Texture.
func (t *ImageTexture) TextureID() uint64 { return t.id }

// Image implements Texture.
func (t *ImageTexture) Image() *ebiten.Image { return t.img }

// whitePixel is a lazily created 1x1 white texture used by untextured draws.
var (
	whitePixel     *ImageTexture
	whitePixelOnce sync.Once
)

// WhiteTexture returns a shared 1x1 white texture for solid-color geometry.
func WhiteTexture() Texture {
	whitePixelOnce.Do(func() {
		img := ebiten.NewImage(1, 1)
		img.Fill(ColorWhite.RGBA())
		whitePixel = NewImageTexture(img)
	})
	return whitePixel
}

// Program is a shader program bound by a program state part. A nil Shader
// selects the driver's built-in textured pipeline.
type Program struct {
	id     uint64
	Name   string
	Shader *ebiten.Shader
}

var programIDs atomic.Uint64

// DefaultProgram is the built-in textured, vertex-colored pipeline.
var DefaultProgram = &Program{id: programIDs.Add(1), Name: "default"}

// NewProgram compiles a Kage shader.
func NewProgram(name string, src []byte) (*Program, error) {
	sh, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("sprig: compile program %q: %w", name, err)
	}
	return NewProgramFromShader(name, sh), nil
}

// NewProgramFromShader wraps an already compiled shader.
func NewProgramFromShader(name string, sh *ebiten.Shader) *Program {
	return &Program{id: programIDs.Add(1), Name: name, Shader: sh}
}

// ID returns a process-unique program identifier.
func (p *Program) ID() uint64 {
	return p.id
}
