package sprig

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsInterval is how often the FPS widget redraws, in seconds.
const fpsInterval = 0.5

// FPSWidget shows the current FPS and TPS. It draws into its own
// RenderTexture, shown by a sprite of the batch.
type FPSWidget struct {
	*Sprite
	canvas  *RenderTexture
	elapsed float64
}

// NewFPSWidget creates the widget. Place it in a group ordered above the
// rest of the scene.
func NewFPSWidget(b *Batch, at Placement) (*FPSWidget, error) {
	// enough for "FPS: 60.0\nTPS: 60.0"
	canvas := NewRenderTexture(100, 32)
	s, err := NewTextureSprite(b, canvas, at)
	if err != nil {
		return nil, err
	}
	w := &FPSWidget{Sprite: s, canvas: canvas, elapsed: fpsInterval}
	return w, nil
}

// Update redraws the counters every half second and updates the sprite.
func (w *FPSWidget) Update(dt float64) error {
	w.elapsed += dt
	if w.elapsed >= fpsInterval {
		w.elapsed = 0
		w.redraw(ebiten.ActualFPS(), ebiten.ActualTPS())
	}
	return w.Sprite.Update()
}

func (w *FPSWidget) redraw(fps, tps float64) {
	img := w.canvas.Image()
	img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", fps, tps))
}

// Delete releases the sprite and the canvas.
func (w *FPSWidget) Delete() error {
	err := w.Sprite.Delete()
	w.canvas.Dispose()
	return err
}
