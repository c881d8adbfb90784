package sprig

import (
	"image/color"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestRectContains(t *testing.T) {
	r := Rect{10, 20, 100, 50}
	tests := []struct {
		name   string
		x, y   float64
		expect bool
	}{
		{"inside", 50, 40, true},
		{"top-left corner", 10, 20, true},
		{"bottom-right corner", 110, 70, true},
		{"outside left", 9, 40, false},
		{"outside below", 50, 71, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Contains(tt.x, tt.y)
			if got != tt.expect {
				t.Errorf("Rect%v.Contains(%v, %v) = %v, want %v", r, tt.x, tt.y, got, tt.expect)
			}
		})
	}
}

func TestBlendModeEbitenBlend(t *testing.T) {
	modes := []struct {
		mode   BlendMode
		expect ebiten.Blend
	}{
		{BlendNormal, ebiten.BlendSourceOver},
		{BlendAdd, ebiten.BlendLighter},
		{BlendErase, ebiten.BlendDestinationOut},
		{BlendBelow, ebiten.BlendDestinationOver},
		{BlendNone, ebiten.BlendCopy},
	}
	for _, tt := range modes {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := tt.mode.EbitenBlend(); got != tt.expect {
				t.Errorf("%s.EbitenBlend() = %v, want %v", tt.mode, got, tt.expect)
			}
		})
	}

	zero := ebiten.Blend{}
	for _, m := range []BlendMode{BlendMultiply, BlendScreen, BlendMask} {
		if m.EbitenBlend() == zero {
			t.Errorf("%s.EbitenBlend() returned zero blend", m)
		}
	}
}

func TestEnumValues(t *testing.T) {
	if BlendNormal != 0 {
		t.Errorf("BlendNormal = %d, want 0", BlendNormal)
	}
	if BlendNone != 7 {
		t.Errorf("BlendNone = %d, want 7", BlendNone)
	}
	if ModeTriangles != 0 || ModePoints != 2 {
		t.Errorf("ModeTriangles/ModePoints = %d/%d, want 0/2", ModeTriangles, ModePoints)
	}
	if PartProgram != 0 || PartScissor != 4 {
		t.Errorf("PartProgram/PartScissor = %d/%d, want 0/4", PartProgram, PartScissor)
	}
}

func TestColorPremultiplied(t *testing.T) {
	c := Color{R: 1, G: 0.5, B: 0, A: 0.5}
	p := c.premultiplied()
	if p != [4]float32{0.5, 0.25, 0, 0.5} {
		t.Errorf("premultiplied = %v, want [0.5 0.25 0 0.5]", p)
	}
	if got := ColorWhite.RGBA(); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("ColorWhite.RGBA() = %v", got)
	}
	over := Color{R: 2, G: -1, B: 0.5, A: 1}.premultiplied()
	if over[0] != 1 || over[1] != 0 {
		t.Errorf("components not clamped: %v", over)
	}
}

func BenchmarkBlendModeMapping(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = BlendNormal.EbitenBlend()
		_ = BlendMultiply.EbitenBlend()
		_ = BlendScreen.EbitenBlend()
		_ = BlendMask.EbitenBlend()
	}
}
