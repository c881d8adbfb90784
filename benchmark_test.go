package sprig

import (
	"image/color"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

// setupBenchBatch creates a batch with n atlas sprites laid out in a grid.
// pages > 1 spreads the sprites over that many atlases round-robin, which
// forces state changes between texture runs.
func setupBenchBatch(b *testing.B, n, pages int) (*Batch, []*Sprite) {
	b.Helper()
	batch, err := NewBatch(Config{
		Atlas:  AtlasConfig{Width: 64, Height: 64},
		Domain: DomainConfig{InitialCapacity: 4 * n},
	})
	if err != nil {
		b.Fatal(err)
	}
	regions := make([]TextureRegion, 0, pages)
	for range pages {
		// 40x40 fills each 64x64 atlas, so every image opens a new page.
		r, _, err := batch.AddImage(solidImage(40, 40, color.White))
		if err != nil {
			b.Fatal(err)
		}
		regions = append(regions, r)
	}
	sprites := make([]*Sprite, 0, n)
	for i := range n {
		s, err := NewSprite(batch, regions[i%pages], Placement{})
		if err != nil {
			b.Fatal(err)
		}
		s.SetPosition(float64(i%100)*40, float64(i/100)*40)
		sprites = append(sprites, s)
	}
	return batch, sprites
}

func BenchmarkDraw_10000Sprites_Static(b *testing.B) {
	batch, _ := setupBenchBatch(b, 10000, 1)
	var rec Recorder
	_ = batch.Draw(&rec) // compile once

	b.ReportAllocs()
	for b.Loop() {
		rec.Reset()
		_ = batch.Draw(&rec)
	}
}

func BenchmarkCompile_10000Sprites(b *testing.B) {
	batch, _ := setupBenchBatch(b, 10000, 1)
	l := batch.Default()

	b.ReportAllocs()
	for b.Loop() {
		l.dirty = true
		_ = l.Compile()
	}
}

func BenchmarkCompile_10000Sprites_MultiAtlas(b *testing.B) {
	batch, _ := setupBenchBatch(b, 10000, 4)
	l := batch.Default()

	b.ReportAllocs()
	for b.Loop() {
		l.dirty = true
		_ = l.Compile()
	}
	b.ReportMetric(float64(l.Stats().DrawCalls), "draws")
}

func BenchmarkUpdate_10000Sprites_Rotating(b *testing.B) {
	_, sprites := setupBenchBatch(b, 10000, 1)

	b.ReportAllocs()
	for b.Loop() {
		for _, s := range sprites {
			s.Rotation += 0.01
			s.MarkDirty()
			_ = s.Update()
		}
	}
}

func BenchmarkUpdate_10000Sprites_AlphaVarying(b *testing.B) {
	_, sprites := setupBenchBatch(b, 10000, 1)

	b.ReportAllocs()
	i := 0
	for b.Loop() {
		for _, s := range sprites {
			s.Alpha = float64(i%100) / 100
			_ = s.Update()
		}
		i++
	}
}

func BenchmarkChurn_1000Sprites(b *testing.B) {
	batch, sprites := setupBenchBatch(b, 1000, 1)
	region := sprites[0].Region()
	var rec Recorder

	b.ReportAllocs()
	for b.Loop() {
		for i := 0; i < len(sprites); i += 10 {
			_ = sprites[i].Delete()
			sprites[i], _ = NewSprite(batch, region, Placement{})
		}
		rec.Reset()
		_ = batch.Draw(&rec)
	}
}

func BenchmarkEbitenDriver_10000Sprites(b *testing.B) {
	batch, _ := setupBenchBatch(b, 10000, 1)
	screen := ebiten.NewImage(1280, 720)
	d := NewEbitenDriver(screen)
	_ = batch.Draw(d)

	b.ReportAllocs()
	for b.Loop() {
		_ = batch.Draw(d)
	}
}

func BenchmarkRectAllocator_AllocFree(b *testing.B) {
	a, err := NewRectAllocator(1024, 1024, AllocatorOptions{})
	if err != nil {
		b.Fatal(err)
	}
	ids := make([]AllocID, 0, 256)

	b.ReportAllocs()
	for b.Loop() {
		for range 256 {
			if al, ok := a.Allocate(24, 24); ok {
				ids = append(ids, al.ID)
			}
		}
		for _, id := range ids {
			_ = a.Deallocate(id)
		}
		ids = ids[:0]
	}
}
