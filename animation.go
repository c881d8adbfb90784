package sprig

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Animated is a drawable whose transform, tint and alpha can be tweened.
// Sprite and Mesh implement it.
type Animated interface {
	Interfacer() *Interfacer
	animated() (tr *Transform, tint *Color, alpha *float64)
}

func (s *Sprite) animated() (*Transform, *Color, *float64) { return &s.Transform, &s.Color, &s.Alpha }
func (m *Mesh) animated() (*Transform, *Color, *float64) { return &m.Transform, &m.Tint, &m.Alpha }

// TweenGroup animates up to 4 float64 fields on a drawable simultaneously.
// Create one via the convenience constructors (TweenPosition, TweenScale,
// TweenColor) and call Update(dt) each frame, followed by the drawable's own
// Update to push the vertices. If the target is deleted, the group stops
// immediately.
//
// There is no global animation manager; users call Update themselves.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	target Animated
	tr     *Transform
	Done   bool
}

func newTweenGroup(target Animated, count int) *TweenGroup {
	tr, _, _ := target.animated()
	return &TweenGroup{count: count, target: target, tr: tr}
}

// Update advances all tweens by dt seconds, writes values to the target
// fields, and marks the transform dirty. If the target has been deleted, Done
// is set to true and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target.Interfacer().Deleted() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	g.tr.MarkDirty()
}

// TweenPosition animates X and Y to the given coordinates.
func TweenPosition(target Animated, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(target, 2)
	g.tweens[0] = gween.New(float32(g.tr.X), float32(toX), duration, fn)
	g.tweens[1] = gween.New(float32(g.tr.Y), float32(toY), duration, fn)
	g.fields[0] = &g.tr.X
	g.fields[1] = &g.tr.Y
	return g
}

// TweenScale animates ScaleX and ScaleY.
func TweenScale(target Animated, toSX, toSY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(target, 2)
	g.tweens[0] = gween.New(float32(g.tr.ScaleX), float32(toSX), duration, fn)
	g.tweens[1] = gween.New(float32(g.tr.ScaleY), float32(toSY), duration, fn)
	g.fields[0] = &g.tr.ScaleX
	g.fields[1] = &g.tr.ScaleY
	return g
}

// TweenRotation animates Rotation.
func TweenRotation(target Animated, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(target, 1)
	g.tweens[0] = gween.New(float32(g.tr.Rotation), float32(to), duration, fn)
	g.fields[0] = &g.tr.Rotation
	return g
}

// TweenColor animates all four components of the tint (Sprite.Color or
// Mesh.Tint).
func TweenColor(target Animated, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(target, 4)
	_, c, _ := target.animated()
	g.tweens[0] = gween.New(float32(c.R), float32(to.R), duration, fn)
	g.tweens[1] = gween.New(float32(c.G), float32(to.G), duration, fn)
	g.tweens[2] = gween.New(float32(c.B), float32(to.B), duration, fn)
	g.tweens[3] = gween.New(float32(c.A), float32(to.A), duration, fn)
	g.fields[0] = &c.R
	g.fields[1] = &c.G
	g.fields[2] = &c.B
	g.fields[3] = &c.A
	return g
}

// TweenAlpha animates the alpha multiplier.
func TweenAlpha(target Animated, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(target, 1)
	_, _, a := target.animated()
	g.tweens[0] = gween.New(float32(*a), float32(to), duration, fn)
	g.fields[0] = a
	return g
}
