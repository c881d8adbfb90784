package sprig

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform holds the 2D placement of a drawable. Changing fields directly
// requires MarkDirty; the setters do it for you.
type Transform struct {
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64 // radians
	SkewX, SkewY   float64 // radians
	PivotX, PivotY float64

	// Parent, when set, is applied after the local transform.
	Parent *mgl32.Mat3

	dirty bool
}

// NewTransform returns a transform at the origin with unit scale.
func NewTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, dirty: true}
}

// Matrix returns the homogeneous matrix of the transform. Composition order:
//
//	Translate(-Pivot) -> Scale -> Skew -> Rotate -> Translate(X, Y) -> Parent
func (t *Transform) Matrix() mgl32.Mat3 {
	m := mgl32.Translate2D(float32(t.X), float32(t.Y)).
		Mul3(mgl32.HomogRotate2D(float32(t.Rotation))).
		Mul3(skew2D(t.SkewX, t.SkewY)).
		Mul3(mgl32.Scale2D(float32(t.ScaleX), float32(t.ScaleY))).
		Mul3(mgl32.Translate2D(float32(-t.PivotX), float32(-t.PivotY)))
	if t.Parent != nil {
		m = t.Parent.Mul3(m)
	}
	return m
}

func skew2D(sx, sy float64) mgl32.Mat3 {
	if sx == 0 && sy == 0 {
		return mgl32.Ident3()
	}
	// column-major: x' = x + tan(sx)*y, y' = tan(sy)*x + y
	return mgl32.Mat3{
		1, float32(math.Tan(sy)), 0,
		float32(math.Tan(sx)), 1, 0,
		0, 0, 1,
	}
}

// transformPoint applies a homogeneous matrix to a point.
func transformPoint(m mgl32.Mat3, x, y float32) (float32, float32) {
	v := m.Mul3x1(mgl32.Vec3{x, y, 1})
	return v[0], v[1]
}

// invertTransform returns the inverse of m, or the identity if m is
// singular.
func invertTransform(m mgl32.Mat3) mgl32.Mat3 {
	if det := m.Det(); det > -1e-12 && det < 1e-12 {
		return mgl32.Ident3()
	}
	return m.Inv()
}

// SetPosition sets X and Y.
func (t *Transform) SetPosition(x, y float64) {
	t.X, t.Y = x, y
	t.dirty = true
}

// SetScale sets ScaleX and ScaleY.
func (t *Transform) SetScale(sx, sy float64) {
	t.ScaleX, t.ScaleY = sx, sy
	t.dirty = true
}

// SetRotation sets the rotation in radians.
func (t *Transform) SetRotation(r float64) {
	t.Rotation = r
	t.dirty = true
}

// SetSkew sets SkewX and SkewY.
func (t *Transform) SetSkew(sx, sy float64) {
	t.SkewX, t.SkewY = sx, sy
	t.dirty = true
}

// SetPivot sets PivotX and PivotY.
func (t *Transform) SetPivot(px, py float64) {
	t.PivotX, t.PivotY = px, py
	t.dirty = true
}

// SetParent sets the matrix applied after the local transform. nil clears it.
func (t *Transform) SetParent(m *mgl32.Mat3) {
	t.Parent = m
	t.dirty = true
}

// MarkDirty forces the owner to rewrite its vertices on the next Update.
// Useful after bulk-setting fields directly.
func (t *Transform) MarkDirty() {
	t.dirty = true
}

// LocalToWorld converts a local-space point to world space.
func (t *Transform) LocalToWorld(lx, ly float64) (wx, wy float64) {
	x, y := transformPoint(t.Matrix(), float32(lx), float32(ly))
	return float64(x), float64(y)
}

// WorldToLocal converts a world-space point to local space.
func (t *Transform) WorldToLocal(wx, wy float64) (lx, ly float64) {
	x, y := transformPoint(invertTransform(t.Matrix()), float32(wx), float32(wy))
	return float64(x), float64(y)
}

// worldAABB returns the axis-aligned bounds of a w x h local rectangle at
// (ox, oy) under m.
func worldAABB(m mgl32.Mat3, ox, oy, w, h float32) Rect {
	xs := [4]float32{ox, ox + w, ox, ox + w}
	ys := [4]float32{oy, oy, oy + h, oy + h}
	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for i := range xs {
		x, y := transformPoint(m, xs[i], ys[i])
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return Rect{X: float64(minX), Y: float64(minY), Width: float64(maxX - minX), Height: float64(maxY - minY)}
}
