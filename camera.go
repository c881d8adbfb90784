package sprig

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera produces the view matrix handed to a driver: position, zoom,
// rotation, and viewport.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64
	// Rotation is the camera rotation in radians (clockwise).
	Rotation float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	followTarget  *Transform
	followOffsetX float64
	followOffsetY float64
	followLerp    float64

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to when
	// BoundsEnabled is true.
	Bounds Rect

	viewMatrix    mgl32.Mat3
	invViewMatrix mgl32.Mat3
	lastX, lastY  float64
	lastZoom      float64
	lastRotation  float64
	lastViewport  Rect
	dirty         bool

	scrollTween *scrollAnim
}

// NewCamera creates a Camera with default values and the given viewport.
func NewCamera(viewport Rect) *Camera {
	return &Camera{
		Zoom:     1.0,
		Viewport: viewport,
		dirty:    true,
	}
}

// Follow makes the camera track a transform with the given offset and lerp
// factor. A lerp of 1.0 snaps immediately; lower values give smoother
// following.
func (c *Camera) Follow(target *Transform, offsetX, offsetY, lerp float64) {
	c.followTarget = target
	c.followOffsetX = offsetX
	c.followOffsetY = offsetY
	c.followLerp = lerp
}

// Unfollow stops tracking the current target.
func (c *Camera) Unfollow() {
	c.followTarget = nil
}

// ScrollTo animates the camera to the given world position over duration seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// ScrollToTile scrolls to the center of the given tile in a tile-based layout.
func (c *Camera) ScrollToTile(tileX, tileY int, tileW, tileH float64, duration float32, easeFn ease.TweenFunc) {
	worldX := float64(tileX)*tileW + tileW/2
	worldY := float64(tileY)*tileH + tileH/2
	c.ScrollTo(worldX, worldY, duration, easeFn)
}

// Scrolling reports whether a ScrollTo animation is running.
func (c *Camera) Scrolling() bool {
	return c.scrollTween != nil
}

// SetBounds enables camera bounds clamping.
func (c *Camera) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables camera bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// ClampToBounds immediately clamps the camera position so the visible area
// stays within Bounds. No-op if BoundsEnabled is false.
func (c *Camera) ClampToBounds() {
	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

// Update advances follow, scroll, and bounds clamping by dt seconds.
func (c *Camera) Update(dt float32) {
	if c.followTarget != nil {
		targetX := c.followTarget.X + c.followOffsetX
		targetY := c.followTarget.Y + c.followOffsetY
		if p := c.followTarget.Parent; p != nil {
			x, y := transformPoint(*p, float32(c.followTarget.X), float32(c.followTarget.Y))
			targetX = float64(x) + c.followOffsetX
			targetY = float64(y) + c.followOffsetY
		}
		c.X += (targetX - c.X) * c.followLerp
		c.Y += (targetY - c.Y) * c.followLerp
	}

	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(dt)
			c.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(dt)
			c.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

// clampToBounds restricts camera position so the visible area stays within Bounds.
func (c *Camera) clampToBounds() {
	halfW := c.Viewport.Width / (2 * c.Zoom)
	halfH := c.Viewport.Height / (2 * c.Zoom)

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	// If bounds are smaller than visible area, center the camera.
	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

// ViewMatrix returns the world-to-screen matrix:
//
//	Translate(cx, cy) * Scale(zoom) * Rotate(-rotation) * Translate(-X, -Y)
//
// where cx, cy is the viewport center. It is cached until a field changes.
func (c *Camera) ViewMatrix() mgl32.Mat3 {
	if c.X != c.lastX || c.Y != c.lastY || c.Zoom != c.lastZoom ||
		c.Rotation != c.lastRotation || c.Viewport != c.lastViewport {
		c.dirty = true
	}
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false
	c.lastX, c.lastY, c.lastZoom = c.X, c.Y, c.Zoom
	c.lastRotation, c.lastViewport = c.Rotation, c.Viewport

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	z := float32(c.Zoom)

	c.viewMatrix = mgl32.Translate2D(float32(cx), float32(cy)).
		Mul3(mgl32.Scale2D(z, z)).
		Mul3(mgl32.HomogRotate2D(float32(-c.Rotation))).
		Mul3(mgl32.Translate2D(float32(-c.X), float32(-c.Y)))
	c.invViewMatrix = invertTransform(c.viewMatrix)
	return c.viewMatrix
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	x, y := transformPoint(c.ViewMatrix(), float32(wx), float32(wy))
	return float64(x), float64(y)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.ViewMatrix()
	x, y := transformPoint(c.invViewMatrix, float32(sx), float32(sy))
	return float64(x), float64(y)
}

// VisibleBounds returns the axis-aligned bounding rect of the camera's visible
// area in world space.
func (c *Camera) VisibleBounds() Rect {
	c.ViewMatrix()
	return worldAABB(c.invViewMatrix,
		float32(c.Viewport.X), float32(c.Viewport.Y),
		float32(c.Viewport.Width), float32(c.Viewport.Height))
}

// Cullable is a drawable whose visibility the camera can toggle.
type Cullable interface {
	Bounds() Rect
	SetVisible(bool) error
}

// Cull hides every item whose world bounds miss the visible area and shows
// the rest. Hidden items are pruned from their draw list on the next
// compile. Items with empty bounds are left visible. It returns the number
// of items hidden.
func (c *Camera) Cull(items ...Cullable) (int, error) {
	view := c.VisibleBounds()
	hidden := 0
	for _, it := range items {
		b := it.Bounds()
		visible := (b.Width == 0 && b.Height == 0) || b.Intersects(view)
		if !visible {
			hidden++
		}
		if err := it.SetVisible(visible); err != nil {
			return hidden, err
		}
	}
	return hidden, nil
}
