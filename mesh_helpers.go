package sprig

import (
	"fmt"
	"math"
)

// textureSize returns the pixel size of a texture's image, or zero when it
// has none.
func textureSize(tex Texture) (w, h float64) {
	if tex == nil || tex.Image() == nil {
		return 0, 0
	}
	b := tex.Image().Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// --- Rope ---

// RopeJoinMode controls how segments join in a Rope mesh.
type RopeJoinMode uint8

const (
	// RopeJoinMiter extends segment corners to a sharp point.
	RopeJoinMiter RopeJoinMode = iota
	// RopeJoinBevel flattens corners, avoiding spikes.
	RopeJoinBevel
)

// RopeCurveMode selects the curve algorithm used by Rope.Update.
type RopeCurveMode uint8

const (
	// RopeCurveNone keeps the points given to SetPoints.
	RopeCurveNone RopeCurveMode = iota
	// RopeCurveLine draws a straight line between Start and End.
	RopeCurveLine
	// RopeCurveCatenary simulates a drooping rope with gravity sag.
	RopeCurveCatenary
	// RopeCurveQuadBezier uses a quadratic Bezier with one control point.
	RopeCurveQuadBezier
	// RopeCurveCubicBezier uses a cubic Bezier with two control points.
	RopeCurveCubicBezier
	// RopeCurveWave produces a sinusoidal wave along the line.
	RopeCurveWave
	// RopeCurveCustom calls a user-provided PointsFunc callback.
	RopeCurveCustom
)

// RopeConfig configures a Rope mesh.
type RopeConfig struct {
	Width    float64
	JoinMode RopeJoinMode

	CurveMode RopeCurveMode
	Segments  int // number of subdivisions (default 20)

	// Endpoint positions. Update dereferences these each call, so you can
	// bind them once and mutate the underlying Vec2 freely.
	Start *Vec2
	End   *Vec2

	// Catenary sag in pixels (downward droop).
	Sag float64

	// Bezier control points. Quadratic uses Controls[0]; cubic uses both.
	Controls [2]*Vec2

	// Wave parameters.
	Amplitude float64
	Frequency float64 // cycles along the rope length
	Phase     float64 // phase offset in radians

	// Custom callback. Receives a preallocated buffer; must return the slice to use.
	PointsFunc func(buf []Vec2) []Vec2
}

// Rope is a ribbon mesh following a polyline. The texture is tiled along the
// path and spans its full height across the ribbon.
type Rope struct {
	*Mesh
	config RopeConfig
	cumLen []float64
	ptsBuf []Vec2
	verts  []MeshVertex
	inds   []uint32
}

// NewRope creates a rope mesh along points. tex nil selects the shared white
// texture. At least two points are required.
func NewRope(b *Batch, tex Texture, points []Vec2, cfg RopeConfig, at Placement) (*Rope, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("sprig: new rope: %w: %d points", ErrInvalidRange, len(points))
	}
	if tex == nil {
		tex = WhiteTexture()
	}
	r := &Rope{config: cfg}
	_, texH := textureSize(tex)
	r.build(points, texH)
	m, err := NewMesh(b, tex, r.verts, r.inds, at)
	if err != nil {
		return nil, err
	}
	r.Mesh = m
	return r, nil
}

// Config returns the rope's configuration so callers can mutate fields
// before calling Update.
func (r *Rope) Config() *RopeConfig {
	return &r.config
}

// Update recomputes the path from the configured curve, rebuilds the mesh,
// and writes its vertices. Curves other than RopeCurveNone and
// RopeCurveCustom need Start and End.
func (r *Rope) Update() error {
	if pts, ok := r.curvePoints(); ok {
		if err := r.SetPoints(pts); err != nil {
			return err
		}
	}
	return r.Mesh.Update()
}

func (r *Rope) curvePoints() ([]Vec2, bool) {
	switch r.config.CurveMode {
	case RopeCurveNone:
		return nil, false
	case RopeCurveCustom:
		if r.config.PointsFunc == nil {
			return nil, false
		}
	default:
		if r.config.Start == nil || r.config.End == nil {
			return nil, false
		}
	}

	segs := r.config.Segments
	if segs <= 0 {
		segs = 20
	}
	n := segs + 1
	if cap(r.ptsBuf) < n {
		r.ptsBuf = make([]Vec2, n)
	}
	r.ptsBuf = r.ptsBuf[:n]

	switch r.config.CurveMode {
	case RopeCurveLine:
		s, e := *r.config.Start, *r.config.End
		for i := 0; i < n; i++ {
			t := float64(i) / float64(segs)
			r.ptsBuf[i] = Vec2{X: s.X + (e.X-s.X)*t, Y: s.Y + (e.Y-s.Y)*t}
		}

	case RopeCurveCatenary:
		s, e := *r.config.Start, *r.config.End
		for i := 0; i < n; i++ {
			t := float64(i) / float64(segs)
			r.ptsBuf[i] = Vec2{
				X: s.X + (e.X-s.X)*t,
				Y: s.Y + (e.Y-s.Y)*t + r.config.Sag*math.Sin(math.Pi*t),
			}
		}

	case RopeCurveQuadBezier:
		if r.config.Controls[0] == nil {
			return nil, false
		}
		a, c, b := *r.config.Start, *r.config.Controls[0], *r.config.End
		for i := 0; i < n; i++ {
			t := float64(i) / float64(segs)
			u := 1 - t
			r.ptsBuf[i] = Vec2{
				X: u*u*a.X + 2*u*t*c.X + t*t*b.X,
				Y: u*u*a.Y + 2*u*t*c.Y + t*t*b.Y,
			}
		}

	case RopeCurveCubicBezier:
		if r.config.Controls[0] == nil || r.config.Controls[1] == nil {
			return nil, false
		}
		a, c1, c2, b := *r.config.Start, *r.config.Controls[0], *r.config.Controls[1], *r.config.End
		for i := 0; i < n; i++ {
			t := float64(i) / float64(segs)
			u := 1 - t
			u2, t2 := u*u, t*t
			r.ptsBuf[i] = Vec2{
				X: u2*u*a.X + 3*u2*t*c1.X + 3*u*t2*c2.X + t2*t*b.X,
				Y: u2*u*a.Y + 3*u2*t*c1.Y + 3*u*t2*c2.Y + t2*t*b.Y,
			}
		}

	case RopeCurveWave:
		s, e := *r.config.Start, *r.config.End
		dx, dy := e.X-s.X, e.Y-s.Y
		ln := math.Sqrt(dx*dx + dy*dy)
		var px, py float64
		if ln > 1e-10 {
			px, py = -dy/ln, dx/ln
		}
		for i := 0; i < n; i++ {
			t := float64(i) / float64(segs)
			off := r.config.Amplitude * math.Sin(r.config.Frequency*2*math.Pi*t+r.config.Phase)
			r.ptsBuf[i] = Vec2{X: s.X + dx*t + px*off, Y: s.Y + dy*t + py*off}
		}

	case RopeCurveCustom:
		r.ptsBuf = r.config.PointsFunc(r.ptsBuf)
	}
	return r.ptsBuf, true
}

// SetPoints replaces the rope's path. For N points: 2N vertices, 6(N-1)
// indices. Fewer than two points hide the rope until a valid path is set.
func (r *Rope) SetPoints(points []Vec2) error {
	if len(points) < 2 {
		return r.SetVisible(false)
	}
	_, texH := textureSize(r.texture)
	r.build(points, texH)
	if err := r.SetVertices(r.verts, r.inds); err != nil {
		return err
	}
	return r.SetVisible(true)
}

// build fills r.verts and r.inds for points, reusing the buffers.
func (r *Rope) build(points []Vec2, texH float64) {
	n := len(points)
	if cap(r.verts) < 2*n {
		r.verts = make([]MeshVertex, 2*n)
	}
	r.verts = r.verts[:2*n]
	if cap(r.inds) < 6*(n-1) {
		r.inds = make([]uint32, 6*(n-1))
	}
	r.inds = r.inds[:6*(n-1)]

	if cap(r.cumLen) < n {
		r.cumLen = make([]float64, n)
	}
	r.cumLen = r.cumLen[:n]
	r.cumLen[0] = 0
	for i := 1; i < n; i++ {
		dx := points[i].X - points[i-1].X
		dy := points[i].Y - points[i-1].Y
		r.cumLen[i] = r.cumLen[i-1] + math.Sqrt(dx*dx+dy*dy)
	}

	halfW := r.config.Width / 2
	for i := 0; i < n; i++ {
		var nx, ny float64
		switch i {
		case 0:
			nx, ny = perpendicular(points[0], points[1])
		case n - 1:
			nx, ny = perpendicular(points[n-2], points[n-1])
		default:
			// average of adjacent segment normals
			nx0, ny0 := perpendicular(points[i-1], points[i])
			nx1, ny1 := perpendicular(points[i], points[i+1])
			nx, ny = nx0+nx1, ny0+ny1
			if ln := math.Sqrt(nx*nx + ny*ny); ln > 1e-10 {
				nx /= ln
				ny /= ln
			}
			if r.config.JoinMode == RopeJoinMiter {
				// keep the width at the miter, clamped to 2x at sharp corners
				if dot := nx0*nx + ny0*ny; dot > 0.1 {
					scale := min(1.0/dot, 2.0)
					nx *= scale
					ny *= scale
				}
			}
		}

		u := float32(r.cumLen[i])
		r.verts[2*i] = MeshVertex{
			X: float32(points[i].X + nx*halfW), Y: float32(points[i].Y + ny*halfW),
			U: u, V: 0, Color: ColorWhite,
		}
		r.verts[2*i+1] = MeshVertex{
			X: float32(points[i].X - nx*halfW), Y: float32(points[i].Y - ny*halfW),
			U: u, V: float32(texH), Color: ColorWhite,
		}
	}

	for i := 0; i < n-1; i++ {
		v := uint32(i * 2)
		copy(r.inds[i*6:], []uint32{v, v + 1, v + 2, v + 1, v + 3, v + 2})
	}
}

// perpendicular returns the unit left-perpendicular of the segment from a to b.
func perpendicular(a, b Vec2) (float64, float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	ln := math.Sqrt(dx*dx + dy*dy)
	if ln < 1e-10 {
		return 0, -1
	}
	return -dy / ln, dx / ln
}

// --- DistortionGrid ---

// DistortionGrid is a grid mesh over a texture that can be deformed per
// vertex.
type DistortionGrid struct {
	*Mesh
	cols    int
	rows    int
	restPos []Vec2
}

// NewDistortionGrid creates a grid mesh covering tex. cols and rows are the
// number of cells (vertices = (cols+1) * (rows+1)) and are clamped to 1.
func NewDistortionGrid(b *Batch, tex Texture, cols, rows int, at Placement) (*DistortionGrid, error) {
	cols, rows = max(cols, 1), max(rows, 1)
	if tex == nil {
		tex = WhiteTexture()
	}
	texW, texH := textureSize(tex)

	vcols, vrows := cols+1, rows+1
	verts := make([]MeshVertex, vcols*vrows)
	inds := make([]uint32, 0, cols*rows*6)
	restPos := make([]Vec2, vcols*vrows)

	cellW := texW / float64(cols)
	cellH := texH / float64(rows)
	for r := 0; r < vrows; r++ {
		for c := 0; c < vcols; c++ {
			idx := r*vcols + c
			x, y := float64(c)*cellW, float64(r)*cellH
			verts[idx] = MeshVertex{X: float32(x), Y: float32(y), U: float32(x), V: float32(y), Color: ColorWhite}
			restPos[idx] = Vec2{X: x, Y: y}
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			tl := uint32(r*vcols + c)
			tr := tl + 1
			bl := uint32((r+1)*vcols + c)
			br := bl + 1
			inds = append(inds, tl, bl, tr, tr, bl, br)
		}
	}

	m, err := NewMesh(b, tex, verts, inds, at)
	if err != nil {
		return nil, err
	}
	return &DistortionGrid{Mesh: m, cols: cols, rows: rows, restPos: restPos}, nil
}

// Cols returns the number of grid columns.
func (g *DistortionGrid) Cols() int { return g.cols }

// Rows returns the number of grid rows.
func (g *DistortionGrid) Rows() int { return g.rows }

// SetVertex offsets a single grid vertex by (dx, dy) from its rest position.
func (g *DistortionGrid) SetVertex(col, row int, dx, dy float64) {
	idx := row*(g.cols+1) + col
	rest := g.restPos[idx]
	g.verts[idx].X = float32(rest.X + dx)
	g.verts[idx].Y = float32(rest.Y + dy)
	g.InvalidateVertices()
}

// SetAllVertices calls fn for each vertex, passing (col, row, restX, restY).
// fn returns the (dx, dy) displacement from the rest position.
func (g *DistortionGrid) SetAllVertices(fn func(col, row int, restX, restY float64) (dx, dy float64)) {
	vcols := g.cols + 1
	for r := 0; r <= g.rows; r++ {
		for c := 0; c < vcols; c++ {
			idx := r*vcols + c
			rest := g.restPos[idx]
			dx, dy := fn(c, r, rest.X, rest.Y)
			g.verts[idx].X = float32(rest.X + dx)
			g.verts[idx].Y = float32(rest.Y + dy)
		}
	}
	g.InvalidateVertices()
}

// Reset returns all vertices to their rest positions.
func (g *DistortionGrid) Reset() {
	for idx, rest := range g.restPos {
		g.verts[idx].X = float32(rest.X)
		g.verts[idx].Y = float32(rest.Y)
	}
	g.InvalidateVertices()
}
