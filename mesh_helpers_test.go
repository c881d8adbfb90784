package sprig

import (
	"errors"
	"testing"
)

// --- Rope ---

func newTestRope(t *testing.T, points []Vec2, cfg RopeConfig) *Rope {
	t.Helper()
	r, err := NewRope(newTestBatch(t), newTestTexture(), points, cfg, Placement{})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRopeBevelJoinMode(t *testing.T) {
	// L-shaped path: bevel mode should not scale normals at the join.
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {10, 10}}, RopeConfig{Width: 4, JoinMode: RopeJoinBevel})
	if n := r.Interfacer().Count(); n != 6 {
		t.Errorf("vertices = %d, want 6", n)
	}
	if n := len(r.Indices()); n != 12 {
		t.Errorf("indices = %d, want 12", n)
	}
	v := r.Vertices()[2]
	if d := float64(v.X-10)*float64(v.X-10) + float64(v.Y)*float64(v.Y); !approxEqual(d, 4, 0.01) {
		t.Errorf("bevel corner offset^2 = %f, want 4", d)
	}
}

func TestRopeMiterJoinExtends(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {10, 10}}, RopeConfig{Width: 4})
	v := r.Vertices()[2]
	// miter at a right angle extends by sqrt(2)
	if d := float64(v.X-10)*float64(v.X-10) + float64(v.Y)*float64(v.Y); !approxEqual(d, 8, 0.01) {
		t.Errorf("miter corner offset^2 = %f, want 8", d)
	}
}

func TestRopeVertexAndIndexCounts(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {20, 0}, {30, 0}}, RopeConfig{Width: 4})
	// 4 points: 8 vertices, 3 segments: 18 indices
	if n := r.Interfacer().Count(); n != 8 {
		t.Errorf("vertices = %d, want 8", n)
	}
	if n := len(r.Interfacer().Indices()); n != 18 {
		t.Errorf("indices = %d, want 18", n)
	}
}

func TestRopeTwoPoints(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}}, RopeConfig{Width: 4})
	// Left-perpendicular of a left-to-right segment is (0, 1).
	pos := floats(t, r.Interfacer(), AttrPosition)
	if !approxEqual(float64(pos[1]), 2, 0.01) {
		t.Errorf("top vertex Y = %f, want 2", pos[1])
	}
	if !approxEqual(float64(pos[3]), -2, 0.01) {
		t.Errorf("bottom vertex Y = %f, want -2", pos[3])
	}
}

func TestRopeUVTiling(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {20, 0}}, RopeConfig{Width: 4})
	for i, want := range []float32{0, 10, 20} {
		if got := r.Vertices()[2*i].U; !approxEqual(float64(got), float64(want), 0.01) {
			t.Errorf("U[%d] = %f, want %f", 2*i, got, want)
		}
	}
}

func TestRopeSetPointsShrinks(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {20, 0}}, RopeConfig{Width: 4})
	start := r.Interfacer().Start()
	if err := r.SetPoints([]Vec2{{0, 0}, {5, 0}}); err != nil {
		t.Fatal(err)
	}
	if n := r.Interfacer().Count(); n != 4 {
		t.Errorf("vertices = %d, want 4", n)
	}
	if n := len(r.Indices()); n != 6 {
		t.Errorf("indices = %d, want 6", n)
	}
	if r.Interfacer().Start() != start {
		t.Error("shrinking moved the claim")
	}
}

func TestRopeTooFewPoints(t *testing.T) {
	if _, err := NewRope(newTestBatch(t), nil, []Vec2{{0, 0}}, RopeConfig{Width: 4}, Placement{}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("single point = %v, want ErrInvalidRange", err)
	}
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}}, RopeConfig{Width: 4})
	if err := r.SetPoints(nil); err != nil {
		t.Fatal(err)
	}
	if r.Interfacer().Visible() {
		t.Error("rope with no path should be hidden")
	}
	if err := r.SetPoints([]Vec2{{0, 0}, {1, 1}}); err != nil {
		t.Fatal(err)
	}
	if !r.Interfacer().Visible() {
		t.Error("rope should reappear with a valid path")
	}
}

func TestRopeInvalidatesAABB(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}}, RopeConfig{Width: 4})
	if w := r.LocalBounds().Width; !approxEqual(w, 10, 0.01) {
		t.Errorf("width = %f, want 10", w)
	}
	_ = r.SetPoints([]Vec2{{0, 0}, {20, 0}})
	if w := r.LocalBounds().Width; !approxEqual(w, 20, 0.01) {
		t.Errorf("width after SetPoints = %f, want 20", w)
	}
}

func TestRopeCurveModes(t *testing.T) {
	start, end := Vec2{X: 0, Y: 0}, Vec2{X: 100, Y: 0}
	ctrl := Vec2{X: 50, Y: 100}
	tests := []struct {
		name  string
		cfg   RopeConfig
		midY  float64
		count int
	}{
		{"line", RopeConfig{CurveMode: RopeCurveLine}, 0, 11},
		{"catenary", RopeConfig{CurveMode: RopeCurveCatenary, Sag: 30}, 30, 11},
		{"quad", RopeConfig{CurveMode: RopeCurveQuadBezier, Controls: [2]*Vec2{&ctrl}}, 50, 11},
		{"cubic", RopeConfig{CurveMode: RopeCurveCubicBezier, Controls: [2]*Vec2{&ctrl, &ctrl}}, 75, 11},
		{"wave", RopeConfig{CurveMode: RopeCurveWave, Amplitude: 10, Frequency: 0.5}, 10, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Start, cfg.End, cfg.Segments = &start, &end, 10
			r := newTestRope(t, []Vec2{{0, 0}, {1, 0}}, cfg)
			if err := r.Update(); err != nil {
				t.Fatal(err)
			}
			if n := r.Interfacer().Count(); n != 2*tt.count {
				t.Fatalf("vertices = %d, want %d", n, 2*tt.count)
			}
			// center line of the middle point, width 0
			mid := r.Vertices()[2*5]
			if !approxEqual(float64(mid.Y), tt.midY, 0.01) {
				t.Errorf("mid Y = %f, want %f", mid.Y, tt.midY)
			}
		})
	}
}

func TestRopeCurveCustom(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {1, 0}}, RopeConfig{
		CurveMode: RopeCurveCustom,
		PointsFunc: func(buf []Vec2) []Vec2 {
			return append(buf[:0], Vec2{0, 0}, Vec2{5, 5}, Vec2{10, 0})
		},
	})
	if err := r.Update(); err != nil {
		t.Fatal(err)
	}
	if n := r.Interfacer().Count(); n != 6 {
		t.Errorf("vertices = %d, want 6", n)
	}
}

func TestRopeMissingEndpointsKeepsPath(t *testing.T) {
	r := newTestRope(t, []Vec2{{0, 0}, {10, 0}, {20, 0}}, RopeConfig{CurveMode: RopeCurveLine})
	if err := r.Update(); err != nil {
		t.Fatal(err)
	}
	if n := r.Interfacer().Count(); n != 6 {
		t.Errorf("vertices = %d, want 6 (unchanged)", n)
	}
}

// --- DistortionGrid ---

func newTestGrid(t *testing.T, cols, rows int) *DistortionGrid {
	t.Helper()
	g, err := NewDistortionGrid(newTestBatch(t), newTestTexture(), cols, rows, Placement{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestDistortionGridDimensions(t *testing.T) {
	g := newTestGrid(t, 4, 3)
	// 4 cols, 3 rows: 5*4 = 20 vertices, 4*3*6 = 72 indices
	if n := g.Interfacer().Count(); n != 20 {
		t.Errorf("vertices = %d, want 20", n)
	}
	if n := len(g.Interfacer().Indices()); n != 72 {
		t.Errorf("indices = %d, want 72", n)
	}
	if g.Cols() != 4 || g.Rows() != 3 {
		t.Errorf("Cols, Rows = %d, %d, want 4, 3", g.Cols(), g.Rows())
	}
}

func TestDistortionGridClampsSize(t *testing.T) {
	g := newTestGrid(t, 0, -2)
	if g.Cols() != 1 || g.Rows() != 1 {
		t.Errorf("Cols, Rows = %d, %d, want 1, 1", g.Cols(), g.Rows())
	}
}

func TestDistortionGridSetVertex(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	// The test texture has no image, so every rest position is (0,0).
	g.SetVertex(1, 1, 5, 10)
	if err := g.Update(); err != nil {
		t.Fatal(err)
	}
	idx := 1*3 + 1
	pos := floats(t, g.Interfacer(), AttrPosition)
	if !approxEqual(float64(pos[2*idx]), 5, 0.01) || !approxEqual(float64(pos[2*idx+1]), 10, 0.01) {
		t.Errorf("SetVertex(1,1, 5,10): got (%f,%f), want (5,10)", pos[2*idx], pos[2*idx+1])
	}
}

func TestDistortionGridSetAllVertices(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	g.SetAllVertices(func(col, row int, restX, restY float64) (dx, dy float64) {
		return float64(col) * 3, float64(row) * 7
	})
	v := g.Vertices()[1*3+2]
	if !approxEqual(float64(v.X), 6, 0.01) || !approxEqual(float64(v.Y), 7, 0.01) {
		t.Errorf("SetAllVertices: vertex = (%f,%f), want (6,7)", v.X, v.Y)
	}
}

func TestDistortionGridResetKeepsUVs(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	orig := make([][2]float32, len(g.Vertices()))
	for i, v := range g.Vertices() {
		orig[i] = [2]float32{v.U, v.V}
	}

	g.SetVertex(0, 0, 99, 99)
	g.Reset()

	if v := g.Vertices()[0]; v.X != 0 || v.Y != 0 {
		t.Errorf("Reset: vertex(0) = (%f,%f), want (0,0)", v.X, v.Y)
	}
	for i, v := range g.Vertices() {
		if v.U != orig[i][0] || v.V != orig[i][1] {
			t.Errorf("UV changed at %d: (%f,%f) vs %v", i, v.U, v.V, orig[i])
		}
	}
}

func TestDistortionGridInvalidatesAABB(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	_ = g.LocalBounds()
	g.SetVertex(2, 2, 5, 5)
	if r := g.LocalBounds(); !approxEqual(r.Width, 5, 0.01) {
		t.Errorf("width after SetVertex = %f, want 5", r.Width)
	}
	g.Reset()
	if r := g.LocalBounds(); r.Width != 0 {
		t.Errorf("width after Reset = %f, want 0", r.Width)
	}
}
