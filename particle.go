package sprig

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// particle holds per-particle simulation state.
type particle struct {
	x, y       float64
	vx, vy     float64
	life       float64 // remaining lifetime in seconds
	maxLife    float64
	startScale float32
	endScale   float32
	scale      float32
	startAlpha float32
	endAlpha   float32
	alpha      float32
	start      [3]float32
	end        [3]float32
	rgb        [3]float32
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

// Random returns a random float64 in [Min, Max].
func (r Range) Random() float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rand.Float64()*(r.Max-r.Min)
}

// EmitterConfig controls how particles are spawned and behave.
type EmitterConfig struct {
	// MaxParticles is the pool size. New particles are dropped when full.
	MaxParticles int
	// EmitRate is the number of particles spawned per second.
	EmitRate float64
	// Lifetime is the range of particle lifetimes in seconds.
	Lifetime Range
	// Speed is the range of initial speeds in pixels per second.
	Speed Range
	// Angle is the range of emission angles in radians.
	Angle Range
	// StartScale is interpolated to EndScale over a particle's lifetime.
	StartScale Range
	EndScale   Range
	// StartAlpha is interpolated to EndAlpha over a particle's lifetime.
	StartAlpha Range
	EndAlpha   Range
	// Gravity is the constant acceleration applied to all particles.
	Gravity Vec2
	// StartColor is interpolated to EndColor over a particle's lifetime.
	StartColor Color
	EndColor   Color
	// Region is drawn centered on each particle.
	Region    TextureRegion
	BlendMode BlendMode
	// WorldSpace keeps particles where they were emitted instead of
	// following the emitter's transform.
	WorldSpace bool
}

// ParticleEmitter simulates a pool of particles on the CPU and draws them
// as quads of a single interfacer. Dead slots are written as degenerate
// quads so the draw list does not need recompiling as particles come and go.
type ParticleEmitter struct {
	Transform

	config    EmitterConfig
	particles []particle
	alive     int
	emitAccum float64
	active    bool
	iface     *Interfacer

	pos []float32
	uv  []float32
	col []float32
}

// NewParticleEmitter creates a stopped emitter with a preallocated pool.
func NewParticleEmitter(b *Batch, cfg EmitterConfig, at Placement) (*ParticleEmitter, error) {
	n := cfg.MaxParticles
	if n <= 0 {
		n = 128
	}
	e := &ParticleEmitter{
		Transform: NewTransform(),
		config:    cfg,
		particles: make([]particle, n),
		pos:       make([]float32, 8*n),
		uv:        make([]float32, 8*n),
		col:       make([]float32, 16*n),
	}
	indices := make([]uint32, 0, 6*n)
	for i := range n {
		base := uint32(4 * i)
		for _, q := range quadIndices {
			indices = append(indices, base+q)
		}
	}
	it, err := b.Add(VertexSpec{
		Formats: spriteFormats,
		Count:   4 * n,
		Mode:    ModeTriangles,
		Indices: indices,
		State:   e.state(),
		At:      at,
	})
	if err != nil {
		return nil, fmt.Errorf("sprig: new particle emitter: %w", err)
	}
	e.iface = it
	if err := e.writeVertices(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *ParticleEmitter) state() State {
	var tex Texture = WhiteTexture()
	if a := e.config.Region.Atlas(); a != nil {
		tex = a
	}
	return NewState(TexturePart(0, tex), BlendPart(e.config.BlendMode))
}

// Interfacer returns the emitter's vertex claim.
func (e *ParticleEmitter) Interfacer() *Interfacer {
	return e.iface
}

// Start begins emitting particles.
func (e *ParticleEmitter) Start() {
	e.active = true
}

// Stop stops emitting new particles. Existing particles live out.
func (e *ParticleEmitter) Stop() {
	e.active = false
}

// Reset stops emitting and kills all alive particles.
func (e *ParticleEmitter) Reset() {
	e.active = false
	e.alive = 0
	e.emitAccum = 0
}

// IsActive reports whether the emitter is emitting new particles.
func (e *ParticleEmitter) IsActive() bool {
	return e.active
}

// AliveCount returns the number of alive particles.
func (e *ParticleEmitter) AliveCount() int {
	return e.alive
}

// Capacity returns the pool size.
func (e *ParticleEmitter) Capacity() int {
	return len(e.particles)
}

// Config returns the emitter's config for live tuning. Call SetConfig
// instead when changing Region or BlendMode.
func (e *ParticleEmitter) Config() *EmitterConfig {
	return &e.config
}

// SetConfig replaces the config, keeping the pool size and live particles.
func (e *ParticleEmitter) SetConfig(cfg EmitterConfig) error {
	cfg.MaxParticles = len(e.particles)
	e.config = cfg
	return e.iface.SetState(e.state())
}

// SetVisible shows or hides the emitter.
func (e *ParticleEmitter) SetVisible(v bool) error {
	return e.iface.SetVisible(v)
}

// Delete releases the emitter's vertices.
func (e *ParticleEmitter) Delete() error {
	return e.iface.Delete()
}

// Update advances the simulation by dt seconds and writes the particles.
func (e *ParticleEmitter) Update(dt float64) error {
	e.simulate(dt)
	return e.writeVertices()
}

func (e *ParticleEmitter) simulate(dt float64) {
	gx := e.config.Gravity.X * dt
	gy := e.config.Gravity.Y * dt

	i := 0
	for i < e.alive {
		p := &e.particles[i]
		p.life -= dt
		if p.life <= 0 {
			e.alive--
			e.particles[i] = e.particles[e.alive]
			continue
		}
		p.vx += gx
		p.vy += gy
		p.x += p.vx * dt
		p.y += p.vy * dt

		t := float32(1 - p.life/p.maxLife)
		p.scale = lerp32(p.startScale, p.endScale, t)
		p.alpha = lerp32(p.startAlpha, p.endAlpha, t)
		for c := range p.rgb {
			p.rgb[c] = lerp32(p.start[c], p.end[c], t)
		}
		i++
	}

	if e.active && e.config.EmitRate > 0 {
		e.emitAccum += e.config.EmitRate * dt
		for e.emitAccum >= 1 {
			e.emitAccum--
			if e.alive < len(e.particles) {
				e.spawn()
			}
		}
	}
}

// spawn initializes the particle at slot e.alive.
func (e *ParticleEmitter) spawn() {
	cfg := &e.config
	p := &e.particles[e.alive]

	angle := cfg.Angle.Random()
	speed := cfg.Speed.Random()
	p.vx = math.Cos(angle) * speed
	p.vy = math.Sin(angle) * speed

	p.x, p.y = 0, 0
	if cfg.WorldSpace {
		p.x, p.y = e.LocalToWorld(0, 0)
	}

	p.life = cfg.Lifetime.Random()
	if p.life <= 0 {
		p.life = 1
	}
	p.maxLife = p.life

	p.startScale = float32(cfg.StartScale.Random())
	p.endScale = float32(cfg.EndScale.Random())
	p.scale = p.startScale
	p.startAlpha = float32(cfg.StartAlpha.Random())
	p.endAlpha = float32(cfg.EndAlpha.Random())
	p.alpha = p.startAlpha
	p.start = [3]float32{float32(cfg.StartColor.R), float32(cfg.StartColor.G), float32(cfg.StartColor.B)}
	p.end = [3]float32{float32(cfg.EndColor.R), float32(cfg.EndColor.G), float32(cfg.EndColor.B)}
	p.rgb = p.start

	e.alive++
}

func (e *ParticleEmitter) writeVertices() error {
	m := e.Matrix()
	r := e.config.Region
	hw, hh := float32(r.Width)/2, float32(r.Height)/2
	u0, v0, u1, v1 := r.TexCoords()
	clear(e.pos)
	clear(e.col)
	for i := 0; i < e.alive; i++ {
		p := &e.particles[i]
		w, h := hw*p.scale, hh*p.scale
		px, py := float32(p.x), float32(p.y)
		corners := [4][2]float32{{px - w, py - h}, {px + w, py - h}, {px - w, py + h}, {px + w, py + h}}
		for k, c := range corners {
			x, y := c[0], c[1]
			if !e.config.WorldSpace {
				x, y = transformPoint(m, x, y)
			}
			e.pos[8*i+2*k], e.pos[8*i+2*k+1] = x, y
			a := p.alpha
			copy(e.col[16*i+4*k:], []float32{p.rgb[0] * a, p.rgb[1] * a, p.rgb[2] * a, a})
		}
		copy(e.uv[8*i:], []float32{u0, v0, u1, v0, u0, v1, u1, v1})
	}
	e.dirty = false
	if err := e.iface.SetFloat32s(AttrPosition, e.pos); err != nil {
		return err
	}
	if err := e.iface.SetFloat32s(AttrTexCoord, e.uv); err != nil {
		return err
	}
	return e.iface.SetFloat32s(AttrColor, e.col)
}

func lerp32(a, b, t float32) float32 {
	return a + (b-a)*t
}
