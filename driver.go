package sprig

import "fmt"

// Driver executes compiled operations against a graphics backend.
type Driver interface {
	// SetIndices uploads the index buffer used by the following draws.
	SetIndices(indices []uint32)
	// BindBuffer makes a vertex domain and program current.
	BindBuffer(d *VertexDomain, p *Program)
	// ApplyState makes a state part current. Parts of other kinds and slots
	// stay as they were.
	ApplyState(p StatePart)
	// DrawIndexed draws count indices starting at start.
	DrawIndexed(mode DrawMode, start, count int)
}

// Replay uploads indices and executes ops in order on d.
func Replay(d Driver, ops []Op, indices []uint32) {
	d.SetIndices(indices)
	for i := range ops {
		op := &ops[i]
		switch op.Kind {
		case OpBindBuffer:
			d.BindBuffer(op.Domain, op.Program)
		case OpApplyState:
			d.ApplyState(op.Part)
		case OpDrawIndexed:
			d.DrawIndexed(op.Mode, op.Start, op.Count)
		}
	}
}

// Recorder is a Driver that records every call as text. It is useful for
// inspecting compiled output without a graphics context.
type Recorder struct {
	Indices []uint32
	Calls   []string
}

// SetIndices implements Driver.
func (r *Recorder) SetIndices(indices []uint32) {
	r.Indices = append(r.Indices[:0], indices...)
}

// BindBuffer implements Driver.
func (r *Recorder) BindBuffer(d *VertexDomain, p *Program) {
	r.Calls = append(r.Calls, fmt.Sprintf("bind %d %s", d.ID(), p.Name))
}

// ApplyState implements Driver.
func (r *Recorder) ApplyState(p StatePart) {
	r.Calls = append(r.Calls, "apply "+p.String())
}

// DrawIndexed implements Driver.
func (r *Recorder) DrawIndexed(mode DrawMode, start, count int) {
	r.Calls = append(r.Calls, fmt.Sprintf("draw %s %d %d", mode, start, count))
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.Indices = r.Indices[:0]
	r.Calls = r.Calls[:0]
}
