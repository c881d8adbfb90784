package sprig

import "fmt"

// OpKind is the variant of a compiled draw operation.
type OpKind uint8

const (
	OpBindBuffer  OpKind = iota // bind a vertex domain with a program
	OpApplyState                // make one state part current
	OpDrawIndexed               // draw a run of the index buffer
)

// Op is one compiled draw operation. Only the fields of its Kind are set.
type Op struct {
	Kind OpKind

	// OpBindBuffer
	Domain  *VertexDomain
	Program *Program

	// OpApplyState
	Part StatePart

	// OpDrawIndexed: Count indices starting at Start in the index buffer.
	Mode  DrawMode
	Start int
	Count int
}

func (op Op) String() string {
	switch op.Kind {
	case OpBindBuffer:
		return fmt.Sprintf("bind(domain=%d program=%s)", op.Domain.ID(), op.Program.Name)
	case OpApplyState:
		return "apply(" + op.Part.String() + ")"
	case OpDrawIndexed:
		return fmt.Sprintf("draw(%s start=%d count=%d)", op.Mode, op.Start, op.Count)
	default:
		return "unknown"
	}
}
