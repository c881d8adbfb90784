package sprig

import (
	"cmp"
	"fmt"
	"hash/fnv"
	"image"
	"slices"
	"strconv"
)

// PartKind is the variant of a StatePart.
type PartKind uint8

const (
	PartProgram PartKind = iota // shader program
	PartTexture                 // texture bound to a unit
	PartBlend                   // blend function
	PartUniform                 // named uniform value
	PartScissor                 // clip rectangle
)

func (k PartKind) String() string {
	switch k {
	case PartProgram:
		return "program"
	case PartTexture:
		return "texture"
	case PartBlend:
		return "blend"
	case PartUniform:
		return "uniform"
	case PartScissor:
		return "scissor"
	default:
		return "unknown"
	}
}

// PartID is the identity of a state part: its kind plus a discriminator
// derived from its value. Parts with equal identities are interchangeable.
type PartID struct {
	Kind PartKind
	Key  string
}

func comparePartIDs(a, b PartID) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// StatePart is one independently switchable piece of render state. Build
// parts with ProgramPart, TexturePart, BlendPart, UniformPart and
// ScissorPart.
type StatePart struct {
	id   PartID
	slot string // parts sharing kind and slot replace each other in a State

	program *Program
	texture Texture
	unit    int
	blend   BlendMode
	name    string
	value   any
	scissor image.Rectangle
}

// ProgramPart binds a shader program.
func ProgramPart(p *Program) StatePart {
	return StatePart{
		id:      PartID{PartProgram, p.Name + "#" + strconv.FormatUint(p.id, 10)},
		program: p,
	}
}

// TexturePart binds tex to a texture unit.
func TexturePart(unit int, tex Texture) StatePart {
	u := strconv.Itoa(unit)
	return StatePart{
		id:      PartID{PartTexture, u + ":" + strconv.FormatUint(tex.TextureID(), 10)},
		slot:    u,
		texture: tex,
		unit:    unit,
	}
}

// BlendPart selects a blend function.
func BlendPart(b BlendMode) StatePart {
	return StatePart{id: PartID{PartBlend, b.String()}, blend: b}
}

// UniformPart sets a named shader uniform. The value becomes part of the
// identity, so switching between two values is always a state change.
// Values must be uniform types accepted by Ebitengine (float32, []float32,
// int, []int and their fixed-size array forms).
func UniformPart(name string, value any) StatePart {
	return StatePart{
		id:    PartID{PartUniform, fmt.Sprintf("%s=%v", name, value)},
		slot:  name,
		name:  name,
		value: value,
	}
}

// ScissorPart clips drawing to r in target pixels.
func ScissorPart(r image.Rectangle) StatePart {
	return StatePart{id: PartID{PartScissor, r.String()}, scissor: r}
}

// ID returns the part identity.
func (p StatePart) ID() PartID { return p.id }

// Kind returns the part variant.
func (p StatePart) Kind() PartKind { return p.id.Kind }

// Program returns the program of a PartProgram part.
func (p StatePart) Program() *Program { return p.program }

// Texture returns the unit and texture of a PartTexture part.
func (p StatePart) Texture() (int, Texture) { return p.unit, p.texture }

// Blend returns the blend mode of a PartBlend part.
func (p StatePart) Blend() BlendMode { return p.blend }

// Uniform returns the name and value of a PartUniform part.
func (p StatePart) Uniform() (string, any) { return p.name, p.value }

// Scissor returns the clip rectangle of a PartScissor part.
func (p StatePart) Scissor() image.Rectangle { return p.scissor }

func (p StatePart) String() string {
	return p.id.Kind.String() + "(" + p.id.Key + ")"
}

// State is an immutable set of state parts ordered by identity. The zero
// value is the empty state.
type State struct {
	parts []StatePart
	hash  uint64
}

// NewState builds a state. Of several parts with the same kind and slot
// (the same texture unit, the same uniform name, or any two programs) the
// last one wins.
func NewState(parts ...StatePart) State {
	if len(parts) == 0 {
		return State{}
	}
	kept := make([]StatePart, 0, len(parts))
	for i, p := range parts {
		shadowed := false
		for _, q := range parts[i+1:] {
			if q.id.Kind == p.id.Kind && q.slot == p.slot {
				shadowed = true
				break
			}
		}
		if !shadowed {
			kept = append(kept, p)
		}
	}
	slices.SortFunc(kept, func(a, b StatePart) int { return comparePartIDs(a.id, b.id) })
	h := fnv.New64a()
	for _, p := range kept {
		h.Write([]byte{byte(p.id.Kind)})
		h.Write([]byte(p.id.Key))
		h.Write([]byte{0})
	}
	return State{parts: kept, hash: h.Sum64()}
}

// Parts returns the parts in identity order. Callers must not modify the slice.
func (s State) Parts() []StatePart { return s.parts }

// Len returns the number of parts.
func (s State) Len() int { return len(s.parts) }

// Hash returns a stable 64-bit hash of the identity set. The empty state
// hashes to zero.
func (s State) Hash() uint64 { return s.hash }

// Has reports whether a part with identity id is present.
func (s State) Has(id PartID) bool {
	_, ok := slices.BinarySearchFunc(s.parts, id, func(p StatePart, id PartID) int {
		return comparePartIDs(p.id, id)
	})
	return ok
}

// Equal reports whether s and o have the same identity set.
func (s State) Equal(o State) bool {
	if s.hash != o.hash || len(s.parts) != len(o.parts) {
		return false
	}
	for i := range s.parts {
		if s.parts[i].id != o.parts[i].id {
			return false
		}
	}
	return true
}

// Merge returns s overlaid by o: parts of o replace parts of s with the same
// kind and slot.
func (s State) Merge(o State) State {
	switch {
	case len(o.parts) == 0:
		return s
	case len(s.parts) == 0:
		return o
	}
	all := make([]StatePart, 0, len(s.parts)+len(o.parts))
	all = append(all, s.parts...)
	all = append(all, o.parts...)
	return NewState(all...)
}

// Program returns the state's program, or DefaultProgram if it has none.
func (s State) Program() *Program {
	if len(s.parts) > 0 && s.parts[0].id.Kind == PartProgram {
		return s.parts[0].program
	}
	return DefaultProgram
}

func (s State) String() string {
	out := "{"
	for i, p := range s.parts {
		if i > 0 {
			out += " "
		}
		out += p.String()
	}
	return out + "}"
}

// Switch returns the parts of next whose identity is absent from prev. A
// part present in both is already current and is not repeated.
func Switch(prev, next State) []StatePart {
	var out []StatePart
	i := 0
	for _, p := range next.parts {
		for i < len(prev.parts) && comparePartIDs(prev.parts[i].id, p.id) < 0 {
			i++
		}
		if i < len(prev.parts) && prev.parts[i].id == p.id {
			continue
		}
		out = append(out, p)
	}
	return out
}
