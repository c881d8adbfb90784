package sprig

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
	"honnef.co/go/safeish"
)

// ScalarType is the component type of a vertex attribute.
type ScalarType uint8

const (
	Float32 ScalarType = iota // 'f'
	Uint8                     // 'B'
	Uint16                    // 'H'
	Uint32                    // 'I'
	Int32                     // 'i'
)

// Size returns the component size in bytes.
func (t ScalarType) Size() int {
	switch t {
	case Uint8:
		return 1
	case Uint16:
		return 2
	default:
		return 4
	}
}

func (t ScalarType) code() byte {
	return "fBHIi"[t]
}

func scalarTypeFromCode(c byte) (ScalarType, bool) {
	i := strings.IndexByte("fBHIi", c)
	if i < 0 {
		return 0, false
	}
	return ScalarType(i), true
}

// AttributeFormat describes one per-vertex attribute.
type AttributeFormat struct {
	Name       string
	Count      int // components per element, 1 to 4
	Type       ScalarType
	Normalized bool // integer components map to [0, 1]
}

// Stride returns the size in bytes of one element.
func (f AttributeFormat) Stride() int {
	return f.Count * f.Type.Size()
}

// String returns the format in the form accepted by ParseAttributeFormat.
func (f AttributeFormat) String() string {
	s := f.Name + ":" + strconv.Itoa(f.Count) + string(f.Type.code())
	if f.Normalized {
		s += "n"
	}
	return s
}

// ParseAttributeFormat parses "name:<count><type>[n]", for example
// "position:2f" or "color:4Bn". Type codes are f (float32), B (uint8),
// H (uint16), I (uint32) and i (int32).
func ParseAttributeFormat(s string) (AttributeFormat, error) {
	name, spec, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" || len(spec) < 2 {
		return AttributeFormat{}, fmt.Errorf("sprig: attribute format %q: want name:<count><type>", s)
	}
	f := AttributeFormat{Name: name}
	if strings.HasSuffix(spec, "n") {
		f.Normalized = true
		spec = spec[:len(spec)-1]
	}
	if len(spec) < 2 {
		return AttributeFormat{}, fmt.Errorf("sprig: attribute format %q: missing type", s)
	}
	t, ok := scalarTypeFromCode(spec[len(spec)-1])
	if !ok {
		return AttributeFormat{}, fmt.Errorf("sprig: attribute format %q: unknown type %q", s, spec[len(spec)-1])
	}
	f.Type = t
	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n < 1 || n > 4 {
		return AttributeFormat{}, fmt.Errorf("sprig: attribute format %q: count must be 1 to 4", s)
	}
	f.Count = n
	if f.Normalized && f.Type == Float32 {
		return AttributeFormat{}, fmt.Errorf("sprig: attribute format %q: float attributes cannot be normalized", s)
	}
	return f, nil
}

// ParseAttributeFormats parses a comma-separated list of attribute formats.
// Names must be unique.
func ParseAttributeFormats(s string) ([]AttributeFormat, error) {
	var out []AttributeFormat
	seen := make(map[string]bool)
	for part := range strings.SplitSeq(s, ",") {
		f, err := ParseAttributeFormat(part)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("sprig: attribute %q listed twice", f.Name)
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out, nil
}

// formatsKey returns a canonical string for a set of formats, used to find
// compatible domains.
func formatsKey(formats []AttributeFormat) string {
	var sb strings.Builder
	for i, f := range formats {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.String())
	}
	return sb.String()
}

// AttributeBuffer is the growable storage of one attribute in a vertex
// domain, addressed by element index.
type AttributeBuffer struct {
	format   AttributeFormat
	stride   int
	capacity int
	data     []byte
}

func newAttributeBuffer(f AttributeFormat, capacity int) *AttributeBuffer {
	return &AttributeBuffer{
		format:   f,
		stride:   f.Stride(),
		capacity: capacity,
		data:     make([]byte, capacity*f.Stride()),
	}
}

// Format returns the attribute format.
func (b *AttributeBuffer) Format() AttributeFormat {
	return b.format
}

// Capacity returns the element capacity.
func (b *AttributeBuffer) Capacity() int {
	return b.capacity
}

// resize grows the buffer to capacity elements, preserving existing data and
// zero-filling the extension.
func (b *AttributeBuffer) resize(capacity int) {
	if capacity <= b.capacity {
		return
	}
	data := make([]byte, capacity*b.stride)
	copy(data, b.data)
	b.data = data
	b.capacity = capacity
}

// bytes returns the backing bytes of elements [start, start+count).
func (b *AttributeBuffer) bytes(start, count int) []byte {
	return b.data[start*b.stride : (start+count)*b.stride : (start+count)*b.stride]
}

// setBytes copies data into elements [start, start+count). Writes longer
// than the range are rejected.
func (b *AttributeBuffer) setBytes(start, count int, data []byte) error {
	if len(data) > count*b.stride {
		return fmt.Errorf("%w: %d bytes into %d elements of %q", ErrDataOverflow, len(data), count, b.format.Name)
	}
	copy(b.bytes(start, count), data)
	return nil
}

func (b *AttributeBuffer) setFloat32s(start, count int, vals []float32) error {
	if b.format.Type != Float32 {
		return fmt.Errorf("%w: %q is %s, not float32", ErrAttributeMismatch, b.format.Name, b.format)
	}
	return b.setBytes(start, count, safeish.SliceCast[[]byte](vals))
}

func (b *AttributeBuffer) float32s(start, count int) []float32 {
	if b.format.Type != Float32 {
		return nil
	}
	return safeish.SliceCast[[]float32](b.bytes(start, count))
}

// nextPow2 returns the smallest power of two >= x. x <= 1 yields 1.
func nextPow2[T constraints.Integer](x T) T {
	p := T(1)
	for p < x {
		p <<= 1
	}
	return p
}
