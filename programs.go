package sprig

import "fmt"

// Kage sources of the built-in programs. All use //kage:unit pixels so the
// texel texcoords written by sprites and meshes address the atlas directly.
// Ebitengine uses premultiplied alpha; shaders un-premultiply before
// processing and re-premultiply the output.

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src) * color
	if c.a > 0 {
		c.rgb /= c.a
	}
	// 4x5 row-major matrix, offsets in elements 4, 9, 14 and 19.
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	r = clamp(r, 0, 1)
	g = clamp(g, 0, 1)
	b = clamp(b, 0, 1)
	a = clamp(a, 0, 1)
	return vec4(r*a, g*a, b*a, a)
}
`

const outlineShaderSrc = `//kage:unit pixels
package main

var OutlineColor vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		return c * color
	}
	if imageSrc0At(src + vec2(1, 0)).a > 0 ||
		imageSrc0At(src + vec2(-1, 0)).a > 0 ||
		imageSrc0At(src + vec2(0, 1)).a > 0 ||
		imageSrc0At(src + vec2(0, -1)).a > 0 {
		return OutlineColor
	}
	return vec4(0)
}
`

const inlineShaderSrc = `//kage:unit pixels
package main

var InlineColor vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a == 0 {
		return vec4(0)
	}
	if imageSrc0At(src + vec2(1, 0)).a == 0 ||
		imageSrc0At(src + vec2(-1, 0)).a == 0 ||
		imageSrc0At(src + vec2(0, 1)).a == 0 ||
		imageSrc0At(src + vec2(0, -1)).a == 0 {
		return InlineColor
	}
	return c * color
}
`

// Lazily compiled; programs are created from the game goroutine.
var (
	colorMatrixProgram *Program
	outlineProgram     *Program
	inlineProgram      *Program
)

func ensureProgram(p **Program, name, src string) (*Program, error) {
	if *p == nil {
		prog, err := NewProgram(name, []byte(src))
		if err != nil {
			return nil, err
		}
		*p = prog
	}
	return *p, nil
}

// ColorMatrixProgram returns the shared color matrix program. Pair it with a
// MatrixPart in the same state.
func ColorMatrixProgram() (*Program, error) {
	return ensureProgram(&colorMatrixProgram, "color-matrix", colorMatrixShaderSrc)
}

// OutlineProgram returns the shared one-pixel outline program. Pair it with
// OutlineColorPart. Regions need one pixel of atlas border for the outline to
// show.
func OutlineProgram() (*Program, error) {
	return ensureProgram(&outlineProgram, "outline", outlineShaderSrc)
}

// InlineProgram returns the shared one-pixel inline program. Pair it with
// InlineColorPart.
func InlineProgram() (*Program, error) {
	return ensureProgram(&inlineProgram, "inline", inlineShaderSrc)
}

// ColorMatrix is a 4x5 row-major color transform:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...].
type ColorMatrix [20]float32

// IdentityMatrix leaves colors unchanged.
func IdentityMatrix() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// BrightnessMatrix offsets each color channel by b in [-1, 1].
func BrightnessMatrix(b float64) ColorMatrix {
	o := float32(b)
	return ColorMatrix{
		1, 0, 0, 0, o,
		0, 1, 0, 0, o,
		0, 0, 1, 0, o,
		0, 0, 0, 1, 0,
	}
}

// ContrastMatrix scales around mid gray. c=1 is normal, 0 is flat gray.
func ContrastMatrix(c float64) ColorMatrix {
	s, t := float32(c), float32((1.0-c)/2.0)
	return ColorMatrix{
		s, 0, 0, 0, t,
		0, s, 0, 0, t,
		0, 0, s, 0, t,
		0, 0, 0, 1, 0,
	}
}

// SaturationMatrix mixes toward luminance. s=1 is normal, 0 is grayscale.
func SaturationMatrix(s float64) ColorMatrix {
	sr := float32((1 - s) * 0.299)
	sg := float32((1 - s) * 0.587)
	sb := float32((1 - s) * 0.114)
	v := float32(s)
	return ColorMatrix{
		sr + v, sg, sb, 0, 0,
		sr, sg + v, sb, 0, 0,
		sr, sg, sb + v, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Mul returns the matrix applying n first, then m.
func (m ColorMatrix) Mul(n ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for r := range 4 {
		for c := range 5 {
			var v float32
			for k := range 4 {
				v += m[r*5+k] * n[k*5+c]
			}
			if c == 4 {
				v += m[r*5+4]
			}
			out[r*5+c] = v
		}
	}
	return out
}

// MatrixPart sets the Matrix uniform of ColorMatrixProgram.
func MatrixPart(m ColorMatrix) StatePart {
	return UniformPart("Matrix", [20]float32(m))
}

// OutlineColorPart sets the OutlineColor uniform of OutlineProgram.
func OutlineColorPart(c Color) StatePart {
	return UniformPart("OutlineColor", c.premultiplied())
}

// InlineColorPart sets the InlineColor uniform of InlineProgram.
func InlineColorPart(c Color) StatePart {
	return UniformPart("InlineColor", c.premultiplied())
}

// ColorMatrixState is a convenience for a group state applying m to all
// children.
func ColorMatrixState(m ColorMatrix) (State, error) {
	p, err := ColorMatrixProgram()
	if err != nil {
		return State{}, fmt.Errorf("sprig: color matrix state: %w", err)
	}
	return NewState(ProgramPart(p), MatrixPart(m)), nil
}
