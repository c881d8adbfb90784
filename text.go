package sprig

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// TextAlign is the horizontal alignment of lines within a Text.
type TextAlign uint8

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

// Font measures and lays out text.
type Font interface {
	MeasureString(s string) (width, height float64)
	LineHeight() float64
}

// Outline is a stroke drawn behind the text fill.
type Outline struct {
	Color     Color
	Thickness float64
}

// --- BitmapFont ---

const asciiGlyphCount = 128

type glyph struct {
	x, y     uint16
	width    uint16
	height   uint16
	xOffset  int16
	yOffset  int16
	xAdvance int16
}

// BitmapFont renders text from a pre-rasterized BMFont page. The page is a
// texture region, usually added to the batch's atlases so text and sprites
// share draw calls.
type BitmapFont struct {
	lineHeight float64
	base       float64
	page       TextureRegion

	asciiGlyphs [asciiGlyphCount]glyph
	asciiSet    [asciiGlyphCount]bool
	extGlyphs   map[rune]*glyph

	kernings map[[2]rune]int16
}

// LoadBitmapFont parses BMFont text-format data whose glyph coordinates are
// relative to page.
func LoadBitmapFont(fntData []byte, page TextureRegion) (*BitmapFont, error) {
	f := &BitmapFont{page: page}

	scanner := bufio.NewScanner(bytes.NewReader(fntData))
	var charCount int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tag, rest := splitTag(line)
		fields := parseFields(rest)

		switch tag {
		case "common":
			f.lineHeight = fields.float("lineHeight")
			f.base = fields.float("base")
		case "char":
			charCount++
			id := rune(fields.int("id"))
			g := glyph{
				x:        uint16(fields.int("x")),
				y:        uint16(fields.int("y")),
				width:    uint16(fields.int("width")),
				height:   uint16(fields.int("height")),
				xOffset:  int16(fields.int("xoffset")),
				yOffset:  int16(fields.int("yoffset")),
				xAdvance: int16(fields.int("xadvance")),
			}
			if id >= 0 && id < asciiGlyphCount {
				f.asciiGlyphs[id] = g
				f.asciiSet[id] = true
			} else {
				if f.extGlyphs == nil {
					f.extGlyphs = make(map[rune]*glyph)
				}
				f.extGlyphs[id] = &g
			}
		case "kerning":
			if f.kernings == nil {
				f.kernings = make(map[[2]rune]int16)
			}
			pair := [2]rune{rune(fields.int("first")), rune(fields.int("second"))}
			f.kernings[pair] = int16(fields.int("amount"))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sprig: read .fnt data: %w", err)
	}
	if f.lineHeight == 0 {
		return nil, fmt.Errorf("sprig: .fnt data missing common lineHeight")
	}
	if charCount == 0 {
		return nil, fmt.Errorf("sprig: .fnt data has no char definitions")
	}
	return f, nil
}

// Page returns the region holding the glyphs.
func (f *BitmapFont) Page() TextureRegion {
	return f.page
}

// MeasureString returns the size of s laid out without wrapping.
func (f *BitmapFont) MeasureString(s string) (width, height float64) {
	var maxW, cursorX float64
	var prev rune
	hasPrev := false
	lines := 1
	for _, r := range s {
		if r == '\n' {
			maxW = max(maxW, cursorX)
			cursorX = 0
			lines++
			hasPrev = false
			continue
		}
		g := f.glyph(r)
		if g == nil {
			hasPrev = false
			continue
		}
		if hasPrev {
			cursorX += float64(f.kern(prev, r))
		}
		cursorX += float64(g.xAdvance)
		prev, hasPrev = r, true
	}
	return max(maxW, cursorX), float64(lines) * f.lineHeight
}

// LineHeight returns the distance between baselines.
func (f *BitmapFont) LineHeight() float64 {
	return f.lineHeight
}

func (f *BitmapFont) glyph(r rune) *glyph {
	if r >= 0 && r < asciiGlyphCount {
		if f.asciiSet[r] {
			return &f.asciiGlyphs[r]
		}
		return nil
	}
	return f.extGlyphs[r]
}

func (f *BitmapFont) kern(first, second rune) int16 {
	return f.kernings[[2]rune{first, second}]
}

// region returns the page region of g.
func (f *BitmapFont) region(g *glyph) TextureRegion {
	return TextureRegion{
		X:      f.page.X + g.x,
		Y:      f.page.Y + g.y,
		Width:  g.width,
		Height: g.height,
		atlas:  f.page.atlas,
	}
}

// splitTag splits a BMFont line into its tag and the rest of the line.
func splitTag(line string) (string, string) {
	tag, rest, _ := strings.Cut(line, " ")
	return tag, rest
}

type fntFields map[string]string

// parseFields parses "key=value key=value ..." pairs.
func parseFields(s string) fntFields {
	fields := make(fntFields)
	for _, part := range strings.Fields(s) {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		// face="Arial"
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		fields[key] = val
	}
	return fields
}

func (f fntFields) int(key string) int {
	v, _ := strconv.Atoi(f[key])
	return v
}

func (f fntFields) float(key string) float64 {
	v, _ := strconv.ParseFloat(f[key], 64)
	return v
}

// --- TTFFont ---

// TTFFont wraps Ebitengine's text/v2 faces. Text in a TTF font is rendered
// into an offscreen texture and drawn as one quad.
type TTFFont struct {
	face *text.GoTextFace
	lh   float64
}

// LoadTTFFont loads a TrueType or OpenType font at the given size.
func LoadTTFFont(ttfData []byte, size float64) (*TTFFont, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("sprig: parse TTF data: %w", err)
	}
	face := &text.GoTextFace{Source: source, Size: size}
	m := face.Metrics()
	return &TTFFont{face: face, lh: m.HAscent + m.HDescent + m.HLineGap}, nil
}

// MeasureString returns the size of the rendered text.
func (f *TTFFont) MeasureString(s string) (width, height float64) {
	return text.Measure(s, f.face, f.lh)
}

// LineHeight returns the distance between baselines.
func (f *TTFFont) LineHeight() float64 {
	return f.lh
}

// Face returns the underlying face.
func (f *TTFFont) Face() *text.GoTextFace {
	return f.face
}

// --- Text ---

// glyphPos is a laid-out glyph relative to the text origin.
type glyphPos struct {
	x, y   float64
	region TextureRegion
}

type textLine struct {
	glyphs []glyphPos
	width  float64
}

// textQuad is one textured rectangle of a Text.
type textQuad struct {
	x, y, w, h float32
	region     TextureRegion
	color      [4]float32
}

// textKey holds every input that affects a Text's geometry.
type textKey struct {
	content    string
	font       Font
	align      TextAlign
	wrapWidth  float64
	color      Color
	alpha      float64
	outline    Outline
	lineHeight float64
}

// Text is a block of text backed by one interfacer. Bitmap fonts draw one
// quad per glyph from the font page; TTF fonts draw one quad showing an
// offscreen rendering. Change the fields, then call Update.
type Text struct {
	Transform
	Content   string
	Align     TextAlign
	WrapWidth float64 // bitmap fonts only; 0 disables wrapping
	Color     Color
	Alpha     float64
	Outline   *Outline
	// LineHeight overrides the font's line height when positive.
	LineHeight float64

	font    Font
	blend   BlendMode
	iface   *Interfacer
	canvas  *RenderTexture
	texture Texture

	lines      []textLine
	wordGlyphs []glyphPos
	quads      []textQuad
	measuredW  float64
	measuredH  float64
	slots      int
	last       textKey
	laidOut    bool
	stateDirty bool

	pos []float32
	uv  []float32
	col []float32
}

// NewText creates a text block.
func NewText(b *Batch, font Font, content string, at Placement) (*Text, error) {
	t := &Text{
		Transform: NewTransform(),
		Content:   content,
		Color:     ColorWhite,
		Alpha:     1,
		font:      font,
		slots:     1,
	}
	t.texture = t.fontTexture()
	it, err := b.Add(VertexSpec{
		Formats: spriteFormats,
		Count:   4,
		Mode:    ModeTriangles,
		Indices: quadIndices,
		State:   t.state(),
		At:      at,
	})
	if err != nil {
		return nil, fmt.Errorf("sprig: new text: %w", err)
	}
	t.iface = it
	if err := t.Update(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Text) state() State {
	return NewState(TexturePart(0, t.texture), BlendPart(t.blend))
}

func (t *Text) fontTexture() Texture {
	switch f := t.font.(type) {
	case *BitmapFont:
		if a := f.page.Atlas(); a != nil {
			return a
		}
	case *TTFFont:
		if t.canvas == nil {
			t.canvas = NewRenderTexture(1, 1)
		}
		return t.canvas
	}
	return WhiteTexture()
}

// Interfacer returns the text's vertex claim.
func (t *Text) Interfacer() *Interfacer {
	return t.iface
}

// Font returns the font.
func (t *Text) Font() Font {
	return t.font
}

// SetFont changes the font.
func (t *Text) SetFont(f Font) {
	t.font = f
	if tex := t.fontTexture(); tex.TextureID() != t.texture.TextureID() {
		t.texture = tex
		t.stateDirty = true
	}
}

// SetBlend changes the blend mode.
func (t *Text) SetBlend(b BlendMode) {
	if b != t.blend {
		t.blend = b
		t.stateDirty = true
	}
}

// SetVisible shows or hides the text.
func (t *Text) SetVisible(v bool) error {
	return t.iface.SetVisible(v)
}

// Size returns the laid-out size as of the last Update.
func (t *Text) Size() (w, h float64) {
	return t.measuredW, t.measuredH
}

// Bounds returns the world-space bounding box of the laid-out block.
func (t *Text) Bounds() Rect {
	return worldAABB(t.Matrix(), 0, 0, float32(t.measuredW), float32(t.measuredH))
}

func (t *Text) lineHeight() float64 {
	if t.LineHeight > 0 {
		return t.LineHeight
	}
	if t.font != nil {
		return t.font.LineHeight()
	}
	return 0
}

func (t *Text) key() textKey {
	k := textKey{
		content:    t.Content,
		font:       t.font,
		align:      t.Align,
		wrapWidth:  t.WrapWidth,
		color:      t.Color,
		alpha:      t.Alpha,
		lineHeight: t.LineHeight,
	}
	if t.Outline != nil {
		k.outline = *t.Outline
	}
	return k
}

// Update lays the text out again if any field changed and writes the
// vertices.
func (t *Text) Update() error {
	if t.stateDirty {
		if err := t.iface.SetState(t.state()); err != nil {
			return err
		}
		t.stateDirty = false
	}
	k := t.key()
	relayout := !t.laidOut || k != t.last
	if relayout {
		t.layout()
		t.last, t.laidOut = k, true
		if err := t.ensureSlots(len(t.quads)); err != nil {
			return err
		}
	}
	if relayout || t.dirty {
		return t.writeQuads()
	}
	return nil
}

// layout rebuilds the quads from the current fields.
func (t *Text) layout() {
	t.quads = t.quads[:0]
	switch f := t.font.(type) {
	case *BitmapFont:
		t.layoutBitmap(f)
		t.bitmapQuads()
	case *TTFFont:
		t.renderTTF(f)
	default:
		t.lines = t.lines[:0]
		t.measuredW, t.measuredH = 0, 0
	}
}

// layoutBitmap computes glyph positions with word wrapping and alignment.
func (t *Text) layoutBitmap(f *BitmapFont) {
	lh := t.lineHeight()
	content := t.Content
	t.lines = t.lines[:0]
	t.wordGlyphs = t.wordGlyphs[:0]

	var maxW, cursorX, wordX float64
	var cur textLine
	var wordStart int
	var prev rune
	hasPrev := false

	flush := func() {
		cur.width = cursorX
		maxW = max(maxW, cur.width)
		t.lines = append(t.lines, cur)
		cur = textLine{}
		cursorX = 0
		hasPrev = false
	}

	for i := 0; i < len(content); {
		r, size := utf8.DecodeRuneInString(content[i:])
		i += size

		if r == '\n' {
			cur.glyphs = append(cur.glyphs, t.wordGlyphs...)
			t.wordGlyphs = t.wordGlyphs[:0]
			wordStart, wordX = i, 0
			flush()
			continue
		}
		g := f.glyph(r)
		if g == nil {
			hasPrev = false
			continue
		}
		var kern float64
		if hasPrev {
			kern = float64(f.kern(prev, r))
		}
		gp := glyphPos{
			x:      cursorX + kern + float64(g.xOffset),
			y:      float64(g.yOffset),
			region: f.region(g),
		}
		advance := float64(g.xAdvance) + kern

		if r == ' ' {
			cur.glyphs = append(cur.glyphs, t.wordGlyphs...)
			t.wordGlyphs = t.wordGlyphs[:0]
			wordStart = i
			cur.glyphs = append(cur.glyphs, gp)
			cursorX += advance
			wordX = cursorX
		} else {
			if t.WrapWidth > 0 && cursorX+advance > t.WrapWidth && len(cur.glyphs) > 0 {
				// move the current word to a new line
				cursorX = wordX
				t.wordGlyphs = t.wordGlyphs[:0]
				flush()
				wordX = 0
				i = wordStart
				continue
			}
			t.wordGlyphs = append(t.wordGlyphs, gp)
			cursorX += advance
		}
		prev, hasPrev = r, true
	}

	cur.glyphs = append(cur.glyphs, t.wordGlyphs...)
	if len(cur.glyphs) > 0 || len(t.lines) == 0 {
		flush()
	}

	// align against the wrap width when set, else the widest line
	alignW := maxW
	if t.WrapWidth > 0 {
		alignW = t.WrapWidth
	}
	for li := range t.lines {
		line := &t.lines[li]
		var dx float64
		switch t.Align {
		case TextAlignCenter:
			dx = (alignW - line.width) / 2
		case TextAlignRight:
			dx = alignW - line.width
		}
		for gi := range line.glyphs {
			line.glyphs[gi].x += dx
			line.glyphs[gi].y += float64(li) * lh
		}
	}
	t.measuredW = maxW
	t.measuredH = float64(len(t.lines)) * lh
}

// bitmapQuads converts the laid-out lines into quads, outline passes first.
func (t *Text) bitmapQuads() {
	fill := t.Color
	fill.A *= t.Alpha
	if o := t.Outline; o != nil && o.Thickness > 0 {
		oc := o.Color
		oc.A *= t.Alpha
		th := o.Thickness
		offsets := [8][2]float64{
			{-th, 0}, {th, 0}, {0, -th}, {0, th},
			{-th, -th}, {th, -th}, {-th, th}, {th, th},
		}
		for _, off := range offsets {
			t.appendGlyphQuads(off[0], off[1], oc.premultiplied())
		}
	}
	t.appendGlyphQuads(0, 0, fill.premultiplied())
}

func (t *Text) appendGlyphQuads(dx, dy float64, c [4]float32) {
	for _, line := range t.lines {
		for _, gp := range line.glyphs {
			if gp.region.Width == 0 || gp.region.Height == 0 {
				continue
			}
			t.quads = append(t.quads, textQuad{
				x:      float32(gp.x + dx),
				y:      float32(gp.y + dy),
				w:      float32(gp.region.Width),
				h:      float32(gp.region.Height),
				region: gp.region,
				color:  c,
			})
		}
	}
}

// renderTTF draws the content into the canvas and emits one quad.
func (t *Text) renderTTF(f *TTFFont) {
	t.lines = t.lines[:0]
	mw, mh := f.MeasureString(t.Content)
	t.measuredW, t.measuredH = mw, mh
	if mw == 0 || mh == 0 {
		return
	}
	w, h := int(mw)+1, int(mh)+1
	if t.canvas.Width() != w || t.canvas.Height() != h {
		t.canvas.Resize(w, h)
	} else {
		t.canvas.Clear()
	}
	lh := t.lineHeight()
	if o := t.Outline; o != nil && o.Thickness > 0 {
		th := o.Thickness
		for _, off := range [8][2]float64{
			{-th, 0}, {th, 0}, {0, -th}, {0, th},
			{-th, -th}, {th, -th}, {-th, th}, {th, th},
		} {
			t.drawTTF(f, lh, mw, off[0], off[1], o.Color)
		}
	}
	t.drawTTF(f, lh, mw, 0, 0, t.Color)

	white := Color{R: 1, G: 1, B: 1, A: t.Alpha}
	t.quads = append(t.quads, textQuad{
		w:      float32(w),
		h:      float32(h),
		region: TextureRegion{Width: uint16(w), Height: uint16(h)},
		color:  white.premultiplied(),
	})
}

func (t *Text) drawTTF(f *TTFFont, lh, width, dx, dy float64, c Color) {
	op := &text.DrawOptions{}
	op.LineSpacing = lh
	switch t.Align {
	case TextAlignCenter:
		op.PrimaryAlign = text.AlignCenter
		dx += width / 2
	case TextAlignRight:
		op.PrimaryAlign = text.AlignEnd
		dx += width
	}
	op.GeoM.Translate(dx, dy)
	op.ColorScale.ScaleWithColor(c.RGBA())
	text.Draw(t.canvas.Image(), t.Content, f.face, op)
}

// ensureSlots resizes the interfacer to n quads, keeping at least one.
func (t *Text) ensureSlots(n int) error {
	n = max(n, 1)
	if n != t.slots {
		indices := make([]uint32, 0, 6*n)
		for i := range n {
			base := uint32(4 * i)
			for _, q := range quadIndices {
				indices = append(indices, base+q)
			}
		}
		if n < t.slots {
			if err := t.iface.SetIndices(indices); err != nil {
				return err
			}
			if err := t.iface.Resize(4 * n); err != nil {
				return err
			}
		} else {
			if err := t.iface.Resize(4 * n); err != nil {
				return err
			}
			if err := t.iface.SetIndices(indices); err != nil {
				return err
			}
		}
		t.slots = n
	}
	if len(t.pos) != 8*n {
		t.pos = make([]float32, 8*n)
		t.uv = make([]float32, 8*n)
		t.col = make([]float32, 16*n)
	}
	return nil
}

func (t *Text) writeQuads() error {
	m := t.Matrix()
	clear(t.pos)
	clear(t.col)
	for i, q := range t.quads {
		corners := [4][2]float32{{q.x, q.y}, {q.x + q.w, q.y}, {q.x, q.y + q.h}, {q.x + q.w, q.y + q.h}}
		for k, c := range corners {
			t.pos[8*i+2*k], t.pos[8*i+2*k+1] = transformPoint(m, c[0], c[1])
			copy(t.col[16*i+4*k:], q.color[:])
		}
		u0, v0, u1, v1 := q.region.TexCoords()
		copy(t.uv[8*i:], []float32{u0, v0, u1, v0, u0, v1, u1, v1})
	}
	t.dirty = false
	if err := t.iface.SetFloat32s(AttrPosition, t.pos); err != nil {
		return err
	}
	if err := t.iface.SetFloat32s(AttrTexCoord, t.uv); err != nil {
		return err
	}
	return t.iface.SetFloat32s(AttrColor, t.col)
}

// Delete releases the text's vertices and its offscreen canvas.
func (t *Text) Delete() error {
	if t.canvas != nil {
		t.canvas.Dispose()
	}
	return t.iface.Delete()
}
