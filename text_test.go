package sprig

import (
	"image/color"
	"math"
	"slices"
	"testing"
)

// --- BMFont test fixture ---

// Minimal BMFont .fnt text data with ASCII glyphs for "ABCDEFGHIJ" + space.
const testFntData = `info face="TestFont" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=0,0
common lineHeight=40 base=30 scaleW=256 scaleH=256 pages=1 packed=0
page id=0 file="test.png"
chars count=11
char id=32  x=0   y=0   width=0   height=0   xoffset=0   yoffset=0   xadvance=10  page=0
char id=65  x=0   y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=66  x=20  y=0   width=18  height=30  xoffset=1   yoffset=2   xadvance=20  page=0
char id=67  x=38  y=0   width=19  height=30  xoffset=1   yoffset=2   xadvance=21  page=0
char id=68  x=57  y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=69  x=77  y=0   width=16  height=30  xoffset=1   yoffset=2   xadvance=18  page=0
char id=70  x=93  y=0   width=15  height=30  xoffset=1   yoffset=2   xadvance=17  page=0
char id=71  x=108 y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=72  x=128 y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=73  x=148 y=0   width=8   height=30  xoffset=1   yoffset=2   xadvance=10  page=0
char id=74  x=156 y=0   width=12  height=30  xoffset=0   yoffset=2   xadvance=14  page=0
kernings count=2
kerning first=65 second=66 amount=-2
kerning first=65 second=67 amount=-1
`

// testFntDataNoLineHeight is malformed .fnt data missing lineHeight.
const testFntDataNoLineHeight = `info face="Bad" size=32
page id=0 file="test.png"
chars count=1
char id=65 x=0 y=0 width=10 height=10 xoffset=0 yoffset=0 xadvance=12 page=0
`

// testFntDataNoChars is .fnt data with no char definitions.
const testFntDataNoChars = `info face="Bad" size=32
common lineHeight=40 base=30 scaleW=256 scaleH=256 pages=1 packed=0
page id=0 file="test.png"
`

func loadTestFont(t *testing.T) *BitmapFont {
	t.Helper()
	f, err := LoadBitmapFont([]byte(testFntData), TextureRegion{})
	if err != nil {
		t.Fatalf("LoadBitmapFont: %v", err)
	}
	return f
}

func newTestText(t *testing.T, content string, setup func(*Text)) *Text {
	t.Helper()
	tx, err := NewText(newTestBatch(t), loadTestFont(t), "", Placement{})
	if err != nil {
		t.Fatal(err)
	}
	tx.Content = content
	if setup != nil {
		setup(tx)
	}
	if err := tx.Update(); err != nil {
		t.Fatal(err)
	}
	return tx
}

// --- LoadBitmapFont ---

func TestLoadBitmapFont_GlyphCount(t *testing.T) {
	f := loadTestFont(t)
	count := 0
	for _, ok := range f.asciiSet {
		if ok {
			count++
		}
	}
	if count != 11 {
		t.Errorf("glyph count = %d, want 11", count)
	}
}

func TestLoadBitmapFont_LineHeight(t *testing.T) {
	f := loadTestFont(t)
	var font Font = f
	if font.LineHeight() != 40 {
		t.Errorf("LineHeight() = %f, want 40", font.LineHeight())
	}
}

func TestLoadBitmapFont_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not valid fnt data at all"},
		{"no line height", testFntDataNoLineHeight},
		{"no chars", testFntDataNoChars},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadBitmapFont([]byte(tt.data), TextureRegion{}); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadTTFFont_InvalidData(t *testing.T) {
	if _, err := LoadTTFFont([]byte("not a TTF file"), 16); err == nil {
		t.Error("expected error for invalid TTF data, got nil")
	}
}

func TestParseFields(t *testing.T) {
	f := parseFields(`face="Arial" size=32 junk x=-4`)
	if f["face"] != "Arial" {
		t.Errorf("face = %q, want Arial", f["face"])
	}
	if f.int("size") != 32 || f.int("x") != -4 || f.int("missing") != 0 {
		t.Errorf("fields = %v", f)
	}
}

// --- MeasureString ---

func TestBitmapFont_MeasureString(t *testing.T) {
	f := loadTestFont(t)
	tests := []struct {
		s    string
		w, h float64
	}{
		{"AB", 40, 40}, // 22 - 2 + 20
		{"AC", 42, 40}, // 22 - 1 + 21
		{"CD", 43, 40}, // no kerning
		{"A\nB", 22, 80},
		{"", 0, 40},
	}
	for _, tt := range tests {
		if w, h := f.MeasureString(tt.s); w != tt.w || h != tt.h {
			t.Errorf("MeasureString(%q) = (%v, %v), want (%v, %v)", tt.s, w, h, tt.w, tt.h)
		}
	}
}

// --- Layout ---

func TestText_WordWrap(t *testing.T) {
	tx := newTestText(t, "AB CD", func(tx *Text) { tx.WrapWidth = 45 })
	if len(tx.lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(tx.lines))
	}
	if got := tx.lines[1].glyphs[0].y; got != 42 {
		t.Errorf("second line glyph y = %v, want 42", got)
	}
	if _, h := tx.Size(); h != 80 {
		t.Errorf("height = %v, want 80", h)
	}
}

func TestText_NoWrapWhenZeroWidth(t *testing.T) {
	tx := newTestText(t, "ABCDEFGHIJ", nil)
	if len(tx.lines) != 1 {
		t.Errorf("line count = %d, want 1", len(tx.lines))
	}
}

func TestText_Align(t *testing.T) {
	tests := []struct {
		name  string
		align TextAlign
		want  float64
	}{
		{"left", TextAlignLeft, 1},
		{"center", TextAlignCenter, 1 + 9}, // (40 - 22) / 2
		{"right", TextAlignRight, 1 + 18},  // 40 - 22
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTestText(t, "A\nAB", func(tx *Text) { tx.Align = tt.align })
			if len(tx.lines) != 2 {
				t.Fatalf("line count = %d, want 2", len(tx.lines))
			}
			if gx := tx.lines[0].glyphs[0].x; math.Abs(gx-tt.want) > 0.01 {
				t.Errorf("glyph x = %v, want %v", gx, tt.want)
			}
		})
	}
}

// --- Vertices ---

func TestText_OneQuadPerVisibleGlyph(t *testing.T) {
	tx := newTestText(t, "AB CD", nil)
	// the space glyph is empty
	if got := tx.Interfacer().Count(); got != 16 {
		t.Errorf("Count = %d, want 16", got)
	}
	if got := len(tx.Interfacer().Indices()); got != 24 {
		t.Errorf("indices = %d, want 24", got)
	}
}

func TestText_Positions(t *testing.T) {
	tx := newTestText(t, "A", func(tx *Text) { tx.SetPosition(100, 50) })
	want := []float32{101, 52, 121, 52, 101, 82, 121, 82}
	if got := floats(t, tx.Interfacer(), AttrPosition); !slices.Equal(got, want) {
		t.Errorf("position = %v, want %v", got, want)
	}
	r := tx.Bounds()
	if r.X != 100 || r.Y != 50 || r.Width != 22 || r.Height != 40 {
		t.Errorf("Bounds = %+v, want {100 50 22 40}", r)
	}
}

func TestText_MoveWithoutRelayout(t *testing.T) {
	tx := newTestText(t, "AB", nil)
	tx.measuredW = -1
	tx.SetPosition(10, 0)
	if err := tx.Update(); err != nil {
		t.Fatal(err)
	}
	if tx.measuredW != -1 {
		t.Error("moving should not relayout")
	}
	if got := floats(t, tx.Interfacer(), AttrPosition)[0]; got != 11 {
		t.Errorf("x = %v, want 11", got)
	}
}

func TestText_ContentChangeResizes(t *testing.T) {
	tx := newTestText(t, "ABCD", nil)
	if tx.Interfacer().Count() != 16 {
		t.Fatalf("Count = %d, want 16", tx.Interfacer().Count())
	}
	tx.Content = "A"
	if err := tx.Update(); err != nil {
		t.Fatal(err)
	}
	if tx.Interfacer().Count() != 4 {
		t.Errorf("Count = %d, want 4", tx.Interfacer().Count())
	}
	tx.Content = ""
	if err := tx.Update(); err != nil {
		t.Fatal(err)
	}
	if tx.Interfacer().Count() != 4 {
		t.Errorf("empty Count = %d, want 4", tx.Interfacer().Count())
	}
	for i, v := range floats(t, tx.Interfacer(), AttrPosition) {
		if v != 0 {
			t.Fatalf("empty text position[%d] = %v, want 0", i, v)
		}
	}
}

func TestText_ColorAndAlpha(t *testing.T) {
	tx := newTestText(t, "A", func(tx *Text) {
		tx.Color = Color{1, 0, 0, 1}
		tx.Alpha = 0.5
	})
	col := floats(t, tx.Interfacer(), AttrColor)
	if got, want := col[:4], []float32{0.5, 0, 0, 0.5}; !slices.Equal(got, want) {
		t.Errorf("color = %v, want %v", got, want)
	}
}

func TestText_Outline(t *testing.T) {
	tx := newTestText(t, "AB", func(tx *Text) {
		tx.Outline = &Outline{Color: Color{0, 0, 0, 1}, Thickness: 2}
	})
	// 8 outline passes + fill
	if got := tx.Interfacer().Count(); got != 4*2*9 {
		t.Fatalf("Count = %d, want %d", got, 4*2*9)
	}
	col := floats(t, tx.Interfacer(), AttrColor)
	if got := col[:4]; !slices.Equal(got, []float32{0, 0, 0, 1}) {
		t.Errorf("first quad color = %v, want outline black", got)
	}
	if got := col[len(col)-4:]; !slices.Equal(got, []float32{1, 1, 1, 1}) {
		t.Errorf("last quad color = %v, want fill white", got)
	}
	pos := floats(t, tx.Interfacer(), AttrPosition)
	if pos[0] != -1 || pos[1] != 2 {
		t.Errorf("first outline corner = (%v, %v), want (-1, 2)", pos[0], pos[1])
	}
}

func TestText_PageOffsetAndSharedAtlas(t *testing.T) {
	b := newTestBatch(t)
	atlas, err := NewTextureAtlas(256, 256, 0, AllocatorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	atlas.Add(solidImage(8, 8, color.White))
	page, _, ok := atlas.Add(solidImage(200, 40, color.White))
	if !ok {
		t.Fatal("atlas full")
	}
	f, err := LoadBitmapFont([]byte(testFntData), page)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := NewText(b, f, "B", Placement{})
	if err != nil {
		t.Fatal(err)
	}
	uv := floats(t, tx.Interfacer(), AttrTexCoord)
	if uv[0] != float32(page.X)+20 || uv[1] != float32(page.Y) {
		t.Errorf("texcoord = (%v, %v), want page offset + (20, 0)", uv[0], uv[1])
	}
	sprite, _, _ := atlas.Add(solidImage(4, 4, color.White))
	if _, err := NewSprite(b, sprite, Placement{}); err != nil {
		t.Fatal(err)
	}
	_ = b.Default().Compile()
	if got := b.Default().Stats().DrawCalls; got != 1 {
		t.Errorf("DrawCalls = %d, want 1", got)
	}
}

func TestText_SetBlend(t *testing.T) {
	tx := newTestText(t, "A", nil)
	tx.SetBlend(BlendAdd)
	if err := tx.Update(); err != nil {
		t.Fatal(err)
	}
	if !tx.Interfacer().State().Has(BlendPart(BlendAdd).ID()) {
		t.Errorf("state = %v, want add blend", tx.Interfacer().State())
	}
}

func TestText_NilFont(t *testing.T) {
	tx, err := NewText(newTestBatch(t), nil, "hello", Placement{})
	if err != nil {
		t.Fatal(err)
	}
	if w, h := tx.Size(); w != 0 || h != 0 {
		t.Errorf("Size = %vx%v, want 0x0", w, h)
	}
}
