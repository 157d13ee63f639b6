package core

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextVertex matches the HUD pipeline vertex layout: two Float32x2 attributes
// followed by a Float32x4 color.
type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one HUD string. Position is in pixels from the top-left corner.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type glyph struct {
	uvMin  [2]float32
	uvMax  [2]float32
	size   [2]float32
	offset [2]float32
	adv    float32
}

// TextAtlas rasterizes the printable ASCII range of a font into a single
// alpha texture and turns HUD strings into screen-space quads.
type TextAtlas struct {
	Image  *image.Alpha
	glyphs map[rune]glyph
	face   font.Face
}

const atlasSize = 512

func NewTextAtlas(fontPath string, fontSize float64) (*TextAtlas, error) {
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", fontPath, err)
	}
	parsed, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", fontPath, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}

	ta := &TextAtlas{
		Image:  image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize)),
		glyphs: make(map[rune]glyph),
		face:   face,
	}

	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			return nil, fmt.Errorf("glyph atlas overflow at %q (size %.1f too large)", r, fontSize)
		}

		draw.Draw(ta.Image, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)
		ta.glyphs[r] = glyph{
			uvMin:  [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			uvMax:  [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			size:   [2]float32{float32(w), float32(h)},
			offset: [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			adv:    float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return ta, nil
}

// LineHeight returns the scaled line advance in pixels.
func (ta *TextAtlas) LineHeight(scale float32) float32 {
	if ta == nil {
		return 0
	}
	return float32(ta.face.Metrics().Height.Ceil()) * scale
}

// BuildVertices expands HUD items into NDC-space triangles, two per glyph.
// Newlines advance to the next line at the item's starting column.
func (ta *TextAtlas) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	if ta == nil || screenW <= 0 || screenH <= 0 {
		return nil
	}
	sw := float32(screenW)
	sh := float32(screenH)
	metrics := ta.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	var vertices []TextVertex
	for _, item := range items {
		startX := item.Position[0]
		penX := startX
		penY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				penX = startX
				penY += lineHeight * item.Scale
				continue
			}
			g, ok := ta.glyphs[r]
			if !ok {
				continue
			}

			x0 := (penX+g.offset[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (penY+g.offset[1]*item.Scale)/sh*2.0
			x1 := (penX+(g.offset[0]+g.size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (penY+(g.offset[1]+g.size[1])*item.Scale)/sh*2.0

			quad := [6]TextVertex{
				{Pos: [2]float32{x0, y0}, UV: [2]float32{g.uvMin[0], g.uvMin[1]}, Color: item.Color},
				{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
				{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				{Pos: [2]float32{x1, y1}, UV: [2]float32{g.uvMax[0], g.uvMax[1]}, Color: item.Color},
				{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
			}
			vertices = append(vertices, quad[:]...)

			penX += g.adv * item.Scale
		}
	}
	return vertices
}
