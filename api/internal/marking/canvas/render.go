package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"mark-engine/api/internal/marking/types"
)

// Layout fixes the image geometry so the same input always renders the same picture.
type Layout struct {
	Width     int
	Padding   float64
	Spacing   float64 // vertical gap between header and blocks
	MaxHeight int
}

var DefaultLayout = Layout{Width: 1000, Padding: 24, Spacing: 32, MaxHeight: 12000}

var errEmptyBlock = errors.New("block has no points")

type bounds struct{ minX, minY, maxX, maxY float64 }

func blockBounds(strokes []types.Stroke) (bounds, error) {
	b := bounds{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	n := 0
	for _, s := range strokes {
		for _, p := range s.Points {
			if !finite(p) {
				return bounds{}, fmt.Errorf("non-finite point (%v, %v)", p.X, p.Y)
			}
			b.minX = math.Min(b.minX, p.X)
			b.minY = math.Min(b.minY, p.Y)
			b.maxX = math.Max(b.maxX, p.X)
			b.maxY = math.Max(b.maxY, p.Y)
			n++
		}
	}
	if n == 0 {
		return bounds{}, errEmptyBlock
	}
	return b, nil
}

type placed struct {
	strokes []types.Stroke
	b       bounds
	scale   float64
	top     float64
}

// render draws the header, then every block stacked vertically, and returns PNG bytes.
func render(l Layout, header string, blocks [][]types.Stroke) (png []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			png, err = nil, fmt.Errorf("render panic: %v", r)
		}
	}()
	if l.Width <= 0 {
		return nil, fmt.Errorf("invalid width %d", l.Width)
	}
	inner := float64(l.Width) - 2*l.Padding

	measure := gg.NewContext(l.Width, 1)
	var lines []string
	for _, para := range strings.Split(header, "\n") {
		lines = append(lines, measure.WordWrap(para, inner)...)
	}
	lineH := measure.FontHeight() * 1.4

	y := l.Padding + float64(len(lines))*lineH
	layout := make([]placed, 0, len(blocks))
	for _, strokes := range blocks {
		b, err := blockBounds(strokes)
		if err != nil {
			return nil, err
		}
		w, h := b.maxX-b.minX, b.maxY-b.minY
		scale := 1.0
		if w > inner {
			scale = inner / w
		}
		y += l.Spacing
		layout = append(layout, placed{strokes: strokes, b: b, scale: scale, top: y})
		y += math.Max(h*scale, 1)
	}
	height := int(math.Ceil(y + l.Padding))
	if l.MaxHeight > 0 && height > l.MaxHeight {
		return nil, fmt.Errorf("image height %d exceeds %d", height, l.MaxHeight)
	}

	dc := gg.NewContext(l.Width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	for i, line := range lines {
		dc.DrawString(line, l.Padding, l.Padding+float64(i+1)*lineH)
	}

	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, p := range layout {
		for _, s := range p.strokes {
			drawStroke(dc, s, func(pt types.Point) (float64, float64) {
				return l.Padding + (pt.X-p.b.minX)*p.scale, p.top + (pt.Y-p.b.minY)*p.scale
			})
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawStroke(dc *gg.Context, s types.Stroke, at func(types.Point) (float64, float64)) {
	if len(s.Points) == 0 {
		return
	}
	if s.Color != "" {
		dc.SetHexColor(s.Color)
	} else {
		dc.SetRGB(0, 0, 0)
	}
	width := s.Width
	if width <= 0 {
		width = 2
	}
	dc.SetLineWidth(width)

	if len(s.Points) == 1 {
		x, y := at(s.Points[0])
		dc.DrawCircle(x, y, width/2)
		dc.Fill()
		return
	}
	x, y := at(s.Points[0])
	dc.MoveTo(x, y)
	for _, pt := range s.Points[1:] {
		x, y = at(pt)
		dc.LineTo(x, y)
	}
	dc.Stroke()
}

func finite(p types.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
