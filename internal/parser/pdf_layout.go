package parser

import (
	"math"
	"sort"
	"strings"
)

// Rect is an axis-aligned rectangle in PDF user space (y grows upward).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Overlaps reports whether r and o share an area greater than zero.
// Rectangles that only touch along an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	w := math.Min(r.X1, o.X1) - math.Max(r.X0, o.X0)
	h := math.Min(r.Y1, o.Y1) - math.Max(r.Y0, o.Y0)
	return w > 0 && h > 0
}

func (r Rect) union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Glyph is one positioned character as placed by the content stream.
type Glyph struct {
	X, Y     float64 // Baseline origin.
	W        float64 // Advance width.
	FontSize float64
	S        string
}

func (g Glyph) size() float64 {
	s := math.Abs(g.FontSize)
	if s == 0 {
		s = 1
	}
	return s
}

func (g Glyph) box() Rect {
	s := g.size()
	w := g.W
	if w <= 0 {
		w = 0.5 * s
	}
	return Rect{X0: g.X, Y0: g.Y - 0.2*s, X1: g.X + w, Y1: g.Y + 0.8*s}
}

// Block is a run of consecutive lines with its bounding box.
type Block struct {
	Rect Rect
	Text string
}

const (
	baselineTolerance = 0.5 // Same line if baselines differ by at most this many font sizes.
	wordGap           = 0.2 // Horizontal gap, in font sizes, that implies a space.
	columnGap         = 3.0 // Horizontal gap, in font sizes, that splits a baseline into two lines.
	blockLeading      = 1.5 // Baseline distance, in font sizes, above which a new block starts.
)

type line struct {
	rect     Rect
	baseline float64
	size     float64
	text     string
}

// LayoutBlocks groups glyphs into lines and lines into blocks, returning the
// blocks sorted top-to-bottom, then left-to-right.
func LayoutBlocks(glyphs []Glyph) []Block {
	lines := groupLines(glyphs)
	if len(lines) == 0 {
		return nil
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].rect.Y1 != lines[j].rect.Y1 {
			return lines[i].rect.Y1 > lines[j].rect.Y1
		}
		return lines[i].rect.X0 < lines[j].rect.X0
	})

	type building struct {
		rect     Rect
		baseline float64
		size     float64
		lines    []string
	}
	var open []*building
	for _, ln := range lines {
		var target *building
		for i := len(open) - 1; i >= 0; i-- {
			b := open[i]
			if !overlapsHorizontally(b.rect, ln.rect) {
				continue
			}
			leading := b.baseline - ln.baseline
			if leading > 0 && leading <= blockLeading*math.Max(b.size, ln.size) {
				target = b
			}
			break
		}
		if target == nil {
			open = append(open, &building{rect: ln.rect, baseline: ln.baseline, size: ln.size, lines: []string{ln.text}})
			continue
		}
		target.rect = target.rect.union(ln.rect)
		target.baseline = ln.baseline
		target.size = ln.size
		target.lines = append(target.lines, ln.text)
	}

	blocks := make([]Block, 0, len(open))
	for _, b := range open {
		blocks = append(blocks, Block{Rect: b.rect, Text: strings.Join(b.lines, "\n")})
	}
	SortBlocks(blocks)
	return blocks
}

// SortBlocks orders blocks top-to-bottom, then left-to-right.
func SortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Rect.Y1 != blocks[j].Rect.Y1 {
			return blocks[i].Rect.Y1 > blocks[j].Rect.Y1
		}
		return blocks[i].Rect.X0 < blocks[j].Rect.X0
	})
}

// FilterBlocks drops every block overlapping any of the regions.
func FilterBlocks(blocks []Block, regions []Rect) []Block {
	if len(regions) == 0 {
		return blocks
	}
	out := blocks[:0:0]
	for _, b := range blocks {
		excluded := false
		for _, r := range regions {
			if b.Rect.Overlaps(r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, b)
		}
	}
	return out
}

func overlapsHorizontally(a, b Rect) bool {
	return math.Min(a.X1, b.X1)-math.Max(a.X0, b.X0) > 0
}

// groupLines clusters glyphs that share a baseline, then splits each cluster
// at wide horizontal gaps so side-by-side columns yield separate lines.
func groupLines(glyphs []Glyph) []line {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			gs = append(gs, g)
		}
	}
	if len(gs) == 0 {
		return nil
	}
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Y != gs[j].Y {
			return gs[i].Y > gs[j].Y
		}
		return gs[i].X < gs[j].X
	})

	var lines []line
	start := 0
	for i := 1; i <= len(gs); i++ {
		if i < len(gs) && math.Abs(gs[start].Y-gs[i].Y) <= baselineTolerance*gs[start].size() {
			continue
		}
		lines = append(lines, splitBaseline(gs[start:i])...)
		start = i
	}
	return lines
}

func splitBaseline(gs []Glyph) []line {
	row := append([]Glyph(nil), gs...)
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

	var out []line
	var cur *line
	var sb strings.Builder
	var prevEnd float64
	pendingSpace := false

	flush := func() {
		if cur == nil {
			return
		}
		cur.text = strings.TrimSpace(sb.String())
		if cur.text != "" {
			out = append(out, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range row {
		box := g.box()
		blank := strings.TrimSpace(g.S) == ""
		if cur != nil && g.X-prevEnd > columnGap*g.size() {
			flush()
		}
		if blank {
			if cur != nil {
				pendingSpace = true
				prevEnd = math.Max(prevEnd, box.X1)
			}
			continue
		}
		if cur == nil {
			cur = &line{rect: box, baseline: g.Y, size: g.size()}
			pendingSpace = false
		} else {
			if pendingSpace || g.X-prevEnd > wordGap*g.size() {
				sb.WriteByte(' ')
			}
			pendingSpace = false
			cur.rect = cur.rect.union(box)
			cur.size = math.Max(cur.size, g.size())
		}
		sb.WriteString(g.S)
		prevEnd = box.X1
	}
	flush()
	return out
}
