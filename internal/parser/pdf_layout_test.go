package parser

import (
	"math"
	"testing"
)

// word lays out s as fixed-width glyphs starting at x on baseline y.
func word(s string, x, y, size float64) []Glyph {
	w := 0.5 * size
	var gs []Glyph
	for _, r := range s {
		gs = append(gs, Glyph{X: x, Y: y, W: w, FontSize: size, S: string(r)})
		x += w
	}
	return gs
}

func concat(parts ...[]Glyph) []Glyph {
	var out []Glyph
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestRect_Overlaps(t *testing.T) {
	base := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"inside", Rect{X0: 2, Y0: 2, X1: 4, Y1: 4}, true},
		{"partial", Rect{X0: 8, Y0: 8, X1: 20, Y1: 20}, true},
		{"touching edge", Rect{X0: 10, Y0: 0, X1: 20, Y1: 10}, false},
		{"touching corner", Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}, false},
		{"disjoint", Rect{X0: 30, Y0: 30, X1: 40, Y1: 40}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLayoutBlocks_LinesAndParagraphs(t *testing.T) {
	glyphs := concat(
		word("first line", 72, 700, 10),
		word("second line", 72, 688, 10),
		word("new paragraph", 72, 650, 10),
	)
	blocks := LayoutBlocks(glyphs)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "first line\nsecond line" {
		t.Errorf("unexpected first block %q", blocks[0].Text)
	}
	if blocks[1].Text != "new paragraph" {
		t.Errorf("unexpected second block %q", blocks[1].Text)
	}
	if blocks[0].Rect.Y1 <= blocks[1].Rect.Y1 {
		t.Errorf("expected blocks ordered top-down, got %+v", blocks)
	}
}

func TestLayoutBlocks_WordGapInsertsSpace(t *testing.T) {
	// No explicit space glyph; the 4pt gap exceeds 0.2 font sizes.
	glyphs := concat(word("alpha", 72, 700, 10), word("beta", 72+25+4, 700, 10))
	blocks := LayoutBlocks(glyphs)
	if len(blocks) != 1 || blocks[0].Text != "alpha beta" {
		t.Fatalf("expected single block %q, got %+v", "alpha beta", blocks)
	}
}

func TestLayoutBlocks_ColumnsSplit(t *testing.T) {
	glyphs := concat(
		word("left column", 72, 700, 10),
		word("right column", 320, 700, 10),
		word("left again", 72, 688, 10),
		word("right again", 320, 688, 10),
	)
	blocks := LayoutBlocks(glyphs)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 column blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "left column\nleft again" {
		t.Errorf("unexpected left block %q", blocks[0].Text)
	}
	if blocks[1].Text != "right column\nright again" {
		t.Errorf("unexpected right block %q", blocks[1].Text)
	}
}

func TestLayoutBlocks_Empty(t *testing.T) {
	if blocks := LayoutBlocks(nil); blocks != nil {
		t.Fatalf("expected nil, got %+v", blocks)
	}
	if blocks := LayoutBlocks(word("   ", 0, 0, 10)); len(blocks) != 0 {
		t.Fatalf("expected no blocks for blank glyphs, got %+v", blocks)
	}
}

func TestFilterBlocks(t *testing.T) {
	blocks := []Block{
		{Rect: Rect{X0: 0, Y0: 90, X1: 100, Y1: 100}, Text: "kept above"},
		{Rect: Rect{X0: 10, Y0: 40, X1: 60, Y1: 50}, Text: "inside figure"},
		{Rect: Rect{X0: 0, Y0: 70, X1: 100, Y1: 80}, Text: "touching figure"},
	}
	figure := Rect{X0: 0, Y0: 20, X1: 100, Y1: 70}

	got := FilterBlocks(blocks, []Rect{figure})
	if len(got) != 2 || got[0].Text != "kept above" || got[1].Text != "touching figure" {
		t.Fatalf("unexpected survivors %+v", got)
	}
	if len(blocks) != 3 || blocks[1].Text != "inside figure" {
		t.Fatalf("expected input slice untouched, got %+v", blocks)
	}

	if got := FilterBlocks(blocks, nil); len(got) != 3 {
		t.Fatalf("expected all blocks without regions, got %d", len(got))
	}
}

func TestMatrix_TransformRect(t *testing.T) {
	// Scale to 200x100, then translate to (300, 400).
	ctm := matrix{200, 0, 0, 100, 300, 400}
	got := ctm.transformRect(Rect{X0: 0, Y0: 0, X1: 1, Y1: 1})
	want := Rect{X0: 300, Y0: 400, X1: 500, Y1: 500}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// cm concatenation: a translate applied inside a scaled space.
	outer := matrix{2, 0, 0, 2, 0, 0}
	inner := matrix{1, 0, 0, 1, 10, 20}
	x, y := inner.mul(outer).apply(0, 0)
	if x != 20 || y != 40 {
		t.Fatalf("expected (20, 40), got (%v, %v)", x, y)
	}

	rot := matrix{0, 1, -1, 0, 0, 0}
	r := rot.transformRect(Rect{X0: 0, Y0: 0, X1: 10, Y1: 5})
	if math.Abs(r.X0+5) > 1e-9 || math.Abs(r.X1) > 1e-9 || math.Abs(r.Y1-10) > 1e-9 {
		t.Fatalf("unexpected rotated rect %+v", r)
	}
}

func TestRegionTracker_DrawingThreshold(t *testing.T) {
	tr := &regionTracker{ctm: identity}
	tr.addDrawing(Rect{X0: 0, Y0: 0, X1: 540, Y1: 1})
	tr.addDrawing(Rect{X0: 0, Y0: 0, X1: 50, Y1: 50})
	tr.addDrawing(Rect{X0: 0, Y0: 0, X1: 51, Y1: 51})
	if len(tr.regions) != 1 || tr.regions[0].X1 != 51 {
		t.Fatalf("expected only the 51x51 drawing, got %+v", tr.regions)
	}
}
