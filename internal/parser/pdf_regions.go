package parser

import (
	"math"

	pdflib "github.com/ledongthuc/pdf"
)

// minDrawingSize is the width and height a vector drawing must both exceed
// to count as a figure rather than a rule or underline.
const minDrawingSize = 50

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n (apply m, then n).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// transformRect maps r through m and returns the bounding box of the result.
func (m matrix) transformRect(r Rect) Rect {
	var b bbox
	for _, p := range [][2]float64{{r.X0, r.Y0}, {r.X1, r.Y0}, {r.X0, r.Y1}, {r.X1, r.Y1}} {
		x, y := m.apply(p[0], p[1])
		b.add(x, y)
	}
	return b.rect()
}

type bbox struct {
	set bool
	r   Rect
}

func (b *bbox) add(x, y float64) {
	if !b.set {
		b.r = Rect{X0: x, Y0: y, X1: x, Y1: y}
		b.set = true
		return
	}
	b.r.X0 = math.Min(b.r.X0, x)
	b.r.Y0 = math.Min(b.r.Y0, y)
	b.r.X1 = math.Max(b.r.X1, x)
	b.r.Y1 = math.Max(b.r.Y1, y)
}

func (b *bbox) rect() Rect { return b.r }

// regionTracker walks a content stream and records exclusion regions: the
// placement of every image XObject, and every painted path or form XObject
// larger than minDrawingSize in both dimensions.
type regionTracker struct {
	xobjects pdflib.Value
	ctm      matrix
	stack    []matrix
	path     bbox
	regions  []Rect
}

func newRegionTracker(resources pdflib.Value) *regionTracker {
	return &regionTracker{xobjects: resources.Key("XObject"), ctm: identity}
}

func (t *regionTracker) addDrawing(r Rect) {
	if r.Width() > minDrawingSize && r.Height() > minDrawingSize {
		t.regions = append(t.regions, r)
	}
}

func (t *regionTracker) point(x, y float64) {
	x, y = t.ctm.apply(x, y)
	t.path.add(x, y)
}

func (t *regionTracker) op(stk *pdflib.Stack, op string) {
	args := make([]pdflib.Value, stk.Len())
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	num := func(i int) float64 { return args[i].Float64() }

	switch op {
	case "q":
		t.stack = append(t.stack, t.ctm)
	case "Q":
		if n := len(t.stack); n > 0 {
			t.ctm = t.stack[n-1]
			t.stack = t.stack[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			m := matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			t.ctm = m.mul(t.ctm)
		}
	case "m", "l":
		if len(args) == 2 {
			t.point(num(0), num(1))
		}
	case "c":
		if len(args) == 6 {
			t.point(num(0), num(1))
			t.point(num(2), num(3))
			t.point(num(4), num(5))
		}
	case "v", "y":
		if len(args) == 4 {
			t.point(num(0), num(1))
			t.point(num(2), num(3))
		}
	case "re":
		if len(args) == 4 {
			x, y, w, h := num(0), num(1), num(2), num(3)
			t.point(x, y)
			t.point(x+w, y+h)
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		if t.path.set {
			t.addDrawing(t.path.rect())
		}
		t.path = bbox{}
	case "n":
		t.path = bbox{}
	case "Do":
		if len(args) == 1 {
			t.placeXObject(args[0].Name())
		}
	}
}

func (t *regionTracker) placeXObject(name string) {
	xo := t.xobjects.Key(name)
	if xo.IsNull() {
		return
	}
	switch xo.Key("Subtype").Name() {
	case "Image":
		t.regions = append(t.regions, t.ctm.transformRect(Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}))
	case "Form":
		bb := xo.Key("BBox")
		if bb.Len() != 4 {
			return
		}
		r := Rect{X0: bb.Index(0).Float64(), Y0: bb.Index(1).Float64(), X1: bb.Index(2).Float64(), Y1: bb.Index(3).Float64()}
		m := identity
		if mv := xo.Key("Matrix"); mv.Len() == 6 {
			for i := range m {
				m[i] = mv.Index(i).Float64()
			}
		}
		t.addDrawing(m.mul(t.ctm).transformRect(r))
	}
}

// pageRegions interprets every content stream of the page and returns its
// exclusion regions.
func pageRegions(page pdflib.Page) []Rect {
	t := newRegionTracker(page.Resources())
	contents := page.V.Key("Contents")
	if contents.Kind() == pdflib.Array {
		for i := 0; i < contents.Len(); i++ {
			pdflib.Interpret(contents.Index(i), t.op)
		}
	} else {
		pdflib.Interpret(contents, t.op)
	}
	return t.regions
}
