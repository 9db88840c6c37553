package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/docsense/internal/domain"
)

// buildPDF assembles a minimal PDF with one page per content stream. Every
// page gets a Helvetica font (F1) with fixed 500-unit widths and a 1x1 image
// XObject (Im1).
func buildPDF(contents ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	n := len(contents)
	// 1 catalog, 2 pages, 3 font, 4 image, then (page, content) pairs.
	kids := make([]string, n)
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>")
	obj("<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length 1 >>\nstream\n\x00\nendstream")
	for i, c := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> /XObject << /Im1 4 0 R >> >> /Contents %d 0 R >>", 6+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(c), c))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func textOp(size float64, x, y float64, s string) string {
	return fmt.Sprintf("BT /F1 %g Tf %g %g Td (%s) Tj ET\n", size, x, y, s)
}

func TestPDFParser_ExcludesFigureText(t *testing.T) {
	content := textOp(12, 72, 700, "Body text stays here.") +
		textOp(12, 72, 686, "second line of body.") +
		textOp(12, 72, 600, "Figure 1: chart caption") +
		textOp(12, 72, 520, "Outside the picture.") +
		"q 200 0 0 100 300 400 cm /Im1 Do Q\n" +
		textOp(10, 320, 450, "Label inside image") +
		"72 100 m 540 100 l S\n" +
		"72 150 200 120 re f\n" +
		textOp(12, 80, 200, "Text on the diagram") +
		textOp(12, 300, 40, "7")

	p := &PDFParser{}
	tree, err := p.Parse(bytes.NewReader(buildPDF(content)), "paper.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "paper" {
		t.Errorf("expected title %q, got %q", "paper", tree.Title)
	}

	want := "--- Page 1 ---\nBody text stays here. second line of body.\n\nOutside the picture."
	if got := tree.Render(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPDFParser_PageMarkersAndEmptyPages(t *testing.T) {
	pdf := buildPDF(
		textOp(12, 72, 700, "First page text."),
		textOp(12, 72, 700, "12"),
		textOp(12, 72, 700, "Third page text."),
	)
	tree, err := (&PDFParser{}).Parse(bytes.NewReader(pdf), "doc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "--- Page 1 ---\nFirst page text.\n\n--- Page 3 ---\nThird page text."
	if got := tree.Render(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPDFParser_HyphenatedLinesMerge(t *testing.T) {
	content := textOp(12, 72, 700, "The transfor-") + textOp(12, 72, 686, "mer model works.")
	tree, err := (&PDFParser{}).Parse(bytes.NewReader(buildPDF(content)), "h.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tree.Render(); got != "--- Page 1 ---\nThe transformer model works." {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestPDFParser_NoSurvivingText(t *testing.T) {
	content := "q 200 0 0 100 300 400 cm /Im1 Do Q\n" + textOp(10, 320, 450, "Only a label")
	_, err := (&PDFParser{}).Parse(bytes.NewReader(buildPDF(content)), "fig.pdf")
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestPDFParser_CorruptInput(t *testing.T) {
	inputs := map[string][]byte{
		"not a pdf": []byte("hello, this is plain text"),
		"truncated": buildPDF(textOp(12, 72, 700, "Some text."))[:60],
		"empty":     nil,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := (&PDFParser{}).Parse(bytes.NewReader(data), "bad.pdf")
			if !errors.Is(err, domain.ErrExtractionFailed) {
				t.Fatalf("expected ErrExtractionFailed, got %v", err)
			}
		})
	}
}

func TestParseBBoxLayout(t *testing.T) {
	out := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title></title></head>
<body>
<doc>
  <page width="612.000000" height="792.000000">
    <flow>
      <block xMin="72.0" yMin="300.0" xMax="300.0" yMax="320.0">
        <line xMin="72.0" yMin="300.0" xMax="300.0" yMax="320.0">
          <word xMin="72.0" yMin="300.0" xMax="100.0" yMax="320.0">Lower</word>
          <word xMin="104.0" yMin="300.0" xMax="150.0" yMax="320.0">block.</word>
        </line>
      </block>
      <block xMin="72.0" yMin="100.0" xMax="300.0" yMax="140.0">
        <line xMin="72.0" yMin="100.0" xMax="300.0" yMax="118.0">
          <word xMin="72.0" yMin="100.0" xMax="100.0" yMax="118.0">Upper</word>
        </line>
        <line xMin="72.0" yMin="120.0" xMax="300.0" yMax="140.0">
          <word xMin="72.0" yMin="120.0" xMax="100.0" yMax="140.0">block.</word>
        </line>
      </block>
    </flow>
  </page>
  <page width="612.000000" height="792.000000">
  </page>
</doc>
</body>
</html>`
	pages, err := parseBBoxLayout([]byte(out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0]) != 2 || len(pages[1]) != 0 {
		t.Fatalf("unexpected block counts: %d, %d", len(pages[0]), len(pages[1]))
	}
	if pages[0][0].Text != "Upper\nblock." || pages[0][1].Text != "Lower block." {
		t.Errorf("expected top block first, got %q then %q", pages[0][0].Text, pages[0][1].Text)
	}
	if r := pages[0][0].Rect; r.Y0 != 652 || r.Y1 != 692 {
		t.Errorf("expected flipped rect y=[652,692], got %+v", r)
	}
}
