package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docsense/internal/cleaner"
	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/domain"
)

// PDFParser extracts body text from PDFs page by page. Text overlapping
// embedded images or large vector drawings is dropped, and every surviving
// block is cleaned. It tries the Go library first, then falls back to
// pdftotext when enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := extractPDFPages(data)
	if err != nil && p.FallbackPdftotext {
		var fbErr error
		pages, fbErr = extractPdftotext(data)
		if fbErr != nil {
			err = errors.Join(err, fbErr)
		} else {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	tree := &doctree.DocTree{Title: trimExt(filename, ".pdf")}
	for i, blocks := range pages {
		texts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			texts = append(texts, b.Text)
		}
		cleaned := cleaner.Blocks(texts)
		if len(cleaned) == 0 {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Blocks: cleaned,
			Page:   i + 1,
		})
	}

	if len(tree.Children) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted", domain.ErrExtractionFailed)
	}
	return tree, nil
}

// extractPDFPages returns the surviving layout blocks of every page, in page
// order. The PDF library panics on some malformed input; panics are reported
// as errors.
func extractPDFPages(data []byte) (pages [][]Block, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages = make([][]Block, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages[i-1] = pageBlocks(page)
	}
	return pages, nil
}

// pageBlocks lays out the page's text and removes blocks inside exclusion regions.
func pageBlocks(page pdflib.Page) []Block {
	content := page.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return FilterBlocks(LayoutBlocks(glyphs), pageRegions(page))
}
