package parser

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// extractPdftotext runs `pdftotext -bbox-layout` and reads block geometry from
// its XHTML output. No exclusion regions are available on this path.
func extractPdftotext(data []byte) ([][]Block, error) {
	tmp, err := os.CreateTemp("", "docsense-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-bbox-layout", tmpPath, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return parseBBoxLayout(out)
}

// parseBBoxLayout reads the <page>/<block>/<line>/<word> tree emitted by
// pdftotext -bbox-layout. Coordinates there run top-down; they are flipped
// into PDF user space so the blocks sort like the native path.
func parseBBoxLayout(out []byte) ([][]Block, error) {
	doc, err := html.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse bbox layout: %w", err)
	}

	var pages [][]Block
	var walk func(n *html.Node, pageHeight float64)
	walk = func(n *html.Node, pageHeight float64) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "page":
				pages = append(pages, nil)
				pageHeight = attrFloat(n, "height")
			case "block":
				if len(pages) == 0 {
					pages = append(pages, nil)
				}
				if b, ok := bboxBlock(n, pageHeight); ok {
					pages[len(pages)-1] = append(pages[len(pages)-1], b)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pageHeight)
		}
	}
	walk(doc, 0)

	for _, blocks := range pages {
		SortBlocks(blocks)
	}
	return pages, nil
}

func bboxBlock(n *html.Node, pageHeight float64) (Block, bool) {
	var lines []string
	for ln := n.FirstChild; ln != nil; ln = ln.NextSibling {
		if ln.Type != html.ElementNode || ln.Data != "line" {
			continue
		}
		var words []string
		for w := ln.FirstChild; w != nil; w = w.NextSibling {
			if w.Type == html.ElementNode && w.Data == "word" {
				if t := textContent(w); t != "" {
					words = append(words, t)
				}
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	if len(lines) == 0 {
		return Block{}, false
	}
	yMin, yMax := attrFloat(n, "ymin"), attrFloat(n, "ymax")
	return Block{
		Rect: Rect{
			X0: attrFloat(n, "xmin"),
			Y0: pageHeight - yMax,
			X1: attrFloat(n, "xmax"),
			Y1: pageHeight - yMin,
		},
		Text: strings.Join(lines, "\n"),
	}, true
}

func attrFloat(n *html.Node, name string) float64 {
	f, _ := strconv.ParseFloat(attr(n, name), 64)
	return f
}
