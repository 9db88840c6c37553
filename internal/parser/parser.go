package parser

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsense/internal/cleaner"
	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/domain"
)

// Parser converts raw document bytes into a cleaned DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options configures parser construction.
type Options struct {
	// PDFFallback retries unreadable PDFs with the pdftotext binary.
	PDFFallback bool
}

// MediaTypePDF is the only media type accepted by PDF-only entry points.
const MediaTypePDF = "application/pdf"

const mediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("file extension %q: %w", ext, domain.ErrUnsupportedMediaType)
	}
}

// ForMediaType returns the parser for a declared content type. Parameters
// such as charset are ignored.
func ForMediaType(mediaType string, opts Options) (Parser, error) {
	switch NormalizeMediaType(mediaType) {
	case MediaTypePDF:
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case "text/plain":
		return &TextParser{}, nil
	case "text/markdown", "text/x-markdown":
		return &MarkdownParser{}, nil
	case "text/csv":
		return &CSVParser{}, nil
	case "text/html":
		return &HTMLParser{}, nil
	case mediaTypeDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("media type %q: %w", mediaType, domain.ErrUnsupportedMediaType)
	}
}

// NormalizeMediaType lowercases a content type and strips its parameters.
func NormalizeMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

// IsPDF reports whether the declared content type is PDF.
func IsPDF(mediaType string) bool {
	return NormalizeMediaType(mediaType) == MediaTypePDF
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// sections accumulates heading-delimited nodes for the structured text formats.
// Every block goes through the cleaner.
type sections struct {
	nodes []*doctree.DocNode
	cur   *doctree.DocNode
}

func (s *sections) heading(title string) {
	title = cleaner.Normalize(title)
	s.cur = &doctree.DocNode{Title: title}
	s.nodes = append(s.nodes, s.cur)
}

func (s *sections) block(text string) {
	cleaned, ok := cleaner.Clean(text)
	if !ok {
		return
	}
	if s.cur == nil {
		s.cur = &doctree.DocNode{}
		s.nodes = append(s.nodes, s.cur)
	}
	s.cur.Blocks = append(s.cur.Blocks, cleaned)
}

func (s *sections) tree(title string) *doctree.DocTree {
	t := &doctree.DocTree{Title: title}
	for _, n := range s.nodes {
		if !n.Empty() {
			t.Children = append(t.Children, n)
		}
	}
	return t
}

func trimExt(filename string, exts ...string) string {
	if filename == "" {
		return ""
	}
	base := filepath.Base(filename)
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}
