package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docsense/internal/domain"
	"github.com/dgallion1/docsense/internal/metrics"
	"github.com/dgallion1/docsense/internal/parser"
	"github.com/dgallion1/docsense/internal/qa"
	"github.com/dgallion1/docsense/internal/sentiment"
	"github.com/dgallion1/docsense/internal/textcache"
)

// Upload is a document received from a client.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
	// PDFOnly rejects anything whose declared media type is not application/pdf.
	PDFOnly bool
}

// Document is the cleaned text of an upload.
type Document struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
	Format   string `json:"format"`
	Text     string `json:"text"`
	Cached   bool   `json:"cached"`
}

// DocumentAnswer pairs a resolved answer with the document it came from.
type DocumentAnswer struct {
	Document Document
	Result   qa.Result
}

// Service runs each request start to finish on the calling goroutine:
// extraction, then answer resolution or classification.
type Service struct {
	resolver *qa.Resolver
	analyzer *sentiment.Analyzer
	cache    *textcache.Cache
	opts     parser.Options
	log      *slog.Logger
}

// NewService wires the request pipeline. cache may be nil.
func NewService(resolver *qa.Resolver, analyzer *sentiment.Analyzer, cache *textcache.Cache, opts parser.Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver: resolver,
		analyzer: analyzer,
		cache:    cache,
		opts:     opts,
		log:      log,
	}
}

// ExtractText parses an upload into page- or section-delimited text.
// Results are memoised by content hash when a cache is configured.
func (s *Service) ExtractText(ctx context.Context, up Upload) (Document, error) {
	p, format, err := s.parserFor(up)
	if err != nil {
		return Document{}, err
	}
	if len(up.Data) == 0 {
		return Document{}, fmt.Errorf("%s is empty: %w", displayName(up.Filename), domain.ErrInvalidInput)
	}

	log := s.log.With("filename", up.Filename, "format", format, "bytes", len(up.Data))
	key := format + ":" + ContentHashHex(up.Data)
	if e, ok := s.cache.Get(ctx, key); ok {
		log.Debug("extracted text served from cache")
		return Document{Filename: up.Filename, Title: e.Title, Format: format, Text: e.Text, Cached: true}, nil
	}

	start := time.Now()
	tree, err := p.Parse(bytes.NewReader(up.Data), up.Filename)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(format, "error").Inc()
		log.Warn("extraction failed", "error", err)
		if !errors.Is(err, domain.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return Document{}, err
	}

	text := tree.Render()
	if strings.TrimSpace(text) == "" {
		metrics.ExtractionsTotal.WithLabelValues(format, "empty").Inc()
		return Document{}, fmt.Errorf("%w: no text could be extracted", domain.ErrExtractionFailed)
	}
	metrics.ExtractionsTotal.WithLabelValues(format, "success").Inc()
	log.Info("document extracted",
		"sections", len(tree.Children),
		"chars", len([]rune(text)),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.cache.Put(ctx, key, textcache.Entry{Text: text, Title: tree.Title, Format: format, ExtractedAt: time.Now().UTC()})
	return Document{Filename: up.Filename, Title: tree.Title, Format: format, Text: text}, nil
}

// AskDocument extracts the upload and answers question from its text.
func (s *Service) AskDocument(ctx context.Context, question string, up Upload) (DocumentAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return DocumentAnswer{}, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}
	doc, err := s.ExtractText(ctx, up)
	if err != nil {
		return DocumentAnswer{}, err
	}
	res, err := s.resolver.Resolve(ctx, question, doc.Text)
	if err != nil {
		return DocumentAnswer{Document: doc}, err
	}
	return DocumentAnswer{Document: doc, Result: res}, nil
}

// Ask answers question from a caller-supplied context string.
func (s *Service) Ask(ctx context.Context, question, document string) (qa.Result, error) {
	return s.resolver.Resolve(ctx, question, document)
}

// Analyze classifies a piece of feedback for sentiment and helpfulness.
func (s *Service) Analyze(ctx context.Context, text string) (sentiment.Result, error) {
	return s.analyzer.Analyze(ctx, text)
}

// parserFor picks the parser for an upload and names its format.
func (s *Service) parserFor(up Upload) (parser.Parser, string, error) {
	if up.PDFOnly {
		if !parser.IsPDF(up.MediaType) {
			return nil, "", fmt.Errorf("%s has media type %q, only PDF files are accepted: %w",
				displayName(up.Filename), up.MediaType, domain.ErrUnsupportedMediaType)
		}
		p, err := parser.ForMediaType(parser.MediaTypePDF, s.opts)
		return p, "pdf", err
	}

	if parser.IsSupportedExtension(up.Filename) {
		p, err := parser.ForFile(up.Filename, s.opts)
		if err != nil {
			return nil, "", err
		}
		return p, strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), "."), nil
	}

	p, err := parser.ForMediaType(up.MediaType, s.opts)
	if err != nil {
		return nil, "", err
	}
	return p, formatOf(parser.NormalizeMediaType(up.MediaType)), nil
}

func formatOf(mediaType string) string {
	switch mediaType {
	case parser.MediaTypePDF:
		return "pdf"
	case "text/plain":
		return "txt"
	case "text/markdown", "text/x-markdown":
		return "md"
	case "text/csv":
		return "csv"
	case "text/html":
		return "html"
	default:
		return "docx"
	}
}

func displayName(filename string) string {
	if filename == "" {
		return "upload"
	}
	return filename
}
