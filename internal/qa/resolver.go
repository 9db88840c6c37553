package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/chunker"
	"github.com/dgallion1/docsense/internal/domain"
)

// Answerer is an extractive QA model: it returns up to topK candidate spans
// with offsets local to the context it was given.
type Answerer interface {
	Answer(ctx context.Context, question, passage string, topK, maxAnswerLen int) ([]domain.AnswerSpan, error)
}

// Refiner is a generative model that deterministically rewrites a prompt's subject.
type Refiner interface {
	Refine(ctx context.Context, prompt string) (string, error)
}

// approxCharsPerToken converts the model's answer budget (tokens) into the
// character overlap the chunker must guarantee.
const approxCharsPerToken = 4

// Config holds the resolver's tunables.
type Config struct {
	ChunkSize       int     // Context window per model call, in characters.
	OverlapFraction float64 // Overlap between consecutive windows.
	TopK            int     // Candidates requested per window.
	ConfidenceFloor float64 // Minimum score for the best candidate.
	MaxAnswerLength int     // Longest answer the model may return, in tokens.
	Refine          bool    // Rewrite the answer sentence with the Refiner.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       2000,
		OverlapFraction: 0.2,
		TopK:            3,
		ConfidenceFloor: 0.05,
		MaxAnswerLength: 64,
	}
}

// ChunkConfig derives the chunker settings, sizing the overlap so the
// longest permitted answer cannot be split across a window boundary.
func (c Config) ChunkConfig() chunker.Config {
	return chunker.Config{
		ChunkSize:       c.ChunkSize,
		OverlapFraction: c.OverlapFraction,
		MinOverlap:      c.MaxAnswerLength * approxCharsPerToken,
	}
}

// Result is the outcome of one question.
type Result struct {
	Answer     string      `json:"answer"`
	Confident  bool        `json:"confident"`
	Score      float64     `json:"score"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Span       string      `json:"span,omitempty"`
	Refined    bool        `json:"refined"`
	Candidates []Candidate `json:"-"`
}

// Resolver finds the best-supported answer to a question in a long context.
type Resolver struct {
	answerer  Answerer
	refiner   Refiner
	segmenter Segmenter
	cfg       Config
	log       *slog.Logger
}

// NewResolver builds a resolver. refiner and seg may be nil; a nil Segmenter
// falls back to PunctuationSegmenter.
func NewResolver(answerer Answerer, refiner Refiner, seg Segmenter, cfg Config, log *slog.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.OverlapFraction < 0 || cfg.OverlapFraction >= 1 {
		cfg.OverlapFraction = def.OverlapFraction
	}
	if cfg.TopK < 1 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxAnswerLength <= 0 {
		cfg.MaxAnswerLength = def.MaxAnswerLength
	}
	if seg == nil {
		seg = PunctuationSegmenter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		answerer:  answerer,
		refiner:   refiner,
		segmenter: seg,
		cfg:       cfg,
		log:       log,
	}
}

// Config returns the effective configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve answers question from document. A missing or low-confidence answer is
// not an error: the result carries domain.NoConfidentAnswer and Confident=false.
// Model failures are returned wrapped in domain.ErrModelInference.
func (r *Resolver) Resolve(ctx context.Context, question, document string) (Result, error) {
	if strings.TrimSpace(question) == "" {
		return Result{}, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(document) == "" {
		return Result{Answer: domain.NoConfidentAnswer}, nil
	}

	start := time.Now()
	windows := chunker.Split(document, r.cfg.ChunkConfig())
	log := r.log.With("windows", len(windows), "context_len", utf8.RuneCountInString(document))

	var pool []Candidate
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		spans, err := r.answerer.Answer(ctx, question, w.Text, r.cfg.TopK, r.cfg.MaxAnswerLength)
		if err != nil {
			log.Error("extractive model failed", "window", i, "error", err)
			return Result{}, fmt.Errorf("window %d: %w", i, domain.WrapInference(err))
		}
		windowLen := w.End - w.Start
		for _, s := range spans {
			if s.Start < 0 || s.End > windowLen || s.Start > s.End {
				log.Debug("dropping span with invalid offsets", "window", i, "start", s.Start, "end", s.End)
				continue
			}
			pool = append(pool, FromSpan(s, w.Start))
		}
	}

	Rank(pool)
	if len(pool) == 0 || pool[0].Score < r.cfg.ConfidenceFloor {
		best := 0.0
		if len(pool) > 0 {
			best = pool[0].Score
		}
		log.Info("no confident answer", "candidates", len(pool), "best_score", best, "floor", r.cfg.ConfidenceFloor,
			"duration_ms", time.Since(start).Milliseconds())
		return Result{Answer: domain.NoConfidentAnswer, Score: best, Candidates: pool}, nil
	}

	top := pool[0]
	span := spanText(document, top)
	answer := Expand(document, top.Start, top.End, r.segmenter)
	if strings.TrimSpace(answer) == "" {
		answer = span
	}

	res := Result{
		Answer:     answer,
		Confident:  true,
		Score:      top.Score,
		Start:      top.Start,
		End:        top.End,
		Span:       span,
		Candidates: pool,
	}

	if r.cfg.Refine && r.refiner != nil {
		refined, err := r.refiner.Refine(ctx, BuildRefinePrompt(question, answer))
		refined = strings.TrimSpace(refined)
		switch {
		case err != nil:
			log.Warn("refinement failed, returning raw sentence", "error", err)
		case refined == "":
			log.Warn("refinement returned empty text, returning raw sentence")
		default:
			res.Answer = refined
			res.Refined = true
		}
	}

	log.Info("answer resolved",
		"candidates", len(pool),
		"score", top.Score,
		"start", top.Start,
		"end", top.End,
		"refined", res.Refined,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// spanText returns the candidate's text as it appears in the context,
// falling back to the model-reported text.
func spanText(document string, c Candidate) string {
	runes := []rune(document)
	if c.Start >= 0 && c.End <= len(runes) && c.Start < c.End {
		if s := strings.TrimSpace(string(runes[c.Start:c.End])); s != "" {
			return s
		}
	}
	return strings.TrimSpace(c.Text)
}
