package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgallion1/docsense/internal/domain"
)

// Polarity labels.
const (
	Positive = "Positive"
	Negative = "Negative"
)

// Helpfulness labels, in the classifier's output order.
const (
	Helpful   = "helpful"
	Creative  = "creative"
	Unhelpful = "unhelpful"
)

// HelpLabels maps classifier indices (LABEL_0, LABEL_1, ...) to label names.
var HelpLabels = []string{Helpful, Creative, Unhelpful}

const (
	// creativeFloor is the minimum score a "creative" prediction needs to stand.
	creativeFloor = 0.60
	// positiveFloor is the polarity score above which an unhelpful answer
	// may be promoted to creative.
	positiveFloor = 0.70
)

// Classifier is a text classification model.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]domain.LabelScore, error)
}

// Score is a label with its confidence in [0, 1].
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is the combined analysis of a piece of feedback.
type Result struct {
	Sentiment   Score `json:"sentiment"`
	Helpfulness Score `json:"helpfulness"`
}

// Analyzer runs the polarity and helpfulness classifiers and applies the
// rule overlay.
type Analyzer struct {
	polarity    Classifier
	helpfulness Classifier
	log         *slog.Logger
}

// NewAnalyzer creates an analyzer over the two classifiers.
func NewAnalyzer(polarity, helpfulness Classifier, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{polarity: polarity, helpfulness: helpfulness, log: log}
}

// Analyze classifies text for sentiment and helpfulness.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}

	polScores, err := a.polarity.Classify(ctx, text)
	if err != nil {
		return Result{}, wrapInference("polarity", err)
	}
	sent, err := Polarity(polScores)
	if err != nil {
		return Result{}, err
	}

	helpScores, err := a.helpfulness.Classify(ctx, text)
	if err != nil {
		return Result{}, wrapInference("helpfulness", err)
	}
	raw, err := Helpfulness(helpScores)
	if err != nil {
		return Result{}, err
	}

	final := ApplyRules(raw.Label, raw.Score, sent.Label, sent.Score, text)
	if final != raw.Label {
		a.log.Debug("helpfulness label adjusted", "raw", raw.Label, "final", final, "raw_score", raw.Score)
	}

	return Result{
		Sentiment:   sent,
		Helpfulness: Score{Label: final, Score: raw.Score},
	}, nil
}

// Polarity derives the Positive/Negative verdict from classifier output.
// The positive probability p comes from a positive label directly, or as
// 1 - score of a negative label. Scores are truncated to whole percent.
func Polarity(scores []domain.LabelScore) (Score, error) {
	p, ok := positiveProbability(scores)
	if !ok {
		return Score{}, fmt.Errorf("polarity: no usable label in %d scores: %w", len(scores), domain.ErrModelInference)
	}
	pct := p * 100
	if p > 0.5 {
		return Score{Label: Positive, Score: float64(int(pct)) / 100}, nil
	}
	return Score{Label: Negative, Score: float64(int(100-pct)) / 100}, nil
}

func positiveProbability(scores []domain.LabelScore) (float64, bool) {
	for _, s := range scores {
		switch strings.ToLower(s.Label) {
		case "positive", "pos", "label_1":
			return s.Score, true
		}
	}
	for _, s := range scores {
		switch strings.ToLower(s.Label) {
		case "negative", "neg", "label_0":
			return 1 - s.Score, true
		}
	}
	return 0, false
}

// Helpfulness picks the highest-scoring helpfulness label. Ties go to the
// label listed first in HelpLabels.
func Helpfulness(scores []domain.LabelScore) (Score, error) {
	best := Score{Score: -1}
	bestIdx := len(HelpLabels)
	for _, s := range scores {
		idx, ok := helpIndex(s.Label)
		if !ok {
			continue
		}
		if s.Score > best.Score || (s.Score == best.Score && idx < bestIdx) {
			best = Score{Label: HelpLabels[idx], Score: s.Score}
			bestIdx = idx
		}
	}
	if best.Label == "" {
		return Score{}, fmt.Errorf("helpfulness: no usable label in %d scores: %w", len(scores), domain.ErrModelInference)
	}
	return best, nil
}

func helpIndex(label string) (int, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	for i, name := range HelpLabels {
		if l == name {
			return i, true
		}
	}
	if rest, ok := strings.CutPrefix(l, "label_"); ok {
		i, err := strconv.Atoi(rest)
		if err == nil && i >= 0 && i < len(HelpLabels) {
			return i, true
		}
	}
	return 0, false
}

// ApplyRules adjusts the raw helpfulness label:
//   - a creative prediction scoring below 0.60 becomes helpful;
//   - an unhelpful prediction on clearly positive (>= 0.70) text that looks
//     creative becomes creative.
func ApplyRules(raw string, rawScore float64, sentimentLabel string, sentimentScore float64, text string) string {
	final := raw
	if raw == Creative && rawScore < creativeFloor {
		final = Helpful
	}
	clearlyPositive := strings.EqualFold(sentimentLabel, Positive) && sentimentScore >= positiveFloor
	if raw == Unhelpful && clearlyPositive && LooksCreative(text) {
		final = Creative
	}
	return final
}

func wrapInference(model string, err error) error {
	return fmt.Errorf("%s classifier: %w", model, domain.WrapInference(err))
}
