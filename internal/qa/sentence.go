package qa

import "strings"

// Sentence is a [Start, End) rune range of a text.
type Sentence struct {
	Start int
	End   int
}

// Segmenter splits text into ordered, contiguous sentence ranges that
// together cover the whole text.
type Segmenter interface {
	Segment(text []rune) []Sentence
}

// PunctuationSegmenter ends a sentence right after every '.', '!' or '?'.
// Abbreviations and decimal numbers are not special-cased.
type PunctuationSegmenter struct{}

func (PunctuationSegmenter) Segment(text []rune) []Sentence {
	var out []Sentence
	start := 0
	for i, r := range text {
		if isTerminal(r) {
			out = append(out, Sentence{Start: start, End: i + 1})
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, Sentence{Start: start, End: len(text)})
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Expand returns the trimmed sentence range enclosing [start, end) of text.
// The sentence starts where the sentence containing start begins and ends
// where the sentence containing end finishes (or at the end of text when
// end is past the last character). Offsets are in runes.
func Expand(text string, start, end int, seg Segmenter) string {
	if seg == nil {
		seg = PunctuationSegmenter{}
	}
	runes := []rune(text)
	n := len(runes)
	start = clamp(start, 0, n)
	end = clamp(end, start, n)

	sentences := seg.Segment(runes)
	from, to := start, n
	for _, s := range sentences {
		if s.Start <= start && start < s.End {
			from = s.Start
			break
		}
	}
	if end < n {
		for _, s := range sentences {
			if s.Start <= end && end < s.End {
				to = s.End
				break
			}
		}
	}
	if from > to {
		return ""
	}
	return strings.TrimSpace(string(runes[from:to]))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
