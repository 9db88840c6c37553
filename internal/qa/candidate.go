package qa

import (
	"sort"

	"github.com/dgallion1/docsense/internal/domain"
)

// Candidate is an answer span in global document coordinates.
type Candidate struct {
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// FromSpan converts a chunk-local model span into a global candidate by
// shifting its offsets by the chunk's start.
func FromSpan(s domain.AnswerSpan, chunkStart int) Candidate {
	return Candidate{
		Text:  s.Text,
		Start: s.Start + chunkStart,
		End:   s.End + chunkStart,
		Score: s.Score,
	}
}

// Rank sorts candidates best first: descending score, then ascending start.
// End and text break any remaining ties so the order never depends on input order.
func Rank(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Text < b.Text
	})
}

// Translate returns c shifted by offset characters.
func (c Candidate) Translate(offset int) Candidate {
	c.Start += offset
	c.End += offset
	return c
}
