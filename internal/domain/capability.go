package domain

// AnswerSpan is one candidate returned by an extractive QA model.
// Start and End are rune offsets into the context the model was given.
type AnswerSpan struct {
	Text  string  `json:"answer"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// LabelScore is one label/probability pair from a text classifier.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
