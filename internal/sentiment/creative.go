package sentiment

import (
	"regexp"
	"strings"
)

var creativeHints = []string{
	"story", "metaphor", "imagine", "visualize",
	"analogy", "creative", "narrative", "scenario",
	"lighthouse", "stormy sea", "picture", "painted a picture",
}

var examplePhrases = []string{"for example", "for instance", "e.g.", "such as", " like "}

// wordRe matches Latin and Turkish word tokens, apostrophes included.
var wordRe = regexp.MustCompile(`[a-zğüşöçıİĞÜŞÖÇ']+`)

const (
	minCreativeTokens = 15
	minUniqueRatio    = 0.45
)

// LooksCreative reports whether text reads like an imaginative or
// example-driven answer: it contains a hint word or an example phrase, or it
// is long and lexically varied.
func LooksCreative(text string) bool {
	if text == "" {
		return false
	}
	s := strings.ToLower(text)
	tokens := wordRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return false
	}

	for _, w := range creativeHints {
		if strings.Contains(s, w) {
			return true
		}
	}
	for _, p := range examplePhrases {
		if strings.Contains(s, p) {
			return true
		}
	}

	uniq := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		uniq[t] = struct{}{}
	}
	ratio := float64(len(uniq)) / float64(len(tokens))
	return len(tokens) >= minCreativeTokens && ratio >= minUniqueRatio
}
