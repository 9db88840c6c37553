// Package cleaner normalizes raw text blocks pulled out of documents and
// filters out page furniture that carries no content.
package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest block, in characters, that survives cleaning.
const MinLength = 3

var (
	hyphenBreakRe   = regexp.MustCompile(`-[ \t]*\r?\n\s*`)
	lowercaseWrapRe = regexp.MustCompile(`([a-z])[ \t]*\r?\n[ \t]*([a-z])`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`),
	regexp.MustCompile(`^\d+\s*/\s*\d+$`),
	regexp.MustCompile(`(?i)arxiv:\s*\d{4}\.\d{4,5}v\d+`),
	// Caption prefix followed by a number, colon or period.
	regexp.MustCompile(`(?i)^(figure|fig\.|table|tab\.)\s*[\d:.]`),
}

// Normalize joins hyphen-broken words, unwraps lowercase-to-lowercase line
// breaks and collapses whitespace.
func Normalize(s string) string {
	s = hyphenBreakRe.ReplaceAllString(s, "")
	// Adjacent wraps share a letter, so a single pass can leave some behind.
	for {
		next := lowercaseWrapRe.ReplaceAllString(s, "$1 $2")
		if next == s {
			break
		}
		s = next
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsBoilerplate reports whether a normalized block is a page number,
// carries an arXiv identifier, or is a figure/table caption.
func IsBoilerplate(s string) bool {
	for _, re := range boilerplatePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Clean normalizes a block and reports whether it should be kept.
func Clean(s string) (string, bool) {
	s = Normalize(s)
	if utf8.RuneCountInString(s) < MinLength {
		return "", false
	}
	if IsBoilerplate(s) {
		return "", false
	}
	return s, true
}

// Blocks cleans each block and returns the survivors in order.
func Blocks(raw []string) []string {
	var out []string
	for _, b := range raw {
		if c, ok := Clean(b); ok {
			out = append(out, c)
		}
	}
	return out
}
