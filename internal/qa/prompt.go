package qa

import "strings"

// RefinePrompt asks the generative model to clean up an extracted sentence
// without changing what it says.
const RefinePrompt = `Rewrite the following sentence so that it reads cleanly. Rules:
- Join words that were split by hyphenation at a line break (e.g. "transfor- mer" becomes "transformer")
- Fix grammar and spacing only
- Do not add, remove or reinterpret any information
- Return only the corrected sentence, with no quotes or commentary`

// BuildRefinePrompt creates the full refinement prompt for one sentence.
// The question is included as context so the model keeps the answering clause intact.
func BuildRefinePrompt(question, sentence string) string {
	var sb strings.Builder
	sb.WriteString(RefinePrompt)
	sb.WriteString("\n\n---\n")
	if q := strings.TrimSpace(question); q != "" {
		sb.WriteString("Question: ")
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	sb.WriteString("Sentence: ")
	sb.WriteString(sentence)
	sb.WriteString("\n---\nCorrected sentence:")
	return sb.String()
}
