package doctree

import (
	"fmt"
	"strings"
)

// DocTree is a cleaned document: an ordered list of page or section nodes.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Pages for PDFs, sections for other formats
}

// DocNode is one page or section of cleaned text.
type DocNode struct {
	Title  string   // Section heading (empty for pages and untitled text)
	Blocks []string // Cleaned text blocks in reading order
	Page   int      // 1-based source page (0 if N/A)
}

// Text joins the node's blocks with blank lines.
func (n *DocNode) Text() string {
	return strings.Join(n.Blocks, "\n\n")
}

// Empty reports whether the node carries no text.
func (n *DocNode) Empty() bool {
	for _, b := range n.Blocks {
		if strings.TrimSpace(b) != "" {
			return false
		}
	}
	return true
}

// Render produces the page-delimited text handed to the answer resolver.
// Pages are prefixed with "--- Page N ---"; titled sections with their title.
// Empty nodes are skipped.
func (t *DocTree) Render() string {
	parts := make([]string, 0, len(t.Children))
	for _, n := range t.Children {
		if n.Empty() {
			continue
		}
		var sb strings.Builder
		switch {
		case n.Page > 0:
			sb.WriteString(fmt.Sprintf("--- Page %d ---\n", n.Page))
		case n.Title != "":
			sb.WriteString(n.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(n.Text())
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}
