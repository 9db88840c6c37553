package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
)

// TextParser handles plain text. Blank lines separate blocks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var s sections
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				s.block(current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		s.block(current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return s.tree(trimExt(filename, ".txt")), nil
}
