package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
)

// CSVParser handles CSV files. Rows are grouped into sections of csvBatchSize;
// each row becomes one "header: value" block.
type CSVParser struct{}

const csvBatchSize = 20

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := trimExt(filename, ".csv")
	if len(records) == 0 {
		return &doctree.DocTree{Title: title}, nil
	}

	headers := records[0]
	dataRows := records[1:]

	var s sections
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))
		s.heading(fmt.Sprintf("Rows %d-%d", i+2, end+1)) // 1-indexed, skip header
		for _, row := range dataRows[i:end] {
			s.block(formatRow(headers, row))
		}
	}

	return s.tree(title), nil
}

func formatRow(headers, row []string) string {
	var text strings.Builder
	for j, cell := range row {
		if j > 0 {
			text.WriteString(", ")
		}
		if j < len(headers) && headers[j] != "" {
			text.WriteString(headers[j] + ": " + cell)
		} else {
			text.WriteString(cell)
		}
	}
	return text.String()
}
