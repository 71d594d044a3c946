package ledger

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

const utf8BOM = "\ufeff"

// CSVSource reads a delimited text ledger whose first row is a header.
type CSVSource struct {
	path  string
	comma rune
}

// NewCSVSource returns a comma-delimited source for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path, comma: ','}
}

// NewTSVSource returns a tab-delimited source for path.
func NewTSVSource(path string) *CSVSource {
	return &CSVSource{path: path, comma: '\t'}
}

func (s *CSVSource) Name() string {
	return s.path
}

// Load reads the whole file.
func (s *CSVSource) Load(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := ReadDelimited(ctx, f, s.comma)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	return splitTable(rows), nil
}

// ReadDelimited parses all records from r. Rows may have differing field counts.
func ReadDelimited(ctx context.Context, r io.Reader, comma rune) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}
