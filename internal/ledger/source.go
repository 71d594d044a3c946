package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedSource = errors.New("unsupported ledger source")
	ErrInvalidTable      = errors.New("invalid table name")
)

// Table is the raw text content of one ledger source.
type Table struct {
	Header []string
	Rows   [][]string
}

// Source produces the raw rows of one ledger.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Table, error)
}

const sqliteScheme = "sqlite://"

// Kind names the source type a reference resolves to.
func SourceKind(ref string) (string, error) {
	if strings.HasPrefix(ref, sqliteScheme) {
		return "sqlite", nil
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".csv", ".txt":
		return "csv", nil
	case ".tsv":
		return "tsv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, ref)
}

// splitTable separates the header from the data rows.
func splitTable(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	return &Table{Header: rows[0], Rows: rows[1:]}
}
