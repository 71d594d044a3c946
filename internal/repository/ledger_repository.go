package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/godilite/salesrace/internal/ledger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LedgerRepository reads a sales ledger stored as one SQLite table. Column
// order must follow the ledger export layout.
type LedgerRepository struct {
	db    *sql.DB
	table string
}

func NewLedgerRepository(db *sql.DB, table string) (*LedgerRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidTable, table)
	}
	return &LedgerRepository{db: db, table: table}, nil
}

func (r *LedgerRepository) Name() string {
	return "sqlite:" + r.table
}

// Load fetches every row of the table as text, in rowid order. The column
// names become the header.
func (r *LedgerRepository) Load(ctx context.Context) (*ledger.Table, error) {
	query := fmt.Sprintf(`SELECT * FROM "%s" ORDER BY rowid`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ledger %s: %w", r.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns ledger %s: %w", r.table, err)
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	table := &ledger.Table{Header: cols}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan ledger %s row: %w", r.table, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = cellText(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger %s: %w", r.table, err)
	}
	return table, nil
}

// wallClock is how DATE, DATETIME and TIMESTAMP cells are handed to the
// decoder. The driver reads zone-less text in those columns as UTC; keeping
// only the wall clock lets the decoder apply the configured location, the
// same as for CSV.
const wallClock = "2006-01-02 15:04:05"

func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(wallClock)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
