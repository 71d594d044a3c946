package service

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/ledger"
	"github.com/godilite/salesrace/internal/repository"
	dbbuilder "github.com/godilite/salesrace/pkg/database"
)

const defaultTable = "sales"

// Resolver maps a reference to a file or SQLite source. SQLite references
// look like sqlite://path/to/ledger.db?table=sales.
//
// With a root set, file paths must be relative and stay inside it; refs on
// the allow-list are used as given.
type Resolver struct {
	driver  string
	sheet   string
	root    string
	allowed map[string]struct{}
	logger  *zap.Logger
}

type ResolverOption func(*Resolver)

// WithDriver sets the database/sql driver used for sqlite:// references.
func WithDriver(driver string) ResolverOption {
	return func(r *Resolver) {
		if driver != "" {
			r.driver = driver
		}
	}
}

// WithSheet selects the workbook sheet for .xlsx references.
func WithSheet(sheet string) ResolverOption {
	return func(r *Resolver) { r.sheet = sheet }
}

// WithRoot confines file and database paths to dir.
func WithRoot(dir string) ResolverOption {
	return func(r *Resolver) { r.root = dir }
}

// WithAllowed lets refs through unchanged, whatever the root.
func WithAllowed(refs ...string) ResolverOption {
	return func(r *Resolver) {
		for _, ref := range refs {
			if ref != "" {
				r.allowed[ref] = struct{}{}
			}
		}
	}
}

func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{driver: "sqlite3", allowed: make(map[string]struct{}), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("resolver")
	return r
}

func (r *Resolver) Resolve(_ context.Context, ref string) (ledger.Source, error) {
	kind, err := ledger.SourceKind(ref)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved ledger source", zap.String("ref", ref), zap.String("kind", kind))

	if kind == "sqlite" {
		return r.database(ref)
	}
	path, err := r.confine(ref, ref)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "csv":
		return ledger.NewCSVSource(path), nil
	case "tsv":
		return ledger.NewTSVSource(path), nil
	default:
		return ledger.NewXLSXSource(path, r.sheet), nil
	}
}

// confine maps path, taken from ref, onto the root.
func (r *Resolver) confine(ref, path string) (string, error) {
	if r.root == "" {
		return path, nil
	}
	if _, ok := r.allowed[ref]; ok {
		return path, nil
	}
	if !filepath.IsLocal(path) {
		r.logger.Warn("ledger ref outside data root", zap.String("ref", ref), zap.String("root", r.root))
		return "", fmt.Errorf("%w: %q is outside the data root", ledger.ErrUnsupportedSource, ref)
	}
	return filepath.Join(r.root, path), nil
}

func (r *Resolver) database(ref string) (ledger.Source, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(ref, "sqlite://"), "?")
	if path == "" {
		return nil, fmt.Errorf("%w: %q has no database path", ledger.ErrUnsupportedSource, ref)
	}
	path, err := r.confine(ref, path)
	if err != nil {
		return nil, err
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ledger.ErrUnsupportedSource, ref, err)
	}
	table := query.Get("table")
	if table == "" {
		table = defaultTable
	}
	// Validate the name before any connection is made.
	if _, err := repository.NewLedgerRepository(nil, table); err != nil {
		return nil, err
	}
	return &databaseSource{driver: r.driver, path: path, table: table}, nil
}

// databaseSource holds a connection only for the duration of one Load.
type databaseSource struct {
	driver string
	path   string
	table  string
}

func (s *databaseSource) Name() string {
	return "sqlite://" + s.path + "?table=" + s.table
}

func (s *databaseSource) Load(ctx context.Context) (*ledger.Table, error) {
	db, err := dbbuilder.NewContext(ctx,
		dbbuilder.WithDriver(s.driver),
		dbbuilder.WithDataSource(s.path),
		dbbuilder.WithReadOnly(),
		dbbuilder.WithMaxOpenConns(1),
		dbbuilder.WithRetry(1, 0),
	)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	repo, err := repository.NewLedgerRepository(db, s.table)
	if err != nil {
		return nil, err
	}
	return repo.Load(ctx)
}
