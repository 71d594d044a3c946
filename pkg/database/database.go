package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Options struct {
	Driver          string
	DataSource      string
	ReadOnly        bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
}

type Option func(*Options)

func WithDriver(driver string) Option {
	return func(o *Options) { o.Driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *Options) { o.DataSource = dsn }
}

// WithReadOnly opens SQLite files in read-only mode. The ledger is never
// written through the pool.
func WithReadOnly() Option {
	return func(o *Options) { o.ReadOnly = true }
}

func WithMaxOpenConns(count int) Option {
	return func(o *Options) { o.MaxOpenConns = count }
}

func WithMaxIdleConns(count int) Option {
	return func(o *Options) { o.MaxIdleConns = count }
}

func WithConnMaxLifetime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxLifetime = duration }
}

func WithConnMaxIdleTime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxIdleTime = duration }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

// New creates a database connection pool using the provided options.
func New(opts ...Option) (*sql.DB, error) {
	return NewContext(context.Background(), opts...)
}

// NewContext is New with a context bounding the connection attempts and the
// waits between them.
func NewContext(ctx context.Context, opts ...Option) (*sql.DB, error) {
	options := &Options{
		Driver:          "sqlite3",
		DataSource:      ":memory:",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.Driver == "" {
		return nil, fmt.Errorf("database driver cannot be empty")
	}
	if options.DataSource == "" {
		return nil, fmt.Errorf("database data source cannot be empty")
	}
	if options.RetryAttempts < 1 {
		options.RetryAttempts = 1
	}

	dsn := options.DataSource
	if options.ReadOnly {
		dsn = readOnlyDSN(options.Driver, dsn)
	}

	var db *sql.DB
	var err error

	for i := 0; i < options.RetryAttempts; i++ {
		db, err = sql.Open(options.Driver, dsn)
		if err == nil {
			db.SetMaxOpenConns(options.MaxOpenConns)
			db.SetMaxIdleConns(options.MaxIdleConns)
			db.SetConnMaxLifetime(options.ConnMaxLifetime)
			db.SetConnMaxIdleTime(options.ConnMaxIdleTime)

			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			db.Close()
		}

		if i < options.RetryAttempts-1 {
			// Linear backoff.
			timer := time.NewTimer(time.Duration(i+1) * options.RetryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", options.RetryAttempts, err)
}

// readOnlyDSN rewrites a SQLite file path into a read-only URI. Other
// drivers and in-memory databases are left unchanged.
func readOnlyDSN(driver, dsn string) string {
	if driver != "sqlite3" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "mode=ro"
}
