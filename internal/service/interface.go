package service

import (
	"context"

	"github.com/godilite/salesrace/internal/ledger"
)

// SourceResolver turns a ledger reference into a loadable source.
type SourceResolver interface {
	Resolve(ctx context.Context, ref string) (ledger.Source, error)
}
