package mocks

import (
	"context"
	"errors"

	"github.com/godilite/salesrace/internal/ledger"
)

// MockResolver is a function-based mock of the SourceResolver interface.
type MockResolver struct {
	ResolveFunc func(ctx context.Context, ref string) (ledger.Source, error)
}

// Resolve implements the SourceResolver interface
func (m *MockResolver) Resolve(ctx context.Context, ref string) (ledger.Source, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ref)
	}
	return nil, errors.New("ResolveFunc not implemented")
}

// MockSource is a function-based mock of ledger.Source.
type MockSource struct {
	NameValue string
	LoadFunc  func(ctx context.Context) (*ledger.Table, error)
}

func (m *MockSource) Name() string {
	return m.NameValue
}

// Load implements ledger.Source
func (m *MockSource) Load(ctx context.Context) (*ledger.Table, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil, errors.New("LoadFunc not implemented")
}

// Rows builds a ledger table from (date, region, money) triples laid out in
// the export's column positions.
func Rows(triples ...[3]string) *ledger.Table {
	t := &ledger.Table{Header: make([]string, 12)}
	for _, tr := range triples {
		row := make([]string, 12)
		row[ledger.ColOrderDate] = tr[0]
		row[ledger.ColRegion] = tr[1]
		row[ledger.ColSellMoney] = tr[2]
		t.Rows = append(t.Rows, row)
	}
	return t
}

// StaticResolver returns a resolver that always hands out the given table.
func StaticResolver(table *ledger.Table) *MockResolver {
	return &MockResolver{
		ResolveFunc: func(ctx context.Context, ref string) (ledger.Source, error) {
			return &MockSource{
				NameValue: ref,
				LoadFunc: func(ctx context.Context) (*ledger.Table, error) {
					return table, nil
				},
			}, nil
		},
	}
}
