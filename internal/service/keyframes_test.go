package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/salesrace/internal/keyframe"
	"github.com/godilite/salesrace/internal/ledger"
	"github.com/godilite/salesrace/internal/service/mocks"
)

func scenarioTable() *ledger.Table {
	return mocks.Rows(
		[3]string{"2023-01-05", "East", "100"},
		[3]string{"2023-02-01", "West", "300"},
		[3]string{"2023-02-09", "East", "not a number"},
		[3]string{"garbage", "East", "10"},
		[3]string{"2023-03-10", "East", "50"},
	)
}

// TestNewKeyframeService tests the constructor
func TestNewKeyframeService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		resolver := &mocks.MockResolver{}
		svc := NewKeyframeService(resolver, zap.NewNop())

		assert.NotNil(t, svc)
		assert.Equal(t, resolver, svc.resolver)
		assert.Equal(t, float64(defaultPadding), svc.padding)
	})

	t.Run("nil resolver panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewKeyframeService(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewKeyframeService(&mocks.MockResolver{}, nil)
		assert.NotNil(t, svc.logger)
	})

	t.Run("negative padding ignored", func(t *testing.T) {
		svc := NewKeyframeService(&mocks.MockResolver{}, zap.NewNop(), WithPadding(-1))
		assert.Equal(t, float64(defaultPadding), svc.padding)
	})
}

func TestSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates loaded rows", func(t *testing.T) {
		svc := NewKeyframeService(mocks.StaticResolver(scenarioTable()), zaptest.NewLogger(t), WithLocation(time.UTC))

		seq, err := svc.Sequence(ctx, "  ledger.csv ")
		require.NoError(t, err)
		assert.Equal(t, 3, seq.Len())
		assert.Equal(t, 4, seq.Rows)
		assert.Equal(t, 1, seq.InvalidDates)

		east, ok := seq.Category(1, "East")
		require.True(t, ok)
		assert.Equal(t, 0.0, east.Sum)
		assert.Equal(t, 100.0, east.CumSum)
	})

	t.Run("missing source", func(t *testing.T) {
		svc := NewKeyframeService(&mocks.MockResolver{}, zap.NewNop())
		_, err := svc.Sequence(ctx, "   ")
		assert.ErrorIs(t, err, ErrMissingSource)
	})

	t.Run("resolver error is returned unchanged", func(t *testing.T) {
		resolver := &mocks.MockResolver{
			ResolveFunc: func(ctx context.Context, ref string) (ledger.Source, error) {
				return nil, ledger.ErrUnsupportedSource
			},
		}
		svc := NewKeyframeService(resolver, zap.NewNop())
		_, err := svc.Sequence(ctx, "ledger.pdf")
		assert.ErrorIs(t, err, ledger.ErrUnsupportedSource)
	})

	t.Run("load failure wraps", func(t *testing.T) {
		resolver := &mocks.MockResolver{
			ResolveFunc: func(ctx context.Context, ref string) (ledger.Source, error) {
				return &mocks.MockSource{
					LoadFunc: func(ctx context.Context) (*ledger.Table, error) {
						return nil, errors.New("disk on fire")
					},
				}, nil
			},
		}
		svc := NewKeyframeService(resolver, zap.NewNop())
		seq, err := svc.Sequence(ctx, "ledger.csv")
		assert.Nil(t, seq)
		assert.ErrorIs(t, err, ErrSourceFailure)
		assert.Contains(t, err.Error(), "disk on fire")
	})

	t.Run("cancelled context", func(t *testing.T) {
		resolver := &mocks.MockResolver{
			ResolveFunc: func(ctx context.Context, ref string) (ledger.Source, error) {
				return &mocks.MockSource{
					LoadFunc: func(ctx context.Context) (*ledger.Table, error) {
						return nil, ctx.Err()
					},
				}, nil
			},
		}
		svc := NewKeyframeService(resolver, zap.NewNop())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Sequence(cctx, "ledger.csv")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrSourceFailure)
	})

	t.Run("aggregator options applied", func(t *testing.T) {
		table := mocks.Rows([3]string{"2023-01-05", "East", "100"})
		table.Rows[0][ledger.ColProvince] = "Jiangsu"
		svc := NewKeyframeService(mocks.StaticResolver(table), zap.NewNop(),
			WithAggregatorOptions(keyframe.WithCategoryColumn(ledger.ColProvince)))

		seq, err := svc.Sequence(ctx, "ledger.csv")
		require.NoError(t, err)
		_, ok := seq.Category(0, "Jiangsu")
		assert.True(t, ok)
	})
}

func TestBarRace(t *testing.T) {
	svc := NewKeyframeService(mocks.StaticResolver(scenarioTable()), zap.NewNop(), WithLocation(time.UTC))

	race, err := svc.BarRace(context.Background(), "ledger.csv")
	require.NoError(t, err)

	assert.Equal(t, "ledger.csv", race.Source)
	assert.Equal(t, 4, race.Rows)
	assert.Equal(t, 1, race.InvalidDates)
	require.Len(t, race.Keyframes, 3)

	feb := race.Keyframes[1]
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), feb.PeriodStart)
	assert.Equal(t, []BarCategory{
		{Name: "West", Sum: 300, CumSum: 300, Rank: 0},
		{Name: "East", Sum: 0, CumSum: 100, Rank: 1},
	}, feb.SortedCategories)
	assert.Equal(t, BarSummary{MaxCumSumCategory: "West", MaxCumSumValue: 300, Valid: true}, feb.Summary)

	mar := race.Keyframes[2]
	require.Len(t, mar.SortedCategories, 1)
	assert.Equal(t, 150.0, mar.SortedCategories[0].CumSum)

	t.Run("error propagates", func(t *testing.T) {
		_, err := svc.BarRace(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingSource)
	})
}

func TestTreeMap(t *testing.T) {
	svc := NewKeyframeService(mocks.StaticResolver(scenarioTable()), zap.NewNop(), WithLocation(time.UTC))

	tm, err := svc.TreeMap(context.Background(), "ledger.csv", 640, 480)
	require.NoError(t, err)
	assert.Equal(t, 640.0, tm.Width)
	assert.Equal(t, 480.0, tm.Height)
	require.Len(t, tm.Keyframes, 3)

	jan := tm.Keyframes[0]
	assert.Equal(t, 100.0, jan.Value)
	require.Len(t, jan.Children, 1)
	assert.Equal(t, TreeMapChild{Name: "East", Value: 100, X0: 5, Y0: 5, X1: 635, Y1: 475}, jan.Children[0])

	feb := tm.Keyframes[1]
	assert.Equal(t, 300.0, feb.Value)
	require.Len(t, feb.Children, 2)
	assert.Equal(t, "West", feb.Children[0].Name)
	assert.Equal(t, 0.0, feb.Children[0].PrevValue)
	assert.Equal(t, "East", feb.Children[1].Name)
	assert.Equal(t, 100.0, feb.Children[1].PrevValue)

	mar := tm.Keyframes[2]
	require.Len(t, mar.Children, 1)
	assert.Equal(t, 50.0, mar.Children[0].Value)
	assert.Equal(t, 0.0, mar.Children[0].PrevValue)

	t.Run("invalid dimensions", func(t *testing.T) {
		_, err := svc.TreeMap(context.Background(), "ledger.csv", 0, 480)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
		_, err = svc.TreeMap(context.Background(), "ledger.csv", 640, -1)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("padding option", func(t *testing.T) {
		svc := NewKeyframeService(mocks.StaticResolver(scenarioTable()), zap.NewNop(), WithLocation(time.UTC), WithPadding(0))
		tm, err := svc.TreeMap(context.Background(), "ledger.csv", 640, 480)
		require.NoError(t, err)
		c := tm.Keyframes[0].Children[0]
		assert.Equal(t, [4]float64{0, 0, 640, 480}, [4]float64{c.X0, c.Y0, c.X1, c.Y1})
	})
}
