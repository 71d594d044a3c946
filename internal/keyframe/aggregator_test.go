package keyframe

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/godilite/salesrace/internal/ledger"
)

var decoder = ledger.NewDecoder(time.UTC)

func row(date, region, money string) ledger.Record {
	raw := make([]string, 12)
	raw[ledger.ColOrderDate] = date
	raw[ledger.ColRegion] = region
	raw[ledger.ColProvince] = region + "-p"
	raw[ledger.ColSellAmount] = "1"
	raw[ledger.ColSellMoney] = money
	return decoder.Row(raw)
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func mustCategory(t *testing.T, seq *Sequence, i int, name string) *CategoryBucket {
	t.Helper()
	c, ok := seq.Category(i, name)
	require.True(t, ok, "keyframe %d has no %q", i, name)
	return c
}

func TestBuild_SingleCategoryAcrossMonths(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-05", "East", "100"),
		row("2023-01-20", "East", "50"),
		row("2023-02-01", "East", "30"),
	}, WithLogger(zaptest.NewLogger(t)))

	require.Equal(t, 2, seq.Len())
	assert.Equal(t, []time.Time{month(2023, time.January), month(2023, time.February)}, seq.Periods())

	jan := mustCategory(t, seq, 0, "East")
	assert.Equal(t, 150.0, jan.Sum)
	assert.Equal(t, 150.0, jan.CumSum)
	assert.Equal(t, 0, jan.Rank)
	assert.Len(t, jan.Rows, 2)

	feb := mustCategory(t, seq, 1, "East")
	assert.Equal(t, 30.0, feb.Sum)
	assert.Equal(t, 180.0, feb.CumSum)
	assert.Equal(t, 0, feb.Rank)
}

func TestBuild_RanksDescendingByCumSum(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-03", "East", "100"),
		row("2023-01-04", "West", "200"),
	})

	require.Equal(t, 1, seq.Len())
	kf := seq.At(0)

	west := mustCategory(t, seq, 0, "West")
	east := mustCategory(t, seq, 0, "East")
	assert.Equal(t, 0, west.Rank)
	assert.Equal(t, 200.0, west.CumSum)
	assert.Equal(t, 1, east.Rank)
	assert.Equal(t, 100.0, east.CumSum)

	ranked := kf.Ranked()
	require.Len(t, ranked, 2)
	assert.Equal(t, "West", ranked[0].Name)
	assert.Equal(t, "East", ranked[1].Name)

	assert.Equal(t, Summary{MaxCumSumCategory: "West", MaxCumSumValue: 200, Valid: true}, kf.Summary)

	names := []string{}
	for _, c := range kf.Categories() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"East", "West"}, names, "first-seen order")
}

func TestBuild_NewEntrantStartsFromOwnSum(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	seq := Build([]ledger.Record{
		row("2023-01-10", "East", "100"),
		row("2023-02-10", "East", "10"),
		row("2023-02-11", "North", "40"),
	}, WithLogger(zap.New(core)))

	north := mustCategory(t, seq, 1, "North")
	assert.Equal(t, 40.0, north.Sum)
	assert.Equal(t, 40.0, north.CumSum)
	assert.Equal(t, 1, north.Rank)

	notices := logs.FilterMessage("category absent from previous keyframe").All()
	require.Len(t, notices, 1)
	assert.Equal(t, "North", notices[0].ContextMap()["category"])
	assert.Equal(t, int64(1), notices[0].ContextMap()["keyframe"])
	assert.Equal(t, false, notices[0].ContextMap()["seen_earlier"])
}

func TestBuild_CarryForwardAcrossGap(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-10", "East", "100"),
		row("2023-01-10", "West", "5"),
		row("2023-02-10", "West", "5"),
		row("2023-03-10", "East", "1"),
	})

	require.Equal(t, 3, seq.Len())
	_, ok := seq.Category(1, "East")
	assert.False(t, ok)

	east := mustCategory(t, seq, 2, "East")
	assert.Equal(t, 1.0, east.Sum)
	assert.Equal(t, 101.0, east.CumSum, "carries from the most recent appearance")
}

func TestBuild_TiesKeepFirstSeenOrder(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-01", "Zeta", "10"),
		row("2023-01-02", "Alpha", "10"),
		row("2023-01-03", "Mid", "10"),
	})

	ranked := seq.At(0).Ranked()
	require.Len(t, ranked, 3)
	assert.Equal(t, "Zeta", ranked[0].Name)
	assert.Equal(t, "Alpha", ranked[1].Name)
	assert.Equal(t, "Mid", ranked[2].Name)
}

func TestBuild_NonNumericValuesAreSkipped(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-01", "East", "10"),
		row("2023-01-02", "East", "n/a"),
		row("2023-01-03", "East", ""),
		row("2023-01-04", "East", "0.1"),
		row("2023-01-05", "East", "0.2"),
	})

	east := mustCategory(t, seq, 0, "East")
	assert.Equal(t, 10.3, east.Sum)
	assert.Len(t, east.Rows, 5, "rows are kept even when their value is unusable")
}

func TestBuild_InvalidDatesAreCounted(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	seq := Build([]ledger.Record{
		row("2023-01-01", "East", "10"),
		row("not a date", "East", "99"),
	}, WithLogger(zap.New(core)))

	assert.Equal(t, 1, seq.Len())
	assert.Equal(t, 1, seq.Rows)
	assert.Equal(t, 1, seq.InvalidDates)
	assert.Equal(t, 10.0, mustCategory(t, seq, 0, "East").Sum)
	assert.Equal(t, 1, logs.Len())
}

func TestBuild_EmptyInput(t *testing.T) {
	assert.NotPanics(t, func() {
		seq := Build(nil)
		assert.Equal(t, 0, seq.Len())
		assert.Empty(t, seq.Buckets())
		assert.Empty(t, seq.Periods())
	})

	var nilSeq *Sequence
	assert.Equal(t, 0, nilSeq.Len())
	_, ok := nilSeq.Category(0, "East")
	assert.False(t, ok)
}

func TestRank_EmptyBucket(t *testing.T) {
	b := newTimeBucket(month(2023, time.January))
	assert.NotPanics(t, func() { rank(b) })
	assert.False(t, b.Summary.Valid)
	assert.Equal(t, "", b.Summary.MaxCumSumCategory)
	assert.Empty(t, b.Ranked())
}

func TestBuild_GroupsByProvince(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-01", "East", "10"),
		row("2023-01-02", "West", "20"),
	}, WithCategoryColumn(ledger.ColProvince), WithValueColumn(ledger.ColSellAmount))

	kf := seq.At(0)
	assert.Equal(t, 2, kf.Len())
	west := mustCategory(t, seq, 0, "West-p")
	assert.Equal(t, 1.0, west.Sum, "sell amount column")
}

func TestGroup_UnsortedInput(t *testing.T) {
	a := NewAggregator()
	g := a.Group([]ledger.Record{
		row("2023-03-01", "East", "1"),
		row("2023-01-15", "East", "1"),
		row("2023-02-15", "East", "1"),
		row("2023-01-31", "West", "1"),
	})

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 4, g.Rows)

	sorted := g.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, month(2023, time.January), sorted[0].PeriodStart)
	assert.Equal(t, month(2023, time.February), sorted[1].PeriodStart)
	assert.Equal(t, month(2023, time.March), sorted[2].PeriodStart)
	assert.Equal(t, 2, sorted[0].Len())

	for _, b := range sorted {
		for _, c := range b.Categories() {
			assert.Equal(t, 0.0, c.Sum, "grouping does not sum")
			assert.Equal(t, -1, c.Rank)
		}
	}
}

func TestSequence_Index(t *testing.T) {
	seq := Build([]ledger.Record{
		row("2023-01-05", "East", "1"),
		row("2023-03-05", "East", "1"),
	})

	i, ok := seq.Index(time.Date(2023, 3, 17, 8, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = seq.Index(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestMonthFloor(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	got := MonthFloor(time.Date(2023, 5, 31, 23, 59, 59, 999, loc))
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, loc), got)
}

func randomLedger(r *rand.Rand, n int) []ledger.Record {
	regions := []string{"East", "West", "North", "South", "Central", "NorthEast"}
	out := make([]ledger.Record, 0, n)
	for i := 0; i < n; i++ {
		d := time.Date(2022, time.Month(1+r.Intn(18)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)
		money := fmt.Sprintf("%d.%02d", r.Intn(500), r.Intn(100))
		if r.Intn(20) == 0 {
			money = "bad"
		}
		out = append(out, row(d.Format("2006-01-02"), regions[r.Intn(len(regions))], money))
	}
	return out
}

func TestBuild_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		records := randomLedger(r, 50+r.Intn(300))
		seq := Build(records)

		buckets := seq.Buckets()
		for i, b := range buckets {
			if i > 0 {
				assert.True(t, buckets[i-1].PeriodStart.Before(b.PeriodStart), "strictly ascending periods")
			}

			ranked := b.Ranked()
			seen := make(map[int]bool)
			max := ranked[0].CumSum
			for _, c := range ranked {
				assert.False(t, seen[c.Rank], "duplicate rank")
				seen[c.Rank] = true
				assert.GreaterOrEqual(t, c.Rank, 0)
				assert.Less(t, c.Rank, b.Len())
				if c.CumSum > max {
					max = c.CumSum
				}
				if i > 0 {
					if prev, ok := buckets[i-1].Category(c.Name); ok {
						assert.InDelta(t, prev.CumSum+c.Sum, c.CumSum, 1e-6)
					}
				}
			}
			assert.Len(t, seen, b.Len())
			assert.Equal(t, max, ranked[0].CumSum, "rank 0 holds the maximum")
			assert.True(t, b.Summary.Valid)
			assert.Equal(t, max, b.Summary.MaxCumSumValue)
			assert.Equal(t, ranked[0].Name, b.Summary.MaxCumSumCategory)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	records := randomLedger(r, 400)

	first := Build(records)
	second := Build(records)

	assert.Equal(t, first, second)
}
