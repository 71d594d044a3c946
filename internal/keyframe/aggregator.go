package keyframe

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/ledger"
)

// Aggregator turns decoded ledger records into a keyframe Sequence.
type Aggregator struct {
	categoryCol int
	valueCol    int
	logger      *zap.Logger
}

type Option func(*Aggregator)

// WithCategoryColumn selects the column records are grouped by within a period.
func WithCategoryColumn(col int) Option {
	return func(a *Aggregator) { a.categoryCol = col }
}

// WithValueColumn selects the numeric column that is summed.
func WithValueColumn(col int) Option {
	return func(a *Aggregator) { a.valueCol = col }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator groups by region and sums sell money unless configured otherwise.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		categoryCol: ledger.ColRegion,
		valueCol:    ledger.ColSellMoney,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("keyframe")
	return a
}

// Grouping is the result of the grouping pass: rows bucketed by month and
// category, nothing summed yet.
type Grouping struct {
	buckets      map[int64]*TimeBucket
	Rows         int
	InvalidDates int
}

// Len is the number of distinct periods.
func (g *Grouping) Len() int {
	return len(g.buckets)
}

// Sorted returns the time buckets in ascending period order.
func (g *Grouping) Sorted() []*TimeBucket {
	keys := make([]int64, 0, len(g.buckets))
	for k := range g.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]*TimeBucket, len(keys))
	for i, k := range keys {
		out[i] = g.buckets[k]
	}
	return out
}

// Group buckets records by month and category in a single pass. Records
// whose order date did not parse are counted and left out.
func (a *Aggregator) Group(records []ledger.Record) *Grouping {
	g := &Grouping{buckets: make(map[int64]*TimeBucket)}

	for _, rec := range records {
		date, ok := rec.Date()
		if !ok {
			g.InvalidDates++
			continue
		}
		period := MonthFloor(date)
		key := period.UnixMilli()

		bucket, ok := g.buckets[key]
		if !ok {
			bucket = newTimeBucket(period)
			g.buckets[key] = bucket
		}

		c := bucket.category(rec.String(a.categoryCol))
		c.Rows = append(c.Rows, rec)
		g.Rows++
	}

	if g.InvalidDates > 0 {
		a.logger.Warn("records with unparseable order date skipped",
			zap.Int("skipped", g.InvalidDates),
			zap.Int("grouped", g.Rows))
	}
	return g
}

// Aggregate fills in sums, cumulative sums, ranks and summaries. buckets must
// be in ascending period order; cumulative sums carry forward from each
// category's most recent earlier period.
func (a *Aggregator) Aggregate(buckets []*TimeBucket) {
	running := make(map[string]float64)

	for i, bucket := range buckets {
		for _, c := range bucket.categories {
			c.Sum = a.sum(c.Rows)

			if i > 0 {
				if _, ok := buckets[i-1].index[c.Name]; !ok {
					_, seen := running[c.Name]
					a.logger.Info("category absent from previous keyframe",
						zap.Int("keyframe", i),
						zap.String("category", c.Name),
						zap.Bool("seen_earlier", seen))
				}
			}

			c.CumSum = running[c.Name] + c.Sum
			running[c.Name] = c.CumSum
		}

		rank(bucket)
	}
}

// rank sorts a bucket by descending CumSum. Ties keep first-seen order.
func rank(bucket *TimeBucket) {
	sorted := append([]*CategoryBucket(nil), bucket.categories...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CumSum > sorted[j].CumSum
	})
	for i, c := range sorted {
		c.Rank = i
	}
	bucket.sorted = sorted

	if len(sorted) == 0 {
		bucket.Summary = Summary{}
		return
	}
	bucket.Summary = Summary{
		MaxCumSumCategory: sorted[0].Name,
		MaxCumSumValue:    sorted[0].CumSum,
		Valid:             true,
	}
}

// sum adds the numeric values of the value column, skipping anything else.
func (a *Aggregator) sum(rows []ledger.Record) float64 {
	total := decimal.Zero
	for _, rec := range rows {
		if v, ok := rec.Number(a.valueCol); ok {
			total = total.Add(decimal.NewFromFloat(v))
		}
	}
	f, _ := total.Float64()
	return f
}

// Build groups and aggregates records into an immutable Sequence.
func (a *Aggregator) Build(records []ledger.Record) *Sequence {
	g := a.Group(records)
	buckets := g.Sorted()
	a.Aggregate(buckets)

	a.logger.Debug("keyframes built",
		zap.Int("keyframes", len(buckets)),
		zap.Int("rows", g.Rows))

	return &Sequence{
		buckets:      buckets,
		Rows:         g.Rows,
		InvalidDates: g.InvalidDates,
	}
}

// Build is a convenience for NewAggregator(opts...).Build(records).
func Build(records []ledger.Record, opts ...Option) *Sequence {
	return NewAggregator(opts...).Build(records)
}
