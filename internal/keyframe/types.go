package keyframe

import (
	"time"

	"github.com/godilite/salesrace/internal/ledger"
)

// CategoryBucket aggregates the rows of one category within one period.
type CategoryBucket struct {
	Name   string
	Sum    float64
	CumSum float64
	// Rank is the 0-based position by descending CumSum, -1 until aggregated.
	Rank int
	Rows []ledger.Record
}

// Summary describes the top-ranked category of a period. Valid is false when
// the period has no categories.
type Summary struct {
	MaxCumSumCategory string
	MaxCumSumValue    float64
	Valid             bool
}

// TimeBucket is one keyframe: all categories seen in one calendar month.
// It must be treated as read-only once Build has returned.
type TimeBucket struct {
	PeriodStart time.Time
	Summary     Summary

	categories []*CategoryBucket
	index      map[string]int
	sorted     []*CategoryBucket
}

func newTimeBucket(period time.Time) *TimeBucket {
	return &TimeBucket{
		PeriodStart: period,
		index:       make(map[string]int),
	}
}

func (b *TimeBucket) category(name string) *CategoryBucket {
	if i, ok := b.index[name]; ok {
		return b.categories[i]
	}
	c := &CategoryBucket{Name: name, Rank: -1}
	b.index[name] = len(b.categories)
	b.categories = append(b.categories, c)
	return c
}

// Category looks up a category by name.
func (b *TimeBucket) Category(name string) (*CategoryBucket, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.categories[i], true
}

// Categories returns the categories in first-seen order.
func (b *TimeBucket) Categories() []*CategoryBucket {
	return append([]*CategoryBucket(nil), b.categories...)
}

// Ranked returns the categories sorted by descending CumSum, rank 0 first.
func (b *TimeBucket) Ranked() []*CategoryBucket {
	return append([]*CategoryBucket(nil), b.sorted...)
}

// Len is the number of categories in the period.
func (b *TimeBucket) Len() int {
	return len(b.categories)
}

// Sequence is the ordered list of keyframes built from one ledger.
type Sequence struct {
	buckets []*TimeBucket

	// Rows is the number of records grouped into the sequence.
	Rows int
	// InvalidDates counts records skipped because their order date did not parse.
	InvalidDates int
}

// Len is the number of keyframes. A nil Sequence is empty.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.buckets)
}

// At returns keyframe i.
func (s *Sequence) At(i int) *TimeBucket {
	return s.buckets[i]
}

// Buckets returns the keyframes in ascending period order.
func (s *Sequence) Buckets() []*TimeBucket {
	if s == nil {
		return nil
	}
	return append([]*TimeBucket(nil), s.buckets...)
}

// Periods returns the period starts in ascending order.
func (s *Sequence) Periods() []time.Time {
	out := make([]time.Time, 0, s.Len())
	for _, b := range s.Buckets() {
		out = append(out, b.PeriodStart)
	}
	return out
}

// Index finds the keyframe whose period contains t.
func (s *Sequence) Index(t time.Time) (int, bool) {
	for i, b := range s.Buckets() {
		if MonthFloor(t.In(b.PeriodStart.Location())).Equal(b.PeriodStart) {
			return i, true
		}
	}
	return -1, false
}

// Category returns the named category of keyframe i.
func (s *Sequence) Category(i int, name string) (*CategoryBucket, bool) {
	if i < 0 || i >= s.Len() {
		return nil, false
	}
	return s.buckets[i].Category(name)
}

// MonthFloor truncates t to the first instant of its calendar month in t's location.
func MonthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
