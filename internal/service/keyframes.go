package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/keyframe"
	"github.com/godilite/salesrace/internal/ledger"
	"github.com/godilite/salesrace/internal/treemap"
)

const (
	loadTimeout    = 30 * time.Second
	defaultPadding = 5
)

var (
	ErrMissingSource     = errors.New("ledger source is required")
	ErrSourceFailure     = errors.New("ledger source failure")
	ErrInvalidDimensions = errors.New("tree-map width and height must be positive")
)

// KeyframeService loads a ledger and turns it into chart keyframes. Every
// call rebuilds the whole cycle from the first period.
type KeyframeService struct {
	resolver SourceResolver
	decoder  ledger.Decoder
	aggOpts  []keyframe.Option
	padding  float64
	logger   *zap.Logger
}

type Option func(*KeyframeService)

// WithLocation sets the zone dates without an offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *KeyframeService) { s.decoder = ledger.NewDecoder(loc) }
}

func WithAggregatorOptions(opts ...keyframe.Option) Option {
	return func(s *KeyframeService) { s.aggOpts = append(s.aggOpts, opts...) }
}

// WithPadding sets the tree-map padding.
func WithPadding(p float64) Option {
	return func(s *KeyframeService) {
		if p >= 0 {
			s.padding = p
		}
	}
}

// NewKeyframeService creates a new KeyframeService instance.
func NewKeyframeService(resolver SourceResolver, logger *zap.Logger, opts ...Option) *KeyframeService {
	if resolver == nil {
		panic("resolver must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &KeyframeService{
		resolver: resolver,
		decoder:  ledger.NewDecoder(time.Local),
		padding:  defaultPadding,
		logger:   logger.Named("keyframes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sequence fetches and decodes the ledger behind ref and aggregates it.
// Nothing partial is returned when the fetch fails.
func (s *KeyframeService) Sequence(ctx context.Context, ref string) (*keyframe.Sequence, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrMissingSource
	}

	src, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	start := time.Now()
	table, err := src.Load(loadCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceFailure, err)
	}

	records := s.decoder.Rows(table.Rows)
	opts := append([]keyframe.Option{keyframe.WithLogger(s.logger)}, s.aggOpts...)
	seq := keyframe.Build(records, opts...)

	s.logger.Info("ledger aggregated",
		zap.String("source", src.Name()),
		zap.Int("rows", seq.Rows),
		zap.Int("invalid_dates", seq.InvalidDates),
		zap.Int("keyframes", seq.Len()),
		zap.Duration("took", time.Since(start)))

	return seq, nil
}

// BarRace returns the keyframes in the shape the bar-race chart draws.
func (s *KeyframeService) BarRace(ctx context.Context, ref string) (BarRace, error) {
	seq, err := s.Sequence(ctx, ref)
	if err != nil {
		return BarRace{}, err
	}

	out := BarRace{
		Source:       strings.TrimSpace(ref),
		Rows:         seq.Rows,
		InvalidDates: seq.InvalidDates,
		Keyframes:    make([]BarKeyframe, 0, seq.Len()),
	}
	for _, b := range seq.Buckets() {
		out.Keyframes = append(out.Keyframes, barKeyframe(b))
	}
	return out, nil
}

// TreeMap returns the keyframes laid out for a width x height area.
func (s *KeyframeService) TreeMap(ctx context.Context, ref string, width, height float64) (TreeMap, error) {
	if width <= 0 || height <= 0 {
		return TreeMap{}, fmt.Errorf("%w: got %gx%g", ErrInvalidDimensions, width, height)
	}

	seq, err := s.Sequence(ctx, ref)
	if err != nil {
		return TreeMap{}, err
	}

	layouts := treemap.NewLayouts(seq, treemap.Tiler{Width: width, Height: height, Padding: s.padding})
	out := TreeMap{
		Source:       strings.TrimSpace(ref),
		Width:        width,
		Height:       height,
		Rows:         seq.Rows,
		InvalidDates: seq.InvalidDates,
		Keyframes:    make([]TreeMapKeyframe, 0, layouts.Len()),
	}
	for i := 0; i < layouts.Len(); i++ {
		out.Keyframes = append(out.Keyframes, treeMapKeyframe(layouts, i))
	}
	return out, nil
}

func barKeyframe(b *keyframe.TimeBucket) BarKeyframe {
	kf := BarKeyframe{
		PeriodStart:      b.PeriodStart,
		SortedCategories: make([]BarCategory, 0, b.Len()),
		Summary: BarSummary{
			MaxCumSumCategory: b.Summary.MaxCumSumCategory,
			MaxCumSumValue:    b.Summary.MaxCumSumValue,
			Valid:             b.Summary.Valid,
		},
	}
	for _, c := range b.Ranked() {
		kf.SortedCategories = append(kf.SortedCategories, BarCategory{
			Name:   c.Name,
			Sum:    c.Sum,
			CumSum: c.CumSum,
			Rank:   c.Rank,
		})
	}
	return kf
}

func treeMapKeyframe(l *treemap.Layouts, i int) TreeMapKeyframe {
	frame := l.At(i)
	kf := TreeMapKeyframe{
		PeriodStart: frame.PeriodStart,
		Value:       frame.Root.Value,
		Children:    make([]TreeMapChild, 0, len(frame.Root.Children)),
	}
	for _, n := range frame.Root.Children {
		kf.Children = append(kf.Children, TreeMapChild{
			Name:      n.Name,
			Value:     n.Value,
			PrevValue: l.PrevValue(i, n.Name),
			X0:        n.X0,
			Y0:        n.Y0,
			X1:        n.X1,
			Y1:        n.Y1,
		})
	}
	return kf
}
