package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/keyframe"
	"github.com/godilite/salesrace/internal/treemap"
)

var ErrNoRenderer = errors.New("no renderer")

// Mode selects which scene state is prepared for each keyframe.
type Mode int

const (
	BarRace Mode = iota
	TreeMap
)

func (m Mode) String() string {
	if m == TreeMap {
		return "tree-map"
	}
	return "bar-race"
}

// Frame is what the renderer receives for one keyframe.
type Frame struct {
	Index    int
	Keyframe *keyframe.TimeBucket
	// Previous is the keyframe before this one, nil for the first.
	Previous *keyframe.TimeBucket
	// Scale has its domain set to [0, MaxCumSumValue] in bar-race mode.
	Scale *Scale
	// Tree and Layouts are set in tree-map mode.
	Tree    *treemap.Node
	Layouts *treemap.Layouts
}

// Renderer draws one keyframe transition and returns once it has finished.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

type RendererFunc func(ctx context.Context, f Frame) error

func (fn RendererFunc) Render(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// Player drives a renderer through a keyframe sequence one transition at a time.
type Player struct {
	renderer      Renderer
	mode          Mode
	scale         *Scale
	tiler         treemap.Tiler
	frameDuration time.Duration
	logger        *zap.Logger
}

type Option func(*Player)

func WithMode(m Mode) Option {
	return func(p *Player) { p.mode = m }
}

// WithScale shares a renderer-owned scale whose domain the player updates.
func WithScale(s *Scale) Option {
	return func(p *Player) { p.scale = s }
}

func WithTiler(t treemap.Tiler) Option {
	return func(p *Player) { p.tiler = t }
}

// WithFrameDuration makes every keyframe last at least d.
func WithFrameDuration(d time.Duration) Option {
	return func(p *Player) { p.frameDuration = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns a player for r. A nil renderer is the missing drawing target.
func New(r Renderer, opts ...Option) (*Player, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	p := &Player{
		renderer: r,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scale == nil {
		p.scale = NewScale(0, 1)
	}
	p.logger = p.logger.Named("player")
	return p, nil
}

// Play renders every keyframe of seq in order. A keyframe is only started
// after the previous one has finished. Cancelling ctx stops playback.
func (p *Player) Play(ctx context.Context, seq *keyframe.Sequence) error {
	var layouts *treemap.Layouts
	if p.mode == TreeMap {
		layouts = treemap.NewLayouts(seq, p.tiler)
	}

	p.logger.Info("playback started",
		zap.Stringer("mode", p.mode),
		zap.Int("keyframes", seq.Len()))

	buckets := seq.Buckets()
	for i, kf := range buckets {
		if err := ctx.Err(); err != nil {
			p.logger.Info("playback cancelled", zap.Int("keyframe", i))
			return err
		}

		f := Frame{Index: i, Keyframe: kf, Scale: p.scale}
		if i > 0 {
			f.Previous = buckets[i-1]
		}
		switch p.mode {
		case TreeMap:
			f.Tree = layouts.At(i).Root
			f.Layouts = layouts
		default:
			max := 0.0
			if kf.Summary.Valid {
				max = kf.Summary.MaxCumSumValue
			}
			p.scale.SetDomain(0, max)
		}

		start := time.Now()
		if err := p.renderer.Render(ctx, f); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("render keyframe %d: %w", i, err)
		}
		if err := p.wait(ctx, start); err != nil {
			p.logger.Info("playback cancelled", zap.Int("keyframe", i))
			return err
		}

		p.logger.Debug("keyframe rendered",
			zap.Int("keyframe", i),
			zap.Time("period", kf.PeriodStart),
			zap.Duration("took", time.Since(start)))
	}

	p.logger.Info("playback finished", zap.Int("keyframes", len(buckets)))
	return nil
}

func (p *Player) wait(ctx context.Context, start time.Time) error {
	remaining := p.frameDuration - time.Since(start)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
