package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/app"
	"github.com/godilite/salesrace/internal/config"
	"github.com/godilite/salesrace/internal/player"
	"github.com/godilite/salesrace/internal/render"
)

type options struct {
	source   string
	out      string
	mode     string
	steps    int
	dims     render.Dimensions
	pattern  string
	duration time.Duration
}

func parseMode(s string) (player.Mode, error) {
	switch s {
	case "bar-race", "bar":
		return player.BarRace, nil
	case "tree-map", "treemap":
		return player.TreeMap, nil
	}
	return 0, fmt.Errorf("unknown mode %q: want bar-race or tree-map", s)
}

func run(logger *zap.Logger, cfg *config.Config, o options) error {
	mode, err := parseMode(o.mode)
	if err != nil {
		return err
	}
	if o.dims.BoundWidth() <= 0 || o.dims.BoundHeight() <= 0 {
		return fmt.Errorf("frame %dx%d leaves no room inside the margins", o.dims.Width, o.dims.Height)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The source named on the command line is trusted as given.
	local := *cfg
	local.LedgerSource = o.source
	keyframes, err := app.NewKeyframeService(&local, logger)
	if err != nil {
		return err
	}
	seq, err := keyframes.Sequence(ctx, o.source)
	if err != nil {
		return err
	}

	r, err := render.NewSVGRenderer(o.out,
		render.WithDimensions(o.dims),
		render.WithPeriodPattern(o.pattern),
		render.WithTweenSteps(o.steps),
		render.WithSVGLogger(logger),
	)
	if err != nil {
		return err
	}

	p, err := player.New(r,
		player.WithMode(mode),
		player.WithScale(r.Scale()),
		player.WithTiler(r.Tiler(cfg.TreeMapPadding)),
		player.WithFrameDuration(o.duration),
		player.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if err := p.Play(ctx, seq); err != nil {
		return err
	}
	logger.Info("frames written",
		zap.String("dir", o.out),
		zap.Int("files", r.Written()),
		zap.Stringer("mode", mode))
	return nil
}
