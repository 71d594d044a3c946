// Command render plays a sales ledger into a directory of SVG frames, one
// keyframe transition at a time.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/config"
	"github.com/godilite/salesrace/internal/render"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var (
		source   = flag.String("source", cfg.LedgerSource, "ledger file or sqlite://path?table=name")
		out      = flag.String("out", "frames", "directory the SVG frames are written to")
		mode     = flag.String("mode", "bar-race", "chart to draw: bar-race or tree-map")
		steps    = flag.Int("steps", 1, "frames written per keyframe transition")
		width    = flag.Int("width", render.DefaultDimensions.Width, "frame width in pixels")
		height   = flag.Int("height", render.DefaultDimensions.Height, "frame height in pixels")
		pattern  = flag.String("period-format", render.DefaultPeriodPattern, "strftime pattern of the period label")
		realtime = flag.Bool("realtime", false, "pace keyframes at FRAME_DURATION instead of rendering flat out")
	)
	flag.Parse()

	var duration time.Duration
	if *realtime {
		duration = cfg.FrameDuration
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger, cfg, options{
		source:   *source,
		out:      *out,
		mode:     *mode,
		steps:    *steps,
		dims:     render.Dimensions{Width: *width, Height: *height, Margin: render.DefaultDimensions.Margin},
		pattern:  *pattern,
		duration: duration,
	}); err != nil {
		logger.Fatal("render failed", zap.Error(err))
	}
}
