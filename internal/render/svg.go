package render

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	svg "github.com/ajstarks/svgo"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/keyframe"
	"github.com/godilite/salesrace/internal/player"
	"github.com/godilite/salesrace/internal/treemap"
)

const (
	barHeight     = 20
	barPitch      = 50
	labelReserve  = 150
	axisTicks     = 5
	barFill       = "fill:steelblue"
	rectStyle     = "fill:#4682b4;stroke:black;stroke-width:1"
	labelStyle    = "font-size:12px;fill:#333"
	rectLabel     = "font-size:12px;fill:#fff;dominant-baseline:hanging"
	periodStyle   = "fill:#9aa089;font-size:35px;text-anchor:end"
	axisLineStyle = "stroke:steelblue;stroke-width:1"
	axisTickStyle = "font-size:10px;fill:steelblue;text-anchor:middle"
)

// Dimensions of the drawing area. Bounds are the area inside the margins.
type Dimensions struct {
	Width  int
	Height int
	Margin int
}

func (d Dimensions) BoundWidth() int  { return d.Width - 2*d.Margin }
func (d Dimensions) BoundHeight() int { return d.Height - 2*d.Margin }

// DefaultDimensions matches the grid cell the charts were designed for.
var DefaultDimensions = Dimensions{Width: 960, Height: 540, Margin: 30}

// SVGRenderer writes every keyframe transition as a series of SVG files.
type SVGRenderer struct {
	dir     string
	dims    Dimensions
	pattern string
	steps   int
	scale   *player.Scale
	logger  *zap.Logger
	written int
}

type SVGOption func(*SVGRenderer)

func WithDimensions(d Dimensions) SVGOption {
	return func(r *SVGRenderer) { r.dims = d }
}

// WithPeriodPattern sets the strftime pattern of the period label.
func WithPeriodPattern(p string) SVGOption {
	return func(r *SVGRenderer) { r.pattern = p }
}

// WithTweenSteps sets how many files each transition is sampled into.
func WithTweenSteps(n int) SVGOption {
	return func(r *SVGRenderer) {
		if n > 0 {
			r.steps = n
		}
	}
}

func WithSVGLogger(l *zap.Logger) SVGOption {
	return func(r *SVGRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewSVGRenderer creates dir if needed.
func NewSVGRenderer(dir string, opts ...SVGOption) (*SVGRenderer, error) {
	r := &SVGRenderer{
		dir:     dir,
		dims:    DefaultDimensions,
		pattern: DefaultPeriodPattern,
		steps:   1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	r.scale = player.NewScale(0, float64(r.dims.BoundWidth()-labelReserve))
	r.logger = r.logger.Named("svg")
	return r, nil
}

// Scale is the value scale of the bar-race view. The player owns its domain.
func (r *SVGRenderer) Scale() *player.Scale {
	return r.scale
}

// Tiler is the tree-map layout matching the drawing area.
func (r *SVGRenderer) Tiler(padding float64) treemap.Tiler {
	return treemap.Tiler{
		Width:   float64(r.dims.BoundWidth()),
		Height:  float64(r.dims.BoundHeight()),
		Padding: padding,
	}
}

// Written is the number of files produced so far.
func (r *SVGRenderer) Written() int {
	return r.written
}

// Render writes the transition into f.Keyframe.
func (r *SVGRenderer) Render(ctx context.Context, f player.Frame) error {
	for step := 1; step <= r.steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := float64(step) / float64(r.steps)
		if err := r.writeFrame(func(w io.Writer) { r.draw(w, f, p) }); err != nil {
			return err
		}
	}
	return nil
}

func (r *SVGRenderer) writeFrame(draw func(io.Writer)) error {
	name := filepath.Join(r.dir, fmt.Sprintf("frame-%05d.svg", r.written))
	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	draw(out)
	if err := out.Close(); err != nil {
		return fmt.Errorf("close frame %s: %w", name, err)
	}
	r.written++
	r.logger.Debug("frame written", zap.String("file", name))
	return nil
}

func (r *SVGRenderer) draw(w io.Writer, f player.Frame, p float64) {
	canvas := svg.New(w)
	canvas.Start(r.dims.Width, r.dims.Height)
	canvas.Group(fmt.Sprintf(`transform="translate(%d,%d)"`, r.dims.Margin, r.dims.Margin))

	if f.Tree != nil {
		r.drawTreeMap(canvas, f, p)
	} else {
		r.drawBars(canvas, f, p)
	}

	canvas.Text(r.dims.BoundWidth(), r.dims.BoundHeight(), FormatPeriod(f.Keyframe.PeriodStart, r.pattern), periodStyle)
	canvas.Gend()
	canvas.End()
}

func (r *SVGRenderer) drawAxis(canvas *svg.SVG, scale *player.Scale) {
	r0, r1 := scale.Range()
	canvas.Line(px(r0), 0, px(r1), 0, axisLineStyle)
	for _, v := range scale.Ticks(axisTicks) {
		x := px(scale.Apply(v))
		canvas.Line(x, 0, x, -6, axisLineStyle)
		canvas.Text(x, -9, strconv.FormatFloat(math.Round(v), 'f', -1, 64), axisTickStyle)
	}
}

// drawBars draws the bar race at fraction p of the transition from the
// previous keyframe. Bars new to this keyframe grow from zero width.
func (r *SVGRenderer) drawBars(canvas *svg.SVG, f player.Frame, p float64) {
	scale := f.Scale
	if scale == nil {
		scale = r.scale
	}
	prevScale := *scale
	if f.Previous != nil && f.Previous.Summary.Valid {
		prevScale.SetDomain(0, f.Previous.Summary.MaxCumSumValue)
	}

	r.drawAxis(canvas, scale)

	for _, c := range f.Keyframe.Ranked() {
		toY := float64(c.Rank * barPitch)
		toW := scale.Apply(c.CumSum)
		fromY, fromW := toY, 0.0
		if prev := previousCategory(f.Previous, c.Name); prev != nil {
			fromY = float64(prev.Rank * barPitch)
			fromW = prevScale.Apply(prev.CumSum)
		}

		y := Interpolate(fromY, toY, p)
		width := math.Max(0, Interpolate(fromW, toW, p))
		canvas.Rect(0, px(y), px(width), barHeight, barFill)

		value := InterpolateRound(c.CumSum-c.Sum, c.CumSum, p)
		canvas.Text(px(width)+5, px(y)+barHeight/2+4, fmt.Sprintf("%s: %s", c.Name, formatValue(value)), labelStyle)
	}
}

// drawTreeMap moves rectangles from their previous bounds, labels counting
// from the previous keyframe's value.
func (r *SVGRenderer) drawTreeMap(canvas *svg.SVG, f player.Frame, p float64) {
	var prevRoot *treemap.Node
	if f.Layouts != nil && f.Index > 0 && f.Index-1 < f.Layouts.Len() {
		prevRoot = f.Layouts.At(f.Index - 1).Root
	}

	for _, n := range f.Tree.Children {
		x0, y0, x1, y1 := n.X0, n.Y0, n.X1, n.Y1
		if prevRoot != nil {
			if prev, ok := prevRoot.Child(n.Name); ok {
				x0 = Interpolate(prev.X0, n.X0, p)
				y0 = Interpolate(prev.Y0, n.Y0, p)
				x1 = Interpolate(prev.X1, n.X1, p)
				y1 = Interpolate(prev.Y1, n.Y1, p)
			}
		}
		canvas.Rect(px(x0), px(y0), px(x1-x0), px(y1-y0), rectStyle)

		var from float64
		if f.Layouts != nil {
			from = f.Layouts.PrevValue(f.Index, n.Name)
		}
		value := InterpolateRound(from, n.Value, p)
		canvas.Text(px(x0), px(y0)+2, fmt.Sprintf("%s: %s", n.Name, formatValue(value)), rectLabel)
	}
}

func previousCategory(prev *keyframe.TimeBucket, name string) *keyframe.CategoryBucket {
	if prev == nil {
		return nil
	}
	c, ok := prev.Category(name)
	if !ok {
		return nil
	}
	return c
}

func px(v float64) int {
	return int(math.Round(v))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
