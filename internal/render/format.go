package render

import (
	"math"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultPeriodPattern renders a period as year-month.
const DefaultPeriodPattern = "%Y-%m"

// FormatPeriod formats t with a strftime pattern.
func FormatPeriod(t time.Time, pattern string) string {
	if pattern == "" {
		pattern = DefaultPeriodPattern
	}
	return strftime.Format(pattern, t)
}

// Interpolate returns the value at fraction p of the way from a to b.
func Interpolate(a, b, p float64) float64 {
	return a + (b-a)*p
}

// InterpolateRound is Interpolate rounded to the nearest integer.
func InterpolateRound(a, b, p float64) float64 {
	return math.Round(Interpolate(a, b, p))
}
