package player

// Scale is a linear mapping from a value domain onto a pixel range.
type Scale struct {
	d0, d1 float64
	r0, r1 float64
}

// NewScale maps [0, 1] onto [r0, r1] until a domain is set.
func NewScale(r0, r1 float64) *Scale {
	return &Scale{d0: 0, d1: 1, r0: r0, r1: r1}
}

func (s *Scale) SetDomain(d0, d1 float64) {
	s.d0, s.d1 = d0, d1
}

func (s *Scale) Domain() (float64, float64) {
	return s.d0, s.d1
}

func (s *Scale) Range() (float64, float64) {
	return s.r0, s.r1
}

// Apply maps v. A degenerate domain maps everything to the middle of the range.
func (s *Scale) Apply(v float64) float64 {
	if s.d1 == s.d0 {
		return (s.r0 + s.r1) / 2
	}
	return s.r0 + (v-s.d0)/(s.d1-s.d0)*(s.r1-s.r0)
}

// Ticks returns n+1 evenly spaced domain values.
func (s *Scale) Ticks(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n+1)
	step := (s.d1 - s.d0) / float64(n)
	for i := range out {
		out[i] = s.d0 + float64(i)*step
	}
	return out
}
