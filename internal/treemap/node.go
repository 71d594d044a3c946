package treemap

import (
	"time"

	"github.com/godilite/salesrace/internal/keyframe"
)

// Node is one rectangle of a tree-map layout.
type Node struct {
	Name     string
	Value    float64
	Depth    int
	X0, Y0   float64
	X1, Y1   float64
	Children []*Node
}

// Width of the laid-out rectangle.
func (n *Node) Width() float64 { return n.X1 - n.X0 }

// Height of the laid-out rectangle.
func (n *Node) Height() float64 { return n.Y1 - n.Y0 }

// Child finds a direct child by name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// weight is the area a node may claim. Negative values claim nothing.
func (n *Node) weight() float64 {
	if len(n.Children) == 0 {
		if n.Value > 0 {
			return n.Value
		}
		return 0
	}
	var w float64
	for _, c := range n.Children {
		w += c.weight()
	}
	return w
}

const rootName = "root"

// Build creates a one-level hierarchy for a keyframe: one child per category,
// in rank order, valued by the period's own sum.
func Build(b *keyframe.TimeBucket) *Node {
	root := &Node{Name: rootName}
	if b == nil {
		return root
	}
	for _, c := range b.Ranked() {
		root.Children = append(root.Children, &Node{
			Name:  c.Name,
			Value: c.Sum,
			Depth: 1,
		})
		root.Value += c.Sum
	}
	return root
}

// Frame is the laid-out hierarchy of one keyframe.
type Frame struct {
	PeriodStart time.Time
	Root        *Node
}

// Layouts holds one laid-out hierarchy per keyframe of a sequence.
type Layouts struct {
	frames []Frame
}

// NewLayouts builds and lays out the hierarchy of every keyframe in seq.
func NewLayouts(seq *keyframe.Sequence, t Tiler) *Layouts {
	l := &Layouts{frames: make([]Frame, 0, seq.Len())}
	for _, b := range seq.Buckets() {
		root := Build(b)
		t.Layout(root)
		l.frames = append(l.frames, Frame{PeriodStart: b.PeriodStart, Root: root})
	}
	return l
}

func (l *Layouts) Len() int {
	return len(l.frames)
}

// At returns the layout of keyframe i.
func (l *Layouts) At(i int) Frame {
	return l.frames[i]
}

// PrevValue returns the value the named category had in the keyframe before
// i, or 0 if there is no such keyframe or the category was absent from it.
func (l *Layouts) PrevValue(i int, name string) float64 {
	if i <= 0 || i > len(l.frames) {
		return 0
	}
	c, ok := l.frames[i-1].Root.Child(name)
	if !ok {
		return 0
	}
	return c.Value
}
