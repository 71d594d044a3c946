package treemap

import "math"

// Phi is the target aspect ratio of squarified rows.
var Phi = (1 + math.Sqrt(5)) / 2

// Tiler lays out a hierarchy inside a Width x Height area. Padding separates
// siblings and insets children from their parent's edges.
type Tiler struct {
	Width   float64
	Height  float64
	Padding float64
	// Ratio is the desired row aspect ratio; zero means Phi.
	Ratio float64
}

// Layout assigns bounds to root and all of its descendants and returns root.
func (t Tiler) Layout(root *Node) *Node {
	root.X0, root.Y0 = 0, 0
	root.X1, root.Y1 = t.Width, t.Height
	t.position(root, 0)
	return root
}

// Layout is a convenience for Tiler{Width: w, Height: h, Padding: padding}.Layout(root).
func Layout(root *Node, width, height, padding float64) *Node {
	return Tiler{Width: width, Height: height, Padding: padding}.Layout(root)
}

func (t Tiler) ratio() float64 {
	if t.Ratio > 0 {
		return t.Ratio
	}
	return Phi
}

// position shrinks n by its own inset p, then tiles its children into the
// remaining area less the outer padding.
func (t Tiler) position(n *Node, p float64) {
	x0, y0, x1, y1 := clamp(n.X0+p, n.Y0+p, n.X1-p, n.Y1-p)
	n.X0, n.Y0, n.X1, n.Y1 = x0, y0, x1, y1

	if len(n.Children) == 0 {
		return
	}

	inner := t.Padding / 2
	x0, y0, x1, y1 = clamp(
		x0+t.Padding-inner,
		y0+t.Padding-inner,
		x1-(t.Padding-inner),
		y1-(t.Padding-inner),
	)
	squarify(t.ratio(), n.Children, x0, y0, x1, y1)

	for _, c := range n.Children {
		t.position(c, inner)
	}
}

func clamp(x0, y0, x1, y1 float64) (float64, float64, float64, float64) {
	if x1 < x0 {
		x0 = (x0 + x1) / 2
		x1 = x0
	}
	if y1 < y0 {
		y0 = (y0 + y1) / 2
		y1 = y0
	}
	return x0, y0, x1, y1
}

// squarify packs nodes into rows, growing each row while its worst aspect
// ratio keeps improving, and alternates row direction along the short side.
func squarify(ratio float64, nodes []*Node, x0, y0, x1, y1 float64) {
	n := len(nodes)
	weights := make([]float64, n)
	var value float64
	for i, c := range nodes {
		weights[i] = c.weight()
		value += weights[i]
	}

	i0, i1 := 0, 0
	for i0 < n {
		dx, dy := x1-x0, y1-y0

		// Find the next non-empty node.
		var sumValue float64
		for {
			sumValue = weights[i1]
			i1++
			if sumValue != 0 || i1 >= n {
				break
			}
		}
		minValue, maxValue := sumValue, sumValue
		alpha := math.Max(dy/dx, dx/dy) / (value * ratio)
		beta := sumValue * sumValue * alpha
		minRatio := math.Max(maxValue/beta, beta/minValue)

		for ; i1 < n; i1++ {
			nodeValue := weights[i1]
			sumValue += nodeValue
			if nodeValue < minValue {
				minValue = nodeValue
			}
			if nodeValue > maxValue {
				maxValue = nodeValue
			}
			beta = sumValue * sumValue * alpha
			newRatio := math.Max(maxValue/beta, beta/minValue)
			if newRatio > minRatio {
				sumValue -= nodeValue
				break
			}
			minRatio = newRatio
		}

		row, rowWeights := nodes[i0:i1], weights[i0:i1]
		if dx < dy {
			ry1 := y1
			if value != 0 {
				ry1 = y0 + dy*sumValue/value
			}
			dice(row, rowWeights, sumValue, x0, y0, x1, ry1)
			if value != 0 {
				y0 = ry1
			}
		} else {
			rx1 := x1
			if value != 0 {
				rx1 = x0 + dx*sumValue/value
			}
			slice(row, rowWeights, sumValue, x0, y0, rx1, y1)
			if value != 0 {
				x0 = rx1
			}
		}
		value -= sumValue
		i0 = i1
	}
}

// dice splits a horizontal strip left to right.
func dice(nodes []*Node, weights []float64, total, x0, y0, x1, y1 float64) {
	var k float64
	if total != 0 {
		k = (x1 - x0) / total
	}
	for i, c := range nodes {
		c.Y0, c.Y1 = y0, y1
		c.X0 = x0
		x0 += weights[i] * k
		c.X1 = x0
	}
}

// slice splits a vertical strip top to bottom.
func slice(nodes []*Node, weights []float64, total, x0, y0, x1, y1 float64) {
	var k float64
	if total != 0 {
		k = (y1 - y0) / total
	}
	for i, c := range nodes {
		c.X0, c.X1 = x0, x1
		c.Y0 = y0
		y0 += weights[i] * k
		c.Y1 = y0
	}
}
