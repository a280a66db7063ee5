package iouloss

import (
	"github.com/pkg/errors"
)

// geometry holds both box collections in columnar corner form, already broadcast to the same length
type geometry struct {
	n int

	b1x1, b1y1, b1x2, b1y2 []float64
	b2x1, b2y1, b2x2, b2y2 []float64
	w1, h1                 []float64
	w2, h2                 []float64

	inter []float64
	union []float64
	iou   []float64
}

// broadcastSize returns length of broadcast result: 1 vs n, n vs 1 or n vs n
func broadcastSize(n1, n2 int) (int, error) {
	if n1 == 0 || n2 == 0 {
		return 0, errors.Wrapf(ErrEmptyBoxes, "sizes %d and %d", n1, n2)
	}
	switch {
	case n1 == n2:
		return n1, nil
	case n1 == 1:
		return n2, nil
	case n2 == 1:
		return n1, nil
	default:
		return 0, errors.Wrapf(ErrShapeMismatch, "sizes %d and %d", n1, n2)
	}
}

// columns splits boxes into four columns of length n, repeating a single box if needed
func columns(boxes Boxes, n int) (c0, c1, c2, c3 []float64) {
	c0, c1, c2, c3 = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		b := boxes[0]
		if len(boxes) > 1 {
			b = boxes[i]
		}
		c0[i], c1[i], c2[i], c3[i] = b[0], b[1], b[2], b[3]
	}
	return c0, c1, c2, c3
}

// normalize converts both collections to corner form and computes widths and heights.
// For center-size input widths and heights are taken as is.
// For corner input height is offset by eps to avoid zero-height divisions downstream.
func normalize(box1, box2 Boxes, format Format, eps float64) (*geometry, error) {
	n, err := broadcastSize(len(box1), len(box2))
	if err != nil {
		return nil, err
	}
	g := geometry{n: n}
	a0, a1, a2, a3 := columns(box1, n)
	b0, b1, b2, b3 := columns(box2, n)
	switch format {
	case FormatXYWH:
		// a0, a1 - center; a2, a3 - size
		g.w1, g.h1, g.w2, g.h2 = a2, a3, b2, b3
		halfW1, halfH1 := scale(a2, 0.5), scale(a3, 0.5)
		halfW2, halfH2 := scale(b2, 0.5), scale(b3, 0.5)
		g.b1x1, g.b1x2 = sub(a0, halfW1), add(a0, halfW1)
		g.b1y1, g.b1y2 = sub(a1, halfH1), add(a1, halfH1)
		g.b2x1, g.b2x2 = sub(b0, halfW2), add(b0, halfW2)
		g.b2y1, g.b2y2 = sub(b1, halfH2), add(b1, halfH2)
	case FormatXYXY:
		g.b1x1, g.b1y1, g.b1x2, g.b1y2 = a0, a1, a2, a3
		g.b2x1, g.b2y1, g.b2x2, g.b2y2 = b0, b1, b2, b3
		g.w1, g.h1 = sub(a2, a0), addConst(sub(a3, a1), eps)
		g.w2, g.h2 = sub(b2, b0), addConst(sub(b3, b1), eps)
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown box format %d", format)
	}
	g.intersect(eps)
	return &g, nil
}

// intersect computes intersection area, union area and plain IoU
func (g *geometry) intersect(eps float64) {
	n := g.n
	iw := sub(minTo(make([]float64, n), g.b1x2, g.b2x2), maxTo(make([]float64, n), g.b1x1, g.b2x1))
	ih := sub(minTo(make([]float64, n), g.b1y2, g.b2y2), maxTo(make([]float64, n), g.b1y1, g.b2y1))
	clampTo(iw, iw, 0, inf)
	clampTo(ih, ih, 0, inf)
	g.inter = mul(iw, ih)
	// w1*h1 + w2*h2 - inter + eps
	g.union = addConst(sub(add(mul(g.w1, g.h1), mul(g.w2, g.h2)), g.inter), eps)
	g.iou = div(g.inter, g.union)
}

// enclosing returns width and height of the smallest box enclosing both boxes
func (g *geometry) enclosing() (cw, ch []float64) {
	n := g.n
	cw = sub(maxTo(make([]float64, n), g.b1x2, g.b2x2), minTo(make([]float64, n), g.b1x1, g.b2x1))
	ch = sub(maxTo(make([]float64, n), g.b1y2, g.b2y2), minTo(make([]float64, n), g.b1y1, g.b2y1))
	return cw, ch
}

// centerOffsets returns doubled signed center offsets of box2 relative to box1 along x and y
func (g *geometry) centerOffsets() (dx2, dy2 []float64) {
	dx2 = sub(add(g.b2x1, g.b2x2), add(g.b1x1, g.b1x2))
	dy2 = sub(add(g.b2y1, g.b2y2), add(g.b1y1, g.b1y2))
	return dx2, dy2
}
