package iouloss

import (
	"math"
)

var inf = math.Inf(1)

// 4 / pi^2
var aspectCoef = 4.0 / (math.Pi * math.Pi)

// sin(45°), switching point between horizontal and vertical angle components in SIoU
var siouThreshold = math.Sqrt2 / 2.0

// focalerRemap linearly maps IoU from [lower, upper] onto [0, 1] and clamps the result
func focalerRemap(iou []float64, lower, upper float64) []float64 {
	out := scale(addConst(iou, -lower), 1.0/(upper-lower))
	return clampTo(out, out, 0, 1)
}

// centerDistance returns rho2/c2: squared distance between centers over squared diagonal of enclosing box
func centerDistance(g *geometry, cw, ch []float64, eps float64) []float64 {
	c2 := addConst(add(square(cw), square(ch)), eps)
	dx2, dy2 := g.centerOffsets()
	rho2 := scale(add(square(dx2), square(dy2)), 0.25)
	return div(rho2, c2)
}

// sizeDiscrepancy returns squared width and height differences normalized by squared enclosing width and height
func sizeDiscrepancy(g *geometry, cw, ch []float64, eps float64) []float64 {
	wDis := square(sub(sub(g.b1x2, g.b1x1), sub(g.b2x2, g.b2x1)))
	hDis := square(sub(sub(g.b1y2, g.b1y1), sub(g.b2y2, g.b2y1)))
	cw2 := addConst(square(cw), eps)
	ch2 := addConst(square(ch), eps)
	return add(div(wDis, cw2), div(hDis, ch2))
}

// aspectAtan returns CIoU aspect ratio consistency term v = 4/pi^2 * (atan(w2/h2) - atan(w1/h1))^2
func aspectAtan(g *geometry) []float64 {
	a2 := apply(div(g.w2, g.h2), math.Atan)
	a1 := apply(div(g.w1, g.h1), math.Atan)
	return scale(square(sub(a2, a1)), aspectCoef)
}

// aspectLogistic returns XIoU aspect term v = (1/q2 - 1/q1)^2 where q = 1 + exp(-w/h)
func aspectLogistic(g *geometry) []float64 {
	logistic := func(ratio float64) float64 {
		return 1.0 / (1.0 + math.Exp(-ratio))
	}
	s2 := apply(div(g.w2, g.h2), logistic)
	s1 := apply(div(g.w1, g.h1), logistic)
	return square(sub(s2, s1))
}

// aspectWeight returns alpha = v / (v - iou + 1 + eps) * beta.
// It is a pure function of the current values: callers treat it as a constant factor and never accumulate it.
func aspectWeight(v, iou []float64, eps, beta float64) []float64 {
	alpha := make([]float64, len(v))
	for i := range v {
		alpha[i] = v[i] / (v[i] - iou[i] + (1 + eps)) * beta
	}
	return alpha
}

func diou(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	return sub(iou, centerDistance(g, cw, ch, eps))
}

func ciou(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	v := aspectAtan(g)
	alpha := aspectWeight(v, iou, eps, 1.0)
	return sub(iou, add(centerDistance(g, cw, ch, eps), mul(v, alpha)))
}

func eiou(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	return sub(iou, add(centerDistance(g, cw, ch, eps), sizeDiscrepancy(g, cw, ch, eps)))
}

func efficiCIoU(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	v := aspectAtan(g)
	alpha := aspectWeight(v, iou, eps, 1.0)
	penalty := add(add(centerDistance(g, cw, ch, eps), sizeDiscrepancy(g, cw, ch, eps)), mul(v, alpha))
	return sub(iou, penalty)
}

func xiou(g *geometry, iou, cw, ch []float64, eps, beta float64) []float64 {
	v := aspectLogistic(g)
	alpha := aspectWeight(v, iou, eps, beta)
	return sub(iou, add(centerDistance(g, cw, ch, eps), mul(v, alpha)))
}

func giou(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	cArea := addConst(mul(cw, ch), eps)
	return sub(iou, div(sub(cArea, g.union), cArea))
}

// siou computes angle, distance and shape costs.
// Center offset norm, enclosing sides and shape denominators are offset by eps so
// concentric and degenerate (zero width or height) boxes do not produce NaN.
func siou(g *geometry, iou, cw, ch []float64, eps float64) []float64 {
	dx2, dy2 := g.centerOffsets()
	out := make([]float64, g.n)
	for i := range out {
		sCW := dx2[i] * 0.5
		sCH := dy2[i] * 0.5
		sigma := math.Sqrt(sCW*sCW+sCH*sCH) + eps
		sinAlpha1 := math.Abs(sCW) / sigma
		sinAlpha2 := math.Abs(sCH) / sigma
		sinAlpha := sinAlpha1
		if sinAlpha1 > siouThreshold {
			sinAlpha = sinAlpha2
		}
		angleCost := math.Cos(math.Asin(sinAlpha)*2 - math.Pi/2)

		rhoX := math.Pow(sCW/(cw[i]+eps), 2)
		rhoY := math.Pow(sCH/(ch[i]+eps), 2)
		gamma := angleCost - 2
		distanceCost := 2 - math.Exp(gamma*rhoX) - math.Exp(gamma*rhoY)

		omegaW := math.Abs(g.w1[i]-g.w2[i]) / (maxFloat64(g.w1[i], g.w2[i]) + eps)
		omegaH := math.Abs(g.h1[i]-g.h2[i]) / (maxFloat64(g.h1[i], g.h2[i]) + eps)
		shapeCost := math.Pow(1-math.Exp(-omegaW), 4) + math.Pow(1-math.Exp(-omegaH), 4)

		out[i] = iou[i] - 0.5*(distanceCost+shapeCost)
	}
	return out
}

// focalWeight returns sqrt(inter / (union + eps)): sample weight of focal-style losses
func focalWeight(g *geometry, eps float64) []float64 {
	return apply(div(g.inter, addConst(g.union, eps)), math.Sqrt)
}
