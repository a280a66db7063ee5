package iouloss

import (
	"gonum.org/v1/gonum/floats"
)

// Column helpers. Every column of a single evaluation has the same length,
// so the gonum routines never panic on mismatched slices here.

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampFloat64(v, lo, hi float64) float64 {
	return minFloat64(maxFloat64(v, lo), hi)
}

// maxTo stores elementwise maximum of s and t in dst
func maxTo(dst, s, t []float64) []float64 {
	for i := range dst {
		dst[i] = maxFloat64(s[i], t[i])
	}
	return dst
}

// minTo stores elementwise minimum of s and t in dst
func minTo(dst, s, t []float64) []float64 {
	for i := range dst {
		dst[i] = minFloat64(s[i], t[i])
	}
	return dst
}

// clampTo clamps every element of s into [lo, hi]
func clampTo(dst, s []float64, lo, hi float64) []float64 {
	for i := range dst {
		dst[i] = clampFloat64(s[i], lo, hi)
	}
	return dst
}

// applyTo stores fn(s[i]) in dst
func applyTo(dst, s []float64, fn func(float64) float64) []float64 {
	for i := range dst {
		dst[i] = fn(s[i])
	}
	return dst
}

// squareTo stores s^2 in dst
func squareTo(dst, s []float64) []float64 {
	return floats.MulTo(dst, s, s)
}

// sub, add, mul and div allocate the destination
func sub(s, t []float64) []float64 {
	return floats.SubTo(make([]float64, len(s)), s, t)
}

func add(s, t []float64) []float64 {
	return floats.AddTo(make([]float64, len(s)), s, t)
}

func mul(s, t []float64) []float64 {
	return floats.MulTo(make([]float64, len(s)), s, t)
}

func div(s, t []float64) []float64 {
	return floats.DivTo(make([]float64, len(s)), s, t)
}

// addConst returns s + c
func addConst(s []float64, c float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	floats.AddConst(c, out)
	return out
}

// scale returns c * s
func scale(s []float64, c float64) []float64 {
	return floats.ScaleTo(make([]float64, len(s)), c, s)
}

func square(s []float64) []float64 {
	return squareTo(make([]float64, len(s)), s)
}

func apply(s []float64, fn func(float64) float64) []float64 {
	return applyTo(make([]float64, len(s)), s, fn)
}
