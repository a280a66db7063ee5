package iouloss

import (
	"image"
)

// Format is the coordinate layout of boxes passed to an Evaluator
type Format uint16

const (
	// FormatXYXY is corner form: x1, y1, x2, y2
	FormatXYXY Format = iota
	// FormatXYWH is center-size form: cx, cy, w, h
	FormatXYWH
)

// String returns human-readable name of the format
func (f Format) String() string {
	switch f {
	case FormatXYXY:
		return "xyxy"
	case FormatXYWH:
		return "xywh"
	default:
		return "unknown"
	}
}

// Box is a single axis-aligned bounding box. Meaning of the components depends on Format.
type Box [4]float64

// Boxes is an ordered collection of boxes
type Boxes []Box

// NewBoxXYXY creates a corner-form box
func NewBoxXYXY(x1, y1, x2, y2 float64) Box {
	return Box{x1, y1, x2, y2}
}

// NewBoxXYWH creates a center-size box
func NewBoxXYWH(cx, cy, w, h float64) Box {
	return Box{cx, cy, w, h}
}

// NewBoxFrom creates a corner-form box from image.Rectangle
func NewBoxFrom(rect image.Rectangle) Box {
	return Box{
		float64(rect.Min.X),
		float64(rect.Min.Y),
		float64(rect.Max.X),
		float64(rect.Max.Y),
	}
}

// Point is a point on a plane
type Point struct {
	X float64
	Y float64
}

// Center returns center of the box given its format
func (b Box) Center(format Format) Point {
	if format == FormatXYWH {
		return Point{X: b[0], Y: b[1]}
	}
	return Point{
		X: (b[0] + b[2]) / 2.0,
		Y: (b[1] + b[3]) / 2.0,
	}
}

// ToXYXY converts the box to corner form
func (b Box) ToXYXY(format Format) Box {
	if format == FormatXYXY {
		return b
	}
	halfW := b[2] / 2.0
	halfH := b[3] / 2.0
	return Box{b[0] - halfW, b[1] - halfH, b[0] + halfW, b[1] + halfH}
}

// ToXYWH converts the box to center-size form
func (b Box) ToXYWH(format Format) Box {
	if format == FormatXYWH {
		return b
	}
	w := b[2] - b[0]
	h := b[3] - b[1]
	return Box{b[0] + w/2.0, b[1] + h/2.0, w, h}
}

// Convert converts every box of the collection from one format to another
func (boxes Boxes) Convert(from, to Format) Boxes {
	converted := make(Boxes, len(boxes))
	for i, b := range boxes {
		if to == FormatXYXY {
			converted[i] = b.ToXYXY(from)
		} else {
			converted[i] = b.ToXYWH(from)
		}
	}
	return converted
}

// toArrays returns the boxes as plain arrays. Used to feed the WIoU calculator.
func toArrays(x1, y1, x2, y2 []float64) [][4]float64 {
	out := make([][4]float64, len(x1))
	for i := range x1 {
		out[i] = [4]float64{x1[i], y1[i], x2[i], y2[i]}
	}
	return out
}
