package iouloss

import (
	"image"
	"math"
	"testing"
)

func TestBoxCenter(t *testing.T) {
	box := NewBoxXYXY(341, 264, 421, 427)
	correctAnswer := Point{X: 381, Y: 345.5}
	answer := box.Center(FormatXYXY)
	if math.Abs(answer.X-correctAnswer.X) > tolerance || math.Abs(answer.Y-correctAnswer.Y) > tolerance {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	centered := box.ToXYWH(FormatXYXY)
	if centered.Center(FormatXYWH) != answer {
		t.Errorf("Center of converted box %v differs from %v", centered.Center(FormatXYWH), answer)
	}
	if centered[2] != 80 || centered[3] != 163 {
		t.Errorf("Wrong size: %v", centered)
	}
}

func TestNewBoxFrom(t *testing.T) {
	box := NewBoxFrom(image.Rect(10, 20, 40, 60))
	correctAnswer := Box{10, 20, 40, 60}
	if box != correctAnswer {
		t.Errorf("Wrong answer: %v, correct answer: %v", box, correctAnswer)
	}
	if box.ToXYXY(FormatXYXY) != box {
		t.Error("Conversion to the same format should be no-op")
	}
}
