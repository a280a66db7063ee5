package wiou

import (
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

const (
	tolerance = 0.000001
)

var (
	testPred   = [][4]float64{{0, 0, 10, 10}}
	testTarget = [][4]float64{{2, 3, 14, 11}}
)

func TestComputeFocusingModes(t *testing.T) {
	cases := []struct {
		mode          FocusingMode
		correctAnswer float64
	}{
		{FocusingNone, 0.6251171792347446},
		{FocusingMonotonic, 0.48422327419810657},
		{FocusingNonMonotonic, 0.5834594104030011},
	}
	for _, tc := range cases {
		calc := NewCalculator(tc.mode)
		batch, err := calc.Compute(testPred, testTarget)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(batch.IoU()[0]-0.6) > tolerance {
			t.Errorf("%s: Wrong IoU loss: %v, correct answer: %v", tc.mode, batch.IoU()[0], 0.6)
		}
		if math.Abs(batch.Loss[0]-tc.correctAnswer) > tolerance {
			t.Errorf("%s: Wrong answer: %v, correct answer: %v", tc.mode, batch.Loss[0], tc.correctAnswer)
		}
	}
}

func TestRunningMean(t *testing.T) {
	calc := NewCalculator(FocusingNonMonotonic)
	if calc.Mean() != 1.0 {
		t.Errorf("Initial mean should be 1, got %v", calc.Mean())
	}
	batch, err := calc.Compute(testPred, testTarget)
	if err != nil {
		t.Fatal(err)
	}
	correctAnswer := 0.9999603935506503
	if math.Abs(calc.Mean()-correctAnswer) > tolerance {
		t.Errorf("Wrong answer: %v, correct answer: %v", calc.Mean(), correctAnswer)
	}
	if batch.Mean() != calc.Mean() {
		t.Errorf("Batch should carry mean used for scaling: %v vs %v", batch.Mean(), calc.Mean())
	}

	mean := calc.Mean()
	if _, err = calc.Score(testPred, testTarget); err != nil {
		t.Fatal(err)
	}
	if calc.Mean() != mean {
		t.Error("Score should not update running mean")
	}

	calc.SetTraining(false)
	if _, err = calc.Compute(testPred, testTarget); err != nil {
		t.Fatal(err)
	}
	if calc.Mean() != mean {
		t.Error("Compute should not update running mean when training is disabled")
	}
}

func TestMomentumOption(t *testing.T) {
	calc := NewCalculator(FocusingNone, WithMomentum(1))
	if _, err := calc.Compute(testPred, testTarget); err != nil {
		t.Fatal(err)
	}
	if math.Abs(calc.Mean()-0.6) > tolerance {
		t.Errorf("With momentum 1 mean should equal batch mean, got %v", calc.Mean())
	}
}

func TestIdenticalBoxesGiveZeroLoss(t *testing.T) {
	calc := NewCalculator(FocusingNonMonotonic)
	batch, err := calc.Compute(testPred, testPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(batch.IoU()[0]) > tolerance || math.Abs(batch.Loss[0]) > tolerance {
		t.Errorf("Expected zero IoU loss and loss, got %v and %v", batch.IoU()[0], batch.Loss[0])
	}
}

func TestDegenerateBoxesAreFinite(t *testing.T) {
	cases := []struct {
		name string
		box  [4]float64
	}{
		{"point", [4]float64{5, 5, 5, 5}},
		{"zero width", [4]float64{0, 0, 0, 10}},
		{"zero height", [4]float64{0, 0, 10, 0}},
	}
	for _, mode := range []FocusingMode{FocusingNone, FocusingMonotonic, FocusingNonMonotonic} {
		for _, tc := range cases {
			calc := NewCalculator(mode)
			boxes := [][4]float64{tc.box}
			batch, err := calc.Compute(boxes, boxes)
			if err != nil {
				t.Fatal(err)
			}
			loss, iouLoss := batch.Loss[0], batch.IoU()[0]
			if math.IsNaN(loss) || math.IsInf(loss, 0) || math.IsNaN(iouLoss) || math.IsInf(iouLoss, 0) {
				t.Errorf("%s %s: expected finite values, got loss %v and IoU loss %v", mode, tc.name, loss, iouLoss)
			}
			if math.IsNaN(calc.Mean()) {
				t.Errorf("%s %s: running mean became NaN", mode, tc.name)
			}
		}
	}
}

func TestLengthMismatch(t *testing.T) {
	calc := NewCalculator(FocusingNone)
	_, err := calc.Compute(testPred, [][4]float64{})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

func TestConcurrentCompute(t *testing.T) {
	calc := NewCalculator(FocusingNonMonotonic, WithMomentum(0.5))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := calc.Compute(testPred, testTarget); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	// Every update moves mean towards 0.6 from above
	mean := calc.Mean()
	if mean < 0.6 || mean > 1.0 {
		t.Errorf("Mean out of expected range: %v", mean)
	}
}

func TestParseFocusingMode(t *testing.T) {
	for _, mode := range []FocusingMode{FocusingNone, FocusingMonotonic, FocusingNonMonotonic} {
		parsed, err := ParseFocusingMode(mode.String())
		if err != nil || parsed != mode {
			t.Errorf("Expected %s, got %s (%v)", mode, parsed, err)
		}
	}
	if _, err := ParseFocusingMode("v4"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
