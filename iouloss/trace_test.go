package iouloss

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTraceLogging(t *testing.T) {
	box1 := Boxes{NewBoxXYXY(0, 0, 10, 10), NewBoxXYXY(1, 1, 5, 5)}
	box2 := Boxes{NewBoxXYXY(2, 3, 14, 11), NewBoxXYXY(0, 0, 4, 6)}
	cases := []struct {
		focal         bool
		correctBranch string
	}{
		{false, "CIoU"},
		{true, "Focal_CIoU"},
	}
	for _, tc := range cases {
		core, logs := observer.New(zap.DebugLevel)
		cfg := NewConfig(VariantCIoU)
		cfg.Focal = FocalCIoU
		evaluator, err := NewEvaluator(cfg, WithLogger(zap.New(core)))
		if err != nil {
			t.Fatal(err)
		}
		if tc.focal {
			_, err = evaluator.EvaluateFocal(box1, box2)
		} else {
			_, err = evaluator.Evaluate(box1, box2)
		}
		if err != nil {
			t.Fatal(err)
		}
		entries := logs.FilterMessage("evaluated").All()
		if len(entries) != 1 {
			t.Fatalf("Expected exactly 1 trace entry, got %d", len(entries))
		}
		if entries[0].Level != zapcore.DebugLevel {
			t.Errorf("Wrong answer: %v, correct answer: %v", entries[0].Level, zapcore.DebugLevel)
		}
		fields := entries[0].ContextMap()
		if fields["branch"] != tc.correctBranch {
			t.Errorf("Wrong answer: %v, correct answer: %v", fields["branch"], tc.correctBranch)
		}
		if fields["variant"] != "CIoU" {
			t.Errorf("Wrong answer: %v, correct answer: %v", fields["variant"], "CIoU")
		}
		if fields["boxes"] != int64(2) {
			t.Errorf("Wrong answer: %v, correct answer: %v", fields["boxes"], int64(2))
		}
		if fields["focal"] != tc.focal {
			t.Errorf("Wrong answer: %v, correct answer: %v", fields["focal"], tc.focal)
		}
	}
}

func TestTraceSilentAboveDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	evaluator, err := NewEvaluator(NewConfig(VariantGIoU), WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = evaluator.Evaluate(Boxes{NewBoxXYXY(0, 0, 10, 10)}, Boxes{NewBoxXYXY(2, 3, 14, 11)}); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no entries above debug level, got %d", logs.Len())
	}
}
