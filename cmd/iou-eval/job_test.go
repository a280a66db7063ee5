package main

import (
	"math"
	"testing"

	"github.com/LdDl/bbox-iou-go/iouloss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func TestParseJob(t *testing.T) {
	data := []byte(`
variant: ciou
format: xyxy
focal: Focal_CIoU
reference:
  - [0, 0, 10, 10]
candidates:
  - [2, 3, 14, 11]
  - [0, 0, 10, 10]
match:
  algorithm: hungarian
  min_metric: 0.3
`)
	parsed, err := parseJob(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.cfg.Variant != iouloss.VariantCIoU {
		t.Errorf("Expected CIoU, got %s", parsed.cfg.Variant)
	}
	if parsed.cfg.Focal != iouloss.FocalCIoU {
		t.Errorf("Expected Focal_CIoU, got %s", parsed.cfg.Focal)
	}
	if parsed.cfg.Eps != iouloss.DefaultEps {
		t.Errorf("Expected default epsilon, got %v", parsed.cfg.Eps)
	}
	if len(parsed.candidates) != 2 || len(parsed.reference) != 1 {
		t.Errorf("Wrong boxes: %v, %v", parsed.reference, parsed.candidates)
	}
	if parsed.algorithm != iouloss.MatchingAlgorithmHungarian {
		t.Errorf("Expected hungarian matching, got %s", parsed.algorithm)
	}

	out, err := evaluateJob(parsed, true, uuid.New(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Result) != 2 || !out.Focal {
		t.Errorf("Expected (metric, weight) pair, got %d arrays", len(out.Result))
	}
	if math.Abs(out.Metric[1]-1) > 0.000001 {
		t.Errorf("Identical boxes should have CIoU 1, got %v", out.Metric[1])
	}
	if len(out.Matches) != 1 || out.Matches[0].Pred != 1 {
		t.Errorf("Expected identical candidate to match reference, got %v", out.Matches)
	}
}

func TestParseJobFlags(t *testing.T) {
	data := []byte(`
flags:
  ciou: true
  giou: true
reference: [[0, 0, 10, 10]]
candidates: [[0, 0, 10, 10]]
`)
	_, err := parseJob(data)
	if !errors.Is(err, iouloss.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestParseJobWIoU(t *testing.T) {
	data := []byte(`
flags:
  wiou: true
format: xywh
wiou:
  focusing: monotonic
reference: [[5, 5, 10, 10]]
candidates: [[8, 7, 12, 8]]
`)
	parsed, err := parseJob(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.cfg.Variant != iouloss.VariantWIoU || parsed.cfg.Format != iouloss.FormatXYWH {
		t.Errorf("Wrong config: %+v", parsed.cfg)
	}
	if parsed.wiou == nil {
		t.Fatal("Expected WIoU calculator")
	}
	out, err := evaluateJob(parsed, false, uuid.New(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	// (loss, iou)
	if len(out.Result) != 2 || len(out.Loss) != 1 {
		t.Fatalf("Expected (loss, iou) pair, got %v", out.Result)
	}
	if math.Abs(out.Metric[0]-0.4) > 0.000001 {
		t.Errorf("Wrong IoU: %v", out.Metric[0])
	}
}

func TestParseJobErrors(t *testing.T) {
	cases := []string{
		"variant: riou\nreference: [[0,0,1,1]]\ncandidates: [[0,0,1,1]]",
		"format: polar\nreference: [[0,0,1,1]]\ncandidates: [[0,0,1,1]]",
		"eps: 0\nreference: [[0,0,1,1]]\ncandidates: [[0,0,1,1]]",
		"focal: Focal_RIoU\nreference: [[0,0,1,1]]\ncandidates: [[0,0,1,1]]",
		"variant: iou\nflags: {ciou: true}\nreference: [[0,0,1,1]]\ncandidates: [[0,0,1,1]]",
	}
	for _, data := range cases {
		if _, err := parseJob([]byte(data)); !errors.Is(err, iouloss.ErrInvalidConfiguration) {
			t.Errorf("Expected ErrInvalidConfiguration for %q, got %v", data, err)
		}
	}
	if _, err := parseJob([]byte("variant: iou")); !errors.Is(err, iouloss.ErrEmptyBoxes) {
		t.Errorf("Expected ErrEmptyBoxes, got %v", err)
	}
}
