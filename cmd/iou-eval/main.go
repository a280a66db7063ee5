package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/LdDl/bbox-iou-go/iouloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type output struct {
	RunID   string          `json:"run_id"`
	Variant string          `json:"variant"`
	Focal   bool            `json:"focal"`
	Result  [][]float64     `json:"result"`
	Metric  []float64       `json:"metric"`
	Weight  []float64       `json:"weight,omitempty"`
	Loss    []float64       `json:"loss,omitempty"`
	Matches []iouloss.Match `json:"matches,omitempty"`
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the tool and returns process exit code. Logger is flushed before returning.
func realMain(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("iou-eval", flag.ContinueOnError)
	flags.SetOutput(stderr)
	jobPath := flags.String("job", "", "Path to YAML job file")
	focal := flags.Bool("focal", false, "Use focal entry point (adds sqrt(IoU) weight when focal mode matches variant)")
	dev := flags.Bool("dev", false, "Human-friendly development logging with debug trace of formula branches")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *jobPath == "" {
		fmt.Fprintln(stderr, "Usage: iou-eval -job JOB.yaml [-focal] [-dev]")
		flags.PrintDefaults()
		return 2
	}

	logger, err := newLogger(*dev)
	if err != nil {
		fmt.Fprintf(stderr, "Can't init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.New()
	logger = logger.With(zap.String("run_id", runID.String()))

	out, err := run(*jobPath, *focal, runID, logger)
	if err != nil {
		logger.Error("Evaluation failed", zap.Error(err))
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("Can't write output", zap.Error(err))
		return 1
	}
	return 0
}

func run(jobPath string, focal bool, runID uuid.UUID, logger *zap.Logger) (*output, error) {
	parsed, err := loadJob(jobPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Job loaded",
		zap.String("job", jobPath),
		zap.Stringer("variant", parsed.cfg.Variant),
		zap.Int("reference", len(parsed.reference)),
		zap.Int("candidates", len(parsed.candidates)),
	)
	return evaluateJob(parsed, focal, runID, logger)
}

func evaluateJob(parsed *job, focal bool, runID uuid.UUID, logger *zap.Logger) (*output, error) {
	options := []iouloss.Option{iouloss.WithLogger(logger)}
	if parsed.wiou != nil {
		options = append(options, iouloss.WithWIoUCalculator(parsed.wiou))
	}
	evaluator, err := iouloss.NewEvaluator(parsed.cfg, options...)
	if err != nil {
		return nil, err
	}

	var result iouloss.Result
	if focal {
		result, err = evaluator.EvaluateFocal(parsed.reference, parsed.candidates)
	} else {
		result, err = evaluator.Evaluate(parsed.reference, parsed.candidates)
	}
	if err != nil {
		return nil, err
	}

	out := &output{
		RunID:   runID.String(),
		Variant: parsed.cfg.Variant.String(),
		Focal:   result.HasWeight(),
		Result:  result.Tuple(),
		Metric:  result.Metric,
		Weight:  result.Weight,
		Loss:    result.Loss,
	}
	if parsed.match != nil {
		out.Matches, err = evaluator.Match(parsed.candidates, parsed.reference, parsed.match.MinMetric, parsed.algorithm)
		if err != nil {
			return nil, err
		}
		logger.Info("Candidates matched", zap.Int("matches", len(out.Matches)), zap.Stringer("algorithm", parsed.algorithm))
	}
	return out, nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout is reserved for results
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
