package iouloss

import (
	"github.com/LdDl/bbox-iou-go/wiou"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Evaluator computes IoU-family metrics between two box collections according to its Config.
// It is safe for concurrent use: the only mutable state is the running mean of the WIoU calculator, which is synchronized.
type Evaluator struct {
	cfg    Config
	logger *zap.Logger
	wiou   *wiou.Calculator
}

// Option configures Evaluator
type Option func(*Evaluator)

// WithLogger sets logger receiving trace of executed formula branches (default: no-op logger)
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWIoUCalculator sets calculator used for VariantWIoU.
// Default is a calculator with non-monotonic focusing owned by the Evaluator.
func WithWIoUCalculator(calc *wiou.Calculator) Option {
	return func(e *Evaluator) {
		if calc != nil {
			e.wiou = calc
		}
	}
}

// NewEvaluator validates configuration and creates new Evaluator
func NewEvaluator(cfg Config, options ...Option) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Focal == "" {
		cfg.Focal = FocalNone
	}
	e := &Evaluator{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(e)
	}
	if e.wiou == nil {
		e.wiou = wiou.NewCalculator(wiou.FocusingNonMonotonic, wiou.WithEps(cfg.Eps))
	}
	return e, nil
}

// Config returns configuration of the evaluator
func (e *Evaluator) Config() Config {
	return e.cfg
}

// WIoU returns calculator used for VariantWIoU
func (e *Evaluator) WIoU() *wiou.Calculator {
	return e.wiou
}

// Evaluate computes the configured variant between box1 and box2.
// Collections are broadcast: 1 vs n, n vs 1 or n vs n.
// Focaler remapping is applied to IoU before penalties if enabled. Focal mode is ignored.
func (e *Evaluator) Evaluate(box1, box2 Boxes) (Result, error) {
	return e.evaluate(box1, box2, false, true)
}

// EvaluateFocal computes the configured variant like Evaluate, but when configured focal mode
// targets the active variant the result additionally carries focal weight sqrt(IoU).
// Focaler remapping is not supported by this entry point.
func (e *Evaluator) EvaluateFocal(box1, box2 Boxes) (Result, error) {
	if e.cfg.Focaler {
		return Result{}, errors.Wrap(ErrInvalidConfiguration, "focaler remapping can't be combined with focal evaluation")
	}
	return e.evaluate(box1, box2, true, true)
}

func (e *Evaluator) evaluate(box1, box2 Boxes, focal bool, updateStats bool) (Result, error) {
	cfg := e.cfg
	g, err := normalize(box1, box2, cfg.Format, cfg.Eps)
	if err != nil {
		return Result{}, errors.Wrap(err, "can't prepare boxes")
	}

	iou := g.iou
	if !focal && cfg.Focaler {
		iou = focalerRemap(iou, cfg.FocalerLower, cfg.FocalerUpper)
	}

	result := Result{}
	switch cfg.Variant {
	case VariantIoU:
		result.Metric = iou
	case VariantWIoU:
		result.Metric, result.Loss, err = e.evaluateWIoU(g, updateStats)
		if err != nil {
			return Result{}, err
		}
	default:
		cw, ch := g.enclosing()
		result.Metric = e.penalize(g, iou, cw, ch)
	}

	focalApplied := focal && cfg.Focal.Matches(cfg.Variant)
	if focalApplied {
		result.Weight = focalWeight(g, cfg.Eps)
	}

	if ce := e.logger.Check(zap.DebugLevel, "evaluated"); ce != nil {
		branch := cfg.Variant.String()
		if focalApplied {
			branch = string(cfg.Focal)
		}
		ce.Write(
			zap.String("branch", branch),
			zap.Stringer("variant", cfg.Variant),
			zap.Stringer("format", cfg.Format),
			zap.Bool("focal", focalApplied),
			zap.Bool("focaler", !focal && cfg.Focaler),
			zap.Int("boxes", g.n),
		)
	}
	return result, nil
}

// penalize dispatches to the formula of penalized variants
func (e *Evaluator) penalize(g *geometry, iou, cw, ch []float64) []float64 {
	eps := e.cfg.Eps
	switch e.cfg.Variant {
	case VariantCIoU:
		return ciou(g, iou, cw, ch, eps)
	case VariantSIoU:
		return siou(g, iou, cw, ch, eps)
	case VariantEIoU:
		return eiou(g, iou, cw, ch, eps)
	case VariantEfficiCIoU:
		return efficiCIoU(g, iou, cw, ch, eps)
	case VariantXIoU:
		return xiou(g, iou, cw, ch, eps, e.cfg.XIoUBeta)
	case VariantDIoU:
		return diou(g, iou, cw, ch, eps)
	case VariantGIoU:
		return giou(g, iou, cw, ch, eps)
	default:
		return iou
	}
}

// evaluateWIoU delegates to the WIoU calculator and recovers IoU as 1 - IoU loss
func (e *Evaluator) evaluateWIoU(g *geometry, updateStats bool) (iou, loss []float64, err error) {
	pred := toArrays(g.b1x1, g.b1y1, g.b1x2, g.b1y2)
	target := toArrays(g.b2x1, g.b2y1, g.b2x2, g.b2y2)
	var batch *wiou.Batch
	if updateStats {
		batch, err = e.wiou.Compute(pred, target)
	} else {
		batch, err = e.wiou.Score(pred, target)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't compute WIoU")
	}
	iou = apply(batch.IoU(), func(iouLoss float64) float64 {
		return 1 - iouLoss
	})
	return iou, batch.Loss, nil
}

// Evaluate is a shortcut creating one-off Evaluator for given configuration.
// WIoU running mean therefore starts from scratch on every call.
func Evaluate(box1, box2 Boxes, cfg Config) (Result, error) {
	e, err := NewEvaluator(cfg)
	if err != nil {
		return Result{}, err
	}
	return e.Evaluate(box1, box2)
}

// EvaluateFocal is a shortcut creating one-off Evaluator for given configuration and calling EvaluateFocal
func EvaluateFocal(box1, box2 Boxes, cfg Config) (Result, error) {
	e, err := NewEvaluator(cfg)
	if err != nil {
		return Result{}, err
	}
	return e.EvaluateFocal(box1, box2)
}
