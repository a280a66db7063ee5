// Package wiou implements Wise-IoU (https://arxiv.org/abs/2301.10051) bounding box loss
// with dynamic non-monotonic focusing mechanism.
package wiou

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// FocusingMode selects how IoU loss is rescaled
type FocusingMode uint16

const (
	// FocusingNone is WIoU v1: no focusing
	FocusingNone FocusingMode = iota
	// FocusingMonotonic is WIoU v2: loss is scaled by sqrt(beta)
	FocusingMonotonic
	// FocusingNonMonotonic is WIoU v3: loss is scaled by beta / (delta * alpha^(beta - delta))
	FocusingNonMonotonic
)

// String returns human-readable name of the mode
func (mode FocusingMode) String() string {
	switch mode {
	case FocusingNone:
		return "none"
	case FocusingMonotonic:
		return "monotonic"
	case FocusingNonMonotonic:
		return "non-monotonic"
	default:
		return "unknown"
	}
}

// ParseFocusingMode parses mode name as returned by String
func ParseFocusingMode(s string) (FocusingMode, error) {
	switch s {
	case "none", "v1":
		return FocusingNone, nil
	case "monotonic", "v2":
		return FocusingMonotonic, nil
	case "non-monotonic", "v3", "":
		return FocusingNonMonotonic, nil
	default:
		return FocusingNone, errors.Errorf("unknown focusing mode '%s'", s)
	}
}

var (
	// ErrLengthMismatch is returned when predicted and target collections have different sizes
	ErrLengthMismatch = errors.New("predicted and target boxes must have the same length")
)

const (
	DefaultAlpha = 1.9
	DefaultDelta = 3.0
	// DefaultEps keeps union and enclosing diagonal of degenerate boxes away from zero
	DefaultEps = 1e-7
)

// DefaultMomentum makes running mean have half-life of 7000 updates
var DefaultMomentum = 1 - math.Pow(0.5, 1.0/7000.0)

// Calculator computes WIoU loss and keeps running mean of IoU loss used by focusing mechanism.
// It is safe for concurrent use.
type Calculator struct {
	mu       sync.Mutex
	iouMean  float64
	momentum float64
	training bool
	mode     FocusingMode
	alpha    float64
	delta    float64
	eps      float64
}

// Option configures Calculator
type Option func(*Calculator)

// WithAlpha sets alpha of non-monotonic focusing (default: 1.9)
func WithAlpha(alpha float64) Option {
	return func(c *Calculator) {
		c.alpha = alpha
	}
}

// WithDelta sets delta of non-monotonic focusing (default: 3)
func WithDelta(delta float64) Option {
	return func(c *Calculator) {
		c.delta = delta
	}
}

// WithMomentum sets momentum of running mean update (default: 1 - 0.5^(1/7000))
func WithMomentum(momentum float64) Option {
	return func(c *Calculator) {
		if momentum >= 0 && momentum <= 1 {
			c.momentum = momentum
		}
	}
}

// WithEps sets constant added to union area and enclosing diagonal (default: 1e-7). Non-positive values are ignored.
func WithEps(eps float64) Option {
	return func(c *Calculator) {
		if eps > 0 {
			c.eps = eps
		}
	}
}

// WithTraining enables or disables running mean updates (default: enabled)
func WithTraining(training bool) Option {
	return func(c *Calculator) {
		c.training = training
	}
}

// NewCalculator creates calculator with given focusing mode. Running mean starts at 1.
func NewCalculator(mode FocusingMode, options ...Option) *Calculator {
	c := &Calculator{
		iouMean:  1.0,
		momentum: DefaultMomentum,
		training: true,
		mode:     mode,
		alpha:    DefaultAlpha,
		delta:    DefaultDelta,
		eps:      DefaultEps,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Mode returns focusing mode
func (c *Calculator) Mode() FocusingMode {
	return c.mode
}

// Mean returns current running mean of IoU loss
func (c *Calculator) Mean() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iouMean
}

// SetTraining enables or disables running mean updates
func (c *Calculator) SetTraining(training bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.training = training
}

// Batch is the result of single calculation
type Batch struct {
	// Scaled WIoU loss per box pair
	Loss []float64
	// IoU loss (1 - IoU) per box pair
	iouLoss []float64
	// Running mean used for scaling
	mean float64
}

// IoU returns IoU loss (1 - IoU) stored during calculation
func (b *Batch) IoU() []float64 {
	return b.iouLoss
}

// Mean returns running mean of IoU loss used for scaling this batch
func (b *Batch) Mean() float64 {
	return b.mean
}

// Compute calculates WIoU loss for pairs of corner-form boxes (x1, y1, x2, y2).
// When training is enabled running mean is updated with this batch before loss is scaled.
func (c *Calculator) Compute(pred, target [][4]float64) (*Batch, error) {
	return c.calculate(pred, target, true)
}

// Score calculates WIoU loss without touching running mean
func (c *Calculator) Score(pred, target [][4]float64) (*Batch, error) {
	return c.calculate(pred, target, false)
}

func (c *Calculator) calculate(pred, target [][4]float64, update bool) (*Batch, error) {
	if len(pred) != len(target) {
		return nil, errors.Wrapf(ErrLengthMismatch, "pred %d, target %d", len(pred), len(target))
	}
	n := len(pred)
	iouLoss := make([]float64, n)
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		p, t := pred[i], target[i]
		predW, predH := p[2]-p[0], p[3]-p[1]
		targetW, targetH := t[2]-t[0], t[3]-t[1]

		interW := math.Max(math.Min(p[2], t[2])-math.Max(p[0], t[0]), 0)
		interH := math.Max(math.Min(p[3], t[3])-math.Max(p[1], t[1]), 0)
		sInter := interW * interH
		sUnion := predW*predH + targetW*targetH - sInter + c.eps

		// Enclosing box
		boxW := math.Max(p[2], t[2]) - math.Min(p[0], t[0])
		boxH := math.Max(p[3], t[3]) - math.Min(p[1], t[1])
		l2Box := boxW*boxW + boxH*boxH + c.eps

		dx := (p[0]+p[2])/2 - (t[0]+t[2])/2
		dy := (p[1]+p[3])/2 - (t[1]+t[3])/2
		l2Center := dx*dx + dy*dy

		iouLoss[i] = 1 - sInter/sUnion
		dist[i] = math.Exp(l2Center / l2Box)
	}

	c.mu.Lock()
	if update && c.training && n > 0 {
		c.iouMean = (1-c.momentum)*c.iouMean + c.momentum*stat.Mean(iouLoss, nil)
	}
	mean := c.iouMean
	c.mu.Unlock()

	loss := make([]float64, n)
	for i := range loss {
		loss[i] = c.scale(dist[i]*iouLoss[i], iouLoss[i], mean)
	}
	return &Batch{
		Loss:    loss,
		iouLoss: iouLoss,
		mean:    mean,
	}, nil
}

// scale applies focusing mechanism to the loss value
func (c *Calculator) scale(loss, iouLoss, mean float64) float64 {
	beta := iouLoss / mean
	switch c.mode {
	case FocusingMonotonic:
		return loss * math.Sqrt(beta)
	case FocusingNonMonotonic:
		divisor := c.delta * math.Pow(c.alpha, beta-c.delta)
		return loss * beta / divisor
	default:
		return loss
	}
}
