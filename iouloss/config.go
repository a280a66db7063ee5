package iouloss

import (
	"github.com/pkg/errors"
)

const (
	// DefaultEps is the default value preventing division by zero
	DefaultEps = 1e-7
	// DefaultFocalerLower is the default lower threshold of Focaler remapping
	DefaultFocalerLower = 0.0
	// DefaultFocalerUpper is the default upper threshold of Focaler remapping
	DefaultFocalerUpper = 0.95
	// DefaultXIoUBeta is the default multiplier of XIoU aspect weight
	DefaultXIoUBeta = 1.0
)

// Config describes single evaluation setup
type Config struct {
	// Formula to apply
	Variant Variant
	// Layout of input boxes
	Format Format
	// Strictly positive constant preventing division by zero
	Eps float64
	// Linearly remap IoU from [FocalerLower, FocalerUpper] to [0, 1] before penalties are applied
	Focaler      bool
	FocalerLower float64
	FocalerUpper float64
	// Multiplier of XIoU aspect weight. Must be strictly positive for XIoU
	XIoUBeta float64
	// Focal mode label. Only EvaluateFocal honors it
	Focal FocalMode
}

// DefaultConfig returns configuration for plain IoU over corner-form boxes
func DefaultConfig() Config {
	return Config{
		Variant:      VariantIoU,
		Format:       FormatXYXY,
		Eps:          DefaultEps,
		Focaler:      false,
		FocalerLower: DefaultFocalerLower,
		FocalerUpper: DefaultFocalerUpper,
		XIoUBeta:     DefaultXIoUBeta,
		Focal:        FocalNone,
	}
}

// NewConfig returns default configuration with given variant
func NewConfig(variant Variant) Config {
	cfg := DefaultConfig()
	cfg.Variant = variant
	return cfg
}

// Validate checks configuration for consistency
func (cfg Config) Validate() error {
	if !cfg.Variant.Valid() {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown variant %d", cfg.Variant)
	}
	if cfg.Format != FormatXYXY && cfg.Format != FormatXYWH {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown box format %d", cfg.Format)
	}
	if !(cfg.Eps > 0) {
		return errors.Wrapf(ErrInvalidConfiguration, "epsilon must be strictly positive, got %g", cfg.Eps)
	}
	if cfg.Focaler && !(cfg.FocalerUpper > cfg.FocalerLower) {
		return errors.Wrapf(ErrInvalidConfiguration, "focaler upper threshold (%g) must be greater than lower one (%g)", cfg.FocalerUpper, cfg.FocalerLower)
	}
	if cfg.Variant == VariantXIoU && !(cfg.XIoUBeta > 0) {
		return errors.Wrapf(ErrInvalidConfiguration, "XIoU beta must be strictly positive, got %g", cfg.XIoUBeta)
	}
	if _, err := ParseFocalMode(string(cfg.Focal)); err != nil {
		return err
	}
	return nil
}
