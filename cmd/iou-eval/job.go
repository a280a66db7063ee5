package main

import (
	"os"

	"github.com/LdDl/bbox-iou-go/iouloss"
	"github.com/LdDl/bbox-iou-go/wiou"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// jobFile is YAML description of single evaluation
type jobFile struct {
	// Either variant name or legacy flags (not both)
	Variant string          `yaml:"variant"`
	Flags   *iouloss.Flags  `yaml:"flags"`
	Format  string          `yaml:"format"`
	Eps     *float64        `yaml:"eps"`
	Focaler *focalerSection `yaml:"focaler"`
	Focal   string          `yaml:"focal"`
	XIoU    *xiouSection    `yaml:"xiou"`
	WIoU    *wiouSection    `yaml:"wiou"`
	Match   *matchSection   `yaml:"match"`

	Reference  [][4]float64 `yaml:"reference"`
	Candidates [][4]float64 `yaml:"candidates"`
}

type focalerSection struct {
	Enabled bool     `yaml:"enabled"`
	Lower   *float64 `yaml:"lower"`
	Upper   *float64 `yaml:"upper"`
}

type xiouSection struct {
	Beta float64 `yaml:"beta"`
}

type wiouSection struct {
	Focusing string   `yaml:"focusing"`
	Alpha    *float64 `yaml:"alpha"`
	Delta    *float64 `yaml:"delta"`
}

type matchSection struct {
	Algorithm string  `yaml:"algorithm"`
	MinMetric float64 `yaml:"min_metric"`
}

// job is validated jobFile
type job struct {
	cfg        iouloss.Config
	wiou       *wiou.Calculator
	match      *matchSection
	algorithm  iouloss.MatchingAlgorithm
	reference  iouloss.Boxes
	candidates iouloss.Boxes
}

func loadJob(path string) (*job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read job file '%s'", path)
	}
	return parseJob(data)
}

func parseJob(data []byte) (*job, error) {
	file := jobFile{}
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse job")
	}

	cfg := iouloss.DefaultConfig()
	switch {
	case file.Variant != "" && file.Flags != nil:
		return nil, errors.Wrap(iouloss.ErrInvalidConfiguration, "both 'variant' and 'flags' are set")
	case file.Flags != nil:
		cfg.Variant, err = iouloss.VariantFromFlags(*file.Flags)
	case file.Variant != "":
		cfg.Variant, err = iouloss.ParseVariant(file.Variant)
	}
	if err != nil {
		return nil, err
	}

	switch file.Format {
	case "", "xyxy":
		cfg.Format = iouloss.FormatXYXY
	case "xywh":
		cfg.Format = iouloss.FormatXYWH
	default:
		return nil, errors.Wrapf(iouloss.ErrInvalidConfiguration, "unknown format '%s'", file.Format)
	}
	if file.Eps != nil {
		cfg.Eps = *file.Eps
	}
	if file.Focaler != nil {
		cfg.Focaler = file.Focaler.Enabled
		if file.Focaler.Lower != nil {
			cfg.FocalerLower = *file.Focaler.Lower
		}
		if file.Focaler.Upper != nil {
			cfg.FocalerUpper = *file.Focaler.Upper
		}
	}
	if cfg.Focal, err = iouloss.ParseFocalMode(file.Focal); err != nil {
		return nil, err
	}
	if file.XIoU != nil {
		cfg.XIoUBeta = file.XIoU.Beta
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	parsed := job{
		cfg:        cfg,
		reference:  toBoxes(file.Reference),
		candidates: toBoxes(file.Candidates),
	}
	if file.WIoU != nil {
		mode, err := wiou.ParseFocusingMode(file.WIoU.Focusing)
		if err != nil {
			return nil, errors.Wrap(iouloss.ErrInvalidConfiguration, err.Error())
		}
		options := []wiou.Option{}
		if file.WIoU.Alpha != nil {
			options = append(options, wiou.WithAlpha(*file.WIoU.Alpha))
		}
		if file.WIoU.Delta != nil {
			options = append(options, wiou.WithDelta(*file.WIoU.Delta))
		}
		parsed.wiou = wiou.NewCalculator(mode, options...)
	}
	if file.Match != nil {
		parsed.algorithm, err = iouloss.ParseMatchingAlgorithm(file.Match.Algorithm)
		if err != nil {
			return nil, err
		}
		parsed.match = file.Match
	}
	if len(parsed.reference) == 0 || len(parsed.candidates) == 0 {
		return nil, errors.Wrap(iouloss.ErrEmptyBoxes, "job needs both 'reference' and 'candidates'")
	}
	return &parsed, nil
}

func toBoxes(raw [][4]float64) iouloss.Boxes {
	boxes := make(iouloss.Boxes, len(raw))
	for i := range raw {
		boxes[i] = iouloss.Box(raw[i])
	}
	return boxes
}
