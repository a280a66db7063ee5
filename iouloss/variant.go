package iouloss

import (
	"strings"

	"github.com/pkg/errors"
)

// Variant selects which IoU-family formula is applied
type Variant uint16

const (
	// VariantIoU is plain Intersection over Union
	VariantIoU Variant = iota
	// VariantGIoU is Generalized IoU (https://arxiv.org/pdf/1902.09630.pdf)
	VariantGIoU
	// VariantDIoU is Distance IoU (https://arxiv.org/abs/1911.08287v1)
	VariantDIoU
	// VariantCIoU is Complete IoU: DIoU plus aspect ratio consistency term
	VariantCIoU
	// VariantEIoU is Efficient IoU: DIoU plus width and height discrepancy terms
	VariantEIoU
	// VariantSIoU is SCYLLA IoU: angle, distance and shape costs
	VariantSIoU
	// VariantWIoU is Wise IoU, computed by wiou.Calculator
	VariantWIoU
	// VariantEfficiCIoU combines CIoU and EIoU penalties
	VariantEfficiCIoU
	// VariantXIoU is CIoU with logistic aspect term
	VariantXIoU
)

var variantNames = map[Variant]string{
	VariantIoU:        "IoU",
	VariantGIoU:       "GIoU",
	VariantDIoU:       "DIoU",
	VariantCIoU:       "CIoU",
	VariantEIoU:       "EIoU",
	VariantSIoU:       "SIoU",
	VariantWIoU:       "WIoU",
	VariantEfficiCIoU: "EfficiCIoU",
	VariantXIoU:       "XIoU",
}

// Priority is the order in which legacy boolean flags used to be resolved when several were set.
// It is kept for reference only: VariantFromFlags refuses ambiguous flag sets.
var Priority = []Variant{
	VariantCIoU,
	VariantSIoU,
	VariantEIoU,
	VariantEfficiCIoU,
	VariantXIoU,
	VariantDIoU,
	VariantWIoU,
	VariantGIoU,
	VariantIoU,
}

// String returns canonical name of the variant
func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether v is one of the known variants
func (v Variant) Valid() bool {
	_, ok := variantNames[v]
	return ok
}

// ParseVariant parses variant name (case-insensitive), e.g. "ciou" or "EfficiCIoU"
func ParseVariant(s string) (Variant, error) {
	name := strings.TrimSpace(s)
	for v, vName := range variantNames {
		if strings.EqualFold(vName, name) {
			return v, nil
		}
	}
	return VariantIoU, errors.Wrapf(ErrInvalidConfiguration, "unknown variant '%s'", s)
}

// Flags is the legacy boolean form of variant selection
type Flags struct {
	GIoU       bool `yaml:"giou"`
	DIoU       bool `yaml:"diou"`
	CIoU       bool `yaml:"ciou"`
	EIoU       bool `yaml:"eiou"`
	SIoU       bool `yaml:"siou"`
	WIoU       bool `yaml:"wiou"`
	EfficiCIoU bool `yaml:"efficiciou"`
	XIoU       bool `yaml:"xiou"`
}

// VariantFromFlags converts flag set into single variant.
// No flags means plain IoU. More than one flag is an error, there is no silent priority resolution.
func VariantFromFlags(flags Flags) (Variant, error) {
	set := map[Variant]bool{
		VariantGIoU:       flags.GIoU,
		VariantDIoU:       flags.DIoU,
		VariantCIoU:       flags.CIoU,
		VariantEIoU:       flags.EIoU,
		VariantSIoU:       flags.SIoU,
		VariantWIoU:       flags.WIoU,
		VariantEfficiCIoU: flags.EfficiCIoU,
		VariantXIoU:       flags.XIoU,
	}
	selected := make([]string, 0, 1)
	result := VariantIoU
	for _, v := range Priority {
		if set[v] {
			selected = append(selected, v.String())
			result = v
		}
	}
	if len(selected) > 1 {
		return VariantIoU, errors.Wrapf(ErrInvalidConfiguration, "several variants requested at once: %s", strings.Join(selected, ", "))
	}
	return result, nil
}

// FocalMode is the label selecting focal-loss dual return
type FocalMode string

const (
	FocalNone FocalMode = "none"
	FocalCIoU FocalMode = "Focal_CIoU"
	FocalSIoU FocalMode = "Focal_SIoU"
	FocalEIoU FocalMode = "Focal_EIoU"
	FocalDIoU FocalMode = "Focal_DIoU"
	FocalWIoU FocalMode = "Focal_WIoU"
	FocalGIoU FocalMode = "Focal_GIoU"
)

var focalVariants = map[FocalMode]Variant{
	FocalCIoU: VariantCIoU,
	FocalSIoU: VariantSIoU,
	FocalEIoU: VariantEIoU,
	FocalDIoU: VariantDIoU,
	FocalWIoU: VariantWIoU,
	FocalGIoU: VariantGIoU,
}

// ParseFocalMode validates focal mode label. Empty string is treated as FocalNone.
func ParseFocalMode(s string) (FocalMode, error) {
	mode := FocalMode(strings.TrimSpace(s))
	if mode == "" || mode == FocalNone {
		return FocalNone, nil
	}
	if _, ok := focalVariants[mode]; !ok {
		return FocalNone, errors.Wrapf(ErrInvalidConfiguration, "unknown focal mode '%s'", s)
	}
	return mode, nil
}

// Matches reports whether focal mode targets given variant
func (m FocalMode) Matches(v Variant) bool {
	target, ok := focalVariants[m]
	return ok && target == v
}
