package iouloss

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned for unsupported or ambiguous settings (several variants at once, non-positive epsilon, unknown focal mode and etc.)
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrShapeMismatch is returned when box collections can not be broadcast against each other
	ErrShapeMismatch = errors.New("box collections can not be broadcast")
	// ErrEmptyBoxes is returned when one of collections has no boxes
	ErrEmptyBoxes = errors.New("empty box collection")
)
