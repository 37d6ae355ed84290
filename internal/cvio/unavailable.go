//go:build !gocv

package cvio

import (
	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/video"
)

// Enabled reports whether the OpenCV backend is part of this build
const Enabled = false

// NewOpener always fails without the gocv build tag
func NewOpener(logger zerolog.Logger) (video.Opener, error) {
	return nil, ErrUnavailable
}
