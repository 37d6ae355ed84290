// Package cvio reads and writes video through OpenCV.
//
// The OpenCV implementation is only compiled with the gocv build tag; without
// it NewOpener reports the backend as unavailable.
package cvio

import "errors"

// FourCC is the codec used for written files
const FourCC = "mp4v"

// ErrUnavailable is returned by NewOpener in builds without the gocv tag
var ErrUnavailable = errors.New("gocv backend not compiled in (rebuild with -tags gocv)")
