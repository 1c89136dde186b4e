// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
)

// Target is a destination for rendered frames.
type Target interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Upload writes frame to the target, scaling it to the target size.
	// With over set, transparent frame pixels keep the existing contents
	// and the rest is composited on top; otherwise the target is replaced.
	Upload(frame *image.RGBA, over bool) error
}

// Errors.
var (
	// ErrNilTarget is returned when a frame is copied to a nil Target.
	ErrNilTarget = errors.New("surface: nil target")

	// ErrNilFrame is returned by Upload for a nil frame.
	ErrNilFrame = errors.New("surface: nil frame")

	// ErrInvalidDimensions is returned for targets without pixels.
	ErrInvalidDimensions = errors.New("surface: invalid dimensions")
)
