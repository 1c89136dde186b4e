// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// PixmapTarget is a CPU-backed target using *image.RGBA.
//
// Example:
//
//	target := surface.NewPixmapTarget(512, 512)
//	err := r.CopyToSurface(target, implicit.ModeShaded, false)
//	img := target.Image()
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a transparent CPU-backed target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns TextureFormatRGBA8Unorm.
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying image.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Upload draws frame into the target. Frames of a different size are scaled
// with nearest-neighbor sampling so that normals are never blended.
func (t *PixmapTarget) Upload(frame *image.RGBA, over bool) error {
	if frame == nil {
		return ErrNilFrame
	}
	blit(t.img, frame, over)
	return nil
}

// blit copies src over all of dst.
func blit(dst *image.RGBA, src *image.RGBA, over bool) {
	op := draw.Src
	if over {
		op = draw.Over
	}
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, op)
		return
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), op, nil)
}
