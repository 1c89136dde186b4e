// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

var (
	// ErrNilDrawer is returned when a TextureTarget is created without a
	// draw context.
	ErrNilDrawer = errors.New("surface: nil TextureDrawer")

	// ErrNoTextureCreator is returned when the draw context cannot create
	// textures.
	ErrNoTextureCreator = errors.New("surface: draw context has no TextureCreator")

	// ErrNotTexture is returned when the host returned a value that cannot
	// be drawn.
	ErrNotTexture = errors.New("surface: created texture does not implement gpucontext.Texture")
)

// textureDestroyer matches the Destroy method of host textures.
type textureDestroyer interface {
	Destroy()
}

// TextureTarget uploads frames into a GPU texture owned by the host
// application and draws it through the host's draw context.
//
// GPU textures cannot be read back cheaply, so the target keeps a CPU
// staging copy: compositing happens there and the whole staging image is
// uploaded after every frame. The texture is created on the first Upload and
// updated in place afterwards.
//
// TextureTarget is NOT safe for concurrent use.
type TextureTarget struct {
	dc      gpucontext.TextureDrawer
	x, y    float32
	staging *image.RGBA
	texture any
}

// NewTextureTarget creates a target of the given size drawn through dc.
func NewTextureTarget(dc gpucontext.TextureDrawer, width, height int) (*TextureTarget, error) {
	if dc == nil {
		return nil, ErrNilDrawer
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &TextureTarget{
		dc:      dc,
		staging: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// SetPosition sets where the texture is drawn in the host surface.
func (t *TextureTarget) SetPosition(x, y float32) {
	t.x, t.y = x, y
}

// Width returns the texture width in pixels.
func (t *TextureTarget) Width() int {
	return t.staging.Bounds().Dx()
}

// Height returns the texture height in pixels.
func (t *TextureTarget) Height() int {
	return t.staging.Bounds().Dy()
}

// Format returns TextureFormatRGBA8Unorm.
func (t *TextureTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Upload composites frame into the staging image, uploads it and draws the
// texture.
func (t *TextureTarget) Upload(frame *image.RGBA, over bool) error {
	if frame == nil {
		return ErrNilFrame
	}
	blit(t.staging, frame, over)

	if t.texture == nil {
		creator := t.dc.TextureCreator()
		if creator == nil {
			return ErrNoTextureCreator
		}
		tex, err := creator.NewTextureFromRGBA(t.Width(), t.Height(), t.staging.Pix)
		if err != nil {
			return fmt.Errorf("surface: NewTextureFromRGBA failed: %w", err)
		}
		// image.RGBA holds premultiplied alpha.
		if pt, ok := any(tex).(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}
		t.texture = tex
	} else if updater, ok := t.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(t.staging.Pix); err != nil {
			return fmt.Errorf("surface: texture update failed: %w", err)
		}
	}

	gpuTex, ok := t.texture.(gpucontext.Texture)
	if !ok {
		return ErrNotTexture
	}
	return t.dc.DrawTexture(gpuTex, t.x, t.y)
}

// Close destroys the texture. The target can be reused; the next Upload
// creates a new texture.
func (t *TextureTarget) Close() {
	if d, ok := t.texture.(textureDestroyer); ok {
		d.Destroy()
	}
	t.texture = nil
}
