// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the sinks a rendered frame is copied to.
//
// A Target receives whole RGBA frames through Upload, either replacing its
// contents or compositing over them. The package ships two targets:
//
//   - PixmapTarget: a CPU-backed *image.RGBA, scaled with x/image/draw when
//     the frame and target sizes differ
//   - TextureTarget: a GPU texture created and updated through a host's
//     gpucontext.TextureDrawer, the same path gg canvases use
//
// Further sinks can be registered by name:
//
//	surface.Register("mysink", 50, func(w, h int) (surface.Target, error) {
//	    return newMySink(w, h), nil
//	}, nil)
//
//	t, err := surface.NewTargetByName("mysink", 512, 512)
package surface
