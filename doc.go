// Package implicit renders height maps and normal maps of implicit surfaces.
//
// # Overview
//
// A surface is a scalar field f(x, y, z) given as a tape: a list of
// arithmetic clauses in static single assignment form, built with
// tape.Builder. A point is inside the surface when f < 0.
//
// Rendering is adaptive. The image is covered by large tiles that are
// classified with interval arithmetic as empty, filled or ambiguous. Filled
// tiles are painted directly, empty ones are dropped, and ambiguous ones are
// split into smaller regions and classified again, each under a subtape
// pruned of the min/max branches that cannot matter inside its parent. The
// finest ambiguous regions are evaluated per pixel. A final stage computes
// normals by automatic differentiation.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/implicit"
//	    "github.com/gogpu/implicit/tape"
//	)
//
//	b := tape.NewBuilder()
//	t, err := b.Build(b.Min(b.Sphere(-0.5, 0, 0, 0.25), b.Sphere(0.5, 0, 0, 0.25)))
//	if err != nil {
//	    return err
//	}
//
//	r, err := implicit.Build(t, 512, 3)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	if err := r.Run(implicit.Identity()); err != nil {
//	    return err
//	}
//	img := r.HeightImage()
//
// # Dimensions
//
// In 2-D the tape is evaluated on the z = 0 plane and the height map is a
// coverage mask: 1 inside, 0 outside. In 3-D each pixel is a column of
// voxels and its height is the index of the topmost inside voxel plus one.
//
// # Coordinate System
//
// Pixel (px, py) of a size×size image has normalized center
//
//	x = (px + 0.5)·2/size − 1
//	y = 1 − (py + 0.5)·2/size
//
// so y points up; voxel k of a column has z = (k + 0.5)·2/size − 1. The View
// maps normalized coordinates to the coordinates the tape sees.
//
// # Determinism
//
// Interval bounds, point values and derivatives are all computed in float32
// with the same operation order, so the adaptive result equals per-pixel
// evaluation (RunBrute) exactly.
//
// # GPU
//
// Kernel hard-compiles the tape into a brute-force compute shader, and
// RunKernel dispatches it through the wgpu HAL. GPU transcendental functions
// need not round like the CPU ones, so RunKernel may differ from RunBrute on
// pixels right at the surface.
package implicit
