package implicit

import "github.com/gogpu/implicit/internal/cascade"

// View maps the normalized image grid to the coordinates the tape is
// evaluated at. Normalized coordinates span [-1, 1] on each axis, with y
// pointing up and z toward the viewer; Mat is a row-major 4×4 matrix applied
// to (x, y, z, 1) followed by the homogeneous divide.
//
// Views compose with Mul, Scaled, Translated, RotatedZ and WithPerspective:
//
//	v := implicit.Identity().Scaled(2).RotatedZ(math.Pi / 4)
type View = cascade.View

// Identity returns the view that evaluates normalized coordinates directly.
func Identity() View {
	return cascade.Identity()
}

// NewView returns the view with the given row-major matrix.
func NewView(mat [16]float32) View {
	return View{Mat: mat}
}
