package cascade

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/implicit/internal/interval"
)

// View maps normalized grid coordinates to evaluation space.
//
// Normalized coordinates span [-1, 1] on every axis with y pointing up and z
// toward the viewer. Mat is a row-major 4×4 matrix applied to (x, y, z, 1),
// followed by the homogeneous divide:
//
//	| m0  m1  m2  m3  |
//	| m4  m5  m6  m7  |
//	| m8  m9  m10 m11 |
//	| m12 m13 m14 m15 |
//
// Point and Bounds perform the same float32 operations in the same order, so
// the bounds of a region always contain the image of every point in it.
type View struct {
	Mat [16]float32
}

// Identity returns the view that evaluates normalized coordinates directly.
func Identity() View {
	return View{Mat: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Mul returns v·o: o is applied first.
func (v View) Mul(o View) View {
	var r View
	for i := range 4 {
		for j := range 4 {
			var s float32
			for k := range 4 {
				s += v.Mat[i*4+k] * o.Mat[k*4+j]
			}
			r.Mat[i*4+j] = s
		}
	}
	return r
}

// Scaled returns a view that multiplies every coordinate by s after v.
func (v View) Scaled(s float32) View {
	m := Identity()
	m.Mat[0], m.Mat[5], m.Mat[10] = s, s, s
	return m.Mul(v)
}

// Translated returns a view that offsets coordinates after v.
func (v View) Translated(x, y, z float32) View {
	m := Identity()
	m.Mat[3], m.Mat[7], m.Mat[11] = x, y, z
	return m.Mul(v)
}

// RotatedZ returns a view that rotates about the z axis after v.
func (v View) RotatedZ(angle float32) View {
	s, c := math32.Sincos(angle)
	m := Identity()
	m.Mat[0], m.Mat[1] = c, -s
	m.Mat[4], m.Mat[5] = s, c
	return m.Mul(v)
}

// WithPerspective applies a perspective divide of strength p along z before
// v: w = 1 + p·z in normalized space.
func (v View) WithPerspective(p float32) View {
	m := Identity()
	m.Mat[14] = p
	return v.Mul(m)
}

func (v View) row(i int, x, y, z float32) float32 {
	m := v.Mat[i*4 : i*4+4]
	// Explicit conversions keep the compiler from fusing multiply-adds,
	// which would break the match with Bounds.
	return float32(m[0]*x) + float32(m[1]*y) + float32(m[2]*z) + m[3]
}

func (v View) rowBounds(i int, x, y, z interval.Interval) interval.Interval {
	m := v.Mat[i*4 : i*4+4]
	r := interval.Add(interval.Scale(m[0], x), interval.Scale(m[1], y))
	r = interval.Add(r, interval.Scale(m[2], z))
	return interval.Add(r, interval.Point(m[3]))
}

// Point maps one normalized point to evaluation space.
func (v View) Point(n [3]float32) [3]float32 {
	x, y, z := n[0], n[1], n[2]
	w := v.row(3, x, y, z)
	return [3]float32{
		v.row(0, x, y, z) / w,
		v.row(1, x, y, z) / w,
		v.row(2, x, y, z) / w,
	}
}

// Bounds maps a normalized box to an evaluation-space box.
func (v View) Bounds(n [3]interval.Interval) [3]interval.Interval {
	x, y, z := n[0], n[1], n[2]
	w := v.rowBounds(3, x, y, z)
	return [3]interval.Interval{
		interval.Div(v.rowBounds(0, x, y, z), w),
		interval.Div(v.rowBounds(1, x, y, z), w),
		interval.Div(v.rowBounds(2, x, y, z), w),
	}
}
