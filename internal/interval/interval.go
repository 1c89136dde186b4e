// Package interval implements the numeric contract shared by every renderer
// stage: interval bounds, plain float32 point values and forward-mode
// derivatives for each tape opcode.
//
// All three evaluate the same float32 expressions in the same order. Because
// IEEE rounding is monotone, an interval computed this way bounds the point
// value of every input inside it, which is what makes Filled/Empty
// classification agree with per-pixel evaluation bit for bit.
//
// An undefined interval (division by a range containing zero, square root of
// a range reaching below zero, 0·∞) is represented with NaN bounds. NaN never
// classifies as Filled or Empty and never decides a min/max choice.
package interval

import (
	"math"

	"github.com/chewxy/math32"
)

// Interval is a closed range [Lo, Hi].
type Interval struct {
	Lo, Hi float32
}

// Point returns the degenerate interval [v, v].
func Point(v float32) Interval {
	return Interval{Lo: v, Hi: v}
}

// Of returns the interval spanning a and b in either order.
func Of(a, b float32) Interval {
	return Interval{Lo: min(a, b), Hi: max(a, b)}
}

// NaN returns the undefined interval.
func NaN() Interval {
	n := math32.NaN()
	return Interval{Lo: n, Hi: n}
}

// IsNaN reports whether either bound is undefined.
func (i Interval) IsNaN() bool {
	return math32.IsNaN(i.Lo) || math32.IsNaN(i.Hi)
}

// Contains reports whether v lies inside the interval.
func (i Interval) Contains(v float32) bool {
	return v >= i.Lo && v <= i.Hi
}

// Width returns Hi - Lo.
func (i Interval) Width() float32 {
	return i.Hi - i.Lo
}

// Inside reports whether every value in the interval is strictly negative.
// Bounds touching zero are not inside.
func (i Interval) Inside() bool {
	return !i.IsNaN() && i.Hi < 0
}

// Outside reports whether every value in the interval is strictly positive.
func (i Interval) Outside() bool {
	return !i.IsNaN() && i.Lo > 0
}

func Neg(a Interval) Interval {
	return Interval{Lo: -a.Hi, Hi: -a.Lo}
}

func Abs(a Interval) Interval {
	switch {
	case a.IsNaN():
		return NaN()
	case a.Lo >= 0:
		return a
	case a.Hi <= 0:
		return Neg(a)
	default:
		return Interval{Lo: 0, Hi: max(-a.Lo, a.Hi)}
	}
}

func Square(a Interval) Interval {
	switch {
	case a.IsNaN():
		return NaN()
	case a.Lo >= 0:
		return Interval{Lo: float32(a.Lo * a.Lo), Hi: float32(a.Hi * a.Hi)}
	case a.Hi <= 0:
		return Interval{Lo: float32(a.Hi * a.Hi), Hi: float32(a.Lo * a.Lo)}
	default:
		return Interval{Lo: 0, Hi: max(float32(a.Lo*a.Lo), float32(a.Hi*a.Hi))}
	}
}

func Sqrt(a Interval) Interval {
	if a.IsNaN() || a.Lo < 0 {
		return NaN()
	}
	return Interval{Lo: math32.Sqrt(a.Lo), Hi: math32.Sqrt(a.Hi)}
}

func Exp(a Interval) Interval {
	return Interval{Lo: math32.Exp(a.Lo), Hi: math32.Exp(a.Hi)}
}

// criticalSlack widens the search for extrema of sin/cos so that a peak
// lying just outside the range after rounding still saturates the bound.
const criticalSlack = 1e-3

// hasCritical reports whether phase + 2kπ falls in [lo, hi] for some k.
func hasCritical(a Interval, phase float32) bool {
	lo := float64(a.Lo) - criticalSlack
	hi := float64(a.Hi) + criticalSlack
	k := math.Ceil((lo - float64(phase)) / (2 * math.Pi))
	return float64(phase)+k*2*math.Pi <= hi
}

func Sin(a Interval) Interval {
	if a.IsNaN() {
		return NaN()
	}
	if a.Width() >= 2*math32.Pi {
		return Interval{Lo: -1, Hi: 1}
	}
	r := Of(math32.Sin(a.Lo), math32.Sin(a.Hi))
	if hasCritical(a, math32.Pi/2) {
		r.Hi = 1
	}
	if hasCritical(a, -math32.Pi/2) {
		r.Lo = -1
	}
	return r
}

func Cos(a Interval) Interval {
	if a.IsNaN() {
		return NaN()
	}
	if a.Width() >= 2*math32.Pi {
		return Interval{Lo: -1, Hi: 1}
	}
	r := Of(math32.Cos(a.Lo), math32.Cos(a.Hi))
	if hasCritical(a, 0) {
		r.Hi = 1
	}
	if hasCritical(a, math32.Pi) {
		r.Lo = -1
	}
	return r
}

func Add(a, b Interval) Interval {
	return Interval{Lo: a.Lo + b.Lo, Hi: a.Hi + b.Hi}
}

func Sub(a, b Interval) Interval {
	return Interval{Lo: a.Lo - b.Hi, Hi: a.Hi - b.Lo}
}

func Mul(a, b Interval) Interval {
	p0 := float32(a.Lo * b.Lo)
	p1 := float32(a.Lo * b.Hi)
	p2 := float32(a.Hi * b.Lo)
	p3 := float32(a.Hi * b.Hi)
	return Interval{Lo: min(p0, p1, p2, p3), Hi: max(p0, p1, p2, p3)}
}

// Scale multiplies the interval by a constant.
func Scale(k float32, a Interval) Interval {
	return Of(float32(k*a.Lo), float32(k*a.Hi))
}

func Div(a, b Interval) Interval {
	if b.IsNaN() || (b.Lo <= 0 && b.Hi >= 0) {
		return NaN()
	}
	q0 := a.Lo / b.Lo
	q1 := a.Lo / b.Hi
	q2 := a.Hi / b.Lo
	q3 := a.Hi / b.Hi
	return Interval{Lo: min(q0, q1, q2, q3), Hi: max(q0, q1, q2, q3)}
}

func Min(a, b Interval) Interval {
	return Interval{Lo: min(a.Lo, b.Lo), Hi: min(a.Hi, b.Hi)}
}

func Max(a, b Interval) Interval {
	return Interval{Lo: max(a.Lo, b.Lo), Hi: max(a.Hi, b.Hi)}
}
