package interval

import (
	"math"
	"testing"

	"github.com/chewxy/math32"

	"github.com/gogpu/implicit/tape"
)

var samples = []Interval{
	{-3, -1}, {-2, 0}, {-1, 1}, {0, 0}, {0, 2}, {0.5, 4}, {-0.25, 0.75}, {1e-3, 1e-2}, {-7, 5},
}

// points returns representative points of a.
func points(a Interval) []float32 {
	return []float32{a.Lo, a.Hi, a.Lo + (a.Hi-a.Lo)/3, (a.Lo + a.Hi) / 2}
}

func TestBound_ContainsValues(t *testing.T) {
	ops := []tape.Opcode{
		tape.OpNeg, tape.OpAbs, tape.OpSquare, tape.OpSqrt,
		tape.OpAdd, tape.OpSub, tape.OpMul, tape.OpDiv, tape.OpMin, tape.OpMax,
	}
	for _, op := range ops {
		for _, a := range samples {
			for _, b := range samples {
				r := Bound(op, a, b)
				if r.IsNaN() {
					continue
				}
				for _, pa := range points(a) {
					for _, pb := range points(b) {
						v := Value(op, pa, pb)
						if !r.Contains(v) {
							t.Errorf("%v(%v, %v) = %v outside Bound(%v, %v) = %v", op, pa, pb, v, a, b, r)
						}
					}
				}
			}
		}
	}
}

func TestBound_Transcendental(t *testing.T) {
	const eps = 1e-6
	ops := []tape.Opcode{tape.OpSin, tape.OpCos, tape.OpExp}
	wide := append([]Interval{{-10, 10}, {1.5, 1.7}, {3, 3.3}, {-1.6, -1.5}, {6.2, 6.4}}, samples...)
	for _, op := range ops {
		for _, a := range wide {
			r := Bound(op, a, Interval{})
			for i := range 64 {
				p := a.Lo + (a.Hi-a.Lo)*float32(i)/63
				v := Value(op, p, 0)
				if v < r.Lo-eps*math32.Abs(r.Lo)-eps || v > r.Hi+eps*math32.Abs(r.Hi)+eps {
					t.Errorf("%v(%v) = %v outside Bound(%v) = %v", op, p, v, a, r)
				}
			}
		}
	}
	if r := Sin(Interval{0, 7}); r != (Interval{-1, 1}) {
		t.Errorf("Sin over a full period = %v, want [-1, 1]", r)
	}
	if r := Cos(Interval{-0.1, 0.1}); r.Hi != 1 {
		t.Errorf("Cos around 0 = %v, want Hi = 1", r)
	}
}

func TestUndefined(t *testing.T) {
	tests := []struct {
		name string
		got  Interval
	}{
		{"div by range with zero", Div(Interval{1, 2}, Interval{-1, 1})},
		{"div by zero point", Div(Interval{1, 2}, Point(0))},
		{"div by touching zero", Div(Interval{1, 2}, Interval{0, 1})},
		{"sqrt below zero", Sqrt(Interval{-1, 4})},
		{"nan propagates through add", Add(NaN(), Interval{0, 1})},
		{"nan propagates through mul", Mul(NaN(), Interval{0, 1})},
		{"nan propagates through min", Min(NaN(), Interval{0, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.IsNaN() {
				t.Errorf("got %v, want NaN", tt.got)
			}
			if tt.got.Inside() || tt.got.Outside() {
				t.Error("NaN interval classified as inside or outside")
			}
		})
	}
	if r := Sqrt(Interval{0, 4}); r != (Interval{0, 2}) {
		t.Errorf("Sqrt([0, 4]) = %v, want [0, 2]", r)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		in      Interval
		inside  bool
		outside bool
	}{
		{Interval{-2, -1}, true, false},
		{Interval{1, 2}, false, true},
		{Interval{-1, 0}, false, false},
		{Interval{0, 1}, false, false},
		{Interval{-1, 1}, false, false},
		{Point(0), false, false},
	}
	for _, tt := range tests {
		if got := tt.in.Inside(); got != tt.inside {
			t.Errorf("%v.Inside() = %v, want %v", tt.in, got, tt.inside)
		}
		if got := tt.in.Outside(); got != tt.outside {
			t.Errorf("%v.Outside() = %v, want %v", tt.in, got, tt.outside)
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		op   tape.Opcode
		a, b Interval
		want Choice
	}{
		{tape.OpMin, Interval{0, 1}, Interval{2, 3}, OnlyA},
		{tape.OpMin, Interval{2, 3}, Interval{0, 1}, OnlyB},
		{tape.OpMin, Interval{0, 2}, Interval{2, 3}, Both},
		{tape.OpMin, Interval{0, 2}, Interval{1, 3}, Both},
		{tape.OpMax, Interval{2, 3}, Interval{0, 1}, OnlyA},
		{tape.OpMax, Interval{0, 1}, Interval{2, 3}, OnlyB},
		{tape.OpMax, Interval{0, 1}, Interval{1, 3}, Both},
		{tape.OpMin, NaN(), Interval{2, 3}, Both},
		{tape.OpMax, Interval{0, 1}, NaN(), Both},
		{tape.OpAdd, Interval{0, 1}, Interval{2, 3}, Both},
	}
	for _, tt := range tests {
		if got := Decide(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("Decide(%v, %v, %v) = %v, want %v", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDecide_AgreesWithValue(t *testing.T) {
	for _, op := range []tape.Opcode{tape.OpMin, tape.OpMax} {
		for _, a := range samples {
			for _, b := range samples {
				ch := Decide(op, a, b)
				if ch == Both {
					continue
				}
				for _, pa := range points(a) {
					for _, pb := range points(b) {
						want := pa
						if ch == OnlyB {
							want = pb
						}
						if got := Value(op, pa, pb); got != want {
							t.Errorf("%v(%v, %v) = %v but Decide chose %v", op, pa, pb, got, ch)
						}
					}
				}
			}
		}
	}
}

func TestDerive_MatchesFiniteDifference(t *testing.T) {
	const h = 1e-3
	unary := []tape.Opcode{tape.OpNeg, tape.OpAbs, tape.OpSquare, tape.OpSqrt, tape.OpSin, tape.OpCos, tape.OpExp}
	for _, op := range unary {
		for _, v := range []float32{0.3, 1.7, 2.5} {
			d := Derive(op, Variable(v, 0), Constant(0))
			fd := (float64(Value(op, v+h, 0)) - float64(Value(op, v-h, 0))) / (2 * h)
			if math.Abs(float64(d.D[0])-fd) > 1e-2*math.Max(1, math.Abs(fd)) {
				t.Errorf("d/dx %v at %v = %v, finite difference %v", op, v, d.D[0], fd)
			}
			if d.V != Value(op, v, 0) {
				t.Errorf("%v value = %v, want %v", op, d.V, Value(op, v, 0))
			}
		}
	}

	binary := []tape.Opcode{tape.OpAdd, tape.OpSub, tape.OpMul, tape.OpDiv, tape.OpMin, tape.OpMax}
	for _, op := range binary {
		x, y := float32(0.7), float32(1.9)
		d := Derive(op, Variable(x, 0), Variable(y, 1))
		dx := (float64(Value(op, x+h, y)) - float64(Value(op, x-h, y))) / (2 * h)
		dy := (float64(Value(op, x, y+h)) - float64(Value(op, x, y-h))) / (2 * h)
		if math.Abs(float64(d.D[0])-dx) > 1e-2 || math.Abs(float64(d.D[1])-dy) > 1e-2 {
			t.Errorf("gradient of %v = %v, finite difference (%v, %v)", op, d.D, dx, dy)
		}
		if d.D[2] != 0 {
			t.Errorf("d/dz of %v = %v, want 0", op, d.D[2])
		}
	}
}

func TestChoice_String(t *testing.T) {
	tests := []struct {
		c    Choice
		want string
	}{
		{Both, "both"},
		{OnlyA, "a"},
		{OnlyB, "b"},
		{Choice(7), "Choice(7)"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
