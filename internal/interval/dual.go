package interval

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/implicit/tape"
)

// Dual is a value together with its partial derivatives along x, y and z.
type Dual struct {
	V float32
	D [3]float32
}

// Constant returns a dual number with zero derivatives.
func Constant(v float32) Dual {
	return Dual{V: v}
}

// Variable returns the dual number for coordinate axis (0, 1 or 2).
func Variable(v float32, axis int) Dual {
	d := Dual{V: v}
	d.D[axis] = 1
	return d
}

func (d Dual) scaled(k float32) [3]float32 {
	return [3]float32{d.D[0] * k, d.D[1] * k, d.D[2] * k}
}

// Derive evaluates one opcode with forward-mode differentiation. Min and max
// take the derivative of the selected operand.
func Derive(op tape.Opcode, a, b Dual) Dual {
	switch op {
	case tape.OpNeg:
		return Dual{V: -a.V, D: a.scaled(-1)}
	case tape.OpAbs:
		if a.V < 0 {
			return Dual{V: -a.V, D: a.scaled(-1)}
		}
		return a
	case tape.OpSquare:
		return Dual{V: a.V * a.V, D: a.scaled(2 * a.V)}
	case tape.OpSqrt:
		s := math32.Sqrt(a.V)
		return Dual{V: s, D: a.scaled(0.5 / s)}
	case tape.OpSin:
		return Dual{V: math32.Sin(a.V), D: a.scaled(math32.Cos(a.V))}
	case tape.OpCos:
		return Dual{V: math32.Cos(a.V), D: a.scaled(-math32.Sin(a.V))}
	case tape.OpExp:
		e := math32.Exp(a.V)
		return Dual{V: e, D: a.scaled(e)}
	case tape.OpAdd:
		return Dual{V: a.V + b.V, D: [3]float32{a.D[0] + b.D[0], a.D[1] + b.D[1], a.D[2] + b.D[2]}}
	case tape.OpSub:
		return Dual{V: a.V - b.V, D: [3]float32{a.D[0] - b.D[0], a.D[1] - b.D[1], a.D[2] - b.D[2]}}
	case tape.OpMul:
		var d [3]float32
		for i := range d {
			d[i] = a.D[i]*b.V + a.V*b.D[i]
		}
		return Dual{V: a.V * b.V, D: d}
	case tape.OpDiv:
		var d [3]float32
		den := b.V * b.V
		for i := range d {
			d[i] = (a.D[i]*b.V - a.V*b.D[i]) / den
		}
		return Dual{V: a.V / b.V, D: d}
	case tape.OpMin:
		if b.V < a.V {
			return b
		}
		return a
	case tape.OpMax:
		if b.V > a.V {
			return b
		}
		return a
	default:
		panic(fmt.Sprintf("interval: opcode %v is not an operation", op))
	}
}
