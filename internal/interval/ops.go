package interval

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/implicit/tape"
)

// Choice records which operand of a min/max clause survives in a region.
type Choice uint8

const (
	// Both means the clause still needs both operands.
	Both Choice = iota
	// OnlyA means the clause evaluates to its first operand.
	OnlyA
	// OnlyB means the clause evaluates to its second operand.
	OnlyB
)

func (c Choice) String() string {
	switch c {
	case Both:
		return "both"
	case OnlyA:
		return "a"
	case OnlyB:
		return "b"
	default:
		return fmt.Sprintf("Choice(%d)", uint8(c))
	}
}

// Decide returns the operand a min/max clause reduces to over the given
// operand bounds. Domination must be strict; touching or undefined bounds
// keep both operands.
func Decide(op tape.Opcode, a, b Interval) Choice {
	switch op {
	case tape.OpMin:
		if a.Hi < b.Lo {
			return OnlyA
		}
		if b.Hi < a.Lo {
			return OnlyB
		}
	case tape.OpMax:
		if a.Lo > b.Hi {
			return OnlyA
		}
		if b.Lo > a.Hi {
			return OnlyB
		}
	}
	return Both
}

// Bound evaluates one opcode over interval operands. Leaves are handled by
// the caller.
func Bound(op tape.Opcode, a, b Interval) Interval {
	switch op {
	case tape.OpNeg:
		return Neg(a)
	case tape.OpAbs:
		return Abs(a)
	case tape.OpSquare:
		return Square(a)
	case tape.OpSqrt:
		return Sqrt(a)
	case tape.OpSin:
		return Sin(a)
	case tape.OpCos:
		return Cos(a)
	case tape.OpExp:
		return Exp(a)
	case tape.OpAdd:
		return Add(a, b)
	case tape.OpSub:
		return Sub(a, b)
	case tape.OpMul:
		return Mul(a, b)
	case tape.OpDiv:
		return Div(a, b)
	case tape.OpMin:
		return Min(a, b)
	case tape.OpMax:
		return Max(a, b)
	default:
		panic(fmt.Sprintf("interval: opcode %v is not an operation", op))
	}
}

// Value evaluates one opcode over point operands. Products are rounded
// explicitly so they match Bound even where the compiler could fuse them.
func Value(op tape.Opcode, a, b float32) float32 {
	switch op {
	case tape.OpNeg:
		return -a
	case tape.OpAbs:
		return math32.Abs(a)
	case tape.OpSquare:
		return float32(a * a)
	case tape.OpSqrt:
		return math32.Sqrt(a)
	case tape.OpSin:
		return math32.Sin(a)
	case tape.OpCos:
		return math32.Cos(a)
	case tape.OpExp:
		return math32.Exp(a)
	case tape.OpAdd:
		return a + b
	case tape.OpSub:
		return a - b
	case tape.OpMul:
		return float32(a * b)
	case tape.OpDiv:
		return a / b
	case tape.OpMin:
		return min(a, b)
	case tape.OpMax:
		return max(a, b)
	default:
		panic(fmt.Sprintf("interval: opcode %v is not an operation", op))
	}
}
