// Package tape defines the flat instruction form of an implicit-surface
// expression.
//
// A Tape is a sequence of clauses in single-assignment order: every clause
// reads only clauses that precede it, and the last clause is the value of the
// whole expression. The renderer treats a Tape as read-only input; Builder is
// a small convenience for assembling one from arithmetic calls.
package tape

import (
	"errors"
	"fmt"
)

// Opcode identifies the operation performed by a clause.
type Opcode uint8

// Clause opcodes.
const (
	OpInvalid Opcode = iota

	// Leaves.
	OpConst
	OpVarX
	OpVarY
	OpVarZ

	// Unary operations read A.
	OpNeg
	OpAbs
	OpSquare
	OpSqrt
	OpSin
	OpCos
	OpExp

	// Binary operations read A and B.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax

	opCount
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpConst:   "const",
	OpVarX:    "x",
	OpVarY:    "y",
	OpVarZ:    "z",
	OpNeg:     "neg",
	OpAbs:     "abs",
	OpSquare:  "square",
	OpSqrt:    "sqrt",
	OpSin:     "sin",
	OpCos:     "cos",
	OpExp:     "exp",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpMin:     "min",
	OpMax:     "max",
}

// String returns the lower-case mnemonic of the opcode.
func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Arity returns the number of operand clauses the opcode reads.
func (op Opcode) Arity() int {
	switch {
	case op >= OpConst && op <= OpVarZ:
		return 0
	case op >= OpNeg && op <= OpExp:
		return 1
	case op >= OpAdd && op <= OpMax:
		return 2
	default:
		return -1
	}
}

// IsChoice reports whether the opcode selects one of its operands (min/max).
// Only choice clauses can be pruned down to a single branch.
func (op Opcode) IsChoice() bool {
	return op == OpMin || op == OpMax
}

// Clause is one tape instruction. A and B are indices of earlier clauses;
// Value is only meaningful for OpConst.
type Clause struct {
	Op    Opcode
	A     uint32
	B     uint32
	Value float32
}

// Errors returned by Validate.
var (
	// ErrEmpty is returned for a tape without clauses.
	ErrEmpty = errors.New("tape: no clauses")

	// ErrInvalid is returned for a malformed tape.
	ErrInvalid = errors.New("tape: invalid clause")
)

// Tape is an immutable clause sequence. The zero value is an empty tape.
type Tape struct {
	clauses []Clause
}

// New returns a tape over a copy of clauses. It does not validate; call
// Validate before handing the tape to a renderer.
func New(clauses []Clause) *Tape {
	return &Tape{clauses: append([]Clause(nil), clauses...)}
}

// Len returns the number of clauses.
func (t *Tape) Len() int {
	if t == nil {
		return 0
	}
	return len(t.clauses)
}

// Clause returns the i-th clause.
func (t *Tape) Clause(i int) Clause {
	return t.clauses[i]
}

// Clauses returns the clause slice. Callers must not modify it.
func (t *Tape) Clauses() []Clause {
	return t.clauses
}

// Root returns the index of the output clause.
func (t *Tape) Root() uint32 {
	return uint32(len(t.clauses) - 1) //nolint:gosec // validated tapes are small
}

// Validate checks that the tape is non-empty, that every opcode is known and
// that every operand refers to an earlier clause.
func (t *Tape) Validate() error {
	if t.Len() == 0 {
		return ErrEmpty
	}
	for i, c := range t.clauses {
		n := c.Op.Arity()
		if n < 0 {
			return fmt.Errorf("%w: clause %d has opcode %v", ErrInvalid, i, c.Op)
		}
		if n >= 1 && int(c.A) >= i {
			return fmt.Errorf("%w: clause %d (%v) reads clause %d", ErrInvalid, i, c.Op, c.A)
		}
		if n == 2 && int(c.B) >= i {
			return fmt.Errorf("%w: clause %d (%v) reads clause %d", ErrInvalid, i, c.Op, c.B)
		}
		// Evaluators read both operand slots, so unused ones must stay zero.
		if (n < 2 && c.B != 0) || (n < 1 && c.A != 0) {
			return fmt.Errorf("%w: clause %d (%v) sets an unused operand", ErrInvalid, i, c.Op)
		}
	}
	return nil
}

// ChoiceCount returns the number of min/max clauses in the tape.
func (t *Tape) ChoiceCount() int {
	n := 0
	for _, c := range t.clauses {
		if c.Op.IsChoice() {
			n++
		}
	}
	return n
}
