package tape

import (
	"errors"
	"testing"
)

func TestOpcode(t *testing.T) {
	tests := []struct {
		op     Opcode
		name   string
		arity  int
		choice bool
	}{
		{OpConst, "const", 0, false},
		{OpVarZ, "z", 0, false},
		{OpSqrt, "sqrt", 1, false},
		{OpExp, "exp", 1, false},
		{OpDiv, "div", 2, false},
		{OpMin, "min", 2, true},
		{OpMax, "max", 2, true},
		{OpInvalid, "invalid", -1, false},
		{Opcode(200), "Opcode(200)", -1, false},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.op.Arity(); got != tt.arity {
			t.Errorf("%v.Arity() = %d, want %d", tt.op, got, tt.arity)
		}
		if got := tt.op.IsChoice(); got != tt.choice {
			t.Errorf("%v.IsChoice() = %v, want %v", tt.op, got, tt.choice)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		clauses []Clause
		want    error
	}{
		{"empty", nil, ErrEmpty},
		{"single const", []Clause{{Op: OpConst, Value: 1}}, nil},
		{"valid binary", []Clause{{Op: OpVarX}, {Op: OpConst, Value: 2}, {Op: OpMul, A: 0, B: 1}}, nil},
		{"unknown opcode", []Clause{{Op: opCount}}, ErrInvalid},
		{"invalid opcode", []Clause{{Op: OpInvalid}}, ErrInvalid},
		{"self reference", []Clause{{Op: OpVarX}, {Op: OpNeg, A: 1}}, ErrInvalid},
		{"forward reference", []Clause{{Op: OpVarX}, {Op: OpAdd, A: 0, B: 2}, {Op: OpVarY}}, ErrInvalid},
		{"unary with operand b", []Clause{{Op: OpVarX}, {Op: OpVarY}, {Op: OpAbs, A: 0, B: 1}}, ErrInvalid},
		{"leaf with operand", []Clause{{Op: OpVarX}, {Op: OpVarY}, {Op: OpConst, A: 1}}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.clauses).Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTape_Accessors(t *testing.T) {
	clauses := []Clause{{Op: OpVarX}, {Op: OpVarY}, {Op: OpMin, A: 0, B: 1}, {Op: OpMax, A: 2, B: 0}}
	tp := New(clauses)
	clauses[0].Op = OpVarZ // New copies its input

	if tp.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tp.Len())
	}
	if tp.Root() != 3 {
		t.Errorf("Root() = %d, want 3", tp.Root())
	}
	if tp.Clause(0).Op != OpVarX {
		t.Errorf("Clause(0).Op = %v, want x", tp.Clause(0).Op)
	}
	if tp.ChoiceCount() != 2 {
		t.Errorf("ChoiceCount() = %d, want 2", tp.ChoiceCount())
	}

	var nilTape *Tape
	if nilTape.Len() != 0 {
		t.Errorf("nil Len() = %d, want 0", nilTape.Len())
	}
}
