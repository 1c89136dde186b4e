package tape

import "testing"

func TestBuilder_SharesClauses(t *testing.T) {
	b := NewBuilder()
	x, y := b.X(), b.Y()

	if b.X() != x {
		t.Error("second X() returned a new clause")
	}
	if b.Add(x, y) != b.Add(y, x) {
		t.Error("Add is not canonicalized")
	}
	if b.Min(x, y) != b.Min(y, x) {
		t.Error("Min is not canonicalized")
	}
	if b.Sub(x, y) == b.Sub(y, x) {
		t.Error("Sub operands were swapped")
	}
	if b.Const(1) == b.Const(2) {
		t.Error("different constants share a clause")
	}
}

func TestBuilder_BuildDropsUnreachable(t *testing.T) {
	b := NewBuilder()
	x := b.X()
	_ = b.Sin(b.Y()) // unreachable from the root
	root := b.Mul(x, b.Const(3))

	tp, err := b.Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if tp.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tp.Len())
	}
	r := tp.Clause(int(tp.Root()))
	if r.Op != OpMul {
		t.Fatalf("root op = %v, want mul", r.Op)
	}
	if tp.Clause(int(r.A)).Op != OpVarX || tp.Clause(int(r.B)).Op != OpConst {
		t.Errorf("root operands = %v, %v", tp.Clause(int(r.A)).Op, tp.Clause(int(r.B)).Op)
	}
}

func TestBuilder_Shapes(t *testing.T) {
	b := NewBuilder()
	tp, err := b.Build(b.Min(b.Sphere(-0.5, 0, 0, 0.25), b.Sphere(0.5, 0, 0, 0.25)))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if tp.ChoiceCount() != 1 {
		t.Errorf("ChoiceCount() = %d, want 1", tp.ChoiceCount())
	}

	box, err := NewBuilder().Build(NewBuilder().Box(0, 0, 0, 1, 1, 1))
	if err == nil {
		t.Errorf("Build() of a node from another builder = %v, want error", box)
	}

	b = NewBuilder()
	box, err = b.Build(b.Box(-1, -1, -1, 1, 1, 1))
	if err != nil {
		t.Fatalf("Build(Box) error = %v", err)
	}
	if box.ChoiceCount() != 5 {
		t.Errorf("Box ChoiceCount() = %d, want 5", box.ChoiceCount())
	}
}
