package tape

// Node is a handle to a clause inside a Builder.
type Node uint32

// Builder assembles a Tape from arithmetic calls. Identical clauses are
// shared, so building the same subexpression twice costs one clause.
//
// Example:
//
//	b := tape.NewBuilder()
//	x, y, z := b.X(), b.Y(), b.Z()
//	r := b.Sqrt(b.Add(b.Add(b.Square(x), b.Square(y)), b.Square(z)))
//	t, err := b.Build(b.Sub(r, b.Const(0.5)))
//
// Builder is NOT safe for concurrent use.
type Builder struct {
	clauses []Clause
	index   map[Clause]Node
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[Clause]Node)}
}

func (b *Builder) push(c Clause) Node {
	if n, ok := b.index[c]; ok {
		return n
	}
	n := Node(len(b.clauses)) //nolint:gosec // clause counts stay far below 2^32
	b.clauses = append(b.clauses, c)
	b.index[c] = n
	return n
}

func (b *Builder) unary(op Opcode, a Node) Node {
	return b.push(Clause{Op: op, A: uint32(a)})
}

func (b *Builder) binary(op Opcode, a, c Node) Node {
	// Commutative operations get a canonical operand order so that
	// a+b and b+a share a clause.
	switch op {
	case OpAdd, OpMul, OpMin, OpMax:
		if a > c {
			a, c = c, a
		}
	}
	return b.push(Clause{Op: op, A: uint32(a), B: uint32(c)})
}

// X returns the x coordinate.
func (b *Builder) X() Node { return b.push(Clause{Op: OpVarX}) }

// Y returns the y coordinate.
func (b *Builder) Y() Node { return b.push(Clause{Op: OpVarY}) }

// Z returns the z coordinate.
func (b *Builder) Z() Node { return b.push(Clause{Op: OpVarZ}) }

// Const returns a constant.
func (b *Builder) Const(v float32) Node { return b.push(Clause{Op: OpConst, Value: v}) }

func (b *Builder) Neg(a Node) Node    { return b.unary(OpNeg, a) }
func (b *Builder) Abs(a Node) Node    { return b.unary(OpAbs, a) }
func (b *Builder) Square(a Node) Node { return b.unary(OpSquare, a) }
func (b *Builder) Sqrt(a Node) Node   { return b.unary(OpSqrt, a) }
func (b *Builder) Sin(a Node) Node    { return b.unary(OpSin, a) }
func (b *Builder) Cos(a Node) Node    { return b.unary(OpCos, a) }
func (b *Builder) Exp(a Node) Node    { return b.unary(OpExp, a) }

func (b *Builder) Add(a, c Node) Node { return b.binary(OpAdd, a, c) }
func (b *Builder) Sub(a, c Node) Node { return b.binary(OpSub, a, c) }
func (b *Builder) Mul(a, c Node) Node { return b.binary(OpMul, a, c) }
func (b *Builder) Div(a, c Node) Node { return b.binary(OpDiv, a, c) }
func (b *Builder) Min(a, c Node) Node { return b.binary(OpMin, a, c) }
func (b *Builder) Max(a, c Node) Node { return b.binary(OpMax, a, c) }

// Sphere returns the signed distance to a sphere of radius r centered at
// (cx, cy, cz).
func (b *Builder) Sphere(cx, cy, cz, r float32) Node {
	dx := b.Sub(b.X(), b.Const(cx))
	dy := b.Sub(b.Y(), b.Const(cy))
	dz := b.Sub(b.Z(), b.Const(cz))
	sum := b.Add(b.Add(b.Square(dx), b.Square(dy)), b.Square(dz))
	return b.Sub(b.Sqrt(sum), b.Const(r))
}

// Box returns a conservative distance bound for an axis-aligned box spanning
// [x0, x1]×[y0, y1]×[z0, z1].
func (b *Builder) Box(x0, y0, z0, x1, y1, z1 float32) Node {
	x, y, z := b.X(), b.Y(), b.Z()
	fx := b.Max(b.Sub(b.Const(x0), x), b.Sub(x, b.Const(x1)))
	fy := b.Max(b.Sub(b.Const(y0), y), b.Sub(y, b.Const(y1)))
	fz := b.Max(b.Sub(b.Const(z0), z), b.Sub(z, b.Const(z1)))
	return b.Max(b.Max(fx, fy), fz)
}

// Build returns a Tape whose root is the given node. Clauses unreachable
// from root are dropped and the remaining ones renumbered in order.
func (b *Builder) Build(root Node) (*Tape, error) {
	if int(root) >= len(b.clauses) {
		return nil, ErrEmpty
	}

	live := make([]bool, root+1)
	live[root] = true
	for i := int(root); i >= 0; i-- {
		if !live[i] {
			continue
		}
		c := b.clauses[i]
		switch c.Op.Arity() {
		case 2:
			live[c.B] = true
			fallthrough
		case 1:
			live[c.A] = true
		}
	}

	remap := make([]uint32, root+1)
	out := make([]Clause, 0, root+1)
	for i := 0; i <= int(root); i++ {
		if !live[i] {
			continue
		}
		c := b.clauses[i]
		switch c.Op.Arity() {
		case 2:
			c.B = remap[c.B]
			fallthrough
		case 1:
			c.A = remap[c.A]
		}
		remap[i] = uint32(len(out)) //nolint:gosec // bounded by clause count
		out = append(out, c)
	}

	t := &Tape{clauses: out}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
