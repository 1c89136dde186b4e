// Package kernel turns a tape into a hard-compiled brute-force compute shader.
//
// Generate emits WGSL with the whole expression inlined into a single shape
// function; Compile lowers it to SPIR-V with naga. One invocation handles one
// pixel: it evaluates the expression at the pixel center (2-D) or scans the
// pixel's column from the top (3-D) and writes the height, exactly like the
// CPU brute-force renderer.
//
// Bindings:
//
//	@group(0) @binding(0)  Params uniform (see Uniforms)
//	@group(0) @binding(1)  storage buffer of size*size u32 heights
package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/implicit/internal/cascade"
	"github.com/gogpu/implicit/tape"
)

// WorkgroupSize is the edge length of the square compute workgroup.
const WorkgroupSize = 8

// UniformSize is the byte size of the Params uniform block.
const UniformSize = 80

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrNonFinite is returned for tapes holding NaN or infinite constants,
// which WGSL cannot spell as literals.
var ErrNonFinite = errors.New("kernel: non-finite constant")

// Kernel is a generated and compiled shader.
type Kernel struct {
	// WGSL is the generated shader source.
	WGSL string

	// SPIRV is the compiled module as little-endian words.
	SPIRV []uint32

	// Dim is the dimension the kernel renders (2 or 3).
	Dim int
}

// Build generates and compiles the kernel for t.
func Build(t *tape.Tape, dim int) (*Kernel, error) {
	src, err := Generate(t, dim)
	if err != nil {
		return nil, err
	}
	words, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return &Kernel{WGSL: src, SPIRV: words, Dim: dim}, nil
}

// Generate returns the WGSL source of the brute-force kernel for t.
func Generate(t *tape.Tape, dim int) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("kernel: %w", err)
	}
	if dim != 2 && dim != 3 {
		return "", fmt.Errorf("kernel: dimension %d is not 2 or 3", dim)
	}

	var b strings.Builder
	b.WriteString(header)

	b.WriteString("fn shape(x: f32, y: f32, z: f32) -> f32 {\n")
	for i, c := range t.Clauses() {
		expr, err := expression(c)
		if err != nil {
			return "", fmt.Errorf("clause %d: %w", i, err)
		}
		fmt.Fprintf(&b, "    let v%d = %s;\n", i, expr)
	}
	fmt.Fprintf(&b, "    return v%d;\n}\n\n", t.Root())

	if dim == 2 {
		b.WriteString(main2D)
	} else {
		b.WriteString(main3D)
	}
	return b.String(), nil
}

// expression returns the WGSL right-hand side of one clause.
func expression(c tape.Clause) (string, error) {
	a := fmt.Sprintf("v%d", c.A)
	bb := fmt.Sprintf("v%d", c.B)
	switch c.Op {
	case tape.OpConst:
		return literal(c.Value)
	case tape.OpVarX:
		return "x", nil
	case tape.OpVarY:
		return "y", nil
	case tape.OpVarZ:
		return "z", nil
	case tape.OpNeg:
		return "-" + a, nil
	case tape.OpAbs:
		return "abs(" + a + ")", nil
	case tape.OpSquare:
		return a + " * " + a, nil
	case tape.OpSqrt:
		return "sqrt(" + a + ")", nil
	case tape.OpSin:
		return "sin(" + a + ")", nil
	case tape.OpCos:
		return "cos(" + a + ")", nil
	case tape.OpExp:
		return "exp(" + a + ")", nil
	case tape.OpAdd:
		return a + " + " + bb, nil
	case tape.OpSub:
		return a + " - " + bb, nil
	case tape.OpMul:
		return a + " * " + bb, nil
	case tape.OpDiv:
		return a + " / " + bb, nil
	case tape.OpMin:
		return "min(" + a + ", " + bb + ")", nil
	case tape.OpMax:
		return "max(" + a + ", " + bb + ")", nil
	default:
		return "", fmt.Errorf("kernel: opcode %v", c.Op)
	}
}

// literal formats v as a typed f32 literal.
func literal(v float32) (string, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	s := fmt.Sprintf("%g", v)
	if v < 0 {
		return "(" + s + "f)", nil
	}
	return s + "f", nil
}

// Compile lowers WGSL to SPIR-V words.
func Compile(wgsl string) ([]uint32, error) {
	raw, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("kernel: compile: %w", err)
	}
	if len(raw) < 4 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("kernel: compile: %d bytes is not a SPIR-V module", len(raw))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("kernel: compile: bad SPIR-V magic 0x%08X", words[0])
	}
	return words, nil
}

// Uniforms encodes the Params block for an image of size pixels seen
// through v. Matrix rows follow the view's row-major layout.
func Uniforms(size uint32, v cascade.View) []byte {
	buf := make([]byte, UniformSize)
	for i, m := range v.Mat {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(m))
	}
	binary.LittleEndian.PutUint32(buf[64:], size)
	return buf
}

// Dispatch returns the workgroup counts covering an image of size pixels.
func Dispatch(size uint32) (x, y, z uint32) {
	n := (size + WorkgroupSize - 1) / WorkgroupSize
	return n, n, 1
}

const header = `struct Params {
    row0: vec4<f32>,
    row1: vec4<f32>,
    row2: vec4<f32>,
    row3: vec4<f32>,
    size: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> heights: array<u32>;

fn value_at(p: vec4<f32>) -> f32 {
    let w = dot(params.row3, p);
    return shape(dot(params.row0, p) / w, dot(params.row1, p) / w, dot(params.row2, p) / w);
}

`

const main2D = `@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let n = params.size;
    if (id.x >= n || id.y >= n) {
        return;
    }
    let s = 2.0 / f32(n);
    let x = (f32(id.x) + 0.5) * s - 1.0;
    let y = 1.0 - (f32(id.y) + 0.5) * s;
    var h = 0u;
    if (value_at(vec4<f32>(x, y, 0.0, 1.0)) < 0.0) {
        h = 1u;
    }
    heights[id.y * n + id.x] = h;
}
`

const main3D = `@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let n = params.size;
    if (id.x >= n || id.y >= n) {
        return;
    }
    let s = 2.0 / f32(n);
    let x = (f32(id.x) + 0.5) * s - 1.0;
    let y = 1.0 - (f32(id.y) + 0.5) * s;
    var h = 0u;
    var z = i32(n) - 1;
    loop {
        if (z < 0) {
            break;
        }
        let fz = (f32(z) + 0.5) * s - 1.0;
        if (value_at(vec4<f32>(x, y, fz, 1.0)) < 0.0) {
            h = u32(z) + 1u;
            break;
        }
        z = z - 1;
    }
    heights[id.y * n + id.x] = h;
}
`
