package kernel

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// WorkgroupSize is the number of invocations per WGSL workgroup.
const WorkgroupSize = 256

// WGSL lowers k to a compute shader operating on f32 storage buffers.
//
// Bindings follow parameter order for arrays (inputs read-only, outputs
// read_write), then one uniform Params struct holding the element count n followed
// by every scalar and index parameter in declaration order.
func WGSL(k *Kernel) string {
	var b strings.Builder

	b.WriteString("struct Params {\n    n: u32,\n")
	for _, p := range k.Params {
		switch p.Kind {
		case Scalar:
			fmt.Fprintf(&b, "    %s: f32,\n", p.Name)
		case Index:
			fmt.Fprintf(&b, "    %s: u32,\n", p.Name)
		}
	}
	b.WriteString("};\n\n")

	binding := 0
	for _, p := range k.Params {
		switch p.Kind {
		case ArrayIn:
			fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read> %s: array<f32>;\n", binding, p.Name)
			binding++
		case ArrayOut:
			fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read_write> %s: array<f32>;\n", binding, p.Name)
			binding++
		}
	}
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> params: Params;\n\n", binding)

	fmt.Fprintf(&b, "@compute @workgroup_size(%d)\n", WorkgroupSize)
	b.WriteString("fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {\n")
	b.WriteString("    let i = global_id.x;\n")
	b.WriteString("    if (i >= params.n) {\n        return;\n    }\n")
	for _, s := range k.Body {
		b.WriteString("    ")
		if s.Output {
			fmt.Fprintf(&b, "%s[i] = ", s.Name)
		} else {
			fmt.Fprintf(&b, "let %s = ", s.Name)
		}
		s.Expr.wgsl(k, &b)
		b.WriteString(";\n")
	}
	b.WriteString("}\n")

	return b.String()
}

// ArrayBindings returns the number of storage buffer bindings WGSL(k) declares.
// The uniform buffer is bound right after them.
func ArrayBindings(k *Kernel) int {
	n := 0
	for _, p := range k.Params {
		if p.Kind == ArrayIn || p.Kind == ArrayOut {
			n++
		}
	}
	return n
}

// PackParams encodes the uniform Params struct for WGSL(k): n, then scalar and
// index arguments in order, padded to a 16-byte boundary.
func PackParams(k *Kernel, n int, args []Arg) []byte {
	words := 1
	for _, a := range args {
		if a.Kind != ArrayIn {
			words++
		}
	}
	size := (words*4 + 15) &^ 15
	buf := make([]byte, size)

	//nolint:gosec // G115: element counts are bounded by buffer sizes
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	off := 4
	for _, a := range args {
		switch a.Kind {
		case Scalar:
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(a.Scalar)))
			off += 4
		case Index:
			//nolint:gosec // G115: CheckArgs guarantees a positive index
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(a.Int))
			off += 4
		}
	}
	return buf
}
