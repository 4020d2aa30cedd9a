package kernel

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/parallel"
)

type slotKind int

const (
	slotArray slotKind = iota
	slotScalar
	slotInt
	slotLocal
)

type slot struct {
	kind slotKind
	idx  int
}

type frame struct {
	arrays  [][]float64
	scalars []float64
	ints    []int
	locals  []float64
}

type step struct {
	output bool
	idx    int
	eval   evalFunc
}

type program struct {
	slots        map[string]slot
	nArrays      int
	nScalars     int
	nInts        int
	nLocals      int
	inputArrays  []int
	outputArrays []int
	gathered     map[int]bool
	atPairs      [][2]int // (array slot, int slot) pairs read through At
}

func (p *program) slot(name string) slot {
	return p.slots[name]
}

// Program is a kernel compiled to host closures. It evaluates in float64 with
// Go's math package, so domain errors yield Inf/NaN exactly as on the CPU backend.
type Program struct {
	kernel   *Kernel
	prog     program
	steps    []step
	parallel parallel.Config
}

// Compile prepares k for host evaluation.
func Compile(k *Kernel) *Program {
	p := program{slots: make(map[string]slot), gathered: make(map[int]bool)}
	gathered := k.Gathered()
	for _, param := range k.Params {
		switch param.Kind {
		case ArrayIn:
			p.slots[param.Name] = slot{kind: slotArray, idx: p.nArrays}
			if gathered[param.Name] {
				p.gathered[p.nArrays] = true
			}
			p.inputArrays = append(p.inputArrays, p.nArrays)
			p.nArrays++
		case ArrayOut:
			p.slots[param.Name] = slot{kind: slotArray, idx: p.nArrays}
			p.outputArrays = append(p.outputArrays, p.nArrays)
			p.nArrays++
		case Scalar:
			p.slots[param.Name] = slot{kind: slotScalar, idx: p.nScalars}
			p.nScalars++
		case Index:
			p.slots[param.Name] = slot{kind: slotInt, idx: p.nInts}
			p.nInts++
		}
	}

	prog := &Program{kernel: k, parallel: parallel.DefaultConfig()}
	for _, s := range k.Body {
		// Compile before declaring the local so the expression cannot see itself.
		eval := s.Expr.compile(&p)
		if s.Output {
			prog.steps = append(prog.steps, step{output: true, idx: p.slots[s.Name].idx, eval: eval})
			continue
		}
		p.slots[s.Name] = slot{kind: slotLocal, idx: p.nLocals}
		prog.steps = append(prog.steps, step{idx: p.nLocals, eval: eval})
		p.nLocals++
	}
	prog.prog = p
	return prog
}

// SetParallel overrides how Run splits the launch range across goroutines.
func (p *Program) SetParallel(cfg parallel.Config) {
	p.parallel = cfg
}

// Kernel returns the compiled kernel.
func (p *Program) Kernel() *Kernel {
	return p.kernel
}

// Run evaluates n elements. Every array argument must hold exactly n elements,
// except arrays read only through At.
// It returns one slice per output, in declaration order.
func (p *Program) Run(n int, args []Arg) ([][]float64, error) {
	if err := CheckArgs(p.kernel, args); err != nil {
		return nil, err
	}

	f := &frame{
		arrays:  make([][]float64, p.prog.nArrays),
		scalars: make([]float64, 0, p.prog.nScalars),
		ints:    make([]int, 0, p.prog.nInts),
		locals:  make([]float64, p.prog.nLocals),
	}

	nextArray := 0
	for _, a := range args {
		switch a.Kind {
		case ArrayIn:
			slotIdx := p.prog.inputArrays[nextArray]
			if !p.prog.gathered[slotIdx] && a.Tensor.NumElements() != n {
				return nil, fmt.Errorf("kernel %s: %w: array has %d elements, launch size is %d",
					p.kernel.Name, ErrArgs, a.Tensor.NumElements(), n)
			}
			f.arrays[slotIdx] = a.Tensor.Float64s()
			nextArray++
		case Scalar:
			f.scalars = append(f.scalars, a.Scalar)
		case Index:
			f.ints = append(f.ints, a.Int)
		}
	}

	for _, pair := range p.prog.atPairs {
		if len(f.arrays[pair[0]]) < f.ints[pair[1]] {
			return nil, fmt.Errorf("kernel %s: %w: gathered array has %d elements, modulus is %d",
				p.kernel.Name, ErrArgs, len(f.arrays[pair[0]]), f.ints[pair[1]])
		}
	}

	outs := make([][]float64, len(p.prog.outputArrays))
	for j, idx := range p.prog.outputArrays {
		outs[j] = make([]float64, n)
		f.arrays[idx] = outs[j]
	}

	parallel.Range(n, p.parallel, func(lo, hi int) {
		chunk := *f
		chunk.locals = make([]float64, len(f.locals))
		for i := lo; i < hi; i++ {
			for _, s := range p.steps {
				v := s.eval(&chunk, i)
				if s.output {
					chunk.arrays[s.idx][i] = v
				} else {
					chunk.locals[s.idx] = v
				}
			}
		}
	})
	return outs, nil
}
