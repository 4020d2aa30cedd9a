package kernel

import (
	"fmt"

	"github.com/born-ml/gradfn/internal/tensor"
)

// Arg is a launch argument bound to one input parameter.
type Arg struct {
	Kind   ParamKind
	Tensor *tensor.RawTensor
	Scalar float64
	Int    int
}

// ArrayArg binds an input array.
func ArrayArg(t *tensor.RawTensor) Arg { return Arg{Kind: ArrayIn, Tensor: t} }

// FloatArg binds a scalar float.
func FloatArg(v float64) Arg { return Arg{Kind: Scalar, Scalar: v} }

// IntArg binds an integer.
func IntArg(v int) Arg { return Arg{Kind: Index, Int: v} }

// CheckArgs verifies that args match the kernel's inputs in number and kind.
func CheckArgs(k *Kernel, args []Arg) error {
	in := k.Inputs()
	if len(in) != len(args) {
		return fmt.Errorf("kernel %s: %w: want %d arguments, got %d", k.Name, ErrArgs, len(in), len(args))
	}
	for i, p := range in {
		if args[i].Kind != p.Kind {
			return fmt.Errorf("kernel %s: %w: argument %d (%s) is %s, want %s",
				k.Name, ErrArgs, i, p.Name, args[i].Kind, p.Kind)
		}
		if p.Kind == ArrayIn && args[i].Tensor == nil {
			return fmt.Errorf("kernel %s: %w: argument %d (%s) is nil", k.Name, ErrArgs, i, p.Name)
		}
		if p.Kind == Index && args[i].Int <= 0 {
			return fmt.Errorf("kernel %s: %w: index argument %s must be positive, got %d",
				k.Name, ErrArgs, p.Name, args[i].Int)
		}
	}
	return nil
}
