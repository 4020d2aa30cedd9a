package kernel

import (
	"fmt"
	"math"
)

// Tolerance defines acceptable numeric drift between an accelerator kernel and
// the host computation of the same formula. Values compare as
// |got-want| <= Abs + Rel*|want|.
type Tolerance struct {
	Abs float64
	Rel float64
}

// Within reports whether got matches want. Matching infinities and NaNs agree.
func (t Tolerance) Within(got, want float64) bool {
	if got == want || (math.IsNaN(got) && math.IsNaN(want)) {
		return true
	}
	return math.Abs(got-want) <= t.Abs+t.Rel*math.Abs(want)
}

// KernelTolerances holds per-kernel single-precision parity targets.
var KernelTolerances = map[string]Tolerance{
	"add":                      {Abs: 1e-6, Rel: 1e-6},
	"sub":                      {Abs: 1e-6, Rel: 1e-6},
	"mul":                      {Abs: 1e-6, Rel: 1e-6},
	"div":                      {Abs: 1e-6, Rel: 1e-5},
	"pow":                      {Abs: 1e-5, Rel: 1e-4},
	"neg":                      {Abs: 0, Rel: 0},
	"exp":                      {Abs: 1e-6, Rel: 1e-5},
	"log":                      {Abs: 1e-6, Rel: 1e-5},
	"add_scalar":               {Abs: 1e-6, Rel: 1e-6},
	"mul_scalar":               {Abs: 1e-6, Rel: 1e-6},
	"pow_scalar":               {Abs: 1e-5, Rel: 1e-4},
	"rpow_scalar":              {Abs: 1e-5, Rel: 1e-4},
	"mul_bwd":                  {Abs: 1e-6, Rel: 1e-5},
	"div_bwd":                  {Abs: 1e-5, Rel: 1e-4},
	"div_from_const_bwd":       {Abs: 1e-5, Rel: 1e-4},
	"div_from_const_bwd_array": {Abs: 1e-5, Rel: 1e-4},
	"pow_var_var_fwd":          {Abs: 1e-5, Rel: 1e-4},
	"pow_var_var_bwd":          {Abs: 1e-4, Rel: 2e-4},
	"pow_var_const_fwd":        {Abs: 1e-5, Rel: 1e-4},
	"pow_var_const_fwd_array":  {Abs: 1e-5, Rel: 1e-4},
	"pow_var_const_bwd":        {Abs: 1e-4, Rel: 2e-4},
	"pow_var_const_bwd_array":  {Abs: 1e-4, Rel: 2e-4},
	"pow_const_var_fwd":        {Abs: 1e-5, Rel: 1e-4},
	"pow_const_var_fwd_array":  {Abs: 1e-5, Rel: 1e-4},
	"pow_const_var_bwd":        {Abs: 1e-4, Rel: 2e-4},
	"pow_const_var_bwd_array":  {Abs: 1e-4, Rel: 2e-4},
	"linear_bias":              {Abs: 1e-6, Rel: 1e-6},
	"gemm":                     {Abs: 1e-4, Rel: 1e-4},
}

// KernelTolerance returns the parity tolerance configured for name.
func KernelTolerance(name string) (Tolerance, error) {
	t, ok := KernelTolerances[name]
	if !ok {
		return Tolerance{}, fmt.Errorf("kernel: no tolerance configured for %q", name)
	}
	return t, nil
}
