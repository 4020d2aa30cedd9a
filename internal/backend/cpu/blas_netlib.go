//go:build netlib

package cpu

// Registers the netlib BLAS implementation (system OpenBLAS or Accelerate) for
// Gemm when built with -tags netlib.

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas32.Use(netlib.Implementation{})
	blas64.Use(netlib.Implementation{})
	log.Debug().Msg("cpu: netlib BLAS enabled")
}
