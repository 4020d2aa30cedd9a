package accel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	kernelLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradfn_accel_kernel_launches_total",
		Help: "Total number of elementwise kernel launches by kernel name",
	}, []string{"kernel"})

	kernelCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradfn_accel_kernel_cache_hits_total",
		Help: "Total number of launches served by an already compiled kernel",
	})

	kernelCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradfn_accel_kernel_cache_misses_total",
		Help: "Total number of kernel compilations",
	})

	gemmCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradfn_accel_gemm_total",
		Help: "Total number of matrix products queued",
	})

	streamPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gradfn_accel_stream_pending",
		Help: "Number of queued stream jobs not yet completed",
	})

	launchSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradfn_accel_launch_seconds",
		Help:    "Time spent executing stream jobs on the driver",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"kernel"})
)
