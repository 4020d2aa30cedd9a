package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradcheck_cases_total",
		Help: "Gradient check cases run, by backend and result",
	}, []string{"backend", "result"})

	caseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradcheck_case_seconds",
		Help:    "Wall time of one gradient check case",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"backend"})
)

func recordResult(r caseResult) {
	result := "pass"
	switch {
	case r.err != nil:
		result = "error"
	case !r.passed:
		result = "fail"
	}
	casesTotal.WithLabelValues(r.backend, result).Inc()
	caseSeconds.WithLabelValues(r.backend).Observe(r.elapsed.Seconds())
}
