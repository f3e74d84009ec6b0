package remote

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type instrumented struct {
	next     Backend
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Instrument wraps next so every query is counted and timed on reg.
func Instrument(next Backend, reg prometheus.Registerer) Backend {
	i := &instrumented{
		next: next,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubsite",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Remote store queries by table, operation and outcome.",
		}, []string{"table", "op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clubsite",
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Remote store query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
	}
	reg.MustRegister(i.requests, i.latency)
	return i
}

func (i *instrumented) Exec(ctx context.Context, q *Query) (Result, error) {
	start := time.Now()
	res, err := i.next.Exec(ctx, q)
	i.latency.WithLabelValues(q.table, q.op.String()).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.requests.WithLabelValues(q.table, q.op.String(), outcome).Inc()
	return res, err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
