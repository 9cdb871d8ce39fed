package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanches",
			Name:      "queue_processed_total",
			Help:      "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
	ProcessingSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lanches",
			Name:      "queue_processing_seconds",
			Help:      "Task handler latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers the queue collectors, tolerating duplicates.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ProcessedTotal, ProcessingSeconds} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// MetricsMiddleware records outcome and latency for every task.
func MetricsMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		ProcessingSeconds.WithLabelValues(t.Type()).Observe(time.Since(start).Seconds())
		status := "ok"
		switch {
		case errors.Is(err, asynq.SkipRetry):
			status = "dropped"
		case err != nil:
			status = "retry"
		}
		ProcessedTotal.WithLabelValues(t.Type(), status).Inc()
		return err
	})
}
