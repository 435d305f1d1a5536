package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "points",
		Name:      "credited_total",
		Help:      "Points credited by reward, labelled by reason.",
	}, []string{"reason"})

	PointsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "points",
		Name:      "spent_total",
		Help:      "Points debited by spend, labelled by memo.",
	}, []string{"memo"})

	TrustRecalculations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "trust",
		Name:      "recalculations_total",
		Help:      "Trust score recalculations.",
	})

	TierTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "tier",
		Name:      "transitions_total",
		Help:      "Committed tier transitions, labelled by target tier.",
	}, []string{"tier"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Name:      "side_effect_failures_total",
		Help:      "Best-effort side effects that degraded, labelled by operation.",
	}, []string{"op"})

	JobSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "jobs",
		Name:      "steps_total",
		Help:      "Job lifecycle steps, labelled by step and result.",
	}, []string{"step", "result"})

	TasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustmarket",
		Subsystem: "tasks",
		Name:      "enqueued_total",
		Help:      "Background tasks handed to the queue, labelled by type and result.",
	}, []string{"type", "result"})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trustmarket",
		Subsystem: "tasks",
		Name:      "handle_duration_seconds",
		Help:      "Background task handler latency, labelled by type and result.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type", "result"})

	ProofIssueDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustmarket",
		Subsystem: "proof",
		Name:      "issue_duration_seconds",
		Help:      "Latency of proof generation.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Result labels a step outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
