package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	conversationTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlsql_conversation_turns_total",
			Help: "Total number of conversation turns by outcome.",
		},
		[]string{"outcome"},
	)
	clarificationMergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nlsql_clarification_merges_total",
			Help: "Total number of clarification answers merged into a pending question.",
		},
	)
	inferenceLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlsql_inference_latency_seconds",
			Help:    "Inference service round-trip latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
		},
		[]string{"status"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlsql_query_executions_total",
			Help: "Total number of generated SQL executions by status.",
		},
		[]string{"status"},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nlsql_query_execution_seconds",
			Help:    "Relational store execution latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	harnessResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlsql_harness_results_total",
			Help: "Total number of batch test results by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		conversationTurnsTotal,
		clarificationMergesTotal,
		inferenceLatencySeconds,
		queryExecutionsTotal,
		queryExecutionSeconds,
		harnessResultsTotal,
	)
}

func ObserveTurn(outcome string) {
	conversationTurnsTotal.WithLabelValues(outcome).Inc()
}

func IncrementClarificationMerge() {
	clarificationMergesTotal.Inc()
}

func ObserveInference(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	inferenceLatencySeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queryExecutionsTotal.WithLabelValues(status).Inc()
	queryExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveHarnessResult(status string) {
	harnessResultsTotal.WithLabelValues(status).Inc()
}
