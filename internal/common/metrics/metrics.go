// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FunnelOperationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_operations_completed_total",
			Help: "Total number of funnel operations completed",
		},
		[]string{"operation"},
	)

	FunnelOperationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_operations_failed_total",
			Help: "Total number of funnel operations failed",
		},
		[]string{"operation", "error_code"},
	)

	FunnelOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_operation_duration_seconds",
			Help: "Duration of funnel operations in seconds",
		},
		[]string{"operation"},
	)

	AnalysisSpend = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_spend_dollars_total",
			Help: "Total dollars spent on successful paid analysis",
		},
		[]string{"depth"},
	)

	ScreeningRecommended = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screening_recommended_count",
			Help: "Size of the recommended subset after the last screening pass",
		},
		[]string{"mode"},
	)
)
