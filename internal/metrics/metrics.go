package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Deliveries counts ledger outcomes per channel.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_deliveries_total",
			Help: "Per-recipient delivery outcomes",
		},
		[]string{"channel", "status"}, // success or failed
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_provider_retries_total",
			Help: "Provider calls retried after a rate-limit response",
		},
		[]string{"channel"},
	)

	// DispatchDuration tracks end-to-end dispatch latency
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "campaign_dispatch_duration_seconds",
			Help: "Duration of campaign dispatches in seconds",
			Buckets: []float64{
				0.1,  // 100ms
				0.5,  // 500ms
				1.0,  // 1s
				5.0,  // 5s
				15.0, // 15s
				60.0, // 1m
				300,  // 5m
				900,  // 15m
			},
		},
		[]string{"channel"},
	)
)

func RecordDelivery(channel, status string) {
	Deliveries.WithLabelValues(channel, status).Inc()
}

func RecordRetry(channel string) {
	ProviderRetries.WithLabelValues(channel).Inc()
}

// RecordDispatchDuration records the duration of one dispatch in seconds
func RecordDispatchDuration(channel string, seconds float64) {
	DispatchDuration.WithLabelValues(channel).Observe(seconds)
}
