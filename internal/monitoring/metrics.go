package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects HTTP and settlement metrics for the service.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec

	tradeCount    *prometheus.CounterVec
	tradeDuration *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"handler", "method", "status"},
		),
		requestCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		tradeCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Settlement attempts by side and outcome",
			},
			[]string{"side", "outcome"},
		),
		tradeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_settlement_duration_seconds",
				Help:      "Time spent settling a trade, transaction included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"side"},
		),
	}
}

// RecordTrade counts one settlement attempt and observes how long it took.
func (m *Metrics) RecordTrade(side, outcome string, duration time.Duration) {
	m.tradeCount.WithLabelValues(side, outcome).Inc()
	m.tradeDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// InstrumentHandler wraps an HTTP handler with request count and duration
// metrics under the given handler label.
func (m *Metrics) InstrumentHandler(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		status := strconv.Itoa(recorder.status)
		m.requestCount.WithLabelValues(name, r.Method, status).Inc()
		m.requestDuration.WithLabelValues(name, r.Method, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
