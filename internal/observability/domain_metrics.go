package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)

var (
	connectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_connect_total",
			Help: "Connection attempts by dialect and outcome.",
		},
		[]string{"dialect", "outcome"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_translate_total",
			Help: "Natural-language to SQL translations by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	translateLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_translate_latency_ms",
			Help:    "Language model round-trip latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		},
	)
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_query_total",
			Help: "Executed queries by outcome (ok, empty, error).",
		},
		[]string{"outcome"},
	)
	queryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_query_rows",
			Help:    "Rows materialized per successful query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	sessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdb_session_connected",
			Help: "1 while the session holds a live database handle.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		connectAttemptsTotal,
		translationsTotal,
		translateLatencyMs,
		queriesTotal,
		queryRows,
		sessionConnected,
	)
}

func ObserveConnect(dialect string, err error) {
	connectAttemptsTotal.WithLabelValues(dialect, outcome(err)).Inc()
}

func ObserveTranslation(provider string, elapsed time.Duration, err error) {
	translationsTotal.WithLabelValues(provider, outcome(err)).Inc()
	if err == nil {
		translateLatencyMs.Observe(float64(elapsed.Milliseconds()))
	}
}

func ObserveQuery(rows int, err error) {
	switch {
	case err != nil:
		queriesTotal.WithLabelValues(OutcomeError).Inc()
	case rows == 0:
		queriesTotal.WithLabelValues(OutcomeEmpty).Inc()
		queryRows.Observe(0)
	default:
		queriesTotal.WithLabelValues(OutcomeOK).Inc()
		queryRows.Observe(float64(rows))
	}
}

func SetSessionConnected(connected bool) {
	if connected {
		sessionConnected.Set(1)
		return
	}
	sessionConnected.Set(0)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
