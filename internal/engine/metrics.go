package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняло вычисление скоупа (включая источник)
	DecisionDuration *prometheus.HistogramVec

	// Traffic: общее кол-во решений по режимам и исходам
	TotalDecisions *prometheus.CounterVec

	// Errors: классификация отказов по причинам
	DenyTotal *prometheus.CounterVec

	// Сбросы кэша документа по сигналу публикации
	CacheInvalidations prometheus.Counter

	// Saturation: состояние Circuit Breaker чтения из БД (0 - ок, 1 - выбило)
	BreakerState prometheus.Gauge

	// Audit: вытеснения из буфера журнала (backpressure)
	AuditDropped prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		DecisionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoped_decision_duration_seconds",
			Help:    "Histogram of scope decision latencies.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode", "decision"}),

		TotalDecisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "scoped_decisions_total",
			Help: "Total number of scope decisions.",
		}, []string{"mode", "decision"}),

		DenyTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "scoped_denials_total",
			Help: "Total number of denied decisions by reason.",
		}, []string{"reason"}),

		CacheInvalidations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scoped_policy_cache_invalidations_total",
			Help: "Policy document cache resets triggered by publish signals.",
		}),

		BreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scoped_policy_store_breaker_state",
			Help: "Circuit breaker state of the policy store reader (0=closed, 1=open).",
		}),

		AuditDropped: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "scoped_audit_dropped_entries",
			Help: "Audit entries evicted from the buffer under pressure.",
		}),
	}
}
