package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for assistant turns.
type ChatMetrics struct {
	turnsTotal        *prometheus.CounterVec
	bookingsTotal     *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	turnLatency       *prometheus.HistogramVec
	llmFallbacksTotal prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total assistant turns by resolved intent",
		}, []string{"intent"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "bookings_total",
			Help:      "Total appointment commits",
		}, []string{"status"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "validation_rejections_total",
			Help:      "Total slot validation rejections",
		}, []string{"kind"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one assistant turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		llmFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "llm_fallbacks_total",
			Help:      "Turns answered with the canned fallback reply",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.rejectionsTotal, m.turnLatency, m.llmFallbacksTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *ChatMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObserveRejection(kind string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(kind).Inc()
}

func (m *ChatMetrics) ObserveLLMFallback() {
	if m == nil {
		return
	}
	m.llmFallbacksTotal.Inc()
}
