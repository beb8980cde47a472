package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for payment callback processing.
const (
	WebhookOutcomeProcessed  = "processed"
	WebhookOutcomeDuplicate  = "duplicate"
	WebhookOutcomeRejected   = "rejected"
	WebhookOutcomeBadRequest = "bad_request"
	WebhookOutcomeError      = "error"
)

// WebhookMetrics counts payment gateway notifications by outcome.
type WebhookMetrics struct {
	callbacks *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment gateway callbacks by source and outcome.",
	}, []string{"source", "outcome"})
	reg.MustRegister(callbacks)
	return &WebhookMetrics{callbacks: callbacks}
}

// IncCallback counts one callback with the given source and outcome.
func (m *WebhookMetrics) IncCallback(source, outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}
