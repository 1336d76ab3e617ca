package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
)

// DispatchMetrics counts lifecycle, bid, settlement and geo outcomes.
type DispatchMetrics struct {
	bidDecisions *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	invoices     *prometheus.CounterVec
	geoRequests  *prometheus.CounterVec
	scorerEmpty  *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on reg. A nil registerer
// yields a no-op recorder.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	m := &DispatchMetrics{
		bidDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bid_decisions_total",
			Help:      "Bid submissions and decisions by outcome.",
		}, []string{"action", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_transitions_total",
			Help:      "Load status transitions by target status and result.",
		}, []string{"to", "result"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_issuance_total",
			Help:      "Invoice issuance attempts by result.",
		}, []string{"result"}),
		geoRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_requests_total",
			Help:      "Geo provider calls by operation and result.",
		}, []string{"op", "result"}),
		scorerEmpty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_empty_results_total",
			Help:      "Scorer runs that produced no recommendations, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.bidDecisions, m.transitions, m.invoices, m.geoRequests, m.scorerEmpty)
	return m
}

// Bid records a bid action (submit, accept, reject) outcome.
func (m *DispatchMetrics) Bid(action, result string) {
	if m == nil || m.bidDecisions == nil {
		return
	}
	m.bidDecisions.WithLabelValues(action, result).Inc()
}

// Transition records a status transition attempt.
func (m *DispatchMetrics) Transition(to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(to, result).Inc()
}

// Invoice records an issuance attempt.
func (m *DispatchMetrics) Invoice(result string) {
	if m == nil || m.invoices == nil {
		return
	}
	m.invoices.WithLabelValues(result).Inc()
}

// Geo records a geo provider call.
func (m *DispatchMetrics) Geo(op string, err error) {
	if m == nil || m.geoRequests == nil {
		return
	}
	m.geoRequests.WithLabelValues(op, Result(err)).Inc()
}

// ScorerEmpty records an empty recommendation set.
func (m *DispatchMetrics) ScorerEmpty(reason string) {
	if m == nil || m.scorerEmpty == nil {
		return
	}
	m.scorerEmpty.WithLabelValues(reason).Inc()
}

// Result maps an error to the "ok"/"error" label, or to the typed error code.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}
