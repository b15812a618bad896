package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration flow.
type Metrics struct {
	FlowsStarted     prometheus.Counter
	FlowEvents       *prometheus.CounterVec
	Registrations    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
}

// New registers the flow metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FlowsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "vatfiler_flows_started_total",
			Help: "Registration flows created",
		}),
		FlowEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vatfiler_flow_events_total",
			Help: "Flow events by kind and result (applied, rejected, invalid)",
		}, []string{"kind", "result"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vatfiler_registrations_total",
			Help: "Accounts created through the flow, by mode",
		}, []string{"mode"}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vatfiler_dispatch_duration_seconds",
			Help:    "Duration of Dispatch (load, apply, save, register)",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementFlowsStarted records a new flow.
func (m *Metrics) IncrementFlowsStarted() {
	m.FlowsStarted.Inc()
}

// RecordEvent records the outcome of one event.
func (m *Metrics) RecordEvent(kind, result string) {
	m.FlowEvents.WithLabelValues(kind, result).Inc()
}

// IncrementRegistrations records a created account.
func (m *Metrics) IncrementRegistrations(mode string) {
	m.Registrations.WithLabelValues(mode).Inc()
}

// ObserveDispatch records the duration of a Dispatch call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDispatch(start time.Time) {
	m.DispatchDuration.Observe(time.Since(start).Seconds())
}
