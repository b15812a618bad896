package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the accounts module.
type Metrics struct {
	AccountsCreated  *prometheus.CounterVec
	LoginAttempts    *prometheus.CounterVec
	RegisterDuration prometheus.Histogram
}

// New registers the accounts metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AccountsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vatfiler_accounts_created_total",
			Help: "Total number of accounts created, by role",
		}, []string{"role"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vatfiler_login_attempts_total",
			Help: "Login attempts by result (success, failure)",
		}, []string{"result"}),
		// bcrypt dominates; buckets start where a DefaultCost hash lands.
		RegisterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vatfiler_register_duration_seconds",
			Help:    "Duration of account registration including password hashing",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementAccountsCreated records a new account.
func (m *Metrics) IncrementAccountsCreated(role string) {
	m.AccountsCreated.WithLabelValues(role).Inc()
}

// RecordLogin records a login attempt outcome.
func (m *Metrics) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveRegister records the duration of a Register call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
