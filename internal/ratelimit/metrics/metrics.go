package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Checks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vatfiler_ratelimit_checks_total",
			Help: "Rate limit checks by endpoint class and outcome (allowed, rejected)",
		}, []string{"class", "outcome"}),
	}
}

func (m *Metrics) RecordCheck(class string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Checks.WithLabelValues(class, outcome).Inc()
}
