package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionMetrics records authentication activity.
type SessionMetrics interface {
	// RecordLogin counts a login attempt by result ("success", "invalid",
	// "error", "rate_limited").
	RecordLogin(result string)

	// RecordLogout counts a completed logout.
	RecordLogout()

	// SetAuthenticated reports whether a session is currently held.
	SetAuthenticated(authenticated bool)
}

type sessionMetrics struct {
	logins        *prometheus.CounterVec
	logouts       prometheus.Counter
	authenticated prometheus.Gauge
}

// NewSessionMetrics creates Prometheus-backed session metrics, or a no-op
// implementation if metrics are disabled.
func NewSessionMetrics() SessionMetrics {
	return NewSessionMetricsWith(GetRegistry())
}

// NewSessionMetricsWith registers the session metrics on reg. A nil registry
// yields the no-op implementation.
func NewSessionMetricsWith(reg *prometheus.Registry) SessionMetrics {
	if reg == nil {
		return noopSessionMetrics{}
	}

	return &sessionMetrics{
		logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmshelf_session_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		logouts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "rmshelf_session_logouts_total",
				Help: "Completed logouts",
			},
		),
		authenticated: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rmshelf_session_authenticated",
				Help: "1 when a session is held, 0 otherwise",
			},
		),
	}
}

func (m *sessionMetrics) RecordLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

func (m *sessionMetrics) RecordLogout() {
	m.logouts.Inc()
}

func (m *sessionMetrics) SetAuthenticated(authenticated bool) {
	if authenticated {
		m.authenticated.Set(1)
		return
	}
	m.authenticated.Set(0)
}

type noopSessionMetrics struct{}

func (noopSessionMetrics) RecordLogin(string)    {}
func (noopSessionMetrics) RecordLogout()         {}
func (noopSessionMetrics) SetAuthenticated(bool) {}
