package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/TCH93/Indico-Dev/internal/core"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Credential authentication
	AuthAttemptsTotal *prometheus.CounterVec
	AuthLoginDuration *prometheus.HistogramVec

	// SSO reconciliation
	SSOLoginsTotal        *prometheus.CounterVec
	UsersProvisionedTotal *prometheus.CounterVec
	IdentitiesLinkedTotal *prometheus.CounterVec
	FieldSyncsTotal       *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=true, returns Prometheus-based Metrics.
// If enabled=false, returns NoopMetrics (zero overhead).
// Uses sync.Once to ensure Prometheus metrics are only registered once.
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of credential authentication attempts",
			},
			[]string{"backend", "result"}, // success, failure
		),
		AuthLoginDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Credential authentication duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		SSOLoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_logins_total",
				Help: "Total number of SSO reconciliation attempts",
			},
			[]string{"backend", "result"}, // success, missing_field, disabled, error
		),
		UsersProvisionedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_users_provisioned_total",
				Help: "Total number of users created by SSO reconciliation",
			},
			[]string{"backend"},
		),
		IdentitiesLinkedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_identities_linked_total",
				Help: "Total number of identity records created or attached by SSO",
			},
			[]string{"backend"},
		),
		FieldSyncsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_field_syncs_total",
				Help: "Total number of profile fields overwritten by SSO",
			},
			[]string{"field"},
		),
	}
}

func (m *Metrics) RecordAuthAttempt(backend string, success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	m.AuthAttemptsTotal.WithLabelValues(backend, result).Inc()
	m.AuthLoginDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *Metrics) RecordSSOLogin(backend, result string) {
	m.SSOLoginsTotal.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) RecordUserProvisioned(backend string) {
	m.UsersProvisionedTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) RecordIdentityLinked(backend string) {
	m.IdentitiesLinkedTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) RecordFieldSync(field string) {
	m.FieldSyncsTotal.WithLabelValues(field).Inc()
}
