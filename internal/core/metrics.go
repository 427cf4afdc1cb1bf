package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include metrics.Metrics (Prometheus-based) and
// metrics.NoopMetrics (no-op).
type Recorder interface {
	// Credential authentication
	RecordAuthAttempt(backend string, success bool, duration time.Duration)

	// SSO reconciliation; result is one of "success", "missing_field",
	// "disabled", "error".
	RecordSSOLogin(backend, result string)
	RecordUserProvisioned(backend string)
	RecordIdentityLinked(backend string)
	RecordFieldSync(field string)
}
