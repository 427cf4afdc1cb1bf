package metrics

import (
	"time"

	"github.com/TCH93/Indico-Dev/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder.
// All methods are empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthAttempt(backend string, success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordSSOLogin(backend, result string)                                 {}
func (n *NoopMetrics) RecordUserProvisioned(backend string)                                  {}
func (n *NoopMetrics) RecordIdentityLinked(backend string)                                   {}
func (n *NoopMetrics) RecordFieldSync(field string)                                          {}
