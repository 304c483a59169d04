package authgate

import (
	"log/slog"

	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/MrEthical07/authgate/internal/throttle"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/seal"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs credential checks, second-factor challenges and the attempt
// throttle for one deployment.
//
// Engine instances are configured once through Builder and are safe for
// concurrent use.
type Engine struct {
	config Config

	accounts   AccountStore
	notifier   Notifier
	limiter    *throttle.Limiter
	challenges *stores.ChallengeStore
	verifier   *password.Verifier
	sealer     *seal.Sealer
	totp       *totpVerifier

	audit   *auditDispatcher
	metrics *Metrics

	clock  Clock
	logger *slog.Logger
	tracer trace.Tracer
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration with the encryption key
// removed.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	cfg := cloneConfig(e.config)
	cfg.Encryption.Key = nil
	return cfg
}

func (e *Engine) ready() error {
	if e == nil || e.accounts == nil || e.limiter == nil || e.challenges == nil || e.verifier == nil || e.sealer == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
