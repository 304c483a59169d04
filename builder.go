package authgate

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/MrEthical07/authgate/internal/throttle"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/seal"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/MrEthical07/authgate"

// Builder assembles an Engine.
//
// Builder instances are intended to be configured during initialization and
// used for exactly one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	notifier  Notifier
	auditSink AuditSink

	clock          Clock
	logger         *slog.Logger
	tracerProvider trace.TracerProvider

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the throttle counters and challenge
// records. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the account lookup and recovery-code swap backend.
// Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithNotifier sets the email code delivery channel. Without one, email
// challenges fail with ErrDispatchFailed.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event sink. Audit.Enabled must also be true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the wall clock, mainly for tests.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithTracerProvider enables spans around engine operations.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// A Builder can be built once; later calls return an error.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sealer, err := seal.New(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	verifier, err := password.NewVerifier(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	limiter := throttle.New(b.redis, throttle.Config{
		MaxAttempts:          cfg.Throttle.MaxAttempts,
		Cooldown:             cfg.Throttle.Cooldown,
		EnableOriginThrottle: cfg.Throttle.EnableOriginThrottle,
		OriginMaxAttempts:    cfg.Throttle.OriginMaxAttempts,
		MaxResends:           cfg.Throttle.MaxResends,
	})

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	engine := &Engine{
		config:     cfg,
		accounts:   b.accounts,
		notifier:   b.notifier,
		limiter:    limiter,
		challenges: stores.NewChallengeStore(b.redis, cfg.Challenge.RedisPrefix),
		verifier:   verifier,
		sealer:     sealer,
		totp:       newTOTPVerifier(cfg.TOTP),
		metrics:    NewMetrics(cfg.Metrics),
		clock:      clock,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
	}

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		engine.audit = newAuditDispatcher(cfg.Audit, sink)
	}

	for _, w := range cfg.Lint() {
		logger.Warn("authgate: config lint", "code", w.Code, "message", w.Message)
	}

	b.built = true
	return engine, nil
}
