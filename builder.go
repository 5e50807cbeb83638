package tokenguard

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/secfold/tokenguard/internal/rate"
	"github.com/secfold/tokenguard/jwt"
	"github.com/secfold/tokenguard/store"
)

// Builder defines a public type used by tokenguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// A builder is single-shot: Build consumes it and a second call fails.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink
	built     bool
}

// New describes the new operation and its observable behavior.
//
// New returns a [Builder] preloaded with the default configuration. Callers
// override what they need and finish with [Builder.Build].
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
//
// Build validates the configuration, wires every component, and starts the
// audit dispatcher and the cleanup sweeper. The returned engine owns those
// goroutines; release them with [Engine.Close].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already consumed")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     b.config.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(b.config.JWT.SigningMethod),
		PrivateKey:    b.config.JWT.PrivateKey,
		PublicKey:     b.config.JWT.PublicKey,
		Issuer:        b.config.JWT.Issuer,
		Audience:      b.config.JWT.Audience,
		Leeway:        b.config.JWT.Leeway,
		RequireIAT:    b.config.JWT.RequireIAT,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     b.config,
		store:      store.New(b.redis, b.config.Store.RedisPrefix),
		jwtManager: jwtManager,
		metrics:    NewMetrics(b.config.Metrics),
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
	}

	if b.config.Security.EnableRefreshThrottle {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableRefreshThrottle: b.config.Security.EnableRefreshThrottle,
			EnableIPThrottle:      b.config.Security.EnableIPThrottle,
			MaxRefreshAttempts:    b.config.Security.MaxRefreshAttempts,
			RefreshCooldown:       b.config.Security.RefreshCooldown,
		})
	}

	if b.config.Cleanup.Enabled {
		engine.sweeper = newSweeper(engine, b.config.Cleanup.Interval)
	}

	return engine, nil
}
