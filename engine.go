package tokenguard

import (
	"time"

	"github.com/secfold/tokenguard/internal/rate"
	"github.com/secfold/tokenguard/jwt"
	"github.com/secfold/tokenguard/store"
)

// Engine defines a public type used by tokenguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// The engine composes the rotation state machine, family revocation, the JWT
// blacklist, the security-event recorder, and the cleanup sweeper over a
// single authoritative [store.Store]. No mutable token status is ever cached
// in process memory.
type Engine struct {
	config     Config
	store      *store.Store
	limiter    *rate.Limiter
	audit      *auditDispatcher
	metrics    *Metrics
	jwtManager *jwt.Manager
	sweeper    *Sweeper
}

// Close describes the close operation and its observable behavior.
//
// Close stops the cleanup sweeper and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, delta uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, delta)
}

// recordTTL is the physical Redis retention for a record: logical refresh
// expiry plus the forensic retention margin the sweeper honors.
func (e *Engine) recordTTL() time.Duration {
	ttl := e.config.Rotation.RefreshTTL
	if e.config.Cleanup.RetentionMargin > 0 {
		ttl += e.config.Cleanup.RetentionMargin
	}
	return ttl
}
