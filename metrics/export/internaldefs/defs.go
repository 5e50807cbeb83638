package internaldefs

import (
	tokenguard "github.com/secfold/tokenguard"
)

// CounterDef defines a public type used by tokenguard APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by tokenguard APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the rotation engine.
var CounterDefs = []CounterDef{
	{ID: tokenguard.MetricIssueSuccess, Name: "tokenguard_issue_success_total", Help: "Successful token pair issuances."},
	{ID: tokenguard.MetricIssueFailure, Name: "tokenguard_issue_failure_total", Help: "Failed token pair issuances."},
	{ID: tokenguard.MetricRotateSuccess, Name: "tokenguard_rotate_success_total", Help: "Successful refresh rotations."},
	{ID: tokenguard.MetricRotateFailure, Name: "tokenguard_rotate_failure_total", Help: "Failed refresh rotations."},
	{ID: tokenguard.MetricRotateRateLimited, Name: "tokenguard_rotate_rate_limited_total", Help: "Rate-limited rotation attempts."},
	{ID: tokenguard.MetricReuseDetected, Name: "tokenguard_reuse_detected_total", Help: "Detected refresh token replays."},
	{ID: tokenguard.MetricConcurrentRotation, Name: "tokenguard_concurrent_rotation_total", Help: "Rotations that lost the mark-used race inside the replay window."},
	{ID: tokenguard.MetricBindingRejected, Name: "tokenguard_binding_rejected_total", Help: "Rotations rejected by token binding enforcement."},
	{ID: tokenguard.MetricFamilyRevoked, Name: "tokenguard_family_revoked_total", Help: "Family-wide revocations."},
	{ID: tokenguard.MetricRecordsRevoked, Name: "tokenguard_records_revoked_total", Help: "Individual refresh records revoked."},
	{ID: tokenguard.MetricFamilyLimitEnforced, Name: "tokenguard_family_limit_enforced_total", Help: "Family size cap enforcements."},
	{ID: tokenguard.MetricBlacklistInsert, Name: "tokenguard_blacklist_insert_total", Help: "Access token jtis added to the blacklist."},
	{ID: tokenguard.MetricBlacklistHit, Name: "tokenguard_blacklist_hit_total", Help: "Validations rejected by a blacklist hit."},
	{ID: tokenguard.MetricValidateSuccess, Name: "tokenguard_validate_success_total", Help: "Successful access token validations."},
	{ID: tokenguard.MetricValidateFailure, Name: "tokenguard_validate_failure_total", Help: "Failed access token validations."},
	{ID: tokenguard.MetricEventRecorded, Name: "tokenguard_event_recorded_total", Help: "Security events appended to the event stream."},
	{ID: tokenguard.MetricEventWriteFailed, Name: "tokenguard_event_write_failed_total", Help: "Security event stream write failures."},
	{ID: tokenguard.MetricSweepRuns, Name: "tokenguard_sweep_runs_total", Help: "Cleanup sweeper runs."},
	{ID: tokenguard.MetricSweepRecordsPruned, Name: "tokenguard_sweep_records_pruned_total", Help: "Expired records removed by the sweeper."},
}

// HistogramDefs is an exported constant or variable used by the rotation engine.
var HistogramDefs = []HistogramDef{
	{ID: tokenguard.MetricValidateLatency, Name: "tokenguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the rotation engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the rotation engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
