package internaldefs

import (
	"strconv"

	goToken "github.com/MrEthical07/goToken"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "gotoken_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: goToken.MetricIssueSuccess, Name: "gotoken_issue_success_total", Help: "Token pairs issued."},
	{ID: goToken.MetricIssueFailure, Name: "gotoken_issue_failure_total", Help: "Failed pair issuances."},
	{ID: goToken.MetricVerifySuccess, Name: "gotoken_verify_success_total", Help: "Successful token verifications."},
	{ID: goToken.MetricVerifyFailure, Name: "gotoken_verify_failure_total", Help: "Failed token verifications of any kind."},
	{ID: goToken.MetricVerifyExpired, Name: "gotoken_verify_expired_total", Help: "Verifications rejected for an expired token."},
	{ID: goToken.MetricVerifyInvalidated, Name: "gotoken_verify_invalidated_total", Help: "Verifications rejected because the token was not the live entry."},
	{ID: goToken.MetricRotateSuccess, Name: "gotoken_rotate_success_total", Help: "Successful pair rotations."},
	{ID: goToken.MetricRotateFailure, Name: "gotoken_rotate_failure_total", Help: "Failed pair rotations."},
	{ID: goToken.MetricRotateConflict, Name: "gotoken_rotate_conflict_total", Help: "Rotations lost to a concurrent rotation of the same token."},
	{ID: goToken.MetricRevokePair, Name: "gotoken_revoke_pair_total", Help: "Single pair revocations."},
	{ID: goToken.MetricRevokeAll, Name: "gotoken_revoke_all_total", Help: "Revoke-all operations."},
	{ID: goToken.MetricAuthenticateSuccess, Name: "gotoken_authenticate_success_total", Help: "Successful authentications."},
	{ID: goToken.MetricAuthenticateFailure, Name: "gotoken_authenticate_failure_total", Help: "Failed authentications."},
	{ID: goToken.MetricForbidden, Name: "gotoken_forbidden_total", Help: "Authentications denied for insufficient rank."},
	{ID: goToken.MetricLoginSuccess, Name: "gotoken_login_success_total", Help: "Successful logins."},
	{ID: goToken.MetricLoginFailure, Name: "gotoken_login_failure_total", Help: "Failed logins."},
	{ID: goToken.MetricStoreUnavailable, Name: "gotoken_store_unavailable_total", Help: "Operations that failed because the session store was unreachable."},
}

var HistogramDefs = []HistogramDef{
	{ID: goToken.MetricVerifyLatency, Name: "gotoken_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.25}

// BucketLabel returns the Prometheus-style "le" value of bucket i: the
// bound in seconds, or "+Inf" for the overflow bucket.
func BucketLabel(i int) string {
	if i >= len(HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
}

// NormalizeBuckets pads or truncates raw to the engine's bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
