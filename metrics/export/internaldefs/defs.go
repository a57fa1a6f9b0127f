package internaldefs

import (
	"github.com/nuggetsync/nuggetauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   nuggetauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   nuggetauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: nuggetauth.MetricLoginSuccess, Name: "nuggetauth_login_success_total", Help: "Successful logins."},
	{ID: nuggetauth.MetricLoginFailure, Name: "nuggetauth_login_failure_total", Help: "Failed logins, unknown user and wrong password combined."},
	{ID: nuggetauth.MetricLoginRateLimited, Name: "nuggetauth_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: nuggetauth.MetricRegisterSuccess, Name: "nuggetauth_register_success_total", Help: "Accounts created."},
	{ID: nuggetauth.MetricRegisterDuplicate, Name: "nuggetauth_register_duplicate_total", Help: "Registrations refused for a taken username."},
	{ID: nuggetauth.MetricSessionIssued, Name: "nuggetauth_session_issued_total", Help: "Sessions issued."},
	{ID: nuggetauth.MetricValidateSuccess, Name: "nuggetauth_validate_success_total", Help: "Session validations that authenticated."},
	{ID: nuggetauth.MetricValidateRejectNoSession, Name: "nuggetauth_validate_reject_no_session_total", Help: "Validations rejected for an unknown, expired or revoked token."},
	{ID: nuggetauth.MetricValidateRejectIPMismatch, Name: "nuggetauth_validate_reject_ip_mismatch_total", Help: "Validations rejected for a client address mismatch."},
	{ID: nuggetauth.MetricValidateIPChangedAdvisory, Name: "nuggetauth_validate_ip_changed_total", Help: "Validations accepted from a changed address under advisory binding."},
	{ID: nuggetauth.MetricSessionRevokeFailed, Name: "nuggetauth_session_revoke_failed_total", Help: "Mismatch revocations whose delete failed."},
	{ID: nuggetauth.MetricStoreUnavailable, Name: "nuggetauth_store_unavailable_total", Help: "Operations failed by an unavailable session backend."},
	{ID: nuggetauth.MetricLogout, Name: "nuggetauth_logout_total", Help: "Logouts."},
}

var HistogramDefs = []HistogramDef{
	{ID: nuggetauth.MetricValidateLatency, Name: "nuggetauth_validate_latency_seconds", Help: "Session validation latency."},
}

// HistogramBounds are the upper bounds in seconds of the first seven engine
// buckets. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names every bucket, +Inf included, for exporters that
// need one instrument per bucket.
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

const (
	AuditDroppedName = "nuggetauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped on a full dispatcher buffer."
)

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
