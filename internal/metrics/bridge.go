package metrics

import "time"

// Bridge metric names
const (
	InvocationsTotal   = "bridge_invocations_total"
	ResultsTotal       = "bridge_results_total"
	InvocationDuration = "bridge_invocation_duration"
	LateResultsTotal   = "bridge_late_results_total"
	PoolRejectedTotal  = "bridge_pool_rejected_total"
	HTTPRequestsTotal  = "http_requests_total"
	HTTPRequestTime    = "http_request_duration"
	WSFramesTotal      = "ws_frames_total"
)

// RecordInvocation counts a plugin call entering the bridge
func (r *Registry) RecordInvocation(method string) {
	r.IncrementCounter(InvocationsTotal, map[string]string{"method": method}, "Plugin calls received by the bridge")
}

// RecordResult counts a delivered result and records how long the call took.
// kind is empty for successful calls.
func (r *Registry) RecordResult(method, kind string, duration time.Duration) {
	outcome := "success"
	if kind != "" {
		outcome = kind
	}
	r.IncrementCounter(ResultsTotal, map[string]string{"method": method, "outcome": outcome}, "Results delivered to the host runtime")
	r.RecordTimer(InvocationDuration, duration, map[string]string{"method": method}, "Time from invocation to result delivery")
}
