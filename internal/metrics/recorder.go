package metrics

import "time"

// ResultLabel enumerates filter result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Write statuses reported by the output writer.
const (
	WriteCreated   = "created"
	WriteUpdated   = "updated"
	WriteIdentical = "identical"
	WriteSkipped   = "skipped"
)

// Recorder defines observability hooks for compilation metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. Components hold a Recorder and
// default to NoopRecorder, so recording never requires a nil check.
type Recorder interface {
	ObserveFilterDuration(filter string, d time.Duration)
	ObserveCompileDuration(d time.Duration)
	IncFilterResult(filter string, result ResultLabel)
	IncCompileOutcome(outcome string) // outcome: success|failed
	ObserveDataSourceLoad(source string, d time.Duration, success bool)
	IncWriteStatus(status string) // status: created|updated|identical|skipped
	SetItemCount(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFilterDuration(string, time.Duration)          {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)                 {}
func (NoopRecorder) IncFilterResult(string, ResultLabel)                  {}
func (NoopRecorder) IncCompileOutcome(string)                             {}
func (NoopRecorder) ObserveDataSourceLoad(string, time.Duration, bool)    {}
func (NoopRecorder) IncWriteStatus(string)                                {}
func (NoopRecorder) SetItemCount(int)                                     {}
