package metrics

import (
	"testing"
	"time"
)

type captureRecorder struct {
	filterDurations map[string]int
	filterResults   map[string]map[ResultLabel]int
	compileCount    int
	outcomes        map[string]int
	writeStatuses   map[string]int
	itemCount       int
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{
		filterDurations: map[string]int{},
		filterResults:   map[string]map[ResultLabel]int{},
		outcomes:        map[string]int{},
		writeStatuses:   map[string]int{},
	}
}

func (c *captureRecorder) ObserveFilterDuration(filter string, _ time.Duration) {
	c.filterDurations[filter]++
}
func (c *captureRecorder) ObserveCompileDuration(_ time.Duration) { c.compileCount++ }
func (c *captureRecorder) IncFilterResult(filter string, result ResultLabel) {
	m, ok := c.filterResults[filter]
	if !ok {
		m = map[ResultLabel]int{}
		c.filterResults[filter] = m
	}
	m[result]++
}
func (c *captureRecorder) IncCompileOutcome(outcome string)                       { c.outcomes[outcome]++ }
func (c *captureRecorder) ObserveDataSourceLoad(string, time.Duration, bool)      {}
func (c *captureRecorder) IncWriteStatus(status string)                           { c.writeStatuses[status]++ }
func (c *captureRecorder) SetItemCount(n int)                                     { c.itemCount = n }

func TestRecorderInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	// Must be callable with zero value and never panic.
	r.ObserveFilterDuration("markdown", time.Millisecond)
	r.ObserveCompileDuration(time.Second)
	r.IncFilterResult("markdown", ResultSuccess)
	r.IncCompileOutcome("success")
	r.ObserveDataSourceLoad("filesystem", time.Millisecond, true)
	r.IncWriteStatus(WriteCreated)
	r.SetItemCount(3)
}

func TestCaptureRecorderCounts(t *testing.T) {
	c := newCaptureRecorder()
	var r Recorder = c

	r.ObserveFilterDuration("markdown", 5*time.Millisecond)
	r.ObserveFilterDuration("markdown", 7*time.Millisecond)
	r.ObserveFilterDuration("cssmin", time.Millisecond)
	r.IncFilterResult("markdown", ResultSuccess)
	r.IncFilterResult("cssmin", ResultFailed)
	r.IncCompileOutcome("success")
	r.IncWriteStatus(WriteCreated)
	r.IncWriteStatus(WriteIdentical)
	r.SetItemCount(12)

	if got := c.filterDurations["markdown"]; got != 2 {
		t.Fatalf("markdown durations = %d, want 2", got)
	}
	if got := c.filterResults["cssmin"][ResultFailed]; got != 1 {
		t.Fatalf("cssmin failed results = %d, want 1", got)
	}
	if c.outcomes["success"] != 1 {
		t.Fatalf("success outcomes = %d, want 1", c.outcomes["success"])
	}
	if c.writeStatuses[WriteIdentical] != 1 {
		t.Fatalf("identical writes = %d, want 1", c.writeStatuses[WriteIdentical])
	}
	if c.itemCount != 12 {
		t.Fatalf("item count = %d, want 12", c.itemCount)
	}
}
