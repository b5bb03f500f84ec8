package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	filterDuration  *prom.HistogramVec
	compileDuration prom.Histogram
	filterResults   *prom.CounterVec
	compileOutcome  *prom.CounterVec
	sourceLoad      *prom.HistogramVec
	writeStatuses   *prom.CounterVec
	itemCount       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.filterDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "nanoc",
			Name:      "filter_duration_seconds",
			Help:      "Duration of individual filter applications",
			Buckets:   prom.DefBuckets,
		}, []string{"filter"})
		pr.compileDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "nanoc",
			Name:      "compile_duration_seconds",
			Help:      "Total site compile duration",
			Buckets:   prom.DefBuckets,
		})
		pr.filterResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nanoc",
			Name:      "filter_results_total",
			Help:      "Filter result counts by outcome",
		}, []string{"filter", "result"})
		pr.compileOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nanoc",
			Name:      "compile_outcomes_total",
			Help:      "Compile outcomes by final status",
		}, []string{"outcome"})
		pr.sourceLoad = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "nanoc",
			Name:      "data_source_load_duration_seconds",
			Help:      "Duration of individual data source load operations",
			Buckets:   prom.DefBuckets,
		}, []string{"source", "result"})
		pr.writeStatuses = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nanoc",
			Name:      "write_statuses_total",
			Help:      "Written output files by status",
		}, []string{"status"})
		pr.itemCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "nanoc",
			Name:      "items",
			Help:      "Number of items loaded in the last compile",
		})
		reg.MustRegister(pr.filterDuration, pr.compileDuration, pr.filterResults, pr.compileOutcome, pr.sourceLoad, pr.writeStatuses, pr.itemCount)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveFilterDuration(filter string, d time.Duration) {
	if p == nil || p.filterDuration == nil {
		return
	}
	p.filterDuration.WithLabelValues(filter).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFilterResult(filter string, result ResultLabel) {
	if p == nil || p.filterResults == nil {
		return
	}
	p.filterResults.WithLabelValues(filter, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome string) {
	if p == nil || p.compileOutcome == nil {
		return
	}
	p.compileOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveDataSourceLoad(source string, d time.Duration, success bool) {
	if p == nil || p.sourceLoad == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.sourceLoad.WithLabelValues(source, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncWriteStatus(status string) {
	if p == nil || p.writeStatuses == nil {
		return
	}
	p.writeStatuses.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetItemCount(n int) {
	if p == nil || p.itemCount == nil {
		return
	}
	p.itemCount.Set(float64(n))
}
