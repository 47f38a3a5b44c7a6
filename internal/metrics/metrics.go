// Package metrics exposes draft and submission counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitdraft"

// Recorder implements expense.Recorder on a private registry
type Recorder struct {
	registry      *prometheus.Registry
	draftsStarted prometheus.Counter
	submissions   *prometheus.CounterVec
	openDrafts    prometheus.Gauge
}

// NewRecorder registers the split draft metrics plus the Go and process collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		draftsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_started_total",
			Help:      "Number of expense drafts opened.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Draft submissions by result.",
		}, []string{"result"}),
		openDrafts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_drafts",
			Help:      "Drafts currently held in memory.",
		}),
	}

	r.registry.MustRegister(
		r.draftsStarted,
		r.submissions,
		r.openDrafts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// DraftStarted counts a newly opened draft
func (r *Recorder) DraftStarted() {
	r.draftsStarted.Inc()
}

// Submission counts a submission attempt with its result label
func (r *Recorder) Submission(result string) {
	r.submissions.WithLabelValues(result).Inc()
}

// OpenDrafts sets the open drafts gauge
func (r *Recorder) OpenDrafts(n int) {
	r.openDrafts.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
