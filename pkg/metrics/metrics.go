// Package metrics holds the Prometheus collectors for the lifecycle pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PipelineUpload    = "upload"
	PipelineSubtitles = "subtitles"
	PipelineDelete    = "delete"
)

type Recorder struct {
	outcomes       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	remoteCleanups *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg. A nil registerer leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_pipeline_total",
			Help: "Lifecycle pipeline runs by outcome.",
		}, []string{"pipeline", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_pipeline_failures_total",
			Help: "Lifecycle pipeline failures by error kind and code.",
		}, []string{"pipeline", "kind", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_pipeline_duration_seconds",
			Help:    "Lifecycle pipeline wall time.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600},
		}, []string{"pipeline"}),
		remoteCleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_remote_cleanup_total",
			Help: "Best-effort remote media deletions by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(r.outcomes, r.failures, r.duration, r.remoteCleanups)
	}
	return r
}

func (r *Recorder) Success(pipeline string, started time.Time) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(pipeline, "success").Inc()
	r.duration.WithLabelValues(pipeline).Observe(time.Since(started).Seconds())
}

func (r *Recorder) Failure(pipeline, kind, code string, started time.Time) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(pipeline, "failure").Inc()
	r.failures.WithLabelValues(pipeline, kind, code).Inc()
	r.duration.WithLabelValues(pipeline).Observe(time.Since(started).Seconds())
}

func (r *Recorder) RemoteCleanup(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.remoteCleanups.WithLabelValues(result).Inc()
}
