package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Success(PipelineUpload, time.Now())
	r.Failure(PipelineSubtitles, "persistence", "subtitle_persist_failed", time.Now())
	r.RemoteCleanup(false)

	if got := testutil.ToFloat64(r.outcomes.WithLabelValues(PipelineUpload, "success")); got != 1 {
		t.Fatalf("expected 1 upload success, got %v", got)
	}
	if got := testutil.ToFloat64(r.failures.WithLabelValues(PipelineSubtitles, "persistence", "subtitle_persist_failed")); got != 1 {
		t.Fatalf("expected 1 persistence failure, got %v", got)
	}
	if got := testutil.ToFloat64(r.remoteCleanups.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed cleanup, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Success(PipelineDelete, time.Now())
	r.Failure(PipelineDelete, "x", "y", time.Now())
	r.RemoteCleanup(true)
}
