package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fourdrun/internal/match"
)

func TestStepTimer_RecordsDurationAndCount(t *testing.T) {
	r := NewRegistry()

	timer := r.StartStepTimer(StepScore)
	d := timer.Stop(ResultSuccess)
	assert.GreaterOrEqual(t, d, time.Duration(0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.PipelineSteps.WithLabelValues("score", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.StepDuration))
}

func TestRegistries_AreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.RecordPipelineError(StepFetch, "timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.PipelineErrors.WithLabelValues("fetch", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PipelineErrors.WithLabelValues("fetch", "timeout")))
}

func TestObserveFeedAndBreaker(t *testing.T) {
	r := NewRegistry()
	r.ObserveFeedRequest("ok", 20*time.Millisecond)
	r.ObserveFeedRequest("cache_hit", 0)
	r.ObserveFeedRequest("ok", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.FeedRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FeedRequests.WithLabelValues("cache_hit")))

	r.ObserveBreakerState("sg-4d-json", "open")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.BreakerState.WithLabelValues("sg-4d-json")))
	r.ObserveBreakerState("sg-4d-json", "half-open")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BreakerState.WithLabelValues("sg-4d-json")))
	r.ObserveBreakerState("sg-4d-json", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(r.BreakerState.WithLabelValues("sg-4d-json")))
}

func TestHitRatesAndSnapshot(t *testing.T) {
	r := NewRegistry()
	r.RecordGridStats(match.GridStats{DirectHits: 1, UniqueCount: 4, IbetHits: 2, DedupCount: 4})
	r.RecordCandidateStats(match.CandidateStats{
		Total:  10,
		Direct: []match.Hit{{Candidate: "1234", Winner: "1234", Direct: true}},
		Ibet:   []match.Hit{{Candidate: "1234", Winner: "1234"}, {Candidate: "4321", Winner: "1234"}},
	})
	r.RecordCandidateStats(match.CandidateStats{})

	snap := r.Snapshot()
	assert.InDelta(t, 25.0, snap["grid_direct"], 1e-9)
	assert.InDelta(t, 50.0, snap["grid_ibet"], 1e-9)
	assert.InDelta(t, 10.0, snap["candidates_direct"], 1e-9)
	assert.InDelta(t, 20.0, snap["candidates_ibet"], 1e-9)
}

func TestHandler_ServesRegistry(t *testing.T) {
	r := NewRegistry()
	r.RecordIngest(23)
	r.SetHistorySize(230)
	r.RecordDegenerateBox()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "fourdrun_records_ingested_total 23")
	assert.Contains(t, string(body), "fourdrun_history_records 230")
	assert.Contains(t, string(body), "fourdrun_degenerate_boxes_total 1")
}
