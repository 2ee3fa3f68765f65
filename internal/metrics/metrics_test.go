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
)

func TestObserveEntry(t *testing.T) {
	m := New()
	m.ObserveEntry(12)
	m.ObserveEntry(0.5)
	m.ObserveEntry(4.8)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.entriesRecorded))
	assert.InDelta(t, 17.3, testutil.ToFloat64(m.energyRecorded), 1e-9)
}

func TestObserveEntrySingleSeries(t *testing.T) {
	m := New()
	for i := 0; i < 500; i++ {
		m.ObserveEntry(1)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.entriesRecorded))
	n, err := testutil.GatherAndCount(m.Registry(), "energy_tracker_entries_recorded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObserveRateUpdate(t *testing.T) {
	m := New()
	m.SetCurrentRate(7.5)
	m.ObserveRateUpdate(10.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateUpdates))
	assert.Equal(t, 10.5, testutil.ToFloat64(m.currentRate))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/dashboard", 200, 15*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/", 303, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/dashboard", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/", "303")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEntry(1)
		m.ObserveRateUpdate(1)
		m.SetCurrentRate(1)
		m.ObservePublishError("entry.recorded")
		m.ObserveRequest("GET", "/", 200, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveEntry(10)
	m.ObservePublishError("rate.updated")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "energy_tracker_entries_recorded_total 1")
	assert.Contains(t, string(body), `energy_tracker_event_publish_errors_total{event="rate.updated"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
