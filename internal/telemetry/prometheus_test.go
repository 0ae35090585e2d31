package telemetry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/logging"
)

func TestMetrics_ObserveSearch(t *testing.T) {
	// Given: fresh metrics
	m := NewMetrics()

	// When: two searches are observed, one from cache
	m.ObserveSearch("file", 3*time.Millisecond, 5, false)
	m.ObserveSearch("file", time.Millisecond, 5, true)

	// Then: both are in the histogram and one cache hit is counted
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCacheHit.WithLabelValues("file")))
}

func TestMetrics_ObserveChange(t *testing.T) {
	m := NewMetrics()

	m.ObserveChange("modified", nil)
	m.ObserveChange("modified", nil)
	m.ObserveChange("deleted", errors.New("boom"))

	expected := `
# HELP routenav_changes_total Single-path changes applied to the index
# TYPE routenav_changes_total counter
routenav_changes_total{kind="deleted",outcome="failed"} 1
routenav_changes_total{kind="modified",outcome="applied"} 2
`
	require.NoError(t, testutil.CollectAndCompare(m.ChangesTotal, strings.NewReader(expected)))
}

func TestMetrics_ScanAndEntities(t *testing.T) {
	m := NewMetrics()

	m.ObserveScan("route", 40*time.Millisecond, 2)
	m.ObserveScan("file", 10*time.Millisecond, 0)
	m.SetEntities(12, 4)
	m.ObserveDrain(5 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("route")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseFailed))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Entities.WithLabelValues("file")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Entities.WithLabelValues("route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrainsTotal))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch("file", time.Millisecond, 1, true)
		m.ObserveScan("file", time.Millisecond, 1)
		m.ObserveChange("created", nil)
		m.ObserveDrain(time.Millisecond)
		m.SetEntities(1, 1)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.SetEntities(3, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `routenav_entities{kind="file"} 3`)
}

func TestMetrics_ServeStopsOnCancel(t *testing.T) {
	// Given: a free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr, logging.Discard()) }()

	// When: the endpoint is scraped
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "routenav_debounce_drains_total")

	// Then: cancelling the context shuts the server down cleanly
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
