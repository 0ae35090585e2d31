package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/search"
	"github.com/Aman-CERP/routenav/internal/watcher"
)

func labels(rs []search.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label
	}
	return out
}

func TestRefreshAndSearch_EndToEnd(t *testing.T) {
	// Given: a project indexed from scratch
	ws := newWorkspace(t)
	s := ws.open(t)
	defer s.close(t)
	ctx := context.Background()

	// When
	stats, err := s.nav.Refresh(ctx, nil)

	// Then: build output and dependencies stay out of both sets
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 2, stats.Routes)
	assert.Equal(t, 1, stats.Sources)
	assert.Zero(t, stats.Failures)

	got, err := s.nav.Search(ctx, "/api/orders/*", search.ModeRoute)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GET /api/orders/list", "POST /api/orders/create"}, labels(got))

	got, err = s.nav.Search(ctx, "ordercon", search.ModeFile)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "OrderController.java", got[0].Label)

	// mixed mode lists routes before files
	got, err = s.nav.Search(ctx, "order", search.ModeMixed)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, search.KindRoute, got[0].Kind)

	assert.Equal(t, int64(3), s.queries.Snapshot().TotalQueries)
}

func TestCacheSurvivesRestart(t *testing.T) {
	// Given: one process indexes and shuts down
	ws := newWorkspace(t)
	ctx := context.Background()
	first := ws.open(t)
	_, err := first.nav.Refresh(ctx, nil)
	require.NoError(t, err)
	first.close(t)

	// When: a second process opens the same cache
	second := ws.open(t)
	defer second.close(t)
	require.NoError(t, second.nav.EnsureLoaded(ctx))

	// Then: both sets come from the cache without reparsing a single source
	assert.Zero(t, second.parser.calls.Load())
	c := second.nav.Counts()
	assert.Equal(t, 3, c.Files)
	assert.Equal(t, 2, c.Routes)

	st := second.nav.Status(ctx)
	assert.True(t, st.FileCacheValid)
	assert.True(t, st.RouteCacheValid)

	got, err := second.nav.Search(ctx, "create", search.ModeRoute)
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/orders/create"}, labels(got))
}

func TestApplyChange_PersistsAcrossRestart(t *testing.T) {
	// Given: an indexed project
	ws := newWorkspace(t)
	ctx := context.Background()
	s := ws.open(t)
	require.NoError(t, s.nav.EnsureLoaded(ctx))

	// When: a controller is added and the order controller removed
	invoice := ws.write(t, "shop/src/main/java/shop/InvoiceController.java", invoiceController)
	require.NoError(t, s.nav.ApplyChange(ctx, invoice, watcher.Created))
	order := filepath.Join(ws.root, "shop", "src", "main", "java", "shop", "OrderController.java")
	require.NoError(t, s.nav.ApplyChange(ctx, order, watcher.Deleted))
	s.close(t)

	// Then: a restarted process sees the updated sets from the cache
	again := ws.open(t)
	defer again.close(t)
	require.NoError(t, again.nav.EnsureLoaded(ctx))
	assert.Zero(t, again.parser.calls.Load())

	got, err := again.nav.Search(ctx, "/api/*", search.ModeRoute)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GET /api/invoices/{id}", "GET /api/invoices/by-number/{number}"}, labels(got))
}

func TestClearCache_ForcesRescan(t *testing.T) {
	// Given
	ws := newWorkspace(t)
	ctx := context.Background()
	s := ws.open(t)
	_, err := s.nav.Refresh(ctx, nil)
	require.NoError(t, err)

	// When
	s.nav.ClearCache(ctx)
	s.close(t)

	// Then: the next process has to parse again
	again := ws.open(t)
	defer again.close(t)
	require.NoError(t, again.nav.EnsureLoaded(ctx))
	assert.Equal(t, int64(1), again.parser.calls.Load())
	assert.Equal(t, 2, again.nav.Counts().Routes)
}
