package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/logging"
	"github.com/Aman-CERP/routenav/internal/navigator"
	"github.com/Aman-CERP/routenav/internal/search"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/ui"
	"github.com/Aman-CERP/routenav/internal/watcher"
)

type appliedChange struct {
	path string
	kind watcher.ChangeKind
}

// fakeIndex records calls and returns canned answers.
type fakeIndex struct {
	mu sync.Mutex

	root       string
	results    []search.Result
	searchErr  error
	lastQuery  string
	lastMode   search.Mode
	stats      *navigator.RefreshStats
	refreshErr error
	applyErr   error
	applied    []appliedChange
	counts     navigator.Counts
	status     navigator.Status
	unindexed  map[string]bool
}

func (f *fakeIndex) Root() string { return f.root }

func (f *fakeIndex) Indexed(path string) bool { return !f.unindexed[path] }

func (f *fakeIndex) Search(_ context.Context, query string, mode search.Mode) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery, f.lastMode = query, mode
	return f.results, f.searchErr
}

func (f *fakeIndex) Refresh(_ context.Context, _ ui.Renderer) (*navigator.RefreshStats, error) {
	return f.stats, f.refreshErr
}

func (f *fakeIndex) ApplyChange(_ context.Context, path string, kind watcher.ChangeKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, appliedChange{path, kind})
	return f.applyErr
}

func (f *fakeIndex) Counts() navigator.Counts { return f.counts }

func (f *fakeIndex) Status(_ context.Context) navigator.Status { return f.status }

func routeResult(method, url string) search.Result {
	r := &store.RouteEntity{
		URL:            url,
		HTTPMethod:     method,
		OwnerClassName: "OrderController",
		MemberName:     "list",
		DeclaredAtLine: 12,
		SourceFileName: "OrderController.java",
		SourceFilePath: "/repo/src/OrderController.java",
	}
	return search.Result{
		Kind:   search.KindRoute,
		Label:  method + " " + url,
		Detail: "OrderController.java:12",
		Path:   r.SourceFilePath,
		Line:   r.DeclaredAtLine,
		Route:  r,
	}
}

func newTestServer(t *testing.T, idx *fakeIndex) *Server {
	t.Helper()
	if idx.root == "" {
		idx.root = t.TempDir()
	}
	srv, err := NewServer(idx, logging.Discard())
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresIndex(t *testing.T) {
	_, err := NewServer(nil, nil)

	assert.Error(t, err)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	// Given
	idx := &fakeIndex{results: []search.Result{
		routeResult("GET", "/api/orders/list"),
		{Kind: search.KindFile, Label: "README.md", Path: "/repo/README.md"},
	}}
	srv := newTestServer(t, idx)

	// When
	res, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "orders", Mode: "routes"})

	// Then
	require.NoError(t, err)
	assert.Equal(t, "orders", idx.lastQuery)
	assert.Equal(t, search.ModeRoute, idx.lastMode)
	assert.Equal(t, "route", out.Mode)
	assert.False(t, out.Truncated)
	require.Len(t, out.Results, 2)
	assert.Equal(t, SearchResultItem{
		Kind:   "route",
		Label:  "GET /api/orders/list",
		Detail: "OrderController.java:12",
		Path:   "/repo/src/OrderController.java",
		Line:   12,
		Method: "GET",
		URL:    "/api/orders/list",
	}, out.Results[0])
	assert.Equal(t, "file", out.Results[1].Kind)
	assert.Empty(t, out.Results[1].Method)

	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "**GET /api/orders/list**")
}

func TestHandleSearch_DefaultsToMixed(t *testing.T) {
	idx := &fakeIndex{}
	srv := newTestServer(t, idx)

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "x"})

	require.NoError(t, err)
	assert.Equal(t, search.ModeMixed, idx.lastMode)
	assert.Empty(t, out.Results)
	assert.NotNil(t, out.Results)
}

func TestHandleSearch_Truncates(t *testing.T) {
	// Given: more hits than the requested limit
	var results []search.Result
	for range 5 {
		results = append(results, search.Result{Kind: search.KindFile, Label: "a.txt"})
	}
	srv := newTestServer(t, &fakeIndex{results: results})

	// When
	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "a", Limit: 3})

	// Then
	require.NoError(t, err)
	assert.Len(t, out.Results, 3)
	assert.True(t, out.Truncated)
}

func TestHandleSearch_InvalidInput(t *testing.T) {
	srv := newTestServer(t, &fakeIndex{})

	tests := []struct {
		name string
		in   SearchInput
	}{
		{"empty query", SearchInput{Query: ""}},
		{"blank query", SearchInput{Query: "   "}},
		{"unknown mode", SearchInput{Query: "a", Mode: "symbols"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := srv.handleSearch(context.Background(), nil, tt.in)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestHandleSearch_MapsEngineErrors(t *testing.T) {
	srv := newTestServer(t, &fakeIndex{searchErr: context.DeadlineExceeded})

	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "a"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeTimeout, mcpErr.Code)
}

func TestHandleRefresh(t *testing.T) {
	idx := &fakeIndex{stats: &navigator.RefreshStats{Files: 10, Routes: 4, Sources: 2, Failures: 1, Duration: 1500 * time.Millisecond}}
	srv := newTestServer(t, idx)

	res, out, err := srv.handleRefresh(context.Background(), nil, RefreshInput{})

	require.NoError(t, err)
	assert.Equal(t, RefreshOutput{Files: 10, Routes: 4, Sources: 2, Failures: 1, DurationMs: 1500}, out)
	assert.Equal(t, "Indexed 10 files and 4 routes from 2 sources in 1500ms.", res.Content[0].(*mcp.TextContent).Text)
}

func TestHandleRefresh_Failure(t *testing.T) {
	idx := &fakeIndex{refreshErr: rerrors.New(rerrors.ErrCodeRefreshFailed, "walk failed", errors.New("permission denied"))}
	srv := newTestServer(t, idx)

	_, _, err := srv.handleRefresh(context.Background(), nil, RefreshInput{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeRefreshFailed, mcpErr.Code)
}

func TestHandleApplyChange(t *testing.T) {
	// Given
	idx := &fakeIndex{root: "/repo", counts: navigator.Counts{Files: 3, Routes: 2, Generation: 7}}
	srv := newTestServer(t, idx)

	// When: a relative path and an alias kind
	_, out, err := srv.handleApplyChange(context.Background(), nil, ApplyChangeInput{Path: "src/A.java", Kind: "Removed"})

	// Then
	require.NoError(t, err)
	assert.Equal(t, CountsOutput{Files: 3, Routes: 2, Generation: 7}, out)
	require.Len(t, idx.applied, 1)
	assert.Equal(t, filepath.Join("/repo", "src", "A.java"), idx.applied[0].path)
	assert.Equal(t, watcher.Deleted, idx.applied[0].kind)
}

func TestHandleApplyChange_DefaultsToModified(t *testing.T) {
	idx := &fakeIndex{root: "/repo"}
	srv := newTestServer(t, idx)

	_, _, err := srv.handleApplyChange(context.Background(), nil, ApplyChangeInput{Path: "/elsewhere/B.java"})

	require.NoError(t, err)
	require.Len(t, idx.applied, 1)
	assert.Equal(t, "/elsewhere/B.java", idx.applied[0].path)
	assert.Equal(t, watcher.Modified, idx.applied[0].kind)
}

func TestHandleApplyChange_InvalidInput(t *testing.T) {
	idx := &fakeIndex{}
	srv := newTestServer(t, idx)

	_, _, err := srv.handleApplyChange(context.Background(), nil, ApplyChangeInput{Path: ""})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	_, _, err = srv.handleApplyChange(context.Background(), nil, ApplyChangeInput{Path: "a", Kind: "renamed"})
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
	assert.Empty(t, idx.applied)
}

func TestHandleStatus(t *testing.T) {
	// Given
	root := t.TempDir()
	writeRootFile(t, root, "pom.xml", "<project><artifactId>shop</artifactId></project>")
	refreshed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	idx := &fakeIndex{root: root, status: navigator.Status{
		Root: root, Loaded: true, Files: 5, Routes: 3,
		FileCacheValid: true, LastRefresh: refreshed,
	}}
	srv := newTestServer(t, idx)

	// When
	_, out, err := srv.handleStatus(context.Background(), nil, StatusInput{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, ProjectInfo{Name: "shop", RootPath: root, Type: "maven"}, out.Project)
	assert.True(t, out.Loaded)
	assert.Equal(t, 5, out.Files)
	assert.Equal(t, 3, out.Routes)
	assert.True(t, out.FileCacheValid)
	assert.False(t, out.RouteCacheValid)
	assert.Equal(t, "2026-03-01T10:00:00Z", out.LastRefresh)
}

func TestServer_OverTransport(t *testing.T) {
	// Given: a server and client joined by in-memory transports
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := &fakeIndex{results: []search.Result{routeResult("POST", "/api/orders/create")}}
	srv := newTestServer(t, idx)

	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	defer func() { _ = ss.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	// When
	tools, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "create", "mode": "route"},
	})

	// Then
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search", "refresh", "apply_change", "counts", "status"}, names)

	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "POST /api/orders/create")
	assert.Equal(t, search.ModeRoute, idx.lastMode)
}
