package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/routenav/internal/navigator"
	"github.com/Aman-CERP/routenav/internal/search"
	"github.com/Aman-CERP/routenav/internal/telemetry"
	"github.com/Aman-CERP/routenav/internal/ui"
	"github.com/Aman-CERP/routenav/internal/watcher"
	"github.com/Aman-CERP/routenav/pkg/version"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Index is the navigator surface the server needs.
type Index interface {
	Root() string
	Indexed(path string) bool
	Search(ctx context.Context, query string, mode search.Mode) ([]search.Result, error)
	Refresh(ctx context.Context, progress ui.Renderer) (*navigator.RefreshStats, error)
	ApplyChange(ctx context.Context, path string, kind watcher.ChangeKind) error
	Counts() navigator.Counts
	Status(ctx context.Context) navigator.Status
}

var _ Index = (*navigator.Navigator)(nil)

// Server is the MCP server for one workspace.
type Server struct {
	mcp    *mcp.Server
	index  Index
	logger *slog.Logger

	// query telemetry, optional
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// NewServer creates a server over index and registers its tools.
func NewServer(index Index, logger *slog.Logger) (*Server, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{index: index, logger: logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "routenav",
		Version: version.Short(),
	}, nil)

	s.registerTools()
	s.registerFileResource()
	return s, nil
}

// SetMetrics attaches query telemetry and exposes it as the
// query_metrics resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search",
		Description: "Find project files and Spring HTTP endpoints by name, path fragment or URL. " +
			"Route queries accept * wildcards (/api/*/orders). Results are ranked; routes come first in mixed mode.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh",
		Description: "Rescan the whole project and rebuild the file and route index.",
	}, s.handleRefresh)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "apply_change",
		Description: "Apply a single file change (for example a just-saved controller) to the index without a full rescan.",
	}, s.handleApplyChange)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "counts",
		Description: "Number of indexed files and routes.",
	}, s.handleCounts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Project identity, index size and cache state.",
	}, s.handleStatus)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 5))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}
	mode, err := search.ParseMode(in.Mode)
	if err != nil {
		return nil, SearchOutput{}, NewInvalidParamsError(err.Error())
	}
	limit := clampLimit(in.Limit, defaultLimit, 1, maxLimit)

	start := time.Now()
	requestID := generateRequestID()
	results, err := s.index.Search(ctx, in.Query, mode)
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Query: in.Query, Mode: string(mode), Results: make([]SearchResultItem, 0, min(len(results), limit))}
	if len(results) > limit {
		results, out.Truncated = results[:limit], true
	}
	for _, r := range results {
		out.Results = append(out.Results, toResultItem(r))
	}

	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.String("mode", string(mode)),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))

	return textResult(FormatResults(in.Query, mode, results, out.Truncated)), out, nil
}

func (s *Server) handleRefresh(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshInput) (*mcp.CallToolResult, RefreshOutput, error) {
	stats, err := s.index.Refresh(ctx, nil)
	if err != nil {
		return nil, RefreshOutput{}, MapError(err)
	}
	out := RefreshOutput{
		Files:      stats.Files,
		Routes:     stats.Routes,
		Sources:    stats.Sources,
		Failures:   stats.Failures,
		DurationMs: stats.Duration.Milliseconds(),
	}
	return textResult(fmt.Sprintf("Indexed %d files and %d routes from %d sources in %dms.",
		out.Files, out.Routes, out.Sources, out.DurationMs)), out, nil
}

func (s *Server) handleApplyChange(ctx context.Context, _ *mcp.CallToolRequest, in ApplyChangeInput) (*mcp.CallToolResult, CountsOutput, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, CountsOutput{}, NewInvalidParamsError("path is required")
	}
	kind := watcher.Modified
	if in.Kind != "" {
		k, ok := watcher.ParseChangeKind(strings.ToLower(in.Kind))
		if !ok {
			return nil, CountsOutput{}, NewInvalidParamsError(fmt.Sprintf("unknown change kind %q (want created, modified or deleted)", in.Kind))
		}
		kind = k
	}

	path := in.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.index.Root(), filepath.FromSlash(path))
	}
	if err := s.index.ApplyChange(ctx, path, kind); err != nil {
		return nil, CountsOutput{}, MapError(err)
	}

	s.logger.Info("mcp_apply_change",
		slog.String("path", path),
		slog.String("kind", kind.String()))
	return nil, countsOutput(s.index.Counts()), nil
}

func (s *Server) handleCounts(_ context.Context, _ *mcp.CallToolRequest, _ CountsInput) (*mcp.CallToolResult, CountsOutput, error) {
	return nil, countsOutput(s.index.Counts()), nil
}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	st := s.index.Status(ctx)
	out := StatusOutput{
		Project:         *NewProjectDetector(st.Root, s.logger).Detect(),
		Loaded:          st.Loaded,
		Files:           st.Files,
		Routes:          st.Routes,
		FileCacheValid:  st.FileCacheValid,
		RouteCacheValid: st.RouteCacheValid,
	}
	if !st.LastRefresh.IsZero() {
		out.LastRefresh = st.LastRefresh.Format(time.RFC3339)
	}
	return nil, out, nil
}

// Serve runs the server over stdio until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func countsOutput(c navigator.Counts) CountsOutput {
	return CountsOutput{Files: c.Files, Routes: c.Routes, Generation: c.Generation}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// generateRequestID creates a short id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
