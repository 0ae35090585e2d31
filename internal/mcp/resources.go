package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/routenav/internal/scanner"
)

// MaxResourceSize is the maximum file size served as a resource (1MB).
const MaxResourceSize = 1024 * 1024

const (
	fileURIPrefix   = "routenav://file/"
	fileURITemplate = fileURIPrefix + "{+path}"
	queryMetricsURI = "routenav://query_metrics"
	jsonMIMEType    = "application/json"
)

// FileURI returns the resource URI of a root-relative path.
func FileURI(rel string) string {
	return fileURIPrefix + filepath.ToSlash(rel)
}

func (s *Server) registerFileResource() {
	s.mcp.AddResourceTemplate(
		&mcp.ResourceTemplate{
			Name:        "project_file",
			URITemplate: fileURITemplate,
			Description: "Content of a project file, addressed by its root-relative path (for example a search hit).",
		},
		s.handleReadFile,
	)
}

func (s *Server) handleReadFile(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, fileURIPrefix) {
		return nil, NewResourceNotFoundError(uri)
	}
	rel, err := url.PathUnescape(strings.TrimPrefix(uri, fileURIPrefix))
	if err != nil || !isValidPath(rel) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid path: %s", rel))
	}
	return s.readFile(rel)
}

// readFile reads a root-relative file, refusing anything that resolves
// outside the root, is not in the live index, or is larger than
// MaxResourceSize.
func (s *Server) readFile(rel string) (*mcp.ReadResourceResult, error) {
	root := s.index.Root()
	full := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MCPError{Code: ErrCodeFileNotFound, Message: fmt.Sprintf("file not found: %s", rel)}
		}
		return nil, MapError(err)
	}
	if info.IsDir() {
		return nil, NewInvalidParamsError(fmt.Sprintf("not a file: %s", rel))
	}
	if !confined(root, full) {
		return nil, NewInvalidParamsError(fmt.Sprintf("path escapes the workspace: %s", rel))
	}
	// excluded and unscanned files are not served
	if !s.index.Indexed(full) {
		return nil, &MCPError{Code: ErrCodeFileNotFound, Message: fmt.Sprintf("file not indexed: %s", rel)}
	}
	if info.Size() > MaxResourceSize {
		return nil, &MCPError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), MaxResourceSize),
		}
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      FileURI(rel),
			MIMEType: MimeTypeForPath(rel),
			Text:     string(content),
		}},
	}, nil
}

// confined reports whether full still lies under root once symlinks on
// both sides are resolved.
func confined(root, full string) bool {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return false
	}
	_, ok := scanner.Rel(resolvedRoot, resolved)
	return ok
}

// isValidPath reports whether path is relative and stays inside the root.
func isValidPath(path string) bool {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}
	// Windows drive letters
	if len(path) >= 2 && path[1] == ':' {
		return false
	}
	cleaned := filepath.Clean(filepath.FromSlash(path))
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return false
		}
	}
	return true
}

// QueryMetricsOutput is the JSON body of the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	ModeCounts          map[string]int64    `json:"mode_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary gives overview statistics.
type QueryMetricsSummary struct {
	TotalQueries     int64   `json:"total_queries"`
	ZeroResultPct    float64 `json:"zero_result_pct"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	ExactRepeatCount int64   `json:"exact_repeat_count"`
	Since            string  `json:"since"`
}

// QueryTermCount is a query term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "Search telemetry: modes, frequent terms, zero-result queries and latency",
			MIMEType:    jsonMIMEType,
		},
		s.handleQueryMetrics,
	)
}

func (s *Server) handleQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snap := metrics.Snapshot()
	out := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:     snap.TotalQueries,
			ZeroResultPct:    snap.ZeroResultPercentage(),
			CacheHitRate:     snap.CacheHitRate(),
			ExactRepeatCount: snap.ExactRepeatCount,
		},
		ModeCounts:          make(map[string]int64, len(snap.ModeCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snap.TopTerms)),
		ZeroResultQueries:   snap.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snap.LatencyDistribution)),
	}
	if !snap.Since.IsZero() {
		out.Summary.Since = snap.Since.Format(time.RFC3339)
	}
	for mode, n := range snap.ModeCounts {
		out.ModeCounts[mode] = n
	}
	for _, tc := range snap.TopTerms {
		out.TopTerms = append(out.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, n := range snap.LatencyDistribution {
		out.LatencyDistribution[string(bucket)] = n
	}
	if out.ZeroResultQueries == nil {
		out.ZeroResultQueries = []string{}
	}

	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      queryMetricsURI,
			MIMEType: jsonMIMEType,
			Text:     string(content),
		}},
	}, nil
}
