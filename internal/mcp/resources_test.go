package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/telemetry"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestHandleReadFile_ReturnsContent(t *testing.T) {
	// Given
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "demo"), 0o755))
	body := "@RestController\nclass OrderController {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "demo", "Order Controller.java"), []byte(body), 0o644))
	srv := newTestServer(t, &fakeIndex{root: root})

	// When: the URI carries an escaped space
	res, err := srv.handleReadFile(context.Background(), readRequest("routenav://file/src/demo/Order%20Controller.java"))

	// Then
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "routenav://file/src/demo/Order Controller.java", res.Contents[0].URI)
	assert.Equal(t, "text/x-java", res.Contents[0].MIMEType)
	assert.Equal(t, body, res.Contents[0].Text)
}

func TestHandleReadFile_Errors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(strings.Repeat("x", MaxResourceSize+1)), 0o644))
	srv := newTestServer(t, &fakeIndex{root: root})

	tests := []struct {
		name     string
		uri      string
		wantCode int
	}{
		{"traversal", "routenav://file/../etc/passwd", ErrCodeInvalidParams},
		{"nested traversal", "routenav://file/src/../../secret", ErrCodeInvalidParams},
		{"absolute", "routenav://file//etc/passwd", ErrCodeInvalidParams},
		{"missing", "routenav://file/gone.java", ErrCodeFileNotFound},
		{"directory", "routenav://file/src", ErrCodeInvalidParams},
		{"too large", "routenav://file/big.txt", ErrCodeFileTooLarge},
		{"foreign scheme", "file:///etc/passwd", ErrCodeMethodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.handleReadFile(context.Background(), readRequest(tt.uri))

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.wantCode, mcpErr.Code)
		})
	}
}

func TestHandleReadFile_SymlinkOutsideRoot(t *testing.T) {
	// Given: links inside the root pointing at a file and a directory outside it
	root, outside := t.TempDir(), t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("token"), 0o644))
	if err := os.Symlink(secret, filepath.Join(root, "leak.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	srv := newTestServer(t, &fakeIndex{root: root})

	for _, uri := range []string{"routenav://file/leak.txt", "routenav://file/linked/secret.txt"} {
		t.Run(uri, func(t *testing.T) {
			// When
			res, err := srv.handleReadFile(context.Background(), readRequest(uri))

			// Then: the target is never served
			assert.Nil(t, res)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestHandleReadFile_SymlinkInsideRoot(t *testing.T) {
	// Given: a link to a file that stays inside the root
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "App.java"), []byte("class App {}"), 0o644))
	if err := os.Symlink(filepath.Join(root, "App.java"), filepath.Join(root, "Alias.java")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	srv := newTestServer(t, &fakeIndex{root: root})

	// When
	res, err := srv.handleReadFile(context.Background(), readRequest("routenav://file/Alias.java"))

	// Then
	require.NoError(t, err)
	assert.Equal(t, "class App {}", res.Contents[0].Text)
}

func TestHandleReadFile_ExcludedFile(t *testing.T) {
	// Given: a VCS file on disk that the index never picked up
	root := t.TempDir()
	config := filepath.Join(root, ".git", "config")
	require.NoError(t, os.MkdirAll(filepath.Dir(config), 0o755))
	require.NoError(t, os.WriteFile(config, []byte("[remote \"origin\"]"), 0o644))
	srv := newTestServer(t, &fakeIndex{root: root, unindexed: map[string]bool{config: true}})

	// When
	res, err := srv.handleReadFile(context.Background(), readRequest("routenav://file/.git/config"))

	// Then
	assert.Nil(t, res)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeFileNotFound, mcpErr.Code)
}

func TestIsValidPath(t *testing.T) {
	assert.True(t, isValidPath("src/Main.java"))
	assert.True(t, isValidPath("a/./b"))
	assert.False(t, isValidPath(""))
	assert.False(t, isValidPath("/abs"))
	assert.False(t, isValidPath("C:/windows"))
	assert.False(t, isValidPath(".."))
	assert.False(t, isValidPath("a/../../b"))
}

func TestFileURI(t *testing.T) {
	assert.Equal(t, "routenav://file/src/A.java", FileURI(filepath.Join("src", "A.java")))
}

func TestHandleQueryMetrics(t *testing.T) {
	// Given
	srv := newTestServer(t, &fakeIndex{})
	m := telemetry.NewQueryMetrics()
	m.Record(telemetry.QueryEvent{Query: "orders", Mode: "route", ResultCount: 2, Latency: 3 * time.Millisecond, Timestamp: time.Now()})
	m.Record(telemetry.QueryEvent{Query: "nothing", Mode: "file", ResultCount: 0, Latency: time.Millisecond, Timestamp: time.Now()})
	srv.SetMetrics(m)

	// When
	res, err := srv.handleQueryMetrics(context.Background(), readRequest(queryMetricsURI))

	// Then
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, jsonMIMEType, res.Contents[0].MIMEType)

	var out QueryMetricsOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	assert.Equal(t, int64(2), out.Summary.TotalQueries)
	assert.InDelta(t, 50.0, out.Summary.ZeroResultPct, 0.001)
	assert.Equal(t, int64(1), out.ModeCounts["route"])
	assert.Equal(t, int64(1), out.ModeCounts["file"])
	assert.Contains(t, out.ZeroResultQueries, "nothing")
}

func TestHandleQueryMetrics_Unavailable(t *testing.T) {
	srv := newTestServer(t, &fakeIndex{})

	_, err := srv.handleQueryMetrics(context.Background(), readRequest(queryMetricsURI))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}
