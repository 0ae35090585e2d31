// Package integration exercises the cache store, navigator, watcher and MCP
// server together against a real project tree on disk.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/config"
	"github.com/Aman-CERP/routenav/internal/logging"
	"github.com/Aman-CERP/routenav/internal/navigator"
	"github.com/Aman-CERP/routenav/internal/routes"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/telemetry"
)

const orderController = `package shop;

@RestController
@RequestMapping("/api/orders")
public class OrderController {
    /** Lists every order. */
    @GetMapping("/list")
    public String list() { return ""; }

    @PostMapping("/create")
    public String create() { return ""; }
}
`

const invoiceController = `package shop;

@RestController
@RequestMapping("/api/invoices")
public class InvoiceController {
    @GetMapping({"/{id}", "/by-number/{number}"})
    public String get() { return ""; }
}
`

// countingParser counts the route sources parsed through it.
type countingParser struct {
	inner routes.Parser
	calls atomic.Int64
}

func (p *countingParser) Parse(ctx context.Context, path string) ([]store.RouteEntity, error) {
	p.calls.Add(1)
	return p.inner.Parse(ctx, path)
}

// workspace is one project root plus the SQLite cache file it indexes into.
type workspace struct {
	root      string
	cachePath string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ws := &workspace{
		root:      t.TempDir(),
		cachePath: filepath.Join(t.TempDir(), "cache.db"),
	}
	ws.write(t, "shop/src/main/java/shop/OrderController.java", orderController)
	ws.write(t, "pom.xml", "<project><artifactId>shop</artifactId></project>")
	ws.write(t, "README.md", "# shop")
	ws.write(t, "shop/target/classes/Stale.java", invoiceController)
	ws.write(t, "node_modules/left-pad/index.js", "module.exports = 1")
	return ws
}

func (ws *workspace) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(ws.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// session is a navigator over an opened store, as one routenav process
// would hold it.
type session struct {
	nav     *navigator.Navigator
	store   *store.IndexStore
	parser  *countingParser
	queries *telemetry.QueryMetrics
}

func (ws *workspace) open(t *testing.T) *session {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Watch.Debounce = 50 * time.Millisecond

	st, err := store.Open(store.Options{
		Root:    ws.root,
		Path:    ws.cachePath,
		Backend: "sqlite",
		Timeout: time.Hour,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)

	s := &session{
		store:   st,
		parser:  &countingParser{inner: routes.NewJavaParser(routes.DefaultMaxFileSize)},
		queries: telemetry.NewQueryMetrics(),
	}
	s.nav, err = navigator.New(navigator.Options{
		Root:         ws.root,
		Config:       cfg,
		Store:        st,
		Parser:       s.parser,
		Metrics:      telemetry.NewMetrics(),
		QueryMetrics: s.queries,
		Logger:       logging.Discard(),
		Workers:      2,
	})
	require.NoError(t, err)
	return s
}

func (s *session) close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.store.Close(ctx))
}
