package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

const orderController = `package demo;

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

// newProject creates a project with one controller and isolates the user
// config, logs and cache under a temp home.
func newProject(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("ROUTENAV_CACHE_PATH", filepath.Join(home, "cache.db"))
	t.Setenv("NO_COLOR", "1")

	root := t.TempDir()
	writeFile(t, root, "src/demo/OrderController.java", orderController)
	writeFile(t, root, "README.md", "# shop")
	writeFile(t, root, "target/classes/Generated.java", orderController)
	return root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// run executes the CLI with args and returns everything it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	out, err := run(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "routenav")
	for _, sub := range []string{"search", "refresh", "status", "clear-cache", "watch", "serve", "init", "logs", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_RootMustBeDirectory(t *testing.T) {
	root := newProject(t)

	_, err := run(t, "--root", filepath.Join(root, "README.md"), "status")

	require.Error(t, err)
	assert.Equal(t, rerrors.ErrCodeInvalidPath, rerrors.GetCode(err))
}

func TestRootCmd_InvalidProjectConfig(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, ".routenav.yaml", "cache:\n  backend: redis\n")

	_, err := run(t, "--root", root, "status")

	require.Error(t, err)
	assert.Equal(t, rerrors.ErrCodeConfigInvalid, rerrors.GetCode(err))
}

func TestRootCmd_ProfilesWritten(t *testing.T) {
	root := newProject(t)
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.pprof")

	_, err := run(t, "--root", root, "--profile-mem", heap, "refresh", "--json")

	require.NoError(t, err)
	assert.FileExists(t, heap)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, rerrors.ValidationError("--limit must not be negative", nil))
	assert.Contains(t, buf.String(), "Error: --limit must not be negative")
	assert.Contains(t, buf.String(), "Code: "+rerrors.ErrCodeInvalidInput)

	buf.Reset()
	printError(&buf, errors.New(`unknown flag: --bogus`))
	assert.Equal(t, "Error: unknown flag: --bogus\n", buf.String())
}
