package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/internal/store"
)

func file(path string) store.FileEntity {
	return store.FileEntity{Name: filepath.Base(path), FullPath: path}
}

func TestSet_SetFiles_DeduplicatesByPath(t *testing.T) {
	// Given: a scan result listing one path twice
	s := NewSet()
	a := file("/ws/a.go")
	b := file("/ws/b.go")
	a2 := a
	a2.Size = 42

	// When: it is loaded
	s.SetFiles([]store.FileEntity{a, b, a2})

	// Then: one entity per path survives, in first-seen position
	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, int64(42), files[0].Size)
	assert.True(t, s.Loaded())
}

func TestSet_UpsertFile_ReplacesInPlace(t *testing.T) {
	// Given: two files
	s := NewSet()
	s.SetFiles([]store.FileEntity{file("/ws/a.go"), file("/ws/b.go")})
	shared, _, gen := s.Snapshot()

	// When: the first is upserted with new content
	updated := file("/ws/a.go")
	updated.Size = 7
	s.UpsertFile(updated)

	// Then: order is kept, the generation moves, and earlier snapshots are untouched
	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, int64(7), files[0].Size)
	assert.Equal(t, int64(0), shared[0].Size)
	assert.NotEqual(t, gen, s.Generation())
}

func TestSet_RemoveTree(t *testing.T) {
	// Given: files inside and beside a directory with a shared prefix
	s := NewSet()
	in := filepath.Join("/ws", "api", "a.go")
	beside := filepath.Join("/ws", "apiv2", "b.go")
	s.SetFiles([]store.FileEntity{file(in), file(beside)})

	// When: the directory is removed
	removed := s.RemoveTree(filepath.Join("/ws", "api"))

	// Then: only the file inside it goes
	assert.Equal(t, []string{in}, removed)
	files, _ := s.Counts()
	assert.Equal(t, 1, files)
}

func TestSet_ReplaceRoutes(t *testing.T) {
	// Given: routes from two files
	s := NewSet()
	s.SetRoutes([]store.RouteEntity{
		{URL: "/a", SourceFilePath: "/ws/A.java"},
		{URL: "/b", SourceFilePath: "/ws/B.java"},
		{URL: "/a2", SourceFilePath: "/ws/A.java"},
	})

	// When: A.java is replaced by one route
	s.ReplaceRoutes("/ws/A.java", []store.RouteEntity{{URL: "/new", SourceFilePath: "/ws/A.java"}})

	// Then: B is untouched and A has exactly the new route
	assert.Len(t, s.RoutesFor("/ws/A.java"), 1)
	assert.Len(t, s.RoutesFor("/ws/B.java"), 1)
	assert.True(t, s.RemoveRoutes("/ws/A.java"))
	assert.False(t, s.RemoveRoutes("/ws/A.java"))
	assert.False(t, s.HasRoutes("/ws/A.java"))
}
