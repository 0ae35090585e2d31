package index

import (
	"path/filepath"
	"sync"

	"github.com/Aman-CERP/routenav/internal/store"
)

// Set is the live in-memory entity set searched by queries. Files keep
// their scan order; an upsert of a known path replaces it in place.
type Set struct {
	mu         sync.RWMutex
	files      []store.FileEntity
	fileIdx    map[string]int
	routes     []store.RouteEntity
	routeFiles map[string]int
	loaded     bool
	generation uint64
}

// NewSet creates an empty, unloaded set.
func NewSet() *Set {
	return &Set{
		fileIdx:    make(map[string]int),
		routeFiles: make(map[string]int),
	}
}

// Loaded reports whether the set was populated by a cache read or a scan.
func (s *Set) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Generation changes on every mutation.
func (s *Set) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Files returns a copy of the file entities in scan order.
func (s *Set) Files() []store.FileEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.FileEntity(nil), s.files...)
}

// Routes returns a copy of the route entities.
func (s *Set) Routes() []store.RouteEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.RouteEntity(nil), s.routes...)
}

// Snapshot returns both entity lists and the generation they belong to.
// The slices are shared and must not be modified.
func (s *Set) Snapshot() ([]store.FileEntity, []store.RouteEntity, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files, s.routes, s.generation
}

// Counts returns the number of files and routes held.
func (s *Set) Counts() (files, routes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files), len(s.routes)
}

// File returns the entity stored for path.
func (s *Set) File(path string) (store.FileEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.fileIdx[path]
	if !ok {
		return store.FileEntity{}, false
	}
	return s.files[i], true
}

// RoutesFor returns the routes declared in path.
func (s *Set) RoutesFor(path string) []store.RouteEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.RouteEntity
	for _, r := range s.routes {
		if r.SourceFilePath == path {
			out = append(out, r)
		}
	}
	return out
}

// HasRoutes reports whether path contributes at least one route.
func (s *Set) HasRoutes(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routeFiles[path] > 0
}

// SetFiles replaces every file entity.
func (s *Set) SetFiles(files []store.FileEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = dedupeFiles(files)
	s.reindexFiles()
	s.loaded = true
	s.generation++
}

// SetRoutes replaces every route entity.
func (s *Set) SetRoutes(routes []store.RouteEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes = append([]store.RouteEntity(nil), routes...)
	s.reindexRoutes()
	s.loaded = true
	s.generation++
}

// UpsertFile inserts f or replaces the entity with the same FullPath.
func (s *Set) UpsertFile(f store.FileEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.fileIdx[f.FullPath]; ok {
		// copy on write: Snapshot hands out the current slice
		files := append([]store.FileEntity(nil), s.files...)
		files[i] = f
		s.files = files
	} else {
		s.fileIdx[f.FullPath] = len(s.files)
		s.files = append(s.files, f)
	}
	s.generation++
}

// RemoveFile drops the entity for path. It reports whether one existed.
func (s *Set) RemoveFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fileIdx[path]; !ok {
		return false
	}
	s.files = removeFiles(s.files, func(f store.FileEntity) bool { return f.FullPath == path })
	s.reindexFiles()
	s.generation++
	return true
}

// RemoveTree drops every file below dir and returns their paths.
func (s *Set) RemoveTree(dir string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := dir + pathSeparator
	var removed []string
	s.files = removeFiles(s.files, func(f store.FileEntity) bool {
		if len(f.FullPath) > len(prefix) && f.FullPath[:len(prefix)] == prefix {
			removed = append(removed, f.FullPath)
			return true
		}
		return false
	})
	if len(removed) > 0 {
		s.reindexFiles()
		s.generation++
	}
	return removed
}

// ReplaceRoutes removes every route of path, then appends routes.
func (s *Set) ReplaceRoutes(path string, routes []store.RouteEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.routes[:0:0]
	for _, r := range s.routes {
		if r.SourceFilePath != path {
			kept = append(kept, r)
		}
	}
	s.routes = append(kept, routes...)
	s.reindexRoutes()
	s.generation++
}

// RemoveRoutes drops every route of path.
func (s *Set) RemoveRoutes(path string) bool {
	if !s.HasRoutes(path) {
		return false
	}
	s.ReplaceRoutes(path, nil)
	return true
}

const pathSeparator = string(filepath.Separator)

func (s *Set) reindexFiles() {
	s.fileIdx = make(map[string]int, len(s.files))
	for i, f := range s.files {
		s.fileIdx[f.FullPath] = i
	}
}

func (s *Set) reindexRoutes() {
	s.routeFiles = make(map[string]int)
	for _, r := range s.routes {
		s.routeFiles[r.SourceFilePath]++
	}
}

func removeFiles(files []store.FileEntity, drop func(store.FileEntity) bool) []store.FileEntity {
	out := files[:0:0]
	for _, f := range files {
		if !drop(f) {
			out = append(out, f)
		}
	}
	return out
}

// dedupeFiles keeps the last entity for each FullPath at the position of
// its first occurrence.
func dedupeFiles(files []store.FileEntity) []store.FileEntity {
	idx := make(map[string]int, len(files))
	out := make([]store.FileEntity, 0, len(files))
	for _, f := range files {
		if i, ok := idx[f.FullPath]; ok {
			out[i] = f
			continue
		}
		idx[f.FullPath] = len(out)
		out = append(out, f)
	}
	return out
}
