// Package store holds the indexed entities and their persisted snapshots.
// A snapshot is a best-effort copy that can always be rebuilt by a full scan;
// nothing in here is a source of truth.
package store

import (
	"path/filepath"
	"strconv"
	"time"
)

// Snapshot keys in the backend.
const (
	FileSnapshotKey  = "file-index-cache"
	RouteSnapshotKey = "endpoint-cache"
)

// Entity is anything an EntityCache can hold. GroupKey is the path the
// entity belongs to: the file itself for a FileEntity, the source file for
// a RouteEntity.
type Entity interface {
	GroupKey() string
	// ModTime is the modification time recorded for the group.
	// Zero means "use the time the entity was stored".
	ModTime() time.Time
}

// FileEntity is one indexed file.
type FileEntity struct {
	Name         string    `json:"name"`
	FullPath     string    `json:"full_path"`
	RelativePath string    `json:"relative_path"`
	Extension    string    `json:"extension"`
	Folder       string    `json:"folder"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// GroupKey implements Entity.
func (f FileEntity) GroupKey() string { return f.FullPath }

// ModTime implements Entity.
func (f FileEntity) ModTime() time.Time { return f.LastModified }

// RouteEntity is one HTTP endpoint declared in a source file.
type RouteEntity struct {
	URL                string `json:"url"`
	HTTPMethod         string `json:"http_method"`
	OwnerClassName     string `json:"owner_class_name"`
	MemberName         string `json:"member_name"`
	DeclaredAtLine     int    `json:"declared_at_line"`
	SourceFileName     string `json:"source_file_name"`
	SourceFilePath     string `json:"source_file_path"`
	DescriptionComment string `json:"description_comment,omitempty"`
}

// GroupKey implements Entity.
func (r RouteEntity) GroupKey() string { return r.SourceFilePath }

// ModTime implements Entity. Routes carry no timestamp of their own.
func (r RouteEntity) ModTime() time.Time { return time.Time{} }

// Location renders the route's source position as file:line.
func (r RouteEntity) Location() string {
	return r.SourceFileName + ":" + strconv.Itoa(r.DeclaredAtLine)
}

// Signature renders Owner.member().
func (r RouteEntity) Signature() string {
	return r.OwnerClassName + "." + r.MemberName + "()"
}

// Snapshot is the persisted form of one entity set.
type Snapshot[T any] struct {
	Entities   []T                  `json:"entities"`
	LastScan   time.Time            `json:"last_scan"`
	OriginRoot string               `json:"origin_root"`
	ModTimes   map[string]time.Time `json:"mod_times"`
}

// NormalizeRoot cleans a workspace root so that snapshots taken from
// "./x" and "/abs/x" compare equal.
func NormalizeRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(root)
}
