// Package scanner enumerates the project tree and stats single paths,
// producing store.FileEntity values. Which paths are visited is decided by
// a Filter; the two filters routenav uses are the exclude policy for the
// file index and the route-source policy for the parser.
package scanner

import (
	"github.com/Aman-CERP/routenav/internal/store"
)

// Filter decides which paths a walk yields. Both methods receive the path
// relative to the scan root with "/" separators.
type Filter interface {
	// Accept reports whether a file is yielded.
	Accept(rel string) bool
	// PruneDir reports whether a directory is skipped entirely.
	PruneDir(rel string) bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *store.FileEntity
	Error error
}

// ScanOptions configures one walk.
type ScanOptions struct {
	Filter Filter
	// FollowSymlinks yields symlinked files (default: false).
	FollowSymlinks bool
	// ProgressFunc is called every ProgressEvery files with the running count.
	ProgressFunc  func(scanned int)
	ProgressEvery int
}
