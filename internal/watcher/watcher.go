package watcher

import (
	"time"
)

// ChangeKind is the kind of a filesystem change. The numeric order is the
// order in which kinds queued for one path are applied.
type ChangeKind int

const (
	// Deleted indicates the path was removed or renamed away.
	Deleted ChangeKind = iota
	// Created indicates a new file or directory appeared.
	Created
	// Modified indicates an existing file was written.
	Modified
)

// String returns a human-readable representation of the kind.
func (k ChangeKind) String() string {
	switch k {
	case Deleted:
		return "deleted"
	case Created:
		return "created"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// ParseChangeKind converts a kind name as produced by String.
func ParseChangeKind(s string) (ChangeKind, bool) {
	switch s {
	case "deleted", "delete", "removed":
		return Deleted, true
	case "created", "create":
		return Created, true
	case "modified", "modify", "changed", "saved":
		return Modified, true
	}
	return 0, false
}

// FileEvent is one raw filesystem event before debouncing.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path string

	Kind ChangeKind

	IsDir bool

	Timestamp time.Time
}

// Options configures the watcher and its debouncer.
type Options struct {
	// Debounce is the quiet period after the last event before a drain.
	// Default: 1.2s
	Debounce time.Duration

	// MaxPending drains early once this many paths are queued.
	// Default: 10000
	MaxPending int

	// ErrorBufferSize is the size of the error channel buffer.
	// Default: 10
	ErrorBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:        1200 * time.Millisecond,
		MaxPending:      10000,
		ErrorBufferSize: 10,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if o.MaxPending <= 0 {
		o.MaxPending = defaults.MaxPending
	}
	if o.ErrorBufferSize <= 0 {
		o.ErrorBufferSize = defaults.ErrorBufferSize
	}
	return o
}
