// Package search ranks files and routes against a free-text query.
//
// File search runs a stack of layers (path-structural, name substring,
// short-token, weighted fuzzy) and returns the first layer that produces
// anything; when every layer is empty the first files in scan order are
// returned so a caller never shows an empty list for a non-empty index.
// Route search handles wildcard patterns, bidirectional substring matches
// and weighted fuzzy matching with a typo-tolerant tail.
package search

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/routenav/internal/store"
)

// Mode selects which entity sets a query runs against.
type Mode string

const (
	ModeFile  Mode = "file"
	ModeRoute Mode = "route"
	ModeMixed Mode = "mixed"
)

// ParseMode resolves a user-supplied mode name. The empty string is mixed.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mixed", "all":
		return ModeMixed, nil
	case "file", "files":
		return ModeFile, nil
	case "route", "routes", "endpoint", "endpoints":
		return ModeRoute, nil
	}
	return "", fmt.Errorf("unknown search mode %q (want file, route or mixed)", s)
}

// Kind tells which entity a Result wraps.
type Kind string

const (
	KindFile  Kind = "file"
	KindRoute Kind = "route"
)

// Result is one ranked, display-ready hit.
type Result struct {
	Kind        Kind   `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	// Path is the absolute file to open and Line the 1-based line (0 for files).
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`

	File  *store.FileEntity  `json:"file,omitempty"`
	Route *store.RouteEntity `json:"route,omitempty"`
}

// Corpus is a read-only view of the indexed entities. Generation changes on
// every mutation of either set and keys the result cache.
type Corpus struct {
	Files      []store.FileEntity
	Routes     []store.RouteEntity
	Generation uint64
}
