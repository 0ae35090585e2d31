package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes the index of one workspace.
type StatusInfo struct {
	Root   string `json:"root"`
	Files  int    `json:"files"`
	Routes int    `json:"routes"`

	FileCacheValid  bool      `json:"file_cache_valid"`
	RouteCacheValid bool      `json:"route_cache_valid"`
	FileCacheScan   time.Time `json:"file_cache_scan,omitzero"`
	RouteCacheScan  time.Time `json:"route_cache_scan,omitzero"`

	CachePath  string `json:"cache_path,omitempty"`
	CacheBytes int64  `json:"cache_bytes,omitempty"`

	// Watcher is "running", "stopped" or empty when unknown.
	Watcher string `json:"watcher,omitempty"`
}

// StatusRenderer writes StatusInfo for humans or as JSON.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor), now: time.Now}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	w := &errWriter{w: r.out}
	w.printf("%s\n\n", r.styles.Header.Render("Index: "+info.Root))
	w.printf("  Files:  %d\n", info.Files)
	w.printf("  Routes: %d\n\n", info.Routes)

	w.printf("  Cache:\n")
	w.printf("    Files:  %s\n", r.cacheState(info.FileCacheValid, info.FileCacheScan))
	w.printf("    Routes: %s\n", r.cacheState(info.RouteCacheValid, info.RouteCacheScan))
	if info.CachePath != "" {
		w.printf("    Path:   %s (%s)\n", info.CachePath, FormatBytes(info.CacheBytes))
	}

	if info.Watcher != "" {
		w.printf("\n  Watcher: %s\n", r.renderState(info.Watcher))
	}
	return w.err
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) cacheState(valid bool, scanned time.Time) string {
	if scanned.IsZero() {
		return r.styles.Dim.Render("empty")
	}
	age := formatAge(r.now().Sub(scanned), scanned)
	if !valid {
		return r.styles.Warning.Render("stale") + " (" + age + ")"
	}
	return r.styles.Success.Render("valid") + " (" + age + ")"
}

func (r *StatusRenderer) renderState(state string) string {
	switch state {
	case "running", "valid":
		return r.styles.Success.Render(state)
	case "stopped", "stale":
		return r.styles.Warning.Render(state)
	default:
		return state
	}
}

// formatAge renders how long ago t was, falling back to a date after a week.
func formatAge(diff time.Duration, t time.Time) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes renders a byte count with one decimal.
func FormatBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
