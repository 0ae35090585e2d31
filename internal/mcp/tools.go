package mcp

import "github.com/Aman-CERP/routenav/internal/search"

// SearchInput is the input of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"file name, path fragment or route URL; * matches any run of characters in routes"`
	Mode  string `json:"mode,omitempty" jsonschema:"file, route or mixed (default mixed)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SearchOutput is the output of the search tool.
type SearchOutput struct {
	Query   string             `json:"query"`
	Mode    string             `json:"mode"`
	Results []SearchResultItem `json:"results"`
	// Truncated is set when more results matched than Limit.
	Truncated bool `json:"truncated,omitempty"`
}

// SearchResultItem is one search hit.
type SearchResultItem struct {
	Kind        string `json:"kind" jsonschema:"file or route"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	Path        string `json:"path" jsonschema:"absolute path of the file to open"`
	Line        int    `json:"line,omitempty" jsonschema:"1-based line of the route handler"`
	Method      string `json:"method,omitempty"`
	URL         string `json:"url,omitempty"`
}

// RefreshInput is the input of the refresh tool (no parameters).
type RefreshInput struct{}

// RefreshOutput is the output of the refresh tool.
type RefreshOutput struct {
	Files      int   `json:"files"`
	Routes     int   `json:"routes"`
	Sources    int   `json:"sources" jsonschema:"number of route source files parsed"`
	Failures   int   `json:"failures" jsonschema:"route sources that could not be parsed"`
	DurationMs int64 `json:"duration_ms"`
}

// ApplyChangeInput is the input of the apply_change tool.
type ApplyChangeInput struct {
	Path string `json:"path" jsonschema:"absolute or root-relative path of the changed file"`
	Kind string `json:"kind,omitempty" jsonschema:"created, modified or deleted (default modified)"`
}

// CountsInput is the input of the counts tool (no parameters).
type CountsInput struct{}

// CountsOutput is the size of the index.
type CountsOutput struct {
	Files      int    `json:"files"`
	Routes     int    `json:"routes"`
	Generation uint64 `json:"generation" jsonschema:"changes on every index mutation"`
}

// StatusInput is the input of the status tool (no parameters).
type StatusInput struct{}

// StatusOutput describes the project and its index.
type StatusOutput struct {
	Project         ProjectInfo `json:"project"`
	Loaded          bool        `json:"loaded"`
	Files           int         `json:"files"`
	Routes          int         `json:"routes"`
	FileCacheValid  bool        `json:"file_cache_valid"`
	RouteCacheValid bool        `json:"route_cache_valid"`
	LastRefresh     string      `json:"last_refresh,omitempty"`
}

// ProjectInfo identifies the indexed project.
type ProjectInfo struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
	Type     string `json:"type"`
}

// toResultItem converts a search result to its wire form.
func toResultItem(r search.Result) SearchResultItem {
	item := SearchResultItem{
		Kind:        string(r.Kind),
		Label:       r.Label,
		Description: r.Description,
		Detail:      r.Detail,
		Path:        r.Path,
		Line:        r.Line,
	}
	if r.Route != nil {
		item.Method = r.Route.HTTPMethod
		item.URL = r.Route.URL
	}
	return item
}
