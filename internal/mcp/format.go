package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/routenav/internal/search"
)

// FormatResults renders search results as markdown for the text content
// of the search tool.
func FormatResults(query string, mode search.Mode, results []search.Result, truncated bool) string {
	var sb strings.Builder

	if len(results) == 0 {
		fmt.Fprintf(&sb, "No matches for `%s` (%s).\n\n", query, mode)
		sb.WriteString("Try a shorter fragment, a `*` wildcard in route queries, or the `refresh` tool if files were added outside the editor.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "## %d results for `%s` (%s)\n\n", len(results), query, mode)
	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	if truncated {
		sb.WriteString("\n_More results matched; raise `limit` or refine the query._\n")
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r search.Result) {
	fmt.Fprintf(sb, "%d. **%s**", num, r.Label)
	if r.Description != "" {
		fmt.Fprintf(sb, " %s", r.Description)
	}
	sb.WriteString("\n")
	if r.Detail != "" {
		fmt.Fprintf(sb, "   `%s`\n", r.Detail)
	}
}

// clampLimit returns defaultVal for non-positive limits and bounds the
// rest to [lo, hi].
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	return max(lo, min(limit, hi))
}
