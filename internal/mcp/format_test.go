package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/routenav/internal/search"
)

func TestFormatResults_Routes(t *testing.T) {
	// Given
	results := []search.Result{
		{Kind: search.KindRoute, Label: "GET /api/orders/list", Description: "OrderController.list() - Lists every order.", Detail: "OrderController.java:12"},
		{Kind: search.KindFile, Label: "OrderController.java", Detail: "src/demo"},
	}

	// When
	out := FormatResults("orders", search.ModeMixed, results, false)

	// Then
	assert.Contains(t, out, "## 2 results for `orders` (mixed)")
	assert.Contains(t, out, "1. **GET /api/orders/list** OrderController.list() - Lists every order.\n   `OrderController.java:12`\n")
	assert.Contains(t, out, "2. **OrderController.java**\n   `src/demo`\n")
	assert.NotContains(t, out, "More results matched")
}

func TestFormatResults_Truncated(t *testing.T) {
	out := FormatResults("a", search.ModeFile, []search.Result{{Label: "a.txt"}}, true)

	assert.Contains(t, out, "More results matched")
}

func TestFormatResults_Empty(t *testing.T) {
	out := FormatResults("zzz", search.ModeRoute, nil, false)

	assert.Contains(t, out, "No matches for `zzz` (route).")
	assert.Contains(t, out, "`refresh`")
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 20},
		{-5, 20},
		{1, 1},
		{50, 50},
		{500, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.in, 20, 1, 100), "limit %d", tt.in)
	}
}
