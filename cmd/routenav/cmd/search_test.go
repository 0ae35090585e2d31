package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/search"
)

func TestSearchCmd_RoutesAsJSON(t *testing.T) {
	// Given: a project that was never indexed
	root := newProject(t)

	// When
	out, err := run(t, "--root", root, "search", "/api/orders/*", "--mode", "route", "--json")

	// Then: the project is scanned on demand and both routes match
	require.NoError(t, err)
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, search.ModeRoute, resp.Mode)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "GET /api/orders/list", resp.Results[0].Label)
	assert.Equal(t, "POST /api/orders/create", resp.Results[1].Label)
	require.NotNil(t, resp.Results[0].Route)
	assert.Equal(t, "GET", resp.Results[0].Route.HTTPMethod)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "--root", root, "search", "readme", "--mode", "file")

	require.NoError(t, err)
	assert.Contains(t, out, "README.md")
	assert.NotContains(t, out, "Generated.java")
}

func TestSearchCmd_Limit(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "--root", root, "search", "orders", "-m", "route", "-n", "1", "--json")

	require.NoError(t, err)
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Results, 1)
	assert.True(t, resp.Truncated)
}

func TestSearchCmd_NoMatches(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "--root", root, "search", "/nothing/here/*", "--mode", "route")

	require.NoError(t, err)
	assert.Contains(t, out, `No matches for "/nothing/here/*"`)
}

func TestSearchCmd_InvalidFlags(t *testing.T) {
	root := newProject(t)

	_, err := run(t, "--root", root, "search", "x", "--mode", "symbols")
	require.Error(t, err)
	assert.Equal(t, rerrors.ErrCodeInvalidInput, rerrors.GetCode(err))

	_, err = run(t, "--root", root, "search", "x", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, rerrors.ErrCodeInvalidInput, rerrors.GetCode(err))

	_, err = run(t, "--root", root, "search")
	assert.Error(t, err)
}
