package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/routenav/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String(), strings.TrimSpace(out))

	out, err = run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Short(), strings.TrimSpace(out))

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.GetInfo().Version, info["version"])
}
