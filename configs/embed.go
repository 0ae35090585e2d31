// Package configs embeds the configuration templates written by
// 'routenav init'.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .routenav.yaml in the project root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
