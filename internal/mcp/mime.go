package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps file extensions to MIME types.
var mimeTypes = map[string]string{
	// JVM
	".java":   "text/x-java",
	".kt":     "text/x-kotlin",
	".kts":    "text/x-kotlin",
	".groovy": "text/x-groovy",
	".gradle": "text/x-groovy",
	".scala":  "text/x-scala",

	// Spring configuration
	".properties": "text/x-java-properties",
	".yaml":       "text/x-yaml",
	".yml":        "text/x-yaml",
	".xml":        "text/xml",

	// Web
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".ts":   "text/typescript",
	".json": "application/json",

	// Documentation
	".md":   "text/markdown",
	".txt":  "text/plain",
	".adoc": "text/asciidoc",

	".sql": "text/x-sql",
	".sh":  "text/x-sh",
	".go":  "text/x-go",
}

// specialFilenames maps exact file names to MIME types.
var specialFilenames = map[string]string{
	"Dockerfile":  "text/x-dockerfile",
	"Makefile":    "text/x-makefile",
	"Jenkinsfile": "text/x-groovy",
	"mvnw":        "text/x-sh",
	"gradlew":     "text/x-sh",
}

// MimeTypeForPath returns the MIME type for path, falling back to
// text/plain.
func MimeTypeForPath(path string) string {
	if mime, ok := specialFilenames[filepath.Base(path)]; ok {
		return mime
	}
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "text/plain"
}
