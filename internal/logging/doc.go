// Package logging wires slog to a size-rotated JSON log under
// ~/.routenav/logs/. Interactive commands also mirror records to stderr when
// --debug is set; the MCP server never writes to stderr or stdout because
// stdout carries the JSON-RPC stream.
package logging
