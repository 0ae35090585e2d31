package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	if filepath.Base(path) != "routenav.log" {
		t.Errorf("DefaultLogPath should end with routenav.log, got: %s", path)
	}
	if !strings.Contains(path, ".routenav") {
		t.Errorf("DefaultLogPath should live under .routenav, got: %s", path)
	}
}

func TestConfigs(t *testing.T) {
	if cfg := DefaultConfig(); cfg.Level != "info" || cfg.WriteToStderr {
		t.Errorf("unexpected default config: %+v", cfg)
	}
	if cfg := DebugConfig(); cfg.Level != "debug" || !cfg.WriteToStderr {
		t.Errorf("unexpected debug config: %+v", cfg)
	}
	if cfg := ServerConfig("warn"); cfg.Level != "warn" || cfg.WriteToStderr {
		t.Errorf("server config must never write to stderr: %+v", cfg)
	}
}

func TestSetup_WritesJSONAtLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("dropped_event")
	logger.Warn("parse_failed", slog.String("path", "/src/A.java"))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record at warn level, got %d: %q", len(lines), data)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "parse_failed" || rec["path"] != "/src/A.java" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()
	w.maxSize = 16

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, name := range []string{"r.log", "r.log.1", "r.log.2"} {
		if _, err := os.Stat(filepath.Join(filepath.Dir(path), name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected no backup beyond maxFiles")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
