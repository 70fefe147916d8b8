package logging

import (
	"os"
	"strings"
	"testing"
)

// setupTestDir points the package at a temporary log directory, returning
// a cleanup function. The init guard is fired as a no-op first so the
// temporary directory is not replaced by the real one on first use.
func setupTestDir(t *testing.T) (cleanup func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "redpost-logging-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	initOnce.Do(func() {})
	origLogDir := logDir
	origInitErr := initErr
	logDir = tempDir
	initErr = nil

	return func() {
		logDir = origLogDir
		initErr = origInitErr
		os.RemoveAll(tempDir)
	}
}

func TestNewLogger(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}

	if logger.runID == "" {
		t.Error("Expected non-empty run ID")
	}

	if logger.logPath == "" {
		t.Error("Expected non-empty log path")
	}

	if _, err := os.Stat(logger.logPath); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.logPath)
	}
}

func TestLoggerLevels(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("levels")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	if err := logger.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	data, err := os.ReadFile(logger.logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	for _, want := range []string{
		"[DEBUG] debug 1",
		"[INFO] info 2",
		"[WARN] warn 3",
		"[ERROR] error 4",
		"[levels]",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Log file missing %q, content:\n%s", want, content)
		}
	}
}

func TestSharedRunID(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	a, err := NewLogger("component-a")
	if err != nil {
		t.Fatalf("Failed to create logger a: %v", err)
	}
	defer a.Close()

	b, err := NewLogger("component-b")
	if err != nil {
		t.Fatalf("Failed to create logger b: %v", err)
	}
	defer b.Close()

	if a.RunID() != b.RunID() {
		t.Errorf("Expected shared run ID, got %q and %q", a.RunID(), b.RunID())
	}

	// Both components append to the same file
	if a.LogPath() != b.LogPath() {
		t.Errorf("Expected shared log path, got %q and %q", a.LogPath(), b.LogPath())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("close-test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
