package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := t.TempDir() + "/nested"
	log, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message_from_logging_test")
}

func TestNewLogger_TeesToConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(t.TempDir(), &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	log.Info("probe_verdict")
	_ = log.Sync()

	if !strings.Contains(buf.String(), "probe_verdict") {
		t.Fatalf("console output missing message: %q", buf.String())
	}
}
