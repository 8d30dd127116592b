package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if _, err := os.Stat(filepath.Join(configDir, "logs")); os.IsNotExist(err) {
		t.Errorf("Log directory was not created")
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("expected warn level, got %v", Logger.GetLevel())
	}

	Debug("debug message")
	Info("info message")
	Warn("warning message", "key", "value")
	Error("error message")
}

func TestInitLevels(t *testing.T) {
	configDir := t.TempDir()

	if err := Init(Config{ConfigDir: configDir, Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Logger.GetLevel() != log.InfoLevel {
		t.Errorf("console mode: expected info level, got %v", Logger.GetLevel())
	}

	if err := Init(Config{ConfigDir: configDir, Debug: true, Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("debug mode: expected debug level, got %v", Logger.GetLevel())
	}
}

func TestInitWriterAndWith(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, log.DebugLevel)

	With("component", "persist").Warn("save failed")
	Info("hello", "patient", "p1")

	out := buf.String()
	if !strings.Contains(out, "component=persist") || !strings.Contains(out, "save failed") {
		t.Errorf("missing child logger output: %q", out)
	}
	if !strings.Contains(out, "patient=p1") {
		t.Errorf("missing keyvals: %q", out)
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	Debug("no-op")
	Info("no-op")
	Warn("no-op")
	Error("no-op")
	if With("k", "v") != nil {
		t.Error("With should return nil before Init")
	}
}
