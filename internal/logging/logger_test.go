package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("production", "info", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info().Str("provider", "deepl").Msg("translated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["service"] != "qet" {
		t.Errorf("service = %v, want qet", entry["service"])
	}
	if entry["provider"] != "deepl" {
		t.Errorf("provider = %v, want deepl", entry["provider"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("production", "WARN", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	logger.Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not written: %q", buf.String())
	}
}

func TestNew_LocalConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("local", "debug", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug().Msg("hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("local environment should not emit JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("message missing: %q", buf.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("local", "chatty", nil); err == nil {
		t.Fatal("New() expected error for invalid level")
	}
}
