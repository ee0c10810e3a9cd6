package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/history"
)

func seedHistory(t *testing.T, env *testEnv, providers ...string) {
	t.Helper()
	for i, p := range providers {
		rec, err := history.NewRecord("original "+p, "translated "+p, p, "", time.UnixMilli(int64(1000*(i+1))))
		if err != nil {
			t.Fatalf("NewRecord failed: %v", err)
		}
		if err := env.history.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestExportHistory_HappyPath(t *testing.T) {
	env := newTestEnv(t, nil)
	seedHistory(t, env, "deepl", "google")

	exportPath := filepath.Join(env.orch.exportsDir, "export.jsonl")
	output, err := env.orch.ExportHistory(context.Background(), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}

	if output.Path != exportPath {
		t.Errorf("Path = %q, want %q", output.Path, exportPath)
	}
	if output.Format != history.FormatJSONL {
		t.Errorf("Format = %q, want jsonl", output.Format)
	}
	if output.Count != 2 {
		t.Errorf("Count = %d, want 2", output.Count)
	}
	if output.ExportedAt != env.now.Unix() {
		t.Errorf("ExportedAt = %d, want %d", output.ExportedAt, env.now.Unix())
	}

	file, err := os.Open(exportPath)
	if err != nil {
		t.Fatalf("Failed to open export file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 records", len(lines))
	}

	var header history.ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if !header.QetExport || header.Count != 2 {
		t.Errorf("header = %+v", header)
	}

	var first history.Record
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if first.Provider != "google" {
		t.Errorf("first record provider = %q, want newest (google)", first.Provider)
	}

	info, err := os.Stat(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}

func TestExportHistory_DefaultPath(t *testing.T) {
	env := newTestEnv(t, nil)
	seedHistory(t, env, "deepl", "openai", "deepl")

	output, err := env.orch.ExportHistory(context.Background(), ExportInput{Format: "md", Provider: "deepl"})
	if err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}

	if filepath.Dir(output.Path) != env.orch.exportsDir {
		t.Errorf("Path dir = %q, want %q", filepath.Dir(output.Path), env.orch.exportsDir)
	}
	base := filepath.Base(output.Path)
	if !strings.HasPrefix(base, "history-deepl-") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected default file name %q", base)
	}
	if output.Count != 2 {
		t.Errorf("Count = %d, want 2 deepl records", output.Count)
	}

	data, err := os.ReadFile(output.Path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "openai") {
		t.Error("provider filter leaked other records")
	}
}

func TestExportHistory_HTML(t *testing.T) {
	env := newTestEnv(t, nil)
	seedHistory(t, env, "google")

	output, err := env.orch.ExportHistory(context.Background(), ExportInput{Format: "HTML"})
	if err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}
	if output.Format != history.FormatHTML {
		t.Errorf("Format = %q, want html", output.Format)
	}

	data, err := os.ReadFile(output.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "translated google") {
		t.Error("html export missing record text")
	}
}

func TestExportHistory_EmptyHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	output, err := env.orch.ExportHistory(context.Background(), ExportInput{})
	if err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}
	if output.Count != 0 {
		t.Errorf("Count = %d, want 0", output.Count)
	}
}

func TestExportHistory_UnsupportedFormat(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.orch.ExportHistory(context.Background(), ExportInput{Format: "pdf"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestExportHistory_PathOutsideExportsDir(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.orch.ExportHistory(context.Background(), ExportInput{Path: filepath.Join(t.TempDir(), "x.jsonl")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestExportHistory_OverwritesAndLeavesNoTemp(t *testing.T) {
	env := newTestEnv(t, nil)
	seedHistory(t, env, "deepl")

	exportPath := filepath.Join(env.orch.exportsDir, "history.jsonl")
	if err := os.WriteFile(exportPath, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := env.orch.ExportHistory(context.Background(), ExportInput{Path: exportPath}); err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}

	entries, err := os.ReadDir(env.orch.exportsDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	data, _ := os.ReadFile(exportPath)
	if string(data) == "old" {
		t.Error("existing file was not replaced")
	}
}
