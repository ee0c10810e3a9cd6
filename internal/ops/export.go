package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/history"
)

// ExportInput contains parameters for the ExportHistory operation.
type ExportInput struct {
	Path     string // optional, default: <exports dir>/history[-<provider>]-<timestamp>.<format>
	Format   string // jsonl (default), md, html
	Provider string // optional filter
}

// ExportOutput contains the result of the ExportHistory operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHistory writes the history log to a file.
func (o *Orchestrator) ExportHistory(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := o.now()

	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = history.FormatJSONL
	}
	if !isExportFormat(format) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported export format %q (want one of %s)", format, strings.Join(history.Formats, ", ")))
	}

	exportsDir, err := o.exportsDirectory()
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		name := "history"
		if input.Provider != "" {
			name += "-" + SanitizeForFilename(input.Provider)
		}
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("%s-%s.%s", name, now.Format("2006-01-02T150405"), format))
	}

	// Validate ALL paths (both user-provided and default)
	if err := ValidatePath(exportPath, format, exportsDir, o.cfg); err != nil {
		return nil, err
	}

	records, err := o.history.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if input.Provider != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Provider == input.Provider {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := history.Write(file, records, format, now); err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	o.log.Info().Str("path", exportPath).Str("format", format).Int("count", len(records)).Msg("history exported")
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      len(records),
		ExportedAt: now.Unix(),
	}, nil
}

func (o *Orchestrator) exportsDirectory() (string, error) {
	if o.exportsDir != "" {
		return o.exportsDir, nil
	}
	return DefaultExportsDir()
}

func isExportFormat(format string) bool {
	for _, f := range history.Formats {
		if f == format {
			return true
		}
	}
	return false
}
