package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/qet/internal/errors"
)

// Export formats.
const (
	FormatJSONL    = "jsonl"
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

// Formats lists the supported export formats.
var Formats = []string{FormatJSONL, FormatMarkdown, FormatHTML}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	QetExport     bool   `json:"_qet_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Count         int    `json:"count"`
}

// Write renders records to w in format.
func Write(w io.Writer, records []Record, format string, exportedAt time.Time) error {
	switch format {
	case FormatJSONL:
		return writeJSONL(w, records, exportedAt)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(records))
		return err
	case FormatHTML:
		return writeHTML(w, records)
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unsupported export format %q (want one of %s)", format, strings.Join(Formats, ", ")))
	}
}

func writeJSONL(w io.Writer, records []Record, exportedAt time.Time) error {
	enc := json.NewEncoder(w)
	header := ExportHeader{
		QetExport:     true,
		SchemaVersion: "1.0",
		ExportedAt:    exportedAt.Unix(),
		Count:         len(records),
	}
	if err := enc.Encode(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Markdown renders records as a Markdown document, newest first.
func Markdown(records []Record) string {
	var b strings.Builder
	b.WriteString("# Translation history\n\n")
	if len(records) == 0 {
		b.WriteString("_No translations yet._\n")
		return b.String()
	}
	for _, r := range records {
		fmt.Fprintf(&b, "## %s · %s", r.Time().UTC().Format("2006-01-02 15:04:05 UTC"), r.Provider)
		if r.SourceLang != "" {
			fmt.Fprintf(&b, " · %s", r.SourceLang)
		}
		b.WriteString("\n\n")
		for _, line := range strings.Split(r.OriginalText, "\n") {
			b.WriteString("> " + escapeMarkdown(line) + "\n")
		}
		b.WriteString("\n")
		b.WriteString(escapeMarkdown(r.TranslatedText))
		b.WriteString("\n\n")
	}
	return b.String()
}

// writeHTML renders the Markdown form and sanitizes the result; the texts
// came from arbitrary web pages.
func writeHTML(w io.Writer, records []Record) error {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(records)), &body); err != nil {
		return errors.NewInternal(err)
	}
	safe := bluemonday.UGCPolicy().SanitizeBytes(body.Bytes())

	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n%s</body></html>\n",
		html.EscapeString("Translation history"), safe)
	return err
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
