package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/qet/internal/config"
	"github.com/hpungsan/qet/internal/db"
	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/history"
	"github.com/hpungsan/qet/internal/settings"
	"github.com/hpungsan/qet/internal/storage"
)

// TestFullWorkflow exercises the lifecycle against SQLite and a fake OpenAI:
// install defaults → translate (missing key) → update settings → translate →
// history → export → clear → reset
func TestFullWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-workflow" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Good night  "}}]}`))
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	defer database.Close()

	cfg := config.DefaultConfig()
	cfg.OpenAIURL = srv.URL

	orch := NewOrchestrator(Deps{
		Settings:   settings.NewStore(db.NewSQLiteArea(database, storage.AreaSync), zerolog.Nop()),
		History:    history.NewStore(db.NewSQLiteArea(database, storage.AreaLocal), zerolog.Nop()),
		Config:     cfg,
		Logger:     zerolog.Nop(),
		ExportsDir: filepath.Join(tmpDir, "exports"),
	})
	ctx := context.Background()

	// 1. First start installs defaults
	require.NoError(t, orch.EnsureDefaults(ctx))
	s, err := orch.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.Defaults(), s)

	// 2. No key yet
	res := orch.Translate(ctx, "Gute Nacht")
	require.Equal(t, errors.ErrMissingAPIKey, res.ErrorKind)

	// 3. Configure OpenAI
	s, err = orch.UpdateSettings(ctx, json.RawMessage(`{"provider":"openai","apiKey":"sk-workflow","maxChars":1000}`))
	require.NoError(t, err)
	require.Equal(t, "openai", s.Provider)

	// 4. Translate
	res = orch.Translate(ctx, "Gute Nacht")
	require.True(t, res.Success, res.Error)
	require.Equal(t, "Good night", res.Translation)

	// 5. History
	records, err := orch.GetHistory(ctx, PopupHistoryLimit)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "openai", records[0].Provider)
	require.Equal(t, "Gute Nacht", records[0].OriginalText)

	// 6. Export
	out, err := orch.ExportHistory(ctx, ExportInput{Format: history.FormatMarkdown})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	require.FileExists(t, out.Path)

	// 7. Clear
	require.NoError(t, orch.ClearHistory(ctx))
	records, err = orch.GetHistory(ctx, DefaultHistoryLimit)
	require.NoError(t, err)
	require.Empty(t, records)

	// 8. Reset
	s, err = orch.ResetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.Defaults(), s)
	res = orch.Translate(ctx, "Gute Nacht")
	require.Equal(t, errors.ErrMissingAPIKey, res.ErrorKind)
	require.Equal(t, "deepl", res.Provider)
}
