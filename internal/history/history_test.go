package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/qet/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	area := storage.NewMemory()
	return NewStore(area, zerolog.Nop()), area
}

func rec(i int) Record {
	return Record{
		OriginalText:   fmt.Sprintf("texto %d", i),
		TranslatedText: fmt.Sprintf("text %d", i),
		Provider:       "deepl",
		Timestamp:      int64(1700000000000 + i),
	}
}

func TestNewRecord(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	r, err := NewRecord("hola", "hello", "google", "es", at)
	require.NoError(t, err)

	_, err = ulid.Parse(r.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1760000000123), r.Timestamp)
	require.Equal(t, "hola", r.OriginalText)
	require.Equal(t, "hello", r.TranslatedText)
	require.Equal(t, "google", r.Provider)
	require.Equal(t, "es", r.SourceLang)
	require.True(t, r.Time().Equal(at))
}

func TestGetAll_EmptyIsNonNil(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestAppend_NewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, rec(1)))
	require.NoError(t, store.Append(ctx, rec(2)))
	require.NoError(t, store.Append(ctx, rec(3)))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "text 3", got[0].TranslatedText)
	require.Equal(t, "text 1", got[2].TranslatedText)
}

func TestAppend_CapsAtMaxEntries(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 105; i++ {
		require.NoError(t, store.Append(ctx, rec(i)))
	}

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, MaxEntries)
	require.Equal(t, "text 105", got[0].TranslatedText)
	require.Equal(t, "text 6", got[MaxEntries-1].TranslatedText)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i-1].Timestamp, got[i].Timestamp)
	}
}

func TestClear(t *testing.T) {
	store, area := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, rec(1)))
	require.NoError(t, store.Clear(ctx))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	_, ok, _ := area.Get(ctx, Key)
	require.False(t, ok, "clear must remove the stored log")

	// Clearing an empty log is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestRecent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		require.NoError(t, store.Append(ctx, rec(i)))
	}

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	require.Equal(t, "text 15", got[0].TranslatedText)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 15)
}

func TestAppend_ConcurrentWritesAreNotLost(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, store.Append(ctx, rec(i)))
		}(i)
	}
	wg.Wait()

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 50)
}

func TestGetAll_CorruptLogReadsEmpty(t *testing.T) {
	store, area := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, Key, []byte(`{"not":"an array"}`)))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, store.Append(ctx, rec(1)))
	got, _ = store.GetAll(ctx)
	require.Len(t, got, 1)
}

func TestGetAll_ReadsLegacyRecordsWithoutID(t *testing.T) {
	store, area := newTestStore(t)
	ctx := context.Background()

	legacy := `[{"originalText":"こんにちは","translatedText":"Hello","provider":"openai","timestamp":1700000000000}]`
	require.NoError(t, area.Set(ctx, Key, []byte(legacy)))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "", got[0].ID)
	require.Equal(t, "Hello", got[0].TranslatedText)
}
