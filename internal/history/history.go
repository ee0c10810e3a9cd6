// Package history keeps the bounded, newest-first log of past translations.
package history

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/storage"
)

// Key is the storage key of the history log.
const Key = "translationHistory"

// MaxEntries caps the log; older records are evicted on append.
const MaxEntries = 100

// Record is one completed translation. Records are never modified after Append.
type Record struct {
	ID             string `json:"id,omitempty"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	Provider       string `json:"provider"`
	Timestamp      int64  `json:"timestamp"` // epoch millis

	// SourceLang is a best-effort ISO 639-1 hint; empty when unknown.
	SourceLang string `json:"sourceLang,omitempty"`
}

// NewRecord stamps a record with a ULID and at (epoch millis).
func NewRecord(original, translated, provider, sourceLang string, at time.Time) (Record, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return Record{}, errors.NewInternal(err)
	}
	return Record{
		ID:             id.String(),
		OriginalText:   original,
		TranslatedText: translated,
		Provider:       provider,
		Timestamp:      at.UnixMilli(),
		SourceLang:     sourceLang,
	}, nil
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Store persists the log as one JSON array in the local area.
//
// Append, GetAll and Clear hold one mutex, so callers in the same process
// never lose writes. Two processes sharing a database still race on the
// read-modify-write in Append; the later write wins.
type Store struct {
	mu   sync.Mutex
	area storage.Area
	log  zerolog.Logger
}

// NewStore returns a Store over area.
func NewStore(area storage.Area, logger zerolog.Logger) *Store {
	return &Store{area: area, log: logger}
}

// Append prepends rec and truncates the log to MaxEntries.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	records = append([]Record{rec}, records...)
	if len(records) > MaxEntries {
		records = records[:MaxEntries]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return errors.NewInternal(err)
	}
	return s.area.Set(ctx, Key, data)
}

// GetAll returns the log newest first, or an empty slice.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Recent returns at most n newest records. n <= 0 returns all.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	records, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Clear removes the log entirely.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area.Remove(ctx, Key)
}

// load reads the log. Callers hold s.mu.
func (s *Store) load(ctx context.Context) ([]Record, error) {
	raw, ok, err := s.area.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	records := []Record{}
	if !ok {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		// An unreadable log is replaced on the next append rather than blocking translations.
		s.log.Warn().Err(err).Msg("stored history unreadable, starting empty")
		return []Record{}, nil
	}
	return records, nil
}
