// Package settings persists user settings and merges them over defaults on read.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/provider"
	"github.com/hpungsan/qet/internal/storage"
)

// Key is the storage key of the single settings record.
const Key = "settings"

// Limits accepted by Validate.
const (
	DefaultMaxChars       = 5000
	DefaultAutoCloseDelay = 30000 // ms

	MinMaxChars       = 100
	MaxMaxChars       = 10000
	MaxAutoCloseDelay = 300000 // ms
)

// Settings are the user-configurable translation parameters.
type Settings struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"apiKey"`
	AutoCopy       bool   `json:"autoCopy"`
	ShowOverlay    bool   `json:"showOverlay"`
	MaxChars       int    `json:"maxChars"`
	AutoCloseDelay int    `json:"autoCloseDelay"`
}

// Defaults returns the settings written on first install.
func Defaults() Settings {
	return Settings{
		Provider:       provider.DeepL,
		APIKey:         "",
		AutoCopy:       true,
		ShowOverlay:    true,
		MaxChars:       DefaultMaxChars,
		AutoCloseDelay: DefaultAutoCloseDelay,
	}
}

// Redacted returns a copy safe for logs and terminal output.
func (s Settings) Redacted() Settings {
	s.APIKey = MaskKey(s.APIKey)
	return s
}

// MaskKey keeps the last four characters of key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// Merge decodes a stored document over Defaults one key at a time. Keys
// present in stored win, including false and 0. Absent or null keys keep
// their default, and so does a key whose value has the wrong type; such keys
// are reported in the returned error while every other key is still applied.
func Merge(stored []byte) (Settings, error) {
	s := Defaults()
	if len(stored) == 0 {
		return s, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(stored, &doc); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}

	var bad []string
	apply := func(key string, decode func(json.RawMessage) error) {
		raw, ok := doc[key]
		if !ok || isNull(raw) {
			return
		}
		if err := decode(raw); err != nil {
			bad = append(bad, key)
		}
	}
	apply("provider", func(raw json.RawMessage) error { return decodeInto(raw, &s.Provider) })
	apply("apiKey", func(raw json.RawMessage) error { return decodeInto(raw, &s.APIKey) })
	apply("autoCopy", func(raw json.RawMessage) error { return decodeInto(raw, &s.AutoCopy) })
	apply("showOverlay", func(raw json.RawMessage) error { return decodeInto(raw, &s.ShowOverlay) })
	apply("maxChars", func(raw json.RawMessage) error { return decodeWhole(raw, &s.MaxChars) })
	apply("autoCloseDelay", func(raw json.RawMessage) error { return decodeWhole(raw, &s.AutoCloseDelay) })

	if len(bad) > 0 {
		return s, fmt.Errorf("decode settings: unreadable keys %s", strings.Join(bad, ", "))
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeInto leaves *dst untouched on error.
func decodeInto[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// decodeWhole accepts any JSON number with an integral value, so 2000.0 and
// 2e3 read as 2000.
func decodeWhole(raw json.RawMessage, dst *int) error {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*dst = int(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%s is not a whole number", n)
	}
	*dst = int(f)
	return nil
}

// Store reads and writes the settings record in the sync area.
type Store struct {
	area storage.Area
	log  zerolog.Logger
}

// NewStore returns a Store over area.
func NewStore(area storage.Area, logger zerolog.Logger) *Store {
	return &Store{area: area, log: logger}
}

// Get returns persisted settings merged over defaults. Every field is always
// populated: unreadable keys fall back to their defaults with a warning, and
// a storage failure yields defaults alongside the error.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	raw, ok, err := s.area.Get(ctx, Key)
	if err != nil {
		return Defaults(), err
	}
	if !ok {
		return Defaults(), nil
	}
	merged, err := Merge(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored settings partly unreadable, using defaults for those keys")
	}
	return merged, nil
}

// Set persists settings verbatim.
func (s *Store) Set(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return errors.NewInternal(err)
	}
	return s.area.Set(ctx, Key, data)
}

// SetRaw persists a JSON object verbatim. A partial object replaces the
// whole record; omitted fields read back as defaults.
func (s *Store) SetRaw(ctx context.Context, raw json.RawMessage) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return errors.NewInvalidRequest("settings must be a JSON object")
	}
	return s.area.Set(ctx, Key, raw)
}

// EnsureDefaults writes Defaults when no record exists yet.
func (s *Store) EnsureDefaults(ctx context.Context) (bool, error) {
	_, ok, err := s.area.Get(ctx, Key)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := s.Set(ctx, Defaults()); err != nil {
		return false, err
	}
	return true, nil
}

// Reset overwrites the record with Defaults.
func (s *Store) Reset(ctx context.Context) (Settings, error) {
	d := Defaults()
	if err := s.Set(ctx, d); err != nil {
		return Settings{}, err
	}
	return d, nil
}
