package ops

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/history"
	"github.com/hpungsan/qet/internal/provider"
	"github.com/hpungsan/qet/internal/settings"
)

// RequestTranslation validates text against s, translates it into English
// with the configured provider, and appends one history record on success.
//
// Checks run in order and stop at the first failure: blank text, the
// settings character limit, a configured API key. Settings are never modified.
func (o *Orchestrator) RequestTranslation(ctx context.Context, text string, s settings.Settings) Result {
	start := time.Now()
	reqID := ulid.MustNew(ulid.Timestamp(start), ulid.Monotonic(rand.Reader, 0)).String()
	chars := provider.CountChars(text)

	result := o.requestTranslation(ctx, text, s, chars)

	ev := o.log.Info()
	if !result.Success {
		ev = o.log.Warn().Str("error_kind", string(result.ErrorKind))
	}
	ev.Str("request_id", reqID).
		Str("provider", s.Provider).
		Int("chars", chars).
		Str("source_lang", result.SourceLang).
		Bool("success", result.Success).
		Dur("latency", time.Since(start)).
		Msg("translate")

	return result
}

func (o *Orchestrator) requestTranslation(ctx context.Context, text string, s settings.Settings, chars int) Result {
	if strings.TrimSpace(text) == "" {
		return Failure(errors.NewEmptyInput(s.Provider), s.Provider)
	}
	if chars > s.MaxChars {
		return Failure(errors.NewLengthExceeded(s.Provider, s.MaxChars, chars), s.Provider)
	}
	if s.APIKey == "" {
		return Failure(errors.NewMissingAPIKey(s.Provider), s.Provider)
	}

	translator, err := o.factory(s.Provider, s.APIKey, o.providerOptions(s.Provider))
	if err != nil {
		return Failure(err, s.Provider)
	}

	translation, err := translator.Translate(ctx, text, provider.TargetLang)
	if err != nil {
		return Failure(err, s.Provider)
	}

	sourceLang := o.detect(text)
	record, err := history.NewRecord(text, translation, s.Provider, sourceLang, o.now())
	if err != nil {
		return Failure(err, s.Provider)
	}
	if err := o.history.Append(ctx, record); err != nil {
		o.log.Error().Err(err).Str("provider", s.Provider).Msg("history append failed")
		qErr := errors.NewInternal(err)
		qErr.Message = "Failed to save translation history"
		return Failure(qErr, s.Provider)
	}

	return Success(translation, text, s, sourceLang)
}

// Translate loads current settings and runs RequestTranslation.
func (o *Orchestrator) Translate(ctx context.Context, text string) Result {
	s, err := o.settings.Get(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("settings load failed")
		qErr := errors.NewInternal(err)
		qErr.Message = "Failed to load settings"
		return Failure(qErr, s.Provider)
	}
	return o.RequestTranslation(ctx, text, s)
}
