package ops

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/config"
	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/history"
	"github.com/hpungsan/qet/internal/langdetect"
	"github.com/hpungsan/qet/internal/provider"
	"github.com/hpungsan/qet/internal/settings"
)

// History listing limits
const (
	DefaultHistoryLimit = 0 // all
	PopupHistoryLimit   = 10
)

// Factory builds a Translator for a provider name. provider.New is the production factory.
type Factory func(name, apiKey string, opts provider.Options) (provider.Translator, error)

// Deps are the collaborators of an Orchestrator. Settings and History are required.
type Deps struct {
	Settings *settings.Store
	History  *history.Store
	Config   *config.Config
	Logger   zerolog.Logger

	// Optional; defaults are provider.New, a no-op notifier, time.Now and langdetect.Hint.
	Factory  Factory
	Notifier Notifier
	Now      func() time.Time
	Detect   func(text string) string
	Client   *resty.Client

	// ExportsDir is where history exports go by default (~/.qet/exports when empty).
	ExportsDir string
}

// Orchestrator validates translation requests against settings, calls the
// configured provider and records successful translations in history.
type Orchestrator struct {
	settings *settings.Store
	history  *history.Store
	cfg      *config.Config
	log      zerolog.Logger
	factory  Factory
	notifier Notifier
	now      func() time.Time
	detect   func(string) string
	client   *resty.Client

	exportsDir string
}

// NewOrchestrator fills optional dependencies with their defaults.
func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		settings: d.Settings,
		history:  d.History,
		cfg:      d.Config,
		log:      d.Logger,
		factory:  d.Factory,
		notifier: d.Notifier,
		now:      d.Now,
		detect:   d.Detect,
		client:   d.Client,

		exportsDir: d.ExportsDir,
	}
	if o.cfg == nil {
		o.cfg = config.DefaultConfig()
	}
	if o.factory == nil {
		o.factory = provider.New
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.detect == nil {
		o.detect = langdetect.Hint
	}
	if o.client == nil {
		// Shared across requests; resty clients are safe for concurrent use.
		o.client = resty.New()
	}
	return o
}

// Result is the reply to a translate request. Success and failure share one
// shape so it can travel as a single JSON message.
//
// Settings is the snapshot the request ran with, but its APIKey is masked
// with settings.MaskKey and will not equal the stored key. Callers that need
// the key use getSettings.
type Result struct {
	Success      bool               `json:"success"`
	Translation  string             `json:"translation,omitempty"`
	OriginalText string             `json:"originalText,omitempty"`
	Settings     *settings.Settings `json:"settings,omitempty"`
	SourceLang   string             `json:"sourceLang,omitempty"`
	Error        string             `json:"error,omitempty"`
	ErrorKind    errors.ErrorCode   `json:"errorKind,omitempty"`
	Provider     string             `json:"provider,omitempty"`
}

// Success builds a successful Result. The settings snapshot is redacted:
// callers only need it for display policy.
func Success(translation, original string, snapshot settings.Settings, sourceLang string) Result {
	redacted := snapshot.Redacted()
	return Result{
		Success:      true,
		Translation:  translation,
		OriginalText: original,
		Settings:     &redacted,
		SourceLang:   sourceLang,
	}
}

// Failure classifies err into a failed Result attributed to a provider.
// fallbackProvider is used when err does not name one.
func Failure(err error, fallbackProvider string) Result {
	qErr, ok := errors.As(err)
	if !ok {
		qErr = errors.NewInternal(err)
		qErr.Message = "internal error"
	}
	p := qErr.Provider
	if p == "" {
		p = fallbackProvider
	}
	return Result{
		Success:   false,
		Error:     qErr.PublicMessage(),
		ErrorKind: qErr.Code,
		Provider:  p,
	}
}

// Err converts a failed Result back into a *errors.QetError, nil on success.
func (r Result) Err() *errors.QetError {
	if r.Success {
		return nil
	}
	qErr := &errors.QetError{Code: r.ErrorKind, Message: r.Error, Provider: r.Provider, Status: 500}
	if s, ok := statusByCode[r.ErrorKind]; ok {
		qErr.Status = s
	}
	return qErr
}

var statusByCode = map[errors.ErrorCode]int{
	errors.ErrEmptyInput:      400,
	errors.ErrInvalidRequest:  400,
	errors.ErrMissingAPIKey:   400,
	errors.ErrUnknownProvider: 400,
	errors.ErrInvalidAPIKey:   401,
	errors.ErrLengthExceeded:  413,
	errors.ErrRateLimited:     429,
	errors.ErrQuotaExceeded:   429,
	errors.ErrInternal:        500,
	errors.ErrProviderError:   502,
	errors.ErrNetworkError:    503,
}

// providerOptions maps process configuration onto adapter options.
func (o *Orchestrator) providerOptions(name string) provider.Options {
	opts := provider.Options{
		Pro:    o.cfg.DeepLPro,
		Model:  o.cfg.OpenAIModel,
		Client: o.client,
	}
	switch name {
	case provider.DeepL:
		opts.BaseURL = o.cfg.DeepLFreeURL
		if o.cfg.DeepLPro {
			opts.BaseURL = o.cfg.DeepLProURL
		}
	case provider.Google:
		opts.BaseURL = o.cfg.GoogleURL
	case provider.OpenAI:
		opts.BaseURL = o.cfg.OpenAIURL
	}
	return opts
}
