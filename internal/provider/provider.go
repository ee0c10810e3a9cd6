// Package provider adapts third-party translation APIs to one Translator contract.
package provider

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/hpungsan/qet/internal/errors"
)

// Supported provider identifiers.
const (
	DeepL  = "deepl"
	Google = "google"
	OpenAI = "openai"
)

// TargetLang is the only target language the adapters are asked for.
const TargetLang = "EN"

// Names lists the supported providers in display order.
var Names = []string{DeepL, Google, OpenAI}

// Translator translates text into targetLang using one remote provider.
// Failures are *errors.QetError values carrying the provider name.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Name() string
	MaxChars() int
}

// Options tune adapter construction. Zero values select public endpoints.
type Options struct {
	// Pro selects DeepL's paid endpoint.
	Pro bool

	// Model is the OpenAI chat model.
	Model string

	// BaseURL replaces the provider's scheme://host root.
	BaseURL string

	// Client overrides the HTTP client; nil builds a fresh resty client.
	Client *resty.Client
}

// New builds the adapter for name. It does no I/O.
func New(name, apiKey string, opts Options) (Translator, error) {
	client := opts.Client
	if client == nil {
		client = resty.New()
	}

	switch name {
	case DeepL:
		return newDeepL(apiKey, opts, client), nil
	case Google:
		return newGoogle(apiKey, opts, client), nil
	case OpenAI:
		return newOpenAI(apiKey, opts, client), nil
	default:
		return nil, errors.NewUnknownProvider(name)
	}
}

// IsSupported reports whether name is a known provider identifier.
func IsSupported(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// CountChars returns the character count used for length limits.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// checkInput rejects blank text and text over max before any network call.
func checkInput(provider, text string, max int) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewEmptyInput(provider)
	}
	if n := CountChars(text); n > max {
		return errors.NewLengthExceeded(provider, max, n)
	}
	return nil
}

func baseURL(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return strings.TrimRight(override, "/")
	}
	return fallback
}

// errorMessage extracts a human-readable message from an error body.
// Both {"message": "..."} and {"error": {"message": "..."}} shapes are accepted.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error.Message != "" {
		return payload.Error.Message
	}
	return payload.Message
}

func malformedResponse(provider string, status int) error {
	return errors.NewProviderError(provider, status, "Malformed response from "+provider)
}
