package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/hpungsan/qet/internal/errors"
)

const (
	DeepLFreeURL  = "https://api-free.deepl.com"
	DeepLProURL   = "https://api.deepl.com"
	deeplMaxChars = 5000

	// DeepL-specific status for an exhausted character quota.
	statusQuotaExceeded = 456
)

type deepLTranslator struct {
	apiKey   string
	endpoint string
	client   *resty.Client
}

func newDeepL(apiKey string, opts Options, client *resty.Client) *deepLTranslator {
	root := DeepLFreeURL
	if opts.Pro {
		root = DeepLProURL
	}
	return &deepLTranslator{
		apiKey:   apiKey,
		endpoint: baseURL(opts.BaseURL, root) + "/v2/translate",
		client:   client,
	}
}

func (t *deepLTranslator) Name() string  { return DeepL }
func (t *deepLTranslator) MaxChars() int { return deeplMaxChars }

func (t *deepLTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if err := checkInput(DeepL, text, deeplMaxChars); err != nil {
		return "", err
	}

	target := strings.ToUpper(targetLang)
	if target == "EN" {
		target = "EN-US"
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"auth_key":            t.apiKey,
			"text":                text,
			"target_lang":         target,
			"preserve_formatting": "1",
		}).
		Post(t.endpoint)
	if err != nil {
		return "", errors.NewNetworkError(DeepL, err)
	}

	if !resp.IsSuccess() {
		switch resp.StatusCode() {
		case 403:
			return "", errors.NewInvalidAPIKey(DeepL, "")
		case statusQuotaExceeded:
			return "", errors.NewQuotaExceeded(DeepL)
		default:
			return "", errors.NewProviderError(DeepL, resp.StatusCode(), errorMessage(resp.Body()))
		}
	}

	var payload struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || len(payload.Translations) == 0 {
		return "", malformedResponse(DeepL, resp.StatusCode())
	}
	return payload.Translations[0].Text, nil
}
