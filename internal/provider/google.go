package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/hpungsan/qet/internal/errors"
)

const (
	GoogleURL      = "https://translation.googleapis.com"
	googleMaxChars = 5000
)

type googleTranslator struct {
	apiKey   string
	endpoint string
	client   *resty.Client
}

func newGoogle(apiKey string, opts Options, client *resty.Client) *googleTranslator {
	return &googleTranslator{
		apiKey:   apiKey,
		endpoint: baseURL(opts.BaseURL, GoogleURL) + "/language/translate/v2",
		client:   client,
	}
}

func (t *googleTranslator) Name() string  { return Google }
func (t *googleTranslator) MaxChars() int { return googleMaxChars }

func (t *googleTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if err := checkInput(Google, text, googleMaxChars); err != nil {
		return "", err
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("key", t.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"q":      text,
			"target": strings.ToLower(targetLang),
			"format": "text",
		}).
		Post(t.endpoint)
	if err != nil {
		return "", errors.NewNetworkError(Google, err)
	}

	if !resp.IsSuccess() {
		msg := errorMessage(resp.Body())
		if resp.StatusCode() == 403 {
			// Google answers 403 for both a bad key and an exhausted quota;
			// keep its own wording so the two stay distinguishable to a reader.
			qErr := errors.NewInvalidAPIKey(Google, msg)
			if msg == "" {
				qErr.Message = "Invalid API key or quota exceeded"
			}
			qErr.Details = map[string]any{"provider_message": msg, "http_status": 403}
			return "", qErr
		}
		return "", errors.NewProviderError(Google, resp.StatusCode(), msg)
	}

	var payload struct {
		Data struct {
			Translations []struct {
				TranslatedText         string `json:"translatedText"`
				DetectedSourceLanguage string `json:"detectedSourceLanguage"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || len(payload.Data.Translations) == 0 {
		return "", malformedResponse(Google, resp.StatusCode())
	}
	return payload.Data.Translations[0].TranslatedText, nil
}
