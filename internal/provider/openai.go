package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/hpungsan/qet/internal/errors"
)

const (
	OpenAIURL          = "https://api.openai.com"
	DefaultOpenAIModel = "gpt-3.5-turbo"
	openAIMaxChars     = 4000
	openAIMaxTokens    = 1000
	openAITemperature  = 0.1

	translatePrompt = "Translate the following text into English. Return only the translated text without any explanations or comments:\n\n"
)

type openAITranslator struct {
	apiKey   string
	model    string
	endpoint string
	client   *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func newOpenAI(apiKey string, opts Options, client *resty.Client) *openAITranslator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openAITranslator{
		apiKey:   apiKey,
		model:    model,
		endpoint: baseURL(opts.BaseURL, OpenAIURL) + "/v1/chat/completions",
		client:   client,
	}
}

func (t *openAITranslator) Name() string  { return OpenAI }
func (t *openAITranslator) MaxChars() int { return openAIMaxChars }

// Translate always asks for English; the prompt fixes the target language.
func (t *openAITranslator) Translate(ctx context.Context, text, _ string) (string, error) {
	if err := checkInput(OpenAI, text, openAIMaxChars); err != nil {
		return "", err
	}

	body := chatRequest{
		Model:       t.model,
		Messages:    []chatMessage{{Role: "user", Content: translatePrompt + text}},
		MaxTokens:   tokenBudget(text),
		Temperature: openAITemperature,
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(t.endpoint)
	if err != nil {
		return "", errors.NewNetworkError(OpenAI, err)
	}

	if !resp.IsSuccess() {
		switch resp.StatusCode() {
		case 401:
			return "", errors.NewInvalidAPIKey(OpenAI, "")
		case 429:
			return "", errors.NewRateLimited(OpenAI)
		default:
			return "", errors.NewProviderError(OpenAI, resp.StatusCode(), errorMessage(resp.Body()))
		}
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || len(payload.Choices) == 0 {
		return "", malformedResponse(OpenAI, resp.StatusCode())
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

// tokenBudget is min(1000, ceil(chars * 2)).
func tokenBudget(text string) int {
	return min(openAIMaxTokens, CountChars(text)*2)
}
