package settings

import (
	"regexp"
	"strings"

	"github.com/hpungsan/qet/internal/provider"
)

var keyPatterns = map[string]*regexp.Regexp{
	provider.DeepL:  regexp.MustCompile(`(?i)^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}(:fx)?$`),
	provider.Google: regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35,}$`),
	provider.OpenAI: regexp.MustCompile(`^sk-[a-zA-Z0-9]{20,}$`),
}

var providerLabels = map[string]string{
	provider.DeepL:  "DeepL",
	provider.Google: "Google",
	provider.OpenAI: "OpenAI",
}

// KeyCheck is the advisory result of CheckKeyFormat.
type KeyCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// CheckKeyFormat tests whether key looks like a key for providerName.
// It is a shape check only; the provider is the authority on validity.
func CheckKeyFormat(providerName, key string) KeyCheck {
	key = strings.TrimSpace(key)
	if key == "" {
		return KeyCheck{Valid: false, Message: "Please enter an API key"}
	}
	if !provider.IsSupported(providerName) {
		return KeyCheck{Valid: false, Message: "Unknown translation provider: " + providerName}
	}
	if keyPatterns[providerName].MatchString(key) {
		return KeyCheck{Valid: true, Message: "API key format is valid"}
	}
	return KeyCheck{Valid: false, Message: "Invalid " + providerLabels[providerName] + " API key format"}
}
