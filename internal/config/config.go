package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// EnvPrefix is prepended to every environment override (QET_LOG_LEVEL, ...).
const EnvPrefix = "QET"

// Config holds process configuration. User-facing translation settings
// (provider, API key, limits) live in the settings store, not here.
type Config struct {
	// Environment selects log formatting: "local" writes human-readable console logs.
	Environment string `json:"environment,omitempty" envconfig:"ENVIRONMENT"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty" envconfig:"LOG_LEVEL"`

	// DeepLPro routes DeepL requests to the paid endpoint instead of the free one.
	DeepLPro bool `json:"deepl_pro,omitempty" envconfig:"DEEPL_PRO"`

	// OpenAIModel is the chat model used by the OpenAI provider.
	OpenAIModel string `json:"openai_model,omitempty" envconfig:"OPENAI_MODEL"`

	// Endpoint overrides, mostly for self-hosted gateways and tests.
	DeepLFreeURL string `json:"deepl_free_url,omitempty" envconfig:"DEEPL_FREE_URL"`
	DeepLProURL  string `json:"deepl_pro_url,omitempty" envconfig:"DEEPL_PRO_URL"`
	GoogleURL    string `json:"google_url,omitempty" envconfig:"GOOGLE_URL"`
	OpenAIURL    string `json:"openai_url,omitempty" envconfig:"OPENAI_URL"`

	// SyncDatabaseURL points the synced settings area at Postgres.
	// Empty keeps settings in the local SQLite database.
	SyncDatabaseURL string `json:"sync_database_url,omitempty" envconfig:"SYNC_DATABASE_URL"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use the driver default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" envconfig:"DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" envconfig:"DB_MAX_IDLE_CONNS"`

	// HTTPBind and HTTPPort configure `qet serve`.
	HTTPBind string `json:"http_bind,omitempty" envconfig:"HTTP_BIND"`
	HTTPPort int    `json:"http_port,omitempty" envconfig:"HTTP_PORT"`

	// AllowedOrigins is the CORS allowlist for the HTTP surface
	// (typically the extension origin, chrome-extension://<id>).
	AllowedOrigins []string `json:"allowed_origins,omitempty" envconfig:"ALLOWED_ORIGINS"`

	// AllowedPaths is an allowlist of directories for history exports.
	// Paths outside ~/.qet/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty" envconfig:"ALLOWED_PATHS"`

	// AllowUnsafePaths disables directory restrictions for exports.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" envconfig:"ALLOW_UNSAFE_PATHS"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" envconfig:"DISABLED_TOOLS"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		OpenAIModel: "gpt-3.5-turbo",
		HTTPBind:    "127.0.0.1",
		HTTPPort:    8787,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.qet.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithEnv loads baseDir/.env (existing variables win), then config.json,
// then applies QET_* environment overrides and validates the result.
func LoadWithEnv(baseDir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := Load(baseDir)
	if err != nil {
		return nil, err
	}

	// No default tags: unset variables leave file values untouched.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate rejects values that would fail later at startup.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel))); err != nil {
		return fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}
	if c.DBMaxOpenConns < 0 {
		return fmt.Errorf("db_max_open_conns must be >= 0")
	}
	if c.DBMaxIdleConns < 0 {
		return fmt.Errorf("db_max_idle_conns must be >= 0")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535")
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Environment = pickString(overlay.Environment, base.Environment)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.OpenAIModel = pickString(overlay.OpenAIModel, base.OpenAIModel)
	result.DeepLFreeURL = pickString(overlay.DeepLFreeURL, base.DeepLFreeURL)
	result.DeepLProURL = pickString(overlay.DeepLProURL, base.DeepLProURL)
	result.GoogleURL = pickString(overlay.GoogleURL, base.GoogleURL)
	result.OpenAIURL = pickString(overlay.OpenAIURL, base.OpenAIURL)
	result.SyncDatabaseURL = pickString(overlay.SyncDatabaseURL, base.SyncDatabaseURL)
	result.HTTPBind = pickString(overlay.HTTPBind, base.HTTPBind)

	result.HTTPPort = overlay.HTTPPort
	if result.HTTPPort == 0 {
		result.HTTPPort = base.HTTPPort
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.DeepLPro = base.DeepLPro || overlay.DeepLPro
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedOrigins = mergeStringSlice(base.AllowedOrigins, overlay.AllowedOrigins)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
