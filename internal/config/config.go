package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dynagent configuration. Loaded once at startup and
// passed to component constructors; never mutated afterwards.
type Config struct {
	DynatraceURL     string
	DynatraceToken   string
	DynatraceTimeout time.Duration

	GeminiAPIKey string
	GeminiAPIURL string
	GeminiModel  string
	LLMTimeout   time.Duration

	A2AAPIKey string
	HostURL   string
	Port      string
	LogLevel  string
}

// fileConfig mirrors the optional YAML config file. Env vars win over
// file values.
type fileConfig struct {
	DynatraceURL     string `yaml:"dynatrace_url"`
	DynatraceToken   string `yaml:"dynatrace_api_token"`
	DynatraceTimeout int    `yaml:"dynatrace_timeout"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiAPIURL     string `yaml:"gemini_api_url"`
	GeminiModel      string `yaml:"gemini_model"`
	A2AAPIKey        string `yaml:"a2a_api_key"`
	HostURL          string `yaml:"host_url"`
	Port             string `yaml:"port"`
	LogLevel         string `yaml:"log_level"`
}

// Load builds the configuration from the optional YAML file named by
// DYNAGENT_CONFIG, overlaid with environment variables.
func Load() (Config, error) {
	cfg := Config{
		DynatraceTimeout: 30 * time.Second,
		GeminiAPIURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
		GeminiModel:      "gemini-1.5-flash",
		LLMTimeout:       60 * time.Second,
		Port:             "8000",
		LogLevel:         "info",
	}

	if path := os.Getenv("DYNAGENT_CONFIG"); path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		applyFile(&cfg, fc)
	}

	cfg.DynatraceURL = env("DYNATRACE_URL", cfg.DynatraceURL)
	cfg.DynatraceToken = env("DYNATRACE_API_TOKEN", cfg.DynatraceToken)
	cfg.DynatraceTimeout = envDuration("DYNATRACE_TIMEOUT", cfg.DynatraceTimeout)
	cfg.GeminiAPIKey = env("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiAPIURL = env("GEMINI_API_URL", cfg.GeminiAPIURL)
	cfg.GeminiModel = env("GEMINI_MODEL", cfg.GeminiModel)
	cfg.LLMTimeout = envDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.A2AAPIKey = env("A2A_API_KEY", cfg.A2AAPIKey)
	cfg.HostURL = env("HOST_URL", cfg.HostURL)
	cfg.Port = env("PORT", cfg.Port)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate checks that required credentials are present. A failure here
// is fatal: the process must not start serving.
func (c Config) Validate() error {
	if c.DynatraceURL == "" {
		return fmt.Errorf("config: DYNATRACE_URL is required (e.g. https://abc12345.live.dynatrace.com)")
	}
	if c.DynatraceToken == "" {
		return fmt.Errorf("config: DYNATRACE_API_TOKEN is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config: GEMINI_API_KEY is required")
	}
	return nil
}

// SlogLevel maps the configured level string to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Models returns the LLM model chain: the configured model first, then
// the fallbacks tried in order on transient failures. Duplicates are
// removed, order preserved.
func (c Config) Models() []string {
	chain := []string{c.GeminiModel, "gemini-1.5-flash", "gemini-1.5-pro"}
	seen := make(map[string]bool, len(chain))
	out := make([]string, 0, len(chain))
	for _, m := range chain {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.DynatraceURL != "" {
		cfg.DynatraceURL = fc.DynatraceURL
	}
	if fc.DynatraceToken != "" {
		cfg.DynatraceToken = fc.DynatraceToken
	}
	if fc.DynatraceTimeout > 0 {
		cfg.DynatraceTimeout = time.Duration(fc.DynatraceTimeout) * time.Second
	}
	if fc.GeminiAPIKey != "" {
		cfg.GeminiAPIKey = fc.GeminiAPIKey
	}
	if fc.GeminiAPIURL != "" {
		cfg.GeminiAPIURL = fc.GeminiAPIURL
	}
	if fc.GeminiModel != "" {
		cfg.GeminiModel = fc.GeminiModel
	}
	if fc.A2AAPIKey != "" {
		cfg.A2AAPIKey = fc.A2AAPIKey
	}
	if fc.HostURL != "" {
		cfg.HostURL = fc.HostURL
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses seconds from env.
func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
