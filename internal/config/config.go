package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/triage/internal/github"
	"github.com/dshills/triage/internal/models"
	"github.com/dshills/triage/internal/providers"
)

// DefaultInstructions is the prompt preamble sent ahead of the issue text.
const DefaultInstructions = "You are a senior technical project manager. When triaging issues, capture " +
	"steps to reproduce, expected vs. actual behavior, affected components and data sources, " +
	"and any tests to add (unit/integration/UI). Output a clear Markdown checklist only, no intro text."

// DefaultCommentHeader heads every posted comment.
const DefaultCommentHeader = "### ♊ Gemini Action Plan"

// Config represents the triage configuration.
type Config struct {
	Model         string        `yaml:"model,omitempty"`
	FallbackModel string        `yaml:"fallbackModel"`
	GeminiBaseURL string        `yaml:"geminiBaseURL"`
	GitHubAPIURL  string        `yaml:"githubAPIURL"`
	CommentHeader string        `yaml:"commentHeader"`
	Instructions  string        `yaml:"instructions"`
	Format        string        `yaml:"format"`
	Timeouts      TimeoutConfig `yaml:"timeouts"`
	Privacy       PrivacyConfig `yaml:"privacy"`
	Log           LogConfig     `yaml:"log"`
}

// TimeoutConfig holds per-request timeouts in seconds.
type TimeoutConfig struct {
	List     int `yaml:"list"`
	Generate int `yaml:"generate"`
	Comment  int `yaml:"comment"`
}

// ListTimeout returns the model list timeout.
func (t TimeoutConfig) ListTimeout() time.Duration { return time.Duration(t.List) * time.Second }

// GenerateTimeout returns the generation timeout.
func (t TimeoutConfig) GenerateTimeout() time.Duration {
	return time.Duration(t.Generate) * time.Second
}

// CommentTimeout returns the comment posting timeout.
func (t TimeoutConfig) CommentTimeout() time.Duration {
	return time.Duration(t.Comment) * time.Second
}

// PrivacyConfig controls redaction of issue text.
type PrivacyConfig struct {
	RedactSecrets bool `yaml:"redactSecrets"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		FallbackModel: models.Fallback,
		GeminiBaseURL: providers.DefaultGeminiBaseURL,
		GitHubAPIURL:  github.DefaultAPIURL,
		CommentHeader: DefaultCommentHeader,
		Instructions:  DefaultInstructions,
		Format:        "text",
		Timeouts: TimeoutConfig{
			List:     10,
			Generate: 30,
			Comment:  15,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for triage.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "triage"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "triage"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "triage"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "triage"), nil
	default:
		return filepath.Join(home, ".config", "triage"), nil
	}
}

// ConfigPath returns the full path to the config file. TRIAGE_CONFIG wins
// over the platform default.
func ConfigPath() (string, error) {
	if p := os.Getenv("TRIAGE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile returns the defaults overlaid with the config file. Keys absent
// from the file keep their default. A missing file is not an error.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envKeys = map[string]string{
	"TRIAGE_MODEL":          "model",
	"TRIAGE_FALLBACK_MODEL": "fallbackModel",
	"TRIAGE_FORMAT":         "format",
	"TRIAGE_COMMENT_HEADER": "commentHeader",
	"TRIAGE_LOG_LEVEL":      "log.level",
	"TRIAGE_LOG_FORMAT":     "log.format",
	"GEMINI_BASE_URL":       "geminiBaseURL",
	"GITHUB_API_URL":        "githubAPIURL",
}

func mergeEnv(cfg *Config) error {
	for env, key := range envKeys {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
	}
	return nil
}

// Keys lists the keys accepted by SetField.
var Keys = []string{
	"model", "fallbackModel", "geminiBaseURL", "githubAPIURL", "commentHeader",
	"instructions", "format", "timeouts.list", "timeouts.generate", "timeouts.comment",
	"privacy.redactSecrets", "log.level", "log.format",
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "model":
		cfg.Model = value
	case "fallbackModel":
		cfg.FallbackModel = value
	case "geminiBaseURL":
		cfg.GeminiBaseURL = value
	case "githubAPIURL":
		cfg.GitHubAPIURL = value
	case "commentHeader":
		cfg.CommentHeader = value
	case "instructions":
		cfg.Instructions = value
	case "format":
		cfg.Format = value
	case "timeouts.list", "timeouts.generate", "timeouts.comment":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		switch key {
		case "timeouts.list":
			cfg.Timeouts.List = n
		case "timeouts.generate":
			cfg.Timeouts.Generate = n
		default:
			cfg.Timeouts.Comment = n
		}
	case "privacy.redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unsupported format %q (want text, json or markdown)", c.Format)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", c.Log.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Timeouts.List <= 0 || c.Timeouts.Generate <= 0 || c.Timeouts.Comment <= 0 {
		return fmt.Errorf("timeouts must be positive (list=%d generate=%d comment=%d)",
			c.Timeouts.List, c.Timeouts.Generate, c.Timeouts.Comment)
	}
	if strings.TrimSpace(c.FallbackModel) == "" {
		return errors.New("fallbackModel must not be empty")
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
