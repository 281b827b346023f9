package config

import (
	"os"
	"strconv"
)

// Setting is one effective config value and the layer that set it.
type Setting struct {
	Key    string
	Value  string
	Source string
}

// Explain loads the effective config like Load and reports, for every key
// in Keys, its value and where it came from: "default", "file",
// "env:<NAME>" or "flag". A file value equal to the default reads as
// "default".
func Explain(overrides map[string]string) ([]Setting, error) {
	cfg, err := Load(overrides)
	if err != nil {
		return nil, err
	}
	file, err := LoadFile()
	if err != nil {
		return nil, err
	}
	def := Default()

	fromEnv := make(map[string]string, len(envKeys))
	for env, key := range envKeys {
		if os.Getenv(env) != "" {
			fromEnv[key] = env
		}
	}

	settings := make([]Setting, 0, len(Keys))
	for _, key := range Keys {
		s := Setting{Key: key, Value: GetField(cfg, key), Source: "default"}
		switch {
		case overrides[key] != "":
			s.Source = "flag"
		case fromEnv[key] != "":
			s.Source = "env:" + fromEnv[key]
		case GetField(file, key) != GetField(def, key):
			s.Source = "file"
		}
		settings = append(settings, s)
	}
	return settings, nil
}

// GetField returns the string form of a config field. Unknown keys yield "".
func GetField(cfg Config, key string) string {
	switch key {
	case "model":
		return cfg.Model
	case "fallbackModel":
		return cfg.FallbackModel
	case "geminiBaseURL":
		return cfg.GeminiBaseURL
	case "githubAPIURL":
		return cfg.GitHubAPIURL
	case "commentHeader":
		return cfg.CommentHeader
	case "instructions":
		return cfg.Instructions
	case "format":
		return cfg.Format
	case "timeouts.list":
		return strconv.Itoa(cfg.Timeouts.List)
	case "timeouts.generate":
		return strconv.Itoa(cfg.Timeouts.Generate)
	case "timeouts.comment":
		return strconv.Itoa(cfg.Timeouts.Comment)
	case "privacy.redactSecrets":
		return strconv.FormatBool(cfg.Privacy.RedactSecrets)
	case "log.level":
		return cfg.Log.Level
	case "log.format":
		return cfg.Log.Format
	}
	return ""
}

// EnvFor returns the environment variable that overrides key, or "".
func EnvFor(key string) string {
	for env, k := range envKeys {
		if k == key {
			return env
		}
	}
	return ""
}
