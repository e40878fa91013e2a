// Package config provides configuration management for the application.
// Configuration is assembled once at startup, before the first dispatch,
// from an optional YAML file overlaid with environment variables; the
// resulting provider set is immutable and keeps its declaration order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"promptrun/internal/core"
	"promptrun/internal/providers"
	"promptrun/internal/store"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     store.Config    `yaml:"store"`
	Providers []ProviderEntry `yaml:"providers"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey is only read from the environment, never from YAML,
	// so config files stay free of secrets.
	MasterKey string `yaml:"-"`
}

// LoggingConfig selects log output format and level.
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`  // debug, info, warn, error
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ProviderEntry is one provider block in the YAML file. The list order
// is the insertion order used for "available providers" messages.
type ProviderEntry struct {
	ID           string `yaml:"id"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// knownProviderEnvs maps well-known providers to their environment
// variables. The slice order fixes where env-discovered providers land
// in the insertion order.
var knownProviderEnvs = []struct {
	id         core.ProviderID
	apiKeyEnvs []string
	baseURLEnv string
}{
	{core.ProviderOpenAI, []string{"OPENAI_API_KEY"}, "OPENAI_BASE_URL"},
	{core.ProviderAnthropic, []string{"ANTHROPIC_API_KEY"}, "ANTHROPIC_BASE_URL"},
	{core.ProviderGoogle, []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}, "GOOGLE_BASE_URL"},
}

// Load reads configuration from the optional YAML file at path, then
// overlays environment variables. Env values win over YAML values.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:  ServerConfig{Port: "8080"},
		Logging: LoggingConfig{Format: "json", Level: "info"},
		Store:   store.Config{Type: store.TypeMemory},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.Providers = filterProviders(cfg.Providers)
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	cfg.Server.MasterKey = os.Getenv("PROMPTRUN_MASTER_KEY")
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v == "true" || v == "1" {
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("STORE_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("STORE_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("STORE_MONGO_URL"); v != "" {
		cfg.Store.MongoURL = v
	}
	if v := os.Getenv("STORE_MONGO_DATABASE"); v != "" {
		cfg.Store.MongoDatabase = v
	}

	applyProviderEnvVars(cfg)
}

// applyProviderEnvVars overlays well-known provider env vars onto the
// provider list. Env values win for an existing entry; providers only
// present in the environment are appended in knownProviderEnvs order.
func applyProviderEnvVars(cfg *Config) {
	for _, kp := range knownProviderEnvs {
		var apiKey string
		for _, env := range kp.apiKeyEnvs {
			if v := os.Getenv(env); v != "" {
				apiKey = v
				break
			}
		}
		baseURL := os.Getenv(kp.baseURLEnv)
		if apiKey == "" && baseURL == "" {
			continue
		}

		found := false
		for i := range cfg.Providers {
			if cfg.Providers[i].ID != string(kp.id) {
				continue
			}
			found = true
			if apiKey != "" {
				cfg.Providers[i].APIKey = apiKey
			}
			if baseURL != "" {
				cfg.Providers[i].BaseURL = baseURL
			}
		}
		if !found {
			cfg.Providers = append(cfg.Providers, ProviderEntry{
				ID:      string(kp.id),
				APIKey:  apiKey,
				BaseURL: baseURL,
			})
		}
	}
}

// filterProviders drops entries without usable credentials, including
// unexpanded ${VAR} placeholders left over from templated YAML.
func filterProviders(entries []ProviderEntry) []ProviderEntry {
	result := make([]ProviderEntry, 0, len(entries))
	for _, e := range entries {
		if e.APIKey == "" || containsPlaceholder(e.APIKey) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func containsPlaceholder(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '$' && s[i+1] == '{' {
			return true
		}
	}
	return false
}

// ProviderSet converts the configured entries into the immutable
// provider configuration consumed by the dispatcher.
func (c *Config) ProviderSet() *providers.Config {
	entries := make([]providers.ProviderConfig, 0, len(c.Providers))
	for _, e := range c.Providers {
		entries = append(entries, providers.ProviderConfig{
			ID:           core.ProviderID(e.ID),
			APIKey:       e.APIKey,
			BaseURL:      e.BaseURL,
			DefaultModel: e.DefaultModel,
		})
	}
	return providers.NewConfig(entries...)
}
