// Package config loads daemon configuration: defaults -> TOML file ->
// FOREMAN_* env vars (env wins). All settings are fixed at startup; nothing
// here is runtime-mutable.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Daemon      DaemonConfig      `toml:"daemon"`
	LLM         LLMConfig         `toml:"llm"`
	Keys        KeysConfig        `toml:"keys"`
	Search      SearchConfig      `toml:"search"`
	Journal     JournalConfig     `toml:"journal"`
	Observer    ObserverConfig    `toml:"observer"`
}

type CoordinatorConfig struct {
	BaseURL  string `toml:"base_url"`
	AdminKey string `toml:"admin_key"`
}

type DaemonConfig struct {
	PollIntervalSeconds      int `toml:"poll_interval_seconds"`
	MaxConcurrentSteps       int `toml:"max_concurrent_steps"`
	HeartbeatIntervalSeconds int `toml:"heartbeat_interval_seconds"`
	KeySyncIntervalSeconds   int `toml:"key_sync_interval_seconds"`
	MaxOutputChars           int `toml:"max_output_chars"`
}

type LLMConfig struct {
	TimeoutSeconds   int `toml:"timeout_seconds"`
	RetryMaxAttempts int `toml:"retry_max_attempts"`
}

type KeysConfig struct {
	Path string `toml:"path"`
}

type SearchConfig struct {
	BraveAPIKey  string `toml:"brave_api_key"`
	FetchContent bool   `toml:"fetch_content"`
}

type JournalConfig struct {
	// Driver selects the journal backend: "" (disabled), "sqlite", or
	// "postgres".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/tmp"
	}
	return Config{
		Daemon: DaemonConfig{
			PollIntervalSeconds:      8,
			MaxConcurrentSteps:       4,
			HeartbeatIntervalSeconds: 60,
			KeySyncIntervalSeconds:   30,
			MaxOutputChars:           50000,
		},
		LLM: LLMConfig{
			TimeoutSeconds:   120,
			RetryMaxAttempts: 1,
		},
		Keys: KeysConfig{
			Path: filepath.Join(home, ".config", "mission-control", "api-keys.json"),
		},
		Journal: JournalConfig{
			Path: "foreman.db",
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "foreman.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("FOREMAN_COORDINATOR_URL"); v != "" {
		cfg.Coordinator.BaseURL = v
	}
	if v := os.Getenv("FOREMAN_ADMIN_KEY"); v != "" {
		cfg.Coordinator.AdminKey = v
	}
	if v := os.Getenv("FOREMAN_KEYS_PATH"); v != "" {
		cfg.Keys.Path = v
	}
	if v := os.Getenv("FOREMAN_BRAVE_API_KEY"); v != "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := os.Getenv("FOREMAN_JOURNAL_DSN"); v != "" {
		cfg.Journal.DSN = v
	}
	if v := os.Getenv("FOREMAN_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Daemon.MaxConcurrentSteps = n
		}
	}
	if os.Getenv("FOREMAN_OBSERVER_ENABLED") == "true" || os.Getenv("FOREMAN_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
