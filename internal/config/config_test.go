package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Daemon.PollIntervalSeconds != 8 {
		t.Errorf("got poll interval %d, want 8", cfg.Daemon.PollIntervalSeconds)
	}
	if cfg.Daemon.MaxConcurrentSteps != 4 {
		t.Errorf("got max concurrent %d, want 4", cfg.Daemon.MaxConcurrentSteps)
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Errorf("got LLM timeout %d, want 120", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Daemon.MaxOutputChars != 50000 {
		t.Errorf("got output cap %d, want 50000", cfg.Daemon.MaxOutputChars)
	}
	if filepath.Base(cfg.Keys.Path) != "api-keys.json" {
		t.Errorf("got keys path %q", cfg.Keys.Path)
	}
	if cfg.Journal.Driver != "" {
		t.Errorf("journal should be disabled by default, got %q", cfg.Journal.Driver)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.toml")
	content := `
[coordinator]
base_url = "https://coord.example.com"
admin_key = "secret"

[daemon]
poll_interval_seconds = 3
max_concurrent_steps = 2

[journal]
driver = "sqlite"
path = "/tmp/j.db"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)
	if cfg.Coordinator.BaseURL != "https://coord.example.com" {
		t.Errorf("got base URL %q", cfg.Coordinator.BaseURL)
	}
	if cfg.Daemon.PollIntervalSeconds != 3 || cfg.Daemon.MaxConcurrentSteps != 2 {
		t.Errorf("got daemon config %+v", cfg.Daemon)
	}
	// Unset TOML fields keep their defaults.
	if cfg.Daemon.HeartbeatIntervalSeconds != 60 {
		t.Errorf("got heartbeat %d, want default 60", cfg.Daemon.HeartbeatIntervalSeconds)
	}
	if cfg.Journal.Driver != "sqlite" || cfg.Journal.Path != "/tmp/j.db" {
		t.Errorf("got journal config %+v", cfg.Journal)
	}
}

func TestLoad_EnvWinsOverTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.toml")
	content := `
[coordinator]
base_url = "https://from-toml.example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FOREMAN_COORDINATOR_URL", "https://from-env.example.com")
	t.Setenv("FOREMAN_ADMIN_KEY", "env-key")
	t.Setenv("FOREMAN_MAX_CONCURRENT", "7")

	cfg := Load(path)
	if cfg.Coordinator.BaseURL != "https://from-env.example.com" {
		t.Errorf("got base URL %q, want env override", cfg.Coordinator.BaseURL)
	}
	if cfg.Coordinator.AdminKey != "env-key" {
		t.Errorf("got admin key %q", cfg.Coordinator.AdminKey)
	}
	if cfg.Daemon.MaxConcurrentSteps != 7 {
		t.Errorf("got max concurrent %d, want 7", cfg.Daemon.MaxConcurrentSteps)
	}
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("FOREMAN_MAX_CONCURRENT", "not-a-number")
	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.Daemon.MaxConcurrentSteps != 4 {
		t.Errorf("got max concurrent %d, want default 4", cfg.Daemon.MaxConcurrentSteps)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.Daemon.PollIntervalSeconds != 8 {
		t.Errorf("got poll interval %d, want default 8", cfg.Daemon.PollIntervalSeconds)
	}
}

func TestLoad_ObserverEnv(t *testing.T) {
	t.Setenv("FOREMAN_OBSERVER_ENABLED", "true")
	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !cfg.Observer.Enabled {
		t.Error("observer should be enabled by env")
	}
}
