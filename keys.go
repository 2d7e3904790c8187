package foreman

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// KeySnapshot holds the provider -> API key mapping loaded from a local JSON
// file (synced from the coordination service by a separate process). Reads
// never block behind a refresh beyond the atomic map swap, and a failed
// refresh leaves the previous snapshot intact — transient file errors must
// not clear valid keys out from under in-flight steps.
type KeySnapshot struct {
	path string

	mu   sync.RWMutex
	keys map[string]string
}

// NewKeySnapshot creates an empty snapshot backed by the JSON file at path.
// Call Refresh to load it.
func NewKeySnapshot(path string) *KeySnapshot {
	return &KeySnapshot{path: path, keys: map[string]string{}}
}

// Refresh reloads the key file, replacing the mapping atomically. When the
// file is missing or unparseable the prior mapping is kept and the error is
// returned for logging.
func (s *KeySnapshot) Refresh() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}

	fresh := map[string]string{}
	if err := json.Unmarshal(data, &fresh); err != nil {
		return fmt.Errorf("parse key file: %w", err)
	}

	s.mu.Lock()
	s.keys = fresh
	s.mu.Unlock()
	return nil
}

// Get returns the trimmed API key for a provider, or "" when none is set.
func (s *KeySnapshot) Get(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.keys[provider])
}

// Len returns the number of loaded keys (for startup logging).
func (s *KeySnapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Providers returns the provider ids with a loaded key, for startup logging.
func (s *KeySnapshot) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.keys))
	for p := range s.keys {
		out = append(out, p)
	}
	return out
}
