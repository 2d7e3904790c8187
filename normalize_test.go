package foreman

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON_DirectObject(t *testing.T) {
	raw, err := ExtractJSON(`{"result": "done", "score": 3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("extracted output is not valid JSON: %v", err)
	}
	if m["result"] != "done" {
		t.Errorf("got result %v, want %q", m["result"], "done")
	}
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	text := "```json\n{\"result\": \"fenced\"}\n```"
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("extracted output is not valid JSON: %v", err)
	}
	if m["result"] != "fenced" {
		t.Errorf("got result %v, want %q", m["result"], "fenced")
	}
}

func TestExtractJSON_EmbeddedInProse(t *testing.T) {
	text := `Here is my analysis: {"verdict": "positive"} hope that helps!`
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("extracted output is not valid JSON: %v", err)
	}
	if m["verdict"] != "positive" {
		t.Errorf("got verdict %q, want %q", m["verdict"], "positive")
	}
}

func TestExtractJSON_Array(t *testing.T) {
	raw, err := ExtractJSON(`The items are: [1, 2, 3] as requested.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("extracted output is not a JSON array: %v", err)
	}
	if len(list) != 3 || list[0] != 1 {
		t.Errorf("got %v, want [1 2 3]", list)
	}
}

func TestExtractJSON_ScalarRejected(t *testing.T) {
	// Bare scalars parse as JSON but are not acceptable step output.
	if _, err := ExtractJSON(`42`); err == nil {
		t.Error("expected error for bare scalar, got nil")
	}
	if _, err := ExtractJSON(`"just a string"`); err == nil {
		t.Error("expected error for bare string, got nil")
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	for _, text := range []string{"no json here", "", "   ", "{broken"} {
		if _, err := ExtractJSON(text); err == nil {
			t.Errorf("ExtractJSON(%q): expected error, got nil", text)
		}
	}
}

func TestExtractJSON_GreedyScanPrefersWidestSpan(t *testing.T) {
	// Both spans parse; the widest {...} wins, so the nested object stays
	// inside the outer one rather than being extracted alone.
	text := `prefix {"outer": {"inner": 1}} suffix`
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("extracted output is not valid JSON: %v", err)
	}
	if _, ok := m["outer"]; !ok {
		t.Errorf("expected outer object, got %v", m)
	}
}

func TestNormalize_ValidJSONPassesThrough(t *testing.T) {
	out := Normalize(`{"result": "x"}`, "anthropic", "claude-3")
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if m["result"] != "x" {
		t.Errorf("got %v, want result=x", m)
	}
	if _, wrapped := m["metadata"]; wrapped {
		t.Error("valid JSON should not gain an envelope")
	}
}

func TestNormalize_WrapsRawText(t *testing.T) {
	raw := "no json here"
	out := Normalize(raw, "google", "gemini-pro")

	var env struct {
		Result   string `json:"result"`
		Metadata struct {
			RawResponse bool   `json:"raw_response"`
			Provider    string `json:"provider"`
			Model       string `json:"model"`
			Chars       int    `json:"chars"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if env.Result != raw {
		t.Errorf("got result %q, want %q", env.Result, raw)
	}
	if !env.Metadata.RawResponse {
		t.Error("raw_response flag not set")
	}
	if env.Metadata.Provider != "google" || env.Metadata.Model != "gemini-pro" {
		t.Errorf("metadata provenance wrong: %+v", env.Metadata)
	}
	if env.Metadata.Chars != len(raw) {
		t.Errorf("got chars %d, want %d", env.Metadata.Chars, len(raw))
	}
}

func TestNormalize_NeverReturnsEmpty(t *testing.T) {
	out := Normalize("", "openai", "gpt-4o")
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output for empty input is not valid JSON: %v", err)
	}
}
