// Package openaicompat provides shared body building and response parsing
// for chat-completions-style providers (OpenAI, xAI/Grok, Groq). One adapter
// serves all of them, parameterized by endpoint base URL and by a
// model-name heuristic for reasoning-class parameter conventions.
package openaicompat

import "encoding/json"

// --- Request types ---

// ChatRequest is the chat completions request body. Exactly one of
// MaxTokens or MaxCompletionTokens is set, depending on the model class.
type ChatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	MaxTokens           int       `json:"max_tokens,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
	Temperature         *float64  `json:"temperature,omitempty"`
}

// Message is a single message in the chat format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---
//
// Responses are decoded field-by-field from raw JSON rather than into one
// struct: the extraction strategies probe several historical response shapes
// (chat completions and the Responses API) and must report the observed
// top-level keys when all of them miss.

// choice is one entry of the chat-completions "choices" array. Content may
// be a plain string or a list of typed parts, so it stays raw here.
type choice struct {
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// contentPart is one element of a list-valued message content.
type contentPart struct {
	Text string `json:"text"`
}

// outputEntry is one entry of the Responses-API "output" array.
type outputEntry struct {
	Text    string        `json:"text"`
	Content []contentPart `json:"content"`
}
