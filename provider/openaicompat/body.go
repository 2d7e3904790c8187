package openaicompat

import "strings"

const (
	standardMaxTokens  = 8192
	reasoningMaxTokens = 16384
)

// reasoningPrefixes identify model families that reject max_tokens and
// temperature in favor of max_completion_tokens.
var reasoningPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

// IsReasoningModel reports whether model requires the reasoning-class
// parameter convention (max_completion_tokens, no temperature).
func IsReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}

// BuildBody converts a (system, user) pair into a chat completions request
// for the given model, switching token-limit conventions on the model class.
func BuildBody(model, system, user string) ChatRequest {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	req := ChatRequest{Model: model, Messages: msgs}
	if IsReasoningModel(model) {
		req.MaxCompletionTokens = reasoningMaxTokens
	} else {
		req.MaxTokens = standardMaxTokens
		temp := 0.7
		req.Temperature = &temp
	}
	return req
}
