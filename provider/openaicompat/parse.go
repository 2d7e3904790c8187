package openaicompat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	foreman "github.com/nevindra/foreman"
)

// ExtractText pulls the response text out of a chat-completions-style body
// using a fixed-priority strategy list:
//
//  1. choices[0].message.content as a string
//  2. choices[0].message.content as a list of text parts, joined
//  3. output_text (Responses API convenience field)
//  4. output[].text, then output[].content[].text (Responses API)
//
// The order encodes several historical response shapes and is load-bearing;
// extend it deliberately for new shapes rather than generalizing. When every
// strategy yields empty text the error names the observed top-level keys.
func ExtractText(name string, raw []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", name, err)
	}

	// Strategy 1+2: chat completions choices.
	if choicesRaw, ok := top["choices"]; ok {
		var choices []choice
		if err := json.Unmarshal(choicesRaw, &choices); err == nil && len(choices) > 0 {
			content := choices[0].Message.Content

			var s string
			if json.Unmarshal(content, &s) == nil {
				if t := strings.TrimSpace(s); t != "" {
					return t, nil
				}
			}

			var parts []contentPart
			if json.Unmarshal(content, &parts) == nil {
				var texts []string
				for _, p := range parts {
					if p.Text != "" {
						texts = append(texts, p.Text)
					}
				}
				if t := strings.TrimSpace(strings.Join(texts, "\n")); t != "" {
					return t, nil
				}
			}
		}
	}

	// Strategy 3: Responses API output_text.
	if outRaw, ok := top["output_text"]; ok {
		var s string
		if json.Unmarshal(outRaw, &s) == nil {
			if t := strings.TrimSpace(s); t != "" {
				return t, nil
			}
		}
	}

	// Strategy 4: Responses API output entries.
	if outRaw, ok := top["output"]; ok {
		var entries []outputEntry
		if json.Unmarshal(outRaw, &entries) == nil {
			for _, e := range entries {
				if t := strings.TrimSpace(e.Text); t != "" {
					return t, nil
				}
				for _, p := range e.Content {
					if t := strings.TrimSpace(p.Text); t != "" {
						return t, nil
					}
				}
			}
		}
	}

	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", &foreman.ErrExtraction{Provider: name, Keys: keys}
}
