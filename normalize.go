package foreman

import (
	"encoding/json"
	"errors"
	"strings"
)

// errNoJSON is the internal sentinel for "no extractable JSON"; Normalize
// turns it into the raw-text envelope rather than surfacing it.
var errNoJSON = errors.New("no extractable JSON in text")

// ExtractJSON pulls a JSON object or array out of LLM response text that may
// carry markdown fences or surrounding prose. Strategy order is fixed and
// load-bearing: fence strip, direct parse, greedy object scan, greedy array
// scan. Scalars parse but are rejected — only objects and arrays count.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errNoJSON
	}

	if raw, ok := parseContainer(text); ok {
		return raw, nil
	}

	// Greedy bracket scan: widest {...} first, then widest [...].
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if raw, ok := parseContainer(text[start : end+1]); ok {
			return raw, nil
		}
	}

	return nil, errNoJSON
}

// parseContainer parses s as JSON and reports whether it is an object or
// array. The returned RawMessage is compacted re-marshaled JSON so stored
// output is canonical regardless of the model's formatting.
func parseContainer(s string) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		out, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// rawEnvelope wraps non-JSON output so every submitted payload is JSON.
type rawEnvelope struct {
	Result   string              `json:"result"`
	Metadata rawEnvelopeMetadata `json:"metadata"`
}

type rawEnvelopeMetadata struct {
	RawResponse bool   `json:"raw_response"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Chars       int    `json:"chars"`
}

// Normalize converts raw LLM output into the payload submitted to the
// coordination service. It never fails: when no JSON can be extracted the
// text is wrapped in a deterministic envelope under "result" with metadata
// flagging it as unprocessed. Choosing between "parsed" and "wrapped" is the
// only decision made here.
func Normalize(raw, provider, model string) string {
	if extracted, err := ExtractJSON(raw); err == nil {
		return string(extracted)
	}
	env, err := json.Marshal(rawEnvelope{
		Result: raw,
		Metadata: rawEnvelopeMetadata{
			RawResponse: true,
			Provider:    provider,
			Model:       model,
			Chars:       len(raw),
		},
	})
	if err != nil {
		// A string and ints always marshal; unreachable.
		return raw
	}
	return string(env)
}
