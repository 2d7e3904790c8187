package foreman

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SearchResult is one web search hit included in research prompts.
type SearchResult struct {
	Title       string
	URL         string
	Description string
}

// Searcher supplies supplementary web results for research-oriented roles.
// tools/search implements it against the Brave API. A failed or empty search
// never fails prompt assembly.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// researchRoles is the closed set of agent roles whose prompts include live
// web results. Extend deliberately; search calls cost latency and quota.
var researchRoles = map[string]bool{
	"news_scraper":      true,
	"sentiment_scraper": true,
	"research_enhancer": true,
}

// primaryInputKeys are the payload fields included verbatim (capped at
// maxPrimaryField chars), in this order. Anything else lands in the
// additional-context section capped at maxExtraField.
var primaryInputKeys = []string{
	"topic", "selectedAngle", "summary", "sentiment",
	"narratives", "angles", "quotes", "fullReport",
}

const (
	maxPrimaryField = 3000
	maxExtraField   = 1000
	maxRawInput     = 5000
)

// outputContract closes every prompt. The normalizer is designed to exploit
// this shape but never assumes the model honored it.
const outputContract = "Return your output as a valid JSON object. Include at minimum:\n" +
	"- \"result\": your main output text/analysis\n" +
	"- \"metadata\": any structured data relevant to the task\n" +
	"Do NOT wrap in markdown code blocks. Return ONLY valid JSON."

// BuildPrompt assembles the user prompt for a step from its payload, the
// workflow context, and (for research roles) live web results. searcher may
// be nil; search failures degrade to a prompt without web results.
func BuildPrompt(ctx context.Context, step Step, sctx StepContext, searcher Searcher) string {
	input := parseInput(step.Input)

	topic := sctx.SelectedAngle
	if t, ok := input["topic"].(string); ok && t != "" {
		topic = t
	}

	var sections []string
	sections = append(sections, "## Task: "+step.Name)
	sections = append(sections, "Content Type: "+sctx.ContentType)
	if sctx.SelectedAngle != "" {
		sections = append(sections, "Selected Angle: "+sctx.SelectedAngle)
	}
	if sctx.Briefing != "" {
		sections = append(sections, "Briefing: "+sctx.Briefing)
	}

	if researchRoles[step.AgentRole] && searcher != nil && topic != "" {
		if results, err := searcher.Search(ctx, topic); err == nil && len(results) > 0 {
			var b strings.Builder
			b.WriteString("\n## Latest Web Results")
			for i, r := range results {
				fmt.Fprintf(&b, "\n%d. **%s**\n   %s\n   %s", i+1, r.Title, r.URL, r.Description)
			}
			sections = append(sections, b.String())
		}
	}

	sections = append(sections, "\n## Input Data")
	sections = append(sections, renderInput(input, step.Input)...)

	sections = append(sections, "\n## Output Format")
	sections = append(sections, outputContract)

	return strings.Join(sections, "\n\n")
}

// parseInput attempts a structured parse of the step payload. Non-object
// payloads (prose, arrays, scalars) fall back to {"raw_input": raw}.
func parseInput(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{"raw_input": raw}
	}
	return m
}

// renderInput renders the parsed payload: primary keys first with the large
// cap, then any residual keys sorted, with the small cap. List values become
// enumerated sub-items.
func renderInput(input map[string]any, raw string) []string {
	if len(input) == 1 {
		if v, ok := input["raw_input"].(string); ok {
			return []string{Truncate(v, maxRawInput)}
		}
	}

	var sections []string
	seen := map[string]bool{"briefing": true, "sources": true}
	for _, key := range primaryInputKeys {
		seen[key] = true
		val, ok := input[key]
		if !ok || val == nil {
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		if list, ok := val.([]any); ok {
			if len(list) == 0 {
				continue
			}
			var b strings.Builder
			fmt.Fprintf(&b, "**%s:**", key)
			for _, item := range list {
				fmt.Fprintf(&b, "\n  - %s", renderValue(item, maxPrimaryField))
			}
			sections = append(sections, b.String())
			continue
		}
		sections = append(sections, fmt.Sprintf("**%s:** %s", key, renderValue(val, maxPrimaryField)))
	}

	var extras []string
	for key := range input {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		var b strings.Builder
		b.WriteString("\n**Additional context:**")
		for _, key := range extras {
			fmt.Fprintf(&b, "\n  %s: %s", key, renderValue(input[key], maxExtraField))
		}
		sections = append(sections, b.String())
	}
	return sections
}

// renderValue stringifies a parsed JSON value: strings verbatim, everything
// else re-marshaled, capped at max chars.
func renderValue(v any, max int) string {
	if s, ok := v.(string); ok {
		return Truncate(s, max)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return Truncate(fmt.Sprintf("%v", v), max)
	}
	return Truncate(string(out), max)
}
