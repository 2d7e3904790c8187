package foreman

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubSearcher struct {
	query   string
	results []SearchResult
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	s.query = query
	return s.results, s.err
}

var _ Searcher = (*stubSearcher)(nil)

func TestBuildPrompt_Structure(t *testing.T) {
	step := Step{Name: "Draft Article", AgentRole: "writer", Input: `{"topic": "solar storms"}`}
	sctx := StepContext{ContentType: "blog_post", SelectedAngle: "consumer impact", Briefing: "keep it short"}

	prompt := BuildPrompt(context.Background(), step, sctx, nil)

	for _, want := range []string{
		"## Task: Draft Article",
		"Content Type: blog_post",
		"Selected Angle: consumer impact",
		"Briefing: keep it short",
		"## Input Data",
		"**topic:** solar storms",
		"## Output Format",
		"Return ONLY valid JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_PrimaryKeyOrder(t *testing.T) {
	step := Step{Name: "x", Input: `{"summary": "s", "topic": "t"}`}
	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), nil)

	ti := strings.Index(prompt, "**topic:**")
	si := strings.Index(prompt, "**summary:**")
	if ti == -1 || si == -1 {
		t.Fatalf("expected both primary keys in prompt:\n%s", prompt)
	}
	if ti > si {
		t.Error("topic should render before summary regardless of payload order")
	}
}

func TestBuildPrompt_ExtrasSortedWithSmallCap(t *testing.T) {
	big := strings.Repeat("z", 5000)
	step := Step{Name: "x", Input: `{"zeta": "` + big + `", "alpha": "first"}`}
	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), nil)

	if !strings.Contains(prompt, "**Additional context:**") {
		t.Fatalf("expected additional-context section:\n%s", prompt)
	}
	ai := strings.Index(prompt, "alpha: first")
	zi := strings.Index(prompt, "zeta: ")
	if ai == -1 || zi == -1 {
		t.Fatalf("expected both extras in prompt")
	}
	if ai > zi {
		t.Error("extras should be sorted alphabetically")
	}
	if strings.Contains(prompt, big) {
		t.Error("extra values should be capped at 1000 chars")
	}
}

func TestBuildPrompt_NonJSONInputFallsBack(t *testing.T) {
	step := Step{Name: "x", Input: "just some prose output from the last step"}
	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), nil)
	if !strings.Contains(prompt, "just some prose output") {
		t.Errorf("raw input should pass through verbatim:\n%s", prompt)
	}
}

func TestBuildPrompt_EmptyValuesSkipped(t *testing.T) {
	step := Step{Name: "x", Input: `{"topic": "", "angles": [], "summary": null, "quotes": "keep"}`}
	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), nil)
	for _, absent := range []string{"**topic:**", "**angles:**", "**summary:**"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("empty value %s should be skipped:\n%s", absent, prompt)
		}
	}
	if !strings.Contains(prompt, "**quotes:** keep") {
		t.Errorf("non-empty value missing:\n%s", prompt)
	}
}

func TestBuildPrompt_ListRendering(t *testing.T) {
	step := Step{Name: "x", Input: `{"angles": ["tech angle", "policy angle"]}`}
	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), nil)
	if !strings.Contains(prompt, "- tech angle") || !strings.Contains(prompt, "- policy angle") {
		t.Errorf("list items should render as sub-items:\n%s", prompt)
	}
}

func TestBuildPrompt_ResearchRoleIncludesSearch(t *testing.T) {
	searcher := &stubSearcher{results: []SearchResult{
		{Title: "Headline", URL: "https://example.com/a", Description: "desc"},
	}}
	step := Step{Name: "x", AgentRole: "news_scraper", Input: `{"topic": "fusion energy"}`}

	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), searcher)

	if searcher.query != "fusion energy" {
		t.Errorf("got query %q, want the topic", searcher.query)
	}
	if !strings.Contains(prompt, "## Latest Web Results") {
		t.Errorf("research role prompt missing web results:\n%s", prompt)
	}
	if !strings.Contains(prompt, "**Headline**") || !strings.Contains(prompt, "https://example.com/a") {
		t.Errorf("result fields missing:\n%s", prompt)
	}
}

func TestBuildPrompt_NonResearchRoleSkipsSearch(t *testing.T) {
	searcher := &stubSearcher{results: []SearchResult{{Title: "x"}}}
	step := Step{Name: "x", AgentRole: "writer", Input: `{"topic": "fusion energy"}`}

	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), searcher)

	if searcher.query != "" {
		t.Error("searcher should not be called for non-research roles")
	}
	if strings.Contains(prompt, "## Latest Web Results") {
		t.Error("non-research prompt should not include web results")
	}
}

func TestBuildPrompt_SearchFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("brave: 503")}
	step := Step{Name: "x", AgentRole: "sentiment_scraper", Input: `{"topic": "markets"}`}

	prompt := BuildPrompt(context.Background(), step, DefaultStepContext(), searcher)

	if strings.Contains(prompt, "## Latest Web Results") {
		t.Error("failed search should degrade to no results section")
	}
	if !strings.Contains(prompt, "## Input Data") {
		t.Error("prompt should still assemble without search")
	}
}

func TestBuildPrompt_TopicFallsBackToAngle(t *testing.T) {
	searcher := &stubSearcher{}
	step := Step{Name: "x", AgentRole: "research_enhancer", Input: `{}`}
	sctx := StepContext{ContentType: "blog_post", SelectedAngle: "supply chains"}

	BuildPrompt(context.Background(), step, sctx, searcher)

	if searcher.query != "supply chains" {
		t.Errorf("got query %q, want the selected angle", searcher.query)
	}
}
