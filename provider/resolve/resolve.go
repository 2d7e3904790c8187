// Package resolve maps a provider id to the right wire-format adapter. The
// set of supported ids is closed: an unrecognized id fails immediately with
// foreman.ErrUnsupportedProvider and never falls back to a default.
package resolve

import (
	"context"

	foreman "github.com/nevindra/foreman"
	"github.com/nevindra/foreman/provider/anthropic"
	"github.com/nevindra/foreman/provider/gemini"
	"github.com/nevindra/foreman/provider/openaicompat"
)

const (
	minimaxBaseURL = "https://api.minimax.io/anthropic/v1"
	grokBaseURL    = "https://api.x.ai/v1"
	metaBaseURL    = "https://api.groq.com/openai/v1"
)

// New creates the adapter for a provider id:
//
//	anthropic, minimax  -> Anthropic Messages wire shape
//	openai, grok, meta  -> chat completions wire shape
//	google              -> Gemini generateContent
func New(providerID, apiKey, model string) (foreman.Invoker, error) {
	switch providerID {
	case "anthropic":
		return anthropic.New(apiKey, model), nil
	case "minimax":
		return anthropic.New(apiKey, model,
			anthropic.WithBaseURL(minimaxBaseURL), anthropic.WithName("minimax")), nil
	case "openai":
		return openaicompat.New(apiKey, model), nil
	case "grok":
		return openaicompat.New(apiKey, model,
			openaicompat.WithBaseURL(grokBaseURL), openaicompat.WithName("grok")), nil
	case "meta":
		return openaicompat.New(apiKey, model,
			openaicompat.WithBaseURL(metaBaseURL), openaicompat.WithName("meta")), nil
	case "google":
		return gemini.New(apiKey, model), nil
	default:
		return nil, &foreman.ErrUnsupportedProvider{Provider: providerID}
	}
}

// Invoke resolves providerID and routes one call through it. It satisfies
// foreman.InvokeFunc, which is what the step executor depends on.
func Invoke(ctx context.Context, providerID, apiKey, model, system, user string) (string, error) {
	inv, err := New(providerID, apiKey, model)
	if err != nil {
		return "", err
	}
	return inv.Invoke(ctx, foreman.InvokeRequest{System: system, User: user})
}

// WithRetry returns an InvokeFunc that resolves providerID per call and wraps
// the adapter in the transient-error retry policy with the given attempt
// budget.
func WithRetry(maxAttempts int, opts ...foreman.RetryOption) foreman.InvokeFunc {
	return func(ctx context.Context, providerID, apiKey, model, system, user string) (string, error) {
		inv, err := New(providerID, apiKey, model)
		if err != nil {
			return "", err
		}
		all := append([]foreman.RetryOption{foreman.RetryMaxAttempts(maxAttempts)}, opts...)
		return foreman.WithRetry(inv, all...).Invoke(ctx, foreman.InvokeRequest{System: system, User: user})
	}
}
