package foreman

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrConfig marks an operator-actionable configuration gap: a role with no
// registered agent, or a provider with no API key. The message carries
// remediation guidance and is reported verbatim to the coordination service.
type ErrConfig struct {
	Message string
}

func (e *ErrConfig) Error() string { return e.Message }

// ErrHTTP is a non-2xx response from a provider or the coordination service.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrExtraction means a provider response carried no recoverable text under
// any known field path. Keys lists the top-level response keys observed so
// an operator can spot a new response shape.
type ErrExtraction struct {
	Provider string
	Keys     []string
}

func (e *ErrExtraction) Error() string {
	return fmt.Sprintf("%s: could not extract content from API response, keys: %v", e.Provider, e.Keys)
}

// ErrUnsupportedProvider is returned for a provider id outside the closed
// set of known adapters. Routing never falls back to a default provider.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %q", e.Provider)
}

// ClassifyError maps an execution error to the failure message reported to
// the coordination service. The classes are stable so operators can grep for
// them: configuration, HTTP transport, timeout, extraction, unsupported
// provider, and an unclassified catch-all carrying the error's type name.
func ClassifyError(err error) string {
	var (
		cfgErr  *ErrConfig
		httpErr *ErrHTTP
		extErr  *ErrExtraction
		unsErr  *ErrUnsupportedProvider
		netErr  net.Error
	)
	switch {
	case errors.As(err, &cfgErr):
		return cfgErr.Message
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP %d error: %s", httpErr.Status, Truncate(httpErr.Body, 500))
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "LLM API timeout: " + Truncate(err.Error(), 300)
	case errors.As(err, &extErr):
		return extErr.Error()
	case errors.As(err, &unsErr):
		return unsErr.Error()
	default:
		return fmt.Sprintf("%T: %s", err, Truncate(err.Error(), 500))
	}
}
