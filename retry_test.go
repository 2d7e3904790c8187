package foreman

import (
	"context"
	"errors"
	"testing"
)

// stubInvoker returns pre-configured results in order.
type stubInvoker struct {
	calls   int
	results []stubResult
}

type stubResult struct {
	text string
	err  error
}

func (s *stubInvoker) Name() string { return "stub" }

func (s *stubInvoker) Invoke(context.Context, InvokeRequest) (string, error) {
	r := stubResult{}
	if s.calls < len(s.results) {
		r = s.results[s.calls]
	}
	s.calls++
	return r.text, r.err
}

var _ Invoker = (*stubInvoker)(nil)

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubInvoker{results: []stubResult{{text: "hello"}}}
	inv := WithRetry(stub, RetryBaseDelay(0))

	text, err := inv.Invoke(context.Background(), InvokeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Errorf("got %q, want %q", text, "hello")
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithRetry_RetriesOn429(t *testing.T) {
	stub := &stubInvoker{results: []stubResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited"}},
		{text: "hello"},
	}}
	inv := WithRetry(stub, RetryBaseDelay(0))

	text, err := inv.Invoke(context.Background(), InvokeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" || stub.calls != 2 {
		t.Errorf("got %q after %d calls, want hello after 2", text, stub.calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	stub := &stubInvoker{results: []stubResult{
		{err: &ErrHTTP{Status: 503, Body: "unavailable"}},
		{err: &ErrHTTP{Status: 503, Body: "unavailable"}},
		{err: &ErrHTTP{Status: 503, Body: "unavailable"}},
	}}
	inv := WithRetry(stub, RetryMaxAttempts(3), RetryBaseDelay(0))

	_, err := inv.Invoke(context.Background(), InvokeRequest{})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Fatalf("got %v, want the final 503", err)
	}
	if stub.calls != 3 {
		t.Errorf("got %d calls, want 3", stub.calls)
	}
}

func TestWithRetry_NonTransientPassesThrough(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"bad request", &ErrHTTP{Status: 400, Body: "bad request"}},
		{"auth", &ErrHTTP{Status: 401, Body: "unauthorized"}},
		{"extraction", &ErrExtraction{Provider: "openai", Keys: []string{"id"}}},
		{"plain", errors.New("boom")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubInvoker{results: []stubResult{{err: tc.err}}}
			inv := WithRetry(stub, RetryBaseDelay(0))

			if _, err := inv.Invoke(context.Background(), InvokeRequest{}); !errors.Is(err, tc.err) {
				t.Fatalf("got %v, want %v", err, tc.err)
			}
			if stub.calls != 1 {
				t.Errorf("got %d calls, want 1 (no retry)", stub.calls)
			}
		})
	}
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	stub := &stubInvoker{results: []stubResult{
		{err: &ErrHTTP{Status: 429, Body: "rate limited"}},
		{text: "never reached"},
	}}
	inv := WithRetry(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := inv.Invoke(ctx, InvokeRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithRetry_PreservesName(t *testing.T) {
	inv := WithRetry(&stubInvoker{})
	if inv.Name() != "stub" {
		t.Errorf("got %q, want delegated name", inv.Name())
	}
}
