// Package llmtest provides shared contract tests that verify any
// llm.Provider implementation behaves correctly. Every provider's test
// file should call TestProviderContract to ensure conformance.
//
// The suite runs offline: the factory is expected to return a provider
// pointed at a fake backend (httptest server or the mock provider) that
// answers every request successfully.
package llmtest

import (
	"context"
	"testing"

	"github.com/HerbHall/plangen/pkg/llm"
)

// TestProviderContract runs a suite of behavioral contract tests against
// any llm.Provider implementation. Call this from each provider's _test.go:
//
//	func TestContract(t *testing.T) {
//	    llmtest.TestProviderContract(t, func() llm.Provider { return newTestProvider(t, srv.URL) })
//	}
func TestProviderContract(t *testing.T, factory func() llm.Provider) {
	t.Helper()

	conversation := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a helpful assistant. Be concise."},
		{Role: llm.RoleUser, Content: "Say hello."},
	}

	t.Run("Identity_is_set", func(t *testing.T) {
		p := factory()
		if p.Name() == "" {
			t.Error("Name() must not be empty")
		}
		if p.Model() == "" {
			t.Error("Model() must not be empty")
		}
	})

	t.Run("Invoke_returns_non_empty_response", func(t *testing.T) {
		p := factory()
		resp, err := p.Invoke(context.Background(), conversation)
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if resp == nil {
			t.Fatal("Invoke() returned nil response")
		}
		if resp.Content == "" {
			t.Error("Invoke() returned empty content")
		}
		if resp.Model == "" {
			t.Error("Response.Model must not be empty")
		}
	})

	t.Run("Invoke_empty_messages_returns_error", func(t *testing.T) {
		p := factory()
		_, err := p.Invoke(context.Background(), nil)
		if err == nil {
			t.Error("Invoke() with nil messages should return error")
		}
	})

	t.Run("Invoke_cancelled_context", func(t *testing.T) {
		p := factory()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Invoke(ctx, conversation)
		if err == nil {
			t.Error("Invoke() with cancelled context should return error")
		}
	})

	t.Run("Stream_yields_fragments", func(t *testing.T) {
		p := factory()
		var n int
		text, err := llm.Collect(func(yield func(string, error) bool) {
			for fragment, err := range p.Stream(context.Background(), conversation) {
				if err == nil {
					n++
				}
				if !yield(fragment, err) {
					return
				}
			}
		})
		if err != nil {
			t.Fatalf("Stream() error = %v", err)
		}
		if n == 0 || text == "" {
			t.Errorf("Stream() yielded %d fragments, text %q", n, text)
		}
	})

	t.Run("Stream_stops_when_consumer_breaks", func(t *testing.T) {
		p := factory()
		for fragment, err := range p.Stream(context.Background(), conversation) {
			if err != nil {
				t.Fatalf("Stream() error = %v", err)
			}
			_ = fragment
			break
		}
	})

	t.Run("Stream_empty_messages_returns_error", func(t *testing.T) {
		p := factory()
		_, err := llm.Collect(p.Stream(context.Background(), nil))
		if err == nil {
			t.Error("Stream() with nil messages should yield an error")
		}
	})

	t.Run("HealthReporter_if_implemented", func(t *testing.T) {
		p := factory()
		hr, ok := p.(llm.HealthReporter)
		if !ok {
			t.Skip("Provider does not implement HealthReporter")
		}
		if err := hr.Heartbeat(context.Background()); err != nil {
			t.Errorf("Heartbeat() error = %v", err)
		}
	})
}
