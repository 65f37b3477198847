package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/HerbHall/plangen/pkg/llm/llmtest"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

var hello = []llm.Message{{Role: llm.RoleUser, Content: "hello"}}

// newTestProvider creates a Provider pointing at the given httptest server
// whose backoff waits are recorded instead of slept.
func newTestProvider(t *testing.T, serverURL string, delays *[]time.Duration) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = serverURL + "/v1"
	cfg.Model = "test-model"

	p, err := New(cfg, "test-key", zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p.policy.Sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return p
}

// mockAPI returns an httptest server that answers chat completions in both modes.
func mockAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"test-model"},{"id":"other-model"}]}`)
	})

	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, part := range []string{"Hel", "lo"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"1","model":%q,"choices":[{"message":{"role":"assistant","content":"Hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`, req.Model)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestContract(t *testing.T) {
	srv := mockAPI(t)
	llmtest.TestProviderContract(t, func() llm.Provider {
		return newTestProvider(t, srv.URL, nil)
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(DefaultConfig(), "", zap.NewNop()); err == nil {
		t.Error("New() with empty key should fail")
	}
}

func TestInvoke_RequestShape(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	msgs := llm.Conversation("be brief", "hi")
	resp, err := p.Invoke(context.Background(), msgs, llm.WithTemperature(0.2))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if resp.Model != "test-model" {
		t.Errorf("Model = %q, want fallback %q", resp.Model, "test-model")
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}

	want := chatRequest{
		Model: "test-model",
		Messages: []chatMessage{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "hi"},
		},
		Temperature: 0.2,
		Stream:      false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestInvoke_HTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	var delays []time.Duration
	p := newTestProvider(t, srv.URL, &delays)
	_, err := p.Invoke(context.Background(), hello)

	if !llm.IsHTTPError(err) {
		t.Fatalf("Invoke() error = %v, want HTTP error", err)
	}
	if llm.HTTPStatus(err) != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want 400", llm.HTTPStatus(err))
	}
	if !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("error %q should include the response body", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d requests, want 1", calls.Load())
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

// dropConnection closes the TCP connection without a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("hijack: %v", err)
	}
	conn.Close()
}

func TestInvoke_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			dropConnection(t, w)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"third"}}]}`)
	}))
	defer srv.Close()

	var delays []time.Duration
	p := newTestProvider(t, srv.URL, &delays)
	resp, err := p.Invoke(context.Background(), hello)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if resp.Content != "third" {
		t.Errorf("Content = %q, want %q", resp.Content, "third")
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}

func TestInvoke_TimeoutExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	p.policy.Timeout = 50 * time.Millisecond
	p.policy.MaxAttempts = 2

	_, err := p.Invoke(context.Background(), hello)
	if !llm.IsExhaustedRetries(err) {
		t.Fatalf("Invoke() error = %v, want exhausted retries", err)
	}

	var pe *llm.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a ProviderError", err)
	}
	if pe.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", pe.Attempts)
	}
	if !llm.IsTimeoutError(pe.Err) {
		t.Errorf("last error = %v, want timeout", pe.Err)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d requests, want 2", calls.Load())
	}
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n")
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"C\"}}]}\n\n")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	var got []string
	for fragment, err := range p.Stream(context.Background(), hello) {
		if err != nil {
			t.Fatalf("Stream() error = %v", err)
		}
		got = append(got, fragment)
	}

	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	_, err := llm.Collect(p.Stream(context.Background(), hello))
	if !llm.IsRateLimitError(err) {
		t.Errorf("Stream() error = %v, want rate limit HTTP error", err)
	}
}

func TestListModels(t *testing.T) {
	srv := mockAPI(t)
	p := newTestProvider(t, srv.URL, nil)

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if diff := cmp.Diff([]string{"test-model", "other-model"}, models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
}
