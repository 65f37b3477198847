package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/HerbHall/plangen/pkg/llm/llmtest"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, serverURL string) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = serverURL
	p, err := New(cfg, "test-key", zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

// mockMessages returns an httptest server for the Messages and Models endpoints.
func mockMessages(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"claude-sonnet-4-5-20250929"}]}`)
	})

	mux.HandleFunc("POST /v1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
			for _, part := range []string{"Hel", "lo"} {
				fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", part)
			}
			fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"msg_1","model":%q,"content":[{"type":"text","text":"Hello"}],"usage":{"input_tokens":5,"output_tokens":1}}`, req.Model)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestContract(t *testing.T) {
	srv := mockMessages(t)
	llmtest.TestProviderContract(t, func() llm.Provider {
		return newTestProvider(t, srv.URL)
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(DefaultConfig(), "", zap.NewNop()); err == nil {
		t.Error("New() with empty key should fail")
	}
}

func TestInvoke_HoistsSystemPrompt(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	resp, err := p.Invoke(context.Background(), llm.Conversation("be brief", "hi"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Model != DefaultConfig().Model {
		t.Errorf("Model = %q, want fallback", resp.Model)
	}

	want := messagesRequest{
		Model:       DefaultConfig().Model,
		System:      "be brief",
		Messages:    []chatMessage{{Role: llm.RoleUser, Content: "hi"}},
		MaxTokens:   4096,
		Temperature: 0.7,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestInvoke_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", 401, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, llm.IsAuthenticationError},
		{"rate limited", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, llm.IsRateLimitError},
		{"unknown model", 404, `{"type":"error","error":{"type":"not_found_error","message":"claude-x"}}`, llm.IsModelNotFoundError},
		{"overloaded", 529, `overloaded`, llm.IsHTTPError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			_, err := p.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
			if !tt.check(err) {
				t.Errorf("Invoke() error = %v", err)
			}
			if llm.HTTPStatus(err) != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", llm.HTTPStatus(err), tt.status)
			}
		})
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"A\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"B\"}}\n\n")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	var got []string
	var streamErr error
	for fragment, err := range p.Stream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}) {
		if err != nil {
			streamErr = err
			break
		}
		got = append(got, fragment)
	}

	if diff := cmp.Diff([]string{"A"}, got); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
	if streamErr == nil {
		t.Error("expected the error event to end the stream with an error")
	}
}

func TestListModels(t *testing.T) {
	srv := mockMessages(t)
	p := newTestProvider(t, srv.URL)

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if diff := cmp.Diff([]string{"claude-sonnet-4-5-20250929"}, models); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
}
