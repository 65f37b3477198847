package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/HerbHall/plangen/pkg/llm/llmtest"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// fakeOllama serves the subset of the Ollama API the provider uses and
// remembers the last chat request it saw.
type fakeOllama struct {
	*httptest.Server

	mu   sync.Mutex
	last api.ChatRequest
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	})
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(api.ListResponse{Models: []api.ListModelResponse{
			{Name: "qwen2.5:14b", Model: "qwen2.5:14b"},
			{Name: "glm4:9b", Model: "glm4:9b"},
		}})
	})
	mux.HandleFunc("POST /api/chat", f.chat)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()

	enc := json.NewEncoder(w)
	if req.Stream == nil || !*req.Stream {
		_ = enc.Encode(api.ChatResponse{
			Model:   req.Model,
			Message: api.Message{Role: "assistant", Content: "本周主题：春天"},
			Done:    true,
			Metrics: api.Metrics{PromptEvalCount: 120, EvalCount: 30},
		})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, part := range []string{"本周", "主题：", "春天"} {
		_ = enc.Encode(api.ChatResponse{Model: req.Model, Message: api.Message{Role: "assistant", Content: part}})
	}
	fmt.Fprintln(w, "{not json")
	_ = enc.Encode(api.ChatResponse{Model: req.Model, Done: true})
}

func (f *fakeOllama) lastRequest() api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newProvider(t *testing.T, rawURL string, mutate ...func(*Config)) *Provider {
	t.Helper()
	cfg := Config{URL: rawURL, Model: "qwen2.5:14b", Timeout: 10 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

var askTheme = []llm.Message{
	{Role: llm.RoleSystem, Content: "你是幼儿园老师。"},
	{Role: llm.RoleUser, Content: "写一个本周主题。"},
}

func TestContract(t *testing.T) {
	srv := newFakeOllama(t)
	llmtest.TestProviderContract(t, func() llm.Provider {
		return newProvider(t, srv.URL)
	})
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(Config{URL: "://bad"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestInvoke(t *testing.T) {
	srv := newFakeOllama(t)
	p := newProvider(t, srv.URL)

	resp, err := p.Invoke(context.Background(), askTheme, llm.WithModel("glm4:9b"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if resp.Content != "本周主题：春天" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "glm4:9b" {
		t.Errorf("Model = %q, want the per-call override", resp.Model)
	}
	if got := resp.Usage; got.PromptTokens != 120 || got.CompletionTokens != 30 || got.TotalTokens != 150 {
		t.Errorf("Usage = %+v", got)
	}
	if !resp.Done {
		t.Error("Done = false, want true")
	}
}

func TestInvoke_SendsModelOptions(t *testing.T) {
	srv := newFakeOllama(t)
	p := newProvider(t, srv.URL, func(c *Config) {
		c.NumCtx = 16384
		c.KeepAlive = 2 * time.Minute
	})

	if _, err := p.Invoke(context.Background(), askTheme, llm.WithTemperature(0.3), llm.WithMaxTokens(2048)); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	req := srv.lastRequest()
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem {
		t.Errorf("Messages = %+v", req.Messages)
	}
	// Options round-trip through JSON, so numbers arrive as float64.
	want := map[string]float64{"temperature": 0.3, "num_predict": 2048, "num_ctx": 16384}
	for key, v := range want {
		if got, _ := req.Options[key].(float64); got != v {
			t.Errorf("Options[%q] = %v, want %v", key, req.Options[key], v)
		}
	}
	if req.KeepAlive == nil || req.KeepAlive.Duration != 2*time.Minute {
		t.Errorf("KeepAlive = %v, want 2m", req.KeepAlive)
	}
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	srv := newFakeOllama(t)
	p := newProvider(t, srv.URL)

	text, err := llm.Collect(p.Stream(context.Background(), askTheme))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if text != "本周主题：春天" {
		t.Errorf("text = %q", text)
	}
}

func TestInvoke_Errors(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		url    func(t *testing.T) (string, *int)
		wantFn func(error) bool
	}{
		{
			name: "missing model",
			url: func(t *testing.T) (string, *int) {
				calls := new(int)
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					*calls++
					w.WriteHeader(http.StatusNotFound)
					fmt.Fprint(w, `{"error":"model 'nope' not found"}`)
				}))
				t.Cleanup(srv.Close)
				return srv.URL, calls
			},
			wantFn: llm.IsModelNotFoundError,
		},
		{
			name:   "unreachable",
			url:    func(*testing.T) (string, *int) { return closedURL, nil },
			wantFn: llm.IsTransportError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, calls := tt.url(t)
			_, err := newProvider(t, u).Invoke(context.Background(), askTheme)
			if !tt.wantFn(err) {
				t.Errorf("error = %v", err)
			}
			if calls != nil && *calls != 1 {
				t.Errorf("server saw %d requests, want 1 (no retries)", *calls)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newFakeOllama(t)
	p := newProvider(t, srv.URL)

	if err := p.Heartbeat(context.Background()); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0] != "qwen2.5:14b" || models[1] != "glm4:9b" {
		t.Errorf("models = %v", models)
	}
}
