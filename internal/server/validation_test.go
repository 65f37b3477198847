package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/plangen/internal/auth"
	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/llm/mock"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/prompt"
	"github.com/HerbHall/plangen/internal/store"
	"go.uber.org/zap"
)

// testAPIEnv serves the auth and plan routes without the auth middleware,
// so that only input handling is under test.
func testAPIEnv(t *testing.T) http.Handler {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users, err := auth.NewUserStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}

	logger := zap.NewNop()
	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute)
	authHandler := auth.NewHandler(auth.NewService(users, tokens, logger), logger)

	svc := plan.NewService(prompt.NewStore(prompt.Builtin()), mock.New(mock.WithInvokeDelay(0)), plan.DefaultConfig(), logger)
	planHandler := plan.NewHandler(svc, limiter.New("generation", 1), nil, logger)

	cfg := DefaultConfig()
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	return New(cfg, logger, nil, nil, authHandler, planHandler).Handler()
}

func TestMalformedJSON(t *testing.T) {
	h := testAPIEnv(t)

	tests := []struct {
		name     string
		endpoint string
		body     string
	}{
		{"truncated JSON", "/api/v1/auth/login", `{"username": "admin", "password":`},
		{"invalid JSON syntax", "/api/v1/auth/login", `{username: admin}`},
		{"array instead of object", "/api/v1/auth/login", `["admin", "password"]`},
		{"string instead of object", "/api/v1/auth/login", `"just a string"`},
		{"null body", "/api/v1/auth/login", `null`},
		{"empty body", "/api/v1/auth/login", ``},
		{"setup truncated JSON", "/api/v1/auth/setup", `{"username": "admin"`},
		{"weekly invalid JSON", "/api/v1/plans/weekly", `not json at all`},
		{"weekly wrong type", "/api/v1/plans/weekly", `{"theme": 42}`},
		{"weekly missing theme", "/api/v1/plans/weekly", `{}`},
		{"weekly unknown age group", "/api/v1/plans/weekly", `{"theme": "春天", "ageGroup": "huge"}`},
		{"daily empty activities", "/api/v1/plans/daily", `{"activities": [], "dateRange": "5.6-5.10", "classInfo": "大一班", "teacher": "李老师", "startDate": "2025-05-06"}`},
		{"daily bad start date", "/api/v1/plans/daily", `{"activities": ["认识春天"], "dateRange": "5.6-5.10", "classInfo": "大一班", "teacher": "李老师", "startDate": "06/05/2025"}`},
		{"stream array body", "/api/v1/plans/weekly/stream", `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.endpoint, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want application/problem+json", ct)
			}
		})
	}
}

func TestOversizedPayloads(t *testing.T) {
	h := testAPIEnv(t)

	for _, endpoint := range []string{"/api/v1/auth/login", "/api/v1/plans/weekly", "/api/v1/plans/daily"} {
		t.Run(endpoint, func(t *testing.T) {
			body := `{"theme": "` + strings.Repeat("a", 2*1024*1024) + `", "username": "x", "password": "y"}`
			req := httptest.NewRequest("POST", endpoint, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code == http.StatusInternalServerError || w.Code == http.StatusOK {
				t.Errorf("oversized payload got status %d", w.Code)
			}
		})
	}
}

func TestDeeplyNestedJSON(t *testing.T) {
	h := testAPIEnv(t)

	depth := 1000
	body := strings.Repeat(`{"nested":`, depth) + `"value"` + strings.Repeat(`}`, depth)

	req := httptest.NewRequest("POST", "/api/v1/plans/weekly", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestValidationDetailNamesJSONFields(t *testing.T) {
	h := testAPIEnv(t)

	req := httptest.NewRequest("POST", "/api/v1/plans/weekly", strings.NewReader(`{"ageGroup": "huge"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	body := w.Body.String()
	for _, want := range []string{"theme: failed required", "ageGroup: failed oneof"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s does not mention %q", body, want)
		}
	}
}
