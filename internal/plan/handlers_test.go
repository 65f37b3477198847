package plan

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/prompt"
	"github.com/HerbHall/plangen/internal/repair"
	"github.com/HerbHall/plangen/internal/store"
	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fakeHistory struct {
	limit int
	rows  []store.Generation
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.Generation, error) {
	f.limit = limit
	return f.rows, nil
}

func newTestRouter(t *testing.T, svc *Service, history History) http.Handler {
	t.Helper()
	h := NewHandler(svc, limiter.New(t.Name(), 2), history, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	var p map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return p
}

func TestHandleWeekly_Validation(t *testing.T) {
	router := newTestRouter(t, newTestService(t, newFake(happyPath)), nil)

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed body", `{"theme":`, "invalid request body"},
		{"bad age group", `{"theme":"秋天","ageGroup":"toddler"}`, "ageGroup: failed oneof"},
		{"missing theme", `{"ageGroup":"small"}`, "theme: failed required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, router, "/api/v1/plans/weekly", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			p := decodeProblem(t, rec)
			if detail, _ := p["detail"].(string); !strings.Contains(detail, tt.detail) {
				t.Errorf("detail = %q, want it to contain %q", detail, tt.detail)
			}
		})
	}
}

func TestHandleWeekly_Success(t *testing.T) {
	router := newTestRouter(t, newTestService(t, newFake(happyPath)), nil)

	rec := post(t, router, "/api/v1/plans/weekly", `{"ageGroup":"medium","theme":"秋天","className":"中一班"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp WeeklyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["班级"] != "中一班" || resp.Data["本周主题"] != "本周主题内容" {
		t.Errorf("data = %v", resp.Data)
	}
	if resp.URL != "" {
		t.Errorf("url = %q, want none without a publisher", resp.URL)
	}
}

func TestHandleWeekly_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	router := newTestRouter(t, newTestService(t, newFake(happyPath), WithPublisher(pub)), nil)

	rec := post(t, router, "/api/v1/plans/weekly", `{"theme":"秋天","weekNumber":"3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp WeeklyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.URL != "https://files.example/第3周周计划.docx" {
		t.Errorf("url = %q", resp.URL)
	}
}

func TestHandleWeekly_ErrorStatus(t *testing.T) {
	fake := newFake(func(kind string, call int, user string) (string, error) {
		if kind == TemplateWeekly {
			return "", llm.NewHTTPError(http.StatusInternalServerError, "upstream down")
		}
		return happyPath(kind, call, user)
	})
	router := newTestRouter(t, newTestService(t, fake), nil)

	rec := post(t, router, "/api/v1/plans/weekly", `{"theme":"秋天"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	p := decodeProblem(t, rec)
	if p["instance"] != "/api/v1/plans/weekly" {
		t.Errorf("instance = %v", p["instance"])
	}
}

// readEvents returns the data payloads of an SSE body.
func readEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			events = append(events, data)
		}
	}
	return events
}

func TestHandleWeeklyStream(t *testing.T) {
	fake := newFake(happyPath)
	fake.stream = []string{"{", `"a":1`, "}"}
	router := newTestRouter(t, newTestService(t, fake), nil)

	rec := post(t, router, "/api/v1/plans/weekly/stream", `{"theme":"秋天"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	events := readEvents(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4: %v", len(events), events)
	}
	if events[len(events)-1] != "[DONE]" {
		t.Errorf("last event = %q, want [DONE]", events[len(events)-1])
	}

	var last StreamChunk
	if err := json.Unmarshal([]byte(events[2]), &last); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if last.Content != "}" || last.FullContent != `{"a":1}` {
		t.Errorf("chunk = %+v", last)
	}
}

func TestHandleWeeklyStream_Error(t *testing.T) {
	fake := newFake(happyPath)
	fake.stream = []string{"部分"}
	fake.streamErr = llm.NewTransportError("connection reset", errors.New("reset"))
	router := newTestRouter(t, newTestService(t, fake), nil)

	rec := post(t, router, "/api/v1/plans/weekly/stream", `{"theme":"秋天"}`)
	events := readEvents(t, rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2: %v", len(events), events)
	}

	var e map[string]string
	if err := json.Unmarshal([]byte(events[1]), &e); err != nil {
		t.Fatalf("decode error event: %v", err)
	}
	if !strings.Contains(e["error"], "connection reset") {
		t.Errorf("error event = %v", e)
	}
}

func TestHandleDaily(t *testing.T) {
	fake := newFake(func(kind string, call int, user string) (string, error) {
		if strings.Contains(user, "失败活动") {
			return "", llm.NewHTTPError(http.StatusBadGateway, "bad gateway")
		}
		return happyPath(kind, call, user)
	})
	router := newTestRouter(t, newTestService(t, fake), nil)

	body, _ := json.Marshal(DailyRequest{
		Activities: []string{"沉与浮", "失败活动"},
		DateRange:  "5.6-5.7",
		ClassInfo:  "中二班",
		Teacher:    "王老师",
		StartDate:  "2025-05-06",
	})
	rec := post(t, router, "/api/v1/plans/daily", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp DailyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 2 {
		t.Errorf("total = %d, data = %d, want 1 and 2", resp.Total, len(resp.Data))
	}
	if _, ok := resp.Errors["5.7"]; !ok || len(resp.Errors) != 1 {
		t.Errorf("errors = %v, want only 5.7", resp.Errors)
	}
}

func TestHandleDaily_Validation(t *testing.T) {
	router := newTestRouter(t, newTestService(t, newFake(happyPath)), nil)

	rec := post(t, router, "/api/v1/plans/daily", `{"activities":[],"dateRange":"x","classInfo":"x","teacher":"x","startDate":"2025-05-06"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = post(t, router, "/api/v1/plans/daily", `{"activities":["a"],"dateRange":"x","classInfo":"x","teacher":"x","startDate":"May 6"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerations(t *testing.T) {
	history := &fakeHistory{rows: []store.Generation{{ID: "g1", Kind: KindWeekly, Status: store.StatusSucceeded, CreatedAt: time.Now()}}}
	router := newTestRouter(t, newTestService(t, newFake(happyPath)), history)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generations?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if history.limit != 5 {
		t.Errorf("limit = %d, want 5", history.limit)
	}
	var rows []store.Generation
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "g1" {
		t.Errorf("rows = %+v", rows)
	}

	for _, limit := range []string{"0", "abc", "501"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generations?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestHandleGenerations_NotMountedWithoutHistory(t *testing.T) {
	router := newTestRouter(t, newTestService(t, newFake(happyPath)), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/generations", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("x: %w", prompt.ErrTemplateNotFound), http.StatusInternalServerError},
		{llm.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{llm.NewHTTPError(http.StatusInternalServerError, "oops"), http.StatusBadGateway},
		{llm.NewTransportError("reset", errors.New("reset")), http.StatusBadGateway},
		{llm.NewTimeoutError(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{llm.NewExhaustedRetriesError(3, llm.NewTimeoutError(context.DeadlineExceeded)), http.StatusGatewayTimeout},
		{&repair.Error{Cleaned: "x", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{&ShapeError{Shape: "s", Problems: []string{"a: missing"}}, http.StatusUnprocessableEntity},
		{context.Canceled, StatusClientClosed},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
