package server

import (
	"encoding/json"
	"net/http"
)

const problemBase = "https://plangen.dev/problems/"

// Problem type URIs written by the server itself. Feature handlers use
// their own types under the same base.
const (
	ProblemTypeNotFound    = problemBase + "not-found"
	ProblemTypeInternal    = problemBase + "internal-error"
	ProblemTypeRateLimited = problemBase + "rate-limited"
	ProblemTypeMethod      = problemBase + "method-not-allowed"
)

var problemTypes = map[int]string{
	http.StatusNotFound:            ProblemTypeNotFound,
	http.StatusMethodNotAllowed:    ProblemTypeMethod,
	http.StatusTooManyRequests:     ProblemTypeRateLimited,
	http.StatusInternalServerError: ProblemTypeInternal,
}

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type" example:"https://plangen.dev/problems/plan-error"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"theme: failed required"`
	Instance string `json:"instance,omitempty" example:"/api/v1/plans/weekly"`
}

// WriteProblem writes p as application/problem+json with p.Status.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeStatusProblem(w http.ResponseWriter, status int, detail, instance string) {
	typ, ok := problemTypes[status]
	if !ok {
		typ = "about:blank"
	}
	WriteProblem(w, Problem{
		Type:     typ,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

func NotFound(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusNotFound, detail, instance)
}

func MethodNotAllowed(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusMethodNotAllowed, detail, instance)
}

// RateLimited writes a 429. Callers set Retry-After first.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusTooManyRequests, detail, instance)
}

func InternalError(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusInternalServerError, detail, instance)
}
