// Package mockcatalog implements a minimal catalog-site API surface for
// local development and tests.
package mockcatalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Call records a request made to the mock site.
type Call struct {
	Method string
	Path   string
}

// Assessment is one catalog entry served by the mock site.
type Assessment struct {
	Slug            string `json:"-"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	TestType        string `json:"test_type"`
	DurationText    string `json:"duration_text"`
	AdaptiveSupport string `json:"adaptive_support"`
	RemoteSupport   string `json:"remote_support"`
}

// Server serves a paginated listing endpoint and a per-item detail endpoint
// over a fixed set of assessments.
type Server struct {
	pageSize int

	mu          sync.Mutex
	assessments []Assessment
	calls       []Call
	failDetail  map[string]int
}

// New constructs a mock site serving the given assessments, pageSize per
// listing page.
func New(assessments []Assessment, pageSize int) *Server {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Server{
		pageSize:    pageSize,
		assessments: assessments,
		failDetail:  make(map[string]int),
	}
}

// FailDetail makes the next times detail requests for slug return 503.
func (s *Server) FailDetail(slug string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDetail[slug] = times
}

// Calls returns a snapshot of requests made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler that serves the mock site.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/catalog", s.handleList)
	mux.HandleFunc("/api/assessments/", s.handleDetail)
	return mux
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
}

type listItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listPayload struct {
	Items []listItem `json:"items"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		page = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload := listPayload{Items: []listItem{}}
	start := (page - 1) * s.pageSize
	if start < len(s.assessments) {
		end := min(start+s.pageSize, len(s.assessments))
		for _, a := range s.assessments[start:end] {
			payload.Items = append(payload.Items, listItem{
				Name: a.Name,
				URL:  "/api/assessments/" + a.Slug,
			})
		}
	}
	writeJSON(w, payload)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)

	slug := strings.TrimPrefix(r.URL.Path, "/api/assessments/")
	if slug == "" || strings.Contains(slug, "/") {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.failDetail[slug]; n > 0 {
		s.failDetail[slug] = n - 1
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	for _, a := range s.assessments {
		if a.Slug == slug {
			writeJSON(w, a)
			return
		}
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Sample returns a small fixed catalog for local runs of the mock site.
func Sample() []Assessment {
	return []Assessment{
		{
			Slug:            "coding-simulation",
			Name:            "Coding Simulation",
			Description:     "Hands-on coding tasks in a sandboxed editor.",
			TestType:        "Simulation",
			DurationText:    "45 minutes",
			AdaptiveSupport: "No",
			RemoteSupport:   "Yes",
		},
		{
			Slug:            "numerical-reasoning",
			Name:            "Numerical Reasoning",
			Description:     "Interpreting tables, charts and number series under time pressure.",
			TestType:        "Ability",
			DurationText:    "25 minutes",
			AdaptiveSupport: "Yes",
			RemoteSupport:   "Yes",
		},
		{
			Slug:            "situational-judgement",
			Name:            "Situational Judgement",
			Description:     "Workplace scenarios probing judgement and interpersonal skills.",
			TestType:        "Behavioral",
			DurationText:    "30 minutes",
			AdaptiveSupport: "No",
			RemoteSupport:   "Yes",
		},
		{
			Slug:            "leadership-panel",
			Name:            "Leadership Panel",
			Description:     "Structured scenario interviews for people leadership roles.",
			TestType:        "Interview",
			DurationText:    "1 hour",
			AdaptiveSupport: "No",
			RemoteSupport:   "No",
		},
	}
}
