package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"

	"resumelift/internal/models"
)

// fakeBackend mimics the analysis service: GET / and POST /analyze_resume/.
type fakeBackend struct {
	server *httptest.Server

	probeHits   atomic.Int32
	analyzeHits atomic.Int32

	mu    sync.Mutex
	calls []string

	probe   http.HandlerFunc
	analyze http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		probe: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"message": "ResumeLift Backend is running!"}`)
		},
		analyze: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"result": "Match Score: 80/100"}`)
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fb.probeHits.Add(1)
		fb.record("probe")
		fb.mu.Lock()
		h := fb.probe
		fb.mu.Unlock()
		h(w, r)
	})
	mux.HandleFunc("/analyze_resume/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fb.analyzeHits.Add(1)
		fb.record("analyze")
		fb.mu.Lock()
		h := fb.analyze
		fb.mu.Unlock()
		h(w, r)
	})

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) URL() string { return fb.server.URL }

func (fb *fakeBackend) SetProbe(h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.probe = h
}

func (fb *fakeBackend) SetAnalyze(h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.analyze = h
}

func (fb *fakeBackend) record(call string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls = append(fb.calls, call)
}

func (fb *fakeBackend) Calls() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.calls...)
}

// mockProber is a testify mock of Prober.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Check(ctx context.Context, baseURL string) bool {
	args := m.Called(ctx, baseURL)
	return args.Bool(0)
}

func validSubmission() models.Submission {
	return models.Submission{
		File: &models.ResumeFile{
			Name:        "resume.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4 fake resume"),
		},
		JobDescription: "Senior Go engineer, distributed systems.",
	}
}
