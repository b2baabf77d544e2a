package apihandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumelift/internal/app"
	"resumelift/internal/config"
	"resumelift/internal/models"
	"resumelift/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type backendStub struct {
	server  *httptest.Server
	analyze http.HandlerFunc
}

func newBackendStub(t *testing.T, analyze http.HandlerFunc) *backendStub {
	t.Helper()
	if analyze == nil {
		analyze = func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"result": "Match Score: 81/100"}`)
		}
	}
	stub := &backendStub{analyze: analyze}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message": "ResumeLift Backend is running!"}`)
	})
	mux.HandleFunc("/analyze_resume/", func(w http.ResponseWriter, r *http.Request) {
		stub.analyze(w, r)
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func newTestRouter(t *testing.T, backendURL string) (*gin.Engine, *app.App) {
	t.Helper()
	var cfg config.Config
	cfg.API.BaseURL = backendURL
	cfg.Timeouts.Wake = time.Second
	cfg.Timeouts.Analyze = 2 * time.Second
	cfg.Timeouts.ConnectionTest = time.Second
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Export.Format = "txt"
	cfg.Export.Dir = t.TempDir()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.MaxUploadMB = 1

	a, err := app.NewApp(context.Background(), &cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return NewRouter(NewAPIHandler(a)), a
}

func multipartBody(t *testing.T, fileName string, data []byte, jobDescription string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if jobDescription != "" {
		require.NoError(t, w.WriteField("job_description", jobDescription))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(router *gin.Engine, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func waitForPhase(t *testing.T, a *app.App, phase models.Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Session.State().Phase == phase
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHealthHandler(t *testing.T) {
	router, _ := newTestRouter(t, "http://127.0.0.1:1")

	rec := do(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetStateHandler_Idle(t *testing.T) {
	router, _ := newTestRouter(t, "http://127.0.0.1:1")

	rec := do(router, http.MethodGet, "/api/v1/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeData[models.ClientState](t, rec)
	assert.Equal(t, models.PhaseIdle, state.Phase)
}

func TestAnalyzeHandler_Validation(t *testing.T) {
	router, a := newTestRouter(t, "http://127.0.0.1:1")

	tests := []struct {
		name     string
		fileName string
		data     []byte
		desc     string
		wantMsg  string
	}{
		{"missing file", "", nil, "Go developer", "Please upload a resume file"},
		{"empty file", "cv.pdf", nil, "Go developer", "Please upload a resume file"},
		{"missing description", "cv.pdf", []byte("%PDF-1.4"), "", "Please paste a job description"},
		{"blank description", "cv.pdf", []byte("%PDF-1.4"), "   ", "Please paste a job description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.fileName, tt.data, tt.desc)
			rec := do(router, http.MethodPost, "/api/v1/analyze", body, ct)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, "bad_request", apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}

	assert.Equal(t, models.PhaseIdle, a.Session.State().Phase)
}

func TestAnalyzeHandler_NotMultipart(t *testing.T) {
	router, _ := newTestRouter(t, "http://127.0.0.1:1")

	rec := do(router, http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"file":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Code)
}

func TestAnalyzeHandler_SuccessFlow(t *testing.T) {
	type form struct{ file, desc string }
	received := make(chan form, 1)
	stub := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		var got form
		if file, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(file)
			got.file = string(data)
		}
		got.desc = r.FormValue("job_description")
		received <- got
		io.WriteString(w, `{"result": "Match Score: 81/100"}`)
	})
	router, a := newTestRouter(t, stub.server.URL)

	body, ct := multipartBody(t, "jane.pdf", []byte("%PDF-1.4 resume"), "Staff engineer")
	rec := do(router, http.MethodPost, "/api/v1/analyze", body, ct)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decodeData[AnalyzeResponse](t, rec)
	assert.NotEmpty(t, accepted.AttemptID)
	assert.Equal(t, "jane.pdf", accepted.State.FileName)

	waitForPhase(t, a, models.PhaseSucceeded)
	got := <-received
	assert.Equal(t, "%PDF-1.4 resume", got.file)
	assert.Equal(t, "Staff engineer", got.desc)

	rec = do(router, http.MethodGet, "/api/v1/state", nil, "")
	state := decodeData[models.ClientState](t, rec)
	assert.Equal(t, "Match Score: 81/100", state.Result)
	assert.Equal(t, accepted.AttemptID, state.AttemptID)

	rec = do(router, http.MethodGet, "/api/v1/events?since=0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeData[EventsResponse](t, rec)
	require.NotEmpty(t, events.Events)
	last := events.Events[len(events.Events)-1]
	assert.Equal(t, session.EventTypeResult, last.Type)
	assert.Equal(t, last.Seq, events.LastSeq)

	rec = do(router, http.MethodGet, "/api/v1/report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Match Score: 81/100", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="resume-analysis-`)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `.txt"`)

	rec = do(router, http.MethodGet, "/api/v1/report?format=md", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Resume analysis ("))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	rec = do(router, http.MethodGet, "/api/v1/report?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/report/save", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decodeData[map[string]string](t, rec)
	data, err := os.ReadFile(saved["location"])
	require.NoError(t, err)
	assert.Equal(t, "Match Score: 81/100", string(data))
}

func TestAnalyzeHandler_FailureIsReportedInState(t *testing.T) {
	stub := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "Resume parsing failed"}`)
	})
	router, a := newTestRouter(t, stub.server.URL)

	body, ct := multipartBody(t, "cv.docx", []byte("PK fake docx"), "Data engineer")
	rec := do(router, http.MethodPost, "/api/v1/analyze", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)

	waitForPhase(t, a, models.PhaseFailed)
	state := a.Session.State()
	assert.Equal(t, models.KindServerReportedError, state.Kind)
	assert.Equal(t, "Resume parsing failed", state.Message)

	rec = do(router, http.MethodGet, "/api/v1/report", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestAnalyzeHandler_BusyReturnsConflict(t *testing.T) {
	release := make(chan struct{})
	stub := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
		io.WriteString(w, `{"result": "done"}`)
	})
	router, a := newTestRouter(t, stub.server.URL)

	body, ct := multipartBody(t, "cv.pdf", []byte("%PDF-1.4"), "SRE")
	rec := do(router, http.MethodPost, "/api/v1/analyze", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForPhase(t, a, models.PhaseAnalyzing)

	body, ct = multipartBody(t, "cv.pdf", []byte("%PDF-1.4"), "SRE")
	rec = do(router, http.MethodPost, "/api/v1/analyze", body, ct)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Code)

	close(release)
	waitForPhase(t, a, models.PhaseSucceeded)
}

func TestConnectionTestHandler(t *testing.T) {
	stub := newBackendStub(t, nil)
	router, a := newTestRouter(t, stub.server.URL)

	rec := do(router, http.MethodPost, "/api/v1/connection/test", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeData[models.ConnectionReport](t, rec)
	assert.True(t, report.OK)
	assert.Equal(t, "Connection successful! Backend says: ResumeLift Backend is running!", report.Message)
	assert.Equal(t, models.PhaseIdle, a.Session.State().Phase)
}

func TestConnectionTestHandler_Unreachable(t *testing.T) {
	stub := newBackendStub(t, nil)
	url := stub.server.URL
	stub.server.Close()
	router, _ := newTestRouter(t, url)

	rec := do(router, http.MethodPost, "/api/v1/connection/test", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeData[models.ConnectionReport](t, rec)
	assert.False(t, report.OK)
	assert.NotEmpty(t, report.Hint)
}

func TestGetEventsHandler_BadSince(t *testing.T) {
	router, _ := newTestRouter(t, "http://127.0.0.1:1")

	for _, since := range []string{"abc", "-1"} {
		rec := do(router, http.MethodGet, "/api/v1/events?since="+since, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, since)
	}
}

func TestSaveReportHandler_NoResult(t *testing.T) {
	router, _ := newTestRouter(t, "http://127.0.0.1:1")

	rec := do(router, http.MethodPost, "/api/v1/report/save", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeHandler_TooLarge(t *testing.T) {
	stub := newBackendStub(t, nil)
	router, a := newTestRouter(t, stub.server.URL)

	body, ct := multipartBody(t, "huge.pdf", bytes.Repeat([]byte("a"), 3<<20), "Platform engineer")
	rec := do(router, http.MethodPost, "/api/v1/analyze", body, ct)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, CodePayloadTooLarge, apiErr.Code)
	assert.Equal(t, "Upload exceeds 1 MB", apiErr.Message)
	assert.Equal(t, models.PhaseIdle, a.Session.State().Phase)
}

func TestGetReportHandler(t *testing.T) {
	stub := newBackendStub(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result": "Strengths: Go, gRPC"}`)
	})
	router, a := newTestRouter(t, stub.server.URL)

	rec := do(router, http.MethodGet, "/api/v1/report", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)

	body, ct := multipartBody(t, "cv.pdf", []byte("%PDF-1.4"), "Backend engineer")
	rec = do(router, http.MethodPost, "/api/v1/analyze", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForPhase(t, a, models.PhaseSucceeded)

	rec = do(router, http.MethodGet, "/api/v1/report?format=md", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="resume-analysis-`), disposition)
	assert.True(t, strings.HasSuffix(disposition, `.md"`), disposition)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Resume analysis ("))
	assert.Contains(t, rec.Body.String(), "\n\nStrengths: Go, gRPC\n")

	rec = do(router, http.MethodGet, "/api/v1/report", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Strengths: Go, gRPC", rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.txt"`))
}
