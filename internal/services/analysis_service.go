package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumelift/internal/classify"
	"resumelift/internal/guard"
	"resumelift/internal/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const analyzePath = "/analyze_resume/"

// Outcome messages. These are the terse Failure messages; classify.Describe
// turns them into what the user sees.
const (
	msgInvalidSubmission = "missing file or description"
	msgBackendDown       = "backend not responding"
	msgTimeout           = "request timed out; backend may be asleep"
	msgConnection        = "connection error"
	msgEmptyResult       = "no result received from the server"
	msgInvalidResponse   = "invalid response from server"
	msgCancelled         = "request cancelled"
	msgUnexpected        = "unexpected error while contacting the server"
)

type attemptKey struct{}

// WithAttemptID returns a context carrying the attempt ID Analyze should log
// and send as X-Request-ID.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

func attemptIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(attemptKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// StageFunc is notified as the orchestrator moves between stages. May be nil.
type StageFunc func(stage models.Stage)

// AnalysisServiceDeps holds the collaborators of AnalysisService.
type AnalysisServiceDeps struct {
	Client  *http.Client
	Prober  Prober
	Builder *SubmissionBuilder
	Timeout time.Duration // analysis call deadline
}

// AnalysisService sequences probe, payload build, analysis call and result
// extraction into a single CallOutcome. It does not serialize concurrent
// callers; the session layer does.
type AnalysisService struct {
	client  *http.Client
	prober  Prober
	builder *SubmissionBuilder
	timeout time.Duration
}

// NewAnalysisService creates the orchestrator.
func NewAnalysisService(deps AnalysisServiceDeps) *AnalysisService {
	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	builder := deps.Builder
	if builder == nil {
		builder = NewSubmissionBuilder()
	}
	return &AnalysisService{
		client:  client,
		prober:  deps.Prober,
		builder: builder,
		timeout: deps.Timeout,
	}
}

// analysisBody is the JSON shape of every analysis endpoint response.
type analysisBody struct {
	Result *string         `json:"result"`
	Error  json.RawMessage `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// Analyze runs one submission end to end. Every failure is returned as a
// CallOutcome; nothing is retried.
func (s *AnalysisService) Analyze(ctx context.Context, baseURL string, sub models.Submission, onStage StageFunc) models.CallOutcome {
	attemptID := attemptIDFrom(ctx)
	logger := log.WithFields(log.Fields{"attempt": attemptID, "base_url": baseURL})
	start := time.Now()

	outcome := s.analyze(ctx, logger, attemptID, baseURL, sub, onStage)

	entry := logger.WithField("elapsed", time.Since(start).Round(time.Millisecond).String())
	if outcome.OK() {
		entry.Info("Resume analysis succeeded")
	} else {
		entry.WithFields(log.Fields{
			"kind":   outcome.Failure.Kind,
			"status": outcome.Failure.StatusCode,
		}).Warnf("Resume analysis failed: %s", outcome.Failure.Message)
	}
	return outcome
}

func (s *AnalysisService) analyze(ctx context.Context, logger *log.Entry, attemptID, baseURL string, sub models.Submission, onStage StageFunc) models.CallOutcome {
	if err := sub.Validate(); err != nil {
		return models.Fail(models.KindUnknown, msgInvalidSubmission)
	}

	notify(onStage, models.StageWakingUp)
	logger.Info("Waking up backend")
	if s.prober == nil || !s.prober.Check(ctx, baseURL) {
		if ctx.Err() != nil {
			return models.Fail(models.KindUnknown, msgCancelled)
		}
		return models.Fail(models.KindNetworkUnreachable, msgBackendDown)
	}

	notify(onStage, models.StageAnalyzing)

	payload, err := s.builder.Build(sub)
	if err != nil {
		return models.Fail(models.KindUnknown, msgInvalidSubmission)
	}

	target := Endpoint(baseURL, analyzePath)
	logger.WithFields(log.Fields{
		"file":  sub.File.Name,
		"bytes": payload.Body.Len(),
	}).Info("Sending resume for analysis")

	result, err := guard.Run(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.post(ctx, target, attemptID, payload)
	})
	if err != nil {
		return failureOutcome(err)
	}
	return models.Success(result)
}

// post issues the multipart POST and extracts the result. Any resource it
// opens is released before it returns.
func (s *AnalysisService) post(ctx context.Context, target, attemptID string, payload *Payload) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload.Body.Bytes()))
	if err != nil {
		return "", fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", payload.ContentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", attemptID)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// A truncated body still carries its status; only a 2xx needs the body.
		log.WithFields(log.Fields{"attempt": attemptID, "status": resp.StatusCode}).
			WithError(err).Debug("Analysis response body was cut short")
		if isSuccess(resp.StatusCode) {
			return "", fmt.Errorf("read analysis body: %w", errMalformedBody)
		}
		return extractResult(resp.StatusCode, raw)
	}

	return extractResult(resp.StatusCode, raw)
}

// extractResult applies the response contract. A present error field wins
// over the HTTP status.
func extractResult(status int, raw []byte) (string, error) {
	var body analysisBody
	if err := json.Unmarshal(raw, &body); err != nil {
		if !isSuccess(status) {
			return "", &models.StatusError{StatusCode: status}
		}
		return "", fmt.Errorf("analysis endpoint: %w", errMalformedBody)
	}

	if msg := rawText(body.Error); msg != "" {
		return "", &models.ServerError{StatusCode: status, Message: msg}
	}
	if !isSuccess(status) {
		return "", &models.StatusError{StatusCode: status, Detail: detailText(body.Detail)}
	}
	if body.Result == nil || *body.Result == "" {
		return "", models.ErrEmptyResult
	}
	return *body.Result, nil
}

// failureOutcome routes err through the classifier into a terminal outcome.
func failureOutcome(err error) models.CallOutcome {
	kind := classify.Classify(err)
	switch kind {
	case models.KindTimeout:
		return models.Fail(kind, msgTimeout)
	case models.KindNetworkUnreachable:
		return models.Fail(kind, msgConnection)
	case models.KindServerReportedError:
		var serverErr *models.ServerError
		errors.As(err, &serverErr)
		return models.Fail(kind, serverErr.Message)
	case models.KindServerRejected:
		var statusErr *models.StatusError
		errors.As(err, &statusErr)
		msg := statusErr.Detail
		if msg == "" {
			msg = fmt.Sprintf("server responded with HTTP %d", statusErr.StatusCode)
		}
		return models.Rejected(statusErr.StatusCode, msg)
	case models.KindEmptyResult:
		return models.Fail(kind, msgEmptyResult)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return models.Fail(models.KindUnknown, msgCancelled)
	case errors.Is(err, errMalformedBody):
		return models.Fail(models.KindUnknown, msgInvalidResponse)
	default:
		return models.Fail(models.KindUnknown, msgUnexpected)
	}
}

// rawText renders a JSON value as message text. Null, false and "" count as absent.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(trimmed)
}

// detailText understands FastAPI's validation shape: [{"msg": "..."}, ...].
func detailText(raw json.RawMessage) string {
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return rawText(raw)
}

func notify(fn StageFunc, stage models.Stage) {
	if fn != nil {
		fn(stage)
	}
}
