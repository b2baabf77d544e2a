package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"resumelift/internal/classify"
	"resumelift/internal/models"
	"resumelift/internal/services"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	msgMissingFile        = "Please upload a resume file"
	msgMissingDescription = "Please paste a job description"

	msgConnectionOK      = "Connection successful! Backend says: %s"
	msgConnectionTimeout = "Connection timeout: Backend might be sleeping. Please wait 30 seconds and try again."
	msgConnectionFailed  = "Connection failed: %s"
	hintConnectionFailed = "The backend may be sleeping (wait 30 seconds) or unreachable from this network."
)

// Analyzer runs one submission to a terminal outcome.
type Analyzer interface {
	Analyze(ctx context.Context, baseURL string, sub models.Submission, onStage services.StageFunc) models.CallOutcome
}

// Pinger answers the user-triggered connection test.
type Pinger interface {
	Ping(ctx context.Context, baseURL string, timeout time.Duration) (services.PingResult, error)
}

// Options configures a Session.
type Options struct {
	BaseURL           string
	ConnectionTimeout time.Duration
	Events            *EventBus
}

// Session owns the client state machine. Readers get snapshots; intents are
// methods. At most one submission is in flight at a time.
type Session struct {
	mu    sync.RWMutex
	state models.ClientState

	analyzer    Analyzer
	pinger      Pinger
	baseURL     string
	connTimeout time.Duration
	events      *EventBus
	now         func() time.Time
}

// New creates a session in the idle phase.
func New(analyzer Analyzer, pinger Pinger, opts Options) *Session {
	events := opts.Events
	if events == nil {
		events = NewEventBus(0)
	}
	s := &Session{
		analyzer:    analyzer,
		pinger:      pinger,
		baseURL:     opts.BaseURL,
		connTimeout: opts.ConnectionTimeout,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.state = models.ClientState{Phase: models.PhaseIdle, UpdatedAt: s.now()}
	return s
}

// State returns a snapshot of the current client state.
func (s *Session) State() models.ClientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events exposes the session's event stream.
func (s *Session) Events() *EventBus {
	return s.events
}

// LastResult returns the result text of the latest succeeded analysis.
func (s *Session) LastResult() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Phase != models.PhaseSucceeded {
		return "", models.ErrNoResult
	}
	return s.state.Result, nil
}

// BaseURL is the analysis service root this session talks to.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Submit runs one analysis and blocks until it reaches a terminal phase.
// An invalid submission returns a validation error and leaves the state
// untouched; a submission while one is in flight returns models.ErrBusy.
func (s *Session) Submit(ctx context.Context, sub models.Submission) (models.ClientState, error) {
	attemptID, err := s.begin(sub)
	if err != nil {
		return s.State(), err
	}
	return s.run(ctx, attemptID, sub), nil
}

// SubmitAsync starts an analysis in the background and returns its attempt
// ID. The run is detached from ctx cancellation so it can outlive an HTTP
// request; progress is observable through State and Events.
func (s *Session) SubmitAsync(ctx context.Context, sub models.Submission) (string, error) {
	attemptID, err := s.begin(sub)
	if err != nil {
		return "", err
	}
	runCtx := context.WithoutCancel(ctx)
	go s.run(runCtx, attemptID, sub)
	return attemptID, nil
}

// TestConnection pings the backend root without touching the client state.
func (s *Session) TestConnection(ctx context.Context) models.ConnectionReport {
	report := models.ConnectionReport{
		Endpoint:  services.Endpoint(s.baseURL, "/"),
		CheckedAt: s.now(),
	}

	res, err := s.pinger.Ping(ctx, s.baseURL, s.connTimeout)
	report.Latency = res.Latency
	report.StatusCode = res.StatusCode
	switch {
	case err == nil:
		report.OK = true
		report.Message = fmt.Sprintf(msgConnectionOK, res.Message)
	case classify.Classify(err) == models.KindTimeout:
		report.Message = msgConnectionTimeout
	default:
		var statusErr *models.StatusError
		if errors.As(err, &statusErr) {
			report.StatusCode = statusErr.StatusCode
		}
		report.Message = fmt.Sprintf(msgConnectionFailed, err)
		report.Hint = hintConnectionFailed
	}

	s.events.Publish(Event{
		Type:       EventTypeConnection,
		StatusCode: report.StatusCode,
		Message:    report.Message,
	})
	log.WithFields(log.Fields{
		"endpoint": report.Endpoint,
		"ok":       report.OK,
		"latency":  report.Latency.Round(time.Millisecond).String(),
	}).Info("Connection test finished")
	return report
}

// ValidationMessage returns the user-facing text for a submission error, or
// "" when err is not a validation error.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingFile):
		return msgMissingFile
	case errors.Is(err, models.ErrMissingJobDescription):
		return msgMissingDescription
	default:
		return ""
	}
}

// begin validates sub and moves the session into waking_up.
func (s *Session) begin(sub models.Submission) (string, error) {
	if err := sub.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.state.Phase.Busy() {
		s.mu.Unlock()
		return "", models.ErrBusy
	}
	attemptID := uuid.NewString()
	s.state = models.ClientState{
		Phase:     models.PhaseWakingUp,
		AttemptID: attemptID,
		FileName:  sub.File.Name,
		UpdatedAt: s.now(),
	}
	snapshot := s.state
	s.publishLocked(snapshot)
	s.mu.Unlock()

	logStateChange(snapshot)
	return attemptID, nil
}

func (s *Session) run(ctx context.Context, attemptID string, sub models.Submission) models.ClientState {
	ctx = services.WithAttemptID(ctx, attemptID)
	outcome := s.analyzer.Analyze(ctx, s.baseURL, sub, func(stage models.Stage) {
		if stage == models.StageAnalyzing {
			s.transition(attemptID, models.PhaseAnalyzing, nil)
		}
	})

	if outcome.OK() {
		return s.transition(attemptID, models.PhaseSucceeded, &outcome)
	}
	return s.transition(attemptID, models.PhaseFailed, &outcome)
}

// transition applies one edge of the state machine for the given attempt.
// Stale attempts and invalid edges are logged and ignored.
func (s *Session) transition(attemptID string, to models.Phase, outcome *models.CallOutcome) models.ClientState {
	s.mu.Lock()
	if s.state.AttemptID != attemptID {
		snapshot := s.state
		s.mu.Unlock()
		log.WithField("attempt", attemptID).Warn("Ignoring transition for stale attempt")
		return snapshot
	}
	if !isValidTransition(s.state.Phase, to) {
		snapshot := s.state
		s.mu.Unlock()
		log.WithField("attempt", attemptID).Errorf("invalid transition: %s -> %s", snapshot.Phase, to)
		return snapshot
	}

	s.state.Phase = to
	s.state.UpdatedAt = s.now()
	if outcome != nil {
		if outcome.OK() {
			s.state.Result = outcome.Result
		} else {
			f := outcome.Failure
			s.state.Kind = f.Kind
			s.state.StatusCode = f.StatusCode
			s.state.Message = classify.DescribeFailure(f)
			s.state.Retryable = classify.Retryable(f.Kind)
		}
	}
	snapshot := s.state
	s.publishLocked(snapshot)
	s.mu.Unlock()

	logStateChange(snapshot)
	return snapshot
}

// publishLocked emits the event for state. Callers hold s.mu so event
// sequence numbers follow transition order across attempts.
func (s *Session) publishLocked(state models.ClientState) {
	event := Event{
		AttemptID: state.AttemptID,
		Type:      EventTypeState,
		Phase:     state.Phase,
	}
	switch state.Phase {
	case models.PhaseSucceeded:
		event.Type = EventTypeResult
		event.Message = state.Result
	case models.PhaseFailed:
		event.Type = EventTypeError
		event.Kind = state.Kind
		event.StatusCode = state.StatusCode
		event.Message = state.Message
	}
	s.events.Publish(event)
}

func logStateChange(state models.ClientState) {
	log.WithFields(log.Fields{
		"attempt": state.AttemptID,
		"phase":   state.Phase,
	}).Debug("Client state changed")
}

// isValidTransition enforces the allowed client state machine edges.
func isValidTransition(from, to models.Phase) bool {
	switch from {
	case models.PhaseIdle, models.PhaseSucceeded, models.PhaseFailed:
		return to == models.PhaseWakingUp
	case models.PhaseWakingUp:
		return to == models.PhaseAnalyzing || to == models.PhaseFailed
	case models.PhaseAnalyzing:
		return to == models.PhaseSucceeded || to == models.PhaseFailed
	default:
		return false
	}
}
