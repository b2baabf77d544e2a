package models

import (
	"strings"
	"time"
)

// ResumeFile is the binary resume blob with its original name and inferred MIME type.
type ResumeFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Submission is one resume + job description pair sent for analysis.
type Submission struct {
	File           *ResumeFile
	JobDescription string
}

// Validate checks both fields are present before any network call is made.
func (s Submission) Validate() error {
	if s.File == nil || s.File.Name == "" || len(s.File.Data) == 0 {
		return ErrMissingFile
	}
	if strings.TrimSpace(s.JobDescription) == "" {
		return ErrMissingJobDescription
	}
	return nil
}

// Failure describes why a call did not produce a result.
// StatusCode is only set for KindServerRejected.
type Failure struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message"`
}

// CallOutcome holds either a result text or a failure, never both.
type CallOutcome struct {
	Result  string   `json:"result,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Success builds a successful outcome.
func Success(result string) CallOutcome {
	return CallOutcome{Result: result}
}

// Fail builds a failed outcome of the given kind.
func Fail(kind ErrorKind, message string) CallOutcome {
	return CallOutcome{Failure: &Failure{Kind: kind, Message: message}}
}

// Rejected builds a KindServerRejected outcome carrying the HTTP status.
func Rejected(status int, message string) CallOutcome {
	return CallOutcome{Failure: &Failure{Kind: KindServerRejected, StatusCode: status, Message: message}}
}

// OK reports whether the outcome is a success.
func (o CallOutcome) OK() bool {
	return o.Failure == nil
}

// ClientState is a read-only snapshot of the session state machine.
type ClientState struct {
	Phase      Phase     `json:"phase"`
	AttemptID  string    `json:"attemptId,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	Result     string    `json:"result,omitempty"`
	Kind       ErrorKind `json:"kind,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ConnectionReport is the result of a user-triggered connection test.
type ConnectionReport struct {
	Endpoint   string        `json:"endpoint"`
	OK         bool          `json:"ok"`
	StatusCode int           `json:"statusCode,omitempty"`
	Message    string        `json:"message"`
	Hint       string        `json:"hint,omitempty"`
	Latency    time.Duration `json:"latency"`
	CheckedAt  time.Time     `json:"checkedAt"`
}
