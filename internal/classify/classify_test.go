package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"resumelift/internal/guard"
	"resumelift/internal/models"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"nil", nil, models.KindUnknown},
		{"guard timeout", guard.ErrTimeout, models.KindTimeout},
		{"wrapped guard timeout", fmt.Errorf("probe: %w", guard.ErrTimeout), models.KindTimeout},
		{"deadline exceeded", context.DeadlineExceeded, models.KindTimeout},
		{"cancelled", context.Canceled, models.KindUnknown},
		{"net timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutNetErr{}}, models.KindTimeout},
		{"connection refused", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, models.KindNetworkUnreachable},
		{"status", &models.StatusError{StatusCode: 503}, models.KindServerRejected},
		{"server error", &models.ServerError{StatusCode: 200, Message: "bad input"}, models.KindServerReportedError},
		{"empty result", models.ErrEmptyResult, models.KindEmptyResult},
		{"invalid submission", models.ErrMissingFile, models.KindUnknown},
		{"plain error containing fetch text", errors.New("Failed to fetch"), models.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribe_IsTotalAndStable(t *testing.T) {
	kinds := []models.ErrorKind{
		models.KindTimeout,
		models.KindNetworkUnreachable,
		models.KindServerRejected,
		models.KindServerReportedError,
		models.KindEmptyResult,
		models.KindUnknown,
		models.ErrorKind("something_new"),
	}

	for _, kind := range kinds {
		for _, detail := range []string{"", "bad input"} {
			first := Describe(kind, detail)
			second := Describe(kind, detail)
			assert.NotEmpty(t, first, "kind %q detail %q", kind, detail)
			assert.Equal(t, first, second, "kind %q detail %q", kind, detail)
		}
	}
}

func TestDescribe_ColdStartHints(t *testing.T) {
	assert.Contains(t, Describe(models.KindTimeout, "ignored"), "might be sleeping")
	assert.Contains(t, Describe(models.KindNetworkUnreachable, ""), "might be sleeping")
}

func TestDescribe_ServerMessageVerbatim(t *testing.T) {
	assert.Equal(t, "bad input", Describe(models.KindServerReportedError, "bad input"))
	assert.Equal(t, "Unsupported file type.", Describe(models.KindServerRejected, "Unsupported file type."))
	assert.Equal(t, genericRejection, Describe(models.KindServerRejected, "  "))
}

func TestDescribe_EmptyResult(t *testing.T) {
	assert.Equal(t, "No result received from the server.", Describe(models.KindEmptyResult, "whatever"))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(models.KindTimeout))
	assert.True(t, Retryable(models.KindNetworkUnreachable))
	assert.False(t, Retryable(models.KindServerRejected))
	assert.False(t, Retryable(models.KindServerReportedError))
	assert.False(t, Retryable(models.KindEmptyResult))
	assert.False(t, Retryable(models.KindUnknown))
}
