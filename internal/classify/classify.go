// Package classify maps failures onto the closed ErrorKind set and turns each
// kind into a stable, user-actionable message.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"resumelift/internal/guard"
	"resumelift/internal/models"
)

const (
	coldStartTimeout  = "Request timeout. The backend might be sleeping. Please wait 30 seconds and try again."
	coldStartNetwork  = "Connection error. Backend might be sleeping or unreachable. Please wait 30 seconds and try again."
	emptyResult       = "No result received from the server."
	genericFailure    = "Failed to process your resume. Please try again."
	genericRejection  = "The server rejected the request."
	genericServerFail = "The server reported an error while analyzing your resume."
)

// Classify inspects the category of err: the timeout signal, the absence of a
// response, the HTTP status or the body shape. It never matches on message text.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.KindUnknown
	}

	var serverErr *models.ServerError
	if errors.As(err, &serverErr) {
		return models.KindServerReportedError
	}
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return models.KindServerRejected
	}
	if errors.Is(err, models.ErrEmptyResult) {
		return models.KindEmptyResult
	}
	if errors.Is(err, guard.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return models.KindTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, models.ErrInvalidSubmission) {
		return models.KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.KindTimeout
		}
		return models.KindNetworkUnreachable
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return models.KindNetworkUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return models.KindNetworkUnreachable
	}

	return models.KindUnknown
}

// Describe returns the message shown to the user for kind. detail is the
// server's own message (or status text) when one is available. Pure function.
func Describe(kind models.ErrorKind, detail string) string {
	detail = strings.TrimSpace(detail)

	switch kind {
	case models.KindTimeout:
		return coldStartTimeout
	case models.KindNetworkUnreachable:
		return coldStartNetwork
	case models.KindServerRejected:
		if detail != "" {
			return detail
		}
		return genericRejection
	case models.KindServerReportedError:
		if detail != "" {
			return detail
		}
		return genericServerFail
	case models.KindEmptyResult:
		return emptyResult
	case models.KindUnknown:
		if detail != "" {
			return detail
		}
		return genericFailure
	default:
		if detail != "" {
			return fmt.Sprintf("%s (%s)", genericFailure, detail)
		}
		return genericFailure
	}
}

// DescribeFailure is Describe applied to a Failure.
func DescribeFailure(f *models.Failure) string {
	if f == nil {
		return ""
	}
	return Describe(f.Kind, f.Message)
}

// Retryable reports whether the kind points at a cold or unreachable backend,
// where waiting and resubmitting is the suggested action.
func Retryable(kind models.ErrorKind) bool {
	return kind == models.KindTimeout || kind == models.KindNetworkUnreachable
}
