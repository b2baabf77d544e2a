package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSubmission     = errors.New("invalid submission")
	ErrMissingFile           = fmt.Errorf("%w: missing resume file", ErrInvalidSubmission)
	ErrMissingJobDescription = fmt.Errorf("%w: missing job description", ErrInvalidSubmission)

	ErrEmptyResult = errors.New("no result received from the server")
	ErrBusy        = errors.New("an analysis is already in progress")
	ErrNoResult    = errors.New("no analysis result available")
)

// StatusError is a non-success HTTP response that carried no error field.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server responded with HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server responded with HTTP %d: %s", e.StatusCode, e.Detail)
}

// ServerError is an explicit error field reported in a response body.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}
