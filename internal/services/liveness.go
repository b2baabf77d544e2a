package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumelift/internal/guard"
	"resumelift/internal/models"

	log "github.com/sirupsen/logrus"
)

var errMalformedBody = errors.New("malformed response body")

// Prober reports whether the backend is ready to serve real traffic.
type Prober interface {
	Check(ctx context.Context, baseURL string) bool
}

// PingResult is what the backend root endpoint answered.
type PingResult struct {
	StatusCode int
	Message    string
	Latency    time.Duration
}

// LivenessProbe issues the lightweight GET that wakes a suspended backend.
type LivenessProbe struct {
	client  *http.Client
	timeout time.Duration
}

// NewLivenessProbe creates a probe bounded by timeout (the cold-start budget).
func NewLivenessProbe(client *http.Client, timeout time.Duration) *LivenessProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &LivenessProbe{client: client, timeout: timeout}
}

// Check returns true only for a 2xx answer with a well-formed JSON body.
// Errors, timeouts and other statuses all yield false.
func (p *LivenessProbe) Check(ctx context.Context, baseURL string) bool {
	res, err := p.Ping(ctx, baseURL, p.timeout)
	if err != nil {
		log.WithError(err).WithField("base_url", baseURL).Warn("Backend wake-up failed")
		return false
	}
	log.WithFields(log.Fields{
		"base_url": baseURL,
		"latency":  res.Latency.Round(time.Millisecond).String(),
	}).Infof("Backend is awake: %s", res.Message)
	return true
}

// Ping performs one bounded GET against the service root and reports the
// backend's message. The response body is drained and closed before returning.
func (p *LivenessProbe) Ping(ctx context.Context, baseURL string, timeout time.Duration) (PingResult, error) {
	target := Endpoint(baseURL, "/")
	start := time.Now()

	res, err := guard.Run(ctx, timeout, func(ctx context.Context) (PingResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return PingResult{}, fmt.Errorf("build liveness request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return PingResult{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return PingResult{StatusCode: resp.StatusCode}, fmt.Errorf("read liveness body: %w", err)
		}

		out := PingResult{StatusCode: resp.StatusCode}
		if !isSuccess(resp.StatusCode) {
			return out, &models.StatusError{StatusCode: resp.StatusCode}
		}
		if !json.Valid(body) {
			return out, fmt.Errorf("liveness endpoint: %w", errMalformedBody)
		}

		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		out.Message = payload.Message
		return out, nil
	})
	res.Latency = time.Since(start)
	return res, err
}

// Endpoint joins a base URL and an absolute path without doubling slashes.
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
