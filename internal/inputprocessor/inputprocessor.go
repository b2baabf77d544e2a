package inputprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"

	"resumelift/internal/models"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxJobPageBytes     = 5 << 20
)

// supportedResumeExtensions are the file types the analysis backend accepts.
var supportedResumeExtensions = map[string]bool{
	".txt": true, ".pdf": true, ".docx": true, ".doc": true,
	".jpg": true, ".jpeg": true, ".png": true,
}

// ErrEmptyInput is returned when a job description source yields no text.
var ErrEmptyInput = errors.New("input is empty")

// SupportedResume reports whether the backend accepts the file's extension.
func SupportedResume(name string) bool {
	return supportedResumeExtensions[strings.ToLower(filepath.Ext(name))]
}

// SupportedExtensions lists the accepted resume extensions for help text.
func SupportedExtensions() string {
	return ".txt, .pdf, .docx, .doc, .jpg, .jpeg, .png"
}

// LoadResume reads a resume file and infers its MIME type from content. An
// unsupported extension is logged, not rejected; the backend has the final say.
func LoadResume(path string) (*models.ResumeFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat resume '%s': %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("resume '%s' is a directory, not a file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("permission denied reading resume '%s': %w", path, err)
		}
		return nil, fmt.Errorf("failed to read resume '%s': %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("resume '%s': %w", path, models.ErrMissingFile)
	}

	name := filepath.Base(path)
	if !SupportedResume(name) {
		log.WithField("file", name).Warnf("Unsupported resume type; the backend accepts %s", SupportedExtensions())
	}

	return &models.ResumeFile{
		Name:        name,
		ContentType: DetectContentType(name, data),
		Data:        data,
	}, nil
}

// DetectContentType sniffs data, falling back to the extension when the
// sniffer only knows it is binary.
func DetectContentType(name string, data []byte) string {
	mt := mimetype.Detect(data)
	if mt.Is("application/octet-stream") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
			return byExt
		}
	}
	return mt.String()
}

// Result holds an extracted job description and where it came from.
type Result struct {
	Text        string
	ContentType string
	Source      string // "file", "url" or "raw"
	Location    string
}

// Processor turns a job description source into plain text.
type Processor interface {
	Process(ctx context.Context, input string) (Result, error)
}

// New creates the default processor. A nil client uses a client with a 30s timeout.
func New(client *http.Client) Processor {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &defaultProcessor{client: client}
}

type defaultProcessor struct {
	client *http.Client
}

// Process resolves input as a file path, then an http(s) URL, then raw text.
// HTML from files and pages is reduced to its visible text.
func (p *defaultProcessor) Process(ctx context.Context, input string) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrEmptyInput
	}

	fi, err := os.Stat(input)
	switch {
	case err == nil && !fi.IsDir():
		return p.fromFile(input)
	case err == nil:
		return Result{}, fmt.Errorf("job description '%s' is a directory", input)
	case errors.Is(err, os.ErrPermission):
		return Result{}, fmt.Errorf("failed to stat input '%s': %w", input, err)
	}
	// Any other stat failure (not found, name too long) means input is not a path.

	if u, urlErr := url.Parse(input); urlErr == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return p.fromURL(ctx, u)
	}

	return Result{
		Text:        input,
		ContentType: "text/plain; charset=utf-8",
		Source:      "raw",
	}, nil
}

func (p *defaultProcessor) fromFile(path string) (Result, error) {
	binary, err := isLikelyBinary(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read job description '%s': %w", path, err)
	}
	if binary {
		return Result{}, fmt.Errorf("job description '%s' looks like a binary file; paste its text instead", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read job description '%s': %w", path, err)
	}

	ct := mimetype.Detect(data).String()
	text, err := toText(data, ct, path)
	if err != nil {
		return Result{}, err
	}
	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}
	log.WithField("path", abs).Debug("Loaded job description from file")
	return Result{Text: text, ContentType: ct, Source: "file", Location: abs}, nil
}

func (p *defaultProcessor) fromURL(ctx context.Context, u *url.URL) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request for URL '%s': %w", u, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch URL '%s': %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		hint, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Result{}, fmt.Errorf("failed to fetch URL '%s': status code %d %s - Body Hint: %s",
			u, resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(hint)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJobPageBytes))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response body from URL '%s': %w", u, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}
	text, err := toText(data, ct, u.String())
	if err != nil {
		return Result{}, err
	}
	log.WithField("url", u.String()).Debug("Fetched job description")
	return Result{Text: text, ContentType: ct, Source: "url", Location: u.String()}, nil
}

// toText cleans raw bytes and strips markup when the content is HTML.
func toText(data []byte, contentType, src string) (string, error) {
	text, err := cleanText(data, src)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(contentType, "text/html") {
		text, err = htmlToText(text)
		if err != nil {
			return "", fmt.Errorf("failed to parse HTML from '%s': %w", src, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", src, ErrEmptyInput)
	}
	return text, nil
}

var _ Processor = (*defaultProcessor)(nil)
