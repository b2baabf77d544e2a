package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resumelift/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	FormatText     = "txt"
	FormatMarkdown = "md"

	filePrefix = "resume-analysis-"
)

// Sink stores a rendered report under name and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

// SupportedFormat reports whether format can be rendered.
func SupportedFormat(format string) bool {
	return format == FormatText || format == FormatMarkdown
}

// FileName returns the report file name for day t, e.g.
// resume-analysis-2024-03-09.txt.
func FileName(t time.Time, format string) string {
	if format == "" {
		format = FormatText
	}
	return filePrefix + t.Format("2006-01-02") + "." + format
}

// Render turns the analysis text into report bytes. Plain text is the result
// unchanged; markdown adds a dated heading.
func Render(result string, format string, t time.Time) []byte {
	if format != FormatMarkdown {
		return []byte(result)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Resume analysis (%s)\n\n", t.Format("2006-01-02"))
	b.WriteString(result)
	if !strings.HasSuffix(result, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// ContentType is the MIME type of a rendered report.
func ContentType(format string) string {
	if format == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Exporter saves analysis results as dated report files.
type Exporter struct {
	sink   Sink
	format string
	now    func() time.Time
}

// NewExporter creates an exporter writing format reports to sink.
func NewExporter(sink Sink, format string) *Exporter {
	if format == "" {
		format = FormatText
	}
	return &Exporter{sink: sink, format: format, now: time.Now}
}

// Format is the report format this exporter writes.
func (e *Exporter) Format() string {
	return e.format
}

// Save renders result and hands it to the sink. An empty result is rejected
// with models.ErrNoResult.
func (e *Exporter) Save(ctx context.Context, result string) (string, error) {
	if strings.TrimSpace(result) == "" {
		return "", models.ErrNoResult
	}
	now := e.now()
	name := FileName(now, e.format)
	location, err := e.sink.Save(ctx, name, Render(result, e.format, now), ContentType(e.format))
	if err != nil {
		return "", fmt.Errorf("save report %s: %w", name, err)
	}
	log.WithField("location", location).Info("Saved analysis report")
	return location, nil
}

// FileSink writes reports into a local directory.
type FileSink struct {
	Dir string
}

// Save writes content to Dir/name, creating Dir when needed.
func (s FileSink) Save(_ context.Context, name string, content []byte, _ string) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
