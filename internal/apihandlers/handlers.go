package apihandlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"resumelift/internal/app"
	"resumelift/internal/export"
	"resumelift/internal/inputprocessor"
	"resumelift/internal/models"
	"resumelift/internal/session"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	formFile           = "file"
	formJobDescription = "job_description"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

// AnalyzeResponse is returned when a submission is accepted.
type AnalyzeResponse struct {
	AttemptID string             `json:"attemptId"`
	State     models.ClientState `json:"state"`
}

// EventsResponse is one page of the session event stream.
type EventsResponse struct {
	Events  []session.Event `json:"events"`
	LastSeq int64           `json:"lastSeq"`
}

func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) GetStateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.App.Session.State()})
}

func (h *APIHandler) GetEventsHandler(c *gin.Context) {
	since, err := parseSince(c.Query("since"))
	if err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	events := h.App.Session.Events()
	c.JSON(http.StatusOK, gin.H{"data": EventsResponse{
		Events:  events.Since(since),
		LastSeq: events.LastSeq(),
	}})
}

// AnalyzeHandler accepts the same multipart form the analysis backend does
// and starts the submission in the background.
func (h *APIHandler) AnalyzeHandler(c *gin.Context) {
	limit := h.App.Config.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	sub, err := parseSubmission(c, limit)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			PayloadTooLarge(c, limit)
			return
		}
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	attemptID, err := h.App.Session.SubmitAsync(c.Request.Context(), sub)
	switch {
	case errors.Is(err, models.ErrInvalidSubmission):
		BadRequest(c, session.ValidationMessage(err))
		return
	case errors.Is(err, models.ErrBusy):
		Conflict(c, "An analysis is already in progress")
		return
	case err != nil:
		Internal(c, fmt.Sprintf("AnalyzeHandler: failed to start analysis: %v", err))
		return
	}

	if !inputprocessor.SupportedResume(sub.File.Name) {
		log.WithField("file", sub.File.Name).Warn("Submitted resume has an unsupported extension")
	}
	c.JSON(http.StatusAccepted, gin.H{"data": AnalyzeResponse{
		AttemptID: attemptID,
		State:     h.App.Session.State(),
	}})
}

func (h *APIHandler) ConnectionTestHandler(c *gin.Context) {
	report := h.App.Session.TestConnection(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// GetReportHandler downloads the latest result as resume-analysis-<date>.<format>.
func (h *APIHandler) GetReportHandler(c *gin.Context) {
	format := c.DefaultQuery("format", h.App.Exporter.Format())
	if !export.SupportedFormat(format) {
		BadRequest(c, fmt.Sprintf("Unsupported report format %q", format))
		return
	}

	result, err := h.App.Session.LastResult()
	if err != nil {
		NotFound(c, "No analysis result available")
		return
	}

	now := time.Now()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(now, format)))
	c.Data(http.StatusOK, export.ContentType(format), export.Render(result, format, now))
}

// SaveReportHandler stores the latest result through the configured sink.
func (h *APIHandler) SaveReportHandler(c *gin.Context) {
	result, err := h.App.Session.LastResult()
	if err != nil {
		NotFound(c, "No analysis result available")
		return
	}

	location, err := h.App.Exporter.Save(c.Request.Context(), result)
	if err != nil {
		Internal(c, fmt.Sprintf("SaveReportHandler: failed to save report: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"location": location}})
}

// parseSubmission reads the resume part and job description field. Missing
// parts are left empty so the session reports them with its own messages.
func parseSubmission(c *gin.Context, maxMemory int64) (models.Submission, error) {
	var sub models.Submission
	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		return sub, err
	}
	sub.JobDescription = c.PostForm(formJobDescription)

	header, err := c.FormFile(formFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return sub, nil
	case err != nil:
		return sub, err
	}

	file, err := readPart(header)
	if err != nil {
		return sub, err
	}
	sub.File = file
	return sub, nil
}

func readPart(header *multipart.FileHeader) (*models.ResumeFile, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = inputprocessor.DetectContentType(header.Filename, data)
	}
	return &models.ResumeFile{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func parseSince(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("since must be a non-negative integer")
	}
	return since, nil
}
