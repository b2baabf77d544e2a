package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"resumelift/internal/models"
)

const (
	fieldFile           = "file"
	fieldJobDescription = "job_description"
	defaultContentType  = "application/octet-stream"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Payload is a ready-to-send multipart body.
type Payload struct {
	Body        *bytes.Buffer
	ContentType string
}

// SubmissionBuilder assembles the multipart analysis payload. Content is
// passed through as-is: no re-encoding and no size limit.
type SubmissionBuilder struct{}

// NewSubmissionBuilder returns a builder.
func NewSubmissionBuilder() *SubmissionBuilder {
	return &SubmissionBuilder{}
}

// Build writes the `file` part (original filename preserved) and the
// `job_description` field.
func (b *SubmissionBuilder) Build(sub models.Submission) (*Payload, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	contentType := sub.File.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fieldFile, quoteEscaper.Replace(sub.File.Name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(sub.File.Data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}

	if err := writer.WriteField(fieldJobDescription, sub.JobDescription); err != nil {
		return nil, fmt.Errorf("write job description: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return &Payload{Body: body, ContentType: writer.FormDataContentType()}, nil
}
