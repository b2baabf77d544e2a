package apihandlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Error codes returned in the "code" field.
const (
	CodeBadRequest      = "bad_request"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodePayloadTooLarge = "payload_too_large"
	CodeInternal        = "internal_error"
)

// APIError is the body of every error response:
// { "error": { "code": "conflict", "message": "An analysis is already in progress" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// JSONError aborts the request with a structured error body.
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.AbortWithStatusJSON(status, errorResponse{Error: APIError{Code: code, Message: msg}})
}

func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, CodeBadRequest, msg)
}

func NotFound(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusNotFound, CodeNotFound, msg)
}

// Conflict is returned while another submission is in flight.
func Conflict(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusConflict, CodeConflict, msg)
}

// PayloadTooLarge reports an upload over the configured limit in megabytes.
func PayloadTooLarge(ctx *gin.Context, limitBytes int64) {
	JSONError(ctx, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Upload exceeds %d MB", limitBytes>>20))
}

// Internal logs detail and answers with a generic message.
func Internal(ctx *gin.Context, detail string) {
	log.WithField("path", ctx.FullPath()).Error(detail)
	JSONError(ctx, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
