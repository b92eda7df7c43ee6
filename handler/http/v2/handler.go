package v2

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/docqa"
)

// SessionService is the session API the handlers drive.
type SessionService interface {
	CreateSession(ctx context.Context) (docqa.View, error)
	Session(ctx context.Context, id string) (docqa.View, error)
	Upload(ctx context.Context, id string, doc docqa.Upload) (docqa.View, error)
	Ask(ctx context.Context, id, question string) (*docqa.TurnResult, docqa.View, error)
	SelectSuggestion(ctx context.Context, id string, i int) (docqa.View, error)
	Reset(ctx context.Context, id string) (docqa.View, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	sessions       SessionService
	maxUploadBytes int64
	checks         []HealthCheck
}

// NewHandler creates the API handler. Uploaded files larger than
// maxUploadBytes are rejected before they are read; zero disables the limit.
func NewHandler(sessions SessionService, maxUploadBytes int64, checks ...HealthCheck) *Handler {
	return &Handler{
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
		checks:         checks,
	}
}

// RegisterRoutes registers all v1 API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Session routes
	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions/:id", h.GetSession)
	v1.DELETE("/sessions/:id", h.DeleteSession)
	v1.POST("/sessions/:id/reset", h.ResetSession)

	// Document routes
	v1.POST("/sessions/:id/document", h.UploadDocument)

	// Chat routes
	v1.POST("/sessions/:id/questions", h.AskQuestion)
	v1.POST("/sessions/:id/suggestions/:index", h.SelectSuggestion)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// sendError maps package errors to a status and code. status is used for
// errors the package does not know about.
func sendError(c *gin.Context, status int, err error, details interface{}) {
	code := "INTERNAL_ERROR"
	message := err.Error()
	switch {
	case errors.Is(err, docqa.ErrSessionNotFound):
		code, status = "NOT_FOUND", http.StatusNotFound
	case errors.Is(err, docqa.ErrAlreadyIndexed):
		code, status = "ALREADY_INDEXED", http.StatusConflict
	case errors.Is(err, docqa.ErrNotReady):
		code, status = "NOT_READY", http.StatusConflict
	case errors.Is(err, docqa.ErrEmptyQuestion):
		code, status = "EMPTY_QUESTION", http.StatusBadRequest
	case errors.Is(err, docqa.ErrInvalidSuggestion):
		code, status = "INVALID_SUGGESTION", http.StatusBadRequest
	case errors.Is(err, docqa.ErrUploadTooLarge):
		code, status = "UPLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge
	case errors.Is(err, docqa.ErrDecode):
		code, status = "UNREADABLE_DOCUMENT", http.StatusUnprocessableEntity
	case errors.Is(err, docqa.ErrBackendUnavailable):
		code, status = "BACKEND_UNAVAILABLE", http.StatusServiceUnavailable
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	default:
		status = http.StatusInternalServerError
	}
	if code != "BAD_REQUEST" {
		message = docqa.UserMessage(err)
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
