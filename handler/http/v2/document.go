package v2

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/docqa"
)

// UploadDocument godoc
// @Summary Upload and index the session's document
// @Tags documents
// @Accept multipart/form-data
// @Param id path string true "Session ID"
// @Param file formData file true "PDF file"
// @Produce json
// @Success 200 {object} docqa.View
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/{id}/document [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	id := c.Param("id")
	limit := h.maxUploadBytes

	if limit > 0 {
		if c.Request.ContentLength > limit+multipartOverhead {
			sendError(c, http.StatusRequestEntityTooLarge, tooLarge(c.Request.ContentLength, limit), nil)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: request body exceeds %d bytes", docqa.ErrUploadTooLarge, maxErr.Limit), nil)
			return
		}
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err), nil)
		return
	}
	defer file.Close()

	if limit > 0 && header.Size > limit {
		sendError(c, http.StatusRequestEntityTooLarge, tooLarge(header.Size, limit), nil)
		return
	}

	var r io.Reader = file
	if limit > 0 {
		r = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err), nil)
		return
	}
	if limit > 0 && int64(len(data)) > limit {
		sendError(c, http.StatusRequestEntityTooLarge, tooLarge(int64(len(data)), limit), nil)
		return
	}

	view, err := h.sessions.Upload(c.Request.Context(), id, docqa.Upload{Name: header.Filename, Data: data})
	if err != nil {
		var details interface{}
		if view.ID != "" {
			details = view
		}
		sendError(c, http.StatusInternalServerError, err, details)
		return
	}

	sendJSON(c, http.StatusOK, view)
}

// multipartOverhead is the room left for multipart headers and boundaries
// on top of the file size limit.
const multipartOverhead = 1 << 20

func tooLarge(size, limit int64) error {
	return fmt.Errorf("%w: %d bytes, limit is %d", docqa.ErrUploadTooLarge, size, limit)
}
