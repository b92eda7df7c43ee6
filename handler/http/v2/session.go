package v2

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateSession godoc
// @Summary Start a new chat session
// @Tags sessions
// @Produce json
// @Success 201 {object} docqa.View
// @Failure 500 {object} ErrorResponse
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	view, err := h.sessions.CreateSession(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}
	sendJSON(c, http.StatusCreated, view)
}

// GetSession godoc
// @Summary Get a session's state and recent history
// @Tags sessions
// @Param id path string true "Session ID"
// @Produce json
// @Success 200 {object} docqa.View
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.sessions.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}
	sendJSON(c, http.StatusOK, view)
}

// DeleteSession godoc
// @Summary Clear a session and its index
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetSession godoc
// @Summary Drop the indexed document and conversation
// @Tags sessions
// @Param id path string true "Session ID"
// @Produce json
// @Success 200 {object} docqa.View
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/reset [post]
func (h *Handler) ResetSession(c *gin.Context) {
	view, err := h.sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}
	sendJSON(c, http.StatusOK, view)
}
