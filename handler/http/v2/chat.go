package v2

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docqa/src/core/docqa"
)

type askQuestionRequest struct {
	// Empty asks the pending suggestion.
	Question string `json:"question"`
}

type askQuestionResponse struct {
	Turn    *docqa.TurnResult `json:"turn"`
	Session docqa.View        `json:"session"`
}

// AskQuestion godoc
// @Summary Ask a question about the session's document
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body askQuestionRequest true "Question"
// @Success 200 {object} askQuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/{id}/questions [post]
func (h *Handler) AskQuestion(c *gin.Context) {
	var req askQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		sendError(c, http.StatusBadRequest, err, nil)
		return
	}

	turn, view, err := h.sessions.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}

	sendJSON(c, http.StatusOK, askQuestionResponse{Turn: turn, Session: view})
}

// SelectSuggestion godoc
// @Summary Pick a suggested question as the next question
// @Tags chat
// @Param id path string true "Session ID"
// @Param index path int true "Suggestion index, from 0"
// @Produce json
// @Success 200 {object} docqa.View
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/suggestions/{index} [post]
func (h *Handler) SelectSuggestion(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid suggestion index %q", c.Param("index")), nil)
		return
	}

	view, err := h.sessions.SelectSuggestion(c.Request.Context(), c.Param("id"), i)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err, nil)
		return
	}
	sendJSON(c, http.StatusOK, view)
}
