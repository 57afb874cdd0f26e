package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/middleware"
	"github.com/quizlab/trivia-backend/internal/http/response"
	"github.com/quizlab/trivia-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/session
func (h *SessionHandler) Start(c *gin.Context) {
	var req struct {
		Locale      string `json:"locale" binding:"required"`
		PhaseNumber int    `json:"phase_number" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	playerKey := middleware.ClientKeyFromContext(c)
	rec, err := h.sessions.Start(c.Request.Context(), playerKey, req.Locale, req.PhaseNumber)
	if err != nil {
		respondSessionError(c, err, "start_session_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"session_id":      rec.SessionID,
		"state":           rec.State,
		"expires_at":      rec.ExpiresAt,
		"total_questions": len(rec.QuestionIDs),
	})
}

// GET /api/session/:id
func (h *SessionHandler) Get(c *gin.Context) {
	rec, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "get_session_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"session_id":      rec.SessionID,
		"state":           rec.State,
		"current_index":   rec.CurrentIndex,
		"score":           rec.Score,
		"streak":          rec.Streak,
		"total_questions": len(rec.QuestionIDs),
		"expires_at":      rec.ExpiresAt,
	})
}

// GET /api/session/:id/question
func (h *SessionHandler) CurrentQuestion(c *gin.Context) {
	view, err := h.sessions.CurrentQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "get_question_failed")
		return
	}
	response.RespondOK(c, view)
}

// POST /api/session/:id/answer
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req struct {
		QuestionIndex   int   `json:"question_index"`
		SelectedOption  *int  `json:"selected_option" binding:"required"`
		TimeRemainingMs int64 `json:"time_remaining_ms"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.sessions.SubmitAnswer(c.Request.Context(), c.Param("id"), req.QuestionIndex, *req.SelectedOption, req.TimeRemainingMs)
	if err != nil {
		respondSessionError(c, err, "submit_answer_failed")
		return
	}
	response.RespondOK(c, result)
}

// POST /api/session/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	rec, err := h.sessions.Pause(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "pause_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"session_id": rec.SessionID, "state": rec.State, "paused_at": rec.PausedAt})
}

// POST /api/session/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	rec, err := h.sessions.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "resume_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"session_id": rec.SessionID, "state": rec.State, "expires_at": rec.ExpiresAt})
}

// POST /api/session/:id/finish
func (h *SessionHandler) Finish(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required,oneof=completed abandoned"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	rec, err := h.sessions.Finish(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondSessionError(c, err, "finish_session_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"session_id": rec.SessionID,
		"state":      rec.State,
		"score":      rec.Score,
		"abandoned":  rec.Abandoned,
	})
}

// respondSessionError maps engine error kinds to HTTP statuses and stable
// machine codes so clients can branch without parsing messages.
func respondSessionError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		response.RespondError(c, http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, services.ErrSessionClosed):
		response.RespondError(c, http.StatusConflict, "session_closed", err)
	case errors.Is(err, services.ErrAlreadyAnswered):
		response.RespondError(c, http.StatusConflict, "already_answered", err)
	case errors.Is(err, services.ErrConflict):
		response.RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, services.ErrInvalidTransition):
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_transition", err)
	case errors.Is(err, services.ErrSessionExpired):
		response.RespondError(c, http.StatusGone, "session_expired", err)
	case errors.Is(err, services.ErrNoMoreQuestions):
		response.RespondError(c, http.StatusGone, "no_more_questions", err)
	case errors.Is(err, services.ErrInsufficientContent):
		response.RespondError(c, http.StatusServiceUnavailable, "insufficient_content", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, fallbackCode, err)
	}
}
