package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/response"
	"github.com/quizlab/trivia-backend/internal/repos"
)

// PoolHandler exposes read-only diagnostics over the content pool so
// operators can spot thin locale/level buckets before players do.
type PoolHandler struct {
	questionRepo repos.QuestionRepo
}

func NewPoolHandler(questionRepo repos.QuestionRepo) *PoolHandler {
	return &PoolHandler{questionRepo: questionRepo}
}

// GET /api/pool-stats?locale=&level=&topic=
func (h *PoolHandler) Stats(c *gin.Context) {
	locale := c.Query("locale")
	topic := c.Query("topic")
	level := 0
	if raw := c.Query("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondError(c, http.StatusBadRequest, "invalid_level", err)
			return
		}
		level = parsed
	}

	stats, err := h.questionRepo.Stats(c.Request.Context(), nil, locale, level, topic)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "pool_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}
