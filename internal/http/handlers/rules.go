package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/response"
	"github.com/quizlab/trivia-backend/internal/services"
)

// RulesHandler serves the static quiz configuration so clients can render
// timers and score previews without hard-coding server constants.
type RulesHandler struct {
	cfg services.QuizConfig
}

func NewRulesHandler(cfg services.QuizConfig) *RulesHandler {
	return &RulesHandler{cfg: cfg}
}

// GET /api/rules
func (h *RulesHandler) Get(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"session_ttl_seconds": h.cfg.SessionTTLSeconds,
		"questions_per_phase": h.cfg.QuestionsPerPhase,
		"scoring": gin.H{
			"base_unit":               h.cfg.Scoring.BaseUnit,
			"time_bonus_factor":       h.cfg.Scoring.TimeBonusFactor,
			"streak_cap":              h.cfg.Scoring.StreakCap,
			"streak_step":             h.cfg.Scoring.StreakStep,
			"question_time_budget_ms": h.cfg.Scoring.QuestionTimeBudgetMs,
		},
	})
}
