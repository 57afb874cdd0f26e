package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/ratelimit"
	"github.com/quizlab/trivia-backend/internal/services"
	"github.com/quizlab/trivia-backend/internal/utils"
)

type Config struct {
	ListenAddr       string
	AllowOrigins     []string
	JWTSecretKey     string
	DeviceTokenTTL   time.Duration
	SessionRetention time.Duration
	SweepInterval    time.Duration
	// SessionStoreKind selects redis (default) or memory for session state
	// and rate-limit counters. Memory is single-node only.
	SessionStoreKind string
	Quiz             services.QuizConfig
	RateLimits       map[string]ratelimit.Policy
}

func LoadConfig(log *logger.Logger) (Config, error) {
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	deviceTokenTTL := utils.GetEnvAsInt("DEVICE_TOKEN_TTL", 30*24*3600, log)
	sessionRetention := utils.GetEnvAsInt("SESSION_RETENTION", 24*3600, log)
	sweepInterval := utils.GetEnvAsInt("SWEEP_INTERVAL", 60, log)
	storeKind := strings.ToLower(utils.GetEnv("SESSION_STORE", "redis", log))

	quiz, err := services.LoadQuizRules(utils.GetEnv("QUIZ_RULES_FILE", "", log), services.DefaultQuizConfig())
	if err != nil {
		return Config{}, err
	}
	quiz.QuestionsPerPhase = utils.GetEnvAsInt("QUESTIONS_PER_PHASE", quiz.QuestionsPerPhase, log)
	quiz.SessionTTLSeconds = utils.GetEnvAsInt("SESSION_TTL_SECONDS", quiz.SessionTTLSeconds, log)
	quiz.RecentHistoryCap = utils.GetEnvAsInt("RECENT_HISTORY_CAP", quiz.RecentHistoryCap, log)
	quiz.Scoring.BaseUnit = utils.GetEnvAsInt("SCORING_BASE_UNIT", quiz.Scoring.BaseUnit, log)
	quiz.Scoring.TimeBonusFactor = utils.GetEnvAsFloat("SCORING_TIME_BONUS_FACTOR", quiz.Scoring.TimeBonusFactor, log)
	quiz.Scoring.StreakCap = utils.GetEnvAsInt("SCORING_STREAK_CAP", quiz.Scoring.StreakCap, log)
	quiz.Scoring.StreakStep = utils.GetEnvAsFloat("SCORING_STREAK_STEP", quiz.Scoring.StreakStep, log)
	quiz.Scoring.QuestionTimeBudgetMs = int64(utils.GetEnvAsInt("SCORING_TIME_BUDGET_MS", int(quiz.Scoring.QuestionTimeBudgetMs), log))
	if err := quiz.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid quiz config: %w", err)
	}

	rateLimits := ratelimit.DefaultPolicies()
	overridePolicy(rateLimits, ratelimit.PolicyDefault, "RATE_LIMIT_DEFAULT_MAX", "RATE_LIMIT_DEFAULT_WINDOW", log)
	overridePolicy(rateLimits, ratelimit.PolicyStrict, "RATE_LIMIT_STRICT_MAX", "RATE_LIMIT_STRICT_WINDOW", log)
	overridePolicy(rateLimits, ratelimit.PolicyAuth, "RATE_LIMIT_AUTH_MAX", "RATE_LIMIT_AUTH_WINDOW", log)
	for name, policy := range rateLimits {
		if policy.MaxRequests <= 0 || policy.Window <= 0 {
			return Config{}, fmt.Errorf("invalid rate limit policy %q: %+v", name, policy)
		}
	}

	return Config{
		ListenAddr:       listenAddr,
		AllowOrigins:     allowOrigins,
		JWTSecretKey:     jwtSecretKey,
		DeviceTokenTTL:   time.Duration(deviceTokenTTL) * time.Second,
		SessionRetention: time.Duration(sessionRetention) * time.Second,
		SweepInterval:    time.Duration(sweepInterval) * time.Second,
		SessionStoreKind: storeKind,
		Quiz:             quiz,
		RateLimits:       rateLimits,
	}, nil
}

func overridePolicy(policies map[string]ratelimit.Policy, name, maxEnv, windowEnv string, log *logger.Logger) {
	policy := policies[name]
	policy.MaxRequests = int64(utils.GetEnvAsInt(maxEnv, int(policy.MaxRequests), log))
	windowSeconds := utils.GetEnvAsInt(windowEnv, int(policy.Window/time.Second), log)
	policy.Window = time.Duration(windowSeconds) * time.Second
	policies[name] = policy
}
