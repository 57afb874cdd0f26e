package services

import (
	"fmt"
	"math"
)

// ScoringConfig holds the tunable scoring constants. Values come from env or
// the optional rules file and are validated once at startup.
type ScoringConfig struct {
	BaseUnit             int     `yaml:"base_unit"`
	TimeBonusFactor      float64 `yaml:"time_bonus_factor"`
	StreakCap            int     `yaml:"streak_cap"`
	StreakStep           float64 `yaml:"streak_step"`
	QuestionTimeBudgetMs int64   `yaml:"question_time_budget_ms"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseUnit:             10,
		TimeBonusFactor:      0.5,
		StreakCap:            5,
		StreakStep:           0.1,
		QuestionTimeBudgetMs: 20000,
	}
}

func (c ScoringConfig) Validate() error {
	if c.BaseUnit <= 0 {
		return fmt.Errorf("scoring base_unit must be positive, got %d", c.BaseUnit)
	}
	if c.TimeBonusFactor < 0 || c.TimeBonusFactor > 1 {
		return fmt.Errorf("scoring time_bonus_factor must be in [0,1], got %v", c.TimeBonusFactor)
	}
	if c.StreakCap < 0 {
		return fmt.Errorf("scoring streak_cap must be non-negative, got %d", c.StreakCap)
	}
	if c.StreakStep < 0 {
		return fmt.Errorf("scoring streak_step must be non-negative, got %v", c.StreakStep)
	}
	if c.QuestionTimeBudgetMs <= 0 {
		return fmt.Errorf("scoring question_time_budget_ms must be positive, got %d", c.QuestionTimeBudgetMs)
	}
	return nil
}

// ScoreBreakdown is the decomposed point award for one answer.
type ScoreBreakdown struct {
	BasePoints       int     `json:"base_points"`
	TimeBonus        int     `json:"time_bonus"`
	StreakMultiplier float64 `json:"streak_multiplier"`
	TotalPoints      int     `json:"total_points"`
}

// Score computes the point award for one answer. Pure: no I/O, no clock, no
// state, so concurrent submits can score without locking.
//
// An incorrect answer always totals zero and carries multiplier 1; the caller
// resets the streak afterward. The time bonus is clamped to [0, basePoints]:
// an instant answer doubles at most, a last-millisecond one never goes
// negative.
func Score(cfg ScoringConfig, level int, timeRemainingMs int64, correct bool, streakBefore int) ScoreBreakdown {
	if !correct {
		return ScoreBreakdown{StreakMultiplier: 1}
	}

	basePoints := level * cfg.BaseUnit

	remaining := timeRemainingMs
	if remaining < 0 {
		remaining = 0
	}
	if remaining > cfg.QuestionTimeBudgetMs {
		remaining = cfg.QuestionTimeBudgetMs
	}
	timeFraction := float64(remaining) / float64(cfg.QuestionTimeBudgetMs)
	timeBonus := int(math.Round(float64(basePoints) * timeFraction * cfg.TimeBonusFactor))
	if timeBonus < 0 {
		timeBonus = 0
	}
	if timeBonus > basePoints {
		timeBonus = basePoints
	}

	streak := streakBefore
	if streak > cfg.StreakCap {
		streak = cfg.StreakCap
	}
	multiplier := 1 + float64(streak)*cfg.StreakStep

	total := int(math.Round(float64(basePoints+timeBonus) * multiplier))

	return ScoreBreakdown{
		BasePoints:       basePoints,
		TimeBonus:        timeBonus,
		StreakMultiplier: multiplier,
		TotalPoints:      total,
	}
}
