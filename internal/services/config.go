package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QuizConfig bundles the tunable session parameters. The source material for
// these numbers is game design, not code, so everything is configuration:
// env vars override the optional YAML rules file, which overrides defaults.
type QuizConfig struct {
	QuestionsPerPhase int           `yaml:"questions_per_phase"`
	SessionTTLSeconds int           `yaml:"session_ttl_seconds"`
	RecentHistoryCap  int           `yaml:"recent_history_cap"`
	Scoring           ScoringConfig `yaml:"scoring"`
}

func DefaultQuizConfig() QuizConfig {
	return QuizConfig{
		QuestionsPerPhase: 10,
		SessionTTLSeconds: 600,
		RecentHistoryCap:  50,
		Scoring:           DefaultScoringConfig(),
	}
}

func (c QuizConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c QuizConfig) Validate() error {
	if c.QuestionsPerPhase <= 0 {
		return fmt.Errorf("questions_per_phase must be positive, got %d", c.QuestionsPerPhase)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("session_ttl_seconds must be positive, got %d", c.SessionTTLSeconds)
	}
	if c.RecentHistoryCap < 0 {
		return fmt.Errorf("recent_history_cap must be non-negative, got %d", c.RecentHistoryCap)
	}
	return c.Scoring.Validate()
}

// LoadQuizRules overlays cfg with values from a YAML rules file when path is
// set. Missing file is an error; operators pointing at a file expect it read.
func LoadQuizRules(path string, cfg QuizConfig) (QuizConfig, error) {
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read quiz rules file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse quiz rules file: %w", err)
	}
	return cfg, nil
}
