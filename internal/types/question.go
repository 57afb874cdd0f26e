package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizQuestion is one translated variant of a question. Variants of the same
// question across locales share BaseID; sessions reference questions by BaseID
// so a player can switch locale without breaking an attempt.
type QuizQuestion struct {
	gorm.Model
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BaseID        string         `gorm:"column:base_id;not null;index:idx_quiz_question_base_locale,unique" json:"base_id"`
	Locale        string         `gorm:"column:locale;not null;index:idx_quiz_question_base_locale,unique;index" json:"locale"`
	Level         int            `gorm:"column:level;not null;index" json:"level"`
	Topic         string         `gorm:"column:topic;not null;index" json:"topic"`
	Options       datatypes.JSON `gorm:"column:options;not null" json:"options"`
	CorrectIndex  int            `gorm:"column:correct_index;not null" json:"correct_index"`
	ExplanationMD string         `gorm:"column:explanation_md" json:"explanation_md"`
	MediaURL      string         `gorm:"column:media_url" json:"media_url,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (QuizQuestion) TableName() string {
	return "quiz_question"
}

// PlayerProgress holds the recent-answer history used to bias selection away
// from repeats. RecentBaseIDs is ordered oldest-first and capped by the engine.
type PlayerProgress struct {
	PlayerKey     string         `gorm:"column:player_key;primaryKey" json:"player_key"`
	RecentBaseIDs datatypes.JSON `gorm:"column:recent_base_ids" json:"recent_base_ids"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (PlayerProgress) TableName() string {
	return "player_progress"
}

// SessionEvent is a fire-and-forget telemetry row written by the async sink.
type SessionEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string         `gorm:"column:session_id;not null;index" json:"session_id"`
	PlayerKey string         `gorm:"column:player_key;index" json:"player_key"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	Data      datatypes.JSON `gorm:"column:data" json:"data"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (SessionEvent) TableName() string {
	return "session_event"
}
