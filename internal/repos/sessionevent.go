package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/types"
)

type SessionEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.SessionEvent) ([]*types.SessionEvent, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.SessionEvent, error)
}

type sessionEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionEventRepo(db *gorm.DB, baseLog *logger.Logger) SessionEventRepo {
	repoLog := baseLog.With("repo", "SessionEventRepo")
	return &sessionEventRepo{db: db, log: repoLog}
}

func (r *sessionEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.SessionEvent) ([]*types.SessionEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(events) == 0 {
		return []*types.SessionEvent{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *sessionEventRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.SessionEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SessionEvent
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
