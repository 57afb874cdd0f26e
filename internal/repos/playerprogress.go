package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/types"
)

type PlayerProgressRepo interface {
	GetRecentBaseIDs(ctx context.Context, tx *gorm.DB, playerKey string) ([]string, error)
	AppendRecent(ctx context.Context, tx *gorm.DB, playerKey string, baseIDs []string, limit int) error
}

type playerProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlayerProgressRepo(db *gorm.DB, baseLog *logger.Logger) PlayerProgressRepo {
	repoLog := baseLog.With("repo", "PlayerProgressRepo")
	return &playerProgressRepo{db: db, log: repoLog}
}

func (r *playerProgressRepo) GetRecentBaseIDs(ctx context.Context, tx *gorm.DB, playerKey string) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.PlayerProgress
	if err := transaction.WithContext(ctx).
		Where("player_key = ?", playerKey).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	if len(row.RecentBaseIDs) > 0 {
		if err := json.Unmarshal(row.RecentBaseIDs, &ids); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// AppendRecent appends baseIDs to the player's history, evicting oldest
// entries beyond the limit. Runs in a transaction so concurrent finishes for the
// same player do not lose appends.
func (r *playerProgressRepo) AppendRecent(ctx context.Context, tx *gorm.DB, playerKey string, baseIDs []string, limit int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if playerKey == "" || len(baseIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var row types.PlayerProgress
		err := inner.Where("player_key = ?", playerKey).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var ids []string
		if len(row.RecentBaseIDs) > 0 {
			if jerr := json.Unmarshal(row.RecentBaseIDs, &ids); jerr != nil {
				return jerr
			}
		}
		ids = append(ids, baseIDs...)
		if limit > 0 && len(ids) > limit {
			ids = ids[len(ids)-limit:]
		}

		raw, jerr := json.Marshal(ids)
		if jerr != nil {
			return jerr
		}

		row.PlayerKey = playerKey
		row.RecentBaseIDs = datatypes.JSON(raw)
		row.UpdatedAt = time.Now().UTC()
		return inner.Save(&row).Error
	})
}
