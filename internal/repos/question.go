package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/types"
)

// PoolStat is one row of the pool-stats diagnostic: how many questions exist
// for a (locale, level, topic) bucket.
type PoolStat struct {
	Locale string `json:"locale"`
	Level  int    `json:"level"`
	Topic  string `json:"topic"`
	Count  int64  `json:"count"`
}

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error)
	GetByBaseID(ctx context.Context, tx *gorm.DB, baseID, locale string) (*types.QuizQuestion, error)
	ListBaseIDs(ctx context.Context, tx *gorm.DB, locale string, level int) ([]string, error)
	Stats(ctx context.Context, tx *gorm.DB, locale string, level int, topic string) ([]PoolStat, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(questions) == 0 {
		return []*types.QuizQuestion{}, nil
	}

	// Seeding payloads usually omit ids; a zero uuid would collide on the
	// primary key from the second batch on.
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
	}

	if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) GetByBaseID(ctx context.Context, tx *gorm.DB, baseID, locale string) (*types.QuizQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.QuizQuestion
	if err := transaction.WithContext(ctx).
		Where("base_id = ? AND locale = ?", baseID, locale).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *questionRepo) ListBaseIDs(ctx context.Context, tx *gorm.DB, locale string, level int) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []string
	if err := transaction.WithContext(ctx).
		Model(&types.QuizQuestion{}).
		Where("locale = ? AND level = ?", locale, level).
		Order("base_id ASC").
		Pluck("base_id", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) Stats(ctx context.Context, tx *gorm.DB, locale string, level int, topic string) ([]PoolStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.QuizQuestion{}).
		Select("locale, level, topic, count(*) as count").
		Group("locale, level, topic").
		Order("locale, level, topic")
	if locale != "" {
		query = query.Where("locale = ?", locale)
	}
	if level > 0 {
		query = query.Where("level = ?", level)
	}
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}

	var results []PoolStat
	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
