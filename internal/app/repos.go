package app

import (
	"gorm.io/gorm"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/repos"
)

type Repos struct {
	Question       repos.QuestionRepo
	PlayerProgress repos.PlayerProgressRepo
	SessionEvent   repos.SessionEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Question:       repos.NewQuestionRepo(db, log),
		PlayerProgress: repos.NewPlayerProgressRepo(db, log),
		SessionEvent:   repos.NewSessionEventRepo(db, log),
	}
}
