package repos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Named shared-memory database: the pool opens several connections and a
	// plain :memory: DSN would give each one its own empty database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.QuizQuestion{},
		&types.PlayerProgress{},
		&types.SessionEvent{},
	))
	return db
}

func newRepoLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func makeQuestion(baseID, locale string, level int, topic string) *types.QuizQuestion {
	return &types.QuizQuestion{
		ID:           uuid.New(),
		BaseID:       baseID,
		Locale:       locale,
		Level:        level,
		Topic:        topic,
		Options:      datatypes.JSON(`["a","b","c","d"]`),
		CorrectIndex: 1,
	}
}

func TestQuestionRepoCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepo(db, newRepoLogger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, []*types.QuizQuestion{
		makeQuestion("capital-fr", "en", 2, "geography"),
		makeQuestion("capital-fr", "de", 2, "geography"),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	got, err := repo.GetByBaseID(ctx, nil, "capital-fr", "de")
	require.NoError(t, err)
	require.Equal(t, "de", got.Locale)
	require.Equal(t, 2, got.Level)

	_, err = repo.GetByBaseID(ctx, nil, "capital-fr", "ja")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuestionRepoCreateAssignsIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepo(db, newRepoLogger(t))
	ctx := context.Background()

	seed := func(baseID string) *types.QuizQuestion {
		q := makeQuestion(baseID, "en", 2, "geography")
		q.ID = uuid.Nil
		return q
	}

	// Operators seed in batches without ids; each batch must get fresh
	// primary keys instead of colliding on the zero uuid.
	first, err := repo.Create(ctx, nil, []*types.QuizQuestion{seed("q1"), seed("q2")})
	require.NoError(t, err)
	second, err := repo.Create(ctx, nil, []*types.QuizQuestion{seed("q3")})
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	for _, q := range append(first, second...) {
		require.NotEqual(t, uuid.Nil, q.ID)
		require.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}

	got, err := repo.GetByBaseID(ctx, nil, "q3", "en")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, got.ID)
}

func TestQuestionRepoListBaseIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepo(db, newRepoLogger(t))
	ctx := context.Background()

	var batch []*types.QuizQuestion
	for i := 0; i < 5; i++ {
		batch = append(batch, makeQuestion(fmt.Sprintf("l3-q%02d", i), "en", 3, "history"))
	}
	batch = append(batch,
		makeQuestion("l2-q00", "en", 2, "history"),
		makeQuestion("l3-q00", "de", 3, "history"),
	)
	_, err := repo.Create(ctx, nil, batch)
	require.NoError(t, err)

	ids, err := repo.ListBaseIDs(ctx, nil, "en", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"l3-q00", "l3-q01", "l3-q02", "l3-q03", "l3-q04"}, ids)

	empty, err := repo.ListBaseIDs(ctx, nil, "en", 5)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestQuestionRepoStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepo(db, newRepoLogger(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, nil, []*types.QuizQuestion{
		makeQuestion("q1", "en", 2, "history"),
		makeQuestion("q2", "en", 2, "history"),
		makeQuestion("q3", "en", 3, "science"),
		makeQuestion("q4", "de", 2, "history"),
	})
	require.NoError(t, err)

	all, err := repo.Stats(ctx, nil, "", 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	filtered, err := repo.Stats(ctx, nil, "en", 2, "")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, int64(2), filtered[0].Count)
	require.Equal(t, "history", filtered[0].Topic)
}

func TestPlayerProgressAppendAndTrim(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlayerProgressRepo(db, newRepoLogger(t))
	ctx := context.Background()

	// Missing player reads as empty history, not an error.
	ids, err := repo.GetRecentBaseIDs(ctx, nil, "device:abc")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, repo.AppendRecent(ctx, nil, "device:abc", []string{"q1", "q2", "q3"}, 5))
	require.NoError(t, repo.AppendRecent(ctx, nil, "device:abc", []string{"q4", "q5", "q6"}, 5))

	ids, err = repo.GetRecentBaseIDs(ctx, nil, "device:abc")
	require.NoError(t, err)
	// Capped at 5, oldest evicted first.
	require.Equal(t, []string{"q2", "q3", "q4", "q5", "q6"}, ids)
}

func TestPlayerProgressAppendNoopInputs(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlayerProgressRepo(db, newRepoLogger(t))
	ctx := context.Background()

	require.NoError(t, repo.AppendRecent(ctx, nil, "", []string{"q1"}, 5))
	require.NoError(t, repo.AppendRecent(ctx, nil, "device:abc", nil, 5))

	ids, err := repo.GetRecentBaseIDs(ctx, nil, "device:abc")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestPlayerProgressIsolatedPerPlayer(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlayerProgressRepo(db, newRepoLogger(t))
	ctx := context.Background()

	require.NoError(t, repo.AppendRecent(ctx, nil, "device:a", []string{"q1"}, 10))
	require.NoError(t, repo.AppendRecent(ctx, nil, "device:b", []string{"q2"}, 10))

	idsA, err := repo.GetRecentBaseIDs(ctx, nil, "device:a")
	require.NoError(t, err)
	require.Equal(t, []string{"q1"}, idsA)

	idsB, err := repo.GetRecentBaseIDs(ctx, nil, "device:b")
	require.NoError(t, err)
	require.Equal(t, []string{"q2"}, idsB)
}

func TestSessionEventRepoRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionEventRepo(db, newRepoLogger(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []*types.SessionEvent{
		{ID: uuid.New(), SessionID: "s1", PlayerKey: "device:abc", Type: "session_started", CreatedAt: base},
		{ID: uuid.New(), SessionID: "s1", PlayerKey: "device:abc", Type: "answer_submitted", Data: datatypes.JSON(`{"correct":true}`), CreatedAt: base.Add(time.Second)},
		{ID: uuid.New(), SessionID: "s2", PlayerKey: "device:xyz", Type: "session_started", CreatedAt: base},
	}
	_, err := repo.Create(ctx, nil, events)
	require.NoError(t, err)

	got, err := repo.GetBySessionID(ctx, nil, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "session_started", got[0].Type)
	require.Equal(t, "answer_submitted", got[1].Type)
}
