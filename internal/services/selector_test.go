package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/repos"
	"github.com/quizlab/trivia-backend/internal/types"
)

// fakeQuestionRepo backs selector and engine tests with a fixed pool.
type fakeQuestionRepo struct {
	byLevel   map[int][]string
	questions map[string]*types.QuizQuestion
	listErr   error
	getErr    error
}

func (f *fakeQuestionRepo) Create(_ context.Context, _ *gorm.DB, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error) {
	return questions, nil
}

func (f *fakeQuestionRepo) GetByBaseID(_ context.Context, _ *gorm.DB, baseID, _ string) (*types.QuizQuestion, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	q, ok := f.questions[baseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (f *fakeQuestionRepo) ListBaseIDs(_ context.Context, _ *gorm.DB, _ string, level int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.byLevel[level]...), nil
}

func (f *fakeQuestionRepo) Stats(_ context.Context, _ *gorm.DB, _ string, _ int, _ string) ([]repos.PoolStat, error) {
	return nil, nil
}

// newFakePool builds perLevel questions for each given level. Base ids encode
// their level ("l3-q07") so tests can recover composition.
func newFakePool(perLevel int, levels ...int) *fakeQuestionRepo {
	f := &fakeQuestionRepo{
		byLevel:   make(map[int][]string),
		questions: make(map[string]*types.QuizQuestion),
	}
	for _, level := range levels {
		for i := 0; i < perLevel; i++ {
			baseID := fmt.Sprintf("l%d-q%02d", level, i)
			f.byLevel[level] = append(f.byLevel[level], baseID)
			f.questions[baseID] = &types.QuizQuestion{
				BaseID:        baseID,
				Locale:        "en",
				Level:         level,
				Topic:         "history",
				Options:       []byte(`["a","b","c","d"]`),
				CorrectIndex:  i % 4,
				ExplanationMD: "because",
			}
		}
	}
	return f
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func levelOf(t *testing.T, pool *fakeQuestionRepo, baseID string) int {
	t.Helper()
	q, ok := pool.questions[baseID]
	if !ok {
		t.Fatalf("unknown base id %q", baseID)
	}
	return q.Level
}

func TestSelectComposition(t *testing.T) {
	pool := newFakePool(20, 2, 3, 4)
	selector := NewSelectorService(pool, testLogger(t))

	// Composition must be deterministic even though ordering is not.
	for run := 0; run < 5; run++ {
		ids, err := selector.Select(context.Background(), "en", 3, 10, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(ids) != 10 {
			t.Fatalf("got %d ids, want 10", len(ids))
		}
		counts := map[int]int{}
		for _, id := range ids {
			counts[levelOf(t, pool, id)]++
		}
		if counts[3] != 6 || counts[2] != 2 || counts[4] != 2 {
			t.Fatalf("composition = %v, want 6/2/2 across levels 3/2/4", counts)
		}
	}
}

func TestSelectEdgeLevelRenormalizes(t *testing.T) {
	pool := newFakePool(20, 1, 2)
	selector := NewSelectorService(pool, testLogger(t))

	ids, err := selector.Select(context.Background(), "en", 1, 8, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	counts := map[int]int{}
	for _, id := range ids {
		counts[levelOf(t, pool, id)]++
	}
	// 0.6/0.2 renormalized to 0.75/0.25 over 8 questions.
	if counts[1] != 6 || counts[2] != 2 {
		t.Fatalf("composition = %v, want 6/2 across levels 1/2", counts)
	}
}

func TestSelectNoDuplicates(t *testing.T) {
	pool := newFakePool(10, 2, 3, 4)
	selector := NewSelectorService(pool, testLogger(t))

	ids, err := selector.Select(context.Background(), "en", 3, 10, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate base id %q in selection", id)
		}
		seen[id] = true
	}
}

func TestSelectHonorsExclusionsWhenPoolAllows(t *testing.T) {
	pool := newFakePool(20, 2, 3, 4)
	selector := NewSelectorService(pool, testLogger(t))

	exclude := []string{"l3-q00", "l3-q01", "l2-q00", "l4-q00"}
	ids, err := selector.Select(context.Background(), "en", 3, 10, exclude)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	excluded := map[string]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, id := range ids {
		if excluded[id] {
			t.Fatalf("excluded id %q returned despite sufficient pool", id)
		}
	}
}

func TestSelectBackfillsFromNeighborLevels(t *testing.T) {
	// Only 3 questions at the center level; the rest must come from the
	// neighbors instead of failing.
	pool := newFakePool(3, 3)
	for _, level := range []int{2, 4} {
		extra := newFakePool(10, level)
		pool.byLevel[level] = extra.byLevel[level]
		for id, q := range extra.questions {
			pool.questions[id] = q
		}
	}
	selector := NewSelectorService(pool, testLogger(t))

	ids, err := selector.Select(context.Background(), "en", 3, 10, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("got %d ids, want 10", len(ids))
	}
}

func TestSelectDropsOldestExclusionsFirst(t *testing.T) {
	pool := newFakePool(10, 3)
	selector := NewSelectorService(pool, testLogger(t))

	// The pool is exactly count-sized, so all three exclusions must be
	// re-admitted to fill the session.
	exclude := []string{"l3-q00", "l3-q01", "l3-q02"}
	ids, err := selector.Select(context.Background(), "en", 3, 10, exclude)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("got %d ids, want 10", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range exclude {
		if !seen[id] {
			t.Fatalf("exclusion %q was not re-admitted even though the pool requires it", id)
		}
	}
}

func TestSelectInsufficientContent(t *testing.T) {
	pool := newFakePool(3, 3)
	selector := NewSelectorService(pool, testLogger(t))

	_, err := selector.Select(context.Background(), "en", 3, 10, nil)
	if !errors.Is(err, ErrInsufficientContent) {
		t.Fatalf("err = %v, want ErrInsufficientContent", err)
	}
}

func TestSelectPoolErrorNotConflated(t *testing.T) {
	pool := newFakePool(20, 2, 3, 4)
	pool.listErr = errors.New("connection refused")
	selector := NewSelectorService(pool, testLogger(t))

	_, err := selector.Select(context.Background(), "en", 3, 10, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrInsufficientContent) {
		t.Fatalf("pool read failure conflated with ErrInsufficientContent: %v", err)
	}
	if !errors.Is(err, pool.listErr) {
		t.Fatalf("err = %v, want wrapped pool error", err)
	}
}
