package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quizlab/trivia-backend/internal/types"
)

func newTestSession(id string) *types.QuizSession {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &types.QuizSession{
		SessionID:   id,
		PlayerKey:   "device:abc",
		Locale:      "en",
		PhaseNumber: 3,
		Level:       3,
		State:       types.SessionActive,
		QuestionIDs: []string{"q1", "q2", "q3"},
		Answers:     []types.AnswerOutcome{},
		StartedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := newTestSession("s1")
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Version != 1 {
		t.Fatalf("Version = %d, want 1 after create", rec.Version)
	}
	if err := s.Create(ctx, newTestSession("s1")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate create err = %v, want ErrAlreadyExists", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionID != "s1" || got.Version != 1 {
		t.Fatalf("Get returned %+v", got)
	}

	// Mutating the returned record must not leak into the store.
	got.Score = 999
	got.QuestionIDs[0] = "tampered"
	fresh, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.Score != 0 || fresh.QuestionIDs[0] != "q1" {
		t.Fatalf("store state mutated through a read: %+v", fresh)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	next := rec.Clone()
	next.Score = 41
	if err := s.CompareAndSwap(ctx, "s1", rec.Version, next); err != nil {
		t.Fatalf("CompareAndSwap: %v", err)
	}
	if next.Version != rec.Version+1 {
		t.Fatalf("Version = %d, want %d", next.Version, rec.Version+1)
	}

	// Swapping against the stale version must fail.
	stale := rec.Clone()
	stale.Score = 7
	if err := s.CompareAndSwap(ctx, "s1", rec.Version, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale swap err = %v, want ErrVersionConflict", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score != 41 || got.Version != 2 {
		t.Fatalf("after swap: score=%d version=%d, want 41/2", got.Score, got.Version)
	}

	if err := s.CompareAndSwap(ctx, "missing", 1, next); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing swap err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreConcurrentSwaps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const goroutines = 8
	const increments = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				for {
					rec, err := s.Get(ctx, "s1")
					if err != nil {
						t.Errorf("Get: %v", err)
						return
					}
					next := rec.Clone()
					next.Score++
					err = s.CompareAndSwap(ctx, "s1", rec.Version, next)
					if err == nil {
						break
					}
					if !errors.Is(err, ErrVersionConflict) {
						t.Errorf("CompareAndSwap: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := goroutines * increments; got.Score != want {
		t.Fatalf("Score = %d, want %d: a swap was lost", got.Score, want)
	}
	if want := int64(goroutines*increments + 1); got.Version != want {
		t.Fatalf("Version = %d, want %d", got.Version, want)
	}
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Create(ctx, newTestSession(id)); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, err := s.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListIDs = %v, want 2 ids", ids)
	}
	for _, id := range ids {
		if id == "b" {
			t.Fatal("deleted id still listed")
		}
	}
}
