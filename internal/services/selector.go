package services

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/repos"
)

const (
	minQuestionLevel = 1
	maxQuestionLevel = 5
)

// Difficulty window around the phase level: mostly the phase's own level with
// some spill into the neighbors, so an attempt is neither trivial nor brutal.
const (
	centerLevelWeight   = 0.6
	neighborLevelWeight = 0.2
)

// SelectorService picks a non-repeating, difficulty-appropriate question
// sequence for a new session. Composition (how many per level) is
// deterministic for a given pool; ordering is randomized per call.
type SelectorService interface {
	Select(ctx context.Context, locale string, level, count int, excludeIDs []string) ([]string, error)
}

type selectorService struct {
	log          *logger.Logger
	questionRepo repos.QuestionRepo
}

func NewSelectorService(questionRepo repos.QuestionRepo, baseLog *logger.Logger) SelectorService {
	serviceLog := baseLog.With("service", "SelectorService")
	return &selectorService{log: serviceLog, questionRepo: questionRepo}
}

type levelWeight struct {
	level  int
	weight float64
}

// levelWindow returns the levels to draw from, center first, with weights
// renormalized when the window is clipped at the 1..5 bounds.
func levelWindow(level int) []levelWeight {
	if level < minQuestionLevel {
		level = minQuestionLevel
	}
	if level > maxQuestionLevel {
		level = maxQuestionLevel
	}
	window := []levelWeight{{level: level, weight: centerLevelWeight}}
	if level-1 >= minQuestionLevel {
		window = append(window, levelWeight{level: level - 1, weight: neighborLevelWeight})
	}
	if level+1 <= maxQuestionLevel {
		window = append(window, levelWeight{level: level + 1, weight: neighborLevelWeight})
	}
	var sum float64
	for _, lw := range window {
		sum += lw.weight
	}
	for i := range window {
		window[i].weight /= sum
	}
	return window
}

// apportion splits count across the window by weight using largest-remainder
// rounding, so the composition is deterministic.
func apportion(window []levelWeight, count int) []int {
	targets := make([]int, len(window))
	fractions := make([]float64, len(window))
	assigned := 0
	for i, lw := range window {
		exact := lw.weight * float64(count)
		targets[i] = int(exact)
		fractions[i] = exact - float64(targets[i])
		assigned += targets[i]
	}
	for assigned < count {
		best := 0
		for i := 1; i < len(window); i++ {
			if fractions[i] > fractions[best] {
				best = i
			}
		}
		targets[best]++
		fractions[best] = -1
		assigned++
	}
	return targets
}

func (s *selectorService) Select(ctx context.Context, locale string, level, count int, excludeIDs []string) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("selection count must be positive, got %d", count)
	}

	window := levelWindow(level)
	targets := apportion(window, count)

	// Pool reads happen before any randomness; a failure here propagates
	// as-is and is never conflated with ErrInsufficientContent.
	pools := make([][]string, len(window))
	poolMembers := make(map[string]struct{})
	poolTotal := 0
	for i, lw := range window {
		ids, err := s.questionRepo.ListBaseIDs(ctx, nil, locale, lw.level)
		if err != nil {
			return nil, fmt.Errorf("list question pool locale=%s level=%d: %w", locale, lw.level, err)
		}
		pools[i] = ids
		poolTotal += len(ids)
		for _, id := range ids {
			poolMembers[id] = struct{}{}
		}
	}
	if poolTotal < count {
		return nil, fmt.Errorf("pool has %d questions, need %d: %w", poolTotal, count, ErrInsufficientContent)
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	chosen := make([]string, 0, count)
	var leftovers []string
	shortfall := 0
	for i := range window {
		avail := make([]string, 0, len(pools[i]))
		for _, id := range pools[i] {
			if _, skip := excluded[id]; !skip {
				avail = append(avail, id)
			}
		}
		rand.Shuffle(len(avail), func(a, b int) { avail[a], avail[b] = avail[b], avail[a] })

		take := targets[i]
		if take > len(avail) {
			take = len(avail)
		}
		chosen = append(chosen, avail[:take]...)
		leftovers = append(leftovers, avail[take:]...)
		shortfall += targets[i] - take
	}

	// First relax the composition: backfill from non-excluded questions at
	// neighboring levels before touching the exclusion list.
	for shortfall > 0 && len(leftovers) > 0 {
		chosen = append(chosen, leftovers[0])
		leftovers = leftovers[1:]
		shortfall--
	}

	// Then drop exclusions oldest-first; excludeIDs arrives ordered oldest
	// to newest, so repeats the player saw longest ago come back first.
	if shortfall > 0 {
		chosenSet := make(map[string]struct{}, len(chosen))
		for _, id := range chosen {
			chosenSet[id] = struct{}{}
		}
		for _, id := range excludeIDs {
			if shortfall == 0 {
				break
			}
			if _, dup := chosenSet[id]; dup {
				continue
			}
			if _, inPool := poolMembers[id]; !inPool {
				continue
			}
			chosen = append(chosen, id)
			chosenSet[id] = struct{}{}
			shortfall--
		}
	}

	if shortfall > 0 {
		return nil, fmt.Errorf("pool cannot cover %d questions after relaxing exclusions: %w", count, ErrInsufficientContent)
	}

	rand.Shuffle(len(chosen), func(a, b int) { chosen[a], chosen[b] = chosen[b], chosen[a] })
	return chosen, nil
}
