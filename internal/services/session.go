package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/repos"
	"github.com/quizlab/trivia-backend/internal/store"
	"github.com/quizlab/trivia-backend/internal/types"
)

// sessionCasRetries bounds how often a mutation is replayed after losing a
// compare-and-swap race before ErrConflict is surfaced.
const sessionCasRetries = 3

// QuestionView is the sanitized projection served to clients. The correct
// option index and explanation are withheld until the question is answered.
type QuestionView struct {
	QuestionBaseID string   `json:"question_base_id"`
	Topic          string   `json:"topic"`
	Level          int      `json:"level"`
	Options        []string `json:"options"`
	Index          int      `json:"index"`
	TotalQuestions int      `json:"total_questions"`
	MediaURL       string   `json:"media_url,omitempty"`
}

// AnswerResult is returned from SubmitAnswer once the outcome is recorded.
type AnswerResult struct {
	Correct        bool               `json:"correct"`
	Breakdown      ScoreBreakdown     `json:"breakdown"`
	Explanation    string             `json:"explanation"`
	NewScore       int                `json:"new_score"`
	NewStreak      int                `json:"new_streak"`
	IsLastQuestion bool               `json:"is_last_question"`
	SessionState   types.SessionState `json:"session_state"`
}

// SessionService runs the quiz session state machine:
// active <-> paused, and active|paused -> finished | expired.
// Every mutation goes read -> clone -> compare-and-swap, so two concurrent
// operations on the same session never silently clobber each other.
type SessionService interface {
	Start(ctx context.Context, playerKey, locale string, phaseNumber int) (*types.QuizSession, error)
	Get(ctx context.Context, sessionID string) (*types.QuizSession, error)
	CurrentQuestion(ctx context.Context, sessionID string) (*QuestionView, error)
	SubmitAnswer(ctx context.Context, sessionID string, questionIndex, selectedOption int, timeRemainingMs int64) (*AnswerResult, error)
	Pause(ctx context.Context, sessionID string) (*types.QuizSession, error)
	Resume(ctx context.Context, sessionID string) (*types.QuizSession, error)
	Finish(ctx context.Context, sessionID, reason string) (*types.QuizSession, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type sessionService struct {
	log          *logger.Logger
	sessions     store.SessionStore
	selector     SelectorService
	questionRepo repos.QuestionRepo
	progressRepo repos.PlayerProgressRepo
	telemetry    TelemetryEmitter
	cfg          QuizConfig
	now          func() time.Time
}

func NewSessionService(
	sessions store.SessionStore,
	selector SelectorService,
	questionRepo repos.QuestionRepo,
	progressRepo repos.PlayerProgressRepo,
	telemetry TelemetryEmitter,
	cfg QuizConfig,
	baseLog *logger.Logger,
) SessionService {
	serviceLog := baseLog.With("service", "SessionService")
	return &sessionService{
		log:          serviceLog,
		sessions:     sessions,
		selector:     selector,
		questionRepo: questionRepo,
		progressRepo: progressRepo,
		telemetry:    telemetry,
		cfg:          cfg,
		now:          time.Now,
	}
}

func phaseLevel(phaseNumber int) int {
	if phaseNumber < minQuestionLevel {
		return minQuestionLevel
	}
	if phaseNumber > maxQuestionLevel {
		return maxQuestionLevel
	}
	return phaseNumber
}

func (s *sessionService) Start(ctx context.Context, playerKey, locale string, phaseNumber int) (*types.QuizSession, error) {
	if locale == "" {
		return nil, fmt.Errorf("locale required")
	}
	if phaseNumber < 1 {
		return nil, fmt.Errorf("phase number must be positive, got %d", phaseNumber)
	}
	level := phaseLevel(phaseNumber)

	// Recent-answer history biases selection away from repeats; a failed read
	// degrades to repeat-prone selection rather than failing the start.
	var exclude []string
	if playerKey != "" {
		history, err := s.progressRepo.GetRecentBaseIDs(ctx, nil, playerKey)
		if err != nil {
			s.log.Warn("Failed to load recent-answer history", "player_key", playerKey, "error", err)
		} else {
			exclude = history
		}
	}

	questionIDs, err := s.selector.Select(ctx, locale, level, s.cfg.QuestionsPerPhase, exclude)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &types.QuizSession{
		SessionID:   uuid.NewString(),
		PlayerKey:   playerKey,
		Locale:      locale,
		PhaseNumber: phaseNumber,
		Level:       level,
		State:       types.SessionActive,
		QuestionIDs: questionIDs,
		Answers:     []types.AnswerOutcome{},
		StartedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionTTL()),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.emit(TelemetryEvent{
		Type:      EventSessionStarted,
		SessionID: rec.SessionID,
		PlayerKey: rec.PlayerKey,
		Data: map[string]interface{}{
			"locale":          rec.Locale,
			"phase_number":    rec.PhaseNumber,
			"total_questions": len(rec.QuestionIDs),
		},
	})
	return rec, nil
}

// Get is a read-only projection and never mutates the record, so a session
// past its deadline still reads back in its stored state until an engine
// operation or the sweeper expires it.
func (s *sessionService) Get(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	rec, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *sessionService) CurrentQuestion(ctx context.Context, sessionID string) (*QuestionView, error) {
	rec, err := s.loadLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State != types.SessionActive {
		return nil, ErrSessionClosed
	}
	if rec.CurrentIndex >= len(rec.QuestionIDs) {
		return nil, ErrNoMoreQuestions
	}

	baseID := rec.QuestionIDs[rec.CurrentIndex]
	question, err := s.questionRepo.GetByBaseID(ctx, nil, baseID, rec.Locale)
	if err != nil {
		return nil, fmt.Errorf("load question %s/%s: %w", baseID, rec.Locale, err)
	}
	options, err := decodeOptions(question.Options)
	if err != nil {
		return nil, fmt.Errorf("decode options for question %s: %w", baseID, err)
	}

	return &QuestionView{
		QuestionBaseID: question.BaseID,
		Topic:          question.Topic,
		Level:          question.Level,
		Options:        options,
		Index:          rec.CurrentIndex,
		TotalQuestions: len(rec.QuestionIDs),
		MediaURL:       question.MediaURL,
	}, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID string, questionIndex, selectedOption int, timeRemainingMs int64) (*AnswerResult, error) {
	rec, err := s.loadLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return nil, ErrSessionClosed
	}
	if rec.State == types.SessionPaused {
		return nil, ErrInvalidTransition
	}
	if err := checkAnswerIndex(rec, questionIndex); err != nil {
		return nil, err
	}

	// The content read stays outside the CAS loop so a mutation never blocks
	// on an external call mid-transaction.
	baseID := rec.QuestionIDs[questionIndex]
	question, err := s.questionRepo.GetByBaseID(ctx, nil, baseID, rec.Locale)
	if err != nil {
		return nil, fmt.Errorf("load question %s/%s: %w", baseID, rec.Locale, err)
	}
	correct := selectedOption == question.CorrectIndex

	var breakdown ScoreBreakdown
	next, err := s.mutate(ctx, sessionID, func(r *types.QuizSession) error {
		if r.State.Terminal() {
			return ErrSessionClosed
		}
		if r.State == types.SessionPaused {
			return ErrInvalidTransition
		}
		if s.now().After(r.ExpiresAt) {
			return ErrSessionExpired
		}
		if err := checkAnswerIndex(r, questionIndex); err != nil {
			return err
		}

		breakdown = Score(s.cfg.Scoring, question.Level, timeRemainingMs, correct, r.Streak)
		r.Answers = append(r.Answers, types.AnswerOutcome{
			QuestionBaseID:  baseID,
			SelectedOption:  selectedOption,
			Correct:         correct,
			PointsAwarded:   breakdown.TotalPoints,
			TimeRemainingMs: timeRemainingMs,
		})
		r.Score += breakdown.TotalPoints
		if correct {
			r.Streak++
		} else {
			r.Streak = 0
		}
		r.CurrentIndex++
		if r.CurrentIndex == len(r.QuestionIDs) {
			r.State = types.SessionFinished
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(TelemetryEvent{
		Type:      EventAnswerSubmitted,
		SessionID: next.SessionID,
		PlayerKey: next.PlayerKey,
		Data: map[string]interface{}{
			"question_base_id": baseID,
			"correct":          correct,
			"points_awarded":   breakdown.TotalPoints,
			"current_index":    next.CurrentIndex,
		},
	})
	if next.State == types.SessionFinished {
		s.emitTerminal(EventSessionFinished, next)
	}

	return &AnswerResult{
		Correct:        correct,
		Breakdown:      breakdown,
		Explanation:    question.ExplanationMD,
		NewScore:       next.Score,
		NewStreak:      next.Streak,
		IsLastQuestion: next.CurrentIndex == len(next.QuestionIDs),
		SessionState:   next.State,
	}, nil
}

func (s *sessionService) Pause(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	rec, err := s.loadLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return nil, ErrSessionClosed
	}

	next, err := s.mutate(ctx, sessionID, func(r *types.QuizSession) error {
		if r.State.Terminal() {
			return ErrSessionClosed
		}
		if r.State != types.SessionActive {
			return ErrInvalidTransition
		}
		if s.now().After(r.ExpiresAt) {
			return ErrSessionExpired
		}
		pausedAt := s.now().UTC()
		r.State = types.SessionPaused
		r.PausedAt = &pausedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(TelemetryEvent{Type: EventSessionPaused, SessionID: next.SessionID, PlayerKey: next.PlayerKey})
	return next, nil
}

func (s *sessionService) Resume(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	rec, err := s.loadLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return nil, ErrSessionClosed
	}

	next, err := s.mutate(ctx, sessionID, func(r *types.QuizSession) error {
		if r.State.Terminal() {
			return ErrSessionClosed
		}
		if r.State != types.SessionPaused {
			return ErrInvalidTransition
		}
		if s.now().After(r.ExpiresAt) {
			return ErrSessionExpired
		}
		r.State = types.SessionActive
		r.PausedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(TelemetryEvent{Type: EventSessionResumed, SessionID: next.SessionID, PlayerKey: next.PlayerKey})
	return next, nil
}

func (s *sessionService) Finish(ctx context.Context, sessionID, reason string) (*types.QuizSession, error) {
	if reason != FinishReasonCompleted && reason != FinishReasonAbandoned {
		return nil, fmt.Errorf("invalid finish reason %q", reason)
	}

	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Finishing twice is a no-op: client retries after a network blip land here.
	if rec.State == types.SessionFinished {
		return rec, nil
	}
	if rec.State == types.SessionExpired {
		return nil, ErrSessionClosed
	}

	next, err := s.mutate(ctx, sessionID, func(r *types.QuizSession) error {
		if r.State == types.SessionFinished {
			return errAlreadyFinished
		}
		if r.State == types.SessionExpired {
			return ErrSessionClosed
		}
		r.State = types.SessionFinished
		r.Abandoned = reason == FinishReasonAbandoned || r.CurrentIndex < len(r.QuestionIDs)
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyFinished) {
			return s.Get(ctx, sessionID)
		}
		return nil, err
	}

	s.emitTerminal(EventSessionFinished, next)
	return next, nil
}

// SweepExpired reads a snapshot of session ids and CAS-expires each overdue
// session independently, so it composes with concurrent per-session calls
// without a global lock. Returns how many sessions were transitioned.
func (s *sessionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.sessions.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	swept := 0
	for _, id := range ids {
		rec, err := s.sessions.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			s.log.Warn("Sweep failed to read session", "session_id", id, "error", err)
			continue
		}
		if rec.State.Terminal() || !now.After(rec.ExpiresAt) {
			continue
		}
		if _, err := s.expire(ctx, id); err != nil {
			// A concurrent operation beat us to the record; it is either
			// terminal now or the next sweep catches it.
			if errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrConflict) || errors.Is(err, ErrSessionNotFound) {
				continue
			}
			s.log.Warn("Sweep failed to expire session", "session_id", id, "error", err)
			continue
		}
		swept++
	}
	if swept > 0 {
		s.log.Info("Expired overdue sessions", "count", swept)
	}
	return swept, nil
}

var errAlreadyFinished = errors.New("already finished")

// loadLive fetches the session and lazily expires it when the deadline has
// passed, returning ErrSessionExpired after committing the transition.
func (s *sessionService) loadLive(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return rec, nil
	}
	if s.now().After(rec.ExpiresAt) {
		if _, err := s.expire(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionClosed) {
			return nil, err
		}
		return nil, ErrSessionExpired
	}
	return rec, nil
}

func (s *sessionService) expire(ctx context.Context, sessionID string) (*types.QuizSession, error) {
	next, err := s.mutate(ctx, sessionID, func(r *types.QuizSession) error {
		if r.State.Terminal() {
			return ErrSessionClosed
		}
		r.State = types.SessionExpired
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitTerminal(EventSessionExpired, next)
	return next, nil
}

// mutate runs the read -> clone -> apply -> compare-and-swap loop. Bounded
// retries keep a hot session from spinning; exhaustion surfaces ErrConflict.
func (s *sessionService) mutate(ctx context.Context, sessionID string, apply func(r *types.QuizSession) error) (*types.QuizSession, error) {
	for attempt := 0; attempt < sessionCasRetries; attempt++ {
		rec, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, err
		}

		next := rec.Clone()
		if err := apply(next); err != nil {
			return nil, err
		}

		err = s.sessions.CompareAndSwap(ctx, sessionID, rec.Version, next)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return nil, ErrConflict
}

func checkAnswerIndex(rec *types.QuizSession, questionIndex int) error {
	if rec.CurrentIndex >= len(rec.QuestionIDs) {
		return ErrNoMoreQuestions
	}
	if questionIndex < rec.CurrentIndex {
		return ErrAlreadyAnswered
	}
	if questionIndex > rec.CurrentIndex {
		return ErrInvalidTransition
	}
	return nil
}

func (s *sessionService) emit(evt TelemetryEvent) {
	if s.telemetry != nil {
		s.telemetry.Emit(evt)
	}
}

func (s *sessionService) emitTerminal(eventType string, rec *types.QuizSession) {
	answered := make([]string, 0, len(rec.Answers))
	for _, a := range rec.Answers {
		answered = append(answered, a.QuestionBaseID)
	}
	s.emit(TelemetryEvent{
		Type:            eventType,
		SessionID:       rec.SessionID,
		PlayerKey:       rec.PlayerKey,
		AnsweredBaseIDs: answered,
		Data: map[string]interface{}{
			"score":          rec.Score,
			"answered_count": len(rec.Answers),
			"abandoned":      rec.Abandoned,
		},
	})
}

func decodeOptions(raw []byte) ([]string, error) {
	var options []string
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, err
	}
	return options, nil
}
