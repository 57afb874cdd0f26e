package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/repos"
	"github.com/quizlab/trivia-backend/internal/types"
)

// Telemetry event types emitted on session lifecycle transitions.
const (
	EventSessionStarted  = "session_started"
	EventAnswerSubmitted = "answer_submitted"
	EventSessionPaused   = "session_paused"
	EventSessionResumed  = "session_resumed"
	EventSessionFinished = "session_finished"
	EventSessionExpired  = "session_expired"
)

type TelemetryEvent struct {
	Type      string
	SessionID string
	PlayerKey string
	// AnsweredBaseIDs rides along on terminal events so the worker can append
	// the player's recent-answer history.
	AnsweredBaseIDs []string
	Data            map[string]interface{}
}

// TelemetryEmitter is the fire-and-forget sink the engine publishes to. A slow
// or failing collaborator never blocks or fails a session transition.
type TelemetryEmitter interface {
	Emit(evt TelemetryEvent)
}

type TelemetryService interface {
	TelemetryEmitter
	Start(ctx context.Context)
	Close()
}

type telemetryService struct {
	log          *logger.Logger
	eventRepo    repos.SessionEventRepo
	progressRepo repos.PlayerProgressRepo
	historyCap   int

	events    chan TelemetryEvent
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}

	// mu orders Emit against Close: senders hold the read lock while the
	// channel is open, Close flips closed under the write lock before closing.
	mu     sync.RWMutex
	closed bool
}

func NewTelemetryService(eventRepo repos.SessionEventRepo, progressRepo repos.PlayerProgressRepo, historyCap int, baseLog *logger.Logger) TelemetryService {
	serviceLog := baseLog.With("service", "TelemetryService")
	return &telemetryService{
		log:          serviceLog,
		eventRepo:    eventRepo,
		progressRepo: progressRepo,
		historyCap:   historyCap,
		events:       make(chan TelemetryEvent, 256),
		done:         make(chan struct{}),
	}
}

// Emit queues the event without blocking. When the buffer is full the event
// is dropped with a warning; telemetry loss must never stall the engine.
// Events emitted during shutdown, after Close, are dropped the same way: a
// sweep racing shutdown must not crash the process.
func (t *telemetryService) Emit(evt TelemetryEvent) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.log.Debug("Telemetry sink closed, dropping event", "type", evt.Type, "session_id", evt.SessionID)
		return
	}
	select {
	case t.events <- evt:
	default:
		t.log.Warn("Telemetry buffer full, dropping event", "type", evt.Type, "session_id", evt.SessionID)
	}
}

func (t *telemetryService) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		go t.run(ctx)
	})
}

// Close stops accepting events and drains what is already queued.
func (t *telemetryService) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.events)
		<-t.done
	})
}

func (t *telemetryService) run(ctx context.Context) {
	defer close(t.done)
	for evt := range t.events {
		t.handle(ctx, evt)
	}
}

func (t *telemetryService) handle(ctx context.Context, evt TelemetryEvent) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var payload datatypes.JSON
	if len(evt.Data) > 0 {
		raw, err := json.Marshal(evt.Data)
		if err != nil {
			t.log.Warn("Failed to marshal telemetry payload", "type", evt.Type, "error", err)
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	row := &types.SessionEvent{
		ID:        uuid.New(),
		SessionID: evt.SessionID,
		PlayerKey: evt.PlayerKey,
		Type:      evt.Type,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := t.eventRepo.Create(writeCtx, nil, []*types.SessionEvent{row}); err != nil {
		t.log.Warn("Failed to persist telemetry event", "type", evt.Type, "session_id", evt.SessionID, "error", err)
	}

	if len(evt.AnsweredBaseIDs) > 0 && evt.PlayerKey != "" {
		if err := t.progressRepo.AppendRecent(writeCtx, nil, evt.PlayerKey, evt.AnsweredBaseIDs, t.historyCap); err != nil {
			t.log.Warn("Failed to append recent-answer history", "session_id", evt.SessionID, "error", err)
		}
	}
}
