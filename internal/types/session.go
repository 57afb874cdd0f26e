package types

import "time"

// SessionState is the explicit state tag of a quiz session. Timestamps on the
// record are auxiliary data and never the state signal.
type SessionState string

const (
	SessionActive   SessionState = "active"
	SessionPaused   SessionState = "paused"
	SessionFinished SessionState = "finished"
	SessionExpired  SessionState = "expired"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SessionState) Terminal() bool {
	return s == SessionFinished || s == SessionExpired
}

// AnswerOutcome is the recorded result of one submitted answer. Append-only.
type AnswerOutcome struct {
	QuestionBaseID  string `json:"question_base_id"`
	SelectedOption  int    `json:"selected_option"`
	Correct         bool   `json:"correct"`
	PointsAwarded   int    `json:"points_awarded"`
	TimeRemainingMs int64  `json:"time_remaining_ms"`
}

// QuizSession is one timed quiz attempt. It lives in the session store keyed
// by SessionID; Version is the compare-and-swap token bumped on every write.
//
// Invariants: len(Answers) == CurrentIndex; 0 <= CurrentIndex <= len(QuestionIDs);
// State == finished implies CurrentIndex == len(QuestionIDs) or Abandoned.
type QuizSession struct {
	SessionID    string          `json:"session_id"`
	PlayerKey    string          `json:"player_key"`
	Locale       string          `json:"locale"`
	PhaseNumber  int             `json:"phase_number"`
	Level        int             `json:"level"`
	State        SessionState    `json:"state"`
	QuestionIDs  []string        `json:"question_ids"`
	CurrentIndex int             `json:"current_index"`
	Answers      []AnswerOutcome `json:"answers"`
	Score        int             `json:"score"`
	Streak       int             `json:"streak"`
	StartedAt    time.Time       `json:"started_at"`
	PausedAt     *time.Time      `json:"paused_at,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Abandoned    bool            `json:"abandoned"`
	Version      int64           `json:"version"`
}

// Clone returns a deep copy safe to mutate before a compare-and-swap.
func (s *QuizSession) Clone() *QuizSession {
	cp := *s
	cp.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	cp.Answers = append([]AnswerOutcome(nil), s.Answers...)
	if s.PausedAt != nil {
		t := *s.PausedAt
		cp.PausedAt = &t
	}
	return &cp
}
