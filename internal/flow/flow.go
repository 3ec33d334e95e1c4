// Package flow implements the per-session state machine that drives a
// user from topic submission through question answering to the analysis
// report. It owns all session-local state; the HTTP layer only calls
// Controller operations and renders the returned State snapshot.
package flow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/decision-compass-backend/internal/ai"
	"github.com/nyashahama/decision-compass-backend/internal/decision"
)

// Stage is the named phase of a session.
type Stage string

const (
	StageStart      Stage = "start"
	StageGenerating Stage = "generating_questions"
	StageAnswering  Stage = "answering"
	StageAnalyzing  Stage = "analyzing"
	StageResult     Stage = "result"
)

// State is the full session state tuple. It is replaced wholesale on
// reset rather than cleared field by field, which keeps the single-actor
// invariant auditable: every mutation site assigns through the session's
// commit path.
type State struct {
	Stage           Stage
	Topic           string
	Questions       []decision.Question
	Answers         decision.AnswerMap
	CurrentIndex    int
	Analysis        *decision.AnalysisResult
	AdditionalInput string

	// ErrKind/ErrMessage describe the last gateway failure, if any.
	// Cleared at the start of every upstream call.
	ErrKind    ai.FailureKind
	ErrMessage string
}

func newState() State {
	return State{
		Stage:   StageStart,
		Answers: decision.AnswerMap{},
	}
}

// clearErr wipes the recorded failure in place.
func (st *State) clearErr() {
	st.ErrKind = ""
	st.ErrMessage = ""
}

// setErr records a gateway failure for the presentation layer. The
// message is the user-facing mapping of the kind — raw error text never
// reaches the client.
func (st *State) setErr(err error) {
	kind := ai.KindOf(err)
	st.ErrKind = kind
	st.ErrMessage = kind.UserMessage()
}

// Session is one user's in-memory session. All fields behind mu are
// accessed only through Controller operations and Snapshot.
type Session struct {
	ID        uuid.UUID
	Token     string
	CreatedAt time.Time

	mu    sync.Mutex
	state State

	// inFlight guards against re-entrant upstream calls: exactly one
	// generation/analysis call may be outstanding per session.
	inFlight bool

	// epoch is bumped on every reset. An upstream result is committed
	// only if the epoch still matches the value captured before the
	// network call, so a stale result arriving after a reset (or after
	// a newer call issued post-reset) is dropped.
	epoch uint64

	lastActive time.Time
}

// NewSession returns a session at StageStart.
func NewSession(id uuid.UUID, token string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Token:      token,
		CreatedAt:  now,
		state:      newState(),
		lastActive: now,
	}
}

// Snapshot returns a copy of the current state safe to hand to the
// encoder. The answer map is copied because RecordAnswer mutates it;
// questions and the analysis pointer are immutable once set.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.copy()
}

func (st State) copy() State {
	out := st
	out.Answers = make(decision.AnswerMap, len(st.Answers))
	for k, v := range st.Answers {
		out.Answers[k] = v
	}
	return out
}

// LastActive reports the last time an operation touched this session.
// Used by the session janitor to sweep idle sessions.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}
