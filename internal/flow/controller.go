package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nyashahama/decision-compass-backend/internal/ai"
	"github.com/nyashahama/decision-compass-backend/internal/decision"
)

// Protocol errors. These mean the client called an operation the current
// stage does not permit — the HTTP layer maps them to 4xx. Gateway
// failures never surface this way; they are recorded in the state.
var (
	ErrBusy               = errors.New("flow: another call is already in flight")
	ErrWrongStage         = errors.New("flow: operation not valid in current stage")
	ErrEmptyTopic         = errors.New("flow: topic must not be empty")
	ErrEmptyInput         = errors.New("flow: refinement text must not be empty")
	ErrUnknownQuestion    = errors.New("flow: no question with that id")
	ErrInvalidOption      = errors.New("flow: option is not one of the question's choices")
	ErrUnanswered         = errors.New("flow: answer the current question before moving on")
	ErrUnknownAlternative = errors.New("flow: no alternative with that title")
)

// Controller executes flow operations against a Session using the AI
// gateway. It holds no per-session state itself, so one Controller serves
// every session.
type Controller struct {
	advisor ai.Advisor
	logger  *slog.Logger
}

func NewController(advisor ai.Advisor, logger *slog.Logger) *Controller {
	return &Controller{advisor: advisor, logger: logger}
}

// ─── START → GENERATING → ANSWERING ──────────────────────────────────────────

// SubmitTopic accepts the decision topic and generates the question set.
// On gateway failure the session returns to StageStart with the error
// attached — no user work is lost because none existed yet.
func (c *Controller) SubmitTopic(ctx context.Context, s *Session, topic string) (State, error) {
	topic = strings.TrimSpace(topic)

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return State{}, ErrBusy
	}
	if s.state.Stage != StageStart {
		s.mu.Unlock()
		return State{}, ErrWrongStage
	}
	if topic == "" {
		s.mu.Unlock()
		return State{}, ErrEmptyTopic
	}
	s.state.Topic = topic
	s.state.Stage = StageGenerating
	s.state.clearErr()
	s.inFlight = true
	s.touchLocked()
	epoch := s.epoch
	s.mu.Unlock()

	questions, err := c.advisor.GenerateQuestions(ctx, topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Session was reset while the call was in flight. The result
		// belongs to a discarded lifecycle — drop it.
		c.logger.Info("flow: dropping stale question set", "session_id", s.ID)
		return s.state.copy(), nil
	}
	s.inFlight = false
	s.touchLocked()

	if err != nil {
		c.logger.Warn("flow: question generation failed", "session_id", s.ID, "error", err)
		s.state.Stage = StageStart
		s.state.setErr(err)
		return s.state.copy(), nil
	}

	s.state.Stage = StageAnswering
	s.state.Questions = questions
	s.state.Answers = decision.AnswerMap{}
	s.state.CurrentIndex = 0
	return s.state.copy(), nil
}

// ─── ANSWERING ───────────────────────────────────────────────────────────────

// RecordAnswer stores the selected option for a question. The stage does
// not change; re-answering an already answered question overwrites it.
func (c *Controller) RecordAnswer(s *Session, questionID int, option string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageAnswering {
		return State{}, ErrWrongStage
	}

	var question *decision.Question
	for i := range s.state.Questions {
		if s.state.Questions[i].ID == questionID {
			question = &s.state.Questions[i]
			break
		}
	}
	if question == nil {
		return State{}, ErrUnknownQuestion
	}

	valid := false
	for _, opt := range question.Options {
		if opt == option {
			valid = true
			break
		}
	}
	if !valid {
		return State{}, ErrInvalidOption
	}

	s.state.Answers[questionID] = option
	s.touchLocked()
	return s.state.copy(), nil
}

// Next advances to the following question, or — when the current
// question is the last one — transitions to StageAnalyzing and runs the
// analysis. Forward navigation requires an answer for the current
// question.
func (c *Controller) Next(ctx context.Context, s *Session) (State, error) {
	s.mu.Lock()
	if s.state.Stage != StageAnswering {
		s.mu.Unlock()
		return State{}, ErrWrongStage
	}
	current := s.state.Questions[s.state.CurrentIndex]
	if _, ok := s.state.Answers[current.ID]; !ok {
		s.mu.Unlock()
		return State{}, ErrUnanswered
	}

	if s.state.CurrentIndex < len(s.state.Questions)-1 {
		s.state.CurrentIndex++
		s.touchLocked()
		snap := s.state.copy()
		s.mu.Unlock()
		return snap, nil
	}

	// Last question answered — enter analysis.
	s.state.Stage = StageAnalyzing
	s.mu.Unlock()
	return c.analyze(ctx, s, analyzeRequest{})
}

// Prev steps back one question, floored at the first.
func (c *Controller) Prev(s *Session) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageAnswering {
		return State{}, ErrWrongStage
	}
	if s.state.CurrentIndex > 0 {
		s.state.CurrentIndex--
	}
	s.touchLocked()
	return s.state.copy(), nil
}

// ─── ANALYZING / RESULT ──────────────────────────────────────────────────────

// RetryAnalysis re-runs a failed analysis. Valid only in StageAnalyzing,
// which is exactly where a failed analysis leaves the session — the
// answer set is the already-paid-for state and is still intact.
func (c *Controller) RetryAnalysis(ctx context.Context, s *Session) (State, error) {
	s.mu.Lock()
	if s.state.Stage != StageAnalyzing {
		s.mu.Unlock()
		return State{}, ErrWrongStage
	}
	s.mu.Unlock()
	return c.analyze(ctx, s, analyzeRequest{})
}

// Refine re-runs the analysis with an additional user consideration. On
// failure the prior result is retained and the error shown alongside it.
func (c *Controller) Refine(ctx context.Context, s *Session, input string) (State, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return State{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.state.Stage != StageResult {
		s.mu.Unlock()
		return State{}, ErrWrongStage
	}
	s.mu.Unlock()
	return c.analyze(ctx, s, analyzeRequest{additionalInput: input})
}

// SelectAlternative re-runs the analysis asking the model to make a
// previously surfaced alternative the primary recommendation.
func (c *Controller) SelectAlternative(ctx context.Context, s *Session, title string) (State, error) {
	s.mu.Lock()
	if s.state.Stage != StageResult {
		s.mu.Unlock()
		return State{}, ErrWrongStage
	}
	if s.state.Analysis == nil || !s.state.Analysis.HasAlternative(title) {
		s.mu.Unlock()
		return State{}, ErrUnknownAlternative
	}
	s.mu.Unlock()
	return c.analyze(ctx, s, analyzeRequest{targetAlternative: title})
}

// Reset wipes the session back to StageStart. Allowed from any stage,
// including while a call is in flight — the epoch bump guarantees the
// in-flight result is dropped when it eventually arrives.
func (c *Controller) Reset(s *Session) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.inFlight = false
	s.state = newState()
	s.touchLocked()
	return s.state.copy()
}

// ─── SHARED ANALYSIS PATH ────────────────────────────────────────────────────

type analyzeRequest struct {
	additionalInput   string
	targetAlternative string
}

// analyze runs one AnalyzeDecision call under the single-flight guard.
// The failure handling is stage-dependent and deliberately asymmetric:
// entering from StageAnalyzing a failure keeps the session in
// StageAnalyzing (one-click retry, answers intact); entering from
// StageResult a failure keeps the prior analysis on screen.
func (c *Controller) analyze(ctx context.Context, s *Session, req analyzeRequest) (State, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return State{}, ErrBusy
	}
	s.inFlight = true
	s.state.clearErr()
	s.touchLocked()
	epoch := s.epoch

	params := ai.AnalyzeParams{
		Topic:             s.state.Topic,
		Questions:         s.state.Questions,
		Answers:           s.state.copy().Answers,
		AdditionalInput:   req.additionalInput,
		TargetAlternative: req.targetAlternative,
	}
	s.mu.Unlock()

	result, err := c.advisor.AnalyzeDecision(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		c.logger.Info("flow: dropping stale analysis result", "session_id", s.ID)
		return s.state.copy(), nil
	}
	s.inFlight = false
	s.touchLocked()

	if err != nil {
		c.logger.Warn("flow: analysis failed",
			"session_id", s.ID,
			"kind", ai.KindOf(err),
			"error", err,
		)
		s.state.setErr(err)
		return s.state.copy(), nil
	}

	s.state.Stage = StageResult
	s.state.Analysis = &result
	if req.additionalInput != "" {
		s.state.AdditionalInput = req.additionalInput
	}
	return s.state.copy(), nil
}
