package api

import (
	"fmt"
	"net/http"

	"github.com/nyashahama/decision-compass-backend/internal/decision"
	"github.com/nyashahama/decision-compass-backend/internal/flow"
)

// ─── POST /api/session ────────────────────────────────────────────────────────

type createSessionResponse struct {
	SessionID string        `json:"session_id"`
	AnonToken string        `json:"anon_token"`
	State     stateResponse `json:"state"`
}

// handleCreateSession creates an anonymous session for a new visitor.
// Called once when the page first loads.
//
// The anon_token is returned to the browser and stored in sessionStorage.
// It is sent as X-Anon-Token on all subsequent session-scoped requests.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create session: %w", err))
		return
	}

	respond(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID.String(),
		AnonToken: sess.Token,
		State:     newStateResponse(sess.ID.String(), sess.Snapshot()),
	})
}

// ─── GET /api/session/:sessionID/state ───────────────────────────────────────

// handleGetState returns the current state snapshot. The presentation
// layer is purely reactive to this shape.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), sess.Snapshot()))
}

// ─── POST /api/session/:sessionID/reset ──────────────────────────────────────

// handleReset wipes the session back to the start stage. Valid from any
// stage, including mid-call.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	state := s.flow.Reset(sess)
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── DELETE /api/session/:sessionID ──────────────────────────────────────────

// handleDeleteSession drops the session entirely. The token stops
// resolving immediately; a reload gets a fresh session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.sessions.Delete(sess.ID)
	respond(w, http.StatusNoContent, nil)
}

// ─── STATE SNAPSHOT SHAPE ────────────────────────────────────────────────────

// stateResponse is the wire rendering of flow.State.
type stateResponse struct {
	SessionID       string                   `json:"session_id"`
	Stage           flow.Stage               `json:"stage"`
	Topic           string                   `json:"topic,omitempty"`
	Questions       []decision.Question      `json:"questions,omitempty"`
	Answers         decision.AnswerMap       `json:"answers"`
	CurrentIndex    int                      `json:"current_index"`
	TotalQuestions  int                      `json:"total_questions"`
	Analysis        *decision.AnalysisResult `json:"analysis,omitempty"`
	AdditionalInput string                   `json:"additional_input,omitempty"`
	Error           *stateError              `json:"error,omitempty"`
}

type stateError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newStateResponse(sessionID string, st flow.State) stateResponse {
	resp := stateResponse{
		SessionID:       sessionID,
		Stage:           st.Stage,
		Topic:           st.Topic,
		Questions:       st.Questions,
		Answers:         st.Answers,
		CurrentIndex:    st.CurrentIndex,
		TotalQuestions:  len(st.Questions),
		Analysis:        st.Analysis,
		AdditionalInput: st.AdditionalInput,
	}
	if st.ErrKind != "" {
		resp.Error = &stateError{
			Kind:    string(st.ErrKind),
			Message: st.ErrMessage,
		}
	}
	return resp
}
