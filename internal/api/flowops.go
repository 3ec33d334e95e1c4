package api

import (
	"net/http"
)

// Flow operation handlers. Each decodes its tiny request body, delegates
// to the flow controller, and returns the resulting state snapshot.
// A 200 with an error block inside the state means the upstream AI call
// failed; a 4xx means the client called something the state machine does
// not permit.

// ─── POST /api/session/:sessionID/topic ──────────────────────────────────────

type submitTopicRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleSubmitTopic(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req submitTopicRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := s.flow.SubmitTopic(r.Context(), sess, req.Topic)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/answer ─────────────────────────────────────

type answerRequest struct {
	QuestionID int    `json:"question_id"`
	Option     string `json:"option"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req answerRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := s.flow.RecordAnswer(sess, req.QuestionID, req.Option)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/next ───────────────────────────────────────

// handleNext advances past the current question; on the last question it
// triggers the analysis call and blocks until it resolves.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	state, err := s.flow.Next(r.Context(), sess)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/prev ───────────────────────────────────────

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	state, err := s.flow.Prev(sess)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/retry ──────────────────────────────────────

// handleRetry re-runs a failed analysis. The collected answers are still
// in the session — the whole point of keeping the stage at analyzing on
// failure.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	state, err := s.flow.RetryAnalysis(r.Context(), sess)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/refine ─────────────────────────────────────

type refineRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req refineRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := s.flow.Refine(r.Context(), sess, req.Input)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}

// ─── POST /api/session/:sessionID/alternative ────────────────────────────────

type selectAlternativeRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSelectAlternative(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req selectAlternativeRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := s.flow.SelectAlternative(r.Context(), sess, req.Title)
	if err != nil {
		respondFlowErr(w, err)
		return
	}
	respond(w, http.StatusOK, newStateResponse(sess.ID.String(), state))
}
