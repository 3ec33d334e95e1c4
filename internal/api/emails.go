package api

import (
	"net/http"
	"strings"

	"github.com/nyashahama/decision-compass-backend/internal/email"
	"github.com/nyashahama/decision-compass-backend/internal/flow"
)

// ─── POST /api/session/:sessionID/email ──────────────────────────────────────

type emailReportRequest struct {
	To string `json:"to"`
}

// handleEmailReport sends the finished report to the given address. Only
// valid once the session has reached the result stage.
func (s *Server) handleEmailReport(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		respondErr(w, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}

	sess := sessionFrom(r)

	var req emailReportRequest
	if !decode(w, r, &req) {
		return
	}
	to := strings.TrimSpace(req.To)
	if to == "" || !strings.Contains(to, "@") {
		respondErr(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	state := sess.Snapshot()
	if state.Stage != flow.StageResult || state.Analysis == nil {
		respondErr(w, http.StatusConflict, "no report available yet")
		return
	}

	err := s.mailer.SendReport(r.Context(), email.ReportParams{
		To:     to,
		Topic:  state.Topic,
		Result: *state.Analysis,
	})
	if err != nil {
		s.logger.Error("email send failed",
			"session_id", sess.ID,
			"error", err,
		)
		respondErr(w, http.StatusBadGateway, "failed to send the report email")
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "sent"})
}
