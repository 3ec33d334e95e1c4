// Package email defines the interface for transactional email delivery
// and provides a Resend-backed implementation.
package email

import (
	"context"

	"github.com/nyashahama/decision-compass-backend/internal/decision"
)

// ReportParams holds the data needed to email a finished decision report.
type ReportParams struct {
	To     string // recipient email address
	Topic  string // the decision topic; used in the subject line
	Result decision.AnalysisResult
}

// Sender is the interface the HTTP layer uses to send email. Tests inject
// a stub that records calls without hitting the network.
type Sender interface {
	// SendReport delivers the analysis report. Called from the email
	// handler once a session has reached the result stage.
	SendReport(ctx context.Context, p ReportParams) error
}
