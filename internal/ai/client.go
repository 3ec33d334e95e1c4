// Package ai defines the interface for AI-driven question generation and
// decision analysis, and provides a Gemini-backed implementation with
// schema-constrained output and bounded retry.
package ai

import (
	"context"

	"github.com/nyashahama/decision-compass-backend/internal/decision"
)

// AnalyzeParams carries everything the analysis prompt needs.
type AnalyzeParams struct {
	// Topic is the user's original decision statement.
	Topic string

	// Questions is the full generated question set, in id order.
	Questions []decision.Question

	// Answers maps question id → chosen option. Missing entries are
	// rendered into the prompt as an explicit "no answer" marker rather
	// than silently skipped.
	Answers decision.AnswerMap

	// AdditionalInput is an optional free-text consideration supplied on
	// a refinement pass. When set, the model is asked to produce a
	// refinedInsight reflecting it.
	AdditionalInput string

	// TargetAlternative, when set, instructs the model to make this
	// previously surfaced alternative the primary recommendation.
	TargetAlternative string
}

// Advisor is the interface the flow controller uses to reach the
// generative model. The concrete implementation lives in gemini.go.
// Tests inject a stub that returns canned responses.
type Advisor interface {
	// GenerateQuestions asks the model for 5-20 multiple-choice
	// diagnostic questions about the topic, each with 3-4 options.
	// Returned ids are always exactly 1..n regardless of what the model
	// emitted. The caller must pass a non-empty topic.
	GenerateQuestions(ctx context.Context, topic string) ([]decision.Question, error)

	// AnalyzeDecision produces the structured recommendation report for
	// a completed (or partially completed) question set.
	AnalyzeDecision(ctx context.Context, p AnalyzeParams) (decision.AnalysisResult, error)
}
