// Package decision holds the domain types shared by the AI gateway, the
// flow state machine, and the HTTP layer. It has no dependencies on any
// of them.
package decision

import "fmt"

// Bounds enforced on model output. The model is instructed to stay inside
// them, but nothing the model says is trusted — see Validate methods.
const (
	MinQuestions = 5
	MaxQuestions = 20

	MinOptions = 3
	MaxOptions = 4

	MinScore = 1
	MaxScore = 100
)

// Question is one multiple-choice diagnostic question. IDs are assigned
// sequentially from 1 by the gateway after parsing and never change
// afterwards — any id the model supplied is discarded.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// AnswerMap maps Question.ID to the selected option string. An unanswered
// question is simply an absent key. At most one answer per question.
type AnswerMap map[int]string

// Alternative is a secondary path the analysis surfaced alongside the
// primary recommendation.
type Alternative struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	WhyThis string `json:"whyThis"`
}

// AnalysisResult is the structured recommendation report.
type AnalysisResult struct {
	FinalRecommendation string        `json:"finalRecommendation"`
	Summary             string        `json:"summary"`
	Reasoning           []string      `json:"reasoning"`
	Pros                []string      `json:"pros"`
	Cons                []string      `json:"cons"`
	NextSteps           []string      `json:"nextSteps"`
	Score               int           `json:"score"`
	Alternatives        []Alternative `json:"alternatives"`

	// RefinedInsight is set only on analyses that incorporated an
	// additional user consideration.
	RefinedInsight string `json:"refinedInsight,omitempty"`
}

// Validate checks a single question against the option-count bound and
// non-empty text. It does not check the id — ids are the gateway's job.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %d: empty text", q.ID)
	}
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("question %d: %d options, want %d-%d", q.ID, n, MinOptions, MaxOptions)
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("question %d: option %d is empty", q.ID, i+1)
		}
	}
	return nil
}

// ValidateQuestions checks the full generated set: count in [5,20], each
// question valid, ids exactly 1..n in order.
func ValidateQuestions(qs []Question) error {
	if n := len(qs); n < MinQuestions || n > MaxQuestions {
		return fmt.Errorf("%d questions, want %d-%d", n, MinQuestions, MaxQuestions)
	}
	for i, q := range qs {
		if q.ID != i+1 {
			return fmt.Errorf("question at position %d has id %d, want %d", i, q.ID, i+1)
		}
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the report invariants: a non-empty recommendation,
// score in [1,100], and a non-nil alternatives slice (possibly empty).
func (a AnalysisResult) Validate() error {
	if a.FinalRecommendation == "" {
		return fmt.Errorf("empty finalRecommendation")
	}
	if a.Score < MinScore || a.Score > MaxScore {
		return fmt.Errorf("score %d out of range %d-%d", a.Score, MinScore, MaxScore)
	}
	if a.Alternatives == nil {
		return fmt.Errorf("alternatives missing")
	}
	return nil
}

// HasAlternative reports whether the result surfaced an alternative with
// the given title.
func (a AnalysisResult) HasAlternative(title string) bool {
	for _, alt := range a.Alternatives {
		if alt.Title == title {
			return true
		}
	}
	return false
}
