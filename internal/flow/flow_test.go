package flow_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/nyashahama/decision-compass-backend/internal/ai"
	"github.com/nyashahama/decision-compass-backend/internal/decision"
	"github.com/nyashahama/decision-compass-backend/internal/flow"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubAdvisor satisfies ai.Advisor with canned responses. Error fields may
// be swapped mid-test to simulate transient upstream failures.
type stubAdvisor struct {
	questions    []decision.Question
	questionsErr error
	analysis     decision.AnalysisResult
	analysisErr  error

	generateCalls int
	analyzeCalls  int
	lastParams    ai.AnalyzeParams
}

func (a *stubAdvisor) GenerateQuestions(_ context.Context, topic string) ([]decision.Question, error) {
	a.generateCalls++
	return a.questions, a.questionsErr
}

func (a *stubAdvisor) AnalyzeDecision(_ context.Context, p ai.AnalyzeParams) (decision.AnalysisResult, error) {
	a.analyzeCalls++
	a.lastParams = p
	return a.analysis, a.analysisErr
}

func fiveQuestions() []decision.Question {
	qs := make([]decision.Question, 5)
	for i := range qs {
		qs[i] = decision.Question{
			ID:      i + 1,
			Text:    "질문",
			Options: []string{"매우 그렇다", "보통이다", "아니다"},
		}
	}
	return qs
}

func sampleAnalysis() decision.AnalysisResult {
	return decision.AnalysisResult{
		FinalRecommendation: "이직한다",
		Summary:             "요약",
		Reasoning:           []string{"r"},
		Pros:                []string{"p"},
		Cons:                []string{"c"},
		NextSteps:           []string{"n"},
		Score:               72,
		Alternatives: []decision.Alternative{
			{Title: "B안", Summary: "s", WhyThis: "w"},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFlow(adv *stubAdvisor) (*flow.Controller, *flow.Session) {
	c := flow.NewController(adv, discardLogger())
	s := flow.NewSession(uuid.New(), "token")
	return c, s
}

// answerAll answers every question and presses next through the set,
// returning the state after the final next (which triggers analysis).
func answerAll(t *testing.T, c *flow.Controller, s *flow.Session) flow.State {
	t.Helper()
	ctx := context.Background()
	state := s.Snapshot()
	for {
		q := state.Questions[state.CurrentIndex]
		var err error
		if _, err = c.RecordAnswer(s, q.ID, q.Options[0]); err != nil {
			t.Fatalf("answer q%d: %v", q.ID, err)
		}
		state, err = c.Next(ctx, s)
		if err != nil {
			t.Fatalf("next after q%d: %v", q.ID, err)
		}
		if state.Stage != flow.StageAnswering {
			return state
		}
	}
}

// ─── HAPPY PATH ──────────────────────────────────────────────────────────────

func TestSubmitTopic_TransitionsToAnswering(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)

	state, err := c.SubmitTopic(context.Background(), s, "이직 여부")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Stage != flow.StageAnswering {
		t.Fatalf("stage = %v, want %v", state.Stage, flow.StageAnswering)
	}
	if state.CurrentIndex != 0 {
		t.Errorf("currentIndex = %d, want 0", state.CurrentIndex)
	}
	if len(state.Questions) != 5 {
		t.Errorf("questions = %d, want 5", len(state.Questions))
	}
	if state.Topic != "이직 여부" {
		t.Errorf("topic = %q", state.Topic)
	}
}

func TestFullFlow_AnswerAllThenAnalyze(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state := answerAll(t, c, s)

	if state.Stage != flow.StageResult {
		t.Fatalf("stage = %v, want %v", state.Stage, flow.StageResult)
	}
	if state.Analysis == nil || state.Analysis.FinalRecommendation != "이직한다" {
		t.Errorf("analysis = %+v", state.Analysis)
	}
	if adv.analyzeCalls != 1 {
		t.Errorf("analyze calls = %d, want 1", adv.analyzeCalls)
	}
	if len(adv.lastParams.Answers) != 5 {
		t.Errorf("analysis saw %d answers, want 5", len(adv.lastParams.Answers))
	}
}

// ─── GENERATION FAILURE ──────────────────────────────────────────────────────

func TestSubmitTopic_FailureReturnsToStart(t *testing.T) {
	adv := &stubAdvisor{questionsErr: &ai.Error{Kind: ai.KindOverloaded}}
	c, s := newTestFlow(adv)

	state, err := c.SubmitTopic(context.Background(), s, "이직 여부")
	if err != nil {
		t.Fatalf("protocol error not expected: %v", err)
	}
	if state.Stage != flow.StageStart {
		t.Errorf("stage = %v, want %v", state.Stage, flow.StageStart)
	}
	if state.ErrKind != ai.KindOverloaded {
		t.Errorf("errKind = %v, want %v", state.ErrKind, ai.KindOverloaded)
	}
	if state.ErrMessage == "" {
		t.Error("expected a user-facing error message")
	}
}

func TestSubmitTopic_EmptyTopicRejected(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "   "); err != flow.ErrEmptyTopic {
		t.Fatalf("err = %v, want ErrEmptyTopic", err)
	}
	if adv.generateCalls != 0 {
		t.Errorf("gateway must not be called for empty topic")
	}
}

// ─── ANSWERING NAVIGATION ────────────────────────────────────────────────────

func TestNext_RequiresAnswerForCurrentQuestion(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.Next(ctx, s); err != flow.ErrUnanswered {
		t.Fatalf("err = %v, want ErrUnanswered", err)
	}
}

func TestPrev_FlooredAtZero(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state, err := c.Prev(s)
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	if state.CurrentIndex != 0 {
		t.Errorf("currentIndex = %d, want 0", state.CurrentIndex)
	}
}

func TestRecordAnswer_RejectsUnknownQuestionAndOption(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.RecordAnswer(s, 99, "매우 그렇다"); err != flow.ErrUnknownQuestion {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
	if _, err := c.RecordAnswer(s, 1, "없는 보기"); err != flow.ErrInvalidOption {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
}

func TestRecordAnswer_OverwritesPriorSelection(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions()}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.RecordAnswer(s, 1, "매우 그렇다"); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	state, err := c.RecordAnswer(s, 1, "아니다")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if state.Answers[1] != "아니다" {
		t.Errorf("answer = %q, want overwrite", state.Answers[1])
	}
}

// ─── ANALYSIS FAILURE KEEPS ANSWERS ──────────────────────────────────────────

func TestAnalysisFailure_StaysInAnalyzingWithAnswersIntact(t *testing.T) {
	adv := &stubAdvisor{
		questions:   fiveQuestions(),
		analysisErr: &ai.Error{Kind: ai.KindQuota},
	}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state := answerAll(t, c, s)

	if state.Stage != flow.StageAnalyzing {
		t.Fatalf("stage = %v, want %v (not reverted to answering)", state.Stage, flow.StageAnalyzing)
	}
	if len(state.Answers) != 5 {
		t.Fatalf("answers lost on failure: %d left", len(state.Answers))
	}
	if state.ErrKind != ai.KindQuota {
		t.Errorf("errKind = %v, want %v", state.ErrKind, ai.KindQuota)
	}

	// One-click retry after the quota clears.
	adv.analysisErr = nil
	adv.analysis = sampleAnalysis()
	retried, err := c.RetryAnalysis(context.Background(), s)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Stage != flow.StageResult {
		t.Errorf("stage after retry = %v, want %v", retried.Stage, flow.StageResult)
	}
	if retried.ErrKind != "" {
		t.Errorf("error not cleared after successful retry: %v", retried.ErrKind)
	}
}

// ─── REFINEMENT ──────────────────────────────────────────────────────────────

func TestRefine_ReplacesAnalysisKeepsQuestionsAndAnswers(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answerAll(t, c, s)

	refined := sampleAnalysis()
	refined.Score = 85
	refined.RefinedInsight = "거리를 우선하면 현 직장 유지가 유리합니다"
	adv.analysis = refined

	state, err := c.Refine(ctx, s, "거리가 더 중요해요")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if state.Analysis.RefinedInsight == "" {
		t.Error("refinedInsight not set")
	}
	if state.Analysis.Score != 85 {
		t.Errorf("score = %d, want replaced value 85", state.Analysis.Score)
	}
	if len(state.Questions) != 5 || len(state.Answers) != 5 {
		t.Error("questions/answers must be unchanged by refinement")
	}
	if adv.lastParams.AdditionalInput != "거리가 더 중요해요" {
		t.Errorf("gateway saw additionalInput = %q", adv.lastParams.AdditionalInput)
	}
}

func TestRefine_FailureRetainsPriorAnalysis(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answerAll(t, c, s)

	adv.analysisErr = &ai.Error{Kind: ai.KindOverloaded}
	state, err := c.Refine(ctx, s, "거리가 더 중요해요")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if state.Stage != flow.StageResult {
		t.Errorf("stage = %v, want %v", state.Stage, flow.StageResult)
	}
	if state.Analysis == nil || state.Analysis.FinalRecommendation != "이직한다" {
		t.Error("prior analysis must be retained on refine failure")
	}
	if state.ErrKind != ai.KindOverloaded {
		t.Errorf("errKind = %v", state.ErrKind)
	}
}

func TestSelectAlternative_RetargetsRecommendation(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answerAll(t, c, s)

	switched := sampleAnalysis()
	switched.FinalRecommendation = "B안"
	adv.analysis = switched

	state, err := c.SelectAlternative(ctx, s, "B안")
	if err != nil {
		t.Fatalf("select alternative: %v", err)
	}
	if state.Analysis.FinalRecommendation != "B안" {
		t.Errorf("finalRecommendation = %q, want B안", state.Analysis.FinalRecommendation)
	}
	if adv.lastParams.TargetAlternative != "B안" {
		t.Errorf("gateway saw targetAlternative = %q", adv.lastParams.TargetAlternative)
	}
}

func TestSelectAlternative_UnknownTitleRejected(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answerAll(t, c, s)

	if _, err := c.SelectAlternative(ctx, s, "없는 안"); err != flow.ErrUnknownAlternative {
		t.Fatalf("err = %v, want ErrUnknownAlternative", err)
	}
}

// ─── RESET AND STALE RESULTS ─────────────────────────────────────────────────

func TestReset_WipesEverything(t *testing.T) {
	adv := &stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()}
	c, s := newTestFlow(adv)

	if _, err := c.SubmitTopic(context.Background(), s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answerAll(t, c, s)

	state := c.Reset(s)
	if state.Stage != flow.StageStart {
		t.Errorf("stage = %v, want %v", state.Stage, flow.StageStart)
	}
	if state.Topic != "" || len(state.Questions) != 0 || len(state.Answers) != 0 || state.Analysis != nil {
		t.Errorf("state not fully wiped: %+v", state)
	}
}

// blockingAdvisor lets the test hold an analysis call open while the
// session is reset underneath it.
type blockingAdvisor struct {
	stubAdvisor
	release chan struct{}
	entered chan struct{}
}

func (a *blockingAdvisor) AnalyzeDecision(ctx context.Context, p ai.AnalyzeParams) (decision.AnalysisResult, error) {
	close(a.entered)
	<-a.release
	return a.stubAdvisor.AnalyzeDecision(ctx, p)
}

func TestReset_StaleAnalysisResultIsDropped(t *testing.T) {
	adv := &blockingAdvisor{
		stubAdvisor: stubAdvisor{questions: fiveQuestions(), analysis: sampleAnalysis()},
		release:     make(chan struct{}),
		entered:     make(chan struct{}),
	}
	c := flow.NewController(adv, discardLogger())
	s := flow.NewSession(uuid.New(), "token")
	ctx := context.Background()

	if _, err := c.SubmitTopic(ctx, s, "이직 여부"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state := s.Snapshot()
	for i := range state.Questions {
		if _, err := c.RecordAnswer(s, state.Questions[i].ID, state.Questions[i].Options[0]); err != nil {
			t.Fatalf("answer: %v", err)
		}
		if i < len(state.Questions)-1 {
			if _, err := c.Next(ctx, s); err != nil {
				t.Fatalf("next: %v", err)
			}
		}
	}

	done := make(chan flow.State, 1)
	go func() {
		final, _ := c.Next(ctx, s)
		done <- final
	}()

	<-adv.entered
	c.Reset(s)
	close(adv.release)
	<-done

	// The analysis completed after the reset; its result must not have
	// been committed into the fresh session.
	state = s.Snapshot()
	if state.Stage != flow.StageStart {
		t.Errorf("stage = %v, want %v", state.Stage, flow.StageStart)
	}
	if state.Analysis != nil {
		t.Error("stale analysis result was committed after reset")
	}
}
