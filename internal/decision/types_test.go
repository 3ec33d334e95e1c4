package decision

import (
	"fmt"
	"testing"
)

func validQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			ID:      i + 1,
			Text:    fmt.Sprintf("질문 %d", i+1),
			Options: []string{"예", "아니오", "모르겠다"},
		}
	}
	return qs
}

func TestValidateQuestions(t *testing.T) {
	if err := ValidateQuestions(validQuestions(5)); err != nil {
		t.Errorf("5 questions: %v", err)
	}
	if err := ValidateQuestions(validQuestions(20)); err != nil {
		t.Errorf("20 questions: %v", err)
	}
	if err := ValidateQuestions(validQuestions(4)); err == nil {
		t.Error("4 questions accepted")
	}
	if err := ValidateQuestions(validQuestions(21)); err == nil {
		t.Error("21 questions accepted")
	}

	// IDs must be exactly 1..n.
	qs := validQuestions(5)
	qs[2].ID = 7
	if err := ValidateQuestions(qs); err == nil {
		t.Error("gap in question ids accepted")
	}
}

func TestQuestionValidate_OptionBounds(t *testing.T) {
	q := Question{ID: 1, Text: "t", Options: []string{"a", "b"}}
	if err := q.Validate(); err == nil {
		t.Error("2 options accepted")
	}
	q.Options = []string{"a", "b", "c", "d", "e"}
	if err := q.Validate(); err == nil {
		t.Error("5 options accepted")
	}
	q.Options = []string{"a", "b", "c", "d"}
	if err := q.Validate(); err != nil {
		t.Errorf("4 options: %v", err)
	}
}

func TestAnalysisResultValidate(t *testing.T) {
	ok := AnalysisResult{
		FinalRecommendation: "이직한다",
		Score:               50,
		Alternatives:        []Alternative{},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid result: %v", err)
	}

	for _, score := range []int{0, 101, -5} {
		r := ok
		r.Score = score
		if err := r.Validate(); err == nil {
			t.Errorf("score %d accepted", score)
		}
	}

	r := ok
	r.FinalRecommendation = ""
	if err := r.Validate(); err == nil {
		t.Error("empty recommendation accepted")
	}

	r = ok
	r.Alternatives = nil
	if err := r.Validate(); err == nil {
		t.Error("nil alternatives accepted")
	}
}

func TestHasAlternative(t *testing.T) {
	r := AnalysisResult{
		Alternatives: []Alternative{{Title: "B안"}, {Title: "C안"}},
	}
	if !r.HasAlternative("B안") {
		t.Error("B안 not found")
	}
	if r.HasAlternative("D안") {
		t.Error("D안 reported present")
	}
}
