package ai

import (
	"fmt"
	"strings"
)

// Prompt builders. The structural constraints (count, option range, JSON
// shape) are also enforced by the response schema and re-checked after
// parsing — stating them in the prompt just raises the hit rate.

// questionsPrompt asks for the diagnostic question set.
func questionsPrompt(topic string) string {
	var sb strings.Builder
	sb.WriteString("You are a decision-support assistant.\n")
	fmt.Fprintf(&sb, "The user is facing this decision: %q\n\n", topic)
	sb.WriteString("Produce multiple-choice diagnostic questions that uncover the critical factors of this decision ")
	sb.WriteString("(priorities, constraints, risk tolerance, current situation).\n")
	sb.WriteString("Choose an appropriate number of questions for the complexity of the topic: at least 5, at most 20.\n")
	sb.WriteString("Each question must offer 3 or 4 mutually exclusive options.\n")
	sb.WriteString("Write the questions and options in the same language as the topic.\n")
	return sb.String()
}

// analysisPrompt embeds the topic, the full question/answer transcript
// (one block per question, in question order, with an explicit "no
// answer" marker for gaps), and the optional refinement inputs.
func analysisPrompt(p AnalyzeParams) string {
	var sb strings.Builder
	sb.WriteString("You are a decision-support assistant.\n")
	fmt.Fprintf(&sb, "The user is facing this decision: %q\n\n", p.Topic)
	sb.WriteString("Here is the diagnostic questionnaire with the user's answers:\n\n")

	for _, q := range p.Questions {
		fmt.Fprintf(&sb, "Q%d: %s\n", q.ID, q.Text)
		if answer, ok := p.Answers[q.ID]; ok {
			fmt.Fprintf(&sb, "A: %s\n", answer)
		} else {
			sb.WriteString("A: (no answer)\n")
		}
		sb.WriteString("---\n")
	}

	if p.AdditionalInput != "" {
		sb.WriteString("\nAdditional consideration from the user:\n")
		sb.WriteString(p.AdditionalInput)
		sb.WriteString("\nIncorporate it into the analysis and explain its effect in refinedInsight.\n")
	}

	if p.TargetAlternative != "" {
		fmt.Fprintf(&sb, "\nThe user wants to pursue the alternative %q. ", p.TargetAlternative)
		sb.WriteString("Make it the finalRecommendation and rebuild the reasoning, pros/cons, next steps and score around it.\n")
	}

	sb.WriteString("\nProduce the structured analysis. Be direct and specific. ")
	sb.WriteString("Respond in the same language as the topic.\n")
	return sb.String()
}
