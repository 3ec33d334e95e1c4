package ai

import "google.golang.org/genai"

// Response contracts declared to the model. Gemini is asked for
// application/json constrained to these shapes, so parsing can decode
// straight into typed structs — fence stripping in gemini.go is the only
// concession to model misbehaviour.

// questionsSchema: array of { id: integer, text: string, options: [string] }.
var questionsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id": {
				Type:        genai.TypeInteger,
				Description: "Sequential question number starting at 1",
			},
			"text": {
				Type:        genai.TypeString,
				Description: "The question, phrased in the language of the topic",
			},
			"options": {
				Type:        genai.TypeArray,
				Description: "3-4 mutually exclusive answer choices",
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    genai.Ptr(int64(3)),
				MaxItems:    genai.Ptr(int64(4)),
			},
		},
		Required: []string{"id", "text", "options"},
	},
}

// analysisSchema mirrors decision.AnalysisResult.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"finalRecommendation": {
			Type:        genai.TypeString,
			Description: "The single recommended course of action",
		},
		"summary": {
			Type:        genai.TypeString,
			Description: "2-3 sentence summary of the overall assessment",
		},
		"reasoning": {
			Type:        genai.TypeArray,
			Description: "Ordered reasoning steps behind the recommendation",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"pros": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"cons": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"nextSteps": {
			Type:        genai.TypeArray,
			Description: "Concrete actions the user should take next, in order",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"score": {
			Type:        genai.TypeInteger,
			Description: "Confidence in the recommendation, 1-100",
			Minimum:     genai.Ptr(float64(1)),
			Maximum:     genai.Ptr(float64(100)),
		},
		"alternatives": {
			Type:        genai.TypeArray,
			Description: "Other viable paths; empty array if none",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":   {Type: genai.TypeString},
					"summary": {Type: genai.TypeString},
					"whyThis": {
						Type:        genai.TypeString,
						Description: "When this alternative would be the better choice",
					},
				},
				Required: []string{"title", "summary", "whyThis"},
			},
		},
		"refinedInsight": {
			Type:        genai.TypeString,
			Description: "Only when an additional consideration was provided: how it changed the assessment",
		},
	},
	Required: []string{
		"finalRecommendation", "summary", "reasoning",
		"pros", "cons", "nextSteps", "score", "alternatives",
	},
}
