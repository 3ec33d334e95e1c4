package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nyashahama/decision-compass-backend/internal/decision"
)

// CredentialFunc returns the current Gemini API key. It is called once per
// gateway operation — never cached — so a key supplied after the advisor
// was constructed takes effect on the very next call.
type CredentialFunc func() string

// GeminiConfig holds tuning for the Gemini-backed Advisor. Zero-valued
// fields get defaults from NewGeminiAdvisor.
type GeminiConfig struct {
	// Credential resolves the API key per call. Required.
	Credential CredentialFunc

	// Model is the Gemini model identifier. Default "gemini-2.5-flash".
	Model string

	// MaxAttempts is the total number of call attempts for retryable
	// failures. Default 3.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; the delay before
	// retry i is BackoffBase << i (1s, 2s, …). Default 1s.
	BackoffBase time.Duration
}

// geminiAdvisor is the concrete Advisor backed by the Gemini API with
// schema-constrained JSON output.
type geminiAdvisor struct {
	cred        CredentialFunc
	model       string
	maxAttempts int
	backoffBase time.Duration
	gen         textGenerator
	logger      *slog.Logger

	// sleep is swapped out in tests to observe the backoff schedule
	// without waiting for it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGeminiAdvisor returns an Advisor that calls the Gemini API.
func NewGeminiAdvisor(cfg GeminiConfig, logger *slog.Logger) Advisor {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	return &geminiAdvisor{
		cred:        cfg.Credential,
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		gen:         genaiGenerator{},
		logger:      logger,
		sleep:       ctxSleep,
	}
}

// ─── ADVISOR IMPLEMENTATION ──────────────────────────────────────────────────

// GenerateQuestions asks the model for the diagnostic question set and
// renumbers the result 1..n regardless of the ids the model emitted.
func (a *geminiAdvisor) GenerateQuestions(ctx context.Context, topic string) ([]decision.Question, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, newError(KindUnknown, "empty topic", nil)
	}

	raw, err := a.generateWithRetry(ctx, questionsPrompt(topic), questionsSchema)
	if err != nil {
		return nil, err
	}
	raw = stripFences(raw)

	var parsed []struct {
		ID      int      `json:"id"`
		Text    string   `json:"text"`
		Options []string `json:"options"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, newError(KindMalformed, fmt.Sprintf("parse questions JSON (raw: %.200s)", raw), err)
	}

	// Discard model-supplied ids: the model occasionally emits duplicates
	// or gaps, and every layer above keys answers by these ids. Assignment
	// here is final — nothing mutates ids after this point.
	questions := make([]decision.Question, len(parsed))
	for i, q := range parsed {
		questions[i] = decision.Question{
			ID:      i + 1,
			Text:    q.Text,
			Options: q.Options,
		}
	}

	if err := decision.ValidateQuestions(questions); err != nil {
		return nil, newError(KindMalformed, "questions violate contract", err)
	}
	return questions, nil
}

// AnalyzeDecision produces the structured recommendation report.
func (a *geminiAdvisor) AnalyzeDecision(ctx context.Context, p AnalyzeParams) (decision.AnalysisResult, error) {
	raw, err := a.generateWithRetry(ctx, analysisPrompt(p), analysisSchema)
	if err != nil {
		return decision.AnalysisResult{}, err
	}
	raw = stripFences(raw)

	var result decision.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return decision.AnalysisResult{}, newError(KindMalformed, fmt.Sprintf("parse analysis JSON (raw: %.200s)", raw), err)
	}

	// The schema requires alternatives, but an omitted array must not
	// surface as nil to callers that range over it.
	if result.Alternatives == nil {
		result.Alternatives = []decision.Alternative{}
	}

	if err := result.Validate(); err != nil {
		return decision.AnalysisResult{}, newError(KindMalformed, "analysis violates contract", err)
	}
	return result, nil
}

// ─── RETRY LOOP ──────────────────────────────────────────────────────────────

// generateWithRetry resolves the credential, then runs up to maxAttempts
// call attempts. Only overloaded/quota failures are retried; everything
// else propagates immediately. The delay before retry i is
// backoffBase << i. After exhaustion the last classified error is
// returned unchanged in kind.
func (a *geminiAdvisor) generateWithRetry(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	key := a.cred()
	if isPlaceholderKey(key) {
		return "", newError(KindMissingCredential, "no Gemini API key configured", nil)
	}

	var lastErr *Error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		text, err := a.gen.generate(ctx, generateRequest{
			apiKey: key,
			model:  a.model,
			prompt: prompt,
			schema: schema,
		})
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", newError(KindBlocked, "model returned no text", nil)
			}
			return text, nil
		}

		lastErr = classifyUpstream(err)
		if !lastErr.Kind.Retryable() || attempt == a.maxAttempts-1 {
			return "", lastErr
		}

		delay := a.backoffBase << attempt
		a.logger.Warn("ai: retrying after transient failure",
			"kind", lastErr.Kind,
			"attempt", attempt+1,
			"max", a.maxAttempts,
			"backoff", delay,
			"error", err,
		)
		if err := a.sleep(ctx, delay); err != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

// ctxSleep waits for d or until ctx is done, whichever comes first.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isPlaceholderKey reports whether the key is absent or a template value
// that was never filled in.
func isPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	upper := strings.ToUpper(key)
	return strings.HasPrefix(upper, "YOUR_") || upper == "PLACEHOLDER" || upper == "CHANGEME"
}

// stripFences removes markdown code-fence markers the model sometimes
// wraps around its JSON despite the declared response schema.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// ─── UPSTREAM TRANSPORT ──────────────────────────────────────────────────────

type generateRequest struct {
	apiKey string
	model  string
	prompt string
	schema *genai.Schema
}

// textGenerator is the single seam between the gateway and the network.
// Tests inject a stub; the real implementation is genaiGenerator.
type textGenerator interface {
	generate(ctx context.Context, req generateRequest) (string, error)
}

// genaiGenerator performs one schema-constrained inference call. The
// client is constructed per call so each call sees the freshly resolved
// credential.
type genaiGenerator struct{}

func (genaiGenerator) generate(ctx context.Context, req generateRequest) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, req.model,
		genai.Text(req.prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.schema,
			Temperature:      genai.Ptr(float32(0.6)),
		},
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
