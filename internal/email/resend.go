package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "reports@decisioncompass.app"
	fromName   string // e.g. "Decision Compass"
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName string) Sender {
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendReport delivers the analysis report as a simple HTML email.
func (c *resendClient) SendReport(ctx context.Context, p ReportParams) error {
	subject := "의사결정 리포트"
	if p.Topic != "" {
		subject = fmt.Sprintf("의사결정 리포트 — %s", p.Topic)
	}

	body := resendRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr),
		To:      []string{p.To},
		Subject: subject,
		HTML:    renderReportHTML(p),
	}
	return c.send(ctx, body)
}

// send posts one email to the Resend API.
func (c *resendClient) send(ctx context.Context, body resendRequest) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.resend.com/emails",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: API error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}
	return nil
}

// renderReportHTML builds the email body. Inline-styled, table-free HTML
// that renders acceptably in every mail client.
func renderReportHTML(p ReportParams) string {
	esc := html.EscapeString
	var sb strings.Builder

	fmt.Fprintf(&sb, "<h2>%s</h2>", esc(p.Topic))
	fmt.Fprintf(&sb, "<p><strong>추천: %s</strong> (확신도 %d/100)</p>", esc(p.Result.FinalRecommendation), p.Result.Score)
	fmt.Fprintf(&sb, "<p>%s</p>", esc(p.Result.Summary))

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "<h3>%s</h3><ul>", esc(title))
		for _, item := range items {
			fmt.Fprintf(&sb, "<li>%s</li>", esc(item))
		}
		sb.WriteString("</ul>")
	}

	writeList("근거", p.Result.Reasoning)
	writeList("장점", p.Result.Pros)
	writeList("단점", p.Result.Cons)
	writeList("다음 단계", p.Result.NextSteps)

	if len(p.Result.Alternatives) > 0 {
		sb.WriteString("<h3>대안</h3><ul>")
		for _, alt := range p.Result.Alternatives {
			fmt.Fprintf(&sb, "<li><strong>%s</strong> — %s</li>", esc(alt.Title), esc(alt.Summary))
		}
		sb.WriteString("</ul>")
	}

	if p.Result.RefinedInsight != "" {
		fmt.Fprintf(&sb, "<p><em>%s</em></p>", esc(p.Result.RefinedInsight))
	}
	return sb.String()
}
