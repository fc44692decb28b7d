package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"apptrack/core/reconcile"
	"apptrack/core/status"
)

// maxBodyChars caps how much email body goes into the prompt.
const maxBodyChars = 4000

// maxFieldChars caps extracted free-text fields.
const maxFieldChars = 200

// Classifier turns a raw message into a classified incoming event. Existing
// applications are passed along so the classifier can declare links to
// previously seen applications.
type Classifier interface {
	Classify(ctx context.Context, msg *Message, existing []reconcile.Application) (*reconcile.IncomingEvent, error)
}

// LLMClassifier extracts application events through an OpenAI-compatible
// chat-completions endpoint. When the endpoint fails or returns malformed
// JSON it degrades to keyword extraction instead of failing the message.
type LLMClassifier struct {
	client   *resty.Client
	model    string
	endpoint string
	logger   *zap.Logger
	now      func() time.Time
}

// NewLLMClassifier creates a classifier against the configured endpoint.
func NewLLMClassifier(cfg ClassifierConfig, logger *zap.Logger) *LLMClassifier {
	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &LLMClassifier{
		client:   client,
		model:    cfg.Model,
		endpoint: cfg.BaseURL + "/chat/completions",
		logger:   logger,
		now:      time.Now,
	}
}

// OpenAI-compatible chat completion request/response structures.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// extraction is the JSON object the model is asked to return.
type extraction struct {
	Company          string `json:"company"`
	ApplicationDate  string `json:"application_date"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	Location         string `json:"location"`
	IsNewApplication *bool  `json:"is_new_application"`
	RelatedEventKey  string `json:"related_event_key"`
	Confidence       string `json:"confidence"`
	Reasoning        string `json:"reasoning"`
}

const systemPrompt = "You are a precise data extraction assistant. Always return valid JSON."

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, msg *Message, existing []reconcile.Application) (*reconcile.IncomingEvent, error) {
	subject := headerValue(msg, "Subject")
	sender := headerValue(msg, "From")
	emailDate := parseEmailDate(headerValue(msg, "Date"), c.now)
	body := extractBody(msg)

	prompt := buildPrompt(subject, sender, headerValue(msg, "Date"), body, existing)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		// Low temperature for consistent extraction
		Temperature:    0.1,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)
	if err != nil {
		c.logger.Warn("Classifier request failed, using keyword fallback", zap.Error(err))
		return fallbackEvent(msg.ID, subject, sender, body, emailDate), nil
	}
	if httpResp.IsError() || resp.Error != nil || len(resp.Choices) == 0 {
		c.logger.Warn("Classifier returned an error, using keyword fallback",
			zap.Int("status", httpResp.StatusCode()),
			zap.String("message", errorMessage(&resp)))
		return fallbackEvent(msg.ID, subject, sender, body, emailDate), nil
	}

	var ex extraction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &ex); err != nil {
		c.logger.Warn("Classifier returned malformed JSON, using keyword fallback", zap.Error(err))
		return fallbackEvent(msg.ID, subject, sender, body, emailDate), nil
	}

	return c.toEvent(msg.ID, subject, sender, emailDate, &ex), nil
}

func errorMessage(resp *chatResponse) string {
	if resp.Error != nil {
		return resp.Error.Message
	}
	return ""
}

func (c *LLMClassifier) toEvent(eventKey, subject, sender string, emailDate time.Time, ex *extraction) *reconcile.IncomingEvent {
	ev := &reconcile.IncomingEvent{
		EventKey:             eventKey,
		Company:              clip(ex.Company),
		JobTitle:             clip(ex.Role),
		Location:             clip(ex.Location),
		Status:               status.Status(strings.TrimSpace(ex.Status)),
		IngestionDate:        &emailDate,
		Sender:               sender,
		Subject:              subject,
		RelatedEventKey:      strings.TrimSpace(ex.RelatedEventKey),
		Confidence:           parseConfidence(ex.Confidence),
		Reasoning:            ex.Reasoning,
		IsNewApplicationHint: ex.IsNewApplication == nil || *ex.IsNewApplication,
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(ex.ApplicationDate)); err == nil {
		ev.ApplicationDate = &d
	}
	return ev
}

func parseConfidence(raw string) reconcile.Confidence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return reconcile.ConfidenceHigh
	case "low":
		return reconcile.ConfidenceLow
	default:
		return reconcile.ConfidenceMedium
	}
}

func parseEmailDate(raw string, now func() time.Time) time.Time {
	if raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFieldChars {
		return s[:maxFieldChars]
	}
	return s
}

// buildPrompt assembles the extraction instructions, the email content and a
// digest of known applications for link detection.
func buildPrompt(subject, sender, date, body string, existing []reconcile.Application) string {
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	var b strings.Builder
	b.WriteString("You are an expert at extracting job application information from emails. ")
	b.WriteString("Analyze the following email and extract structured information.\n\n")
	fmt.Fprintf(&b, "Email Subject: %s\n", subject)
	fmt.Fprintf(&b, "Email From: %s\n", sender)
	fmt.Fprintf(&b, "Email Date: %s\n", date)
	fmt.Fprintf(&b, "Email Body:\n%s\n", body)

	if len(existing) > 0 {
		b.WriteString("\nExisting job applications in database:\n")
		for _, app := range existing {
			fmt.Fprintf(&b, "- Event Key: %s, Company: %s, Role: %s, Status: %s\n",
				app.EventKey, orNA(app.Company), orNA(app.JobTitle), string(app.Status))
		}
	}

	b.WriteString(`
Extract the following information:
1. "company": The company name (e.g. "Google", "DoorDash").
2. "application_date": The date the application was submitted (not the email date), as YYYY-MM-DD. Look for phrases like "applied on" or "thank you for applying on". Use null if not found.
3. "role": The specific job title (e.g. "Software Engineer", "Data Analyst").
4. "status": One of "Applied", "Recruiter Screen", "Interview", "Rejected", "Ghosted", "Dropped", "Offer".
5. "location": Job location (city, state, country, or "Remote").
6. "is_new_application": false when this email belongs to one of the existing applications listed above, true otherwise.
7. "related_event_key": the event key of the related existing application, or null.
8. "confidence": "high", "medium" or "low".
9. "reasoning": Brief explanation of the extraction and linking decision.

Return a single JSON object with exactly those keys. Extract only information clearly stated in the email; use null for anything unavailable.`)

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
