package ingest

import (
	"regexp"
	"strings"
	"time"

	"apptrack/core/reconcile"
	"apptrack/core/status"
)

// senderDomain pulls the first label of the sender's mail domain, which is
// usually the company name ("jobs@doordash.com" yields "doordash").
var senderDomain = regexp.MustCompile(`@([^.>\s]+)`)

// statusKeywords maps pipeline stages to the phrases that signal them,
// checked in order from strongest signal to weakest.
var statusKeywords = []struct {
	status   status.Status
	keywords []string
}{
	{status.Offer, []string{"offer", "congratulations", "we are pleased", "job offer"}},
	{status.Rejected, []string{"rejected", "not selected", "unfortunately", "declined", "not moving forward"}},
	{status.Interview, []string{"interview", "technical interview", "final round", "interview scheduled"}},
	{status.RecruiterScreen, []string{"recruiter", "phone screen", "initial screening", "screening call"}},
	{status.Dropped, []string{"withdrawn", "withdraw", "cancelled", "cancel"}},
	{status.Ghosted, []string{"no response", "ghosted", "radio silence"}},
}

// fallbackEvent builds an event from subject and body keywords when the
// classifier is unavailable. The company comes from the sender's mail
// domain; location and role stay empty rather than guessed.
func fallbackEvent(eventKey, subject, sender, body string, emailDate time.Time) *reconcile.IncomingEvent {
	company := ""
	if m := senderDomain.FindStringSubmatch(sender); m != nil {
		company = titleCase(m[1])
	}

	appDate := emailDate.Truncate(24 * time.Hour)
	return &reconcile.IncomingEvent{
		EventKey:             eventKey,
		Company:              company,
		Status:               detectStatus(subject + " " + body),
		ApplicationDate:      &appDate,
		IngestionDate:        &emailDate,
		Sender:               sender,
		Subject:              subject,
		Confidence:           reconcile.ConfidenceLow,
		Reasoning:            "classifier unavailable, keyword extraction",
		IsNewApplicationHint: true,
	}
}

// detectStatus scans the content for stage keywords, defaulting to Applied.
func detectStatus(content string) status.Status {
	lower := strings.ToLower(content)
	for _, entry := range statusKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.status
			}
		}
	}
	return status.Applied
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
