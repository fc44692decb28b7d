package reconcile

import (
	"time"

	"apptrack/core/status"
)

// Confidence is the classifier's self-reported extraction confidence.
// It is advisory provenance only and never gates a merge decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IncomingEvent is one externally classified description of a job-application
// status change, keyed by the originating email's identifier.
type IncomingEvent struct {
	// EventKey is the originating email's unique identifier. Required.
	EventKey string `json:"event_key"`

	// Company is the extracted company name. An event without a company is
	// discarded (recorded in the ledger, never retried).
	Company string `json:"company,omitempty"`

	// JobTitle is the extracted role.
	JobTitle string `json:"job_title,omitempty"`

	// Location is the extracted job location.
	Location string `json:"location,omitempty"`

	// Status is the extracted pipeline stage. Empty means the event carries
	// no status; unrecognized values rank as the lowest stage.
	Status status.Status `json:"status,omitempty"`

	// ApplicationDate is the business date the application was submitted,
	// distinct from the email date.
	ApplicationDate *time.Time `json:"application_date,omitempty"`

	// IngestionDate is when the originating email was produced.
	IngestionDate *time.Time `json:"ingestion_date,omitempty"`

	// Sender and Subject are provenance metadata, never used for matching.
	Sender  string `json:"sender,omitempty"`
	Subject string `json:"subject,omitempty"`

	// RelatedEventKey is set when the classifier declared this email to
	// belong to a previously seen application.
	RelatedEventKey string `json:"related_event_key,omitempty"`

	// Confidence and Reasoning are the classifier's audit trail.
	Confidence Confidence `json:"confidence,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`

	// IsNewApplicationHint is the classifier's opinion on whether this is a
	// new application. Advisory only; resolution is authoritative.
	IsNewApplicationHint bool `json:"is_new_application_hint,omitempty"`
}

// Application is the canonical, deduplicated record of one job application
// across its entire lifecycle.
type Application struct {
	// ID is the store-assigned internal identity, stable for the record's
	// lifetime.
	ID string `json:"id"`

	// EventKey is the identifier of the email that created this record.
	// Unique across all applications and immutable once assigned.
	EventKey string `json:"event_key"`

	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
	Location string `json:"location,omitempty"`

	Status status.Status `json:"status"`

	ApplicationDate *time.Time `json:"application_date,omitempty"`
	IngestionDate   *time.Time `json:"ingestion_date,omitempty"`

	Sender  string `json:"sender,omitempty"`
	Subject string `json:"subject,omitempty"`

	RelatedEventKey string `json:"related_event_key,omitempty"`

	Confidence Confidence `json:"confidence,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProcessedEvent is one entry in the idempotency ledger. ApplicationID is nil
// when the event was discarded (e.g. no company identified).
type ProcessedEvent struct {
	EventKey      string     `json:"event_key"`
	ApplicationID *string    `json:"application_id,omitempty"`
	ProcessedAt   time.Time  `json:"processed_at"`
}

// Outcome classifies what Apply did with an event.
type Outcome string

const (
	// OutcomeCreated means a new application record was inserted.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means the event's own record was updated (re-delivery).
	OutcomeUpdated Outcome = "updated"
	// OutcomeMerged means the event was folded into another application's
	// record via an explicit link or a fuzzy match.
	OutcomeMerged Outcome = "merged"
	// OutcomeDiscarded means the event was recorded in the ledger but no
	// application was touched.
	OutcomeDiscarded Outcome = "discarded"
)

// Result is the outcome of applying one event.
type Result struct {
	Outcome Outcome `json:"outcome"`

	// ApplicationID references the created or merged-into record. Empty for
	// discarded events.
	ApplicationID string `json:"application_id,omitempty"`

	// Strategy is the resolution strategy that produced the target, or
	// StrategyNone for created and discarded events.
	Strategy Strategy `json:"strategy"`
}
