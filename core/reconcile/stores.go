package reconcile

import "context"

// Field names a writable application column. The engine only ever emits
// fields from this set, replacing the runtime column-name checks a
// string-keyed update map would need.
type Field int

const (
	FieldCompany Field = iota + 1
	FieldJobTitle
	FieldLocation
	FieldStatus
	FieldApplicationDate
	FieldIngestionDate
	FieldSender
	FieldSubject
	FieldRelatedEventKey
	FieldConfidence
	FieldReasoning
)

// String returns the canonical column name for logging and store mapping.
func (f Field) String() string {
	switch f {
	case FieldCompany:
		return "company"
	case FieldJobTitle:
		return "job_title"
	case FieldLocation:
		return "location"
	case FieldStatus:
		return "status"
	case FieldApplicationDate:
		return "application_date"
	case FieldIngestionDate:
		return "ingestion_date"
	case FieldSender:
		return "sender"
	case FieldSubject:
		return "subject"
	case FieldRelatedEventKey:
		return "related_event_key"
	case FieldConfidence:
		return "confidence"
	case FieldReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// FieldMap is a set of pending writes keyed by typed field.
type FieldMap map[Field]any

// ApplicationStore is the durable collection of application records.
type ApplicationStore interface {
	// FindByEventKey returns the application whose origin event key equals
	// key, or nil if none exists.
	FindByEventKey(ctx context.Context, key string) (*Application, error)

	// FindByID returns the application with the given internal ID, or nil.
	FindByID(ctx context.Context, id string) (*Application, error)

	// FindCandidatesByCompany returns all applications whose company name
	// contains, or is contained by, the given company (case-insensitive),
	// ordered by application date descending with nulls last, then ingestion
	// date descending. The ordering is part of the contract: the resolver
	// takes the first satisfying candidate as authoritative.
	FindCandidatesByCompany(ctx context.Context, company string) ([]Application, error)

	// Insert stores a new application and returns its internal ID.
	Insert(ctx context.Context, app *Application) (string, error)

	// UpdateFields writes the given fields to the identified application and
	// refreshes its last-updated timestamp.
	UpdateFields(ctx context.Context, id string, fields FieldMap) error
}

// EventStore is the idempotency ledger mapping event keys to reconciliation
// outcomes.
type EventStore interface {
	// LookupProcessed returns the ledger entry for key, or nil if the event
	// has never been processed.
	LookupProcessed(ctx context.Context, key string) (*ProcessedEvent, error)

	// MarkProcessed records that key was processed, resolving to the given
	// application (nil for discarded events). Reprocessing the same key
	// refreshes the processed-at timestamp.
	MarkProcessed(ctx context.Context, key string, applicationID *string) error
}

// UnitOfWork bundles both stores with a transaction boundary. Transact runs
// fn against a store view whose writes commit together or not at all; an
// error from fn rolls everything back.
type UnitOfWork interface {
	ApplicationStore
	EventStore

	Transact(ctx context.Context, fn func(tx UnitOfWork) error) error
}
