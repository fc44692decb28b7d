// Package models defines the database schema for application records and the
// processed-event ledger.
package models

import "time"

// Application is the job_applications table row. One row per canonical
// application; the event key of the email that created it is unique and
// immutable.
type Application struct {
	ID              string     `gorm:"column:id;primaryKey;size:36"`
	EventKey        string     `gorm:"column:event_key;size:255;not null;uniqueIndex:idx_event_key"`
	Company         string     `gorm:"column:company;size:255;index:idx_company"`
	JobTitle        string     `gorm:"column:job_title;size:500"`
	Location        string     `gorm:"column:location;size:255"`
	Status          string     `gorm:"column:status;size:50;default:Applied;index:idx_status"`
	ApplicationDate *time.Time `gorm:"column:application_date"`
	IngestionDate   *time.Time `gorm:"column:ingestion_date"`
	Sender          string     `gorm:"column:sender;size:500"`
	Subject         string     `gorm:"column:subject;type:text"`
	RelatedEventKey string     `gorm:"column:related_event_key;size:255;index:idx_related_event"`
	Confidence      string     `gorm:"column:confidence;size:20"`
	Reasoning       string     `gorm:"column:reasoning;type:text"`
	LastUpdated     time.Time  `gorm:"column:last_updated"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

// TableName implements the gorm naming override.
func (Application) TableName() string {
	return "job_applications"
}

// ProcessedEvent is the processed_events table row: the idempotency ledger.
// ApplicationID is null for discarded events.
type ProcessedEvent struct {
	EventKey      string    `gorm:"column:event_key;primaryKey;size:255"`
	ApplicationID *string   `gorm:"column:application_id;size:36;index:idx_ledger_application"`
	ProcessedAt   time.Time `gorm:"column:processed_at"`
}

// TableName implements the gorm naming override.
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
