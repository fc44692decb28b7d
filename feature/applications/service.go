// Package applications owns the canonical application records: the gorm
// store backing the reconciliation engine, the dashboard queries, operator
// edits, and CSV export.
package applications

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"apptrack/core/reconcile"
	"apptrack/core/status"
)

// ErrNotFound is returned when an operator edit names an event key with no
// matching record.
var ErrNotFound = errors.New("application not found")

// ErrInvalidStatus is returned when an operator edit names a status outside
// the known table.
var ErrInvalidStatus = errors.New("invalid status")

// topListLimit caps the company and location breakdowns in statistics.
const topListLimit = 10

// Service exposes the read and operator-edit operations over application
// records.
type Service struct {
	store  *Store
	logger *zap.Logger
}

// NewService creates a Service on the given store.
func NewService(store *Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Statistics summarizes the tracked applications.
type Statistics struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCompany  []ValueCount     `json:"by_company"`
	ByLocation []ValueCount     `json:"by_location"`
}

// FunnelStage is one step of the pipeline funnel.
type FunnelStage struct {
	Stage      string  `json:"stage"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// List returns applications newest first, optionally filtered by status and
// company substring. A status filter outside the known table is rejected.
func (s *Service) List(ctx context.Context, statusFilter, companyFilter string) ([]reconcile.Application, error) {
	if statusFilter != "" && !status.Valid(status.Status(statusFilter)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, statusFilter)
	}
	return s.store.List(ctx, statusFilter, companyFilter)
}

// Statistics returns the total count plus per-status, top-company and
// top-location breakdowns.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.store.CountByColumn(ctx, "status")
	if err != nil {
		return nil, err
	}
	byCompany, err := s.store.CountByColumn(ctx, "company")
	if err != nil {
		return nil, err
	}
	byLocation, err := s.store.CountByColumn(ctx, "location")
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		Total:      total,
		ByStatus:   make(map[string]int64, len(byStatus)),
		ByCompany:  truncate(byCompany, topListLimit),
		ByLocation: truncate(byLocation, topListLimit),
	}
	for _, vc := range byStatus {
		stats.ByStatus[vc.Value] = vc.Count
	}
	return stats, nil
}

// Funnel reports how many applications currently sit at each of the seven
// stages, in pipeline order, with the share of the total. Legacy status
// labels are normalized before counting. An empty database yields an empty
// funnel.
func (s *Service) Funnel(ctx context.Context) ([]FunnelStage, error) {
	byStatus, err := s.store.CountByColumn(ctx, "status")
	if err != nil {
		return nil, err
	}

	counts := make(map[status.Status]int64)
	var total int64
	for _, vc := range byStatus {
		normalized, ok := status.NormalizeLegacy(vc.Value)
		if !ok {
			s.logger.Warn("skipping unknown status in funnel", zap.String("status", vc.Value))
			continue
		}
		counts[normalized] += vc.Count
		total += vc.Count
	}
	if total == 0 {
		return nil, nil
	}

	funnel := make([]FunnelStage, 0, len(status.All()))
	for _, stage := range status.All() {
		count := counts[stage]
		pct := float64(count) / float64(total) * 100
		funnel = append(funnel, FunnelStage{
			Stage:      string(stage),
			Count:      count,
			Percentage: math.Round(pct*10) / 10,
		})
	}
	return funnel, nil
}

// UpdateStatus overwrites the status of the record identified by event key.
// Operator edits are deliberate corrections, so they skip the monotonic
// advancement rule, but the new value must come from the known table.
func (s *Service) UpdateStatus(ctx context.Context, eventKey, raw string) error {
	st := status.Status(raw)
	if !status.Valid(st) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	ok, err := s.store.SetStatus(ctx, eventKey, st)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, eventKey)
	}
	s.logger.Info("status updated by operator",
		zap.String("event_key", eventKey),
		zap.String("status", raw))
	return nil
}

// UpdateLocation overwrites the location of the record identified by event
// key.
func (s *Service) UpdateLocation(ctx context.Context, eventKey, location string) error {
	ok, err := s.store.SetLocation(ctx, eventKey, location)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, eventKey)
	}
	s.logger.Info("location updated by operator",
		zap.String("event_key", eventKey),
		zap.String("location", location))
	return nil
}

// exportHeader is the CSV column order, matching the table schema.
var exportHeader = []string{
	"event_key", "company", "job_title", "location", "status",
	"application_date", "ingestion_date", "sender", "subject",
	"related_event_key", "confidence", "reasoning", "last_updated", "created_at",
}

// ExportCSV writes every application as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	apps, err := s.store.List(ctx, "", "")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, app := range apps {
		record := []string{
			app.EventKey,
			app.Company,
			app.JobTitle,
			app.Location,
			string(app.Status),
			formatDate(app.ApplicationDate),
			formatDate(app.IngestionDate),
			app.Sender,
			app.Subject,
			app.RelatedEventKey,
			string(app.Confidence),
			app.Reasoning,
			app.LastUpdated.UTC().Format(time.RFC3339),
			app.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func truncate(counts []ValueCount, limit int) []ValueCount {
	if len(counts) > limit {
		return counts[:limit]
	}
	return counts
}
