package applications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"apptrack/core/reconcile"
	"apptrack/core/status"
	"apptrack/feature/applications/models"
)

// Store persists application records and the processed-event ledger through
// gorm. It implements reconcile.UnitOfWork; Transact hands the reconciliation
// engine a store bound to an open transaction.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transact implements reconcile.UnitOfWork. The callback runs against a store
// bound to a single transaction; any error rolls every write back.
func (s *Store) Transact(ctx context.Context, fn func(tx reconcile.UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// FindByEventKey implements reconcile.ApplicationStore.
func (s *Store) FindByEventKey(ctx context.Context, eventKey string) (*reconcile.Application, error) {
	var row models.Application
	err := s.db.WithContext(ctx).Where("event_key = ?", eventKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find application by event key: %w", err)
	}
	app := toDomain(row)
	return &app, nil
}

// FindByID implements reconcile.ApplicationStore.
func (s *Store) FindByID(ctx context.Context, id string) (*reconcile.Application, error) {
	var row models.Application
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find application by id: %w", err)
	}
	app := toDomain(row)
	return &app, nil
}

// FindCandidatesByCompany implements reconcile.ApplicationStore. Substring
// containment has to hold in either direction, which a single portable LIKE
// cannot express, so rows with a company are loaded and filtered here. The
// result is ordered most-plausible first: application date descending with
// missing dates last, then ingestion date descending, then id descending.
func (s *Store) FindCandidatesByCompany(ctx context.Context, company string) ([]reconcile.Application, error) {
	needle := strings.ToLower(strings.TrimSpace(company))
	if needle == "" {
		return nil, nil
	}
	var rows []models.Application
	if err := s.db.WithContext(ctx).Where("company <> ''").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find candidates by company: %w", err)
	}
	var out []reconcile.Application
	for _, row := range rows {
		existing := strings.ToLower(row.Company)
		if strings.Contains(existing, needle) || strings.Contains(needle, existing) {
			out = append(out, toDomain(row))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ApplicationDate != nil && b.ApplicationDate == nil:
			return true
		case a.ApplicationDate == nil && b.ApplicationDate != nil:
			return false
		case a.ApplicationDate != nil && b.ApplicationDate != nil && !a.ApplicationDate.Equal(*b.ApplicationDate):
			return a.ApplicationDate.After(*b.ApplicationDate)
		}
		ai, bi := timeOrZero(a.IngestionDate), timeOrZero(b.IngestionDate)
		if !ai.Equal(bi) {
			return ai.After(bi)
		}
		return a.ID > b.ID
	})
	return out, nil
}

// Insert implements reconcile.ApplicationStore. A fresh UUID becomes the
// record id; creation and update timestamps are stamped here.
func (s *Store) Insert(ctx context.Context, app *reconcile.Application) (string, error) {
	row := fromDomain(*app)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.LastUpdated.IsZero() {
		row.LastUpdated = now
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("insert application: %w", err)
	}
	return row.ID, nil
}

// UpdateFields implements reconcile.ApplicationStore. Only columns named in
// the field map are touched; last_updated is always refreshed.
func (s *Store) UpdateFields(ctx context.Context, id string, fields reconcile.FieldMap) error {
	updates := make(map[string]any, len(fields)+1)
	for field, value := range fields {
		column := field.String()
		if column == "unknown" {
			return fmt.Errorf("update fields: unknown field %d", int(field))
		}
		if st, ok := value.(status.Status); ok {
			value = string(st)
		}
		updates[column] = value
	}
	updates["last_updated"] = time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update application %s: %w", id, err)
	}
	return nil
}

// LookupProcessed implements reconcile.EventStore.
func (s *Store) LookupProcessed(ctx context.Context, eventKey string) (*reconcile.ProcessedEvent, error) {
	var row models.ProcessedEvent
	err := s.db.WithContext(ctx).Where("event_key = ?", eventKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup processed event: %w", err)
	}
	return &reconcile.ProcessedEvent{
		EventKey:      row.EventKey,
		ApplicationID: row.ApplicationID,
		ProcessedAt:   row.ProcessedAt,
	}, nil
}

// MarkProcessed implements reconcile.EventStore. Re-marking an already seen
// event key refreshes the ledger row instead of failing, which keeps
// reprocessing idempotent.
func (s *Store) MarkProcessed(ctx context.Context, eventKey string, applicationID *string) error {
	row := models.ProcessedEvent{
		EventKey:      eventKey,
		ApplicationID: applicationID,
		ProcessedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"application_id", "processed_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

// List returns applications ordered newest-ingested first, optionally
// filtered by exact status and case-insensitive company substring.
func (s *Store) List(ctx context.Context, statusFilter, companyFilter string) ([]reconcile.Application, error) {
	q := s.db.WithContext(ctx).Model(&models.Application{})
	if statusFilter != "" {
		q = q.Where("status = ?", statusFilter)
	}
	if companyFilter != "" {
		q = q.Where("LOWER(company) LIKE ?", "%"+strings.ToLower(companyFilter)+"%")
	}
	var rows []models.Application
	if err := q.Order("ingestion_date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	out := make([]reconcile.Application, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// CountByColumn groups applications by the given column and returns the
// per-value counts, largest first, skipping empty values.
func (s *Store) CountByColumn(ctx context.Context, column string) ([]ValueCount, error) {
	var counts []ValueCount
	err := s.db.WithContext(ctx).Model(&models.Application{}).
		Select(column+" AS value, COUNT(*) AS count").
		Where(column+" <> ''").
		Group(column).
		Order("count DESC").
		Find(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	return counts, nil
}

// Count returns the total number of application records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Application{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

// SetStatus overwrites the status of the record with the given event key.
// Returns false when no such record exists.
func (s *Store) SetStatus(ctx context.Context, eventKey string, st status.Status) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("event_key = ?", eventKey).
		Updates(map[string]any{"status": string(st), "last_updated": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("set status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetLocation overwrites the location of the record with the given event key.
// Returns false when no such record exists.
func (s *Store) SetLocation(ctx context.Context, eventKey, location string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("event_key = ?", eventKey).
		Updates(map[string]any{"location": location, "last_updated": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("set location: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteByEventKeyPrefix removes applications whose event key carries the
// given prefix along with their ledger rows. Returns the number of deleted
// applications.
func (s *Store) DeleteByEventKeyPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, errors.New("delete by event key prefix: empty prefix")
	}
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pattern := prefix + "%"
		res := tx.Where("event_key LIKE ?", pattern).Delete(&models.Application{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Where("event_key LIKE ?", pattern).Delete(&models.ProcessedEvent{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete by event key prefix: %w", err)
	}
	return deleted, nil
}

// MigrateLegacyStatuses rewrites statuses recorded under retired labels to
// their current equivalents. Returns the number of updated records.
func (s *Store) MigrateLegacyStatuses(ctx context.Context) (int64, error) {
	var migrated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Application
		if err := tx.Find(&rows).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, row := range rows {
			normalized, ok := status.NormalizeLegacy(row.Status)
			if !ok || string(normalized) == row.Status {
				continue
			}
			err := tx.Model(&models.Application{}).Where("id = ?", row.ID).
				Updates(map[string]any{"status": string(normalized), "last_updated": now}).Error
			if err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("migrate legacy statuses: %w", err)
	}
	return migrated, nil
}

// VerifyReport summarizes the integrity checks run by Verify.
type VerifyReport struct {
	Applications      int64
	ProcessedEvents   int64
	DuplicateKeys     int64
	DanglingLedger    int64
	InvalidStatuses   int64
	MissingEventKeys  int64
	LinkedApplication int64
}

// Verify runs consistency checks over the tables: event-key uniqueness,
// ledger rows pointing at missing applications, statuses outside the known
// table, and records without an event key.
func (s *Store) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Application{}).Count(&report.Applications).Error; err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if err := db.Model(&models.ProcessedEvent{}).Count(&report.ProcessedEvents).Error; err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	err := db.Model(&models.Application{}).Where("event_key = ''").Count(&report.MissingEventKeys).Error
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	err = db.Model(&models.ProcessedEvent{}).Where("application_id IS NOT NULL").Count(&report.LinkedApplication).Error
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var dupes []ValueCount
	err = db.Model(&models.Application{}).
		Select("event_key AS value, COUNT(*) AS count").
		Group("event_key").
		Having("COUNT(*) > 1").
		Find(&dupes).Error
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	report.DuplicateKeys = int64(len(dupes))

	err = db.Model(&models.ProcessedEvent{}).
		Where("application_id IS NOT NULL").
		Where("application_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&models.Application{}).Select("id")).
		Count(&report.DanglingLedger).Error
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var rows []models.Application
	if err := db.Select("status").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	for _, row := range rows {
		if !status.Valid(status.Status(row.Status)) {
			report.InvalidStatuses++
		}
	}
	return report, nil
}

// ValueCount is one group row of a grouped count query.
type ValueCount struct {
	Value string `gorm:"column:value"`
	Count int64  `gorm:"column:count"`
}

func toDomain(row models.Application) reconcile.Application {
	return reconcile.Application{
		ID:              row.ID,
		EventKey:        row.EventKey,
		Company:         row.Company,
		JobTitle:        row.JobTitle,
		Location:        row.Location,
		Status:          status.Status(row.Status),
		ApplicationDate: row.ApplicationDate,
		IngestionDate:   row.IngestionDate,
		Sender:          row.Sender,
		Subject:         row.Subject,
		RelatedEventKey: row.RelatedEventKey,
		Confidence:      reconcile.Confidence(row.Confidence),
		Reasoning:       row.Reasoning,
		LastUpdated:     row.LastUpdated,
		CreatedAt:       row.CreatedAt,
	}
}

func fromDomain(app reconcile.Application) models.Application {
	return models.Application{
		ID:              app.ID,
		EventKey:        app.EventKey,
		Company:         app.Company,
		JobTitle:        app.JobTitle,
		Location:        app.Location,
		Status:          string(app.Status),
		ApplicationDate: app.ApplicationDate,
		IngestionDate:   app.IngestionDate,
		Sender:          app.Sender,
		Subject:         app.Subject,
		RelatedEventKey: app.RelatedEventKey,
		Confidence:      string(app.Confidence),
		Reasoning:       app.Reasoning,
		LastUpdated:     app.LastUpdated,
		CreatedAt:       app.CreatedAt,
	}
}

// timeOrZero dereferences t, treating nil as the zero time.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
