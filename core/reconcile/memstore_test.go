package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"apptrack/core/status"
)

// memStore is an in-memory UnitOfWork used across the engine and resolver
// tests. Transact snapshots state and restores it on error, mirroring the
// all-or-nothing contract of the real store.
type memStore struct {
	apps   map[string]*Application
	ledger map[string]*ProcessedEvent
	nextID int

	failInsert error
	failUpdate error
	failMark   error
}

func newMemStore() *memStore {
	return &memStore{
		apps:   make(map[string]*Application),
		ledger: make(map[string]*ProcessedEvent),
	}
}

func (m *memStore) FindByEventKey(_ context.Context, key string) (*Application, error) {
	for _, app := range m.apps {
		if app.EventKey == key {
			clone := *app
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*Application, error) {
	if app, ok := m.apps[id]; ok {
		clone := *app
		return &clone, nil
	}
	return nil, nil
}

func (m *memStore) FindCandidatesByCompany(_ context.Context, company string) ([]Application, error) {
	needle := strings.ToLower(strings.TrimSpace(company))
	var out []Application
	for _, app := range m.apps {
		have := strings.ToLower(app.Company)
		if have == "" {
			continue
		}
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ApplicationDate == nil && b.ApplicationDate != nil:
			return false
		case a.ApplicationDate != nil && b.ApplicationDate == nil:
			return true
		case a.ApplicationDate != nil && b.ApplicationDate != nil && !a.ApplicationDate.Equal(*b.ApplicationDate):
			return a.ApplicationDate.After(*b.ApplicationDate)
		}
		switch {
		case a.IngestionDate == nil && b.IngestionDate != nil:
			return false
		case a.IngestionDate != nil && b.IngestionDate == nil:
			return true
		case a.IngestionDate != nil && b.IngestionDate != nil && !a.IngestionDate.Equal(*b.IngestionDate):
			return a.IngestionDate.After(*b.IngestionDate)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (m *memStore) Insert(_ context.Context, app *Application) (string, error) {
	if m.failInsert != nil {
		return "", m.failInsert
	}
	m.nextID++
	id := fmt.Sprintf("app-%03d", m.nextID)
	clone := *app
	clone.ID = id
	m.apps[id] = &clone
	return id, nil
}

func (m *memStore) UpdateFields(_ context.Context, id string, fields FieldMap) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	app, ok := m.apps[id]
	if !ok {
		return fmt.Errorf("application %s not found", id)
	}
	for f, v := range fields {
		switch f {
		case FieldCompany:
			app.Company = v.(string)
		case FieldJobTitle:
			app.JobTitle = v.(string)
		case FieldLocation:
			app.Location = v.(string)
		case FieldStatus:
			app.Status = v.(status.Status)
		case FieldApplicationDate:
			t := v.(time.Time)
			app.ApplicationDate = &t
		case FieldIngestionDate:
			t := v.(time.Time)
			app.IngestionDate = &t
		case FieldSender:
			app.Sender = v.(string)
		case FieldSubject:
			app.Subject = v.(string)
		case FieldRelatedEventKey:
			app.RelatedEventKey = v.(string)
		case FieldConfidence:
			app.Confidence = Confidence(v.(string))
		case FieldReasoning:
			app.Reasoning = v.(string)
		}
	}
	app.LastUpdated = time.Now()
	return nil
}

func (m *memStore) LookupProcessed(_ context.Context, key string) (*ProcessedEvent, error) {
	if entry, ok := m.ledger[key]; ok {
		clone := *entry
		return &clone, nil
	}
	return nil, nil
}

func (m *memStore) MarkProcessed(_ context.Context, key string, applicationID *string) error {
	if m.failMark != nil {
		return m.failMark
	}
	entry := &ProcessedEvent{EventKey: key, ProcessedAt: time.Now()}
	if applicationID != nil {
		id := *applicationID
		entry.ApplicationID = &id
	}
	m.ledger[key] = entry
	return nil
}

func (m *memStore) Transact(ctx context.Context, fn func(tx UnitOfWork) error) error {
	apps := make(map[string]*Application, len(m.apps))
	for id, app := range m.apps {
		clone := *app
		apps[id] = &clone
	}
	ledger := make(map[string]*ProcessedEvent, len(m.ledger))
	for key, entry := range m.ledger {
		clone := *entry
		ledger[key] = &clone
	}
	nextID := m.nextID

	if err := fn(m); err != nil {
		m.apps = apps
		m.ledger = ledger
		m.nextID = nextID
		return err
	}
	return nil
}

// byEventKey fetches the live record backing an event key, bypassing clones.
func (m *memStore) byEventKey(key string) *Application {
	for _, app := range m.apps {
		if app.EventKey == key {
			return app
		}
	}
	return nil
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
