package applications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"apptrack/core/reconcile"
	"apptrack/core/status"
	"apptrack/feature/applications/models"
)

// setupTestDB creates an in-memory SQLite DB with the schema migrated.
func setupTestDB(t *testing.T, dbName string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Application{}, &models.ProcessedEvent{}))
	return db
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStore_InsertAndFindByEventKey(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_insert"))
	ctx := context.Background()

	id, err := store.Insert(ctx, &reconcile.Application{
		EventKey:        "msg-1",
		Company:         "Stripe",
		JobTitle:        "Software Engineer",
		Status:          status.Applied,
		ApplicationDate: date(2026, 3, 1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	app, err := store.FindByEventKey(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, id, app.ID)
	assert.Equal(t, "Stripe", app.Company)
	assert.Equal(t, status.Applied, app.Status)
	assert.False(t, app.CreatedAt.IsZero())

	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "msg-1", byID.EventKey)

	missing, err := store.FindByEventKey(ctx, "msg-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_EventKeyUnique(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_unique"))
	ctx := context.Background()

	_, err := store.Insert(ctx, &reconcile.Application{EventKey: "msg-1", Company: "A", Status: status.Applied})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &reconcile.Application{EventKey: "msg-1", Company: "B", Status: status.Applied})
	assert.Error(t, err)
}

func TestStore_FindCandidatesByCompany(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_candidates"))
	ctx := context.Background()

	_, err := store.Insert(ctx, &reconcile.Application{
		EventKey: "msg-1", Company: "Amazon", JobTitle: "SDE",
		Status: status.Applied, ApplicationDate: date(2026, 3, 1),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &reconcile.Application{
		EventKey: "msg-2", Company: "Amazon Web Services", JobTitle: "SDE",
		Status: status.Applied, ApplicationDate: date(2026, 3, 10),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, &reconcile.Application{
		EventKey: "msg-3", Company: "Google", Status: status.Applied,
	})
	require.NoError(t, err)
	// No application date sorts last.
	_, err = store.Insert(ctx, &reconcile.Application{
		EventKey: "msg-4", Company: "Amazon", Status: status.Applied,
	})
	require.NoError(t, err)

	got, err := store.FindCandidatesByCompany(ctx, "amazon")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "msg-2", got[0].EventKey)
	assert.Equal(t, "msg-1", got[1].EventKey)
	assert.Equal(t, "msg-4", got[2].EventKey)

	// Containment works in the other direction too: stored "Amazon" matches
	// the longer incoming name.
	got, err = store.FindCandidatesByCompany(ctx, "Amazon.com Inc")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, app := range got {
		assert.NotEqual(t, "msg-3", app.EventKey)
	}

	got, err = store.FindCandidatesByCompany(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_UpdateFields(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_update"))
	ctx := context.Background()

	id, err := store.Insert(ctx, &reconcile.Application{
		EventKey: "msg-1", Company: "Meta", Status: status.Applied,
	})
	require.NoError(t, err)

	err = store.UpdateFields(ctx, id, reconcile.FieldMap{
		reconcile.FieldJobTitle: "Data Engineer",
		reconcile.FieldStatus:   status.Interview,
		reconcile.FieldLocation: "Remote",
	})
	require.NoError(t, err)

	app, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer", app.JobTitle)
	assert.Equal(t, status.Interview, app.Status)
	assert.Equal(t, "Remote", app.Location)
	assert.Equal(t, "Meta", app.Company)
	assert.False(t, app.LastUpdated.IsZero())
}

func TestStore_MarkProcessedUpsert(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_ledger"))
	ctx := context.Background()

	require.NoError(t, store.MarkProcessed(ctx, "msg-1", nil))

	entry, err := store.LookupProcessed(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Nil(t, entry.ApplicationID)

	id := "app-1"
	require.NoError(t, store.MarkProcessed(ctx, "msg-1", &id))

	entry, err = store.LookupProcessed(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, entry.ApplicationID)
	assert.Equal(t, "app-1", *entry.ApplicationID)

	missing, err := store.LookupProcessed(ctx, "msg-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_TransactRollsBack(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_tx"))
	ctx := context.Background()

	err := store.Transact(ctx, func(tx reconcile.UnitOfWork) error {
		_, err := tx.Insert(ctx, &reconcile.Application{EventKey: "msg-1", Company: "Uber", Status: status.Applied})
		require.NoError(t, err)
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	app, err := store.FindByEventKey(ctx, "msg-1")
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestStore_ListFilters(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_list"))
	ctx := context.Background()

	seed := []reconcile.Application{
		{EventKey: "m1", Company: "Google", Status: status.Applied, IngestionDate: date(2026, 3, 1)},
		{EventKey: "m2", Company: "Google Cloud", Status: status.Interview, IngestionDate: date(2026, 3, 5)},
		{EventKey: "m3", Company: "Netflix", Status: status.Applied, IngestionDate: date(2026, 3, 3)},
	}
	for i := range seed {
		_, err := store.Insert(ctx, &seed[i])
		require.NoError(t, err)
	}

	all, err := store.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m2", all[0].EventKey)

	applied, err := store.List(ctx, "Applied", "")
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	google, err := store.List(ctx, "", "google")
	require.NoError(t, err)
	assert.Len(t, google, 2)

	both, err := store.List(ctx, "Applied", "google")
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "m1", both[0].EventKey)
}

func TestStore_SetStatusAndLocation(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_set"))
	ctx := context.Background()

	_, err := store.Insert(ctx, &reconcile.Application{EventKey: "m1", Company: "Shopify", Status: status.Offer})
	require.NoError(t, err)

	ok, err := store.SetStatus(ctx, "m1", status.Dropped)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetLocation(ctx, "m1", "Toronto")
	require.NoError(t, err)
	assert.True(t, ok)

	app, err := store.FindByEventKey(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, status.Dropped, app.Status)
	assert.Equal(t, "Toronto", app.Location)

	ok, err = store.SetStatus(ctx, "nope", status.Applied)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteByEventKeyPrefix(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_delete"))
	ctx := context.Background()

	id1, err := store.Insert(ctx, &reconcile.Application{EventKey: "sample-1", Company: "Demo", Status: status.Applied})
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(ctx, "sample-1", &id1))
	_, err = store.Insert(ctx, &reconcile.Application{EventKey: "real-1", Company: "Google", Status: status.Applied})
	require.NoError(t, err)

	deleted, err := store.DeleteByEventKeyPrefix(ctx, "sample-")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := store.FindByEventKey(ctx, "sample-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
	entry, err := store.LookupProcessed(ctx, "sample-1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	kept, err := store.FindByEventKey(ctx, "real-1")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	_, err = store.DeleteByEventKeyPrefix(ctx, "")
	assert.Error(t, err)
}

func TestStore_MigrateLegacyStatuses(t *testing.T) {
	db := setupTestDB(t, "store_migrate")
	store := NewStore(db)
	ctx := context.Background()

	rows := []models.Application{
		{ID: "a1", EventKey: "m1", Company: "A", Status: "In Progress"},
		{ID: "a2", EventKey: "m2", Company: "B", Status: "Withdrawn"},
		{ID: "a3", EventKey: "m3", Company: "C", Status: "offer"},
		{ID: "a4", EventKey: "m4", Company: "D", Status: "Interview"},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	migrated, err := store.MigrateLegacyStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), migrated)

	want := map[string]status.Status{
		"m1": status.RecruiterScreen,
		"m2": status.Dropped,
		"m3": status.Offer,
		"m4": status.Interview,
	}
	for key, expected := range want {
		app, err := store.FindByEventKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, expected, app.Status, key)
	}
}

func TestStore_Verify(t *testing.T) {
	db := setupTestDB(t, "store_verify")
	store := NewStore(db)
	ctx := context.Background()

	id, err := store.Insert(ctx, &reconcile.Application{EventKey: "m1", Company: "A", Status: status.Applied})
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(ctx, "m1", &id))

	// A ledger entry pointing at a record that no longer exists, and a
	// record with a status outside the table.
	ghost := "no-such-id"
	require.NoError(t, store.MarkProcessed(ctx, "m2", &ghost))
	require.NoError(t, db.Create(&models.Application{ID: "bad", EventKey: "m3", Company: "B", Status: "Totally Made Up"}).Error)

	report, err := store.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Applications)
	assert.Equal(t, int64(2), report.ProcessedEvents)
	assert.Equal(t, int64(2), report.LinkedApplication)
	assert.Equal(t, int64(0), report.DuplicateKeys)
	assert.Equal(t, int64(1), report.DanglingLedger)
	assert.Equal(t, int64(1), report.InvalidStatuses)
	assert.Equal(t, int64(0), report.MissingEventKeys)
}

// TestStore_EngineIntegration drives the reconciliation engine through the
// real gorm store: create, re-deliver with a status advance, then fold in a
// fuzzy duplicate.
func TestStore_EngineIntegration(t *testing.T) {
	store := NewStore(setupTestDB(t, "store_engine"))
	engine := reconcile.NewEngine(store, zap.NewNop())
	ctx := context.Background()

	created, err := engine.Apply(ctx, &reconcile.IncomingEvent{
		EventKey:        "msg-1",
		Company:         "Stripe",
		JobTitle:        "Software Engineer",
		Status:          status.Applied,
		ApplicationDate: date(2026, 3, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeCreated, created.Outcome)

	updated, err := engine.Apply(ctx, &reconcile.IncomingEvent{
		EventKey: "msg-1",
		Company:  "Stripe",
		Status:   status.Interview,
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUpdated, updated.Outcome)

	merged, err := engine.Apply(ctx, &reconcile.IncomingEvent{
		EventKey:        "msg-2",
		Company:         "Stripe",
		JobTitle:        "Software Engineer",
		Location:        "Remote",
		Status:          status.Offer,
		ApplicationDate: date(2026, 3, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeMerged, merged.Outcome)
	assert.Equal(t, created.ApplicationID, merged.ApplicationID)

	app, err := store.FindByEventKey(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, status.Offer, app.Status)
	assert.Equal(t, "Remote", app.Location)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
