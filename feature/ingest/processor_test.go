package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"apptrack/core/reconcile"
	"apptrack/core/status"
	"apptrack/core/storage/mocks"
	"apptrack/feature/applications"
	"apptrack/feature/applications/models"
	"apptrack/feature/ingest"
)

type fakeSource struct {
	refs     []ingest.MessageRef
	messages map[string]*ingest.Message
	getErr   map[string]error
	marked   []string
	listErr  error
}

func (f *fakeSource) List(ctx context.Context) ([]ingest.MessageRef, error) {
	return f.refs, f.listErr
}

func (f *fakeSource) Get(ctx context.Context, id string) (*ingest.Message, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return msg, nil
}

func (f *fakeSource) MarkRead(ctx context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

// fakeClassifier returns canned events keyed by message ID and records how
// many existing applications each call saw.
type fakeClassifier struct {
	events      map[string]*reconcile.IncomingEvent
	digestSizes []int
}

func (f *fakeClassifier) Classify(ctx context.Context, msg *ingest.Message, existing []reconcile.Application) (*reconcile.IncomingEvent, error) {
	f.digestSizes = append(f.digestSizes, len(existing))
	ev, ok := f.events[msg.ID]
	if !ok {
		return nil, errors.New("unclassifiable message")
	}
	return ev, nil
}

func setupProcessorDB(t *testing.T, name string) *applications.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Application{}, &models.ProcessedEvent{}))
	return applications.NewStore(db)
}

func msgWithID(id string) *ingest.Message {
	return &ingest.Message{ID: id}
}

func TestProcessor_Run(t *testing.T) {
	store := setupProcessorDB(t, "proc_run")
	engine := reconcile.NewEngine(store, zap.NewNop())

	source := &fakeSource{
		refs: []ingest.MessageRef{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}},
		messages: map[string]*ingest.Message{
			"m1": msgWithID("m1"),
			"m2": msgWithID("m2"),
			"m3": msgWithID("m3"),
		},
	}
	classifier := &fakeClassifier{events: map[string]*reconcile.IncomingEvent{
		"m1": {EventKey: "m1", Company: "Stripe", JobTitle: "SWE", Status: status.Applied},
		// Follow-up on m1's application.
		"m2": {EventKey: "m2", Company: "Stripe", RelatedEventKey: "m1", Status: status.Interview},
		// No company, gets discarded.
		"m3": {EventKey: "m3"},
	}}

	processor := ingest.NewProcessor(source, classifier, engine, store,
		nil, "", ingest.Config{MarkAsRead: true}, zap.NewNop())

	summary, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Merged)
	assert.Equal(t, 1, summary.Discarded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"m1", "m2", "m3"}, source.marked)

	// The digest is refreshed after m1 creates a record, so m2 and m3 see it.
	assert.Equal(t, []int{0, 1, 1}, classifier.digestSizes)

	app, err := store.FindByEventKey(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, status.Interview, app.Status)
}

func TestProcessor_FailedMessageIsSkipped(t *testing.T) {
	store := setupProcessorDB(t, "proc_fail")
	engine := reconcile.NewEngine(store, zap.NewNop())

	source := &fakeSource{
		refs: []ingest.MessageRef{{ID: "m1"}, {ID: "m2"}},
		messages: map[string]*ingest.Message{
			"m2": msgWithID("m2"),
		},
		getErr: map[string]error{"m1": errors.New("transient fetch error")},
	}
	classifier := &fakeClassifier{events: map[string]*reconcile.IncomingEvent{
		"m2": {EventKey: "m2", Company: "Netflix", Status: status.Applied},
	}}

	processor := ingest.NewProcessor(source, classifier, engine, store,
		nil, "", ingest.Config{MarkAsRead: true}, zap.NewNop())

	summary, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Created)
	// A failed message keeps its UNREAD label so the next pass retries it.
	assert.Equal(t, []string{"m2"}, source.marked)
}

func TestProcessor_ListErrorAborts(t *testing.T) {
	store := setupProcessorDB(t, "proc_listerr")
	engine := reconcile.NewEngine(store, zap.NewNop())
	source := &fakeSource{listErr: errors.New("mailbox unavailable")}

	processor := ingest.NewProcessor(source, &fakeClassifier{}, engine, store,
		nil, "", ingest.Config{}, zap.NewNop())

	_, err := processor.Run(context.Background())
	assert.Error(t, err)
}

func TestProcessor_ArchivesRawMessages(t *testing.T) {
	store := setupProcessorDB(t, "proc_archive")
	engine := reconcile.NewEngine(store, zap.NewNop())

	source := &fakeSource{
		refs:     []ingest.MessageRef{{ID: "m1"}},
		messages: map[string]*ingest.Message{"m1": msgWithID("m1")},
	}
	classifier := &fakeClassifier{events: map[string]*reconcile.IncomingEvent{
		"m1": {EventKey: "m1", Company: "Uber", Status: status.Applied},
	}}

	archive := new(mocks.Client)
	archive.On("PutObject", mock.Anything, "apptrack", "raw-emails/m1.json",
		mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			raw, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			assert.True(t, bytes.Contains(raw, []byte(`"id":"m1"`)))
		}).
		Return(minio.UploadInfo{}, nil)

	processor := ingest.NewProcessor(source, classifier, engine, store,
		archive, "apptrack", ingest.Config{ArchivePrefix: "raw-emails/"}, zap.NewNop())

	summary, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	archive.AssertExpectations(t)
}

func TestProcessor_ArchiveFailureDoesNotBlock(t *testing.T) {
	store := setupProcessorDB(t, "proc_archive_fail")
	engine := reconcile.NewEngine(store, zap.NewNop())

	source := &fakeSource{
		refs:     []ingest.MessageRef{{ID: "m1"}},
		messages: map[string]*ingest.Message{"m1": msgWithID("m1")},
	}
	classifier := &fakeClassifier{events: map[string]*reconcile.IncomingEvent{
		"m1": {EventKey: "m1", Company: "Meta", Status: status.Applied},
	}}

	archive := new(mocks.Client)
	archive.On("PutObject", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("bucket gone"))

	processor := ingest.NewProcessor(source, classifier, engine, store,
		archive, "apptrack", ingest.Config{}, zap.NewNop())

	summary, err := processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Failed)
}
