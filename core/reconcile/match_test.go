package reconcile

import (
	"context"
	"testing"
	"time"

	"apptrack/core/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EventKeyWinsOverEverything(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, &Application{
		EventKey: "e1",
		Company:  "Google",
		JobTitle: "Software Engineer",
		Status:   status.Applied,
	})
	require.NoError(t, err)

	// Same key, but also a related key and a fuzzy-matchable company: rule 1
	// must win without consulting the others.
	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e1",
		Company:         "Google",
		RelatedEventKey: "does-not-exist",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyEventKey, match.Strategy)
	assert.Equal(t, id, match.Target.ID)
}

func TestResolve_ExplicitLinkThroughLedger(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, &Application{EventKey: "e1", Company: "Google"})
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(ctx, "e1", &id))

	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e2",
		Company:         "Totally Different Co",
		RelatedEventKey: "e1",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyExplicitLink, match.Strategy)
	assert.Equal(t, id, match.Target.ID)
}

func TestResolve_ExplicitLinkFollowsFollowUps(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	// e1 created the record; e2 merged into it. An event linking to e2 must
	// land on e1's record through the ledger.
	id, err := store.Insert(ctx, &Application{EventKey: "e1", Company: "Google"})
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(ctx, "e1", &id))
	require.NoError(t, store.MarkProcessed(ctx, "e2", &id))

	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e3",
		Company:         "Google",
		RelatedEventKey: "e2",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyExplicitLink, match.Strategy)
	assert.Equal(t, id, match.Target.ID)
}

func TestResolve_LinkToDiscardedEventFallsThrough(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	// Discarded events sit in the ledger with a null reference; a link to one
	// resolves nothing and the fuzzy strategy takes over.
	require.NoError(t, store.MarkProcessed(ctx, "spam-1", nil))

	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e5",
		Company:         "Nowhere Inc",
		RelatedEventKey: "spam-1",
	})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolve_FuzzySubstringBothDirections(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, &Application{
		EventKey: "e4",
		Company:  "Amazon.com",
		JobTitle: "Data Scientist",
	})
	require.NoError(t, err)

	// Incoming company contained by the stored one.
	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey: "e5",
		Company:  "Amazon",
		JobTitle: "Data Scientist",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyFuzzy, match.Strategy)

	// Stored company contained by the incoming one.
	match, err = Resolve(ctx, store, store, &IncomingEvent{
		EventKey: "e6",
		Company:  "Amazon.com Services LLC",
		JobTitle: "Data Scientist",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyFuzzy, match.Strategy)
}

func TestResolve_FuzzyRequiresCompany(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, &Application{EventKey: "e1", Company: "Google"})
	require.NoError(t, err)

	match, err := Resolve(ctx, store, store, &IncomingEvent{EventKey: "e2", JobTitle: "Engineer"})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolve_FuzzyDateWindow(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := store.Insert(ctx, &Application{
		EventKey:        "e1",
		Company:         "Stripe",
		JobTitle:        "Backend Engineer",
		ApplicationDate: datePtr(2024, time.March, 1),
	})
	require.NoError(t, err)

	// 3 days apart: inside the window.
	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e2",
		Company:         "Stripe",
		JobTitle:        "Backend Engineer",
		ApplicationDate: datePtr(2024, time.March, 4),
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyFuzzy, match.Strategy)

	// 45 days apart: a different application round.
	match, err = Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e3",
		Company:         "Stripe",
		JobTitle:        "Backend Engineer",
		ApplicationDate: datePtr(2024, time.April, 15),
	})
	require.NoError(t, err)
	assert.Nil(t, match)

	// Missing incoming date: never blocks.
	match, err = Resolve(ctx, store, store, &IncomingEvent{
		EventKey: "e4",
		Company:  "Stripe",
		JobTitle: "Backend Engineer",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
}

func TestResolve_FuzzyPrefersMostRecentCandidate(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	older, err := store.Insert(ctx, &Application{
		EventKey:        "e1",
		Company:         "Google",
		JobTitle:        "Software Engineer",
		ApplicationDate: datePtr(2024, time.January, 10),
	})
	require.NoError(t, err)
	newer, err := store.Insert(ctx, &Application{
		EventKey:        "e2",
		Company:         "Google",
		JobTitle:        "Software Engineer",
		ApplicationDate: datePtr(2024, time.January, 20),
	})
	require.NoError(t, err)
	_ = older

	match, err := Resolve(ctx, store, store, &IncomingEvent{
		EventKey:        "e3",
		Company:         "Google",
		JobTitle:        "Software Engineer",
		ApplicationDate: datePtr(2024, time.January, 22),
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, newer, match.Target.ID)
}

func TestRoleMatches(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		existing string
		want     bool
	}{
		{"missing incoming title", "", "Software Engineer", true},
		{"missing existing title", "Software Engineer", "", true},
		{"two shared tokens", "Senior Software Engineer", "Software Engineer II", true},
		{"one shared token short incoming", "Data Scientist", "Data Analyst", true},
		{"one shared token long incoming", "Senior Staff Platform Engineer", "Software Engineer", false},
		{"no overlap", "Product Manager", "Software Engineer", false},
		{"case insensitive", "SOFTWARE ENGINEER", "software engineer", true},
		{"comma keeps tokens apart", "Data Scientist, Analytics", "Data Scientist", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roleMatches(tt.incoming, tt.existing))
		})
	}
}
