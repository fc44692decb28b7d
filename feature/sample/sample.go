// Package sample seeds the database with demo applications across every
// pipeline stage, and removes them again. Sample records flow through the
// reconciliation engine like real events, so the demo data obeys the same
// rules as ingested mail.
package sample

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"apptrack/core/reconcile"
	"apptrack/core/status"
)

// KeyPrefix marks sample event keys so they can be wiped without touching
// real data.
const KeyPrefix = "sample-"

type seedEntry struct {
	company  string
	jobTitle string
	location string
	status   status.Status
}

// seedEntries covers every pipeline stage, weighted towards the early ones
// so the funnel has shape.
var seedEntries = []seedEntry{
	{"Google", "Software Engineer", "Singapore", status.Applied},
	{"Microsoft", "Data Analyst", "USA", status.Applied},
	{"Amazon", "Product Manager", "Remote", status.Applied},
	{"Meta", "Data Scientist", "UK", status.Applied},
	{"Apple", "Backend Engineer", "Netherlands", status.Applied},

	{"Netflix", "Frontend Engineer", "USA", status.RecruiterScreen},
	{"Uber", "DevOps Engineer", "Canada", status.RecruiterScreen},
	{"Airbnb", "ML Engineer", "Australia", status.RecruiterScreen},
	{"Stripe", "Business Analyst", "Germany", status.RecruiterScreen},

	{"Shopify", "Product Designer", "Remote", status.Interview},
	{"LinkedIn", "UX Designer", "USA", status.Interview},
	{"Salesforce", "Engineering Manager", "Singapore", status.Interview},

	{"Oracle", "Software Engineer", "France", status.Rejected},
	{"IBM", "Data Analyst", "Japan", status.Rejected},
	{"Google", "Product Manager", "UK", status.Rejected},
	{"Microsoft", "Backend Engineer", "Netherlands", status.Rejected},

	{"Amazon", "Frontend Engineer", "Canada", status.Ghosted},
	{"Meta", "DevOps Engineer", "Australia", status.Ghosted},
	{"Netflix", "Data Analyst", "Germany", status.Ghosted},

	{"Uber", "Business Analyst", "Remote", status.Dropped},
	{"Airbnb", "Product Designer", "USA", status.Dropped},

	{"Stripe", "Software Engineer", "Singapore", status.Offer},
	{"Shopify", "Data Scientist", "USA", status.Offer},
}

// Deleter removes applications and their ledger rows by event key prefix.
type Deleter interface {
	DeleteByEventKeyPrefix(ctx context.Context, prefix string) (int64, error)
}

// Generator seeds and wipes demo data.
type Generator struct {
	engine *reconcile.Engine
	store  Deleter
	logger *zap.Logger
	rand   *rand.Rand
	now    func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(engine *reconcile.Engine, store Deleter, logger *zap.Logger) *Generator {
	return &Generator{
		engine: engine,
		store:  store,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Seed applies one event per seed entry through the engine. Returns how many
// records were created.
func (g *Generator) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, entry := range seedEntries {
		ev := g.buildEvent(entry)
		result, err := g.engine.Apply(ctx, ev)
		if err != nil {
			return created, fmt.Errorf("seed sample data: %w", err)
		}
		if result.Outcome == reconcile.OutcomeCreated {
			created++
		}
		g.logger.Debug("Sample event applied",
			zap.String("event_key", ev.EventKey),
			zap.String("outcome", string(result.Outcome)))
	}
	g.logger.Info("Sample data seeded", zap.Int("created", created))
	return created, nil
}

// Wipe removes every sample record. Returns how many records were deleted.
func (g *Generator) Wipe(ctx context.Context) (int64, error) {
	deleted, err := g.store.DeleteByEventKeyPrefix(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("wipe sample data: %w", err)
	}
	g.logger.Info("Sample data wiped", zap.Int64("deleted", deleted))
	return deleted, nil
}

func (g *Generator) buildEvent(entry seedEntry) *reconcile.IncomingEvent {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), " ", "-")
	}
	eventKey := fmt.Sprintf("%s%s-%s-%04d", KeyPrefix, slug(entry.company), slug(entry.jobTitle), g.rand.Intn(10000))

	// Spread application dates over the last three months so the dashboard
	// has something to plot.
	appDate := g.now().UTC().AddDate(0, 0, -g.rand.Intn(90)).Truncate(24 * time.Hour)
	ingestion := appDate.Add(12 * time.Hour)

	domain := strings.ReplaceAll(strings.ToLower(entry.company), " ", "")
	return &reconcile.IncomingEvent{
		EventKey:        eventKey,
		Company:         entry.company,
		JobTitle:        entry.jobTitle,
		Location:        entry.location,
		Status:          entry.status,
		ApplicationDate: &appDate,
		IngestionDate:   &ingestion,
		Sender:          fmt.Sprintf("noreply@%s.com", domain),
		Subject:         fmt.Sprintf("Application for %s at %s", entry.jobTitle, entry.company),
		Confidence:      reconcile.ConfidenceHigh,
		Reasoning:       "demo seed record",
	}
}
