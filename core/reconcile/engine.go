package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"apptrack/core/status"

	"go.uber.org/zap"
)

// ErrMissingEventKey marks a malformed event rejected before any resolution
// attempt. The caller must not retry it.
var ErrMissingEventKey = errors.New("event key is required")

// Engine applies incoming events to the application set with idempotent,
// all-or-nothing semantics.
//
// Apply must not run concurrently with itself: the fuzzy strategy's
// read-then-write over the candidate set requires a single logical writer
// (see the package documentation). The surrounding ingestion loop applies
// events strictly one at a time.
type Engine struct {
	uow    UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates an engine over the given unit of work.
func NewEngine(uow UnitOfWork, logger *zap.Logger) *Engine {
	return &Engine{
		uow:    uow,
		logger: logger,
		now:    time.Now,
	}
}

// Apply reconciles one event against the current application set.
//
// Events without a company are discarded but still recorded in the ledger so
// they are never retried. Store failures roll back both writes and surface as
// retryable errors; Apply can be re-invoked with the same event once the
// fault clears.
func (e *Engine) Apply(ctx context.Context, ev *IncomingEvent) (*Result, error) {
	if ev == nil || strings.TrimSpace(ev.EventKey) == "" {
		return nil, ErrMissingEventKey
	}

	var res *Result
	err := e.uow.Transact(ctx, func(tx UnitOfWork) error {
		var txErr error
		res, txErr = e.apply(ctx, tx, ev)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("apply event %s: %w", ev.EventKey, err)
	}
	return res, nil
}

func (e *Engine) apply(ctx context.Context, tx UnitOfWork, ev *IncomingEvent) (*Result, error) {
	if strings.TrimSpace(ev.Company) == "" {
		// Not a job-application email we can anchor to anything. Record the
		// key with a null reference so the message is never retried.
		if err := tx.MarkProcessed(ctx, ev.EventKey, nil); err != nil {
			return nil, err
		}
		e.logger.Info("event discarded, no company identified",
			zap.String("event_key", ev.EventKey),
			zap.String("sender", ev.Sender),
		)
		return &Result{Outcome: OutcomeDiscarded, Strategy: StrategyNone}, nil
	}

	match, err := Resolve(ctx, tx, tx, ev)
	if err != nil {
		return nil, err
	}

	if match == nil {
		return e.insert(ctx, tx, ev)
	}
	return e.merge(ctx, tx, ev, match)
}

func (e *Engine) insert(ctx context.Context, tx UnitOfWork, ev *IncomingEvent) (*Result, error) {
	now := e.now()

	app := &Application{
		EventKey:        ev.EventKey,
		Company:         ev.Company,
		JobTitle:        ev.JobTitle,
		Location:        ev.Location,
		Status:          status.Default,
		ApplicationDate: ev.ApplicationDate,
		IngestionDate:   ev.IngestionDate,
		Sender:          ev.Sender,
		Subject:         ev.Subject,
		RelatedEventKey: ev.RelatedEventKey,
		Confidence:      ev.Confidence,
		Reasoning:       ev.Reasoning,
		LastUpdated:     now,
		CreatedAt:       now,
	}
	if ev.Status != "" {
		app.Status = ev.Status
	}

	id, err := tx.Insert(ctx, app)
	if err != nil {
		return nil, err
	}
	if err := tx.MarkProcessed(ctx, ev.EventKey, &id); err != nil {
		return nil, err
	}

	e.logger.Info("application created",
		zap.String("event_key", ev.EventKey),
		zap.String("application_id", id),
		zap.String("company", ev.Company),
		zap.String("status", string(app.Status)),
	)
	return &Result{Outcome: OutcomeCreated, ApplicationID: id, Strategy: StrategyNone}, nil
}

func (e *Engine) merge(ctx context.Context, tx UnitOfWork, ev *IncomingEvent, match *Match) (*Result, error) {
	target := match.Target
	fields := buildFieldMap(target, ev, match.Strategy)

	if ev.Status != "" {
		if status.Allow(target.Status, ev.Status) {
			fields[FieldStatus] = ev.Status
		} else {
			// Log-worthy, not error-worthy: the rest of the event still lands.
			e.logger.Info("status transition not allowed, keeping current",
				zap.String("event_key", ev.EventKey),
				zap.String("application_id", target.ID),
				zap.String("current", string(target.Status)),
				zap.String("proposed", string(ev.Status)),
			)
		}
	}

	// UpdateFields refreshes last_updated even when the event contributed
	// nothing new, marking that the record was reconciled against.
	if err := tx.UpdateFields(ctx, target.ID, fields); err != nil {
		return nil, err
	}
	if err := tx.MarkProcessed(ctx, ev.EventKey, &target.ID); err != nil {
		return nil, err
	}

	outcome := OutcomeMerged
	if match.Strategy == StrategyEventKey {
		outcome = OutcomeUpdated
	}

	e.logger.Info("application reconciled",
		zap.String("event_key", ev.EventKey),
		zap.String("application_id", target.ID),
		zap.String("strategy", match.Strategy.String()),
		zap.String("outcome", string(outcome)),
	)
	return &Result{Outcome: outcome, ApplicationID: target.ID, Strategy: match.Strategy}, nil
}
