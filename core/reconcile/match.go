package reconcile

import (
	"context"
	"strings"
	"time"
)

// Strategy identifies how a merge target was resolved.
type Strategy int

const (
	// StrategyNone means no target was found; the caller inserts a new record.
	StrategyNone Strategy = iota
	// StrategyEventKey means the event's own key already names a record.
	StrategyEventKey
	// StrategyExplicitLink means the event declared a related event key that
	// the ledger resolves to an existing record.
	StrategyExplicitLink
	// StrategyFuzzy means the heuristic over company and job title matched.
	StrategyFuzzy
)

// String returns the strategy name used in logs and results.
func (s Strategy) String() string {
	switch s {
	case StrategyEventKey:
		return "event_key"
	case StrategyExplicitLink:
		return "explicit_link"
	case StrategyFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Match is a resolved merge target.
type Match struct {
	Target   *Application
	Strategy Strategy
}

// maxDateGap is the widest spread between application dates under which two
// events can still describe the same application.
const maxDateGap = 30 * 24 * time.Hour

// Resolve returns at most one application to merge the event into, trying the
// three strategies in priority order. The first strategy that produces a
// target wins; later strategies are not consulted. A nil match means the
// event describes an application not seen before.
//
// Resolve reads but never writes; callers decide what to do with the answer.
func Resolve(ctx context.Context, apps ApplicationStore, events EventStore, ev *IncomingEvent) (*Match, error) {
	// Rule 1: the event's own key already names a record. Covers re-delivery
	// and reprocessing of the same email.
	if target, err := apps.FindByEventKey(ctx, ev.EventKey); err != nil {
		return nil, err
	} else if target != nil {
		return &Match{Target: target, Strategy: StrategyEventKey}, nil
	}

	// Rule 2: explicit link declared by the classifier, resolved through the
	// ledger so follow-ups of follow-ups land on the same record.
	if ev.RelatedEventKey != "" {
		entry, err := events.LookupProcessed(ctx, ev.RelatedEventKey)
		if err != nil {
			return nil, err
		}
		if entry != nil && entry.ApplicationID != nil {
			target, err := apps.FindByID(ctx, *entry.ApplicationID)
			if err != nil {
				return nil, err
			}
			if target != nil {
				return &Match{Target: target, Strategy: StrategyExplicitLink}, nil
			}
		}
	}

	// Rule 3: fuzzy heuristic, only meaningful with a company name.
	company := strings.TrimSpace(ev.Company)
	if company == "" {
		return nil, nil
	}

	candidates, err := apps.FindCandidatesByCompany(ctx, company)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		if !roleMatches(ev.JobTitle, c.JobTitle) {
			continue
		}
		if !datesClose(ev.ApplicationDate, c.ApplicationDate) {
			continue
		}
		// First candidate in store order is authoritative; no scoring.
		return &Match{Target: c, Strategy: StrategyFuzzy}, nil
	}

	return nil, nil
}

// roleMatches applies the job-title overlap heuristic: a missing title on
// either side matches anything; otherwise the titles must share at least two
// whitespace tokens, or one token when the incoming title has at most three.
func roleMatches(incoming, existing string) bool {
	inTokens := strings.Fields(strings.ToLower(incoming))
	ex := tokenize(existing)
	if len(inTokens) == 0 || len(ex) == 0 {
		return true
	}

	shared := 0
	seen := make(map[string]struct{}, len(inTokens))
	for _, tok := range inTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := ex[tok]; ok {
			shared++
		}
	}

	if shared >= 2 {
		return true
	}
	return shared >= 1 && len(inTokens) <= 3
}

// datesClose reports whether two application dates are within the fuzzy-match
// window. A missing date on either side never blocks a match.
func datesClose(a, b *time.Time) bool {
	if a == nil || b == nil {
		return true
	}
	gap := a.Sub(*b)
	if gap < 0 {
		gap = -gap
	}
	return gap <= maxDateGap
}

func tokenize(title string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(title))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
