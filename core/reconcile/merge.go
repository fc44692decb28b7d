package reconcile

import (
	"strings"
	"time"
)

// buildFieldMap computes the non-status writes for merging ev into target
// under the given strategy.
//
// Targets found by their own event key or an explicit link take
// last-write-wins: every non-empty incoming value overwrites. Fuzzy-matched
// targets take fill-forward: an incoming value only lands where the target
// has none, since a heuristic match is not proof enough to clobber data that
// arrived under a stronger identity. Empty incoming values are never written
// under either policy, so a sparse event cannot blank out an existing record.
//
// The status field is excluded here; the engine routes it through the status
// hierarchy instead.
func buildFieldMap(target *Application, ev *IncomingEvent, strat Strategy) FieldMap {
	fields := make(FieldMap)

	putString := func(f Field, current, incoming string) {
		if strings.TrimSpace(incoming) == "" {
			return
		}
		if strat == StrategyFuzzy && strings.TrimSpace(current) != "" {
			return
		}
		fields[f] = incoming
	}

	putTime := func(f Field, current, incoming *time.Time) {
		if incoming == nil {
			return
		}
		if strat == StrategyFuzzy && current != nil {
			return
		}
		fields[f] = *incoming
	}

	putString(FieldCompany, target.Company, ev.Company)
	putString(FieldJobTitle, target.JobTitle, ev.JobTitle)
	putString(FieldLocation, target.Location, ev.Location)
	putString(FieldSender, target.Sender, ev.Sender)
	putString(FieldSubject, target.Subject, ev.Subject)
	putString(FieldRelatedEventKey, target.RelatedEventKey, ev.RelatedEventKey)
	putString(FieldConfidence, string(target.Confidence), string(ev.Confidence))
	putString(FieldReasoning, target.Reasoning, ev.Reasoning)
	putTime(FieldApplicationDate, target.ApplicationDate, ev.ApplicationDate)
	putTime(FieldIngestionDate, target.IngestionDate, ev.IngestionDate)

	return fields
}
