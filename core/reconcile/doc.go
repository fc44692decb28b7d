// Package reconcile implements the record reconciliation engine: the decision
// procedure that folds a stream of classifier-extracted application events
// into a canonical, deduplicated set of application records.
//
// Every event originates from exactly one email and carries that email's
// identifier as its event key. Applying an event answers one question: is
// this a brand-new application, a reprocessing of an email we have already
// seen, an explicitly linked follow-up, or a fuzzy-matched duplicate of an
// existing application?
//
// # Architecture
//
// The engine is built from three pieces:
//
//  1. Resolve: picks at most one merge target using three strategies in
//     strict priority order: exact event-key match, explicit link through
//     the processed-event ledger, and a deterministic fuzzy heuristic over
//     company substrings and job-title token overlap. Pure; no side effects.
//
//  2. Merge policy: builds a typed FieldMap of writes. Targets found by key
//     or explicit link take last-write-wins; fuzzy-matched targets take
//     fill-forward (existing values are never overwritten). The status field
//     is special-cased through the status package so a record's pipeline
//     stage can never move backward.
//
//  3. Engine.Apply: orchestrates the above against the store interfaces
//     inside a single transaction, so the application write and the ledger
//     write commit together or not at all.
//
// Apply is idempotent per event key once committed and safely re-attemptable
// if it never committed. It must run with a single logical writer: the fuzzy
// strategy reads the candidate set and later writes based on that read, so
// concurrent Apply calls over overlapping candidates can create duplicates.
package reconcile
