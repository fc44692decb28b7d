package status

import "strings"

// Status is one of the seven pipeline stages.
type Status string

const (
	Applied         Status = "Applied"
	RecruiterScreen Status = "Recruiter Screen"
	Interview       Status = "Interview"
	Rejected        Status = "Rejected"
	Ghosted         Status = "Ghosted"
	Dropped         Status = "Dropped"
	Offer           Status = "Offer"
)

// Default is the stage assigned to a newly created application when the
// originating event carries no status.
const Default = Applied

// priorities maps each stage to its rank in the pipeline. The three
// terminal-negative outcomes intentionally share rank 3.
var priorities = map[Status]int{
	Applied:         0,
	RecruiterScreen: 1,
	Interview:       2,
	Rejected:        3,
	Ghosted:         3,
	Dropped:         3,
	Offer:           4,
}

// terminalNegative is the rank shared by Rejected, Ghosted and Dropped.
const terminalNegative = 3

// All returns the seven stages in pipeline order.
func All() []Status {
	return []Status{Applied, RecruiterScreen, Interview, Rejected, Ghosted, Dropped, Offer}
}

// Valid reports whether s is one of the seven known stages.
func Valid(s Status) bool {
	_, ok := priorities[s]
	return ok
}

// Priority returns the rank of s. Unrecognized values rank as 0, the same as
// Applied, so a garbled status from the classifier can never push a record
// forward.
func Priority(s Status) int {
	if p, ok := priorities[s]; ok {
		return p
	}
	return 0
}

// Terminal reports whether s is an outcome stage (Rejected, Ghosted, Dropped
// or Offer).
func Terminal(s Status) bool {
	return Priority(s) >= terminalNegative && Valid(s)
}

// Allow reports whether a record currently at current may be moved to
// proposed.
//
// Forward progress is always allowed, including terminal-negative to Offer.
// Within the active pipeline (rank < 3) a same-rank write is allowed so that
// reprocessing the same stage is a no-op rather than a violation. Lateral
// moves between the terminal-negative outcomes are only allowed when the
// value is literally unchanged, and nothing leaves a terminal state except
// toward Offer.
func Allow(current, proposed Status) bool {
	cur := Priority(current)
	next := Priority(proposed)

	switch {
	case next > cur:
		return true
	case cur == terminalNegative && next == terminalNegative:
		return current == proposed
	case cur >= terminalNegative:
		return false
	case next >= cur && next < terminalNegative:
		return true
	default:
		return false
	}
}

// legacyLabels maps stage names from the retired 4-level table to their
// 7-stage equivalents.
var legacyLabels = map[string]Status{
	"in progress": RecruiterScreen,
	"withdrawn":   Dropped,
}

// NormalizeLegacy maps a stored status label onto the 7-stage table,
// translating retired labels and correcting casing. ok is false when the
// label matches neither table.
func NormalizeLegacy(raw string) (s Status, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if Valid(Status(trimmed)) {
		return Status(trimmed), true
	}
	if mapped, found := legacyLabels[strings.ToLower(trimmed)]; found {
		return mapped, true
	}
	for _, known := range All() {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return "", false
}
