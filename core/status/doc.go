// Package status defines the application pipeline stages and the rules
// governing transitions between them.
//
// The pipeline has seven stages ordered by priority:
//
//	Applied(0) < Recruiter Screen(1) < Interview(2)
//	  < Rejected/Ghosted/Dropped(3) < Offer(4)
//
// Rejected, Ghosted and Dropped are terminal-negative outcomes sharing one
// priority level; Offer is the absorbing terminal-positive outcome. The Allow
// function encodes the monotonic transition rule: a stage may only advance,
// active-pipeline stages may be re-asserted, and the only escape from a
// terminal-negative outcome is an Offer.
//
// # Usage
//
//	if status.Allow(current, proposed) {
//	    // write proposed
//	}
package status
