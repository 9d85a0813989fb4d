// Package lifecycle implements the time-driven state machine that advances
// every archived record through its custody states. The transition function
// is pure; the engine wraps it with batch loading, per-record error
// isolation, and idempotent persistence.
package lifecycle

import (
	"time"

	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/record"
)

// Transition is one custody state change produced by Advance.
type Transition struct {
	From record.State
	To   record.State
}

// SemiActiveAt returns the instant a record becomes semi-active: the end of
// the active phase, pushed out by the cumulative frozen duration.
func SemiActiveAt(r *record.ArchiveRecord, cat *category.RetentionCategory, frozen time.Duration) time.Time {
	return r.CreatedAt.AddDate(cat.ActiveDurationYears, 0, 0).Add(frozen)
}

// ArchiveAt returns the projected auto-archive instant: creation plus the
// active and semi-active phases, pushed out by the cumulative frozen
// duration. Also the target event time for pre-archive alerts.
func ArchiveAt(r *record.ArchiveRecord, cat *category.RetentionCategory, frozen time.Duration) time.Time {
	return r.CreatedAt.AddDate(cat.ArchiveAfterYears(), 0, 0).Add(frozen)
}

// Advance computes the next due transition for a record, or nil when none is
// due. It is a pure function of its arguments: the sweep applies transitions
// one step at a time and calls Advance again, so a record far behind the
// clock catches up within a single sweep while a re-run at the same instant
// finds the stored state already advanced and does nothing.
//
// Held records never reach Advance; the sweep filters them out. Frozen time
// already served (closed holds) is subtracted by shifting each phase
// threshold forward by the cumulative frozen duration.
func Advance(r *record.ArchiveRecord, cat *category.RetentionCategory, now time.Time, frozen time.Duration) *Transition {
	switch r.State {
	case record.StateActive:
		if cat.HasSemiActivePhase {
			if !now.Before(SemiActiveAt(r, cat, frozen)) {
				return &Transition{From: record.StateActive, To: record.StateSemiActive}
			}
			return nil
		}
		if !now.Before(ArchiveAt(r, cat, frozen)) {
			return &Transition{From: record.StateActive, To: record.StateArchived}
		}
	case record.StateSemiActive:
		if !now.Before(ArchiveAt(r, cat, frozen)) {
			return &Transition{From: record.StateSemiActive, To: record.StateArchived}
		}
	case record.StateArchived:
		// Perpetual categories never expire. The retention window runs from
		// the counting start event regardless of holds; holds only gate the
		// transition while open.
		if cat.IsPerpetual || r.RetentionExpiresAt == nil {
			return nil
		}
		if !now.Before(*r.RetentionExpiresAt) {
			return &Transition{From: record.StateArchived, To: record.StateExpired}
		}
	}
	return nil
}
