// Package hold implements the legal-hold ("gel juridique") overlay: a
// temporary freeze that suspends lifecycle progression for a record, e.g.
// during litigation. Holds do not change the record's stored custody state;
// the sweeps skip held records and subtract the cumulative frozen duration
// from all elapsed-time math once holds are released.
package hold

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/record"
)

var (
	// ErrAlreadyFrozen is returned when freezing a record that already has an
	// unreleased hold. At most one hold is open per record at a time.
	ErrAlreadyFrozen = errors.New("record already has an active legal hold")

	// ErrNotFrozen is returned when releasing a record with no active hold.
	ErrNotFrozen = errors.New("record has no active legal hold")

	// ErrRecordDestroyed is returned when freezing a destroyed record.
	ErrRecordDestroyed = errors.New("cannot freeze a destroyed record")
)

// LegalHold is one freeze interval on a record. ReleasedAt is nil while the
// hold is active; a closed hold contributes ReleasedAt - FrozenAt to the
// record's cumulative frozen duration.
type LegalHold struct {
	ID              uuid.UUID    `json:"id"`
	RecordID        uuid.UUID    `json:"record_id"`
	FrozenFromState record.State `json:"frozen_from_state"`
	Reason          string       `json:"reason"`
	FrozenAt        time.Time    `json:"frozen_at"`
	ReleasedAt      *time.Time   `json:"released_at,omitempty"`
}

// Duration is the closed interval of the hold, or zero while it is open. An
// open hold contributes nothing until release; the engine simply does not
// touch held records.
func (h *LegalHold) Duration() time.Duration {
	if h.ReleasedAt == nil {
		return 0
	}
	return h.ReleasedAt.Sub(h.FrozenAt)
}

// Status summarizes a record's hold situation for read surfaces and sweeps.
type Status struct {
	Held         bool          `json:"held"`
	ActiveHold   *LegalHold    `json:"active_hold,omitempty"`
	FrozenTotal  time.Duration `json:"-"`
	FrozenTotalS float64       `json:"frozen_total_seconds"`
}
