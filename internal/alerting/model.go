// Package alerting implements the alert chain: configurable lead-time
// offsets before the two irreversible lifecycle events (auto-archive and
// retention expiry), and the processor that fires exactly one notification
// per (record, rule) pair across any number of sweep runs.
package alerting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Family selects which lifecycle event an alert rule leads.
type Family string

const (
	// FamilyPreArchive warns before an active/semi-active record is
	// auto-archived.
	FamilyPreArchive Family = "pre_archive"
	// FamilyPreDeletion warns before an archived record's retention window
	// elapses and it becomes eligible for destruction.
	FamilyPreDeletion Family = "pre_deletion"
)

// Unit is the unit of an alert rule's lead-time offset.
type Unit string

const (
	UnitHours  Unit = "hours"
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// ErrValidation wraps alert rule validation failures.
var ErrValidation = errors.New("invalid alert rule")

// AlertRule is one link of a category's alert chain. Multiple rules per
// (category, family) are allowed. Rules are pure configuration; the engine
// never mutates them at runtime.
type AlertRule struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Family      Family    `json:"family"`
	OffsetValue int       `json:"offset_value"`
	OffsetUnit  Unit      `json:"offset_unit"`
	// CategoryDefault marks the pre-archive rule derived from the category's
	// alertBeforeArchiveMonths; the registry keeps it in sync on upsert.
	CategoryDefault bool      `json:"category_default"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *AlertRule) Validate() error {
	if r.CategoryID == uuid.Nil {
		return fmt.Errorf("%w: category id is required", ErrValidation)
	}
	switch r.Family {
	case FamilyPreArchive, FamilyPreDeletion:
	default:
		return fmt.Errorf("%w: unknown family %q", ErrValidation, r.Family)
	}
	switch r.OffsetUnit {
	case UnitHours, UnitDays, UnitWeeks, UnitMonths:
	default:
		return fmt.Errorf("%w: unknown offset unit %q", ErrValidation, r.OffsetUnit)
	}
	if r.OffsetValue < 1 {
		return fmt.Errorf("%w: offset value must be positive", ErrValidation)
	}
	return nil
}

// TriggerAt computes the instant this rule fires for a given target event
// time: targetEventTime minus the offset. Month offsets use calendar
// arithmetic, the rest are fixed-width.
func (r *AlertRule) TriggerAt(target time.Time) time.Time {
	switch r.OffsetUnit {
	case UnitMonths:
		return target.AddDate(0, -r.OffsetValue, 0)
	case UnitWeeks:
		return target.AddDate(0, 0, -7*r.OffsetValue)
	case UnitDays:
		return target.AddDate(0, 0, -r.OffsetValue)
	default:
		return target.Add(-time.Duration(r.OffsetValue) * time.Hour)
	}
}

// FiredAlert is the de-duplication ledger row: its existence is the
// guarantee that a (record, rule) pair notifies at most once, ever.
type FiredAlert struct {
	RecordID uuid.UUID `json:"record_id"`
	RuleID   uuid.UUID `json:"rule_id"`
	FiredAt  time.Time `json:"fired_at"`
}
