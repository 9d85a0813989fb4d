// Package category implements the retention category registry: the named,
// per-organization timing rules that drive the lifecycle engine. Categories
// are pure configuration; all behavior lives in the lifecycle and alerting
// packages that consume them.
package category

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrValidation wraps all category rule validation failures.
	ErrValidation = errors.New("invalid category rules")

	// ErrCategoryInUse is returned when deleting a category that still has
	// non-destroyed records attached.
	ErrCategoryInUse = errors.New("category has live records")

	// ErrRetentionShrink is returned when a category update would move the
	// retention ceiling below an existing live record's computed expiry.
	// Callers can override with Force.
	ErrRetentionShrink = errors.New("retention shrink would orphan live record expiries")

	// ErrNotFound is returned when a category does not exist.
	ErrNotFound = errors.New("category not found")
)

// RetentionCategory defines the timing rules for one class of documents.
type RetentionCategory struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Slug           string    `json:"slug"`
	DisplayName    string    `json:"display_name"`
	JurisdictionRef string   `json:"jurisdiction_ref"`

	ActiveDurationYears     int  `json:"active_duration_years"`
	HasSemiActivePhase      bool `json:"has_semi_active_phase"`
	SemiActiveDurationYears int  `json:"semi_active_duration_years"`
	AlertBeforeArchiveMonths int `json:"alert_before_archive_months"`
	RetentionYears          int  `json:"retention_years"`
	IsPerpetual             bool `json:"is_perpetual"`

	// Retroactive controls whether duration edits re-derive the expiry of
	// records that already exist. Default false: expiry is frozen at record
	// creation and edits only apply to future records.
	Retroactive bool `json:"retroactive"`

	// Recipient selection for alert notifications. NotifyAllMembers is
	// mutually exclusive with the other two and overrides them; the
	// exclusivity is enforced at validation time, not at dispatch time.
	NotifyAdmin       bool   `json:"notify_admin"`
	NotifyResponsible bool   `json:"notify_responsible"`
	NotifyAllMembers  bool   `json:"notify_all_members"`
	ResponsibleEmail  string `json:"responsible_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants on category timing rules. Violations are
// rejected synchronously at configuration time, never silently clamped.
func (c *RetentionCategory) Validate() error {
	if c.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrValidation)
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if c.ActiveDurationYears < 1 {
		return fmt.Errorf("%w: active duration must be at least 1 year", ErrValidation)
	}
	if c.HasSemiActivePhase && c.SemiActiveDurationYears < 1 {
		return fmt.Errorf("%w: semi-active phase requires a duration of at least 1 year", ErrValidation)
	}
	if !c.HasSemiActivePhase && c.SemiActiveDurationYears != 0 {
		return fmt.Errorf("%w: semi-active duration set without a semi-active phase", ErrValidation)
	}
	if c.AlertBeforeArchiveMonths < 0 {
		return fmt.Errorf("%w: alert lead time cannot be negative", ErrValidation)
	}
	if !c.IsPerpetual {
		if c.RetentionYears < 1 {
			return fmt.Errorf("%w: retention years must be at least 1 for non-perpetual categories", ErrValidation)
		}
		if c.ActiveDurationYears+c.SemiActiveDurationYears > c.RetentionYears {
			return fmt.Errorf("%w: active + semi-active durations (%dy) exceed total retention (%dy)",
				ErrValidation, c.ActiveDurationYears+c.SemiActiveDurationYears, c.RetentionYears)
		}
	}
	if c.NotifyAllMembers && (c.NotifyAdmin || c.NotifyResponsible) {
		return fmt.Errorf("%w: all-members recipient set is exclusive of admin/responsible", ErrValidation)
	}
	if c.NotifyResponsible && strings.TrimSpace(c.ResponsibleEmail) == "" {
		return fmt.Errorf("%w: responsible recipient requires a responsible email", ErrValidation)
	}
	return nil
}

// ArchiveAfterYears is the number of years a record spends before reaching
// the archived state (active phase plus semi-active phase when present).
func (c *RetentionCategory) ArchiveAfterYears() int {
	return c.ActiveDurationYears + c.SemiActiveDurationYears
}

// ExpiryFor computes the retention expiry for a record created at the given
// instant. Perpetual categories have no expiry and return nil.
func (c *RetentionCategory) ExpiryFor(createdAt time.Time) *time.Time {
	if c.IsPerpetual {
		return nil
	}
	t := createdAt.AddDate(c.RetentionYears, 0, 0)
	return &t
}
