// Package record holds archived-document records and their custody state.
// Records are created when a document enters the archive and advanced
// exclusively by the lifecycle engine (or an audited administrative
// override); content destruction itself happens outside this system, the
// engine only marks eligibility.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/category"
)

// State is a record's custody state. Transitions are strictly monotonic
// forward; semi_active is skipped when the category has no semi-active
// phase. The legal-hold overlay is tracked separately (internal/hold), not
// as a stored state.
type State string

const (
	StateActive     State = "active"
	StateSemiActive State = "semi_active"
	StateArchived   State = "archived"
	StateExpired    State = "expired"
	StateDestroyed  State = "destroyed"
)

var stateRank = map[State]int{
	StateActive:     0,
	StateSemiActive: 1,
	StateArchived:   2,
	StateExpired:    3,
	StateDestroyed:  4,
}

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrBackwardTransition is returned when an override attempts to move a
	// record backward along the custody chain.
	ErrBackwardTransition = errors.New("custody states only move forward")

	// ErrInvalidFingerprint is returned for malformed content fingerprints.
	ErrInvalidFingerprint = errors.New("fingerprint must be a 64-char hex SHA-256")
)

// Valid reports whether s is a known custody state.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether a record in this state is finished with the
// lifecycle. Destroyed records are never swept again.
func (s State) Terminal() bool {
	return s == StateDestroyed
}

// Before reports whether s comes strictly before other on the custody chain.
func (s State) Before(other State) bool {
	return stateRank[s] < stateRank[other]
}

// ArchiveRecord is one archived document's lifecycle row.
type ArchiveRecord struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	// CategorySlug is populated on reads that join the category; empty otherwise.
	CategorySlug string `json:"category_slug,omitempty"`

	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`

	State          State     `json:"state"`
	StateChangedAt time.Time `json:"state_changed_at"`

	// RetentionExpiresAt is computed once at creation from the category's
	// rules; nil for perpetual categories. Re-derived only when the category
	// is flagged retroactive.
	RetentionExpiresAt *time.Time `json:"retention_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a record entering the archive under the given category at the
// counting start instant. The retention expiry is frozen here.
func New(orgID uuid.UUID, cat *category.RetentionCategory, fingerprint, title string, now time.Time) (*ArchiveRecord, error) {
	if err := ValidateFingerprint(fingerprint); err != nil {
		return nil, err
	}
	return &ArchiveRecord{
		ID:                 uuid.New(),
		OrganizationID:     orgID,
		CategoryID:         cat.ID,
		CategorySlug:       cat.Slug,
		Fingerprint:        fingerprint,
		Title:              title,
		State:              StateActive,
		StateChangedAt:     now,
		RetentionExpiresAt: cat.ExpiryFor(now),
		CreatedAt:          now,
	}, nil
}

// Fingerprint computes the canonical content fingerprint for a payload.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ValidateFingerprint checks the canonical fingerprint form.
func ValidateFingerprint(fp string) error {
	if len(fp) != 64 {
		return fmt.Errorf("%w: got %d chars", ErrInvalidFingerprint, len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	return nil
}
