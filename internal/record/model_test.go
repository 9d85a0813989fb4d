package record

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkivbox/retention/internal/category"
)

func TestStateOrdering(t *testing.T) {
	chain := []State{StateActive, StateSemiActive, StateArchived, StateExpired, StateDestroyed}
	for i, s := range chain {
		assert.True(t, s.Valid())
		for _, later := range chain[i+1:] {
			assert.True(t, s.Before(later), "%s should come before %s", s, later)
			assert.False(t, later.Before(s))
		}
	}
	assert.False(t, State("held").Valid())
	assert.True(t, StateDestroyed.Terminal())
	assert.False(t, StateExpired.Terminal())
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint([]byte("facture 2024"))
	assert.Len(t, fp, 64)
	require.NoError(t, ValidateFingerprint(fp))

	// Deterministic for identical content.
	assert.Equal(t, fp, Fingerprint([]byte("facture 2024")))
	assert.NotEqual(t, fp, Fingerprint([]byte("facture 2025")))
}

func TestValidateFingerprint(t *testing.T) {
	assert.ErrorIs(t, ValidateFingerprint("abc"), ErrInvalidFingerprint)
	assert.ErrorIs(t, ValidateFingerprint(strings.Repeat("z", 64)), ErrInvalidFingerprint)
	assert.NoError(t, ValidateFingerprint(strings.Repeat("0f", 32)))
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cat := &category.RetentionCategory{
		ID:                  uuid.New(),
		Slug:                "fiscal",
		ActiveDurationYears: 1,
		RetentionYears:      10,
	}
	orgID := uuid.New()
	fp := Fingerprint([]byte("content"))

	r, err := New(orgID, cat, fp, "bilan.pdf", now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, r.State)
	assert.Equal(t, "fiscal", r.CategorySlug)
	require.NotNil(t, r.RetentionExpiresAt)
	assert.Equal(t, now.AddDate(10, 0, 0), *r.RetentionExpiresAt)

	_, err = New(orgID, cat, "not-a-fingerprint", "bilan.pdf", now)
	assert.ErrorIs(t, err, ErrInvalidFingerprint)
}

func TestNew_PerpetualHasNoExpiry(t *testing.T) {
	cat := &category.RetentionCategory{
		ID:                  uuid.New(),
		Slug:                "statutaire",
		ActiveDurationYears: 5,
		IsPerpetual:         true,
	}

	r, err := New(uuid.New(), cat, Fingerprint([]byte("statuts")), "statuts.pdf", time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, r.RetentionExpiresAt)
}
