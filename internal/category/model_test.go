package category

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCategory() *RetentionCategory {
	return &RetentionCategory{
		OrganizationID:           uuid.New(),
		Slug:                     "fiscal",
		DisplayName:              "Documents fiscaux",
		ActiveDurationYears:      1,
		AlertBeforeArchiveMonths: 3,
		RetentionYears:           10,
		NotifyAdmin:              true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *RetentionCategory)
		wantErr bool
	}{
		{"valid", func(c *RetentionCategory) {}, false},
		{"missing org", func(c *RetentionCategory) { c.OrganizationID = uuid.Nil }, true},
		{"blank slug", func(c *RetentionCategory) { c.Slug = "  " }, true},
		{"blank display name", func(c *RetentionCategory) { c.DisplayName = "" }, true},
		{"zero active duration", func(c *RetentionCategory) { c.ActiveDurationYears = 0 }, true},
		{"semi phase without duration", func(c *RetentionCategory) { c.HasSemiActivePhase = true }, true},
		{"semi duration without phase", func(c *RetentionCategory) { c.SemiActiveDurationYears = 2 }, true},
		{"negative alert lead", func(c *RetentionCategory) { c.AlertBeforeArchiveMonths = -1 }, true},
		{"zero retention", func(c *RetentionCategory) { c.RetentionYears = 0 }, true},
		{"phases exceed retention", func(c *RetentionCategory) {
			c.HasSemiActivePhase = true
			c.SemiActiveDurationYears = 10
		}, true},
		{"phases exceed retention allowed when perpetual", func(c *RetentionCategory) {
			c.IsPerpetual = true
			c.RetentionYears = 0
			c.HasSemiActivePhase = true
			c.SemiActiveDurationYears = 50
		}, false},
		{"all-members excludes admin", func(c *RetentionCategory) { c.NotifyAllMembers = true }, true},
		{"all-members alone", func(c *RetentionCategory) {
			c.NotifyAdmin = false
			c.NotifyAllMembers = true
		}, false},
		{"responsible without email", func(c *RetentionCategory) { c.NotifyResponsible = true }, true},
		{"responsible with email", func(c *RetentionCategory) {
			c.NotifyResponsible = true
			c.ResponsibleEmail = "dpo@example.org"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCategory()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArchiveAfterYears(t *testing.T) {
	c := validCategory()
	assert.Equal(t, 1, c.ArchiveAfterYears())

	c.HasSemiActivePhase = true
	c.SemiActiveDurationYears = 3
	assert.Equal(t, 4, c.ArchiveAfterYears())
}

func TestExpiryFor(t *testing.T) {
	c := validCategory()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	exp := c.ExpiryFor(created)
	require.NotNil(t, exp)
	assert.Equal(t, created.AddDate(10, 0, 0), *exp)

	c.IsPerpetual = true
	assert.Nil(t, c.ExpiryFor(created))
}
