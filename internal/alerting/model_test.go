package alerting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAlertRuleValidate(t *testing.T) {
	base := AlertRule{
		CategoryID:  uuid.New(),
		Family:      FamilyPreArchive,
		OffsetValue: 3,
		OffsetUnit:  UnitMonths,
	}

	tests := []struct {
		name    string
		mutate  func(r *AlertRule)
		wantErr bool
	}{
		{"valid", func(r *AlertRule) {}, false},
		{"missing category", func(r *AlertRule) { r.CategoryID = uuid.Nil }, true},
		{"unknown family", func(r *AlertRule) { r.Family = "post_archive" }, true},
		{"unknown unit", func(r *AlertRule) { r.OffsetUnit = "fortnights" }, true},
		{"zero offset", func(r *AlertRule) { r.OffsetValue = 0 }, true},
		{"negative offset", func(r *AlertRule) { r.OffsetValue = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTriggerAt(t *testing.T) {
	target := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rule AlertRule
		want time.Time
	}{
		{"3 months", AlertRule{OffsetValue: 3, OffsetUnit: UnitMonths}, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)},
		{"2 weeks", AlertRule{OffsetValue: 2, OffsetUnit: UnitWeeks}, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"10 days", AlertRule{OffsetValue: 10, OffsetUnit: UnitDays}, time.Date(2026, 6, 5, 12, 0, 0, 0, time.UTC)},
		{"48 hours", AlertRule{OffsetValue: 48, OffsetUnit: UnitHours}, time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.TriggerAt(target))
		})
	}
}
