package alerting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotification() *Notification {
	return &Notification{
		RecordID:     uuid.New(),
		RecordTitle:  "facture-2024-001.pdf",
		Fingerprint:  "0e1f2a3b4c5d6e7f0e1f2a3b4c5d6e7f0e1f2a3b4c5d6e7f0e1f2a3b4c5d6e7f",
		CategorySlug: "fiscal",
		CategoryName: "Documents fiscaux",
		Family:       FamilyPreArchive,
		TargetAt:     time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		Rule:         AlertRule{OffsetValue: 3, OffsetUnit: UnitMonths},
	}
}

func TestTemplateRenderer_PreArchive(t *testing.T) {
	r := NewTemplateRenderer("https://app.example.org")
	n := sampleNotification()

	subject, body, err := r.Render(n)
	require.NoError(t, err)
	assert.Contains(t, subject, "facture-2024-001.pdf")
	assert.Contains(t, subject, "archived on 2025-01-15")
	assert.Contains(t, body, "Documents fiscaux")
	assert.Contains(t, body, "3 months")
	assert.Contains(t, body, "https://app.example.org/records/"+n.RecordID.String())
}

func TestTemplateRenderer_PreDeletion(t *testing.T) {
	r := NewTemplateRenderer("https://app.example.org")
	n := sampleNotification()
	n.Family = FamilyPreDeletion

	subject, body, err := r.Render(n)
	require.NoError(t, err)
	assert.Contains(t, subject, "end of retention on 2025-01-15")
	assert.Contains(t, body, "legal hold")
}

func TestTemplateRenderer_FallsBackToFingerprint(t *testing.T) {
	r := NewTemplateRenderer("https://app.example.org")
	n := sampleNotification()
	n.RecordTitle = ""

	subject, _, err := r.Render(n)
	require.NoError(t, err)
	assert.Contains(t, subject, n.Fingerprint[:12])
	assert.NotContains(t, subject, n.Fingerprint)
}
