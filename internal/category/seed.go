package category

import (
	"context"
	"embed"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// seedTemplate is the on-disk shape of a jurisdiction default template.
type seedTemplate struct {
	Jurisdiction string `yaml:"jurisdiction"`
	Categories   []struct {
		Slug                     string `yaml:"slug"`
		DisplayName              string `yaml:"display_name"`
		ActiveDurationYears      int    `yaml:"active_duration_years"`
		HasSemiActivePhase       bool   `yaml:"has_semi_active_phase"`
		SemiActiveDurationYears  int    `yaml:"semi_active_duration_years"`
		AlertBeforeArchiveMonths int    `yaml:"alert_before_archive_months"`
		RetentionYears           int    `yaml:"retention_years"`
		IsPerpetual              bool   `yaml:"is_perpetual"`
	} `yaml:"categories"`
}

func loadTemplate(jurisdiction string) (*seedTemplate, error) {
	data, err := templateFS.ReadFile("templates/" + jurisdiction + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no seed template for jurisdiction %q", jurisdiction)
	}
	var tpl seedTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse seed template %s: %w", jurisdiction, err)
	}
	return &tpl, nil
}

// SeedDefaults bulk-creates the jurisdiction default categories for an
// organization. Idempotent: if the organization already has any category the
// call is a no-op reporting a created count of 0.
func (r *Registry) SeedDefaults(ctx context.Context, orgID uuid.UUID, jurisdiction string) (int, error) {
	if jurisdiction == "" {
		jurisdiction = "generic"
	}

	existing, err := r.store.CountForOrg(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		log.Printf("[CategoryRegistry] seed skipped for org %s: %d categories already exist", orgID, existing)
		return 0, nil
	}

	tpl, err := loadTemplate(jurisdiction)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, t := range tpl.Categories {
		c := &RetentionCategory{
			OrganizationID:           orgID,
			Slug:                     t.Slug,
			DisplayName:              t.DisplayName,
			JurisdictionRef:          tpl.Jurisdiction,
			ActiveDurationYears:      t.ActiveDurationYears,
			HasSemiActivePhase:       t.HasSemiActivePhase,
			SemiActiveDurationYears:  t.SemiActiveDurationYears,
			AlertBeforeArchiveMonths: t.AlertBeforeArchiveMonths,
			RetentionYears:           t.RetentionYears,
			IsPerpetual:              t.IsPerpetual,
			NotifyAdmin:              true,
		}
		if err := c.Validate(); err != nil {
			return created, fmt.Errorf("seed template %s/%s: %w", jurisdiction, t.Slug, err)
		}
		if err := r.store.Insert(ctx, c); err != nil {
			return created, err
		}
		if err := r.syncDefaultRule(ctx, c); err != nil {
			return created, err
		}
		created++
	}

	log.Printf("[CategoryRegistry] seeded %d %s categories for org %s", created, jurisdiction, orgID)
	return created, nil
}
