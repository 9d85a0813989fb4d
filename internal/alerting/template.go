package alerting

import (
	"fmt"

	"github.com/osteele/liquid"
)

const preArchiveSubject = `[Retention] "{{ record_title | default: fingerprint }}" will be archived on {{ target_date }}`

const preDeletionSubject = `[Retention] "{{ record_title | default: fingerprint }}" reaches end of retention on {{ target_date }}`

const preArchiveBody = `The document "{{ record_title | default: fingerprint }}" in category {{ category_name }} ({{ category_slug }}) will be automatically archived on {{ target_date }}.

This notice was configured {{ offset }} ahead of the event. Once archived, the document leaves day-to-day circulation and stays preserved until the end of its legal retention period.

Review it here: {{ dashboard_url }}/records/{{ record_id }}
`

const preDeletionBody = `The document "{{ record_title | default: fingerprint }}" in category {{ category_name }} ({{ category_slug }}) reaches the end of its legal retention period on {{ target_date }} and will become eligible for destruction.

This notice was configured {{ offset }} ahead of the event. If this document must be preserved (e.g. pending litigation), place a legal hold before the retention window elapses.

Review it here: {{ dashboard_url }}/records/{{ record_id }}
`

// TemplateRenderer renders notification subjects and bodies with Liquid.
type TemplateRenderer struct {
	engine       *liquid.Engine
	dashboardURL string
}

func NewTemplateRenderer(dashboardURL string) *TemplateRenderer {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value any, fallback string) any {
		if value == nil {
			return fallback
		}
		if s, ok := value.(string); ok && s == "" {
			return fallback
		}
		return value
	})
	return &TemplateRenderer{engine: engine, dashboardURL: dashboardURL}
}

// Render produces the subject and body for a notification.
func (t *TemplateRenderer) Render(n *Notification) (subject, body string, err error) {
	bindings := map[string]any{
		"record_id":     n.RecordID.String(),
		"record_title":  n.RecordTitle,
		"fingerprint":   shortFingerprint(n.Fingerprint),
		"category_name": n.CategoryName,
		"category_slug": n.CategorySlug,
		"target_date":   n.TargetAt.Format("2006-01-02"),
		"offset":        fmt.Sprintf("%d %s", n.Rule.OffsetValue, n.Rule.OffsetUnit),
		"dashboard_url": t.dashboardURL,
	}

	subjectTpl, bodyTpl := preArchiveSubject, preArchiveBody
	if n.Family == FamilyPreDeletion {
		subjectTpl, bodyTpl = preDeletionSubject, preDeletionBody
	}

	subject, err = t.engine.ParseAndRenderString(subjectTpl, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err = t.engine.ParseAndRenderString(bodyTpl, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject, body, nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
