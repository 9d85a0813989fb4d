package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/category"
)

// MemberLookup returns the addressable identities of every member of an
// organization. Membership lives in the surrounding CRUD application; this
// core only consumes it.
type MemberLookup func(ctx context.Context, orgID uuid.UUID) ([]string, error)

// ConfigResolver resolves recipient sets from category configuration: the
// organization admin, the category responsible, or every member. The
// all-members selection overrides the other two; exclusivity is already
// enforced when the category is validated, so no arbitration happens here.
type ConfigResolver struct {
	AdminEmail string
	Members    MemberLookup
}

func (r *ConfigResolver) Resolve(ctx context.Context, cat *category.RetentionCategory) ([]string, error) {
	if cat.NotifyAllMembers {
		if r.Members == nil {
			return nil, fmt.Errorf("all-members recipients requested for %s but no member lookup configured", cat.Slug)
		}
		return r.Members(ctx, cat.OrganizationID)
	}

	var recipients []string
	if cat.NotifyAdmin && r.AdminEmail != "" {
		recipients = append(recipients, r.AdminEmail)
	}
	if cat.NotifyResponsible && cat.ResponsibleEmail != "" {
		recipients = append(recipients, cat.ResponsibleEmail)
	}
	return recipients, nil
}
