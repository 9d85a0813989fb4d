package category

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// RegistryStore is the persistence surface the registry needs. *Store is the
// production implementation; tests substitute an in-memory fake.
type RegistryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*RetentionCategory, error)
	GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*RetentionCategory, error)
	List(ctx context.Context, orgID uuid.UUID) ([]RetentionCategory, error)
	CountForOrg(ctx context.Context, orgID uuid.UUID) (int, error)
	Insert(ctx context.Context, c *RetentionCategory) error
	Update(ctx context.Context, c *RetentionCategory) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasLiveRecords(ctx context.Context, categoryID uuid.UUID) (bool, error)
	HasExpiryBeyond(ctx context.Context, categoryID uuid.UUID, years int) (bool, error)
	ReapplyExpiry(ctx context.Context, categoryID uuid.UUID, years int, perpetual bool) (int64, error)
}

// DefaultRuleSyncer keeps the category-default pre-archive alert rule in step
// with AlertBeforeArchiveMonths. Implemented by the alerting rule store.
type DefaultRuleSyncer interface {
	SyncCategoryDefault(ctx context.Context, categoryID uuid.UUID, months int) error
}

// Registry exposes the administrative operations over retention categories.
type Registry struct {
	store RegistryStore
	rules DefaultRuleSyncer
}

func NewRegistry(store RegistryStore, rules DefaultRuleSyncer) *Registry {
	return &Registry{store: store, rules: rules}
}

// Upsert creates or updates a category keyed by (organization, slug).
//
// On update, shrinking the retention ceiling below any live record's
// already-computed expiry is rejected with ErrRetentionShrink unless force is
// set. When the category is marked retroactive, duration edits re-derive the
// expiry of existing records; otherwise edits only apply to future records.
func (r *Registry) Upsert(ctx context.Context, c *RetentionCategory, force bool) (*RetentionCategory, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.store.GetBySlug(ctx, c.OrganizationID, c.Slug)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if err := r.store.Insert(ctx, c); err != nil {
			return nil, err
		}
		if err := r.syncDefaultRule(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt

	if !c.IsPerpetual && !force {
		beyond, err := r.store.HasExpiryBeyond(ctx, c.ID, c.RetentionYears)
		if err != nil {
			return nil, err
		}
		if beyond {
			return nil, fmt.Errorf("%w: category %s", ErrRetentionShrink, c.Slug)
		}
	}

	if err := r.store.Update(ctx, c); err != nil {
		return nil, err
	}

	if c.Retroactive {
		touched, err := r.store.ReapplyExpiry(ctx, c.ID, c.RetentionYears, c.IsPerpetual)
		if err != nil {
			return nil, err
		}
		if touched > 0 {
			log.Printf("[CategoryRegistry] retroactive update on %s re-derived expiry for %d records", c.Slug, touched)
		}
	}

	if err := r.syncDefaultRule(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category. Fails with ErrCategoryInUse while any
// non-destroyed record still references it.
func (r *Registry) Delete(ctx context.Context, orgID uuid.UUID, slug string) error {
	existing, err := r.store.GetBySlug(ctx, orgID, slug)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	inUse, err := r.store.HasLiveRecords(ctx, existing.ID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: %s", ErrCategoryInUse, slug)
	}
	return r.store.Delete(ctx, existing.ID)
}

// List returns all categories for an organization.
func (r *Registry) List(ctx context.Context, orgID uuid.UUID) ([]RetentionCategory, error) {
	return r.store.List(ctx, orgID)
}

// Get returns one category by slug, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, orgID uuid.UUID, slug string) (*RetentionCategory, error) {
	c, err := r.store.GetBySlug(ctx, orgID, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (r *Registry) syncDefaultRule(ctx context.Context, c *RetentionCategory) error {
	if r.rules == nil {
		return nil
	}
	return r.rules.SyncCategoryDefault(ctx, c.ID, c.AlertBeforeArchiveMonths)
}
