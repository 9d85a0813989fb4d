package category

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Store handles CRUD for the retention_categories table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const categoryColumns = `id, organization_id, slug, display_name, jurisdiction_ref,
	active_duration_years, has_semi_active_phase, semi_active_duration_years,
	alert_before_archive_months, retention_years, is_perpetual, retroactive,
	notify_admin, notify_responsible, notify_all_members, responsible_email,
	created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*RetentionCategory, error) {
	var c RetentionCategory
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Slug, &c.DisplayName, &c.JurisdictionRef,
		&c.ActiveDurationYears, &c.HasSemiActivePhase, &c.SemiActiveDurationYears,
		&c.AlertBeforeArchiveMonths, &c.RetentionYears, &c.IsPerpetual, &c.Retroactive,
		&c.NotifyAdmin, &c.NotifyResponsible, &c.NotifyAllMembers, &c.ResponsibleEmail,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*RetentionCategory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM retention_categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Store) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*RetentionCategory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM retention_categories WHERE organization_id = $1 AND slug = $2`,
		orgID, slug)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Store) List(ctx context.Context, orgID uuid.UUID) ([]RetentionCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM retention_categories WHERE organization_id = $1 ORDER BY slug`,
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []RetentionCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

func (s *Store) CountForOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM retention_categories WHERE organization_id = $1`, orgID).Scan(&n)
	return n, err
}

func (s *Store) Insert(ctx context.Context, c *RetentionCategory) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retention_categories (id, organization_id, slug, display_name, jurisdiction_ref,
			active_duration_years, has_semi_active_phase, semi_active_duration_years,
			alert_before_archive_months, retention_years, is_perpetual, retroactive,
			notify_admin, notify_responsible, notify_all_members, responsible_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.OrganizationID, c.Slug, c.DisplayName, c.JurisdictionRef,
		c.ActiveDurationYears, c.HasSemiActivePhase, c.SemiActiveDurationYears,
		c.AlertBeforeArchiveMonths, c.RetentionYears, c.IsPerpetual, c.Retroactive,
		c.NotifyAdmin, c.NotifyResponsible, c.NotifyAllMembers, c.ResponsibleEmail)
	return err
}

func (s *Store) Update(ctx context.Context, c *RetentionCategory) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE retention_categories SET display_name=$1, jurisdiction_ref=$2,
			active_duration_years=$3, has_semi_active_phase=$4, semi_active_duration_years=$5,
			alert_before_archive_months=$6, retention_years=$7, is_perpetual=$8, retroactive=$9,
			notify_admin=$10, notify_responsible=$11, notify_all_members=$12, responsible_email=$13,
			updated_at=NOW()
		WHERE id = $14`,
		c.DisplayName, c.JurisdictionRef,
		c.ActiveDurationYears, c.HasSemiActivePhase, c.SemiActiveDurationYears,
		c.AlertBeforeArchiveMonths, c.RetentionYears, c.IsPerpetual, c.Retroactive,
		c.NotifyAdmin, c.NotifyResponsible, c.NotifyAllMembers, c.ResponsibleEmail,
		c.ID)
	return err
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM retention_categories WHERE id = $1`, id)
	return err
}

// HasLiveRecords reports whether any non-destroyed record references the category.
func (s *Store) HasLiveRecords(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM archive_records WHERE category_id = $1 AND state != 'destroyed')`,
		categoryID).Scan(&exists)
	return exists, err
}

// HasExpiryBeyond reports whether any live record's already-computed expiry
// lies beyond the ceiling implied by the given retention years. Used to reject
// retention shrinks that would strand live records.
func (s *Store) HasExpiryBeyond(ctx context.Context, categoryID uuid.UUID, years int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM archive_records
			WHERE category_id = $1 AND state != 'destroyed'
			  AND retention_expires_at IS NOT NULL
			  AND retention_expires_at > created_at + ($2 * INTERVAL '1 year')
		)`, categoryID, years).Scan(&exists)
	return exists, err
}

// ReapplyExpiry re-derives retention_expires_at for all non-destroyed records
// of a category after a retroactive rule change. Returns rows touched.
func (s *Store) ReapplyExpiry(ctx context.Context, categoryID uuid.UUID, years int, perpetual bool) (int64, error) {
	var res sql.Result
	var err error
	if perpetual {
		res, err = s.db.ExecContext(ctx,
			`UPDATE archive_records SET retention_expires_at = NULL, updated_at = NOW()
			WHERE category_id = $1 AND state != 'destroyed'`, categoryID)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE archive_records
			SET retention_expires_at = created_at + ($2 * INTERVAL '1 year'), updated_at = NOW()
			WHERE category_id = $1 AND state != 'destroyed'`, categoryID, years)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SnapshotAll loads every category keyed by id. Sweeps take this immutable
// snapshot once per run so mid-sweep configuration edits cannot skew results.
func (s *Store) SnapshotAll(ctx context.Context) (map[uuid.UUID]RetentionCategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM retention_categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[uuid.UUID]RetentionCategory)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		snapshot[c.ID] = *c
	}
	return snapshot, rows.Err()
}
