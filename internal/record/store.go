package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles CRUD for the archive_records table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `ar.id, ar.organization_id, ar.category_id, COALESCE(rc.slug, ''),
	ar.fingerprint, ar.title, ar.state, ar.state_changed_at, ar.retention_expires_at,
	ar.created_at, ar.updated_at`

const recordFrom = ` FROM archive_records ar
	LEFT JOIN retention_categories rc ON rc.id = ar.category_id`

func scanRecord(row interface{ Scan(...any) error }) (*ArchiveRecord, error) {
	var r ArchiveRecord
	err := row.Scan(&r.ID, &r.OrganizationID, &r.CategoryID, &r.CategorySlug,
		&r.Fingerprint, &r.Title, &r.State, &r.StateChangedAt, &r.RetentionExpiresAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Insert(ctx context.Context, r *ArchiveRecord) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archive_records (id, organization_id, category_id, fingerprint, title,
			state, state_changed_at, retention_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.OrganizationID, r.CategoryID, r.Fingerprint, r.Title,
		r.State, r.StateChangedAt, r.RetentionExpiresAt, r.CreatedAt)
	return err
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*ArchiveRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+recordFrom+` WHERE ar.id = $1`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListByOrg returns an organization's records, optionally filtered by state
// and category slug.
func (s *Store) ListByOrg(ctx context.Context, orgID uuid.UUID, state State, categorySlug string, limit, offset int) ([]ArchiveRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + recordFrom + ` WHERE ar.organization_id = $1`
	args := []any{orgID}
	if state != "" {
		args = append(args, state)
		query += fmt.Sprintf(" AND ar.state = $%d", len(args))
	}
	if categorySlug != "" {
		args = append(args, categorySlug)
		query += fmt.Sprintf(" AND rc.slug = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY ar.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArchiveRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// ListSweepable streams the records the sweeps must evaluate: every
// organization's non-terminal, non-expired records that are not under an open
// legal hold. Held records are filtered here so the engine never sees them.
// Pages by keyset on (created_at, id) so records advancing out of the filter
// mid-sweep cannot shift the page window; pass a zero time for the first page.
func (s *Store) ListSweepable(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]ArchiveRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+recordFrom+`
		LEFT JOIN legal_holds lh ON lh.record_id = ar.id AND lh.released_at IS NULL
		WHERE ar.state IN ('active', 'semi_active', 'archived')
		  AND lh.id IS NULL
		  AND (ar.created_at, ar.id) > ($1, $2)
		ORDER BY ar.created_at, ar.id
		LIMIT $3`, after, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArchiveRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// AdvanceState moves a record from one custody state to the next with a
// compare-and-swap on the current state. Returns false when the stored state
// no longer matches, which makes repeated sweeps at the same wall-clock time
// no-ops and serializes racing writers without an explicit lock.
func (s *Store) AdvanceState(ctx context.Context, id uuid.UUID, from, to State, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE archive_records SET state = $1, state_changed_at = $2, updated_at = NOW()
		WHERE id = $3 AND state = $4`,
		to, now, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// OverrideState is the audited administrative escape hatch. It takes a row
// lock so a concurrent sweep cannot interleave, and enforces forward-only
// movement along the custody chain.
func (s *Store) OverrideState(ctx context.Context, id uuid.UUID, to State, now time.Time) (*ArchiveRecord, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown custody state %q", to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current State
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM archive_records WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !current.Before(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, current, to)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE archive_records SET state = $1, state_changed_at = $2, updated_at = NOW() WHERE id = $3`,
		to, now, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ExistsByFingerprint reports whether the organization already archived
// content with this fingerprint.
func (s *Store) ExistsByFingerprint(ctx context.Context, orgID uuid.UUID, fingerprint string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM archive_records WHERE organization_id = $1 AND fingerprint = $2)`,
		orgID, fingerprint).Scan(&exists)
	return exists, err
}
