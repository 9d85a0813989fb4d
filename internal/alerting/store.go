package alerting

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Store handles CRUD for alert_rules and the fired_alerts ledger.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, r *AlertRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_rules (id, category_id, family, offset_value, offset_unit, category_default)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.CategoryID, r.Family, r.OffsetValue, r.OffsetUnit, r.CategoryDefault)
	return err
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	return err
}

func (s *Store) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]AlertRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, family, offset_value, offset_unit, category_default, created_at
		FROM alert_rules WHERE category_id = $1 ORDER BY family, offset_value`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// SnapshotRules loads every alert rule keyed by category id. The alert sweep
// takes this once per run, mirroring the category snapshot.
func (s *Store) SnapshotRules(ctx context.Context) (map[uuid.UUID][]AlertRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, family, offset_value, offset_unit, category_default, created_at
		FROM alert_rules ORDER BY category_id, family, offset_value`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[uuid.UUID][]AlertRule)
	for _, r := range rules {
		snapshot[r.CategoryID] = append(snapshot[r.CategoryID], r)
	}
	return snapshot, nil
}

func collectRules(rows *sql.Rows) ([]AlertRule, error) {
	var rules []AlertRule
	for rows.Next() {
		var r AlertRule
		if err := rows.Scan(&r.ID, &r.CategoryID, &r.Family, &r.OffsetValue, &r.OffsetUnit, &r.CategoryDefault, &r.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SyncCategoryDefault keeps the category-default pre-archive rule in step
// with the category's alertBeforeArchiveMonths. Months <= 0 removes the
// default rule. Implements category.DefaultRuleSyncer.
func (s *Store) SyncCategoryDefault(ctx context.Context, categoryID uuid.UUID, months int) error {
	if months <= 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM alert_rules WHERE category_id = $1 AND category_default`, categoryID)
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET offset_value = $1, offset_unit = 'months'
		WHERE category_id = $2 AND category_default`, months, categoryID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	rule := &AlertRule{
		CategoryID:      categoryID,
		Family:          FamilyPreArchive,
		OffsetValue:     months,
		OffsetUnit:      UnitMonths,
		CategoryDefault: true,
	}
	return s.Insert(ctx, rule)
}

// MarkFired writes the ledger row for a (record, rule) pair. Returns true
// when this call inserted the row, false when it already existed. ON
// CONFLICT DO NOTHING makes the write race-safe across overlapping sweeps:
// exactly one caller ever sees true.
func (s *Store) MarkFired(ctx context.Context, recordID, ruleID uuid.UUID, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fired_alerts (record_id, rule_id, fired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, rule_id) DO NOTHING`,
		recordID, ruleID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FiredFor returns the fired-alert history of a record, oldest first.
func (s *Store) FiredFor(ctx context.Context, recordID uuid.UUID) ([]FiredAlert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, rule_id, fired_at FROM fired_alerts
		WHERE record_id = $1 ORDER BY fired_at`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fired []FiredAlert
	for rows.Next() {
		var f FiredAlert
		if err := rows.Scan(&f.RecordID, &f.RuleID, &f.FiredAt); err != nil {
			return nil, err
		}
		fired = append(fired, f)
	}
	return fired, rows.Err()
}
