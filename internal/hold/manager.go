package hold

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/arkivbox/retention/internal/record"
)

// Manager owns the legal_holds table and the freeze/release operations.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Freeze places a hold on a record, leaving its stored custody state
// unchanged. Fails with ErrAlreadyFrozen if an unreleased hold exists; the
// partial unique index on (record_id) WHERE released_at IS NULL is the
// authority, so concurrent freezes cannot both succeed.
func (m *Manager) Freeze(ctx context.Context, recordID uuid.UUID, reason string, now time.Time) (*LegalHold, error) {
	var state record.State
	err := m.db.QueryRowContext(ctx,
		`SELECT state FROM archive_records WHERE id = $1`, recordID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if state.Terminal() {
		return nil, ErrRecordDestroyed
	}

	h := &LegalHold{
		ID:              uuid.New(),
		RecordID:        recordID,
		FrozenFromState: state,
		Reason:          reason,
		FrozenAt:        now,
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO legal_holds (id, record_id, frozen_from_state, reason, frozen_at)
		VALUES ($1, $2, $3, $4, $5)`,
		h.ID, h.RecordID, h.FrozenFromState, h.Reason, h.FrozenAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return nil, ErrAlreadyFrozen
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Release closes the record's active hold. From this point the closed
// interval counts toward the record's cumulative frozen duration, which the
// sweeps subtract from elapsed-time calculations.
func (m *Manager) Release(ctx context.Context, recordID uuid.UUID, now time.Time) (*LegalHold, error) {
	row := m.db.QueryRowContext(ctx,
		`UPDATE legal_holds SET released_at = $1
		WHERE record_id = $2 AND released_at IS NULL
		RETURNING id, record_id, frozen_from_state, reason, frozen_at, released_at`,
		now, recordID)

	var h LegalHold
	err := row.Scan(&h.ID, &h.RecordID, &h.FrozenFromState, &h.Reason, &h.FrozenAt, &h.ReleasedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFrozen
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// StatusFor returns the hold status of a single record: whether it is held,
// the open hold if any, and the cumulative duration across closed holds.
func (m *Manager) StatusFor(ctx context.Context, recordID uuid.UUID) (*Status, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, record_id, frozen_from_state, reason, frozen_at, released_at
		FROM legal_holds WHERE record_id = $1 ORDER BY frozen_at`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Status{}
	for rows.Next() {
		var h LegalHold
		if err := rows.Scan(&h.ID, &h.RecordID, &h.FrozenFromState, &h.Reason, &h.FrozenAt, &h.ReleasedAt); err != nil {
			return nil, err
		}
		if h.ReleasedAt == nil {
			held := h
			st.Held = true
			st.ActiveHold = &held
		} else {
			st.FrozenTotal += h.Duration()
		}
	}
	st.FrozenTotalS = st.FrozenTotal.Seconds()
	return st, rows.Err()
}

// History returns every hold ever placed on a record, oldest first.
func (m *Manager) History(ctx context.Context, recordID uuid.UUID) ([]LegalHold, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, record_id, frozen_from_state, reason, frozen_at, released_at
		FROM legal_holds WHERE record_id = $1 ORDER BY frozen_at`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []LegalHold
	for rows.Next() {
		var h LegalHold
		if err := rows.Scan(&h.ID, &h.RecordID, &h.FrozenFromState, &h.Reason, &h.FrozenAt, &h.ReleasedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

// FrozenDurations returns, for every record with at least one closed hold,
// the summed frozen duration. The sweeps load this once per run alongside the
// category snapshot.
func (m *Manager) FrozenDurations(ctx context.Context) (map[uuid.UUID]time.Duration, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT record_id, SUM(EXTRACT(EPOCH FROM (released_at - frozen_at)))
		FROM legal_holds
		WHERE released_at IS NOT NULL
		GROUP BY record_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	durations := make(map[uuid.UUID]time.Duration)
	for rows.Next() {
		var id uuid.UUID
		var seconds float64
		if err := rows.Scan(&id, &seconds); err != nil {
			return nil, err
		}
		durations[id] = time.Duration(seconds * float64(time.Second))
	}
	return durations, rows.Err()
}
