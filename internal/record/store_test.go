package record

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStoreAdvanceState(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE archive_records SET state`).
		WithArgs(StateArchived, now, id, StateActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := store.AdvanceState(context.Background(), id, StateActive, StateArchived, now)
	require.NoError(t, err)
	assert.True(t, applied)

	// Stored state no longer matches: the compare-and-swap touches nothing.
	mock.ExpectExec(`UPDATE archive_records SET state`).
		WithArgs(StateArchived, now, id, StateActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = store.AdvanceState(context.Background(), id, StateActive, StateArchived, now)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOverrideState_RejectsBackward(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT state FROM archive_records`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("archived"))
	mock.ExpectRollback()

	_, err := store.OverrideState(context.Background(), id, StateActive, time.Now().UTC())
	assert.ErrorIs(t, err, ErrBackwardTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOverrideState_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT state FROM archive_records`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"state"}))
	mock.ExpectRollback()

	_, err := store.OverrideState(context.Background(), id, StateDestroyed, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreOverrideState_UnknownState(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.OverrideState(context.Background(), uuid.New(), State("held"), time.Now().UTC())
	assert.Error(t, err)
}

func TestStoreListSweepable_ExcludesHeldAndTerminal(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	id := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "category_id", "slug", "fingerprint", "title",
		"state", "state_changed_at", "retention_expires_at", "created_at", "updated_at",
	}).AddRow(id, uuid.New(), uuid.New(), "fiscal", "", "doc.pdf", "active", now, nil, now, now)

	mock.ExpectQuery(`LEFT JOIN legal_holds lh`).
		WithArgs(time.Time{}, uuid.Nil, 100).
		WillReturnRows(rows)

	records, err := store.ListSweepable(context.Background(), time.Time{}, uuid.Nil, 100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Nil(t, records[0].RetentionExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreExistsByFingerprint(t *testing.T) {
	store, mock := newMockStore(t)
	orgID := uuid.New()
	fp := Fingerprint([]byte("doc"))

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(orgID, fp).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsByFingerprint(context.Background(), orgID, fp)
	require.NoError(t, err)
	assert.True(t, exists)
}
