package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMarkFired(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	recordID, ruleID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO fired_alerts`).
		WithArgs(recordID, ruleID, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := store.MarkFired(context.Background(), recordID, ruleID, now)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Conflict path: the row already exists, zero rows affected.
	mock.ExpectExec(`INSERT INTO fired_alerts`).
		WithArgs(recordID, ruleID, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err = store.MarkFired(context.Background(), recordID, ruleID, now)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSyncCategoryDefault(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	categoryID := uuid.New()
	ctx := context.Background()

	// Existing default rule gets updated in place.
	mock.ExpectExec(`UPDATE alert_rules SET offset_value`).
		WithArgs(6, categoryID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SyncCategoryDefault(ctx, categoryID, 6))

	// No default rule yet: the update touches nothing and an insert follows.
	mock.ExpectExec(`UPDATE alert_rules SET offset_value`).
		WithArgs(3, categoryID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO alert_rules`).
		WithArgs(sqlmock.AnyArg(), categoryID, FamilyPreArchive, 3, UnitMonths, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SyncCategoryDefault(ctx, categoryID, 3))

	// Months <= 0 removes the default rule.
	mock.ExpectExec(`DELETE FROM alert_rules WHERE category_id`).
		WithArgs(categoryID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SyncCategoryDefault(ctx, categoryID, 0))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSnapshotRules(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	catA, catB := uuid.New(), uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "category_id", "family", "offset_value", "offset_unit", "category_default", "created_at"}).
		AddRow(uuid.New(), catA, "pre_archive", 3, "months", true, now).
		AddRow(uuid.New(), catA, "pre_deletion", 6, "months", false, now).
		AddRow(uuid.New(), catB, "pre_archive", 2, "weeks", false, now)
	mock.ExpectQuery(`SELECT id, category_id, family`).WillReturnRows(rows)

	snapshot, err := store.SnapshotRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot[catA], 2)
	assert.Len(t, snapshot[catB], 1)
	assert.Equal(t, FamilyPreArchive, snapshot[catB][0].Family)

	assert.NoError(t, mock.ExpectationsWereMet())
}
