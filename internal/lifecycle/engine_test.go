package lifecycle

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/record"
)

// fakeRecords holds records in memory and applies the same compare-and-swap
// semantics as the SQL store.
type fakeRecords struct {
	byID map[uuid.UUID]*record.ArchiveRecord
}

func newFakeRecords(recs ...*record.ArchiveRecord) *fakeRecords {
	f := &fakeRecords{byID: make(map[uuid.UUID]*record.ArchiveRecord)}
	for _, r := range recs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRecords) ListSweepable(_ context.Context, after time.Time, afterID uuid.UUID, limit int) ([]record.ArchiveRecord, error) {
	var out []record.ArchiveRecord
	for _, r := range f.byID {
		switch r.State {
		case record.StateActive, record.StateSemiActive, record.StateArchived:
		default:
			continue
		}
		if r.CreatedAt.Before(after) {
			continue
		}
		if r.CreatedAt.Equal(after) && r.ID.String() <= afterID.String() {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecords) AdvanceState(_ context.Context, id uuid.UUID, from, to record.State, now time.Time) (bool, error) {
	r, ok := f.byID[id]
	if !ok || r.State != from {
		return false, nil
	}
	r.State = to
	r.StateChangedAt = now
	return true, nil
}

type fakeCategories map[uuid.UUID]category.RetentionCategory

func (f fakeCategories) SnapshotAll(context.Context) (map[uuid.UUID]category.RetentionCategory, error) {
	return f, nil
}

type fakeHolds map[uuid.UUID]time.Duration

func (f fakeHolds) FrozenDurations(context.Context) (map[uuid.UUID]time.Duration, error) {
	return f, nil
}

func TestEngine_SweepAdvancesDueRecords(t *testing.T) {
	cat := fiscalCategory()
	due := newRecord(cat, record.StateActive)
	notDue := newRecord(cat, record.StateActive)
	notDue.CreatedAt = t0.AddDate(0, 6, 0)

	recs := newFakeRecords(due, notDue)
	eng := NewEngine(recs, fakeCategories{cat.ID: *cat}, fakeHolds{}, 100)

	sum, err := eng.RunSweep(context.Background(), t0.AddDate(1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Advanced)
	assert.Equal(t, record.StateArchived, recs.byID[due.ID].State)
	assert.Equal(t, record.StateActive, recs.byID[notDue.ID].State)
}

func TestEngine_SweepIsIdempotent(t *testing.T) {
	cat := fiscalCategory()
	r := newRecord(cat, record.StateActive)
	recs := newFakeRecords(r)
	eng := NewEngine(recs, fakeCategories{cat.ID: *cat}, fakeHolds{}, 100)
	now := t0.AddDate(1, 0, 1)

	first, err := eng.RunSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Advanced)

	second, err := eng.RunSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Advanced)
	assert.Equal(t, record.StateArchived, recs.byID[r.ID].State)
}

func TestEngine_CatchUpCascadesWithinOneSweep(t *testing.T) {
	cat := semiActiveCategory()
	r := newRecord(cat, record.StateActive)
	recs := newFakeRecords(r)
	eng := NewEngine(recs, fakeCategories{cat.ID: *cat}, fakeHolds{}, 100)

	// 31 years after creation the record is past every threshold including
	// expiry; a single sweep walks it through each intermediate state.
	sum, err := eng.RunSweep(context.Background(), t0.AddDate(31, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Advanced)
	assert.Equal(t, record.StateExpired, recs.byID[r.ID].State)
}

func TestEngine_FrozenDurationAppliedPerRecord(t *testing.T) {
	cat := fiscalCategory()
	frozen := newRecord(cat, record.StateActive)
	twin := newRecord(cat, record.StateActive)
	recs := newFakeRecords(frozen, twin)

	holds := fakeHolds{frozen.ID: 120 * 24 * time.Hour}
	eng := NewEngine(recs, fakeCategories{cat.ID: *cat}, holds, 100)

	sum, err := eng.RunSweep(context.Background(), t0.AddDate(0, 13, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Advanced)
	assert.Equal(t, record.StateActive, recs.byID[frozen.ID].State)
	assert.Equal(t, record.StateArchived, recs.byID[twin.ID].State)
}

func TestEngine_MissingCategorySkipsRecord(t *testing.T) {
	cat := fiscalCategory()
	orphan := newRecord(cat, record.StateActive)
	recs := newFakeRecords(orphan)
	eng := NewEngine(recs, fakeCategories{}, fakeHolds{}, 100)

	sum, err := eng.RunSweep(context.Background(), t0.AddDate(5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Advanced)
	assert.Equal(t, record.StateActive, recs.byID[orphan.ID].State)
}

func TestEngine_PagesThroughLargeSets(t *testing.T) {
	cat := fiscalCategory()
	var all []*record.ArchiveRecord
	for i := 0; i < 7; i++ {
		r := newRecord(cat, record.StateActive)
		r.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
		all = append(all, r)
	}
	recs := newFakeRecords(all...)
	eng := NewEngine(recs, fakeCategories{cat.ID: *cat}, fakeHolds{}, 2)

	sum, err := eng.RunSweep(context.Background(), t0.AddDate(2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Processed)
	assert.Equal(t, 7, sum.Advanced)
}
