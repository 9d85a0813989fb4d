package lifecycle

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/record"
)

// RecordSource is the slice of the record store the engine needs.
type RecordSource interface {
	ListSweepable(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]record.ArchiveRecord, error)
	AdvanceState(ctx context.Context, id uuid.UUID, from, to record.State, now time.Time) (bool, error)
}

// CategorySource provides the immutable category snapshot for one sweep run.
type CategorySource interface {
	SnapshotAll(ctx context.Context) (map[uuid.UUID]category.RetentionCategory, error)
}

// HoldSource provides cumulative closed-hold durations per record.
type HoldSource interface {
	FrozenDurations(ctx context.Context) (map[uuid.UUID]time.Duration, error)
}

// Summary aggregates one sweep run for observability. Skipped counts records
// the sweep tolerated and moved past (e.g. missing category); Errored counts
// unexpected store failures. Neither aborts the sweep for other records.
type Summary struct {
	Processed  int       `json:"processed"`
	Advanced   int       `json:"advanced"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Engine is the lifecycle transition sweep.
type Engine struct {
	records    RecordSource
	categories CategorySource
	holds      HoldSource
	batchSize  int
}

func NewEngine(records RecordSource, categories CategorySource, holds HoldSource, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Engine{records: records, categories: categories, holds: holds, batchSize: batchSize}
}

// RunSweep evaluates every eligible record against its category rules at the
// given wall-clock instant. Safe to re-run at the same instant: each record's
// stored state already reflects applied transitions, so the second run is a
// no-op. Returns a non-nil summary even when individual records errored; a
// non-nil error means the sweep could not start or page at all.
func (e *Engine) RunSweep(ctx context.Context, now time.Time) (*Summary, error) {
	sum := &Summary{StartedAt: now}

	categories, err := e.categories.SnapshotAll(ctx)
	if err != nil {
		return nil, err
	}
	frozen, err := e.holds.FrozenDurations(ctx)
	if err != nil {
		return nil, err
	}

	var after time.Time
	var afterID uuid.UUID
	for {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		batch, err := e.records.ListSweepable(ctx, after, afterID, e.batchSize)
		if err != nil {
			return sum, err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			e.sweepRecord(ctx, &batch[i], categories, frozen[batch[i].ID], now, sum)
		}
		last := batch[len(batch)-1]
		after, afterID = last.CreatedAt, last.ID
	}

	sum.FinishedAt = time.Now()
	log.Printf("[LifecycleEngine] sweep done: processed=%d advanced=%d skipped=%d errored=%d",
		sum.Processed, sum.Advanced, sum.Skipped, sum.Errored)
	recordSweepMetrics(sum)
	return sum, nil
}

func (e *Engine) sweepRecord(ctx context.Context, r *record.ArchiveRecord, categories map[uuid.UUID]category.RetentionCategory, frozen time.Duration, now time.Time, sum *Summary) {
	sum.Processed++

	cat, ok := categories[r.CategoryID]
	if !ok {
		log.Printf("[LifecycleEngine] skip record %s: category %s missing", r.ID, r.CategoryID)
		transitionsSkipped.Inc()
		sum.Skipped++
		return
	}

	advanced := false
	for {
		tr := Advance(r, &cat, now, frozen)
		if tr == nil {
			break
		}
		applied, err := e.records.AdvanceState(ctx, r.ID, tr.From, tr.To, now)
		if err != nil {
			log.Printf("[LifecycleEngine] advance record %s %s->%s: %v", r.ID, tr.From, tr.To, err)
			sum.Errored++
			return
		}
		if !applied {
			// Lost the compare-and-swap to a concurrent writer; the other
			// writer's state wins and the next tick re-evaluates.
			return
		}
		recordsAdvanced.WithLabelValues(string(tr.To)).Inc()
		r.State = tr.To
		r.StateChangedAt = now
		advanced = true
	}
	if advanced {
		sum.Advanced++
	}
}
