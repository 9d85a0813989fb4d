package alerting

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/lifecycle"
	"github.com/arkivbox/retention/internal/record"
)

// RecordSource is the slice of the record store the processor needs. Held
// records are filtered out at the source, which suspends trigger-time
// evaluation exactly as it suspends lifecycle transitions.
type RecordSource interface {
	ListSweepable(ctx context.Context, after time.Time, afterID uuid.UUID, limit int) ([]record.ArchiveRecord, error)
}

// CategorySource provides the immutable category snapshot for one sweep run.
type CategorySource interface {
	SnapshotAll(ctx context.Context) (map[uuid.UUID]category.RetentionCategory, error)
}

// HoldSource provides cumulative closed-hold durations per record.
type HoldSource interface {
	FrozenDurations(ctx context.Context) (map[uuid.UUID]time.Duration, error)
}

// RuleSource provides the alert chain snapshot keyed by category.
type RuleSource interface {
	SnapshotRules(ctx context.Context) (map[uuid.UUID][]AlertRule, error)
}

// Ledger is the fired-alerts de-duplication ledger.
type Ledger interface {
	MarkFired(ctx context.Context, recordID, ruleID uuid.UUID, now time.Time) (bool, error)
}

// Notification is one alert ready for dispatch.
type Notification struct {
	RecordID       uuid.UUID
	OrganizationID uuid.UUID
	RecordTitle    string
	Fingerprint    string
	CategorySlug   string
	CategoryName   string
	Family         Family
	// TargetAt is the lifecycle event the alert leads: the projected
	// auto-archive instant or the retention expiry.
	TargetAt   time.Time
	Rule       AlertRule
	Recipients []string
}

// Dispatcher delivers a notification. Delivery is fire-and-forget with any
// retry policy external to this core; a dispatch failure never rolls back
// the ledger row.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

// RecipientResolver maps a category's recipient-set selection to addressable
// identities. Resolution is an external collaborator behind this interface.
type RecipientResolver interface {
	Resolve(ctx context.Context, cat *category.RetentionCategory) ([]string, error)
}

// Summary aggregates one alert sweep run.
type Summary struct {
	Processed  int       `json:"processed"`
	Fired      int       `json:"fired"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Processor is the scheduled alert sweep. Durability policy: WRITE-THEN-EMIT.
// The ledger row is durably written before the notification goes out, so a
// crash between the two loses at most that one notification and a retry can
// never duplicate one.
type Processor struct {
	records    RecordSource
	categories CategorySource
	holds      HoldSource
	rules      RuleSource
	ledger     Ledger
	resolver   RecipientResolver
	dispatcher Dispatcher
	batchSize  int
}

func NewProcessor(records RecordSource, categories CategorySource, holds HoldSource,
	rules RuleSource, ledger Ledger, resolver RecipientResolver, dispatcher Dispatcher, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Processor{
		records:    records,
		categories: categories,
		holds:      holds,
		rules:      rules,
		ledger:     ledger,
		resolver:   resolver,
		dispatcher: dispatcher,
		batchSize:  batchSize,
	}
}

// RunSweep fires every due, not-yet-fired alert. A pair whose ledger row
// already exists is the expected steady state and is passed over silently,
// not logged as a failure.
func (p *Processor) RunSweep(ctx context.Context, now time.Time) (*Summary, error) {
	sum := &Summary{StartedAt: now}

	categories, err := p.categories.SnapshotAll(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := p.rules.SnapshotRules(ctx)
	if err != nil {
		return nil, err
	}
	frozen, err := p.holds.FrozenDurations(ctx)
	if err != nil {
		return nil, err
	}

	var after time.Time
	var afterID uuid.UUID
	for {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		batch, err := p.records.ListSweepable(ctx, after, afterID, p.batchSize)
		if err != nil {
			return sum, err
		}
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			p.sweepRecord(ctx, &batch[i], categories, rules, frozen[batch[i].ID], now, sum)
		}
		last := batch[len(batch)-1]
		after, afterID = last.CreatedAt, last.ID
	}

	sum.FinishedAt = time.Now()
	log.Printf("[AlertProcessor] sweep done: processed=%d fired=%d skipped=%d errored=%d",
		sum.Processed, sum.Fired, sum.Skipped, sum.Errored)
	return sum, nil
}

func (p *Processor) sweepRecord(ctx context.Context, r *record.ArchiveRecord,
	categories map[uuid.UUID]category.RetentionCategory, rules map[uuid.UUID][]AlertRule,
	frozen time.Duration, now time.Time, sum *Summary) {
	sum.Processed++

	cat, ok := categories[r.CategoryID]
	if !ok {
		log.Printf("[AlertProcessor] skip record %s: category %s missing", r.ID, r.CategoryID)
		sum.Skipped++
		return
	}

	// Match rules to the record's current trajectory: pre-archive only while
	// not yet archived, pre-deletion only while archived and not perpetual.
	var family Family
	var target time.Time
	switch r.State {
	case record.StateActive, record.StateSemiActive:
		family = FamilyPreArchive
		target = lifecycle.ArchiveAt(r, &cat, frozen)
	case record.StateArchived:
		if cat.IsPerpetual || r.RetentionExpiresAt == nil {
			return
		}
		family = FamilyPreDeletion
		target = *r.RetentionExpiresAt
	default:
		return
	}

	for _, rule := range rules[r.CategoryID] {
		if rule.Family != family {
			continue
		}
		if now.Before(rule.TriggerAt(target)) {
			continue
		}
		inserted, err := p.ledger.MarkFired(ctx, r.ID, rule.ID, now)
		if err != nil {
			log.Printf("[AlertProcessor] ledger write record=%s rule=%s: %v", r.ID, rule.ID, err)
			sum.Errored++
			continue
		}
		if !inserted {
			// Already fired on an earlier run; the ledger row is the
			// guarantee, nothing to do.
			continue
		}
		sum.Fired++
		alertsFired.WithLabelValues(string(family)).Inc()
		p.emit(ctx, r, &cat, family, target, rule)
	}
}

// emit resolves recipients and dispatches. The ledger row is already durable;
// failures here are logged and surface through metrics, never retried into a
// duplicate.
func (p *Processor) emit(ctx context.Context, r *record.ArchiveRecord, cat *category.RetentionCategory,
	family Family, target time.Time, rule AlertRule) {
	recipients, err := p.resolver.Resolve(ctx, cat)
	if err != nil {
		log.Printf("[AlertProcessor] resolve recipients for category %s: %v", cat.Slug, err)
		dispatchFailures.Inc()
		return
	}
	if len(recipients) == 0 {
		log.Printf("[AlertProcessor] no recipients configured for category %s, alert %s dropped", cat.Slug, rule.ID)
		return
	}

	n := &Notification{
		RecordID:       r.ID,
		OrganizationID: r.OrganizationID,
		RecordTitle:    r.Title,
		Fingerprint:    r.Fingerprint,
		CategorySlug:   cat.Slug,
		CategoryName:   cat.DisplayName,
		Family:         family,
		TargetAt:       target,
		Rule:           rule,
		Recipients:     recipients,
	}
	if err := p.dispatcher.Dispatch(ctx, n); err != nil {
		log.Printf("[AlertProcessor] dispatch record=%s rule=%s: %v", r.ID, rule.ID, err)
		dispatchFailures.Inc()
	}
}
