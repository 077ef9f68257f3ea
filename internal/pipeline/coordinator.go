// Package pipeline drives the enrichment loop over the catalog store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talentsift/catalog-pipeline/internal/batch"
	"github.com/talentsift/catalog-pipeline/internal/enrich"
	"github.com/talentsift/catalog-pipeline/internal/redact"
)

// Table is the store surface the coordinator mutates.
type Table interface {
	Len() int
	PendingIndices() []int
	Item(i int) enrich.Item
	ApplyEnrichment(i int, m enrich.Metadata) error
	Persist() error
}

// Options configure one enrichment run. Zero values fall back to defaults
// tuned for the external service's per-minute quota.
type Options struct {
	BatchSize     int
	RequestDelay  time.Duration
	CooldownEvery int
	Cooldown      time.Duration

	// Sleep is the pacing primitive. Tests inject a recorder; nil means a
	// context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	defaultBatchSize     = 3
	defaultRequestDelay  = 4 * time.Second
	defaultCooldownEvery = 10
	defaultCooldown      = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.BatchSize < 1 {
		o.BatchSize = defaultBatchSize
	}
	if o.RequestDelay <= 0 {
		o.RequestDelay = defaultRequestDelay
	}
	if o.CooldownEvery < 1 {
		o.CooldownEvery = defaultCooldownEvery
	}
	if o.Cooldown <= 0 {
		o.Cooldown = defaultCooldown
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Summary reports what a run did.
type Summary struct {
	RunID             string
	TotalRecords      int
	PendingAtStart    int
	BatchesDispatched int
	BatchesFailed     int
	ItemsApplied      int
	Elapsed           time.Duration
}

// PendingAtEnd is the pending count implied by the run's outcome.
func (s Summary) PendingAtEnd() int {
	return s.PendingAtStart - s.ItemsApplied
}

// Coordinator walks the pending set in table order, one batch at a time.
// It owns the store exclusively for the duration of Run.
type Coordinator struct {
	table    Table
	enricher enrich.Enricher
	logger   *slog.Logger
	opts     Options
}

func New(table Table, enricher enrich.Enricher, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		table:    table,
		enricher: enricher,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// Run processes every record that is pending when the run starts. The
// pending set is computed once; records whose batch fails stay pending for
// the next run rather than being retried within this one. A persist failure
// aborts the run, everything else is logged and skipped.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:        uuid.NewString(),
		TotalRecords: c.table.Len(),
	}
	logger := c.logger.With("run_id", sum.RunID)

	pending := c.table.PendingIndices()
	sum.PendingAtStart = len(pending)
	logger.Info("enrichment run starting",
		"phase", "idle",
		"total", sum.TotalRecords,
		"pending", sum.PendingAtStart,
		"batch_size", c.opts.BatchSize)

	for group := range batch.Chunk(pending, c.opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}

		sum.BatchesDispatched++
		items := make([]enrich.Item, len(group))
		for i, idx := range group {
			items[i] = c.table.Item(idx)
		}
		logger.Info("dispatching batch",
			"phase", "dispatching",
			"batch", sum.BatchesDispatched,
			"size", len(group))

		metadata, err := c.enricher.EnrichBatch(ctx, items)
		if err != nil {
			sum.BatchesFailed++
			logger.Warn("batch failed, records stay pending",
				"batch", sum.BatchesDispatched,
				"size", len(group),
				"error", redact.Error(err))
		} else {
			for i, idx := range group {
				if err := c.table.ApplyEnrichment(idx, metadata[i]); err != nil {
					logger.Warn("apply rejected", "index", idx, "error", err)
					continue
				}
				sum.ItemsApplied++
			}
			if err := c.table.Persist(); err != nil {
				sum.Elapsed = time.Since(start)
				return sum, fmt.Errorf("checkpoint after batch %d: %w", sum.BatchesDispatched, err)
			}
			logger.Info("batch applied and checkpointed",
				"batch", sum.BatchesDispatched,
				"applied", len(group))
		}

		pause, phase := c.opts.RequestDelay, "short_delay"
		if sum.BatchesDispatched%c.opts.CooldownEvery == 0 {
			pause, phase = c.opts.Cooldown, "cooldown"
		}
		logger.Debug("pacing", "phase", phase, "pause", pause)
		if err := c.opts.Sleep(ctx, pause); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
	}

	sum.Elapsed = time.Since(start)
	logger.Info("enrichment run done",
		"phase", "done",
		"batches", sum.BatchesDispatched,
		"failed_batches", sum.BatchesFailed,
		"applied", sum.ItemsApplied,
		"pending_left", sum.PendingAtEnd(),
		"elapsed", sum.Elapsed)
	return sum, nil
}
