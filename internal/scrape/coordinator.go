package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/enrich"
	"github.com/talentsift/catalog-pipeline/internal/redact"
)

// Table is the store surface the retrieval coordinator fills.
type Table interface {
	Len() int
	Record(i int) catalog.Record
	Ensure(name, url string) bool
	SetDescription(i int, desc string)
	SetDetailFields(i int, testType, durationText, adaptive, remote string)
	Persist() error
}

// Options configure one retrieval run.
type Options struct {
	// MaxAttempts is the total number of tries per detail fetch, including
	// the first. An item that exhausts its attempts keeps blank fields.
	MaxAttempts int

	// SnapshotEvery persists the store after this many successful detail
	// fetches. The run always persists once more at the end.
	SnapshotEvery int

	// RateLimitRPS caps detail-fetch frequency. Set to <=0 to disable.
	RateLimitRPS float64

	RequestTimeout time.Duration

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.SnapshotEvery < 1 {
		o.SnapshotEvery = 10
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 20 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// Summary reports what a retrieval run did.
type Summary struct {
	PagesListed   int
	ItemsListed   int
	ItemsAdded    int
	DetailFetched int
	DetailFailed  int
	DetailSkipped int
	Elapsed       time.Duration
}

// Coordinator lists the catalog and fills raw detail fields, snapshotting
// periodically so an interrupted run resumes where it left off.
type Coordinator struct {
	table  Table
	source Source
	logger *slog.Logger
	opts   Options
}

func NewCoordinator(table Table, source Source, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		table:  table,
		source: source,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Run lists every page until the first empty or failing one, then fetches
// detail for each record that has a URL and no description yet. Detail
// failures leave the record blank and never stop the run; only a snapshot
// failure or cancellation aborts.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	if err := c.list(ctx, &sum); err != nil {
		sum.Elapsed = time.Since(start)
		return sum, err
	}
	if err := c.fetchDetails(ctx, &sum); err != nil {
		sum.Elapsed = time.Since(start)
		return sum, err
	}

	if err := c.table.Persist(); err != nil {
		sum.Elapsed = time.Since(start)
		return sum, fmt.Errorf("final snapshot: %w", err)
	}
	sum.Elapsed = time.Since(start)
	c.logger.Info("retrieval run done",
		"pages", sum.PagesListed,
		"listed", sum.ItemsListed,
		"added", sum.ItemsAdded,
		"fetched", sum.DetailFetched,
		"failed", sum.DetailFailed,
		"skipped", sum.DetailSkipped,
		"elapsed", sum.Elapsed)
	return sum, nil
}

func (c *Coordinator) list(ctx context.Context, sum *Summary) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := c.source.ListPage(ctx, page)
		if err != nil {
			// Any listing failure bounds the pagination loop; what was
			// listed so far is still processed.
			c.logger.Warn("listing stopped", "page", page, "error", redact.Error(err))
			return nil
		}
		if len(items) == 0 {
			c.logger.Info("listing exhausted", "pages", sum.PagesListed)
			return nil
		}
		sum.PagesListed++
		sum.ItemsListed += len(items)
		for _, it := range items {
			if c.table.Ensure(it.Name, it.URL) {
				sum.ItemsAdded++
			}
		}
	}
}

func (c *Coordinator) fetchDetails(ctx context.Context, sum *Summary) error {
	var limiter *rate.Limiter
	if c.opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.opts.RateLimitRPS), 1)
	}

	sinceSnapshot := 0
	for i := 0; i < c.table.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := c.table.Record(i)
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		if strings.TrimSpace(r.Description) != "" {
			sum.DetailSkipped++
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		detail, err := c.fetchWithRetry(ctx, r.URL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			sum.DetailFailed++
			c.logger.Warn("detail fetch exhausted retries",
				"name", r.Name,
				"url", r.URL,
				"attempts", c.opts.MaxAttempts,
				"error", redact.Error(err))
			continue
		}

		c.table.SetDescription(i, detail.Description)
		c.table.SetDetailFields(i, detail.TestType, detail.DurationText, detail.AdaptiveSupport, detail.RemoteSupport)
		sum.DetailFetched++
		sinceSnapshot++

		if sinceSnapshot >= c.opts.SnapshotEvery {
			if err := c.table.Persist(); err != nil {
				return fmt.Errorf("periodic snapshot: %w", err)
			}
			c.logger.Info("snapshot written", "fetched", sum.DetailFetched)
			sinceSnapshot = 0
		}
	}
	return nil
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, url string) (Detail, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Detail{}, err
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		detail, err := c.source.FetchDetail(reqCtx, url)
		cancel()
		if err == nil {
			return detail, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Detail{}, ctx.Err()
		}
		lastErr = err
		if !isTransient(err) || attempt == c.opts.MaxAttempts-1 {
			return Detail{}, err
		}

		sleep := backoffSleep(c.opts.BackoffInitial, c.opts.BackoffMax, c.opts.BackoffJitterFrac, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return Detail{}, ctx.Err()
		}
	}
	return Detail{}, lastErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *enrich.TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout() || ne.Temporary()
	}
	return false
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	// Apply +/- jitterFrac.
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
