// Package loop drives the batch fetch cycle: retry policy, durable
// progress checkpoints and the decision to continue, wait or stop.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slack2dify/internal/cutoff"
	"slack2dify/internal/dify"
	"slack2dify/internal/journal"
	"slack2dify/internal/metrics"
	"slack2dify/internal/retry"
	"slack2dify/internal/state"

	"go.uber.org/zap"
)

// Fetcher performs one blocking workflow run for the page at cursor
type Fetcher interface {
	FetchBatch(ctx context.Context, cursor string) (*dify.BatchResult, error)
}

// errEmptyResult marks a 200 response whose result fields are all absent,
// which the workflow produces when it failed internally.
var errEmptyResult = errors.New("workflow returned no result fields")

// Config represents loop behaviour settings
type Config struct {
	// Interval is the sleep between batches, and the back-off after an
	// abandoned batch in continuous mode.
	Interval time.Duration

	// RetryInterval is the wait between attempts within one batch.
	RetryInterval time.Duration

	// MaxRetries is the number of retries after the first attempt, so a
	// batch gets MaxRetries+1 attempts in total.
	MaxRetries int

	// OldestDate stops the walk once a page's oldest message is at or
	// before this date ("2006-01-02"). Empty disables the cutoff.
	OldestDate string

	// Once stops after a single usable batch and turns retry exhaustion
	// into a terminal error.
	Once bool
}

// Controller owns the progress state and orders every side effect of the
// history loop. It is the only writer of the state store.
type Controller struct {
	cfg     Config
	fetcher Fetcher
	store   state.Store
	journal journal.Journal
	metrics *metrics.Collector
	logger  *zap.Logger

	// Swapped in tests to observe sleeps without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a loop controller. jnl may be nil to disable the
// batch journal.
func NewController(cfg Config, fetcher Fetcher, store state.Store, jnl journal.Journal, m *metrics.Collector, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		journal: jnl,
		metrics: m,
		logger:  logger,
		sleep:   retry.Sleep,
	}
}

// Run executes the loop until pagination is exhausted, the cutoff date is
// reached, ctx is cancelled, or (in once mode) one batch completes. A nil
// return means a graceful stop; an error means the process should exit
// non-zero.
func (c *Controller) Run(ctx context.Context) error {
	st := c.store.Load()

	if st.Finished {
		c.logger.Info("State already marked finished, exiting without fetching")
		return nil
	}

	c.logger.Info("Starting history loop",
		zap.Int("batch_no", st.BatchNo),
		zap.String("cursor", st.Cursor),
		zap.String("oldest_date", c.cfg.OldestDate),
		zap.Bool("once", c.cfg.Once),
	)

	for {
		if ctx.Err() != nil {
			return c.flush(st)
		}

		st.BatchNo++
		c.logger.Info("Starting batch",
			zap.Int("batch_no", st.BatchNo),
			zap.String("cursor", st.Cursor),
		)

		res, err := c.fetchWithRetry(ctx, st.Cursor)
		if err != nil {
			if ctx.Err() != nil {
				// Roll back the in-flight batch so the counter only
				// reflects completed ones.
				st.BatchNo--
				return c.flush(st)
			}

			if c.cfg.Once {
				if saveErr := c.store.Save(st); saveErr != nil {
					c.logger.Error("Failed to persist state", zap.Error(saveErr))
				}
				return fmt.Errorf("batch %d failed after %d attempts: %w", st.BatchNo, c.cfg.MaxRetries+1, err)
			}

			st.BatchNo--
			c.metrics.IncAbandoned()
			c.logger.Warn("Batch abandoned, waiting a full interval before a fresh one",
				zap.Int("batch_no", st.BatchNo+1),
				zap.Duration("interval", c.cfg.Interval),
				zap.Error(err),
			)
			if err := c.sleep(ctx, c.cfg.Interval); err != nil {
				return c.flush(st)
			}
			continue
		}

		c.logger.Info("Batch completed",
			zap.Int("batch_no", st.BatchNo),
			zap.Intp("message_size", res.MessageSize),
			zap.String("oldest_dt", res.OldestDT),
			zap.String("next_cursor", res.NextCursor),
		)

		// Advance the cursor before any stop decision so the state file
		// records the precise stopping point.
		st.Cursor = res.NextCursor

		c.metrics.IncCompleted()
		if res.MessageSize != nil {
			c.metrics.AddMessages(*res.MessageSize)
		}
		c.record(st.BatchNo, res)

		if cutoff.Reached(res.OldestDT, c.cfg.OldestDate) {
			c.logger.Info("Oldest message reached the cutoff date, finishing",
				zap.String("oldest_dt", res.OldestDT),
				zap.String("oldest_date", c.cfg.OldestDate),
			)
			st.Finished = true
			return c.flush(st)
		}

		if res.NextCursor == "" {
			c.logger.Info("Next cursor is empty, pagination exhausted, finishing")
			st.Finished = true
			return c.flush(st)
		}

		if err := c.store.Save(st); err != nil {
			return fmt.Errorf("failed to persist state: %w", err)
		}

		if c.cfg.Once {
			c.logger.Info("Single batch mode, stopping after one batch")
			return nil
		}

		c.logger.Info("Sleeping until next batch", zap.Duration("interval", c.cfg.Interval))
		if err := c.sleep(ctx, c.cfg.Interval); err != nil {
			return c.flush(st)
		}
	}
}

// fetchWithRetry runs the workflow with a shared attempt budget: transport
// failures and empty-result responses both consume from it.
func (c *Controller) fetchWithRetry(ctx context.Context, cursor string) (*dify.BatchResult, error) {
	attempts := c.cfg.MaxRetries + 1

	var res *dify.BatchResult
	err := retry.Do(ctx, attempts, c.cfg.RetryInterval, func(attempt int) error {
		start := time.Now()
		r, err := c.fetcher.FetchBatch(ctx, cursor)
		c.metrics.ObserveFetchDuration(time.Since(start))

		if err != nil {
			c.metrics.IncFetch("transport_error")
			c.logger.Warn("Fetch attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err),
			)
			return err
		}

		if r.Empty() {
			c.metrics.IncFetch("empty_result")
			c.logger.Warn("All result fields absent, treating as upstream failure",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
			)
			return errEmptyResult
		}

		c.metrics.IncFetch("success")
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Controller) record(batchNo int, res *dify.BatchResult) {
	if c.journal == nil {
		return
	}

	e := &journal.Entry{
		BatchNo:     batchNo,
		MessageSize: res.MessageSize,
		OldestDT:    res.OldestDT,
		NextCursor:  res.NextCursor,
		FetchedAt:   time.Now(),
	}
	if err := c.journal.Record(e); err != nil {
		c.logger.Error("Failed to record batch in journal",
			zap.Int("batch_no", batchNo),
			zap.Error(err),
		)
	}
}

// flush persists the current state on the way out of the loop.
func (c *Controller) flush(st *state.Progress) error {
	if err := c.store.Save(st); err != nil {
		c.logger.Error("Failed to persist state on shutdown", zap.Error(err))
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}
