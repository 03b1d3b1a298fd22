package app

import (
	"context"
	"fmt"

	"slack2dify/internal/config"
	"slack2dify/internal/dify"
	"slack2dify/internal/journal"
	"slack2dify/internal/loop"
	"slack2dify/internal/metrics"
	"slack2dify/internal/state"

	"go.uber.org/zap"
)

// Poller represents the main history polling application
type Poller struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *state.FileStore
	journal journal.Journal
	metrics *metrics.Collector
	loop    *loop.Controller
}

// New creates a new poller instance
func New(cfg *config.Config, logger *zap.Logger) (*Poller, error) {
	client := dify.NewClient(dify.Config{
		Endpoint: cfg.Workflow.Endpoint,
		APIKey:   cfg.Workflow.APIKey,
		User:     cfg.Workflow.User,
		Channel:  cfg.Workflow.Channel,
		OldestTS: cfg.Workflow.OldestTS,
		LatestTS: cfg.Workflow.LatestTS,
		Limit:    cfg.Poll.Limit,
	})

	store := state.NewFileStore(cfg.Poll.StateFile)

	var jnl journal.Journal
	if cfg.Poll.Journal != "" {
		j, err := journal.NewSQLiteJournal(cfg.Poll.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to create batch journal: %w", err)
		}
		jnl = j
	}

	collector := metrics.New()

	controller := loop.NewController(loop.Config{
		Interval:      cfg.Interval(),
		RetryInterval: cfg.RetryInterval(),
		MaxRetries:    cfg.Poll.MaxRetries,
		OldestDate:    cfg.Poll.OldestDate,
		Once:          cfg.Poll.Once,
	}, client, store, jnl, collector, logger)

	return &Poller{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		journal: jnl,
		metrics: collector,
		loop:    controller,
	}, nil
}

// Run executes the polling loop until it stops or ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting slack2dify",
		zap.String("endpoint", p.cfg.Workflow.Endpoint),
		zap.String("channel", p.cfg.Workflow.Channel),
		zap.String("oldest_ts", p.cfg.Workflow.OldestTS),
		zap.String("latest_ts", p.cfg.Workflow.LatestTS),
		zap.String("state_file", p.store.Path()),
		zap.Int("limit", p.cfg.Poll.Limit),
	)

	if addr := p.cfg.Poll.MetricsAddr; addr != "" {
		go func() {
			if err := p.metrics.StartServer(addr); err != nil {
				p.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	return p.loop.Run(ctx)
}

// Close cleans up resources
func (p *Poller) Close() error {
	if p.journal != nil {
		return p.journal.Close()
	}
	return nil
}
