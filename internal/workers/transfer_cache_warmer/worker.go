package transfer_cache_warmer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
	"github.com/yield-service/yield_service/pkg/metrics"
)

const (
	defaultSchedule   = "@every 5m"
	defaultWorkers    = 4
	defaultJobTimeout = 2 * time.Minute
)

// PoolSource lists the pools to warm and resolves their token addresses
type PoolSource interface {
	ListAllVisible(ctx context.Context) ([]*entities.Pool, error)
	ResolveTokenAddress(p *entities.Pool) (string, error)
}

// Refresher overwrites the cached transfer batch for a request
type Refresher interface {
	Refresh(ctx context.Context, req flow.FetchRequest) (*flow.TransferBatch, error)
}

type Config struct {
	Schedule     string
	Workers      int
	JobTimeout   time.Duration
	MaxTransfers int
}

// RunStats summarizes one warm run
type RunStats struct {
	Pools   int
	Warmed  int
	Skipped int
	Failed  int
}

// Worker keeps the redis transfer cache warm for every visible pool
type Worker struct {
	pools     PoolSource
	refresher Refresher
	config    Config
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewWorker(pools PoolSource, refresher Refresher, config Config, logger *zap.Logger) *Worker {
	if config.Schedule == "" {
		config.Schedule = defaultSchedule
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaultJobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		pools:     pools,
		refresher: refresher,
		config:    config,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := w.Run(ctx); err != nil {
			w.logger.Error("Transfer cache warm run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cache warm schedule %q: %w", w.config.Schedule, err)
	}

	w.cron.Start()
	w.logger.Info("Transfer cache warmer started",
		zap.String("schedule", w.config.Schedule),
		zap.Int("workers", w.config.Workers))
	return nil
}

// Stop waits for a running warm to finish
func (w *Worker) Stop(ctx context.Context) error {
	stopped := w.cron.Stop()
	select {
	case <-stopped.Done():
		w.logger.Info("Transfer cache warmer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run refreshes the cached transfers of every visible pool once
func (w *Worker) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()

	pools, err := w.pools.ListAllVisible(ctx)
	if err != nil {
		metrics.CacheWarmRuns.WithLabelValues("error").Inc()
		return RunStats{}, fmt.Errorf("failed to list pools: %w", err)
	}

	var warmed, skipped, failed atomic.Int64

	workerPool := pond.NewPool(w.config.Workers, pond.WithQueueSize(max(len(pools), 1)))
	defer workerPool.StopAndWait()

	group := workerPool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, p := range pools {
		p := p
		group.Submit(func() {
			if groupCtx.Err() != nil {
				failed.Add(1)
				return
			}

			token, err := w.pools.ResolveTokenAddress(p)
			if err != nil {
				skipped.Add(1)
				w.logger.Debug("Skipping pool without token address",
					zap.String("pool_id", p.ID.String()),
					zap.Error(err))
				return
			}

			jobCtx, cancel := context.WithTimeout(groupCtx, w.config.JobTimeout)
			defer cancel()

			batch, err := w.refresher.Refresh(jobCtx, flow.FetchRequest{
				TokenAddress: token,
				Chain:        p.Chain,
				MaxTransfers: w.config.MaxTransfers,
				Order:        flow.NewestFirst,
			})
			if err != nil {
				failed.Add(1)
				w.logger.Warn("Failed to warm transfer cache",
					zap.String("pool_id", p.ID.String()),
					zap.String("token", token),
					zap.Error(err))
				return
			}
			if batch.Source == flow.SourceNone {
				skipped.Add(1)
				return
			}
			warmed.Add(1)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		w.logger.Warn("Some cache warm tasks failed", zap.Error(err))
	}

	stats := RunStats{
		Pools:   len(pools),
		Warmed:  int(warmed.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}

	result := "success"
	if stats.Failed > 0 {
		result = "partial"
	}
	if ctx.Err() != nil {
		result = "error"
	}
	metrics.CacheWarmRuns.WithLabelValues(result).Inc()

	w.logger.Info("Transfer cache warm completed",
		zap.Int("pools", stats.Pools),
		zap.Int("warmed", stats.Warmed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", time.Since(start)))

	return stats, ctx.Err()
}
