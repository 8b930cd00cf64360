package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/axiomhq/hyperloglog"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
)

const (
	defaultWorkers = 8
	minQueueSize   = 16
)

// PoolLister loads every visible pool
type PoolLister interface {
	ListAllVisible(ctx context.Context) ([]*entities.Pool, error)
}

// FlowAnalyzer runs the token-flow analysis for one pool
type FlowAnalyzer interface {
	Analyze(ctx context.Context, poolID uuid.UUID) (*flow.PoolAnalysis, error)
}

// FlowSummaryService builds the cross-pool flow overview
type FlowSummaryService struct {
	pools      PoolLister
	analyzer   FlowAnalyzer
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewFlowSummaryService(pools PoolLister, analyzer FlowAnalyzer, workers int, jobTimeout time.Duration, logger *zap.Logger) *FlowSummaryService {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowSummaryService{
		pools:      pools,
		analyzer:   analyzer,
		workers:    workers,
		jobTimeout: jobTimeout,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FlowSummary analyzes every visible pool concurrently. A pool that fails is
// reported with its error instead of failing the whole summary.
func (s *FlowSummaryService) FlowSummary(ctx context.Context) (*entities.FlowSummaryResponse, error) {
	pools, err := s.pools.ListAllVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	out := xsync.NewMap[uuid.UUID, entities.PoolFlowSummary]()
	sketches := xsync.NewMap[uuid.UUID, *hyperloglog.Sketch]()

	queueSize := len(pools)
	if queueSize < minQueueSize {
		queueSize = minQueueSize
	}
	workerPool := pond.NewPool(s.workers, pond.WithQueueSize(queueSize))
	defer workerPool.StopAndWait()

	group := workerPool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, p := range pools {
		p := p
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				out.Store(p.ID, failedRow(p, err))
				return
			}

			jobCtx := groupCtx
			if s.jobTimeout > 0 {
				var cancel context.CancelFunc
				jobCtx, cancel = context.WithTimeout(groupCtx, s.jobTimeout)
				defer cancel()
			}

			result, err := s.analyzer.Analyze(jobCtx, p.ID)
			if err != nil {
				s.logger.Warn("Pool flow analysis failed",
					zap.String("pool_id", p.ID.String()),
					zap.String("pool_name", p.Name),
					zap.Error(err))
				out.Store(p.ID, failedRow(p, err))
				return
			}
			out.Store(p.ID, summaryRow(p, result))
			sketches.Store(p.ID, addressSketch(result.Batch))
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		s.logger.Warn("Some flow summary tasks failed", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &entities.FlowSummaryResponse{
		Pools:       make([]entities.PoolFlowSummary, 0, len(pools)),
		GeneratedAt: s.now(),
	}
	out.Range(func(_ uuid.UUID, row entities.PoolFlowSummary) bool {
		if row.Error != "" {
			resp.Failed++
		}
		resp.Pools = append(resp.Pools, row)
		return true
	})
	sortSummary(resp.Pools)
	resp.Count = len(resp.Pools)

	participants := hyperloglog.New14()
	sketches.Range(func(id uuid.UUID, sk *hyperloglog.Sketch) bool {
		if err := participants.Merge(sk); err != nil {
			s.logger.Warn("Failed to merge address sketch", zap.String("pool_id", id.String()), zap.Error(err))
		}
		return true
	})
	resp.UniqueAddressesEstimate = participants.Estimate()

	return resp, nil
}

// addressSketch counts the distinct non-zero addresses of a batch so that
// addresses active in several pools are counted once across the summary
func addressSketch(batch *flow.TransferBatch) *hyperloglog.Sketch {
	sk := hyperloglog.New14()
	if batch == nil {
		return sk
	}
	for _, t := range batch.Transfers {
		if !flow.IsZeroAddress(t.From) {
			sk.Insert([]byte(t.From))
		}
		if !flow.IsZeroAddress(t.To) {
			sk.Insert([]byte(t.To))
		}
	}
	return sk
}

func summaryRow(p *entities.Pool, r *flow.PoolAnalysis) entities.PoolFlowSummary {
	a := r.Analysis
	return entities.PoolFlowSummary{
		PoolID:         p.ID.String(),
		PoolName:       p.Name,
		TokenSymbol:    p.Symbol(),
		NetFlow24h:     a.Periods.Last24h.NetFlow,
		NetFlow7d:      a.Periods.Last7d.NetFlow,
		MarketPhase:    a.Advanced.MarketPhase,
		Trend:          a.Advanced.FlowVelocity.Trend,
		TotalTransfers: a.Statistics.TotalTransfers,
		DataQuality:    a.Periods.All.DataQuality,
	}
}

func failedRow(p *entities.Pool, err error) entities.PoolFlowSummary {
	return entities.PoolFlowSummary{
		PoolID:      p.ID.String(),
		PoolName:    p.Name,
		TokenSymbol: p.Symbol(),
		Error:       failureMessage(err),
	}
}

// failureMessage is the client-facing reason for a failed row; the cause is only logged
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "flow analysis timed out"
	case errors.Is(err, context.Canceled):
		return "flow analysis cancelled"
	case domainerrors.IsNotFound(err):
		return "pool not found"
	case domainerrors.IsInvalidInput(err):
		return "pool token cannot be analysed"
	case domainerrors.IsServiceUnavailable(err):
		return "transfer provider temporarily unavailable"
	case errors.Is(err, domainerrors.ErrUpstream):
		return "transfer provider request failed"
	default:
		return "flow analysis failed"
	}
}

// sortSummary orders successful rows by 24h net flow, largest first, with
// failed rows last.
func sortSummary(rows []entities.PoolFlowSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		if a.NetFlow24h != b.NetFlow24h {
			return a.NetFlow24h > b.NetFlow24h
		}
		return a.PoolID < b.PoolID
	})
}
