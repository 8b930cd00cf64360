package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/metrics"
	"github.com/yield-service/yield_service/pkg/tracing"
)

// PoolResolver looks up visible pools and their underlying token
type PoolResolver interface {
	GetVisiblePool(ctx context.Context, id uuid.UUID) (*entities.Pool, error)
	ResolveTokenAddress(pool *entities.Pool) (string, error)
}

// Service assembles the token-transfer flow payload for a pool
type Service struct {
	pools    PoolResolver
	source   TransferSource
	table    *ProtocolTable
	settings Settings
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(pools PoolResolver, source TransferSource, table *ProtocolTable, settings Settings, logger *zap.Logger) *Service {
	return &Service{
		pools:    pools,
		source:   source,
		table:    table,
		settings: settings.withDefaults(),
		logger:   logger,
		tracer:   tracing.GetTracer("flow"),
		now:      time.Now,
	}
}

// Settings returns the effective analysis settings
func (s *Service) Settings() Settings { return s.settings }

// PoolAnalysis is the analysis of one pool's token
type PoolAnalysis struct {
	Pool         *entities.Pool
	TokenAddress string
	Batch        *TransferBatch
	Analysis     *Analysis
}

// AnalyzePool returns the token-transfer payload for a visible pool. Lookup
// failures keep their domain category; anything after that is an internal error.
func (s *Service) AnalyzePool(ctx context.Context, poolID uuid.UUID, page, limit int) (*entities.TokenTransfersResponse, error) {
	result, err := s.Analyze(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return s.assemble(result, page, limit), nil
}

// Analyze resolves the pool, fetches its transfers and runs the analysis
func (s *Service) Analyze(ctx context.Context, poolID uuid.UUID) (*PoolAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "flow.Analyze", trace.WithAttributes(attribute.String("pool.id", poolID.String())))
	defer span.End()

	pool, err := s.pools.GetVisiblePool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	token, err := s.pools.ResolveTokenAddress(pool)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("token.address", token))

	batch, err := s.fetch(ctx, token, pool.Chain)
	if err != nil {
		metrics.FlowAnalysesTotal.WithLabelValues("error").Inc()
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to fetch transfers for %s: %w", token, err)
	}

	start := time.Now()
	analysis := s.analyzeBatch(ctx, batch)
	metrics.FlowAnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.FlowAnalysesTotal.WithLabelValues("success").Inc()

	s.logger.Debug("Flow analysis complete",
		zap.String("pool_id", poolID.String()),
		zap.String("token", token),
		zap.String("source", batch.Source),
		zap.Int("transfers", len(batch.Transfers)),
		zap.Bool("truncated", batch.Truncated),
		zap.Duration("duration", time.Since(start)))

	return &PoolAnalysis{Pool: pool, TokenAddress: token, Batch: batch, Analysis: analysis}, nil
}

func (s *Service) fetch(ctx context.Context, token, chain string) (*TransferBatch, error) {
	ctx, span := s.tracer.Start(ctx, "flow.FetchTransfers", trace.WithAttributes(
		attribute.String("source", s.source.Name()),
		attribute.Int("max_transfers", s.settings.MaxTransfers)))
	defer span.End()

	batch, err := s.source.FetchTransfers(ctx, FetchRequest{
		TokenAddress: token,
		Chain:        chain,
		MaxTransfers: s.settings.MaxTransfers,
		Order:        NewestFirst,
	})
	if err != nil {
		return nil, err
	}
	if batch.Transfers == nil {
		batch.Transfers = []entities.Transfer{}
	}
	span.SetAttributes(attribute.Int("transfers", len(batch.Transfers)))
	return batch, nil
}

func (s *Service) analyzeBatch(ctx context.Context, batch *TransferBatch) *Analysis {
	_, span := s.tracer.Start(ctx, "flow.Aggregate")
	defer span.End()

	SortNewestFirst(batch.Transfers)
	return Analyze(batch.Transfers, s.now(), s.table, s.settings, batch.Truncated)
}

func (s *Service) assemble(r *PoolAnalysis, page, limit int) *entities.TokenTransfersResponse {
	page, limit = s.normalizePage(page, limit)

	a := r.Analysis
	return &entities.TokenTransfersResponse{
		TokenAddress:   r.TokenAddress,
		TokenSymbol:    r.Pool.Symbol(),
		PoolID:         r.Pool.ID.String(),
		Page:           page,
		Limit:          limit,
		TotalTransfers: len(r.Batch.Transfers),
		Transfers:      displayRows(r.Batch.Transfers, a.Classifications, page, limit),
		DataQuality:    s.settings.Quality.Report(r.Batch.Source, a.Coverage),
		FlowAnalysis: entities.FlowAnalysis{
			Periods:    a.Periods,
			Advanced:   a.Advanced,
			ChartData:  a.Chart,
			Insights:   a.Insights,
			Statistics: a.Statistics,
		},
	}
}

// normalizePage clamps page to >= 1 and limit to [1, MaxDisplayTransfers]
func (s *Service) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.settings.DefaultPageLimit
	}
	if limit > s.settings.MaxDisplayTransfers {
		limit = s.settings.MaxDisplayTransfers
	}
	return page, limit
}

func displayRows(transfers []entities.Transfer, classes []Classification, page, limit int) []entities.TransferRow {
	rows := make([]entities.TransferRow, 0, limit)
	start := (page - 1) * limit
	if start >= len(transfers) {
		return rows
	}
	end := start + limit
	if end > len(transfers) {
		end = len(transfers)
	}

	for i := start; i < end; i++ {
		t, c := transfers[i], classes[i]
		rows = append(rows, entities.TransferRow{
			Hash:      t.Hash,
			From:      t.From,
			To:        t.To,
			Value:     t.Value.InexactFloat64(),
			Timestamp: t.Timestamp.UTC(),
			Direction: c.Direction,
			Kind:      c.Kind,
			Protocol:  c.Protocol,
		})
	}
	return rows
}
