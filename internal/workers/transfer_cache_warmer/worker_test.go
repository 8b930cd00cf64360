package transfer_cache_warmer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
)

type fakePools struct {
	pools  []*entities.Pool
	tokens map[uuid.UUID]string
	err    error
}

func (f *fakePools) ListAllVisible(ctx context.Context) ([]*entities.Pool, error) {
	return f.pools, f.err
}

func (f *fakePools) ResolveTokenAddress(p *entities.Pool) (string, error) {
	if token, ok := f.tokens[p.ID]; ok {
		return token, nil
	}
	return "", domainerrors.NotFoundError("TOKEN_ADDRESS")
}

type fakeRefresher struct {
	mu       sync.Mutex
	requests []flow.FetchRequest
	fail     map[string]bool
	source   string
}

func (f *fakeRefresher) Refresh(ctx context.Context, req flow.FetchRequest) (*flow.TransferBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.fail[req.TokenAddress] {
		return nil, errors.New("upstream failure")
	}
	source := f.source
	if source == "" {
		source = "alchemy"
	}
	return &flow.TransferBatch{Transfers: []entities.Transfer{}, Source: source}, nil
}

const (
	tokenA = "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"
	tokenB = "0x7f39c581f595b53c5cb19bd0b3f8da6c935e2ca0"
)

func newPools() (*fakePools, *entities.Pool, *entities.Pool, *entities.Pool) {
	a := &entities.Pool{ID: uuid.New(), Name: "a", Chain: "ethereum"}
	b := &entities.Pool{ID: uuid.New(), Name: "b", Chain: "ethereum"}
	noToken := &entities.Pool{ID: uuid.New(), Name: "no-token"}
	return &fakePools{
		pools:  []*entities.Pool{a, b, noToken},
		tokens: map[uuid.UUID]string{a.ID: tokenA, b.ID: tokenB},
	}, a, b, noToken
}

func TestRun_WarmsEveryResolvablePool(t *testing.T) {
	pools, _, _, _ := newPools()
	refresher := &fakeRefresher{}
	w := NewWorker(pools, refresher, Config{Workers: 2, MaxTransfers: 500}, zap.NewNop())

	stats, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Pools: 3, Warmed: 2, Skipped: 1}, stats)
	require.Len(t, refresher.requests, 2)
	for _, req := range refresher.requests {
		assert.Equal(t, 500, req.MaxTransfers)
		assert.Equal(t, flow.NewestFirst, req.Order)
		assert.Equal(t, "ethereum", req.Chain)
	}
}

func TestRun_CountsFailures(t *testing.T) {
	pools, _, _, _ := newPools()
	refresher := &fakeRefresher{fail: map[string]bool{tokenB: true}}
	w := NewWorker(pools, refresher, Config{MaxTransfers: 100}, zap.NewNop())

	stats, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Warmed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
}

func TestRun_UnconfiguredSourceIsSkipped(t *testing.T) {
	pools, _, _, _ := newPools()
	refresher := &fakeRefresher{source: flow.SourceNone}
	w := NewWorker(pools, refresher, Config{MaxTransfers: 100}, nil)

	stats, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Warmed)
	assert.Equal(t, 3, stats.Skipped)
}

func TestRun_ListError(t *testing.T) {
	w := NewWorker(&fakePools{err: errors.New("db down")}, &fakeRefresher{}, Config{MaxTransfers: 100}, zap.NewNop())

	_, err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	w := NewWorker(&fakePools{}, &fakeRefresher{}, Config{Schedule: "not a schedule", MaxTransfers: 100}, zap.NewNop())
	assert.Error(t, w.Start())
}

func TestStartStop(t *testing.T) {
	w := NewWorker(&fakePools{}, &fakeRefresher{}, Config{Schedule: "@every 1h", MaxTransfers: 100}, zap.NewNop())
	require.NoError(t, w.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.Stop(ctx))
}
