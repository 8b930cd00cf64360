package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
)

type fakePools struct {
	pool     *entities.Pool
	err      error
	tokenErr error
}

func (f *fakePools) GetVisiblePool(ctx context.Context, id uuid.UUID) (*entities.Pool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

func (f *fakePools) ResolveTokenAddress(pool *entities.Pool) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return *pool.TokenAddress, nil
}

func testPool() *entities.Pool {
	token := tokenAddr
	symbol := "USDC"
	return &entities.Pool{
		ID:           uuid.MustParse("6f1c1c2e-6a0e-4e6b-9f54-3f1f2f1c0a11"),
		Name:         "USDC Vault",
		TokenPair:    "USDC",
		TokenAddress: &token,
		TokenSymbol:  &symbol,
		Chain:        "ethereum",
		APY:          decimal.NewFromFloat(4.2),
		IsVisible:    true,
		Platform:     entities.Platform{Name: "Morpho", IsVisible: true},
	}
}

func newTestService(t *testing.T, pools PoolResolver, src TransferSource) *Service {
	svc := NewService(pools, src, testTable(t), DefaultSettings(), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestAnalyzePool_Success(t *testing.T) {
	transfers := make([]entities.Transfer, 0, 120)
	// oldest first from the provider; the service must reorder
	for i := 119; i >= 0; i-- {
		transfers = append(transfers, tr(alice, lidoStETH, int64(i+1), time.Duration(i)*time.Minute))
	}
	src := &fakeSource{name: "alchemy", configured: true, batch: &TransferBatch{Transfers: transfers, Source: "alchemy"}}
	svc := newTestService(t, &fakePools{pool: testPool()}, src)

	resp, err := svc.AnalyzePool(context.Background(), testPool().ID, 2, 100)
	require.NoError(t, err)

	assert.Equal(t, tokenAddr, resp.TokenAddress)
	assert.Equal(t, "USDC", resp.TokenSymbol)
	assert.Equal(t, testPool().ID.String(), resp.PoolID)
	assert.Equal(t, 120, resp.TotalTransfers)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 50, resp.Limit)
	require.Len(t, resp.Transfers, 50)
	assert.Equal(t, 51.0, resp.Transfers[0].Value)
	assert.Equal(t, entities.DirectionInflow, resp.Transfers[0].Direction)
	assert.Equal(t, "lido", resp.Transfers[0].Protocol)
	assert.Equal(t, "alchemy", resp.DataQuality.Source)
	assert.Equal(t, 120.0*121/2, resp.FlowAnalysis.Periods.Last24h.Inflow)
	assert.Equal(t, NewestFirst, src.lastReq.Order)
	assert.Equal(t, 15000, src.lastReq.MaxTransfers)
}

func TestAnalyzePool_EmptyUpstreamIsWellFormed(t *testing.T) {
	src := &fakeSource{name: "alchemy", configured: true, batch: &TransferBatch{Source: "alchemy"}}
	svc := newTestService(t, &fakePools{pool: testPool()}, src)

	resp, err := svc.AnalyzePool(context.Background(), testPool().ID, 1, 50)
	require.NoError(t, err)

	assert.Zero(t, resp.TotalTransfers)
	assert.NotNil(t, resp.Transfers)
	assert.Empty(t, resp.Transfers)
	assert.NotNil(t, resp.DataQuality.Warnings)
	assert.Equal(t, entities.DataQualityGood, resp.DataQuality.Status)
	assert.NotNil(t, resp.FlowAnalysis.Advanced.TopWhales)
	assert.NotNil(t, resp.FlowAnalysis.ChartData.Daily)
}

func TestAnalyzePool_NoSourceConfigured(t *testing.T) {
	chain := NewChainedSource(zap.NewNop(), &fakeSource{name: "alchemy"})
	svc := newTestService(t, &fakePools{pool: testPool()}, chain)

	resp, err := svc.AnalyzePool(context.Background(), testPool().ID, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, SourceNone, resp.DataQuality.Source)
	assert.Equal(t, entities.DataQualityInsufficientTimespan, resp.DataQuality.Status)
}

func TestAnalyzePool_PoolNotFound(t *testing.T) {
	svc := newTestService(t, &fakePools{err: domainerrors.NotFoundError("POOL")}, &fakeSource{name: "alchemy", configured: true})

	_, err := svc.AnalyzePool(context.Background(), uuid.New(), 1, 50)

	assert.True(t, domainerrors.IsNotFound(err))
}

func TestAnalyzePool_NoTokenAddress(t *testing.T) {
	src := &fakeSource{name: "alchemy", configured: true}
	svc := newTestService(t, &fakePools{pool: testPool(), tokenErr: domainerrors.NotFoundError("TOKEN_ADDRESS")}, src)

	_, err := svc.AnalyzePool(context.Background(), testPool().ID, 1, 50)

	assert.True(t, domainerrors.IsNotFound(err))
	assert.Zero(t, src.calls)
}

func TestAnalyzePool_UpstreamFailure(t *testing.T) {
	src := &fakeSource{name: "alchemy", configured: true, err: errors.New("timeout")}
	svc := newTestService(t, &fakePools{pool: testPool()}, src)

	_, err := svc.AnalyzePool(context.Background(), testPool().ID, 1, 50)

	require.Error(t, err)
	assert.False(t, domainerrors.IsNotFound(err))
}

func TestNormalizePage(t *testing.T) {
	svc := newTestService(t, &fakePools{}, &fakeSource{})

	page, limit := svc.normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)

	page, limit = svc.normalizePage(3, 10)
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, limit)

	_, limit = svc.normalizePage(1, 500)
	assert.Equal(t, 50, limit)
}

func TestDisplayRows_PageBeyondEnd(t *testing.T) {
	rows := displayRows([]entities.Transfer{tr(alice, bob, 1, 0)}, []Classification{{}}, 5, 50)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
