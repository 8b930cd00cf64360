package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

type fakePoolService struct {
	pools       []*entities.Pool
	err         error
	limit       int
	offset      int
	requestedID uuid.UUID
}

func (f *fakePoolService) ListVisible(ctx context.Context, limit, offset int) ([]*entities.Pool, error) {
	f.limit, f.offset = limit, offset
	return f.pools, f.err
}

func (f *fakePoolService) GetVisiblePool(ctx context.Context, id uuid.UUID) (*entities.Pool, error) {
	f.requestedID = id
	for _, p := range f.pools {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domainerrors.NotFoundError("POOL")
}

type fakePlatforms struct {
	platforms []*entities.Platform
	err       error
}

func (f *fakePlatforms) ListVisible(ctx context.Context) ([]*entities.Platform, error) {
	return f.platforms, f.err
}

func poolRouter(pools PoolService, platforms PlatformLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPoolHandlers(pools, platforms, logger.NewNop())
	router := gin.New()
	router.GET("/api/pools", h.ListPools)
	router.GET("/api/pools/:poolId", h.GetPool)
	router.GET("/api/platforms", h.ListPlatforms)
	return router
}

func serve(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListPools(t *testing.T) {
	pool := &entities.Pool{ID: uuid.New(), Name: "stETH staking", IsVisible: true}
	svc := &fakePoolService{pools: []*entities.Pool{pool}}

	w := serve(poolRouter(svc, &fakePlatforms{}), "/api/pools?limit=10&offset=5")
	require.Equal(t, http.StatusOK, w.Code)

	var resp entities.PoolListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 5, resp.Offset)
	assert.Equal(t, 10, svc.limit)
	assert.Equal(t, 5, svc.offset)
}

func TestListPools_ClampsLimit(t *testing.T) {
	svc := &fakePoolService{pools: []*entities.Pool{}}

	w := serve(poolRouter(svc, &fakePlatforms{}), "/api/pools?limit=5000&offset=-3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultPoolListLimit, svc.limit)
	assert.Equal(t, 0, svc.offset)
}

func TestListPools_Error(t *testing.T) {
	svc := &fakePoolService{err: errors.New("connection reset")}

	w := serve(poolRouter(svc, &fakePlatforms{}), "/api/pools")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestGetPool(t *testing.T) {
	pool := &entities.Pool{ID: uuid.New(), Name: "wstETH vault", IsVisible: true}
	router := poolRouter(&fakePoolService{pools: []*entities.Pool{pool}}, &fakePlatforms{})

	w := serve(router, "/api/pools/"+pool.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wstETH vault")

	w = serve(router, "/api/pools/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "POOL_NOT_FOUND")

	w = serve(router, "/api/pools/123")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeInvalidID)
}

func TestListPlatforms(t *testing.T) {
	router := poolRouter(&fakePoolService{}, &fakePlatforms{platforms: []*entities.Platform{{ID: uuid.New(), Name: "Lido", IsVisible: true}}})

	w := serve(router, "/api/platforms")
	require.Equal(t, http.StatusOK, w.Code)

	var resp entities.PlatformListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Lido", resp.Platforms[0].Name)
}

func TestListPlatforms_EmptyIsArray(t *testing.T) {
	w := serve(poolRouter(&fakePoolService{}, &fakePlatforms{}), "/api/platforms")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"platforms":[]`)
}
