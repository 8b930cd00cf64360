package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

type mockFlowService struct {
	mock.Mock
}

func (m *mockFlowService) AnalyzePool(ctx context.Context, poolID uuid.UUID, page, limit int) (*entities.TokenTransfersResponse, error) {
	args := m.Called(ctx, poolID, page, limit)
	if resp := args.Get(0); resp != nil {
		return resp.(*entities.TokenTransfersResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func flowRouter(svc FlowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewFlowHandlers(svc, logger.NewNop())
	router := gin.New()
	router.GET("/api/pools/:poolId/token-transfers", h.GetTokenTransfers)
	return router
}

func TestGetTokenTransfers(t *testing.T) {
	poolID := uuid.New()

	tests := []struct {
		name           string
		path           string
		setup          func(m *mockFlowService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Malformed pool id",
			path:           "/api/pools/not-a-uuid/token-transfers",
			setup:          func(m *mockFlowService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrCodeInvalidID,
		},
		{
			name: "Pool not found",
			path: "/api/pools/" + poolID.String() + "/token-transfers",
			setup: func(m *mockFlowService) {
				m.On("AnalyzePool", mock.Anything, poolID, 1, 0).Return(nil, domainerrors.NotFoundError("POOL"))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "POOL_NOT_FOUND",
		},
		{
			name: "No token address",
			path: "/api/pools/" + poolID.String() + "/token-transfers",
			setup: func(m *mockFlowService) {
				m.On("AnalyzePool", mock.Anything, poolID, 1, 0).Return(nil, domainerrors.NotFoundError("TOKEN_ADDRESS"))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "TOKEN_ADDRESS_NOT_FOUND",
		},
		{
			name: "Upstream failure is a generic 500",
			path: "/api/pools/" + poolID.String() + "/token-transfers",
			setup: func(m *mockFlowService) {
				m.On("AnalyzePool", mock.Anything, poolID, 1, 0).Return(nil, errors.New("all transfer sources failed: boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   ErrCodeInternalError,
		},
		{
			name: "Every provider circuit open",
			path: "/api/pools/" + poolID.String() + "/token-transfers",
			setup: func(m *mockFlowService) {
				err := fmt.Errorf("all transfer sources failed: %w", domainerrors.ServiceUnavailableError("etherscan", errors.New("boom")))
				m.On("AnalyzePool", mock.Anything, poolID, 1, 0).Return(nil, err)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   ErrCodeServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFlowService{}
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			flowRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp entities.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.NotContains(t, resp.Message, "boom")
			if tt.expectedStatus == http.StatusServiceUnavailable {
				assert.Equal(t, MsgServiceUnavailable, resp.Message)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetTokenTransfers_Success(t *testing.T) {
	poolID := uuid.New()
	svc := &mockFlowService{}
	svc.On("AnalyzePool", mock.Anything, poolID, 2, 25).Return(&entities.TokenTransfersResponse{
		TokenAddress: "0xae7ab96520de3a18e5e111b5eaab095312d7fe84",
		TokenSymbol:  "stETH",
		PoolID:       poolID.String(),
		Page:         2,
		Limit:        25,
		Transfers:    []entities.TransferRow{},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/pools/"+poolID.String()+"/token-transfers?page=2&limit=25", nil)
	w := httptest.NewRecorder()
	flowRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stETH", body["tokenSymbol"])
	assert.Equal(t, []interface{}{}, body["transfers"])
	assert.Contains(t, body, "flowAnalysis")
	assert.Contains(t, body, "dataQuality")
	svc.AssertExpectations(t)
}
