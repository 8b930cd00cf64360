package alchemy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
	"github.com/yield-service/yield_service/pkg/retry"
)

const testToken = "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Timeout:  5 * time.Second,
		PageSize: 2,
		Retry:    retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}, zap.NewNop())
}

func transferJSON(hash, from, to, rawValue, ts string) map[string]interface{} {
	return map[string]interface{}{
		"hash": hash,
		"from": from,
		"to":   to,
		"rawContract": map[string]interface{}{
			"value":   rawValue,
			"address": testToken,
			"decimal": "0x12",
		},
		"metadata": map[string]interface{}{"blockTimestamp": ts},
	}
}

func request(req flow.FetchRequest) flow.FetchRequest {
	if req.TokenAddress == "" {
		req.TokenAddress = testToken
	}
	if req.Order == "" {
		req.Order = flow.NewestFirst
	}
	return req
}

func TestFetchTransfers_PagesUntilExhausted(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-key", r.URL.Path)

		var body rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, assetTransfers, body.Method)

		params := body.Params[0].(map[string]interface{})
		assert.Equal(t, "desc", params["order"])
		assert.Equal(t, []interface{}{"erc20"}, params["category"])

		result := map[string]interface{}{}
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			assert.Nil(t, params["pageKey"])
			result["transfers"] = []interface{}{
				transferJSON("0x1", "0xAAAA000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0xde0b6b3a7640000", "2024-06-15T11:00:00.000Z"),
				transferJSON("0x2", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1bc16d674ec80000", "2024-06-15T10:00:00.000Z"),
			}
			result["pageKey"] = "next-page"
		default:
			assert.Equal(t, "next-page", params["pageKey"])
			result["transfers"] = []interface{}{
				transferJSON("0x3", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x29a2241af62c0000", "2024-06-14T10:00:00.000Z"),
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
	})

	batch, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, ProviderName, batch.Source)
	assert.False(t, batch.Truncated)
	require.Len(t, batch.Transfers, 3)

	first := batch.Transfers[0]
	assert.Equal(t, "0xaaaa000000000000000000000000000000000001", first.From)
	assert.True(t, decimal.NewFromInt(1).Equal(first.Value), first.Value.String())
	assert.Equal(t, 18, first.TokenDecimals)
	assert.Equal(t, time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC), first.Timestamp)
	assert.True(t, decimal.NewFromInt(3).Equal(batch.Transfers[2].Value))
}

func TestFetchTransfers_TruncatesAtMax(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"transfers": []interface{}{
					transferJSON("0x1", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1", "2024-06-15T11:00:00Z"),
					transferJSON("0x2", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1", "2024-06-15T10:00:00Z"),
				},
				"pageKey": "more",
			},
		})
	})

	batch, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 2}))
	require.NoError(t, err)
	assert.Len(t, batch.Transfers, 2)
	assert.True(t, batch.Truncated)
}

func TestFetchTransfers_SkipsMalformedRecords(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"transfers": []interface{}{
					transferJSON("0x1", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1", "not-a-time"),
					transferJSON("0x2", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1", "2024-06-15T10:00:00Z"),
				},
			},
		})
	})

	batch, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	require.NoError(t, err)
	require.Len(t, batch.Transfers, 1)
	assert.Equal(t, "0x2", batch.Transfers[0].Hash)
}

func TestFetchTransfers_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]interface{}{"transfers": []interface{}{}},
		})
	})

	batch, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	require.NoError(t, err)
	assert.Empty(t, batch.Transfers)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchTransfers_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchTransfers_OpenBreakerIsServiceUnavailable(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
		require.ErrorIs(t, err, domainerrors.ErrUpstream)
	}

	_, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	assert.True(t, domainerrors.IsServiceUnavailable(err))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestFetchTransfers_RPCRateLimitIsRetryable(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": 429, "message": "compute units exceeded"},
		})
	})

	_, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{MaxTransfers: 10}))
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchTransfers_RejectsInvalidRequest(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, nil)

	_, err := client.FetchTransfers(context.Background(), flow.FetchRequest{TokenAddress: "nope", MaxTransfers: 1, Order: flow.NewestFirst})
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidInput(err))
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient(Config{}, nil).Configured())
	assert.True(t, NewClient(Config{APIKey: "k"}, nil).Configured())
}

func TestScaleHex(t *testing.T) {
	v, err := scaleHex("0x0de0b6b3a7640000", 18)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	v, err = scaleHex("0xf4240", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	_, err = scaleHex("0x", 18)
	assert.Error(t, err)

	_, err = scaleHex("0xzz", 18)
	assert.Error(t, err)
}

func TestFetchTransfers_PostsToChainNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/base-mainnet/test-key", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"transfers": []interface{}{
					transferJSON("0x1", "0xaaaa000000000000000000000000000000000001", "0xbbbb000000000000000000000000000000000002", "0x1", "2024-06-15T11:00:00Z"),
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/{network}"}, zap.NewNop())

	batch, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{Chain: "base", MaxTransfers: 10}))
	require.NoError(t, err)
	assert.Len(t, batch.Transfers, 1)
}

func TestSupportsChain(t *testing.T) {
	templated := NewClient(Config{APIKey: "k"}, nil)
	assert.True(t, templated.SupportsChain("ethereum"))
	assert.True(t, templated.SupportsChain("arbitrum"))
	assert.False(t, templated.SupportsChain("solana"))

	fixed := NewClient(Config{APIKey: "k", BaseURL: "https://eth-mainnet.g.alchemy.com/v2"}, nil)
	assert.True(t, fixed.SupportsChain("ethereum"))
	assert.False(t, fixed.SupportsChain("base"))
}

func TestFetchTransfers_UnsupportedChain(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := client.FetchTransfers(context.Background(), request(flow.FetchRequest{Chain: "base", MaxTransfers: 10}))
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidInput(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}
