package alchemy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
	"github.com/yield-service/yield_service/pkg/retry"
	"github.com/yield-service/yield_service/pkg/security"
)

const (
	ProviderName = "alchemy"

	defaultBaseURL  = "https://{network}.g.alchemy.com/v2"
	networkParam    = "{network}"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 1000
	maxPageSize     = 1000
	assetTransfers  = "alchemy_getAssetTransfers"
)

// networks maps pool chains to Alchemy network subdomains
var networks = map[string]string{
	"ethereum":  "eth-mainnet",
	"optimism":  "opt-mainnet",
	"bsc":       "bnb-mainnet",
	"gnosis":    "gnosis-mainnet",
	"polygon":   "polygon-mainnet",
	"zksync":    "zksync-mainnet",
	"base":      "base-mainnet",
	"arbitrum":  "arb-mainnet",
	"avalanche": "avax-mainnet",
	"linea":     "linea-mainnet",
	"scroll":    "scroll-mainnet",
}

// Config holds Alchemy client configuration. BaseURL may contain {network};
// without it the URL only serves ethereum.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	Retry    retry.Policy
}

// Client fetches ERC-20 transfer history through the Alchemy transfers API
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	retrier        *retry.Retrier
	logger         *zap.Logger
}

// NewClient creates a new Alchemy client
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.PageSize <= 0 || config.PageSize > maxPageSize {
		config.PageSize = defaultPageSize
	}
	if config.Retry.MaxRetries == 0 && config.Retry.BaseDelay == 0 {
		config.Retry = retry.DefaultPolicy()
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	st := gobreaker.Settings{
		Name:        "AlchemyTransfersAPI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     httpClient,
		circuitBreaker: gobreaker.NewCircuitBreaker(st),
		retrier:        retry.NewRetrier(config.Retry, logger),
		logger:         logger,
	}
}

func (c *Client) Name() string { return ProviderName }

// Configured reports whether an API key is present
func (c *Client) Configured() bool { return c.config.APIKey != "" }

// FetchTransfers pages through the token's transfers, newest first, until
// req.MaxTransfers records are collected or history is exhausted.
func (c *Client) FetchTransfers(ctx context.Context, req flow.FetchRequest) (*flow.TransferBatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	endpoint, err := c.endpoint(req.ChainName())
	if err != nil {
		return nil, err
	}

	batch := &flow.TransferBatch{
		Transfers: make([]entities.Transfer, 0, min(req.MaxTransfers, c.config.PageSize)),
		Source:    ProviderName,
	}

	pageKey := ""
	for {
		remaining := req.MaxTransfers - len(batch.Transfers)
		page, err := c.fetchPage(ctx, endpoint, req.TokenAddress, pageKey, min(remaining, c.config.PageSize))
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Transfers {
			if len(batch.Transfers) >= req.MaxTransfers {
				batch.Truncated = true
				break
			}
			t, err := raw.toTransfer()
			if err != nil {
				c.logger.Debug("Skipping malformed Alchemy transfer",
					zap.String("hash", raw.Hash),
					zap.Error(err))
				continue
			}
			batch.Transfers = append(batch.Transfers, t)
		}

		pageKey = page.PageKey
		if pageKey == "" || len(page.Transfers) == 0 {
			break
		}
		if len(batch.Transfers) >= req.MaxTransfers {
			batch.Truncated = true
			break
		}
	}

	c.logger.Debug("Fetched Alchemy transfers",
		zap.String("token", req.TokenAddress),
		zap.String("chain", req.ChainName()),
		zap.Int("count", len(batch.Transfers)),
		zap.Bool("truncated", batch.Truncated))

	return batch, nil
}

// SupportsChain reports whether the chain maps to an Alchemy network reachable
// through the configured base URL
func (c *Client) SupportsChain(chain string) bool {
	_, err := c.endpoint(chain)
	return err == nil
}

func (c *Client) endpoint(chain string) (string, error) {
	network, ok := networks[chain]
	if ok && strings.Contains(c.config.BaseURL, networkParam) {
		return strings.ReplaceAll(c.config.BaseURL, networkParam, network), nil
	}
	if chain == flow.DefaultChain {
		return c.config.BaseURL, nil
	}
	return "", domainerrors.ValidationError("chain", fmt.Sprintf("alchemy does not support chain %q", chain))
}

func (c *Client) fetchPage(ctx context.Context, endpoint, token, pageKey string, size int) (*transfersResult, error) {
	params := transfersParams{
		FromBlock:         "0x0",
		ToBlock:           "latest",
		ContractAddresses: []string{token},
		Category:          []string{"erc20"},
		Order:             "desc",
		WithMetadata:      true,
		ExcludeZeroValue:  true,
		MaxCount:          fmt.Sprintf("0x%x", size),
		PageKey:           pageKey,
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return retry.Run(ctx, c.retrier, func(ctx context.Context) (*transfersResult, error) {
			var resp rpcResponse
			if err := c.doRequest(ctx, endpoint, assetTransfers, params, &resp); err != nil {
				return nil, err
			}
			return &resp.Result, nil
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domainerrors.ServiceUnavailableError(ProviderName, err)
	}
	if err != nil {
		return nil, fmt.Errorf("alchemy transfers failed: %w", err)
	}
	return result.(*transfersResult), nil
}

func (c *Client) doRequest(ctx context.Context, endpoint, method string, params interface{}, response *rpcResponse) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  []interface{}{params},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/"+c.config.APIKey, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domainerrors.UpstreamError(ProviderName, 0, security.RedactError(err, c.config.APIKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainerrors.UpstreamError(ProviderName, 0, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= 400 {
		return domainerrors.UpstreamError(ProviderName, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return domainerrors.UpstreamError(ProviderName, resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if response.Error != nil {
		// JSON-RPC rate limiting comes back as HTTP 200 with code 429.
		status := http.StatusBadGateway
		if response.Error.Code == 429 {
			status = http.StatusTooManyRequests
		}
		return domainerrors.UpstreamError(ProviderName, status, fmt.Errorf("rpc error %d: %s", response.Error.Code, response.Error.Message))
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result transfersResult `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type transfersParams struct {
	FromBlock         string   `json:"fromBlock"`
	ToBlock           string   `json:"toBlock"`
	ContractAddresses []string `json:"contractAddresses"`
	Category          []string `json:"category"`
	Order             string   `json:"order"`
	WithMetadata      bool     `json:"withMetadata"`
	ExcludeZeroValue  bool     `json:"excludeZeroValue"`
	MaxCount          string   `json:"maxCount"`
	PageKey           string   `json:"pageKey,omitempty"`
}

type transfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
	PageKey   string          `json:"pageKey"`
}

type assetTransfer struct {
	Hash        string   `json:"hash"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Value       *float64 `json:"value"`
	RawContract struct {
		Value   string `json:"value"`
		Address string `json:"address"`
		Decimal string `json:"decimal"`
	} `json:"rawContract"`
	Metadata struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata"`
}

func (a assetTransfer) toTransfer() (entities.Transfer, error) {
	ts, err := time.Parse(time.RFC3339, a.Metadata.BlockTimestamp)
	if err != nil {
		return entities.Transfer{}, fmt.Errorf("invalid block timestamp %q: %w", a.Metadata.BlockTimestamp, err)
	}

	decimals, err := parseHexInt(a.RawContract.Decimal)
	if err != nil {
		return entities.Transfer{}, fmt.Errorf("invalid decimals %q: %w", a.RawContract.Decimal, err)
	}

	value, err := scaleHex(a.RawContract.Value, decimals)
	if err != nil {
		if a.Value == nil {
			return entities.Transfer{}, err
		}
		value = decimal.NewFromFloat(*a.Value)
	}

	return entities.Transfer{
		Hash:          a.Hash,
		From:          flow.NormalizeAddress(a.From),
		To:            flow.NormalizeAddress(a.To),
		Value:         value,
		Timestamp:     ts.UTC(),
		TokenDecimals: int(decimals),
	}, nil
}

// scaleHex converts a hex base-unit amount into token units
func scaleHex(raw string, decimals int64) (decimal.Decimal, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if digits == "" {
		return decimal.Zero, fmt.Errorf("empty raw value")
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid raw value %q", raw)
	}
	return decimal.NewFromBigInt(n, -int32(decimals)), nil
}

// parseHexInt parses a hex quantity, treating an empty value as 18 decimals
func parseHexInt(s string) (int64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return 18, nil
	}
	return strconv.ParseInt(digits, 16, 64)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
