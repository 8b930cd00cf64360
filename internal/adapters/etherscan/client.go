package etherscan

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
	ProviderName = "etherscan"

	defaultBaseURL  = "https://api.etherscan.io/v2/api"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 1000
	// Etherscan rejects page*offset beyond this window.
	maxResultWindow = 10000

	noTransactionsFound = "No transactions found"
)

// chainIDs maps pool chains to the v2 API chainid parameter
var chainIDs = map[string]int{
	"ethereum":  1,
	"optimism":  10,
	"bsc":       56,
	"gnosis":    100,
	"polygon":   137,
	"zksync":    324,
	"base":      8453,
	"arbitrum":  42161,
	"avalanche": 43114,
	"linea":     59144,
	"scroll":    534352,
}

// Config holds Etherscan client configuration
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	Retry    retry.Policy
}

// Client fetches ERC-20 transfer history from the Etherscan tokentx endpoint
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	retrier        *retry.Retrier
	logger         *zap.Logger
}

// NewClient creates a new Etherscan client
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.PageSize <= 0 || config.PageSize > maxResultWindow {
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
		Name:        "EtherscanAPI",
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

// SupportsChain reports whether the chain has an Etherscan v2 chainid
func (c *Client) SupportsChain(chain string) bool {
	_, ok := chainIDs[chain]
	return ok
}

// FetchTransfers pages through tokentx results, newest first. History deeper
// than the provider's result window is reported as truncated.
func (c *Client) FetchTransfers(ctx context.Context, req flow.FetchRequest) (*flow.TransferBatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	chainID, ok := chainIDs[req.ChainName()]
	if !ok {
		return nil, domainerrors.ValidationError("chain", fmt.Sprintf("etherscan does not support chain %q", req.ChainName()))
	}

	limit := min(req.MaxTransfers, maxResultWindow)
	offset := min(c.config.PageSize, limit)
	batch := &flow.TransferBatch{
		Transfers: make([]entities.Transfer, 0, offset),
		Source:    ProviderName,
	}

	for page := 1; page*offset <= maxResultWindow; page++ {
		rows, err := c.fetchPage(ctx, chainID, req.TokenAddress, page, offset)
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			if len(batch.Transfers) >= limit {
				batch.Truncated = true
				break
			}
			t, err := row.toTransfer()
			if err != nil {
				c.logger.Debug("Skipping malformed Etherscan transfer",
					zap.String("hash", row.Hash),
					zap.Error(err))
				continue
			}
			batch.Transfers = append(batch.Transfers, t)
		}

		if len(rows) < offset || batch.Truncated {
			break
		}
		if len(batch.Transfers) >= limit || (page+1)*offset > maxResultWindow {
			// A full last page means more history probably exists.
			batch.Truncated = true
			break
		}
	}

	c.logger.Debug("Fetched Etherscan transfers",
		zap.String("token", req.TokenAddress),
		zap.Int("chain_id", chainID),
		zap.Int("count", len(batch.Transfers)),
		zap.Bool("truncated", batch.Truncated))

	return batch, nil
}

func (c *Client) fetchPage(ctx context.Context, chainID int, token string, page, offset int) ([]tokenTx, error) {
	params := url.Values{}
	params.Set("chainid", strconv.Itoa(chainID))
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", token)
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("sort", "desc")
	params.Set("apikey", c.config.APIKey)

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return retry.Run(ctx, c.retrier, func(ctx context.Context) ([]tokenTx, error) {
			return c.doRequest(ctx, params)
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domainerrors.ServiceUnavailableError(ProviderName, err)
	}
	if err != nil {
		return nil, fmt.Errorf("etherscan tokentx failed: %w", err)
	}
	return result.([]tokenTx), nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values) ([]tokenTx, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.UpstreamError(ProviderName, 0, security.RedactError(err, c.config.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.UpstreamError(ProviderName, 0, fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode >= 400 {
		return nil, domainerrors.UpstreamError(ProviderName, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domainerrors.UpstreamError(ProviderName, resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if envelope.Status != "1" {
		if strings.HasPrefix(envelope.Message, noTransactionsFound) {
			return []tokenTx{}, nil
		}
		// Rate limit and other errors put the reason in result as a string.
		var reason string
		_ = json.Unmarshal(envelope.Result, &reason)
		status := http.StatusBadRequest
		if strings.Contains(strings.ToLower(reason), "rate limit") {
			status = http.StatusTooManyRequests
		}
		return nil, domainerrors.UpstreamError(ProviderName, status, fmt.Errorf("%s: %s", envelope.Message, reason))
	}

	var rows []tokenTx
	if err := json.Unmarshal(envelope.Result, &rows); err != nil {
		return nil, domainerrors.UpstreamError(ProviderName, resp.StatusCode, fmt.Errorf("failed to unmarshal result: %w", err))
	}
	return rows, nil
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type tokenTx struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TimeStamp    string `json:"timeStamp"`
	TokenDecimal string `json:"tokenDecimal"`
}

func (t tokenTx) toTransfer() (entities.Transfer, error) {
	secs, err := strconv.ParseInt(t.TimeStamp, 10, 64)
	if err != nil {
		return entities.Transfer{}, fmt.Errorf("invalid timestamp %q: %w", t.TimeStamp, err)
	}

	decimals := int64(18)
	if t.TokenDecimal != "" {
		decimals, err = strconv.ParseInt(t.TokenDecimal, 10, 32)
		if err != nil {
			return entities.Transfer{}, fmt.Errorf("invalid token decimals %q: %w", t.TokenDecimal, err)
		}
	}

	raw, err := decimal.NewFromString(t.Value)
	if err != nil {
		return entities.Transfer{}, fmt.Errorf("invalid value %q: %w", t.Value, err)
	}

	return entities.Transfer{
		Hash:          t.Hash,
		From:          flow.NormalizeAddress(t.From),
		To:            flow.NormalizeAddress(t.To),
		Value:         raw.Shift(-int32(decimals)),
		Timestamp:     time.Unix(secs, 0).UTC(),
		TokenDecimals: int(decimals),
	}, nil
}
