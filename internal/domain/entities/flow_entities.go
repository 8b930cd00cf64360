package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a single ERC-20 transfer event. From and To are lower-case hex,
// Value is already scaled by TokenDecimals.
type Transfer struct {
	Hash          string          `json:"hash"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Value         decimal.Decimal `json:"value"`
	Timestamp     time.Time       `json:"timestamp"`
	TokenDecimals int             `json:"tokenDecimals"`
}

// FlowDirection is the classified direction of a transfer
type FlowDirection string

const (
	DirectionInflow  FlowDirection = "inflow"
	DirectionOutflow FlowDirection = "outflow"
	DirectionNeutral FlowDirection = "neutral"
)

// TransferKind explains why a transfer got its direction
type TransferKind string

const (
	KindMint     TransferKind = "mint"
	KindBurn     TransferKind = "burn"
	KindDeposit  TransferKind = "deposit"
	KindWithdraw TransferKind = "withdraw"
	KindInternal TransferKind = "internal"
	KindTransfer TransferKind = "transfer"
)

// Period names one of the cumulative analysis windows
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	PeriodAll Period = "all"
)

// Periods lists the windows in ascending length
var Periods = []Period{Period24h, Period7d, Period30d, PeriodAll}

// Duration returns the window length, zero for PeriodAll
func (p Period) Duration() time.Duration {
	switch p {
	case Period24h:
		return 24 * time.Hour
	case Period7d:
		return 7 * 24 * time.Hour
	case Period30d:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// DataQuality discloses how trustworthy a window's metrics are
type DataQuality string

const (
	DataQualityGood                 DataQuality = "good"
	DataQualityLimitedCoverage      DataQuality = "limited_coverage"
	DataQualityInsufficientTimespan DataQuality = "insufficient_timespan"
)

// PeriodMetrics are the flow totals of one window
type PeriodMetrics struct {
	Inflow          float64     `json:"inflow"`
	Outflow         float64     `json:"outflow"`
	NetFlow         float64     `json:"netFlow"`
	TxCount         int         `json:"txCount"`
	UniqueAddresses int         `json:"uniqueAddresses"`
	AvgTransferSize float64     `json:"avgTransferSize"`
	DataQuality     DataQuality `json:"dataQuality"`
	Note            string      `json:"note,omitempty"`
}

// PeriodSet always carries all four windows
type PeriodSet struct {
	Last24h PeriodMetrics `json:"24h"`
	Last7d  PeriodMetrics `json:"7d"`
	Last30d PeriodMetrics `json:"30d"`
	All     PeriodMetrics `json:"all"`
}

// Get returns the metrics for p
func (s *PeriodSet) Get(p Period) PeriodMetrics {
	switch p {
	case Period24h:
		return s.Last24h
	case Period7d:
		return s.Last7d
	case Period30d:
		return s.Last30d
	default:
		return s.All
	}
}

// Set stores the metrics for p
func (s *PeriodSet) Set(p Period, m PeriodMetrics) {
	switch p {
	case Period24h:
		s.Last24h = m
	case Period7d:
		s.Last7d = m
	case Period30d:
		s.Last30d = m
	default:
		s.All = m
	}
}

// WhaleType is the net direction of a whale
type WhaleType string

const (
	WhaleAccumulator WhaleType = "accumulator"
	WhaleDistributor WhaleType = "distributor"
)

type WhaleRecord struct {
	Address       string    `json:"address"`
	AddressAbbrev string    `json:"addressAbbrev"`
	TotalVolume   float64   `json:"totalVolume"`
	Inflow        float64   `json:"inflow"`
	Outflow       float64   `json:"outflow"`
	NetFlow       float64   `json:"netFlow"`
	TxCount       int       `json:"txCount"`
	Type          WhaleType `json:"type"`
}

type SmartMoneyMovement struct {
	Address       string  `json:"address"`
	AddressAbbrev string  `json:"addressAbbrev"`
	Inflow        float64 `json:"inflow"`
	Outflow       float64 `json:"outflow"`
	NetFlow       float64 `json:"netFlow"`
	Profitability float64 `json:"profitability"`
	TxCount       int     `json:"txCount"`
}

type SmartMoney struct {
	Movements []SmartMoneyMovement `json:"movements"`
	Count     int                  `json:"count"`
}

// VelocityTrend compares recent against previous transfer volume
type VelocityTrend string

const (
	TrendAccelerating VelocityTrend = "accelerating"
	TrendDecelerating VelocityTrend = "decelerating"
	TrendStable       VelocityTrend = "stable"
)

type FlowVelocity struct {
	Trend          VelocityTrend `json:"trend"`
	RecentVolume   float64       `json:"recentVolume"`
	PreviousVolume float64       `json:"previousVolume"`
	ChangePercent  float64       `json:"changePercent"`
}

// MarketPhase is derived from the 24h and 7d net flow
type MarketPhase string

const (
	PhaseAccumulation MarketPhase = "accumulation"
	PhaseDistribution MarketPhase = "distribution"
	PhaseTransition   MarketPhase = "transition"
)

type AdvancedAnalysis struct {
	TopWhales      []WhaleRecord `json:"topWhales"`
	WhaleThreshold float64       `json:"whaleThreshold"`
	SmartMoney     SmartMoney    `json:"smartMoney"`
	FlowVelocity   FlowVelocity  `json:"flowVelocity"`
	MarketPhase    MarketPhase   `json:"marketPhase"`
}

// ChartPoint is one hourly or daily bucket
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
	Inflow    float64   `json:"inflow"`
	Outflow   float64   `json:"outflow"`
	NetFlow   float64   `json:"netFlow"`
	Volume    float64   `json:"volume"`
	TxCount   int       `json:"txCount"`
}

type ChartData struct {
	Hourly []ChartPoint `json:"hourly"`
	Daily  []ChartPoint `json:"daily"`
}

type FlowStatistics struct {
	TotalTransfers      int     `json:"totalTransfers"`
	TotalVolume         float64 `json:"totalVolume"`
	MedianTransferSize  float64 `json:"medianTransferSize"`
	AverageTransferSize float64 `json:"averageTransferSize"`
	LargestTransfer     float64 `json:"largestTransfer"`
	UniqueAddresses     int     `json:"uniqueAddresses"`
	Mints               int     `json:"mints"`
	Burns               int     `json:"burns"`
	Deposits            int     `json:"deposits"`
	Withdrawals         int     `json:"withdrawals"`
	Neutral             int     `json:"neutral"`
}

type FlowAnalysis struct {
	Periods    PeriodSet        `json:"periods"`
	Advanced   AdvancedAnalysis `json:"advanced"`
	ChartData  ChartData        `json:"chartData"`
	Insights   []string         `json:"insights"`
	Statistics FlowStatistics   `json:"statistics"`
}

// DataQualityReport describes the fetched sample as a whole
type DataQualityReport struct {
	Status         DataQuality `json:"status"`
	Source         string      `json:"source"`
	SampleSize     int         `json:"sampleSize"`
	Truncated      bool        `json:"truncated"`
	CoverageHours  float64     `json:"coverageHours"`
	OldestTransfer *time.Time  `json:"oldestTransfer,omitempty"`
	NewestTransfer *time.Time  `json:"newestTransfer,omitempty"`
	Warnings       []string    `json:"warnings"`
}

// TransferRow is a display row in the transfers table
type TransferRow struct {
	Hash      string        `json:"hash"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Value     float64       `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	Direction FlowDirection `json:"direction"`
	Kind      TransferKind  `json:"kind"`
	Protocol  string        `json:"protocol,omitempty"`
}

// TokenTransfersResponse is returned by GET /api/pools/:poolId/token-transfers
type TokenTransfersResponse struct {
	TokenAddress   string            `json:"tokenAddress"`
	TokenSymbol    string            `json:"tokenSymbol"`
	PoolID         string            `json:"poolId"`
	Page           int               `json:"page"`
	Limit          int               `json:"limit"`
	TotalTransfers int               `json:"totalTransfers"`
	Transfers      []TransferRow     `json:"transfers"`
	DataQuality    DataQualityReport `json:"dataQuality"`
	FlowAnalysis   FlowAnalysis      `json:"flowAnalysis"`
}

// PoolFlowSummary is one row of the cross-pool summary
type PoolFlowSummary struct {
	PoolID         string        `json:"poolId"`
	PoolName       string        `json:"poolName"`
	TokenSymbol    string        `json:"tokenSymbol"`
	NetFlow24h     float64       `json:"netFlow24h"`
	NetFlow7d      float64       `json:"netFlow7d"`
	MarketPhase    MarketPhase   `json:"marketPhase,omitempty"`
	Trend          VelocityTrend `json:"trend,omitempty"`
	TotalTransfers int           `json:"totalTransfers"`
	DataQuality    DataQuality   `json:"dataQuality,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// FlowSummaryResponse is returned by GET /api/analytics/flow-summary
type FlowSummaryResponse struct {
	Pools       []PoolFlowSummary `json:"pools"`
	Count       int               `json:"count"`
	Failed      int               `json:"failed"`
	GeneratedAt time.Time         `json:"generatedAt"`
	// Approximate distinct addresses across all pools (HyperLogLog, ~1.6% error)
	UniqueAddressesEstimate uint64 `json:"uniqueAddressesEstimate"`
}
