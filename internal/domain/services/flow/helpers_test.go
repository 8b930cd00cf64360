package flow

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

const (
	lidoStETH  = "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"
	morphoBlue = "0xbbbbbbbbbb9cc5e90e3b3af64bdaf62c37eeffcb"
	alice      = "0x1111111111111111111111111111111111111111"
	bob        = "0x2222222222222222222222222222222222222222"
	carol      = "0x3333333333333333333333333333333333333333"
	tokenAddr  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testTable(t *testing.T) *ProtocolTable {
	t.Helper()
	table, err := NewProtocolTable([]ProtocolAddress{
		{Address: lidoStETH, Protocol: "lido", Label: "stETH"},
		{Address: morphoBlue, Protocol: "morpho", Label: "Morpho Blue"},
	})
	require.NoError(t, err)
	return table
}

func tr(from, to string, value int64, age time.Duration) entities.Transfer {
	return entities.Transfer{
		Hash:          fmt.Sprintf("0x%x-%s-%s", value, from[2:6], to[2:6]),
		From:          from,
		To:            to,
		Value:         decimal.NewFromInt(value),
		Timestamp:     testNow.Add(-age),
		TokenDecimals: 18,
	}
}

func decimals(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}
