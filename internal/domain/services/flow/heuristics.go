package flow

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

var two = decimal.NewFromInt(2)

// Median sorts a copy of values and returns the midpoint, averaging the
// two middle values for even lengths. An empty slice has median zero.
func Median(values []decimal.Decimal) decimal.Decimal {
	n := len(values)
	if n == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(two)
}

// WhaleThreshold is multiplier times the median transfer size
func WhaleThreshold(values []decimal.Decimal, multiplier float64) decimal.Decimal {
	return Median(values).Mul(decimal.NewFromFloat(multiplier))
}

// DetectWhales returns addresses whose volume exceeds threshold, largest first
func DetectWhales(book AddressBook, threshold decimal.Decimal, limit int) []entities.WhaleRecord {
	whales := make([]entities.WhaleRecord, 0)
	for _, address := range sortedAddresses(book, func(a *AddressActivity) decimal.Decimal { return a.Volume() }) {
		a := book[address]
		if !a.Volume().GreaterThan(threshold) {
			continue
		}

		whaleType := entities.WhaleDistributor
		if a.Inflow.GreaterThan(a.Outflow) {
			whaleType = entities.WhaleAccumulator
		}

		whales = append(whales, entities.WhaleRecord{
			Address:       address,
			AddressAbbrev: AbbreviateAddress(address),
			TotalVolume:   a.Volume().InexactFloat64(),
			Inflow:        a.Inflow.InexactFloat64(),
			Outflow:       a.Outflow.InexactFloat64(),
			NetFlow:       a.Net().InexactFloat64(),
			TxCount:       a.TxCount,
			Type:          whaleType,
		})
		if len(whales) == limit {
			break
		}
	}
	return whales
}

// DetectSmartMoney returns active addresses with strictly positive net flow, most profitable first
func DetectSmartMoney(book AddressBook, minTxs, limit int) entities.SmartMoney {
	movements := make([]entities.SmartMoneyMovement, 0)
	for _, address := range sortedAddresses(book, func(a *AddressActivity) decimal.Decimal { return a.Net() }) {
		a := book[address]
		if a.TxCount < minTxs || !a.Net().IsPositive() {
			continue
		}

		net := a.Net().InexactFloat64()
		movements = append(movements, entities.SmartMoneyMovement{
			Address:       address,
			AddressAbbrev: AbbreviateAddress(address),
			Inflow:        a.Inflow.InexactFloat64(),
			Outflow:       a.Outflow.InexactFloat64(),
			NetFlow:       net,
			Profitability: net,
			TxCount:       a.TxCount,
		})
		if len(movements) == limit {
			break
		}
	}
	return entities.SmartMoney{Movements: movements, Count: len(movements)}
}

// sortedAddresses orders the book by key descending, breaking ties by address
func sortedAddresses(book AddressBook, key func(*AddressActivity) decimal.Decimal) []string {
	addresses := make([]string, 0, len(book))
	for address := range book {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		ki, kj := key(book[addresses[i]]), key(book[addresses[j]])
		if c := ki.Cmp(kj); c != 0 {
			return c > 0
		}
		return addresses[i] < addresses[j]
	})
	return addresses
}

// Velocity compares the volume of the newest window transfers with the window
// before it. Transfers must be ordered newest first.
func Velocity(transfers []entities.Transfer, window int, accelerating, decelerating float64) entities.FlowVelocity {
	recent, previous := decimal.Zero, decimal.Zero
	for i := 0; i < len(transfers) && i < 2*window; i++ {
		if i < window {
			recent = recent.Add(transfers[i].Value)
		} else {
			previous = previous.Add(transfers[i].Value)
		}
	}

	v := entities.FlowVelocity{
		Trend:          entities.TrendStable,
		RecentVolume:   recent.InexactFloat64(),
		PreviousVolume: previous.InexactFloat64(),
	}

	if previous.IsZero() {
		if recent.IsPositive() {
			v.Trend = entities.TrendAccelerating
			v.ChangePercent = 100
		}
		return v
	}

	ratio := recent.Div(previous).InexactFloat64()
	v.ChangePercent = round2((ratio - 1) * 100)
	switch {
	case ratio > accelerating:
		v.Trend = entities.TrendAccelerating
	case ratio < decelerating:
		v.Trend = entities.TrendDecelerating
	}
	return v
}

// Phase labels the market from the 24h and 7d net flows
func Phase(periods entities.PeriodSet) entities.MarketPhase {
	day, week := periods.Last24h.NetFlow, periods.Last7d.NetFlow
	switch {
	case day > 0 && week > 0:
		return entities.PhaseAccumulation
	case day < 0 && week < 0:
		return entities.PhaseDistribution
	default:
		return entities.PhaseTransition
	}
}
