package flow

import (
	"fmt"
	"math"
	"time"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

// Analysis is the derived view of one transfer sample
type Analysis struct {
	Periods         entities.PeriodSet
	Advanced        entities.AdvancedAnalysis
	Chart           entities.ChartData
	Statistics      entities.FlowStatistics
	Insights        []string
	Coverage        Coverage
	Classifications []Classification // aligned with the input transfers
}

// Analyze runs the full pipeline over transfers ordered newest first.
// An empty sample yields zeroed metrics with non-nil slices.
func Analyze(transfers []entities.Transfer, now time.Time, table *ProtocolTable, settings Settings, truncated bool) *Analysis {
	settings = settings.withDefaults()

	p := newPass(now, table, len(transfers))
	p.coverage.Truncated = truncated
	for _, t := range transfers {
		p.add(t)
	}

	periods := p.periods(settings.Quality)
	threshold := WhaleThreshold(p.values, settings.WhaleMultiplier)

	a := &Analysis{
		Periods: periods,
		Advanced: entities.AdvancedAnalysis{
			TopWhales:      DetectWhales(p.book, threshold, settings.TopWhales),
			WhaleThreshold: threshold.InexactFloat64(),
			SmartMoney:     DetectSmartMoney(p.book, settings.SmartMoneyMinTxs, settings.TopSmartMoney),
			FlowVelocity:   Velocity(transfers, settings.VelocityWindow, settings.AcceleratingRatio, settings.DeceleratingRatio),
			MarketPhase:    Phase(periods),
		},
		Chart:           p.chart(settings.HourlyBuckets, settings.DailyBuckets),
		Statistics:      p.statistics(),
		Coverage:        p.coverage,
		Classifications: p.classes,
	}
	a.Insights = insights(a)
	return a
}

func insights(a *Analysis) []string {
	out := make([]string, 0, 6)
	if a.Statistics.TotalTransfers == 0 {
		return append(out, "No transfer activity found for this token")
	}

	day := a.Periods.Last24h
	switch {
	case day.NetFlow > 0:
		out = append(out, fmt.Sprintf("Net inflow of %s over the last 24h across %d protocol transfers", formatAmount(day.NetFlow), day.TxCount))
	case day.NetFlow < 0:
		out = append(out, fmt.Sprintf("Net outflow of %s over the last 24h across %d protocol transfers", formatAmount(-day.NetFlow), day.TxCount))
	default:
		out = append(out, "No net protocol flow in the last 24h")
	}

	switch a.Advanced.MarketPhase {
	case entities.PhaseAccumulation:
		out = append(out, "Accumulation phase: both 24h and 7d net flows are positive")
	case entities.PhaseDistribution:
		out = append(out, "Distribution phase: both 24h and 7d net flows are negative")
	default:
		out = append(out, "Transition phase: short and medium term flows disagree")
	}

	v := a.Advanced.FlowVelocity
	switch v.Trend {
	case entities.TrendAccelerating:
		out = append(out, fmt.Sprintf("Transfer velocity is accelerating (%+.1f%% versus the previous window)", v.ChangePercent))
	case entities.TrendDecelerating:
		out = append(out, fmt.Sprintf("Transfer velocity is decelerating (%+.1f%% versus the previous window)", v.ChangePercent))
	}

	if n := len(a.Advanced.TopWhales); n > 0 {
		accumulators := 0
		for _, w := range a.Advanced.TopWhales {
			if w.Type == entities.WhaleAccumulator {
				accumulators++
			}
		}
		out = append(out, fmt.Sprintf("%d whale addresses moved more than %s each; %d are accumulating",
			n, formatAmount(a.Advanced.WhaleThreshold), accumulators))
	}

	if a.Advanced.SmartMoney.Count > 0 {
		out = append(out, fmt.Sprintf("%d active addresses are net buyers", a.Advanced.SmartMoney.Count))
	}

	return out
}

func formatAmount(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
