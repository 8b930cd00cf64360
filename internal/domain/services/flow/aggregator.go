package flow

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

type window struct {
	period    entities.Period
	start     time.Time
	inflow    decimal.Decimal
	outflow   decimal.Decimal
	txCount   int
	addresses map[string]struct{}
}

func (w *window) includes(ts time.Time) bool {
	return w.period == entities.PeriodAll || !ts.Before(w.start)
}

// AddressActivity is the per-address ledger used by the whale and smart-money heuristics
type AddressActivity struct {
	Inflow  decimal.Decimal // value received
	Outflow decimal.Decimal // value sent
	TxCount int             // transfers touching the address
}

// Volume is inflow plus outflow
func (a *AddressActivity) Volume() decimal.Decimal { return a.Inflow.Add(a.Outflow) }

// Net is inflow minus outflow
func (a *AddressActivity) Net() decimal.Decimal { return a.Inflow.Sub(a.Outflow) }

// AddressBook maps normalised addresses to their activity
type AddressBook map[string]*AddressActivity

// pass accumulates everything the analysis needs in one walk over the sample.
// It is request-scoped and never shared.
type pass struct {
	table    *ProtocolTable
	windows  []*window
	book     AddressBook
	hourly   map[int64]*bucket
	daily    map[int64]*bucket
	coverage Coverage
	values   []decimal.Decimal
	classes  []Classification
	total    decimal.Decimal
	largest  decimal.Decimal
	kinds    map[entities.TransferKind]int
}

func newPass(now time.Time, table *ProtocolTable, sizeHint int) *pass {
	p := &pass{
		table:   table,
		book:    make(AddressBook),
		hourly:  make(map[int64]*bucket),
		daily:   make(map[int64]*bucket),
		values:  make([]decimal.Decimal, 0, sizeHint),
		classes: make([]Classification, 0, sizeHint),
		kinds:   make(map[entities.TransferKind]int),
	}
	for _, period := range entities.Periods {
		p.windows = append(p.windows, &window{
			period:    period,
			start:     now.Add(-period.Duration()),
			addresses: make(map[string]struct{}),
		})
	}
	return p
}

func (p *pass) add(t entities.Transfer) Classification {
	c := Classify(t, p.table)
	from, to := NormalizeAddress(t.From), NormalizeAddress(t.To)
	fromReal, toReal := !IsZeroAddress(from), !IsZeroAddress(to)

	for _, w := range p.windows {
		if !w.includes(t.Timestamp) {
			continue
		}
		if fromReal {
			w.addresses[from] = struct{}{}
		}
		if toReal {
			w.addresses[to] = struct{}{}
		}
		switch {
		case c.IsInflow():
			w.inflow = w.inflow.Add(t.Value)
			w.txCount++
		case c.IsOutflow():
			w.outflow = w.outflow.Add(t.Value)
			w.txCount++
		}
	}

	if fromReal {
		s := p.entry(from)
		s.Outflow = s.Outflow.Add(t.Value)
		s.TxCount++
	}
	if toReal {
		s := p.entry(to)
		s.Inflow = s.Inflow.Add(t.Value)
		if to != from {
			s.TxCount++
		}
	}

	p.addToBucket(p.hourly, t.Timestamp.UTC().Truncate(time.Hour), t.Value, c)
	p.addToBucket(p.daily, startOfDay(t.Timestamp), t.Value, c)

	p.coverage.observe(t.Timestamp)
	p.values = append(p.values, t.Value)
	p.classes = append(p.classes, c)
	p.total = p.total.Add(t.Value)
	if t.Value.GreaterThan(p.largest) {
		p.largest = t.Value
	}
	p.kinds[c.Kind]++

	return c
}

func (p *pass) entry(address string) *AddressActivity {
	s, ok := p.book[address]
	if !ok {
		s = &AddressActivity{}
		p.book[address] = s
	}
	return s
}

// periods converts the window accumulators into response metrics
func (p *pass) periods(policy QualityPolicy) entities.PeriodSet {
	var set entities.PeriodSet
	for _, w := range p.windows {
		m := entities.PeriodMetrics{
			Inflow:          w.inflow.InexactFloat64(),
			Outflow:         w.outflow.InexactFloat64(),
			NetFlow:         w.inflow.Sub(w.outflow).InexactFloat64(),
			TxCount:         w.txCount,
			UniqueAddresses: len(w.addresses),
		}
		if w.txCount > 0 {
			m.AvgTransferSize = w.inflow.Add(w.outflow).Div(decimal.NewFromInt(int64(w.txCount))).InexactFloat64()
		}
		m.DataQuality, m.Note = policy.WindowQuality(w.period, p.coverage)
		set.Set(w.period, m)
	}
	return set
}

func (p *pass) statistics() entities.FlowStatistics {
	stats := entities.FlowStatistics{
		TotalTransfers:     p.coverage.Size,
		TotalVolume:        p.total.InexactFloat64(),
		MedianTransferSize: Median(p.values).InexactFloat64(),
		LargestTransfer:    p.largest.InexactFloat64(),
		UniqueAddresses:    len(p.book),
		Mints:              p.kinds[entities.KindMint],
		Burns:              p.kinds[entities.KindBurn],
		Deposits:           p.kinds[entities.KindDeposit],
		Withdrawals:        p.kinds[entities.KindWithdraw],
		Neutral:            p.kinds[entities.KindInternal] + p.kinds[entities.KindTransfer],
	}
	if p.coverage.Size > 0 {
		stats.AverageTransferSize = p.total.Div(decimal.NewFromInt(int64(p.coverage.Size))).InexactFloat64()
	}
	return stats
}

// Aggregate buckets transfers into the cumulative 24h, 7d, 30d and all-time windows
// relative to now. A transfer is in a window when its timestamp is at or after the
// window start, so shorter windows are always contained in longer ones.
func Aggregate(transfers []entities.Transfer, now time.Time, table *ProtocolTable, policy QualityPolicy, truncated bool) entities.PeriodSet {
	p := newPass(now, table, len(transfers))
	p.coverage.Truncated = truncated
	for _, t := range transfers {
		p.add(t)
	}
	return p.periods(policy)
}

// SortNewestFirst orders transfers by descending timestamp, keeping provider order for ties
func SortNewestFirst(transfers []entities.Transfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.After(transfers[j].Timestamp)
	})
}

func startOfDay(ts time.Time) time.Time {
	u := ts.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
