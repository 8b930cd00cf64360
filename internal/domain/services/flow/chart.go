package flow

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

type bucket struct {
	start   time.Time
	inflow  decimal.Decimal
	outflow decimal.Decimal
	volume  decimal.Decimal
	txCount int
}

func (p *pass) addToBucket(buckets map[int64]*bucket, start time.Time, value decimal.Decimal, c Classification) {
	key := start.Unix()
	b, ok := buckets[key]
	if !ok {
		b = &bucket{start: start}
		buckets[key] = b
	}

	switch {
	case c.IsInflow():
		b.inflow = b.inflow.Add(value)
	case c.IsOutflow():
		b.outflow = b.outflow.Add(value)
	}
	b.volume = b.volume.Add(value)
	b.txCount++
}

// series returns the latest n buckets in ascending order
func series(buckets map[int64]*bucket, n int, layout string) []entities.ChartPoint {
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}

	points := make([]entities.ChartPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		points = append(points, entities.ChartPoint{
			Timestamp: b.start,
			Label:     b.start.Format(layout),
			Inflow:    b.inflow.InexactFloat64(),
			Outflow:   b.outflow.InexactFloat64(),
			NetFlow:   b.inflow.Sub(b.outflow).InexactFloat64(),
			Volume:    b.volume.InexactFloat64(),
			TxCount:   b.txCount,
		})
	}
	return points
}

const (
	hourlyLabel = "2006-01-02 15:00"
	dailyLabel  = "2006-01-02"
)

func (p *pass) chart(hourly, daily int) entities.ChartData {
	return entities.ChartData{
		Hourly: series(p.hourly, hourly, hourlyLabel),
		Daily:  series(p.daily, daily, dailyLabel),
	}
}

// BuildChart bins transfers into UTC hourly and daily buckets and returns the
// latest hourly and daily buckets in ascending time order.
func BuildChart(transfers []entities.Transfer, table *ProtocolTable, hourly, daily int) entities.ChartData {
	p := newPass(time.Now(), table, len(transfers))
	for _, t := range transfers {
		p.add(t)
	}
	return p.chart(hourly, daily)
}
