package flow

import (
	"fmt"
	"time"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

// Coverage is the wall-clock span of a sample
type Coverage struct {
	Oldest    time.Time
	Newest    time.Time
	Size      int
	Truncated bool
}

// Span returns newest minus oldest, zero for an empty sample
func (c Coverage) Span() time.Duration {
	if c.Size == 0 {
		return 0
	}
	return c.Newest.Sub(c.Oldest)
}

// observe widens the coverage to include ts
func (c *Coverage) observe(ts time.Time) {
	if c.Size == 0 || ts.Before(c.Oldest) {
		c.Oldest = ts
	}
	if c.Size == 0 || ts.After(c.Newest) {
		c.Newest = ts
	}
	c.Size++
}

// WindowQuality rates one window against the sample's coverage. The all-time
// window is only limited when the sample was truncated.
func (p QualityPolicy) WindowQuality(period entities.Period, c Coverage) (entities.DataQuality, string) {
	if c.Size == 0 {
		return entities.DataQualityGood, ""
	}

	span := c.Span()
	hours := span.Hours()

	if period == entities.PeriodAll {
		if !c.Truncated {
			return entities.DataQualityGood, ""
		}
		return entities.DataQualityLimitedCoverage,
			fmt.Sprintf("All-time figures only cover the %d most recent transfers (%.1f hours)", c.Size, hours)
	}

	window := period.Duration()
	if span >= window {
		return entities.DataQualityGood, ""
	}
	if span < p.InsufficientTimespan {
		return entities.DataQualityInsufficientTimespan,
			fmt.Sprintf("Sample covers only %.1f hours, %s figures are incomplete", hours, period)
	}
	return entities.DataQualityLimitedCoverage,
		fmt.Sprintf("Sample covers %.1f of %.0f hours in the %s window", hours, window.Hours(), period)
}

// Report rates the sample as a whole
func (p QualityPolicy) Report(source string, c Coverage) entities.DataQualityReport {
	report := entities.DataQualityReport{
		Status:        entities.DataQualityGood,
		Source:        source,
		SampleSize:    c.Size,
		Truncated:     c.Truncated,
		CoverageHours: round2(c.Span().Hours()),
		Warnings:      []string{},
	}

	if source == SourceNone {
		report.Status = entities.DataQualityInsufficientTimespan
		report.Warnings = append(report.Warnings, "Transfer data unavailable: no transfer history provider is configured for this chain")
		return report
	}

	if c.Size == 0 {
		report.Warnings = append(report.Warnings, "No transfer activity found for this token")
		return report
	}

	oldest, newest := c.Oldest.UTC(), c.Newest.UTC()
	report.OldestTransfer = &oldest
	report.NewestTransfer = &newest

	if c.Truncated {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Only the %d most recent transfers were analysed", c.Size))
	}

	span := c.Span()
	switch {
	case span < p.InsufficientTimespan:
		report.Status = entities.DataQualityInsufficientTimespan
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Sample spans %.1f hours, less than %.0f hours; longer windows are not reliable", span.Hours(), p.InsufficientTimespan.Hours()))
	case span < p.LimitedCoverage:
		report.Status = entities.DataQualityLimitedCoverage
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Sample spans %.1f days; 7d and 30d figures are partial", span.Hours()/24))
	}

	return report
}
