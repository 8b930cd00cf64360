package flow

import "time"

// QualityPolicy holds the coverage thresholds used for data-quality annotations
type QualityPolicy struct {
	InsufficientTimespan time.Duration
	LimitedCoverage      time.Duration
}

// DefaultQualityPolicy flags samples under a day as insufficient and under a week as limited
func DefaultQualityPolicy() QualityPolicy {
	return QualityPolicy{
		InsufficientTimespan: 24 * time.Hour,
		LimitedCoverage:      7 * 24 * time.Hour,
	}
}

// Settings are the tunable constants of the flow analysis
type Settings struct {
	Quality             QualityPolicy
	MaxTransfers        int
	MaxDisplayTransfers int
	DefaultPageLimit    int
	WhaleMultiplier     float64
	TopWhales           int
	SmartMoneyMinTxs    int
	TopSmartMoney       int
	VelocityWindow      int
	AcceleratingRatio   float64
	DeceleratingRatio   float64
	HourlyBuckets       int
	DailyBuckets        int
}

// DefaultSettings returns the stock analysis constants
func DefaultSettings() Settings {
	return Settings{
		Quality:             DefaultQualityPolicy(),
		MaxTransfers:        15000,
		MaxDisplayTransfers: 50,
		DefaultPageLimit:    50,
		WhaleMultiplier:     10,
		TopWhales:           10,
		SmartMoneyMinTxs:    5,
		TopSmartMoney:       5,
		VelocityWindow:      100,
		AcceleratingRatio:   1.2,
		DeceleratingRatio:   0.8,
		HourlyBuckets:       24,
		DailyBuckets:        30,
	}
}

// withDefaults fills zero values so a partially populated Settings is usable
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Quality.InsufficientTimespan <= 0 {
		s.Quality.InsufficientTimespan = d.Quality.InsufficientTimespan
	}
	if s.Quality.LimitedCoverage <= 0 {
		s.Quality.LimitedCoverage = d.Quality.LimitedCoverage
	}
	if s.MaxTransfers <= 0 {
		s.MaxTransfers = d.MaxTransfers
	}
	if s.MaxDisplayTransfers <= 0 {
		s.MaxDisplayTransfers = d.MaxDisplayTransfers
	}
	if s.DefaultPageLimit <= 0 {
		s.DefaultPageLimit = d.DefaultPageLimit
	}
	if s.WhaleMultiplier <= 0 {
		s.WhaleMultiplier = d.WhaleMultiplier
	}
	if s.TopWhales <= 0 {
		s.TopWhales = d.TopWhales
	}
	if s.SmartMoneyMinTxs <= 0 {
		s.SmartMoneyMinTxs = d.SmartMoneyMinTxs
	}
	if s.TopSmartMoney <= 0 {
		s.TopSmartMoney = d.TopSmartMoney
	}
	if s.VelocityWindow <= 0 {
		s.VelocityWindow = d.VelocityWindow
	}
	if s.AcceleratingRatio <= 0 {
		s.AcceleratingRatio = d.AcceleratingRatio
	}
	if s.DeceleratingRatio <= 0 {
		s.DeceleratingRatio = d.DeceleratingRatio
	}
	if s.HourlyBuckets <= 0 {
		s.HourlyBuckets = d.HourlyBuckets
	}
	if s.DailyBuckets <= 0 {
		s.DailyBuckets = d.DailyBuckets
	}
	return s
}
