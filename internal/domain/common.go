package domain

import (
	"fmt"
	"time"
)

// Timeframe is a candle duration in minutes.
type Timeframe int

// Supported timeframes.
const (
	TF1m    Timeframe = 1
	TF5m    Timeframe = 5
	TF15m   Timeframe = 15
	TF30m   Timeframe = 30
	TF1h    Timeframe = 60
	TF4h    Timeframe = 240
	TF12h   Timeframe = 720
	TF1444m Timeframe = 1444
)

// DefaultTimeframes is the configured set when nothing else is given.
var DefaultTimeframes = []Timeframe{TF1m, TF5m, TF15m, TF30m, TF1h, TF4h, TF12h, TF1444m}

// IsSupported reports whether tf is one of the known timeframes.
func (tf Timeframe) IsSupported() bool {
	for _, known := range DefaultTimeframes {
		if tf == known {
			return true
		}
	}
	return false
}

// Minutes returns the timeframe length in minutes.
func (tf Timeframe) Minutes() int {
	return int(tf)
}

// Duration returns the timeframe length as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Minute
}

// String returns the key suffix form, e.g. "15min".
func (tf Timeframe) String() string {
	return fmt.Sprintf("%dmin", int(tf))
}

// TrendLabel is the ordinal classification of a % price change.
type TrendLabel string

const (
	StronglyBullish TrendLabel = "StronglyBullish"
	Bullish         TrendLabel = "Bullish"
	Neutral         TrendLabel = "Neutral"
	Bearish         TrendLabel = "Bearish"
	StronglyBearish TrendLabel = "StronglyBearish"
	NoData          TrendLabel = "NoData" // Not enough history; distinct from Neutral
)

// Trend pairs a label with the signed % change that produced it.
type Trend struct {
	Timeframe Timeframe
	Label     TrendLabel
	ChangePct float64
}

// HasData reports whether the trend was computed from real history.
func (t Trend) HasData() bool {
	return t.Label != NoData
}
