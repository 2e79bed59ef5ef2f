package domain

import (
	"fmt"
	"math"
	"time"
)

// Candle represents one OHLCV bucket of a timeframe.
type Candle struct {
	Timeframe Timeframe `json:"-" msgpack:"-"`
	OpenTime  time.Time `json:"open_time" msgpack:"open_time"` // Start of the bucket, aligned to Timeframe
	Open      float64   `json:"open" msgpack:"open"`
	High      float64   `json:"high" msgpack:"high"`
	Low       float64   `json:"low" msgpack:"low"`
	Close     float64   `json:"close" msgpack:"close"`
	Volume    float64   `json:"volume" msgpack:"volume"`
}

// CloseTime returns the exclusive end of the bucket.
func (c Candle) CloseTime() time.Time {
	return c.OpenTime.Add(c.Timeframe.Duration())
}

// Validate checks the per-candle OHLCV invariants.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("candle %s@%s has non-finite value", c.Timeframe, c.OpenTime.UTC().Format(time.RFC3339))
		}
	}
	if c.Low > math.Min(c.Open, c.Close) || math.Max(c.Open, c.Close) > c.High {
		return fmt.Errorf("candle %s@%s violates low<=open,close<=high (o=%v h=%v l=%v c=%v)",
			c.Timeframe, c.OpenTime.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s@%s has negative volume %v", c.Timeframe, c.OpenTime.UTC().Format(time.RFC3339), c.Volume)
	}
	return nil
}

// ValidateSeries checks the per-candle invariants and the open time stride of an ordered series.
func ValidateSeries(tf Timeframe, candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		gap := c.OpenTime.Sub(candles[i-1].OpenTime)
		if gap <= 0 || gap%tf.Duration() != 0 {
			return fmt.Errorf("candles %s: open time stride %s is not a positive multiple of the timeframe", tf, gap)
		}
	}
	return nil
}
