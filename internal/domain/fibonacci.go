package domain

import (
	"fmt"
	"strconv"
	"time"
)

// FibonacciRatios is the fixed, ascending set of retracement and extension ratios.
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1, 1.272, 1.618}

// FibonacciLevel is a price at a given ratio between Low and High.
type FibonacciLevel struct {
	Ratio float64
	Price float64
}

// FibonacciLevels holds the levels computed over one rolling window.
type FibonacciLevels struct {
	High         float64
	Low          float64
	Levels       []FibonacciLevel // Ordered by ratio, same order as FibonacciRatios
	Bootstrapped bool             // High/Low come from the +/-20% band around the current price
	LastUpdate   time.Time
}

// RatioKey formats a ratio the way it appears in published payloads, e.g. "0.618".
func RatioKey(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', -1, 64)
}

// Map returns the levels keyed by RatioKey.
func (f FibonacciLevels) Map() map[string]float64 {
	m := make(map[string]float64, len(f.Levels))
	for _, l := range f.Levels {
		m[RatioKey(l.Ratio)] = l.Price
	}
	return m
}

// Validate checks high >= low and that levels are non-decreasing in ratio.
func (f FibonacciLevels) Validate() error {
	if f.High < f.Low {
		return fmt.Errorf("fibonacci high %v below low %v", f.High, f.Low)
	}
	for i := 1; i < len(f.Levels); i++ {
		if f.Levels[i].Ratio <= f.Levels[i-1].Ratio {
			return fmt.Errorf("fibonacci ratios not ascending at index %d", i)
		}
		if f.Levels[i].Price < f.Levels[i-1].Price {
			return fmt.Errorf("fibonacci level %s (%v) below level %s (%v)",
				RatioKey(f.Levels[i].Ratio), f.Levels[i].Price, RatioKey(f.Levels[i-1].Ratio), f.Levels[i-1].Price)
		}
	}
	return nil
}
