// Package fibonacci computes retracement and extension levels over a rolling price window.
package fibonacci

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"btcTrendAnalyzer/internal/domain"
)

// DefaultWindow is the number of most recent observations considered.
const DefaultWindow = 200

// Bootstrap band applied around the current price while the window has no range.
var (
	bootstrapHigh = decimal.RequireFromString("1.2")
	bootstrapLow  = decimal.RequireFromString("0.8")
)

// WindowSource provides the most recent observations.
type WindowSource interface {
	LastN(n int) []domain.Observation
}

// Config holds engine parameters.
type Config struct {
	Window int
}

// Engine derives FibonacciLevels from the last Window observation prices.
type Engine struct {
	window int
}

// New creates an Engine. A zero window selects DefaultWindow.
func New(cfg Config) (*Engine, error) {
	if cfg.Window < 0 {
		return nil, fmt.Errorf("fibonacci window must not be negative, got %d", cfg.Window)
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	return &Engine{window: cfg.Window}, nil
}

// Window returns the configured window size.
func (e *Engine) Window() int {
	return e.window
}

// Compute returns the levels for the current window. When the window holds
// fewer than two distinct prices, high and low come from a +/-20% band around
// current and the result is marked Bootstrapped.
func (e *Engine) Compute(src WindowSource, current float64, now time.Time) domain.FibonacciLevels {
	return e.ComputePrices(prices(src.LastN(e.window)), current, now)
}

// ComputePrices is Compute over an explicit price window.
func (e *Engine) ComputePrices(window []float64, current float64, now time.Time) domain.FibonacciLevels {
	if len(window) > e.window {
		window = window[len(window)-e.window:]
	}

	high, low, distinct := extremes(window)
	if !distinct {
		c := decimal.NewFromFloat(current)
		h, _ := c.Mul(bootstrapHigh).Float64()
		l, _ := c.Mul(bootstrapLow).Float64()
		levels := Levels(h, l)
		levels.Bootstrapped = true
		levels.LastUpdate = now.UTC()
		return levels
	}

	levels := Levels(high, low)
	levels.LastUpdate = now.UTC()
	return levels
}

// Levels maps every ratio in domain.FibonacciRatios to low + ratio*(high-low).
// When high == low every level equals low.
func Levels(high, low float64) domain.FibonacciLevels {
	h := decimal.NewFromFloat(high)
	l := decimal.NewFromFloat(low)
	span := h.Sub(l)

	out := domain.FibonacciLevels{
		High:   high,
		Low:    low,
		Levels: make([]domain.FibonacciLevel, len(domain.FibonacciRatios)),
	}
	for i, r := range domain.FibonacciRatios {
		var price float64
		switch r {
		case 0:
			price = low
		case 1:
			price = high
		default:
			price, _ = l.Add(span.Mul(decimal.NewFromFloat(r))).Float64()
		}
		out.Levels[i] = domain.FibonacciLevel{Ratio: r, Price: price}
	}
	return out
}

// Nearest returns the level closest to price. Ties resolve to the lower ratio.
func Nearest(levels domain.FibonacciLevels, price float64) (domain.FibonacciLevel, bool) {
	if len(levels.Levels) == 0 {
		return domain.FibonacciLevel{}, false
	}
	best := levels.Levels[0]
	bestDist := math.Abs(price - best.Price)
	for _, l := range levels.Levels[1:] {
		if d := math.Abs(price - l.Price); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, true
}

func prices(obs []domain.Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Price
	}
	return out
}

// extremes reports max, min and whether at least two distinct values exist.
func extremes(values []float64) (high, low float64, distinct bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	high, low = values[0], values[0]
	for _, v := range values[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low, high != low
}
