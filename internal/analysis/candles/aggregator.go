// Package candles upsamples raw observations into aligned multi-timeframe OHLCV candles.
package candles

import (
	"fmt"
	"time"

	"btcTrendAnalyzer/internal/domain"
)

// Source is the read side of the history buffer the aggregator needs.
type Source interface {
	Latest() (domain.Observation, bool)
	Before(t time.Time) (domain.Observation, bool)
	Range(t0, t1 time.Time) []domain.Observation
}

// Config holds aggregator parameters.
type Config struct {
	Timeframes []domain.Timeframe
	Count      int // Candles kept per timeframe, current bucket included
}

// Aggregator derives OHLCV candles from observations. It does no I/O and never blocks.
type Aggregator struct {
	cfg Config
}

// New creates an Aggregator.
func New(cfg Config) (*Aggregator, error) {
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("at least one timeframe is required")
	}
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("candle count must be positive, got %d", cfg.Count)
	}
	for _, tf := range cfg.Timeframes {
		if tf <= 0 {
			return nil, fmt.Errorf("timeframe must be positive, got %d", tf)
		}
	}
	return &Aggregator{cfg: cfg}, nil
}

// BucketStart aligns t down to a multiple of tf minutes since the Unix epoch.
func BucketStart(t time.Time, tf domain.Timeframe) time.Time {
	minutes := floorDiv(t.Unix(), 60)
	start := floorDiv(minutes, int64(tf)) * int64(tf)
	return time.Unix(start*60, 0).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// AggregateAll computes candles for every configured timeframe.
func (a *Aggregator) AggregateAll(src Source, now time.Time) map[domain.Timeframe][]domain.Candle {
	out := make(map[domain.Timeframe][]domain.Candle, len(a.cfg.Timeframes))
	for _, tf := range a.cfg.Timeframes {
		out[tf] = a.Aggregate(src, tf, now)
	}
	return out
}

// Aggregate returns up to Count candles of timeframe tf, oldest first, ending
// with the bucket that contains now. Buckets without observations are
// forward-filled from the previous close with zero volume; buckets before the
// first known observation are omitted. An empty source yields an empty slice.
func (a *Aggregator) Aggregate(src Source, tf domain.Timeframe, now time.Time) []domain.Candle {
	latest, ok := src.Latest()
	if !ok {
		return []domain.Candle{}
	}
	ref := now
	if latest.Timestamp.After(ref) {
		ref = latest.Timestamp
	}

	step := tf.Duration()
	current := BucketStart(ref, tf)
	first := current.Add(-time.Duration(a.cfg.Count-1) * step)

	observations := src.Range(first, ref)
	prior, hasPrior := src.Before(first)
	lastClose := prior.Price

	candles := make([]domain.Candle, 0, a.cfg.Count)
	i := 0
	for start := first; !start.After(current); start = start.Add(step) {
		end := start.Add(step)

		c := domain.Candle{Timeframe: tf, OpenTime: start}
		filled := false
		for i < len(observations) && observations[i].Timestamp.Before(end) {
			o := observations[i]
			if !filled {
				c.Open, c.High, c.Low = o.Price, o.Price, o.Price
				filled = true
			}
			if o.Price > c.High {
				c.High = o.Price
			}
			if o.Price < c.Low {
				c.Low = o.Price
			}
			c.Close = o.Price
			c.Volume += o.Volume
			i++
		}

		switch {
		case filled:
			lastClose = c.Close
			hasPrior = true
		case hasPrior:
			c.Open, c.High, c.Low, c.Close = lastClose, lastClose, lastClose, lastClose
		default:
			continue
		}
		candles = append(candles, c)
	}
	return candles
}
