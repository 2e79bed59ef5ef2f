// Package trend labels the % price change over each timeframe.
package trend

import (
	"fmt"
	"math"
	"time"

	"btcTrendAnalyzer/internal/domain"
)

// Default thresholds in percent.
const (
	DefaultStrong = 2.0
	DefaultMild   = 0.5
)

// Source is the read side of the history buffer the classifier needs.
type Source interface {
	Latest() (domain.Observation, bool)
	PriceAt(delta time.Duration) (domain.Observation, error)
}

// Config holds classifier parameters. Thresholds are used as given; a zero
// mild threshold is valid.
type Config struct {
	Timeframes []domain.Timeframe
	Strong     float64
	Mild       float64
	StaleAfter time.Duration // Head older than this at tick time yields NoData; 0 disables
}

// Classifier maps price changes to trend labels.
type Classifier struct {
	cfg Config
}

// ValidateThresholds enforces 0 <= mild < strong, both finite.
func ValidateThresholds(mild, strong float64) error {
	if math.IsNaN(mild) || math.IsInf(mild, 0) || math.IsNaN(strong) || math.IsInf(strong, 0) {
		return fmt.Errorf("thresholds must be finite, got mild=%v strong=%v", mild, strong)
	}
	if mild < 0 || strong <= mild {
		return fmt.Errorf("thresholds must satisfy 0 <= mild < strong, got mild=%v strong=%v", mild, strong)
	}
	return nil
}

// New creates a Classifier.
func New(cfg Config) (*Classifier, error) {
	if err := ValidateThresholds(cfg.Mild, cfg.Strong); err != nil {
		return nil, err
	}
	if cfg.StaleAfter < 0 {
		return nil, fmt.Errorf("stale-after must not be negative, got %s", cfg.StaleAfter)
	}
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("at least one timeframe is required")
	}
	return &Classifier{cfg: cfg}, nil
}

// Classify labels the change from then to now. It returns NoData when then
// is not a positive finite price.
func (c *Classifier) Classify(now, then float64) (domain.TrendLabel, float64) {
	if then <= 0 || math.IsNaN(then) || math.IsInf(then, 0) || math.IsNaN(now) || math.IsInf(now, 0) {
		return domain.NoData, 0
	}
	change := (now - then) * 100 / then
	return c.Label(change), change
}

// Label applies the thresholds to a % change. Boundaries belong to the
// weaker label.
func (c *Classifier) Label(change float64) domain.TrendLabel {
	switch {
	case change > c.cfg.Strong:
		return domain.StronglyBullish
	case change > c.cfg.Mild:
		return domain.Bullish
	case change >= -c.cfg.Mild:
		return domain.Neutral
	case change >= -c.cfg.Strong:
		return domain.Bearish
	default:
		return domain.StronglyBearish
	}
}

// ClassifyTimeframe compares the head price to the price tf minutes before the
// head. The result is NoData without an observation that old
// (ports.ErrInsufficientHistory) and when the head is stale at now.
func (c *Classifier) ClassifyTimeframe(src Source, tf domain.Timeframe, now time.Time) domain.Trend {
	out := domain.Trend{Timeframe: tf, Label: domain.NoData}
	head, ok := src.Latest()
	if !ok || c.stale(head, now) {
		return out
	}
	then, err := src.PriceAt(tf.Duration())
	if err != nil {
		return out
	}
	out.Label, out.ChangePct = c.Classify(head.Price, then.Price)
	return out
}

// ClassifyAll classifies every configured timeframe at tick time now, in
// configuration order.
func (c *Classifier) ClassifyAll(src Source, now time.Time) []domain.Trend {
	out := make([]domain.Trend, 0, len(c.cfg.Timeframes))
	for _, tf := range c.cfg.Timeframes {
		out = append(out, c.ClassifyTimeframe(src, tf, now))
	}
	return out
}

func (c *Classifier) stale(head domain.Observation, now time.Time) bool {
	return c.cfg.StaleAfter > 0 && now.Sub(head.Timestamp) > c.cfg.StaleAfter
}
