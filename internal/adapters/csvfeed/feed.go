// Package csvfeed replays recorded observations as a ports.ObservationFeed.
package csvfeed

import (
	"context"
	"fmt"
	"time"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
	"btcTrendAnalyzer/internal/utils"
)

// Feed emits a fixed list of observations once, in file order, then returns nil.
type Feed struct {
	name         string
	observations []domain.Observation
	pace         time.Duration // Delay between observations; 0 replays as fast as the sink accepts
}

// Open loads a replay file.
func Open(path string, pace time.Duration) (*Feed, error) {
	observations, err := utils.ReadObservationsFromCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load replay file %s: %w", path, err)
	}
	return &Feed{name: "csv:" + path, observations: observations, pace: pace}, nil
}

// FromObservations wraps an in-memory list.
func FromObservations(name string, observations []domain.Observation, pace time.Duration) *Feed {
	return &Feed{name: name, observations: observations, pace: pace}
}

// Name identifies the feed in logs.
func (f *Feed) Name() string {
	return f.name
}

// Observations returns the loaded observations.
func (f *Feed) Observations() []domain.Observation {
	return f.observations
}

// Run sends every observation to sink. It stops early, returning nil, when
// ctx is canceled.
func (f *Feed) Run(ctx context.Context, sink chan<- domain.Observation) error {
	var ticker *time.Ticker
	if f.pace > 0 {
		ticker = time.NewTicker(f.pace)
		defer ticker.Stop()
	}
	for _, obs := range f.observations {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
		select {
		case sink <- obs:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

var _ ports.ObservationFeed = (*Feed)(nil)
