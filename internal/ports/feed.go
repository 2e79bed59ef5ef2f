package ports

import (
	"context"

	"btcTrendAnalyzer/internal/domain"
)

// ObservationFeed produces observations from an upstream source.
// Run blocks, sending observations to sink in timestamp order, until ctx is
// canceled or the source fails. Implementations must stop sending once ctx is done.
type ObservationFeed interface {
	Run(ctx context.Context, sink chan<- domain.Observation) error

	// Name identifies the feed in logs.
	Name() string
}
