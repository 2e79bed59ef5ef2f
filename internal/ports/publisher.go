package ports

import (
	"context"

	"btcTrendAnalyzer/internal/domain"
)

// StatePublisher writes tick snapshots to the shared store.
type StatePublisher interface {
	// Publish writes snap, honoring any backoff in effect after earlier failures.
	Publish(ctx context.Context, snap domain.Snapshot) error
	// Flush writes snap immediately. Used for the final publish on shutdown.
	Flush(ctx context.Context, snap domain.Snapshot) error
	// Healthy is false while the store is failing persistently.
	Healthy() bool
}
