package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jpillora/backoff"

	"btcTrendAnalyzer/config"
	"btcTrendAnalyzer/internal/analysis/candles"
	"btcTrendAnalyzer/internal/analysis/fibonacci"
	"btcTrendAnalyzer/internal/analysis/trend"
	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/history"
	"btcTrendAnalyzer/internal/ports"
)

const shutdownFlushTimeout = 5 * time.Second

// AnalyzerService owns the history buffer and drives the per-tick pipeline:
// drain observations, aggregate candles, compute Fibonacci levels, classify
// trends, check invariants, publish. All analysis state is confined to the
// loop goroutine; only the feed supervisor runs alongside it.
type AnalyzerService struct {
	cfg       *config.Config
	logger    ports.Logger
	feed      ports.ObservationFeed
	publisher ports.StatePublisher
	clock     ports.Clock

	buffer     *history.Buffer
	aggregator *candles.Aggregator
	fibonacci  *fibonacci.Engine
	classifier *trend.Classifier
	queue      chan domain.Observation

	// Loop-owned state
	lastTick          time.Time
	last              domain.Snapshot
	ticks             uint64
	observations      uint64
	droppedOutOfOrder uint64
	rejected          uint64
	skippedTicks      uint64

	feedFailures atomic.Uint64
}

// NewAnalyzerService creates the service. feed may be nil when observations
// are pushed with Ingest.
func NewAnalyzerService(
	cfg *config.Config,
	logger ports.Logger,
	feed ports.ObservationFeed,
	publisher ports.StatePublisher,
	clock ports.Clock,
) (*AnalyzerService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || publisher == nil {
		return nil, fmt.Errorf("missing required dependencies for AnalyzerService")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("configuration TickInterval must be positive")
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("configuration QueueSize must be positive")
	}

	aggregator, err := candles.New(candles.Config{Timeframes: cfg.Timeframes, Count: cfg.CandlesPerTimeframe})
	if err != nil {
		return nil, fmt.Errorf("candle aggregator: %w", err)
	}
	fib, err := fibonacci.New(fibonacci.Config{Window: cfg.HistoryWindow})
	if err != nil {
		return nil, fmt.Errorf("fibonacci engine: %w", err)
	}
	classifier, err := trend.New(trend.Config{
		Timeframes: cfg.Timeframes,
		Strong:     cfg.StrongThreshold,
		Mild:       cfg.MildThreshold,
		StaleAfter: cfg.StaleAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("trend classifier: %w", err)
	}

	capacity := cfg.HistoryCapacity
	if capacity <= 0 {
		capacity = history.CapacityFor(cfg.MaxTimeframe(), cfg.CandlesPerTimeframe, cfg.HistorySlackMinutes, cfg.SamplesPerMinute())
	}

	return &AnalyzerService{
		cfg:        cfg,
		logger:     logger.With(map[string]interface{}{"component": "analyzer"}),
		feed:       feed,
		publisher:  publisher,
		clock:      clock,
		buffer:     history.NewResampledBuffer(capacity, cfg.SampleResolution),
		aggregator: aggregator,
		fibonacci:  fib,
		classifier: classifier,
		queue:      make(chan domain.Observation, cfg.QueueSize),
	}, nil
}

// Start runs the service until SIGINT/SIGTERM or ctx cancellation.
func (s *AnalyzerService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Analyzer Service...", map[string]interface{}{
		"timeframes":      len(s.cfg.Timeframes),
		"historyCapacity": s.buffer.Cap(),
		"sampleEvery":     s.buffer.Resolution().String(),
		"tickInterval":    s.cfg.TickInterval.String(),
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel() // Cancel the main context
		case <-ctx.Done():
		}
	}()

	return s.Run(ctx)
}

// Run starts the feed supervisor and the tick loop. It returns nil after a
// clean shutdown, or an error wrapping ports.ErrStorePersistent when the
// store keeps failing and ExitOnStoreFailure is set.
func (s *AnalyzerService) Run(ctx context.Context) error {
	feedCtx, stopFeed := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if s.feed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.superviseFeed(feedCtx)
		}()
	}
	defer func() {
		stopFeed()
		wg.Wait()
	}()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopFeed()
			wg.Wait()
			s.shutdown()
			return nil
		case obs := <-s.queue:
			// Trades merged into the current sample wait for the ticker.
			if opened, err := s.ingest(obs); err != nil || !opened {
				continue
			}
			if err := s.Tick(ctx); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// superviseFeed restarts the feed with exponential backoff until ctx is done
// or the feed finishes cleanly.
func (s *AnalyzerService) superviseFeed(ctx context.Context) {
	b := &backoff.Backoff{
		Min:    s.cfg.FeedBackoffMin,
		Max:    s.cfg.FeedBackoffMax,
		Factor: 2,
		Jitter: true,
	}
	logger := s.logger.With(map[string]interface{}{"feed": s.feed.Name()})

	for {
		started := time.Now()
		err := s.feed.Run(ctx, s.queue)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			logger.Info(ctx, "Observation feed finished")
			return
		}

		failures := s.feedFailures.Add(1)
		if time.Since(started) > b.Max {
			b.Reset() // It ran fine for a while; start over from the shortest delay.
		}
		delay := b.Duration()
		logger.Warn(ctx, "Observation feed failed, restarting", map[string]interface{}{
			"error":    err.Error(),
			"failures": failures,
			"retryIn":  delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// Ingest appends one observation to the history buffer. Out-of-order and
// invalid observations are counted and dropped.
func (s *AnalyzerService) Ingest(obs domain.Observation) error {
	_, err := s.ingest(obs)
	return err
}

// ingest reports whether obs started a new history sample.
func (s *AnalyzerService) ingest(obs domain.Observation) (bool, error) {
	opened, err := s.buffer.Add(obs)
	switch {
	case err == nil:
		s.observations++
	case errors.Is(err, ports.ErrOutOfOrder):
		s.droppedOutOfOrder++
		s.logger.Debug(context.Background(), "Dropped out-of-order observation", map[string]interface{}{"error": err.Error()})
	default:
		s.rejected++
		s.logger.Warn(context.Background(), "Rejected observation", map[string]interface{}{"error": err.Error()})
	}
	return opened, err
}

// Tick runs one pass of the pipeline at the clock's current time. A failed
// computation skips the publish and keeps the previous published values.
func (s *AnalyzerService) Tick(ctx context.Context) error {
	s.drain()

	snap, err := s.compute(s.now())
	if err != nil {
		s.skippedTicks++
		s.logger.Error(ctx, err, "Analysis tick failed, skipping publish", s.snapshotFields(snap))
		return nil
	}
	s.last = snap

	err = s.publisher.Publish(ctx, snap)
	switch {
	case err == nil:
		s.logger.Debug(ctx, "Published snapshot", map[string]interface{}{"tick": snap.Ticks, "price": snap.Price})
	case errors.Is(err, ports.ErrPublishDeferred):
		s.logger.Debug(ctx, "Publish deferred", map[string]interface{}{"reason": err.Error()})
	case errors.Is(err, ports.ErrStorePersistent) && s.cfg.ExitOnStoreFailure:
		return err
	}
	return nil
}

// Snapshot returns the last successfully computed snapshot.
func (s *AnalyzerService) Snapshot() domain.Snapshot {
	return s.last
}

// Buffer exposes the history buffer for inspection.
func (s *AnalyzerService) Buffer() *history.Buffer {
	return s.buffer
}

// FeedFailures returns how many times the feed has failed and been restarted.
func (s *AnalyzerService) FeedFailures() uint64 {
	return s.feedFailures.Load()
}

// drain moves every queued observation into the buffer without blocking.
func (s *AnalyzerService) drain() {
	for {
		select {
		case obs := <-s.queue:
			_ = s.Ingest(obs)
		default:
			return
		}
	}
}

// now reads the clock and clamps regressions so tick timestamps never go backwards.
func (s *AnalyzerService) now() time.Time {
	t := s.clock.Now().UTC()
	if t.Before(s.lastTick) {
		t = s.lastTick
	}
	s.lastTick = t
	return t
}

func (s *AnalyzerService) compute(now time.Time) (snap domain.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during analysis: %v: %w", r, ports.ErrInternalInvariant)
		}
	}()

	s.ticks++
	snap = domain.Snapshot{
		Timestamp:         now,
		Ticks:             s.ticks,
		Observations:      s.observations,
		DroppedOutOfOrder: s.droppedOutOfOrder,
		FeedFailures:      s.feedFailures.Load(),
		HistorySize:       s.buffer.Len(),
	}

	latest, ok := s.buffer.Latest()
	if ok {
		snap.HasPrice = true
		snap.Price = latest.Price
		snap.ObservedAt = latest.Timestamp
		snap.Stale = now.Sub(latest.Timestamp) > s.cfg.StaleAfter
	}

	snap.Candles = s.aggregator.AggregateAll(s.buffer, now)
	snap.Fibonacci = s.fibonacci.Compute(s.buffer, latest.Price, now)
	snap.Trends = s.classifier.ClassifyAll(s.buffer, now)
	if ok {
		if level, found := fibonacci.Nearest(snap.Fibonacci, latest.Price); found {
			snap.NearestRatio = domain.RatioKey(level.Ratio)
		}
	}

	if err := checkInvariants(snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// checkInvariants verifies a snapshot before it is published.
func checkInvariants(snap domain.Snapshot) error {
	for tf, series := range snap.Candles {
		if err := domain.ValidateSeries(tf, series); err != nil {
			return fmt.Errorf("candles %s: %v: %w", tf, err, ports.ErrInternalInvariant)
		}
	}
	if snap.HasPrice {
		if err := snap.Fibonacci.Validate(); err != nil {
			return fmt.Errorf("%v: %w", err, ports.ErrInternalInvariant)
		}
	}
	for _, tr := range snap.Trends {
		switch tr.Label {
		case domain.StronglyBullish, domain.Bullish, domain.Neutral, domain.Bearish, domain.StronglyBearish:
		case domain.NoData:
			if tr.ChangePct != 0 {
				return fmt.Errorf("trend %s is NoData with change %v: %w", tr.Timeframe, tr.ChangePct, ports.ErrInternalInvariant)
			}
		default:
			return fmt.Errorf("trend %s has unknown label %q: %w", tr.Timeframe, tr.Label, ports.ErrInternalInvariant)
		}
	}
	return nil
}

// shutdown drains what the feed already delivered and flushes one final publish.
func (s *AnalyzerService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	s.drain()
	snap, err := s.compute(s.now())
	if err != nil {
		s.logger.Error(ctx, err, "Final analysis failed, nothing flushed", s.snapshotFields(snap))
		return
	}
	s.last = snap
	if err := s.publisher.Flush(ctx, snap); err != nil {
		s.logger.Error(ctx, err, "Final publish failed")
		return
	}
	s.logger.Info(ctx, "Analyzer Service stopped", map[string]interface{}{
		"ticks":             s.ticks,
		"observations":      s.observations,
		"droppedOutOfOrder": s.droppedOutOfOrder,
		"rejected":          s.rejected,
		"skippedTicks":      s.skippedTicks,
	})
}

func (s *AnalyzerService) snapshotFields(snap domain.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"tick":        snap.Ticks,
		"timestamp":   snap.Timestamp,
		"price":       snap.Price,
		"historySize": snap.HistorySize,
		"fibHigh":     snap.Fibonacci.High,
		"fibLow":      snap.Fibonacci.Low,
	}
}
