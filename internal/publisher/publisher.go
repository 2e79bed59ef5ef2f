// Package publisher writes each tick's analysis snapshot into the shared state store.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultWriteTimeout = 500 * time.Millisecond
	DefaultMaxFailures  = 5
	DefaultBackoffMin   = time.Second
	DefaultBackoffMax   = 30 * time.Second
)

// Config holds the dependencies and settings of a Publisher.
type Config struct {
	Store        ports.StateStore
	Logger       ports.Logger
	Codec        Codec // JSONCodec when nil
	KeyPrefix    string
	WriteTimeout time.Duration
	MaxFailures  int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	ProducerID   string // Random UUID when empty
}

// Entry is one encoded record ready to be written.
type Entry struct {
	Key   string
	Value []byte
}

// Publisher encodes snapshots and writes one record per key. After a failed
// write further attempts are deferred with exponential backoff measured in
// snapshot time, so a dead store never stalls the analyzer loop.
type Publisher struct {
	store        ports.StateStore
	logger       ports.Logger
	codec        Codec
	keys         Keys
	writeTimeout time.Duration
	maxFailures  int
	producerID   string

	mu       sync.RWMutex
	backoff  *backoff.Backoff
	failures int
	retryAt  time.Time
	lastErr  error
}

// New creates a Publisher.
func New(cfg Config) (*Publisher, error) {
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = DefaultBackoffMax
		if cfg.BackoffMax < cfg.BackoffMin {
			cfg.BackoffMax = cfg.BackoffMin
		}
	}
	if cfg.ProducerID == "" {
		cfg.ProducerID = uuid.NewString()
	}

	return &Publisher{
		store:        cfg.Store,
		logger:       cfg.Logger.With(map[string]interface{}{"component": "publisher"}),
		codec:        cfg.Codec,
		keys:         Keys{Prefix: cfg.KeyPrefix},
		writeTimeout: cfg.WriteTimeout,
		maxFailures:  cfg.MaxFailures,
		producerID:   cfg.ProducerID,
		backoff: &backoff.Backoff{
			Min:    cfg.BackoffMin,
			Max:    cfg.BackoffMax,
			Factor: 2,
		},
	}, nil
}

// ProducerID identifies this analyzer instance in the status record.
func (p *Publisher) ProducerID() string {
	return p.producerID
}

// Keys returns the key formatter used for writes.
func (p *Publisher) Keys() Keys {
	return p.keys
}

// Codec returns the record encoding.
func (p *Publisher) Codec() Codec {
	return p.codec
}

// Healthy is false once MaxFailures consecutive publishes have failed, until the next success.
func (p *Publisher) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failures < p.maxFailures
}

// ConsecutiveFailures returns the number of failed publishes since the last success.
func (p *Publisher) ConsecutiveFailures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failures
}

// LastError returns the most recent write error, nil after a success.
func (p *Publisher) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Publish writes every record of snap. While backing off after a failure it
// returns ports.ErrPublishDeferred without touching the store. A failed write
// wraps ports.ErrStoreTransient, or ports.ErrStorePersistent once MaxFailures
// consecutive publishes have failed.
func (p *Publisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	p.mu.RLock()
	deferred := p.failures > 0 && snap.Timestamp.Before(p.retryAt)
	retryAt := p.retryAt
	p.mu.RUnlock()
	if deferred {
		return fmt.Errorf("next attempt at %s: %w", retryAt.Format(time.RFC3339Nano), ports.ErrPublishDeferred)
	}
	return p.publish(ctx, snap)
}

// Flush writes snap regardless of backoff. Used for the final publish on shutdown.
func (p *Publisher) Flush(ctx context.Context, snap domain.Snapshot) error {
	return p.publish(ctx, snap)
}

func (p *Publisher) publish(ctx context.Context, snap domain.Snapshot) error {
	entries, err := p.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w: %w", ports.ErrInternalInvariant, err)
	}
	for _, e := range entries {
		if err := p.write(ctx, e); err != nil {
			return p.recordFailure(ctx, snap.Timestamp, e.Key, err)
		}
	}
	p.recordSuccess(ctx, len(entries))
	return nil
}

func (p *Publisher) write(ctx context.Context, e Entry) error {
	wctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err := p.store.Set(wctx, e.Key, e.Value)
	if err != nil && errors.Is(wctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ports.ErrTimeout) {
		return fmt.Errorf("%w after %s: %w", ports.ErrTimeout, p.writeTimeout, err)
	}
	return err
}

func (p *Publisher) recordFailure(ctx context.Context, ts time.Time, key string, cause error) error {
	p.mu.Lock()
	p.failures++
	failures := p.failures
	delay := p.backoff.Duration()
	p.retryAt = ts.Add(delay)
	var err error
	if failures >= p.maxFailures {
		err = fmt.Errorf("write %s failed %d times in a row: %w: %w", key, failures, ports.ErrStorePersistent, cause)
	} else {
		err = fmt.Errorf("write %s failed: %w: %w", key, ports.ErrStoreTransient, cause)
	}
	p.lastErr = err
	p.mu.Unlock()

	fields := map[string]interface{}{"key": key, "consecutive_failures": failures, "retry_in": delay.String()}
	if failures >= p.maxFailures {
		p.logger.Error(ctx, err, "State store failing persistently", fields)
	} else {
		p.logger.Warn(ctx, "State store write failed, backing off", fields)
	}
	return err
}

func (p *Publisher) recordSuccess(ctx context.Context, written int) {
	p.mu.Lock()
	recovered := p.failures
	p.failures = 0
	p.retryAt = time.Time{}
	p.lastErr = nil
	p.backoff.Reset()
	p.mu.Unlock()

	if recovered > 0 {
		p.logger.Info(ctx, "State store recovered", map[string]interface{}{"failed_attempts": recovered, "records": written})
	}
}

type record struct {
	key string
	v   interface{}
}

// Encode renders snap into store entries in a fixed order. Without a price
// only the trend records (all NoData) and the status record are produced.
func (p *Publisher) Encode(snap domain.Snapshot) ([]Entry, error) {
	records := make([]record, 0, 3+len(snap.Trends)+len(snap.Candles))
	add := func(key string, v interface{}) {
		records = append(records, record{key: p.keys.Format(key), v: v})
	}

	ts := snap.Timestamp
	if snap.HasPrice {
		add(CurrentPriceKey, domain.PriceRecord{
			RecordHeader: domain.NewHeader(domain.KindCurrentPrice, ts),
			Price:        snap.Price,
			ObservedAt:   snap.ObservedAt.UTC(),
			Stale:        snap.Stale,
		})

		tfs := make([]domain.Timeframe, 0, len(snap.Candles))
		for tf := range snap.Candles {
			tfs = append(tfs, tf)
		}
		sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })
		for _, tf := range tfs {
			candles := snap.Candles[tf]
			if candles == nil {
				candles = []domain.Candle{}
			}
			add(CandlesKey(tf), domain.CandlesRecord{
				RecordHeader: domain.NewHeader(domain.KindCandles, ts),
				Timeframe:    tf.Minutes(),
				Candles:      candles,
			})
		}

		add(FibonacciKey, domain.FibonacciRecord{
			RecordHeader: domain.NewHeader(domain.KindFibonacci, ts),
			High:         snap.Fibonacci.High,
			Low:          snap.Fibonacci.Low,
			Levels:       snap.Fibonacci.Map(),
			Bootstrapped: snap.Fibonacci.Bootstrapped,
			LastUpdate:   snap.Fibonacci.LastUpdate.UTC(),
		})

	}

	// Trends are written even before the first price so consumers read an
	// explicit NoData instead of a missing key.
	for _, tr := range snap.Trends {
		label, change := tr.Label, tr.ChangePct
		if !snap.HasPrice {
			label, change = domain.NoData, 0
		}
		add(TrendKey(tr.Timeframe), domain.TrendRecord{
			RecordHeader: domain.NewHeader(domain.KindTrend, ts),
			Timeframe:    tr.Timeframe.Minutes(),
			Label:        label,
			ChangePct:    change,
		})
	}

	p.mu.RLock()
	failures := p.failures
	p.mu.RUnlock()
	add(StatusKey, domain.StatusRecord{
		RecordHeader:               domain.NewHeader(domain.KindStatus, ts),
		ProducerID:                 p.producerID,
		Ticks:                      snap.Ticks,
		Observations:               snap.Observations,
		DroppedOutOfOrder:          snap.DroppedOutOfOrder,
		FeedFailures:               snap.FeedFailures,
		ConsecutivePublishFailures: failures,
		Degraded:                   failures >= p.maxFailures,
		HistorySize:                snap.HistorySize,
		LastObservationAt:          snap.ObservedAt.UTC(),
		NearestFibonacciRatio:      snap.NearestRatio,
	})

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		b, err := p.codec.Marshal(r.v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", r.key, err)
		}
		entries = append(entries, Entry{Key: r.key, Value: b})
	}
	return entries, nil
}
