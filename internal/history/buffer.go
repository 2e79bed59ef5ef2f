// Package history holds the bounded, time-ordered observation buffer the analyzer reads from.
package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
)

// Buffer is a fixed-capacity ring of observations ordered by timestamp.
// Once full, each append overwrites the oldest entry. It is not safe for
// concurrent use: the analyzer loop is its only writer and only reader.
type Buffer struct {
	data       []domain.Observation
	capacity   int
	index      int // Next write position
	size       int // Current number of elements
	resolution time.Duration
	lastSeen   time.Time // Latest raw timestamp accepted
}

// NewBuffer creates a buffer holding at most capacity observations.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Buffer{
		data:     make([]domain.Observation, capacity),
		capacity: capacity,
	}
}

// NewResampledBuffer creates a buffer that keeps one sample per resolution
// bucket. Observations falling into the head's bucket replace its price and
// add to its volume; the sample is stamped with the bucket start, aligned to
// the Unix epoch. resolution <= 0 keeps every observation.
func NewResampledBuffer(capacity int, resolution time.Duration) *Buffer {
	b := NewBuffer(capacity)
	if resolution > 0 {
		b.resolution = resolution
	}
	return b
}

// Resolution returns the sampling resolution, 0 when every observation is kept.
func (b *Buffer) Resolution() time.Duration {
	return b.resolution
}

// SamplesPerMinute is the worst-case number of samples a resampled buffer
// stores per minute of history.
func SamplesPerMinute(resolution time.Duration) int {
	if resolution <= 0 || resolution >= time.Minute {
		return 1
	}
	n := int(time.Minute / resolution)
	if time.Minute%resolution != 0 {
		n++
	}
	return n
}

// CapacityFor returns the capacity needed to retain maxTF*candlesPerTF+slack
// minutes of history at the given observation density.
func CapacityFor(maxTF domain.Timeframe, candlesPerTF, slackMinutes, observationsPerMinute int) int {
	minutes := maxTF.Minutes()*candlesPerTF + slackMinutes
	if observationsPerMinute < 1 {
		observationsPerMinute = 1
	}
	return minutes * observationsPerMinute
}

// Append adds obs at the head. Observations older than the latest accepted
// one are rejected with ports.ErrOutOfOrder; equal timestamps are accepted.
func (b *Buffer) Append(obs domain.Observation) error {
	_, err := b.Add(obs)
	return err
}

// Add is Append that also reports whether obs opened a new slot (true) or was
// merged into the head sample of a resampled buffer (false).
func (b *Buffer) Add(obs domain.Observation) (bool, error) {
	if obs.Price <= 0 || math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return false, fmt.Errorf("price %v: %w", obs.Price, ports.ErrInvalidObservation)
	}
	if obs.Volume < 0 || math.IsNaN(obs.Volume) || math.IsInf(obs.Volume, 0) {
		return false, fmt.Errorf("volume %v: %w", obs.Volume, ports.ErrInvalidObservation)
	}
	if b.size > 0 && obs.Timestamp.Before(b.lastSeen) {
		return false, fmt.Errorf("observation at %s before latest %s: %w",
			obs.Timestamp.UTC().Format(time.RFC3339Nano), b.lastSeen.UTC().Format(time.RFC3339Nano), ports.ErrOutOfOrder)
	}
	b.lastSeen = obs.Timestamp

	if b.resolution > 0 {
		obs.Timestamp = b.bucket(obs.Timestamp)
		if head, ok := b.Latest(); ok && head.Timestamp.Equal(obs.Timestamp) {
			obs.Volume += head.Volume
			b.data[(b.index-1+b.capacity)%b.capacity] = obs
			return false, nil
		}
	}

	b.data[b.index] = obs
	b.index = (b.index + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	return true, nil
}

// bucket floors t to the resolution grid, keeping the location of t.
func (b *Buffer) bucket(t time.Time) time.Time {
	ns := t.UnixNano()
	res := b.resolution.Nanoseconds()
	floor := ns - ns%res
	if ns%res < 0 {
		floor -= res
	}
	return time.Unix(0, floor).In(t.Location())
}

// Len returns the current number of observations.
func (b *Buffer) Len() int {
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// at returns the i-th observation in insertion order (0 = oldest).
func (b *Buffer) at(i int) domain.Observation {
	start := (b.index - b.size + b.capacity) % b.capacity
	return b.data[(start+i)%b.capacity]
}

// Latest returns the head observation.
func (b *Buffer) Latest() (domain.Observation, bool) {
	if b.size == 0 {
		return domain.Observation{}, false
	}
	return b.at(b.size - 1), true
}

// Oldest returns the oldest retained observation.
func (b *Buffer) Oldest() (domain.Observation, bool) {
	if b.size == 0 {
		return domain.Observation{}, false
	}
	return b.at(0), true
}

// Span is the time covered between the oldest observation and the head.
func (b *Buffer) Span() time.Duration {
	if b.size == 0 {
		return 0
	}
	return b.at(b.size - 1).Timestamp.Sub(b.at(0).Timestamp)
}

// PriceAt returns the latest observation whose timestamp is at or before
// head - delta. It fails with ports.ErrInsufficientHistory when no such
// observation is retained.
func (b *Buffer) PriceAt(delta time.Duration) (domain.Observation, error) {
	head, ok := b.Latest()
	if !ok {
		return domain.Observation{}, fmt.Errorf("empty buffer: %w", ports.ErrInsufficientHistory)
	}
	if delta < 0 {
		return domain.Observation{}, fmt.Errorf("negative lookback %s: %w", delta, ports.ErrInsufficientHistory)
	}
	target := head.Timestamp.Add(-delta)
	idx := sort.Search(b.size, func(i int) bool {
		return b.at(i).Timestamp.After(target)
	}) - 1
	if idx < 0 {
		return domain.Observation{}, fmt.Errorf("no observation at or before %s (oldest %s): %w",
			target.UTC().Format(time.RFC3339), b.at(0).Timestamp.UTC().Format(time.RFC3339), ports.ErrInsufficientHistory)
	}
	return b.at(idx), nil
}

// Before returns the latest observation strictly before t.
func (b *Buffer) Before(t time.Time) (domain.Observation, bool) {
	idx := sort.Search(b.size, func(i int) bool {
		return !b.at(i).Timestamp.Before(t)
	}) - 1
	if idx < 0 {
		return domain.Observation{}, false
	}
	return b.at(idx), true
}

// Range returns the observations with t0 <= timestamp <= t1, oldest first.
func (b *Buffer) Range(t0, t1 time.Time) []domain.Observation {
	if b.size == 0 || t1.Before(t0) {
		return []domain.Observation{}
	}
	lo := sort.Search(b.size, func(i int) bool {
		return !b.at(i).Timestamp.Before(t0)
	})
	hi := sort.Search(b.size, func(i int) bool {
		return b.at(i).Timestamp.After(t1)
	})
	out := make([]domain.Observation, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, b.at(i))
	}
	return out
}

// LastN returns up to n most recent observations, oldest first.
func (b *Buffer) LastN(n int) []domain.Observation {
	if b.size == 0 || n <= 0 {
		return []domain.Observation{}
	}
	if n > b.size {
		n = b.size
	}
	out := make([]domain.Observation, n)
	for i := 0; i < n; i++ {
		out[i] = b.at(b.size - n + i)
	}
	return out
}

// Snapshot returns every retained observation, oldest first.
func (b *Buffer) Snapshot() []domain.Observation {
	return b.LastN(b.size)
}

// Clear drops all observations.
func (b *Buffer) Clear() {
	b.index = 0
	b.size = 0
	b.lastSeen = time.Time{}
}
