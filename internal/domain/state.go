package domain

import "time"

// SchemaVersion is bumped only for non-additive changes to the published records.
const SchemaVersion = 1

// RecordKind tags each published record so consumers can decode a key without guessing.
type RecordKind string

const (
	KindCurrentPrice RecordKind = "current_price"
	KindCandles      RecordKind = "candles"
	KindFibonacci    RecordKind = "fibonacci_levels"
	KindTrend        RecordKind = "trend"
	KindStatus       RecordKind = "analyzer_status"
)

// RecordHeader is embedded in every published record.
type RecordHeader struct {
	SchemaVersion int        `json:"schema_version" msgpack:"schema_version"`
	Kind          RecordKind `json:"kind" msgpack:"kind"`
	Timestamp     time.Time  `json:"timestamp" msgpack:"timestamp"` // Tick time; identical across the records of one tick
}

// NewHeader builds a header for the current schema version.
func NewHeader(kind RecordKind, ts time.Time) RecordHeader {
	return RecordHeader{SchemaVersion: SchemaVersion, Kind: kind, Timestamp: ts.UTC()}
}

// PriceRecord is stored under "current_price".
type PriceRecord struct {
	RecordHeader
	Price      float64   `json:"price" msgpack:"price"`
	ObservedAt time.Time `json:"observed_at" msgpack:"observed_at"`
	Stale      bool      `json:"stale" msgpack:"stale"`
}

// CandlesRecord is stored under "candles_<tf>min".
type CandlesRecord struct {
	RecordHeader
	Timeframe int      `json:"timeframe" msgpack:"timeframe"`
	Candles   []Candle `json:"candles" msgpack:"candles"`
}

// FibonacciRecord is stored under "fibonacci_levels".
type FibonacciRecord struct {
	RecordHeader
	High         float64            `json:"high" msgpack:"high"`
	Low          float64            `json:"low" msgpack:"low"`
	Levels       map[string]float64 `json:"levels" msgpack:"levels"`
	Bootstrapped bool               `json:"bootstrapped" msgpack:"bootstrapped"`
	LastUpdate   time.Time          `json:"last_update" msgpack:"last_update"`
}

// TrendRecord is stored under "trend_<tf>min".
type TrendRecord struct {
	RecordHeader
	Timeframe int        `json:"timeframe" msgpack:"timeframe"`
	Label     TrendLabel `json:"label" msgpack:"label"`
	ChangePct float64    `json:"change_pct" msgpack:"change_pct"`
}

// StatusRecord is stored under "analyzer_status".
type StatusRecord struct {
	RecordHeader
	ProducerID                 string    `json:"producer_id" msgpack:"producer_id"`
	Ticks                      uint64    `json:"ticks" msgpack:"ticks"`
	Observations               uint64    `json:"observations" msgpack:"observations"`
	DroppedOutOfOrder          uint64    `json:"dropped_out_of_order" msgpack:"dropped_out_of_order"`
	FeedFailures               uint64    `json:"feed_failures" msgpack:"feed_failures"`
	ConsecutivePublishFailures int       `json:"consecutive_publish_failures" msgpack:"consecutive_publish_failures"`
	Degraded                   bool      `json:"degraded" msgpack:"degraded"`
	HistorySize                int       `json:"history_size" msgpack:"history_size"`
	LastObservationAt          time.Time `json:"last_observation_at" msgpack:"last_observation_at"`
	NearestFibonacciRatio      string    `json:"nearest_fibonacci_ratio,omitempty" msgpack:"nearest_fibonacci_ratio,omitempty"`
}

// Snapshot is everything computed in one tick from a single history state.
type Snapshot struct {
	Timestamp         time.Time
	HasPrice          bool
	Price             float64
	ObservedAt        time.Time
	Stale             bool
	Candles           map[Timeframe][]Candle
	Fibonacci         FibonacciLevels
	Trends            []Trend
	Ticks             uint64
	Observations      uint64
	DroppedOutOfOrder uint64
	FeedFailures      uint64
	HistorySize       int
	NearestRatio      string
}
