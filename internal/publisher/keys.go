package publisher

import (
	"strings"

	"btcTrendAnalyzer/internal/domain"
)

// Base key names in the shared store.
const (
	CurrentPriceKey = "current_price"
	FibonacciKey    = "fibonacci_levels"
	StatusKey       = "analyzer_status"
)

// CandlesKey returns e.g. "candles_5min".
func CandlesKey(tf domain.Timeframe) string {
	return "candles_" + tf.String()
}

// TrendKey returns e.g. "trend_5min".
func TrendKey(tf domain.Timeframe) string {
	return "trend_" + tf.String()
}

// Keys applies an optional namespace to the base key names.
type Keys struct {
	Prefix string
}

// Format joins the prefix and key with ":". Empty parts are skipped.
func (k Keys) Format(key string) string {
	return formatKey(k.Prefix, key)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		clean := strings.Trim(strings.TrimSpace(part), ":")
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}
