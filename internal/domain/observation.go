package domain

import "time"

// Observation is a single timestamped price/volume sample from the upstream feed.
type Observation struct {
	Timestamp time.Time // Exchange or feed timestamp
	Price     float64   // Last traded price
	Volume    float64   // Volume traded since the previous observation
}
