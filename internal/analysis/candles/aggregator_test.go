package candles

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/history"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fill(t *testing.T, buf *history.Buffer, points ...domain.Observation) {
	t.Helper()
	for _, p := range points {
		require.NoError(t, buf.Append(p))
	}
}

func ob(offset time.Duration, price, volume float64) domain.Observation {
	return domain.Observation{Timestamp: base.Add(offset), Price: price, Volume: volume}
}

func newAgg(t *testing.T, count int, tfs ...domain.Timeframe) *Aggregator {
	t.Helper()
	a, err := New(Config{Timeframes: tfs, Count: count})
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Count: 10})
	assert.Error(t, err)
	_, err = New(Config{Timeframes: []domain.Timeframe{domain.TF1m}, Count: 0})
	assert.Error(t, err)
	_, err = New(Config{Timeframes: []domain.Timeframe{0}, Count: 5})
	assert.Error(t, err)
}

func TestBucketStart(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		tf   domain.Timeframe
		want time.Time
	}{
		{"1m truncates seconds", base.Add(42 * time.Second), domain.TF1m, base},
		{"5m aligns down", base.Add(13 * time.Minute), domain.TF5m, base.Add(10 * time.Minute)},
		{"1h aligns to hour", base.Add(59 * time.Minute), domain.TF1h, base},
		{"exact boundary", base.Add(15 * time.Minute), domain.TF15m, base.Add(15 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketStart(tt.t, tt.tf))
		})
	}

	// 1444 does not divide a day: boundaries are multiples of 1444 minutes since the epoch.
	got := BucketStart(base, domain.TF1444m)
	assert.Equal(t, int64(0), (got.Unix()/60)%1444)
	assert.False(t, got.After(base))
	assert.True(t, base.Sub(got) < domain.TF1444m.Duration())
}

func TestAggregate_Empty(t *testing.T) {
	a := newAgg(t, 10, domain.TF1m)
	got := a.Aggregate(history.NewBuffer(10), domain.TF1m, base)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, a.AggregateAll(history.NewBuffer(10), base)[domain.TF1m])
}

func TestAggregate_OHLCV(t *testing.T) {
	buf := history.NewBuffer(100)
	fill(t, buf,
		ob(5*time.Second, 100, 1),
		ob(20*time.Second, 105, 2),
		ob(35*time.Second, 95, 0.5),
		ob(50*time.Second, 101, 1.5),
	)
	a := newAgg(t, 5, domain.TF1m)

	got := a.Aggregate(buf, domain.TF1m, base.Add(55*time.Second))
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, base, c.OpenTime)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 95.0, c.Low)
	assert.Equal(t, 101.0, c.Close)
	assert.InDelta(t, 5.0, c.Volume, 1e-9)
	assert.Equal(t, base.Add(time.Minute), c.CloseTime())
}

func TestAggregate_ForwardFillsGaps(t *testing.T) {
	buf := history.NewBuffer(100)
	fill(t, buf,
		ob(10*time.Second, 100, 1),
		ob(3*time.Minute+5*time.Second, 110, 2),
	)
	a := newAgg(t, 10, domain.TF1m)

	got := a.Aggregate(buf, domain.TF1m, base.Add(3*time.Minute+30*time.Second))
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, base.Add(time.Duration(i)*time.Minute), c.OpenTime)
	}
	for _, c := range got[1:3] {
		assert.Equal(t, 100.0, c.Open)
		assert.Equal(t, 100.0, c.High)
		assert.Equal(t, 100.0, c.Low)
		assert.Equal(t, 100.0, c.Close)
		assert.Zero(t, c.Volume)
	}
	assert.Equal(t, 110.0, got[3].Close)
	require.NoError(t, domain.ValidateSeries(domain.TF1m, got))
}

func TestAggregate_FeedOutageForwardFillsToNow(t *testing.T) {
	buf := history.NewBuffer(100)
	fill(t, buf, ob(0, 100, 1))
	a := newAgg(t, 10, domain.TF1m)

	got := a.Aggregate(buf, domain.TF1m, base.Add(4*time.Minute+10*time.Second))
	require.Len(t, got, 5)
	assert.Equal(t, base.Add(4*time.Minute), got[4].OpenTime)
	assert.Equal(t, 100.0, got[4].Close)
	assert.Zero(t, got[4].Volume)
}

func TestAggregate_LimitsCountAndUsesPriorClose(t *testing.T) {
	buf := history.NewBuffer(100)
	fill(t, buf,
		ob(0, 100, 1),
		ob(9*time.Minute, 120, 1),
	)
	a := newAgg(t, 3, domain.TF1m)

	got := a.Aggregate(buf, domain.TF1m, base.Add(9*time.Minute+1*time.Second))
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(7*time.Minute), got[0].OpenTime)
	assert.Equal(t, 100.0, got[0].Close, "leading gap filled from the close before the window")
	assert.Equal(t, 100.0, got[1].Close)
	assert.Equal(t, 120.0, got[2].Close)
}

func TestAggregate_CurrentBucketUpdatesInPlace(t *testing.T) {
	buf := history.NewBuffer(100)
	a := newAgg(t, 5, domain.TF5m)

	fill(t, buf, ob(time.Minute, 100, 1))
	first := a.Aggregate(buf, domain.TF5m, base.Add(time.Minute))
	require.Len(t, first, 1)

	fill(t, buf, ob(3*time.Minute, 104, 1))
	second := a.Aggregate(buf, domain.TF5m, base.Add(3*time.Minute))
	require.Len(t, second, 1)
	assert.Equal(t, first[0].OpenTime, second[0].OpenTime)
	assert.Equal(t, 104.0, second[0].Close)
	assert.Equal(t, 104.0, second[0].High)
	assert.Equal(t, 2.0, second[0].Volume)

	fill(t, buf, ob(5*time.Minute, 103, 1))
	third := a.Aggregate(buf, domain.TF5m, base.Add(5*time.Minute))
	require.Len(t, third, 2)
	assert.Equal(t, base.Add(5*time.Minute), third[1].OpenTime)
}

func TestAggregateAll_InvariantsHoldOnRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	buf := history.NewBuffer(20000)
	price := 50000.0
	ts := time.Duration(0)
	for i := 0; i < 15000; i++ {
		ts += time.Duration(1+rng.Intn(90)) * time.Second
		price *= 1 + (rng.Float64()-0.5)/100
		fill(t, buf, ob(ts, price, rng.Float64()*3))
	}

	a := newAgg(t, 100, domain.DefaultTimeframes...)
	all := a.AggregateAll(buf, base.Add(ts))
	require.Len(t, all, len(domain.DefaultTimeframes))
	for tf, series := range all {
		require.NotEmpty(t, series, "timeframe %s", tf)
		assert.LessOrEqual(t, len(series), 100)
		assert.NoError(t, domain.ValidateSeries(tf, series), "timeframe %s", tf)
		assert.Equal(t, BucketStart(base.Add(ts), tf), series[len(series)-1].OpenTime)
	}
}
