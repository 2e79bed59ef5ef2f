package binanceclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, backfill int) *Client {
	t.Helper()
	c, err := New(Config{Symbol: "btcusdt", BackfillMinutes: backfill, Logger: ports.NopLogger{}})
	require.NoError(t, err)
	c.now = func() time.Time { return t0 }
	return c
}

// fakeServe replays events and then either closes the stream or waits for stop.
func fakeServe(events []*futures.WsAggTradeEvent, streamErr error, waitForStop bool) aggTradeServer {
	return func(symbol string, handler futures.WsAggTradeHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
		doneC := make(chan struct{})
		stopC := make(chan struct{})
		go func() {
			defer close(doneC)
			for _, e := range events {
				handler(e)
			}
			if streamErr != nil {
				errHandler(streamErr)
			}
			if waitForStop {
				<-stopC
			}
		}()
		return doneC, stopC, nil
	}
}

func kline(closeTime time.Time, closePrice, volume string) *futures.Kline {
	return &futures.Kline{
		OpenTime:  closeTime.Add(-time.Minute + time.Millisecond).UnixMilli(),
		CloseTime: closeTime.UnixMilli(),
		Close:     closePrice,
		Volume:    volume,
	}
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Logger: ports.NopLogger{}, BackfillMinutes: -1})
	assert.ErrorIs(t, err, ports.ErrConfigInvalid)

	c := newTestClient(t, 0)
	assert.Equal(t, "binance:BTCUSDT", c.Name())
}

func TestTranslateAggTrade(t *testing.T) {
	tests := []struct {
		name    string
		event   *futures.WsAggTradeEvent
		want    domain.Observation
		wantErr bool
	}{
		{
			name:  "valid trade",
			event: &futures.WsAggTradeEvent{Price: "50123.45", Quantity: "0.003", TradeTime: t0.UnixMilli()},
			want:  domain.Observation{Timestamp: t0, Price: 50123.45, Volume: 0.003},
		},
		{
			name:  "falls back to event time",
			event: &futures.WsAggTradeEvent{Price: "1", Quantity: "0", Time: t0.UnixMilli()},
			want:  domain.Observation{Timestamp: t0, Price: 1, Volume: 0},
		},
		{name: "nil event", event: nil, wantErr: true},
		{name: "bad price", event: &futures.WsAggTradeEvent{Price: "abc", Quantity: "1"}, wantErr: true},
		{name: "zero price", event: &futures.WsAggTradeEvent{Price: "0", Quantity: "1"}, wantErr: true},
		{name: "negative quantity", event: &futures.WsAggTradeEvent{Price: "1", Quantity: "-1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := translateAggTrade(tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrInvalidFeedRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_StreamsUntilCanceled(t *testing.T) {
	c := newTestClient(t, 0)
	c.serve = fakeServe([]*futures.WsAggTradeEvent{
		{Price: "100", Quantity: "1", TradeTime: t0.UnixMilli()},
		{Price: "bad", Quantity: "1", TradeTime: t0.Add(time.Second).UnixMilli()},
		{Price: "101", Quantity: "2", TradeTime: t0.Add(2 * time.Second).UnixMilli()},
	}, nil, true)

	ctx, cancel := context.WithCancel(context.Background())
	sink := make(chan domain.Observation, 10)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, sink) }()

	first := <-sink
	second := <-sink
	assert.Equal(t, 100.0, first.Price)
	assert.Equal(t, 101.0, second.Price)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_StreamDropIsTransient(t *testing.T) {
	c := newTestClient(t, 0)
	c.serve = fakeServe(nil, errors.New("connection reset by peer"), false)

	err := c.Run(context.Background(), make(chan domain.Observation, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrFeedTransient)
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestRun_ConnectFailure(t *testing.T) {
	c := newTestClient(t, 0)
	c.serve = func(string, futures.WsAggTradeHandler, futures.ErrHandler) (chan struct{}, chan struct{}, error) {
		return nil, nil, errors.New("dial tcp: connection refused")
	}
	err := c.Run(context.Background(), make(chan domain.Observation, 1))
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestRun_BackfillThenStream(t *testing.T) {
	c := newTestClient(t, 3)
	c.fetchKlines = func(_ context.Context, symbol string, start, end time.Time, limit int) ([]*futures.Kline, error) {
		assert.Equal(t, "BTCUSDT", symbol)
		assert.Equal(t, t0.Add(-3*time.Minute), start)
		return []*futures.Kline{
			kline(t0.Add(-2*time.Minute-time.Millisecond), "100", "5"),
			kline(t0.Add(-time.Minute-time.Millisecond), "101", "6"),
			kline(t0.Add(time.Minute-time.Millisecond), "102", "1"), // still open
		}, nil
	}
	c.serve = fakeServe([]*futures.WsAggTradeEvent{
		{Price: "103", Quantity: "1", TradeTime: t0.UnixMilli()},
	}, nil, false)

	sink := make(chan domain.Observation, 10)
	err := c.Run(context.Background(), sink)
	assert.ErrorIs(t, err, ports.ErrFeedTransient)
	close(sink)

	var prices []float64
	for obs := range sink {
		prices = append(prices, obs.Price)
	}
	assert.Equal(t, []float64{100, 101, 103}, prices)
}

func TestRun_OutOfOrderTradesAreForwarded(t *testing.T) {
	c := newTestClient(t, 3)
	c.fetchKlines = func(context.Context, string, time.Time, time.Time, int) ([]*futures.Kline, error) {
		return []*futures.Kline{kline(t0.Add(-time.Minute-time.Millisecond), "101", "6")}, nil
	}
	c.serve = fakeServe([]*futures.WsAggTradeEvent{
		{Price: "99", Quantity: "1", TradeTime: t0.Add(-3 * time.Minute).UnixMilli()}, // before the last backfilled close
		{Price: "103", Quantity: "1", TradeTime: t0.UnixMilli()},
		{Price: "102", Quantity: "1", TradeTime: t0.Add(-time.Second).UnixMilli()}, // reordered on the wire
	}, nil, false)

	sink := make(chan domain.Observation, 10)
	_ = c.Run(context.Background(), sink)
	close(sink)

	var got []domain.Observation
	for obs := range sink {
		got = append(got, obs)
	}
	require.Len(t, got, 4)
	assert.Equal(t, []float64{101, 99, 103, 102}, []float64{got[0].Price, got[1].Price, got[2].Price, got[3].Price})
	assert.Equal(t, t0, c.lastEmitted, "lastEmitted never moves backwards")

	// A restart only backfills what is newer than the latest forwarded record.
	c.fetchKlines = func(_ context.Context, _ string, start, _ time.Time, _ int) ([]*futures.Kline, error) {
		assert.Equal(t, t0, start)
		return nil, nil
	}
	c.serve = fakeServe(nil, nil, false)
	_ = c.Run(context.Background(), make(chan domain.Observation, 1))
}

func TestRun_BackfillFailureIsNotFatal(t *testing.T) {
	c := newTestClient(t, 5)
	c.fetchKlines = func(context.Context, string, time.Time, time.Time, int) ([]*futures.Kline, error) {
		return nil, &common.APIError{Code: -1003, Message: "too many requests"}
	}
	c.serve = fakeServe([]*futures.WsAggTradeEvent{{Price: "100", Quantity: "1", TradeTime: t0.UnixMilli()}}, nil, false)

	sink := make(chan domain.Observation, 10)
	_ = c.Run(context.Background(), sink)
	require.Len(t, sink, 1)
}

func TestHandleError(t *testing.T) {
	c := newTestClient(t, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &common.APIError{Code: -1003}, ports.ErrRateLimited},
		{"recv window", &common.APIError{Code: -1021}, ports.ErrTimeout},
		{"invalid symbol", &common.APIError{Code: -1121}, ports.ErrConfigInvalid},
		{"other api", &common.APIError{Code: -9999}, ports.ErrFeedTransient},
		{"deadline", context.DeadlineExceeded, ports.ErrTimeout},
		{"canceled", context.Canceled, ports.ErrContextCanceled},
		{"refused", errors.New("connection refused"), ports.ErrConnectionFailed},
		{"generic", errors.New("eof"), ports.ErrFeedTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, c.handleError(ctx, tt.err, "op"), tt.want)
		})
	}
	assert.NoError(t, c.handleError(ctx, nil, "op"))
}
