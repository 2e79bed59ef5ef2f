// Package binanceclient feeds live BTC trades from Binance USD-M futures into the analyzer.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	maxKlineLimit = 1500
)

type (
	aggTradeServer func(symbol string, handler futures.WsAggTradeHandler, errHandler futures.ErrHandler) (doneC, stopC chan struct{}, err error)
	klineFetcher   func(ctx context.Context, symbol string, start, end time.Time, limit int) ([]*futures.Kline, error)
)

// Client implements ports.ObservationFeed over the aggTrade websocket stream.
// Each Run first backfills closed 1m klines newer than the last emitted
// observation, then streams trades until the connection drops.
type Client struct {
	futuresClient   *futures.Client
	logger          ports.Logger
	symbol          string
	backfillMinutes int
	now             func() time.Time

	serve       aggTradeServer
	fetchKlines klineFetcher

	lastEmitted time.Time
}

// Config holds configuration specific to the Binance feed adapter.
type Config struct {
	Symbol          string // e.g. BTCUSDT
	APIKey          string // Optional, only public endpoints are used
	SecretKey       string
	UseTestnet      bool
	BackfillMinutes int // 1m klines fetched before streaming; 0 disables
	Logger          ports.Logger
}

// New creates a new Binance feed adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "BTCUSDT"
	}
	if cfg.BackfillMinutes < 0 {
		return nil, fmt.Errorf("backfill minutes must not be negative: %w", ports.ErrConfigInvalid)
	}
	logger := cfg.Logger.With(map[string]interface{}{"component": "binance_feed", "symbol": cfg.Symbol})

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		futures.UseTestnet = true
	} else {
		client.BaseURL = baseURLProduction
	}
	logger.Info(context.Background(), "Binance feed configured", map[string]interface{}{"baseURL": client.BaseURL})

	c := &Client{
		futuresClient:   client,
		logger:          logger,
		symbol:          strings.ToUpper(cfg.Symbol),
		backfillMinutes: cfg.BackfillMinutes,
		now:             func() time.Time { return time.Now().UTC() },
		serve:           futures.WsAggTradeServe,
	}
	c.fetchKlines = c.klines
	return c, nil
}

// Name identifies the feed in logs.
func (c *Client) Name() string {
	return "binance:" + c.symbol
}

// Run backfills, then streams trades into sink. It returns nil when ctx is
// canceled and an error wrapping ports.ErrFeedTransient when the stream ends
// on its own, so the caller can restart it.
func (c *Client) Run(ctx context.Context, sink chan<- domain.Observation) error {
	if c.backfillMinutes > 0 {
		if err := c.backfill(ctx, sink); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Backfill is best effort; live data still flows.
			c.logger.Warn(ctx, "Kline backfill failed", map[string]interface{}{"error": err.Error()})
		}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamErr := make(chan error, 1)
	handler := func(event *futures.WsAggTradeEvent) {
		obs, err := translateAggTrade(event)
		if err != nil {
			c.logger.Warn(streamCtx, "Dropping unparsable trade event", map[string]interface{}{"error": err.Error()})
			return
		}
		c.emit(streamCtx, sink, obs)
	}
	errHandler := func(err error) {
		select {
		case streamErr <- c.handleError(streamCtx, err, "aggTrade stream"):
		default:
		}
	}

	doneC, stopC, err := c.serve(c.symbol, handler, errHandler)
	if err != nil {
		return c.handleError(ctx, err, "aggTrade connect")
	}
	c.logger.Info(ctx, "Trade stream connected")

	select {
	case <-ctx.Done():
		select {
		case stopC <- struct{}{}:
		case <-doneC:
		}
		<-doneC
		c.logger.Info(context.Background(), "Trade stream stopped")
		return nil
	case <-doneC:
		select {
		case err := <-streamErr:
			return fmt.Errorf("trade stream closed: %w", err)
		default:
			return fmt.Errorf("trade stream closed unexpectedly: %w", ports.ErrFeedTransient)
		}
	}
}

// emit forwards obs as received. Records that go backwards are still sent so
// the history buffer rejects and counts them; lastEmitted only moves forward.
func (c *Client) emit(ctx context.Context, sink chan<- domain.Observation, obs domain.Observation) bool {
	select {
	case sink <- obs:
		if obs.Timestamp.After(c.lastEmitted) {
			c.lastEmitted = obs.Timestamp
		}
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) backfill(ctx context.Context, sink chan<- domain.Observation) error {
	end := c.now()
	start := end.Add(-time.Duration(c.backfillMinutes) * time.Minute)
	if c.lastEmitted.After(start) {
		start = c.lastEmitted
	}
	observations, err := c.FetchObservations(ctx, start, end)
	if err != nil {
		return err
	}
	sent := 0
	for _, obs := range observations {
		if !obs.Timestamp.After(c.lastEmitted) {
			continue
		}
		if !c.emit(ctx, sink, obs) {
			return ctx.Err()
		}
		sent++
	}
	c.logger.Info(ctx, "Backfill complete", map[string]interface{}{"observations": sent})
	return nil
}

// FetchObservations converts closed 1m klines in [start, end] into one
// observation per kline: the close price and volume at the kline close time.
func (c *Client) FetchObservations(ctx context.Context, start, end time.Time) ([]domain.Observation, error) {
	const op = "FetchObservations"
	var out []domain.Observation
	from := start
	for {
		klines, err := c.fetchKlines(ctx, c.symbol, from, end, maxKlineLimit)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			obs, err := translateKline(k)
			if err != nil {
				return nil, c.handleError(ctx, err, op)
			}
			if obs.Timestamp.After(end) {
				continue // still open
			}
			out = append(out, obs)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if !from.Before(end) || len(klines) < maxKlineLimit {
			break
		}
	}
	return out, nil
}

func (c *Client) klines(ctx context.Context, symbol string, start, end time.Time, limit int) ([]*futures.Kline, error) {
	return c.futuresClient.NewKlinesService().
		Symbol(symbol).
		Interval("1m").
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Limit(limit).
		Do(ctx)
}

// handleError translates Binance and network errors into ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1121: // Invalid symbol
			mappedErr = ports.ErrConfigInvalid
		default:
			mappedErr = ports.ErrFeedTransient
		}
		c.logger.Error(ctx, err, operation+" failed with API error", fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	switch {
	case errors.Is(err, ports.ErrInvalidFeedRecord):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		finalErr = fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrFeedTransient, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrFeedTransient, err)
	}

	c.logger.Error(ctx, err, operation+" failed", fields)
	return finalErr
}

func translateAggTrade(event *futures.WsAggTradeEvent) (domain.Observation, error) {
	if event == nil {
		return domain.Observation{}, fmt.Errorf("nil trade event: %w", ports.ErrInvalidFeedRecord)
	}
	price, err := parsePositive(event.Price, "price")
	if err != nil {
		return domain.Observation{}, err
	}
	qty, err := parseNonNegative(event.Quantity, "quantity")
	if err != nil {
		return domain.Observation{}, err
	}
	ts := event.TradeTime
	if ts == 0 {
		ts = event.Time
	}
	return domain.Observation{Timestamp: time.UnixMilli(ts).UTC(), Price: price, Volume: qty}, nil
}

func translateKline(k *futures.Kline) (domain.Observation, error) {
	if k == nil {
		return domain.Observation{}, fmt.Errorf("nil kline: %w", ports.ErrInvalidFeedRecord)
	}
	price, err := parsePositive(k.Close, "close")
	if err != nil {
		return domain.Observation{}, err
	}
	vol, err := parseNonNegative(k.Volume, "volume")
	if err != nil {
		return domain.Observation{}, err
	}
	return domain.Observation{Timestamp: time.UnixMilli(k.CloseTime).UTC(), Price: price, Volume: vol}, nil
}

func parsePositive(s, field string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w: %w", field, s, ports.ErrInvalidFeedRecord, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%s %q not positive: %w", field, s, ports.ErrInvalidFeedRecord)
	}
	f, _ := d.Float64()
	return f, nil
}

func parseNonNegative(s, field string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w: %w", field, s, ports.ErrInvalidFeedRecord, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%s %q negative: %w", field, s, ports.ErrInvalidFeedRecord)
	}
	f, _ := d.Float64()
	return f, nil
}
