package broker

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/nightrange/trader/market"
)

// Broker APIs meter requests aggressively; the wrappers below apply a shared
// token bucket at the gateway boundary so background loops cannot starve the
// interactive paths.

// RateLimitedMarketData wraps a MarketDataProvider with a rate limiter.
type RateLimitedMarketData struct {
	inner   MarketDataProvider
	limiter *rate.Limiter
}

func NewRateLimitedMarketData(inner MarketDataProvider, rps float64, burst int) *RateLimitedMarketData {
	return &RateLimitedMarketData{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimitedMarketData) GetHistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.GetHistoricalBars(ctx, symbol, timeframe, limit)
}

func (r *RateLimitedMarketData) GetTickSize(ctx context.Context, symbol string) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.inner.GetTickSize(ctx, symbol)
}

func (r *RateLimitedMarketData) GetPointValue(ctx context.Context, symbol string) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.inner.GetPointValue(ctx, symbol)
}

// RateLimitedOrderGateway wraps an OrderGateway with a rate limiter.
type RateLimitedOrderGateway struct {
	inner   OrderGateway
	limiter *rate.Limiter
}

func NewRateLimitedOrderGateway(inner OrderGateway, rps float64, burst int) *RateLimitedOrderGateway {
	return &RateLimitedOrderGateway{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimitedOrderGateway) PlaceBracketStopEntry(ctx context.Context, req BracketStopEntryRequest) (OrderHandle, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return OrderHandle{}, err
	}
	return r.inner.PlaceBracketStopEntry(ctx, req)
}

func (r *RateLimitedOrderGateway) ModifyStopPrice(ctx context.Context, orderID string, newStop float64) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.ModifyStopPrice(ctx, orderID, newStop)
}
