package broker

import (
	"context"

	"github.com/nightrange/trader/market"
)

// Side of an order or position.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// MarketDataProvider supplies historical bars and contract metadata. Bars are
// oldest-first and finite.
type MarketDataProvider interface {
	GetHistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error)
	GetTickSize(ctx context.Context, symbol string) (float64, error)
	GetPointValue(ctx context.Context, symbol string) (float64, error)
}

// BracketStopEntryRequest is a stop-entry order with attached stop-loss and
// take-profit, the only order shape this system submits.
type BracketStopEntryRequest struct {
	AccountID  string
	Symbol     string
	Side       Side
	Quantity   int
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
}

// OrderHandle identifies a submitted bracket on the broker side.
type OrderHandle struct {
	OrderID string
	Symbol  string
	Side    Side
}

// OrderGateway places and modifies orders at the broker.
type OrderGateway interface {
	PlaceBracketStopEntry(ctx context.Context, req BracketStopEntryRequest) (OrderHandle, error)
	ModifyStopPrice(ctx context.Context, orderID string, newStop float64) error
}

// Position is an open position as reported by the broker.
type Position struct {
	ID           string
	AccountID    string
	Symbol       string
	Side         Side
	Quantity     int
	EntryPrice   float64
	CurrentPrice float64
}

// PositionGateway reports open positions for an account.
type PositionGateway interface {
	GetOpenPositions(ctx context.Context, accountID string) ([]Position, error)
}
