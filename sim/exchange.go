package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/pkg/id"
)

// FillListener receives realized fills as the exchange closes positions.
// The account tracker's ApplyFill satisfies the shape callers usually want.
type FillListener func(ctx context.Context, accountID string, fill account.Fill)

// restingOrder is a stop-entry bracket waiting for price to cross its
// trigger.
type restingOrder struct {
	broker.BracketStopEntryRequest
	ID string
}

// openPosition is a filled bracket being managed by the exchange.
type openPosition struct {
	ID         string
	OrderID    string
	AccountID  string
	Symbol     string
	Side       broker.Side
	Quantity   int
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	LastPrice  float64
	OpenTime   time.Time
}

// Exchange simulates a broker: stop entries rest until triggered, filled
// brackets exit on their stop or target, and realized results flow to the
// fill listener. All state is guarded by one lock; snapshots returned to
// callers are value copies.
type Exchange struct {
	mu       sync.Mutex
	resting  map[string]*restingOrder
	open     map[string]*openPosition
	closed   []ClosedTrade
	listener FillListener
	now      func() time.Time
}

// ClosedTrade is the record kept after a position exits.
type ClosedTrade struct {
	PositionID string
	OrderID    string
	AccountID  string
	Symbol     string
	Side       broker.Side
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
	ClosedAt   time.Time
}

func NewExchange() *Exchange {
	return &Exchange{
		resting: make(map[string]*restingOrder),
		open:    make(map[string]*openPosition),
		now:     time.Now,
	}
}

// OnFill registers the listener notified with each realized fill.
func (e *Exchange) OnFill(l FillListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// SetClock overrides the exchange clock. Test hook.
func (e *Exchange) SetClock(now func() time.Time) { e.now = now }

// PlaceBracketStopEntry validates and parks a stop-entry bracket.
func (e *Exchange) PlaceBracketStopEntry(_ context.Context, req broker.BracketStopEntryRequest) (broker.OrderHandle, error) {
	if err := validate(req); err != nil {
		return broker.OrderHandle{}, err
	}

	ord := &restingOrder{BracketStopEntryRequest: req, ID: id.New()}

	e.mu.Lock()
	e.resting[ord.ID] = ord
	e.mu.Unlock()

	return broker.OrderHandle{OrderID: ord.ID, Symbol: req.Symbol, Side: req.Side}, nil
}

func validate(req broker.BracketStopEntryRequest) error {
	if req.Quantity <= 0 {
		return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "quantity must be positive"}
	}
	switch req.Side {
	case broker.Buy:
		if req.StopLoss >= req.EntryPrice {
			return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "stop must be below entry"}
		}
		if req.TakeProfit != 0 && req.TakeProfit <= req.EntryPrice {
			return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "take profit must be above entry"}
		}
	case broker.Sell:
		if req.StopLoss <= req.EntryPrice {
			return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "stop must be above entry"}
		}
		if req.TakeProfit != 0 && req.TakeProfit >= req.EntryPrice {
			return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "take profit must be below entry"}
		}
	default:
		return &broker.ValidationError{Symbol: req.Symbol, Side: req.Side, Reason: "unknown side"}
	}
	return nil
}

// ModifyStopPrice moves the stop on a resting order or its open position.
func (e *Exchange) ModifyStopPrice(_ context.Context, orderID string, newStop float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ord, ok := e.resting[orderID]; ok {
		ord.StopLoss = newStop
		return nil
	}
	for _, p := range e.open {
		if p.OrderID == orderID {
			p.StopLoss = newStop
			return nil
		}
	}
	return fmt.Errorf("modify stop: order %q not found", orderID)
}

// GetOpenPositions returns value snapshots of the account's open positions.
func (e *Exchange) GetOpenPositions(_ context.Context, accountID string) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []broker.Position
	for _, p := range e.open {
		if accountID != "" && p.AccountID != accountID {
			continue
		}
		out = append(out, broker.Position{
			ID:           p.ID,
			AccountID:    p.AccountID,
			Symbol:       p.Symbol,
			Side:         p.Side,
			Quantity:     p.Quantity,
			EntryPrice:   p.EntryPrice,
			CurrentPrice: p.LastPrice,
		})
	}
	return out, nil
}

// ClosedTrades returns the exit records accumulated so far.
func (e *Exchange) ClosedTrades() []ClosedTrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ClosedTrade(nil), e.closed...)
}

// CancelResting drops all resting orders for a symbol. Used at session end.
func (e *Exchange) CancelResting(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for oid, ord := range e.resting {
		if ord.Symbol == symbol {
			delete(e.resting, oid)
			n++
		}
	}
	return n
}

// UpdatePrice advances the tape for one symbol: resting entries whose trigger
// the price crossed become positions, and open positions exit on their stop
// or target. Listener callbacks run after the lock is released.
func (e *Exchange) UpdatePrice(ctx context.Context, symbol string, price float64) {
	var fills []ClosedTrade

	e.mu.Lock()

	for oid, ord := range e.resting {
		if ord.Symbol != symbol {
			continue
		}
		triggered := (ord.Side == broker.Buy && price >= ord.EntryPrice) ||
			(ord.Side == broker.Sell && price <= ord.EntryPrice)
		if !triggered {
			continue
		}
		delete(e.resting, oid)
		pos := &openPosition{
			ID:         id.New(),
			OrderID:    oid,
			AccountID:  ord.AccountID,
			Symbol:     ord.Symbol,
			Side:       ord.Side,
			Quantity:   ord.Quantity,
			EntryPrice: ord.EntryPrice,
			StopLoss:   ord.StopLoss,
			TakeProfit: ord.TakeProfit,
			LastPrice:  price,
			OpenTime:   e.now(),
		}
		e.open[pos.ID] = pos
	}

	for pid, p := range e.open {
		if p.Symbol != symbol {
			continue
		}
		p.LastPrice = price

		exit, reason := exitPrice(p, price)
		if reason == "" {
			continue
		}
		delete(e.open, pid)
		closed := ClosedTrade{
			PositionID: p.ID,
			OrderID:    p.OrderID,
			AccountID:  p.AccountID,
			Symbol:     p.Symbol,
			Side:       p.Side,
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			ExitPrice:  exit,
			PnL:        realized(p, exit),
			Reason:     reason,
			ClosedAt:   e.now(),
		}
		e.closed = append(e.closed, closed)
		fills = append(fills, closed)
	}

	listener := e.listener
	e.mu.Unlock()

	if listener == nil {
		return
	}
	for _, f := range fills {
		listener(ctx, f.AccountID, account.Fill{
			Symbol:   f.Symbol,
			Side:     string(f.Side),
			Quantity: f.Quantity,
			Price:    f.ExitPrice,
			PnL:      f.PnL,
		})
	}
}

// exitPrice decides whether the tick takes the position out. Stops win over
// targets when a single tick crosses both.
func exitPrice(p *openPosition, price float64) (float64, string) {
	if p.Side == broker.Buy {
		if price <= p.StopLoss {
			return p.StopLoss, "stop_loss"
		}
		if p.TakeProfit != 0 && price >= p.TakeProfit {
			return p.TakeProfit, "take_profit"
		}
		return 0, ""
	}
	if price >= p.StopLoss {
		return p.StopLoss, "stop_loss"
	}
	if p.TakeProfit != 0 && price <= p.TakeProfit {
		return p.TakeProfit, "take_profit"
	}
	return 0, ""
}

// realized converts the price move into dollars using the contract point
// value.
func realized(p *openPosition, exit float64) float64 {
	meta, _ := market.DefaultMeta(p.Symbol)
	move := exit - p.EntryPrice
	if p.Side == broker.Sell {
		move = -move
	}
	return move * meta.PointValue * float64(p.Quantity)
}

var (
	_ broker.OrderGateway    = (*Exchange)(nil)
	_ broker.PositionGateway = (*Exchange)(nil)
)
