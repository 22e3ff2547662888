// Package sim provides an in-memory broker used by tests, the demo command
// and dry runs. It honors the same gateway contracts as a live connection:
// stop entries rest until price crosses them, brackets exit on their stop or
// target, and fills are reported to a listener.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/market"
)

// Market is an in-memory MarketDataProvider backed by canned bars.
type Market struct {
	mu   sync.Mutex
	bars map[string][]market.Bar // keyed by symbol|timeframe
	meta map[string]market.SymbolMeta
}

func NewMarket() *Market {
	return &Market{
		bars: make(map[string][]market.Bar),
		meta: make(map[string]market.SymbolMeta),
	}
}

func key(symbol, timeframe string) string { return symbol + "|" + timeframe }

// LoadBars replaces the bar history for a symbol and timeframe.
func (m *Market) LoadBars(symbol, timeframe string, bars []market.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]market.Bar, len(bars))
	copy(cp, bars)
	market.SortBarsByTime(cp)
	m.bars[key(symbol, timeframe)] = cp
}

// SetMeta overrides contract metadata for a symbol. Without an override the
// built-in futures table answers.
func (m *Market) SetMeta(symbol string, meta market.SymbolMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[market.BaseSymbol(symbol)] = meta
}

func (m *Market) GetHistoricalBars(_ context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bars, ok := m.bars[key(symbol, timeframe)]
	if !ok {
		return nil, fmt.Errorf("no %s bars loaded for %s", timeframe, symbol)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (m *Market) GetTickSize(_ context.Context, symbol string) (float64, error) {
	return m.lookup(symbol).TickSize, nil
}

func (m *Market) GetPointValue(_ context.Context, symbol string) (float64, error) {
	return m.lookup(symbol).PointValue, nil
}

func (m *Market) lookup(symbol string) market.SymbolMeta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta, ok := m.meta[market.BaseSymbol(symbol)]; ok {
		return meta
	}
	meta, _ := market.DefaultMeta(symbol)
	return meta
}

var _ broker.MarketDataProvider = (*Market)(nil)
