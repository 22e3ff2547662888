package market

import (
	"context"
	"strings"
	"sync"

	"github.com/nightrange/trader/logger"
)

// SymbolMeta describes the contract geometry the strategy math depends on.
type SymbolMeta struct {
	TickSize   float64 // minimum price increment
	PointValue float64 // dollars per one point of price movement
}

// defaultSymbolMeta covers the CME index futures this system trades. Contract
// month suffixes (MNQZ25, MNQ.Z25) resolve to their base symbol.
var defaultSymbolMeta = map[string]SymbolMeta{
	"MNQ": {TickSize: 0.25, PointValue: 2.0},
	"MES": {TickSize: 0.25, PointValue: 5.0},
	"MYM": {TickSize: 1.0, PointValue: 0.5},
	"M2K": {TickSize: 0.10, PointValue: 0.5},
	"NQ":  {TickSize: 0.25, PointValue: 20.0},
	"ES":  {TickSize: 0.25, PointValue: 50.0},
	"YM":  {TickSize: 1.0, PointValue: 5.0},
	"RTY": {TickSize: 0.10, PointValue: 50.0},
}

// fallbackMeta is used for symbols nobody recognizes.
var fallbackMeta = SymbolMeta{TickSize: 0.25, PointValue: 1.0}

// BaseSymbol strips a contract-month suffix: "MNQZ25" and "MNQ.Z25" -> "MNQ".
func BaseSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	for base := range defaultSymbolMeta {
		if strings.HasPrefix(s, base) {
			return base
		}
	}
	return s
}

// DefaultMeta returns the static metadata for a symbol, falling back to the
// conservative default for unknown symbols.
func DefaultMeta(symbol string) (SymbolMeta, bool) {
	m, ok := defaultSymbolMeta[BaseSymbol(symbol)]
	if !ok {
		return fallbackMeta, false
	}
	return m, true
}

// MetaProvider is the subset of the market-data collaborator the cache reads
// through to.
type MetaProvider interface {
	GetTickSize(ctx context.Context, symbol string) (float64, error)
	GetPointValue(ctx context.Context, symbol string) (float64, error)
}

// SymbolCache is a read-through cache for symbol metadata. Lookups hit the
// provider once per symbol; provider errors fall back to the static table so
// a flaky contract endpoint never stalls order math.
type SymbolCache struct {
	mu       sync.Mutex
	provider MetaProvider
	log      logger.Logger
	meta     map[string]SymbolMeta
}

func NewSymbolCache(provider MetaProvider, log logger.Logger) *SymbolCache {
	return &SymbolCache{
		provider: provider,
		log:      log,
		meta:     make(map[string]SymbolMeta),
	}
}

// TickSize returns the tick size for symbol.
func (c *SymbolCache) TickSize(ctx context.Context, symbol string) float64 {
	return c.lookup(ctx, symbol).TickSize
}

// PointValue returns the dollar value of a one-point move for symbol.
func (c *SymbolCache) PointValue(ctx context.Context, symbol string) float64 {
	return c.lookup(ctx, symbol).PointValue
}

func (c *SymbolCache) lookup(ctx context.Context, symbol string) SymbolMeta {
	base := BaseSymbol(symbol)

	c.mu.Lock()
	if m, ok := c.meta[base]; ok {
		c.mu.Unlock()
		return m
	}
	c.mu.Unlock()

	m := c.fetch(ctx, symbol)

	c.mu.Lock()
	c.meta[base] = m
	c.mu.Unlock()
	return m
}

func (c *SymbolCache) fetch(ctx context.Context, symbol string) SymbolMeta {
	static, known := DefaultMeta(symbol)
	if c.provider == nil {
		if !known {
			c.log.Warn("unknown symbol, using fallback metadata",
				logger.String("symbol", symbol),
				logger.Float64("tick_size", static.TickSize),
				logger.Float64("point_value", static.PointValue))
		}
		return static
	}

	m := static
	tick, err := c.provider.GetTickSize(ctx, symbol)
	if err != nil || tick <= 0 {
		c.log.Warn("tick size lookup failed, using static table",
			logger.String("symbol", symbol), logger.Err(err))
	} else {
		m.TickSize = tick
	}

	pv, err := c.provider.GetPointValue(ctx, symbol)
	if err != nil || pv <= 0 {
		c.log.Warn("point value lookup failed, using static table",
			logger.String("symbol", symbol), logger.Err(err))
	} else {
		m.PointValue = pv
	}
	return m
}
