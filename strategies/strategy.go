package strategies

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
)

// Signal is the output of Analyze: the bracket orders a strategy wants
// submitted for one symbol, plus bookkeeping for logs and dashboards.
type Signal struct {
	Symbol     string
	Orders     []broker.BracketStopEntryRequest
	Confidence float64
	Reason     string
}

// Strategy is the contract the host orchestrator drives. Analyze, Execute and
// ManagePositions are invoked on the poll cadence; Start launches any
// background tasks the strategy owns and Stop must terminate them cleanly.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, symbol string) (*Signal, error)
	Execute(ctx context.Context, sig *Signal) error
	ManagePositions(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error

	// Symbols the strategy wants the orchestrator to poll for.
	Symbols() []string
}

// TradeRecorder is implemented by strategies that accumulate per-trade
// statistics from realized fills. Base provides the implementation.
type TradeRecorder interface {
	RecordFill(fill account.Fill)
}

// Factory builds a strategy from shared dependencies.
type Factory func(deps Deps, accountID string) (Strategy, error)

var (
	regMu    sync.Mutex
	registry = make(map[string]Factory)
)

// Register adds a strategy factory under a case-insensitive name.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// New builds a registered strategy by name.
func New(name string, deps Deps, accountID string) (Strategy, error) {
	regMu.Lock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	regMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return f(deps, accountID)
}
