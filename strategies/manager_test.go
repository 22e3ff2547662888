package strategies

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
)

// fakeStrategy counts orchestrator callbacks.
type fakeStrategy struct {
	analyzed atomic.Int32
	executed atomic.Int32
	managed  atomic.Int32
	started  atomic.Int32
	stopped  atomic.Int32
	recorded atomic.Int32
	signal   *Signal
	symbols  []string
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) Symbols() []string {
	if f.symbols != nil {
		return f.symbols
	}
	return []string{"MNQ"}
}

func (f *fakeStrategy) RecordFill(account.Fill) { f.recorded.Add(1) }

func (f *fakeStrategy) Analyze(context.Context, string) (*Signal, error) {
	f.analyzed.Add(1)
	return f.signal, nil
}

func (f *fakeStrategy) Execute(context.Context, *Signal) error {
	f.executed.Add(1)
	return nil
}

func (f *fakeStrategy) ManagePositions(context.Context) error {
	f.managed.Add(1)
	return nil
}

func (f *fakeStrategy) Start(context.Context) error {
	f.started.Add(1)
	return nil
}

func (f *fakeStrategy) Stop() error {
	f.stopped.Add(1)
	return nil
}

func TestManagerRunCycle(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{}
	deps := testDeps(nil, nil, positions)
	deps.Tracker.Initialize(context.Background(), account.InitParams{
		AccountID:       testAccountID,
		Name:            "150K Evaluation",
		Type:            account.TypeEvaluation,
		StartingBalance: 150000,
	})

	fake := &fakeStrategy{signal: &Signal{Symbol: "MNQ"}}
	m := NewManager(deps, testAccountID, time.Minute)
	m.strategies = append(m.strategies, fake)

	m.runCycle(context.Background())

	assert.Equal(t, int32(1), fake.analyzed.Load())
	assert.Equal(t, int32(1), fake.executed.Load())
	assert.Equal(t, int32(1), fake.managed.Load())
}

func TestManagerRunCycleSkipsNilSignal(t *testing.T) {
	t.Parallel()

	deps := testDeps(nil, nil, nil)
	fake := &fakeStrategy{}
	m := NewManager(deps, testAccountID, time.Minute)
	m.strategies = append(m.strategies, fake)

	m.runCycle(context.Background())

	assert.Equal(t, int32(1), fake.analyzed.Load())
	assert.Zero(t, fake.executed.Load())
}

func TestManagerMarkToMarket(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{}
	deps := testDeps(nil, nil, positions)
	ctx := context.Background()
	deps.Tracker.Initialize(ctx, account.InitParams{
		AccountID:       testAccountID,
		Name:            "150K Evaluation",
		Type:            account.TypeEvaluation,
		StartingBalance: 150000,
	})

	positions.set([]broker.Position{{
		AccountID: testAccountID, Symbol: "MNQ", Side: broker.Buy,
		Quantity: 1, EntryPrice: 21000, CurrentPrice: 21020,
	}})

	m := NewManager(deps, testAccountID, time.Minute)
	require.NoError(t, m.markToMarket(ctx))

	st := deps.Tracker.GetState(testAccountID)
	assert.InDelta(t, 40, st.UnrealizedPnL, 1e-9) // 20 points * $2/pt
	assert.InDelta(t, 150040, st.CurrentBalance, 1e-9)
}

func TestManagerMarkToMarketContractMonthSymbol(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{}
	deps := testDeps(nil, nil, positions)
	ctx := context.Background()
	deps.Tracker.Initialize(ctx, account.InitParams{
		AccountID:       testAccountID,
		Name:            "150K Evaluation",
		Type:            account.TypeEvaluation,
		StartingBalance: 150000,
	})

	// Brokers report positions under the contract month; the mark must not
	// silently fall back to the entry price for them.
	positions.set([]broker.Position{{
		AccountID: testAccountID, Symbol: "MNQZ25", Side: broker.Buy,
		Quantity: 1, EntryPrice: 21000, CurrentPrice: 20950,
	}})

	m := NewManager(deps, testAccountID, time.Minute)
	require.NoError(t, m.markToMarket(ctx))

	st := deps.Tracker.GetState(testAccountID)
	assert.InDelta(t, -100, st.UnrealizedPnL, 1e-9) // -50 points * $2/pt
	assert.InDelta(t, 149900, st.CurrentBalance, 1e-9)
}

func TestManagerRecordFillRoutesBySymbol(t *testing.T) {
	t.Parallel()

	mnq := &fakeStrategy{symbols: []string{"MNQ"}}
	mes := &fakeStrategy{symbols: []string{"MES"}}
	m := NewManager(testDeps(nil, nil, nil), testAccountID, time.Minute)
	m.strategies = append(m.strategies, mnq, mes)

	m.RecordFill(account.Fill{Symbol: "MNQZ25", Side: "BUY", Quantity: 1, PnL: 160})

	assert.Equal(t, int32(1), mnq.recorded.Load())
	assert.Zero(t, mes.recorded.Load())
}

func TestManagerStartStop(t *testing.T) {
	t.Parallel()

	deps := testDeps(nil, nil, nil)
	fake := &fakeStrategy{}
	m := NewManager(deps, testAccountID, 10*time.Millisecond)
	m.strategies = append(m.strategies, fake)

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()), "double start must fail")

	assert.Eventually(t, func() bool {
		return fake.managed.Load() >= 2
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.Equal(t, int32(1), fake.started.Load())
	assert.Equal(t, int32(1), fake.stopped.Load())

	// Stopping twice is harmless.
	require.NoError(t, m.Stop())
}

func TestManagerStartWithoutStrategies(t *testing.T) {
	t.Parallel()

	m := NewManager(testDeps(nil, nil, nil), testAccountID, time.Minute)
	assert.Error(t, m.Start(context.Background()))
}

func TestManagerAddUnknownStrategy(t *testing.T) {
	t.Parallel()

	m := NewManager(testDeps(nil, nil, nil), testAccountID, time.Minute)
	assert.Error(t, m.Add("no_such_strategy"))
}
