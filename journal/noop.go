package journal

import (
	"context"

	"github.com/nightrange/trader/account"
)

// NoopStore discards snapshots. Used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) SaveStates(ctx context.Context, states map[string]account.State) error { return nil }

func (NoopStore) LoadStates(ctx context.Context) (map[string]account.State, error) {
	return nil, nil
}

func (NoopStore) Close() error { return nil }
