// Package journal persists account risk snapshots so tracking survives
// process restarts. Implementations satisfy account.Store.
package journal

const schema = `
CREATE TABLE IF NOT EXISTS account_state (
	account_id TEXT PRIMARY KEY,
	account_name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	starting_balance REAL NOT NULL,
	current_balance REAL NOT NULL,
	highest_eod_balance REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	commissions REAL NOT NULL,
	fees REAL NOT NULL,
	daily_loss_limit REAL NOT NULL,
	maximum_loss_limit REAL NOT NULL,
	drawdown_threshold REAL NOT NULL,
	is_compliant BOOLEAN NOT NULL,
	violation_reason TEXT NOT NULL,
	last_update TIMESTAMP NOT NULL,
	last_eod_update TIMESTAMP NOT NULL,
	total_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL
);
`
