package journal

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nightrange/trader/account"
)

// SQLiteStore persists account snapshots in a local SQLite database. It is
// the default backend: no external services, good enough durability for a
// single-process bot.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveStates(ctx context.Context, states map[string]account.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, st := range states {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO account_state
			(account_id, account_name, account_type,
			 starting_balance, current_balance, highest_eod_balance,
			 realized_pnl, unrealized_pnl, commissions, fees,
			 daily_loss_limit, maximum_loss_limit, drawdown_threshold,
			 is_compliant, violation_reason,
			 last_update, last_eod_update,
			 total_trades, winning_trades, losing_trades)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.AccountID, st.AccountName, st.AccountType,
			st.StartingBalance, st.CurrentBalance, st.HighestEODBalance,
			st.RealizedPnL, st.UnrealizedPnL, st.Commissions, st.Fees,
			st.DailyLossLimit, st.MaximumLossLimit, st.DrawdownThreshold,
			st.IsCompliant, st.ViolationReason,
			st.LastUpdate, st.LastEODUpdate,
			st.TotalTrades, st.WinningTrades, st.LosingTrades,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadStates(ctx context.Context) (map[string]account.State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, account_name, account_type,
		       starting_balance, current_balance, highest_eod_balance,
		       realized_pnl, unrealized_pnl, commissions, fees,
		       daily_loss_limit, maximum_loss_limit, drawdown_threshold,
		       is_compliant, violation_reason,
		       last_update, last_eod_update,
		       total_trades, winning_trades, losing_trades
		FROM account_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]account.State)
	for rows.Next() {
		var st account.State
		if err := rows.Scan(
			&st.AccountID, &st.AccountName, &st.AccountType,
			&st.StartingBalance, &st.CurrentBalance, &st.HighestEODBalance,
			&st.RealizedPnL, &st.UnrealizedPnL, &st.Commissions, &st.Fees,
			&st.DailyLossLimit, &st.MaximumLossLimit, &st.DrawdownThreshold,
			&st.IsCompliant, &st.ViolationReason,
			&st.LastUpdate, &st.LastEODUpdate,
			&st.TotalTrades, &st.WinningTrades, &st.LosingTrades,
		); err != nil {
			return nil, err
		}
		states[st.AccountID] = st
	}
	return states, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
