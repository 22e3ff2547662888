package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/nightrange/trader/account"
)

// PostgresStore persists account snapshots in PostgreSQL, for deployments
// where several services (dashboards, notifiers) read the same state.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveStates(ctx context.Context, states map[string]account.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, st := range states {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO account_state
			(account_id, account_name, account_type,
			 starting_balance, current_balance, highest_eod_balance,
			 realized_pnl, unrealized_pnl, commissions, fees,
			 daily_loss_limit, maximum_loss_limit, drawdown_threshold,
			 is_compliant, violation_reason,
			 last_update, last_eod_update,
			 total_trades, winning_trades, losing_trades)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (account_id) DO UPDATE SET
			 account_name = EXCLUDED.account_name,
			 account_type = EXCLUDED.account_type,
			 starting_balance = EXCLUDED.starting_balance,
			 current_balance = EXCLUDED.current_balance,
			 highest_eod_balance = EXCLUDED.highest_eod_balance,
			 realized_pnl = EXCLUDED.realized_pnl,
			 unrealized_pnl = EXCLUDED.unrealized_pnl,
			 commissions = EXCLUDED.commissions,
			 fees = EXCLUDED.fees,
			 daily_loss_limit = EXCLUDED.daily_loss_limit,
			 maximum_loss_limit = EXCLUDED.maximum_loss_limit,
			 drawdown_threshold = EXCLUDED.drawdown_threshold,
			 is_compliant = EXCLUDED.is_compliant,
			 violation_reason = EXCLUDED.violation_reason,
			 last_update = EXCLUDED.last_update,
			 last_eod_update = EXCLUDED.last_eod_update,
			 total_trades = EXCLUDED.total_trades,
			 winning_trades = EXCLUDED.winning_trades,
			 losing_trades = EXCLUDED.losing_trades`,
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

func (s *PostgresStore) LoadStates(ctx context.Context) (map[string]account.State, error) {
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
