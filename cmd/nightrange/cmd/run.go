package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/config"
	"github.com/nightrange/trader/journal"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/sim"
	"github.com/nightrange/trader/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the strategy engine in paper-trading mode",
	Long: `Start the account tracker and the configured strategies against the
simulated exchange. Account state persists to the configured journal so
compliance tracking survives restarts.

Example:
  nightrange run -f config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// openStore builds the account store named by the journal config.
func openStore(cfg *config.Config) (account.Store, func() error, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		s, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := journal.NewPostgres(cfg.Journal.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return journal.NoopStore{}, func() error { return nil }, nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	symbols := market.NewSymbolCache(nil, log)
	tracker := account.NewTracker(ctx, store, symbols, log)

	params := account.InitParams{
		AccountID:       cfg.Account.ID,
		Name:            cfg.Account.Name,
		Type:            cfg.Account.Type,
		StartingBalance: cfg.Account.StartingBalance,
	}
	if cfg.Account.DailyLossLimit > 0 {
		params.DailyLossLimit = &cfg.Account.DailyLossLimit
	}
	if cfg.Account.MaximumLossLimit > 0 {
		params.MaximumLossLimit = &cfg.Account.MaximumLossLimit
	}
	tracker.Initialize(ctx, params)

	// Paper trading: the simulated exchange stands in for a live broker,
	// behind the same rate-limited gateways a live connection would use.
	exchange := sim.NewExchange()
	md := sim.NewMarket()
	deps := strategies.Deps{
		Tracker:    tracker,
		MarketData: broker.NewRateLimitedMarketData(md, cfg.Broker.RateLimitPerSecond, cfg.Broker.RateLimitBurst),
		Orders:     broker.NewRateLimitedOrderGateway(exchange, cfg.Broker.RateLimitPerSecond, cfg.Broker.RateLimitBurst),
		Positions:  exchange,
		Symbols:    market.NewSymbolCache(md, log),
		Log:        log,
	}

	poll, err := cfg.Strategies.PollDuration()
	if err != nil {
		return err
	}

	mgr := strategies.NewManager(deps, cfg.Account.ID, poll)
	for _, name := range cfg.Strategies.Enabled {
		if err := mgr.Add(name); err != nil {
			return fmt.Errorf("add strategy %q: %w", name, err)
		}
	}

	// Realized fills feed both compliance tracking and strategy statistics.
	exchange.OnFill(func(ctx context.Context, accountID string, fill account.Fill) {
		if _, err := tracker.ApplyFill(ctx, accountID, fill); err != nil {
			log.Error("apply fill", logger.Err(err))
		}
		mgr.RecordFill(fill)
	})

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", logger.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info("metrics listening", logger.String("addr", cfg.Metrics.Addr))
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}

	log.Info("nightrange running",
		logger.String("account", cfg.Account.ID),
		logger.Duration("poll", poll))

	<-ctx.Done()
	log.Info("shutting down")
	return mgr.Stop()
}
