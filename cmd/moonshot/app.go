// ====================================
// File: cmd/moonshot/app.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/moonshot-bot/internal/config"
	"github.com/rovshanmuradov/moonshot-bot/internal/dex/moonshot"
	"github.com/rovshanmuradov/moonshot-bot/internal/storage"
	"github.com/rovshanmuradov/moonshot-bot/internal/storage/models"
	"github.com/rovshanmuradov/moonshot-bot/internal/storage/postgres"
	"github.com/rovshanmuradov/moonshot-bot/internal/utils/logger"
	"github.com/rovshanmuradov/moonshot-bot/internal/wallet"
)

// app собирает зависимости одной команды CLI
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *solbc.Client
	dexCfg   *moonshot.Config
	dex      *moonshot.DEX
	wallet   *wallet.Wallet
	journal  storage.Storage
	metrics  *http.Server
	endTrack func()
}

// newApp загружает конфигурацию и поднимает клиента. С withWallet также
// создаётся кошелёк, менеджер транзакций и DEX.
func newApp(cmd *cobra.Command, withWallet bool) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.DebugLogging = true
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, endTrack: log.TrackPerformance(cmd.CommandPath())}

	a.dexCfg, err = cfg.MoonshotConfig()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.client, err = solbc.NewClient(cfg.RPCList, cfg.RPCOptions(), log.Logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if !withWallet {
		return a, nil
	}

	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	log.Info("Wallet loaded", zap.String("address", w.String()))
	a.wallet = w

	if cfg.PostgresURL != "" {
		if err := a.openJournal(cfg.PostgresURL); err != nil {
			a.Close()
			return nil, err
		}
	}

	var reg prometheus.Registerer
	if cfg.MetricsAddr != "" {
		reg = prometheus.DefaultRegisterer
		a.serveMetrics(cfg.MetricsAddr)
	}

	manager := transaction.NewManager(a.client, log.Logger, cfg.TransactionConfig(), reg)

	a.dex, err = moonshot.NewDEX(a.client, manager, w, log.Logger, a.dexCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// serveMetrics отдаёт /metrics, пока команда выполняется
func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.log.Info("Serving metrics", zap.String("addr", addr))
}

// openJournal подключает журнал сделок и создаёт таблицу при необходимости
func (a *app) openJournal(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	journal, err := postgres.NewStorage(ctx, dsn, a.log.Logger)
	if err != nil {
		return fmt.Errorf("open trade journal: %w", err)
	}
	if err := journal.RunMigrations(ctx); err != nil {
		journal.Close()
		return fmt.Errorf("migrate trade journal: %w", err)
	}
	a.journal = journal
	return nil
}

// recordTrade пишет итог сделки в журнал; ошибка журнала не влияет на результат сделки
func (a *app) recordTrade(ctx context.Context, result *moonshot.TradeResult, tradeErr error) {
	if a.journal == nil || result == nil {
		return
	}

	trade := &models.Trade{
		Signature:        result.Signature.String(),
		WalletAddress:    a.wallet.String(),
		Mint:             result.Mint.String(),
		Direction:        result.Direction.String(),
		TokenAmount:      result.TokenAmount,
		CollateralAmount: result.CollateralAmount,
		SlippageBps:      result.SlippageBps,
		Status:           transaction.StatusPending,
	}
	if result.Status != nil {
		trade.Status = result.Status.Status
		trade.ErrorMessage = result.Status.Error
	}
	if tradeErr != nil && trade.ErrorMessage == "" {
		trade.ErrorMessage = tradeErr.Error()
	}

	if err := a.journal.SaveTrade(ctx, trade); err != nil {
		a.log.Warn("Failed to record trade", zap.String("signature", trade.Signature), zap.Error(err))
	}
}

func (a *app) Close() {
	if a.journal != nil {
		a.journal.Close()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.log.Debug("Failed to close rpc client", zap.Error(err))
		}
	}
	if a.endTrack != nil {
		a.endTrack()
	}
	_ = a.log.Close()
}
