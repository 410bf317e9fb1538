// cmd/sniper/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lp-sniper/internal/chain"
	"lp-sniper/internal/config"
	"lp-sniper/internal/dex/raydium"
	"lp-sniper/internal/listener"
	"lp-sniper/internal/logger"
	"lp-sniper/internal/sniping"
	"lp-sniper/internal/storage"
	"lp-sniper/internal/storage/postgres"
	"lp-sniper/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	w, err := wallet.FromEnv()
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	log.Info("wallet loaded", zap.String("public_key", w.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := chain.Connect(ctx, cfg.RPCURL, cfg.WebSocketURL, log.Logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	var store storage.Storage = storage.Noop{}
	if cfg.PostgresURL != "" {
		store, err = postgres.NewStorage(cfg.PostgresURL, log.WithComponent("storage"))
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	ammProgram := cfg.AmmProgram()
	decoder := raydium.NewDecoder(ammProgram, log.Logger)
	fetcher := raydium.NewFetcher(client, w.PublicKey, log.Logger)
	executor := raydium.NewExecutor(client, w, log.Logger, raydium.ExecutorOptions{
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		ComputeUnitPrice: cfg.ComputeUnitPrice,
		ConfirmTimeout:   30 * time.Second,
	})

	snipeCfg := sniping.Config{
		BuyAmountSOL:      cfg.BuyAmountSOL,
		SellTargetPercent: cfg.SellTargetPercent,
		MaxWatchDuration:  time.Duration(cfg.MaxWatchDurationSec) * time.Second,
	}

	var wg sync.WaitGroup
	onRecord := func(rec *raydium.PoolRecord) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := sniping.New(rec, client, executor, w.PublicKey, snipeCfg, log.Logger)
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("sniper instance ended with error",
					zap.String("pool_id", rec.PoolID.String()),
					zap.String("phase", s.Phase().String()),
					zap.Error(err))
			}
		}()
	}

	l := listener.New(client, decoder, fetcher, store, ammProgram, log.WithOperation("pool_scan"), onRecord)

	log.Info("sniper started",
		zap.String("amm_program", ammProgram.String()),
		zap.Float64("buy_amount_sol", cfg.BuyAmountSOL),
		zap.Float64("sell_target_percent", cfg.SellTargetPercent))

	err = l.Run(ctx)

	stop()
	wg.Wait()

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
