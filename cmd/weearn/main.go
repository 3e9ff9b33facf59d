package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"WeEarn/internal/config"
	"WeEarn/internal/engine"
	"WeEarn/internal/ledger"
	"WeEarn/internal/market"
	"WeEarn/internal/metrics"
	"WeEarn/internal/notifier"
	"WeEarn/internal/recorder"
	"WeEarn/internal/scheduler"
	"WeEarn/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("weearn exited", tint.Err(err))
		os.Exit(1)
	}
}

func run() error {
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)
	logger.Info("WeEarn starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	logger.Info("state storage ready", slog.String("backend", store.Name()))

	source, _ := market.NewSource(cfg.Market.Entropy)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", tint.Err(err))
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	var sink notifier.Sink = notifier.LogSink{Logger: logger}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		sink = tn
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	led := ledger.NewManager(ctx, ledger.Options{
		Store:               store,
		Secret:              ledger.StaticCode(cfg.Cashout.SecretCode),
		AutoClickerDuration: cfg.AutoClicker.Duration,
		Logger:              logger,
	})

	eng := engine.New(ctx, engine.Options{
		Interval:     cfg.Market.Interval,
		HistorySize:  cfg.Market.HistorySize,
		Source:       source,
		Ledger:       led,
		Sink:         sink,
		Recorder:     rec,
		Metrics:      m,
		Logger:       logger,
		CashoutDelay: cfg.Cashout.Delay,
	})
	defer eng.Close()

	sched := scheduler.NewScheduler(eng, scheduler.Options{
		Cadence: cfg.AutoClicker.Cadence,
		Logger:  logger,
	})
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.ListenAddress != "" {
		srv := metrics.NewServer(cfg.Metrics.ListenAddress, reg, logger)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		logger.Info("telegram polling started")
	}

	logger.Info("WeEarn is running. Press Ctrl+C to stop.",
		slog.String("entropy", source.Name()),
		slog.Duration("interval", cfg.Market.Interval))

	<-gctx.Done()
	logger.Info("shutdown signal received, stopping...")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("WeEarn stopped")
	return nil
}
