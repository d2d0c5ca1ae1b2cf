package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shinyyama/closet-market/internal/config"
	"github.com/shinyyama/closet-market/internal/db"
	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	batch := flag.Int("batch", 200, "swaps expired per transaction sweep")
	maxSweeps := flag.Int("max-sweeps", 50, "stop after this many sweeps")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		logger.Error("failed to connect db", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher service.EventPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, cfg.KafkaSwapsTopic)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}
	store := repository.NewStore(conn)
	swaps := service.NewSwapService(store, service.Deps{
		Logger:   logger,
		Events:   publisher,
		Notifier: service.NewNotificationService(store.Notifications(), logger),
	}, cfg.SwapTTL)

	total := 0
	for i := 0; i < *maxSweeps; i++ {
		n, err := swaps.ExpireOverdue(ctx, *batch)
		total += n
		if err != nil {
			logger.Error("sweep failed", slog.String("error", err.Error()), slog.Int("expired", total))
			os.Exit(1)
		}
		if n < *batch {
			break
		}
	}
	logger.Info("overdue swaps expired", slog.Int("count", total))
}
