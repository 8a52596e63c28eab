package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"monthly/internal/amqp"
	"monthly/internal/cli"
	applog "monthly/internal/log"
	"monthly/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)
	logger.Info("Starting monthly-worker", applog.FieldOperation, applog.OpStartup)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reg := cli.InitRegistry(ctx, cfg, repo, logger)

	w := worker.NewTransactionWorker(repo, reg, cfg.SyncBatchSize, logger)

	// The message feed and the pending sweep run side by side; the worker
	// serializes the actual sheet writes.
	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		g.Go(func() error {
			return amqpClient.ConsumeTransactions(gctx, w.HandleMessage)
		})
	} else {
		logger.Warn("AMQP_URL not set, applying transactions from the pending sweep only")
	}
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})

	logger.Info("Worker running",
		"spreadsheets", len(reg.IDs()),
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	err := g.Wait()
	m := w.Metrics()
	logger.Info("Worker shutdown complete",
		applog.FieldOperation, applog.OpShutdown,
		"applied", m.Applied,
		"failed", m.Failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
}
