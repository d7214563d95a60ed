package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/amqp"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/cache"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/cli"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/connectivity"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/remote/rest"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/syncer"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting finanzas-syncd")

	cfg := cli.LoadAndValidateConfig(logger)

	localStore := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer localStore.Close()

	cacheService := cache.NewService(localStore)
	remoteClient := rest.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.RemoteTimeout)

	// Event bus is optional: without a broker the daemon still drains
	// pending records on its own timers.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			// Keep running; periodic drains cover for lost requests.
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var syncManager *syncer.Manager
	if amqpClient != nil {
		syncManager = syncer.NewManager(cacheService, remoteClient, amqpClient)
	} else {
		syncManager = syncer.NewManager(cacheService, remoteClient, nil)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Drain anything queued while the daemon was down.
	logger.Info("Performing startup sync check...")
	if count, err := syncManager.SyncAll(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
	} else if count > 0 {
		logger.Info("Startup sync completed", "synced", count)
	}

	detector := connectivity.NewDetector(remoteClient, syncManager, cfg.ProbeInterval, cfg.ProbeTimeout)
	detector.Start()
	defer detector.Close()
	logger.Info("Connectivity watcher started",
		"online", detector.IsOnline(),
		"probe_interval", cfg.ProbeInterval.String())

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeSyncRequests(gctx, func(ctx context.Context, msg *amqp.SyncRequestMessage) error {
				table, err := core.ParseTable(msg.Table)
				if err != nil {
					logger.Error("Sync request for unknown table",
						"table", msg.Table,
						"message_id", msg.MessageID)
					return nil // drop, don't requeue
				}
				_, err = syncManager.SyncTable(ctx, table)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Periodic fallback drain in case sync requests are lost or the broker
	// is down.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if detector.IsOffline() {
					continue
				}
				if count, err := syncManager.SyncAll(gctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				} else if count > 0 {
					logger.Info("Periodic sync completed", "synced", count)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Sync daemon stopped with error", "error", err)
	}

	if ctx.Err() != nil {
		<-done
	}
	logger.Info("finanzas-syncd stopped")
}
