package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediabot/config"
	HTTPAdapter "mediabot/internal/adapter/http"
	"mediabot/internal/adapter/storage/fsstore"
	sqlitestore "mediabot/internal/adapter/storage/sqlite"
	"mediabot/internal/adapter/transcoder/ffmpeg"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/infrastructure/metrics"
	"mediabot/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting mediabot: workers=%d, pending=%d, timeout=%s", cfg.Workers, cfg.MaxPending, cfg.JobTimeout)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	store, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to open job registry: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	assets, err := fsstore.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to create asset store: %v", err)
		os.Exit(1)
	}

	metrics.InitializeMetrics()

	registry := sqlitestore.NewRegistry(store)
	invoker := ffmpeg.NewInvoker(cfg.FFmpegBinary, cfg.FFprobeBinary, assets, cfg.DiagnosticLimit)
	eventBus := service.NewEventBus()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	queue := service.NewQueue(registry, invoker, eventBus, cfg.Workers, cfg.MaxPending)
	workerGroup := queue.Start(workerCtx)

	dispatcher := service.NewDispatcher(queue, assets, eventBus, cfg.MaxInputSize(), cfg.JobTimeout, cfg.MaxJobsPerUser)

	// Outbound seam: the chat client registers its own handler here. Until it
	// does, terminal results are only logged.
	dispatcher.OnResult(func(d service.Delivery) {
		if d.Result != nil {
			logger.Info.Printf("job %s delivered to %s: %s", d.JobID, logger.SanitizeForLog(d.UserRef), d.Result.Output.ID)
			return
		}
		logger.Info.Printf("job %s delivered to %s: %s (%s)", d.JobID, logger.SanitizeForLog(d.UserRef), d.State, logger.SanitizeForLog(d.ErrorMessage))
	})
	go dispatcher.Start(workerCtx)

	// Safety-net reclamation of assets whose jobs never released them.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := assets.Sweep(cfg.AssetTTL); err != nil {
					logger.Error.Printf("asset sweep failed: %v", err)
				}
			case <-workerCtx.Done():
				return
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.OpsPort)
	opsServer := &http.Server{
		Addr:         addr,
		Handler:      HTTPAdapter.NewServer(queue, registry),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("ops server shutdown error: %v", err)
		}

		workerCancel()
		if err := workerGroup.Wait(); err != nil {
			logger.Error.Printf("worker shutdown error: %v", err)
		}

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("ops server listening on %s", addr)
	if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("ops server failed: %v", err)
		os.Exit(1)
	}
}
