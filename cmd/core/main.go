// Package main runs the Function Tracker sync core: it watches
// connectivity, replays the offline mutation queue against the remote
// backend, and reports sync status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/functiontracker/backend/internal/auth"
	"github.com/functiontracker/backend/internal/cache"
	"github.com/functiontracker/backend/internal/categories"
	"github.com/functiontracker/backend/internal/config"
	"github.com/functiontracker/backend/internal/contributions"
	"github.com/functiontracker/backend/internal/functions"
	"github.com/functiontracker/backend/internal/locations"
	"github.com/functiontracker/backend/internal/logging"
	"github.com/functiontracker/backend/internal/network"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
	"github.com/functiontracker/backend/internal/storage"
	syncpkg "github.com/functiontracker/backend/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kv, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer kv.Close()

	queue := offline.NewQueue(kv, logger)
	status := syncpkg.NewStatusStore()
	caches := cache.NewStore(kv, logger)
	client := remote.NewClient(cfg.BackendURL, cfg.BackendKey, logger)

	engine := syncpkg.NewEngine(queue, status, logger)

	source := network.NewHTTPSource(cfg.ProbeURL, cfg.ProbeInterval, logger)
	defer source.Stop()

	observer := network.NewObserver(source, engine, queue, logger)

	sessions := auth.NewStore(kv, queue, caches,
		[]string{functions.Resource, categories.Resource, locations.Resource}, logger)

	exec := offline.NewExecutor(queue, observer, sessions, logger)

	fns := functions.NewService(client, caches, exec, observer, logger)
	engine.Register(functions.Resource, fns.SyncHandlers())

	contribs := contributions.NewService(client, exec, logger)
	engine.Register(contributions.Resource, contribs.SyncHandlers())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	observer.Start(ctx)
	defer observer.Stop()

	statusCh, unsubscribe := status.Subscribe()
	defer unsubscribe()
	go reportStatus(ctx, statusCh, logger)

	logger.Infow("sync core started",
		"backend", cfg.BackendURL, "probe_interval", cfg.ProbeInterval)

	<-ctx.Done()
	logger.Infow("shutting down")
	return nil
}

// reportStatus mirrors the app's sync banner in the log stream.
func reportStatus(ctx context.Context, ch <-chan syncpkg.Status, logger *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case status := <-ch:
			switch status {
			case syncpkg.StatusSyncing:
				logger.Infow("syncing changes")
			case syncpkg.StatusSuccess:
				logger.Infow("all changes synced")
			case syncpkg.StatusError:
				logger.Warnw("sync failed, will retry when online")
			}
		}
	}
}
