package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nutrimed/nutrisync/internal/config"
	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/netmon"
	"github.com/nutrimed/nutrisync/internal/remote"
	"github.com/nutrimed/nutrisync/internal/storage"
	"github.com/nutrimed/nutrisync/internal/swcache"
	"github.com/nutrimed/nutrisync/internal/syncer"
	"github.com/nutrimed/nutrisync/internal/syncqueue"
)

func main() {
	cfg := config.LoadConfig()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "agent failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	store, err := storage.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	queue := syncqueue.New(store.DB())
	api := remote.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, log)

	monitor := netmon.New(netmon.NewProbeProvider(cfg.ProbeURL, 3*time.Second), cfg.ProbeInterval, log)
	monitor.Init(ctx)
	defer monitor.Close()

	coordinator := syncer.New(queue, api, monitor, cfg.QuarantineThreshold, log)

	// Reconnection is the only automatic drain trigger.
	unsubscribe := monitor.OnConnectionChange(func(c netmon.Change) {
		if c.Connected && !c.WasConnected {
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout*10)
			defer cancel()
			if _, err := coordinator.SyncPendingChanges(drainCtx); err != nil {
				log.Error(drainCtx, "drain after reconnect failed", "error", err)
			}
		}
	})
	defer unsubscribe()

	cacheStorage, err := swcache.OpenStorage(ctx, cfg.CacheDatabasePath)
	if err != nil {
		return err
	}
	defer cacheStorage.Close()

	worker := swcache.NewWorker(cacheStorage, swcache.Config{
		Version:      cfg.CacheVersion,
		UpstreamBase: cfg.UpstreamBase,
		APICacheTTL:  cfg.APICacheTTL,
	}, log)

	if err := worker.Install(ctx); err != nil {
		// The shell precache needs the network; a cold offline start still
		// serves everything already cached.
		log.Warn(ctx, "app shell precache failed", "error", err)
	}
	if err := worker.Activate(ctx); err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: worker}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "gateway listening", "addr", cfg.ListenAddr, "upstream", cfg.UpstreamBase)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
