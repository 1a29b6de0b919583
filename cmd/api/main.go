package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/encounter-engine/internal/config"
	"github.com/jwebster45206/encounter-engine/internal/encounter"
	"github.com/jwebster45206/encounter-engine/internal/handlers"
	"github.com/jwebster45206/encounter-engine/internal/lock"
	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/internal/middleware"
	"github.com/jwebster45206/encounter-engine/internal/services/events"
	"github.com/jwebster45206/encounter-engine/internal/services/queue"
	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/internal/worker"
	"github.com/jwebster45206/encounter-engine/pkg/difficulty"
	"github.com/jwebster45206/encounter-engine/pkg/reward"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Encounter Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"lock_backend", cfg.LockBackend,
		"theme", cfg.Theme)

	if err := run(cfg, log); err != nil {
		logger.WithError(log, err).Error("Encounter Engine API stopped with error")
		os.Exit(1)
	}

	log.Info("Server exited")
}

func run(cfg *config.Config, log *slog.Logger) error {
	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.MaxBalance, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		return err
	}
	log.Info("Storage connection established successfully")

	bestiary, err := store.GetBestiary(storageCtx)
	if err != nil {
		return err
	}

	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockBackendMemory:
		locker = lock.NewMemoryLocker()
	default:
		locker = lock.NewRedisLocker(store.Client(), cfg.LockTTL, log)
	}

	broadcaster := events.NewBroadcaster(store.Client(), log)

	components := map[string]handlers.Pinger{"storage": store}
	narrativeClient := queue.WrapClient(store.Client(), log)
	if cfg.NarrativeRedisURL != "" && cfg.NarrativeRedisURL != cfg.RedisURL {
		narrativeClient, err = queue.NewClient(cfg.NarrativeRedisURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := narrativeClient.Close(); err != nil {
				log.Error("Error closing narrative log connection", "error", err)
			}
		}()
		components["narrative_log"] = narrativeClient
	}
	narrative := queue.NewNarrativeLog(narrativeClient, cfg.NarrativeLogLimit)

	manager := encounter.NewManager(
		store,
		storage.NewRedisHistory(store.Client(), cfg.HistorySize, log),
		locker,
		difficulty.NewRoster(bestiary, cfg.Theme, cfg.DailyPoolSize),
		reward.NewDistributor(cfg.DailyBonus),
		encounter.Sinks{broadcaster, narrative},
		encounter.Config{
			EncounterCost: cfg.EncounterCost,
			Cooldown:      cfg.EncounterCooldown,
			GCMargin:      cfg.GCMargin,
		},
		log,
	)

	sweeper := worker.New(manager, broadcaster, cfg.GCInterval, log, "")

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(components, log))

	encounterHandler := handlers.NewEncounterHandler(manager, narrative, log)
	mux.Handle("/v1/encounters/", encounterHandler)

	mux.Handle("/v1/difficulty/", handlers.NewDifficultyHandler(manager, log))

	bestiaryHandler := handlers.NewBestiaryHandler(log, store)
	mux.Handle("/v1/bestiary", bestiaryHandler)
	mux.Handle("/v1/bestiary/", bestiaryHandler)

	mux.Handle("/v1/events/", handlers.NewEventsHandler(store.Client(), log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - the SSE endpoint handles its own lifetime
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(sweeper.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Server is shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		sweeper.Stop()
		serverErr := server.Shutdown(shutdownCtx)
		if serverErr != nil {
			log.Error("Server forced to shutdown", "error", serverErr)
		}

		// Settle whatever is still running so nobody loses their stake
		if err := manager.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to settle live encounters", "error", err)
			return errors.Join(serverErr, err)
		}
		return serverErr
	})

	return g.Wait()
}
