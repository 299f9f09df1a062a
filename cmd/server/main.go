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

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/chatrelay/internal/auth"
	"github.com/pscheid92/chatrelay/internal/broker"
	"github.com/pscheid92/chatrelay/internal/config"
	"github.com/pscheid92/chatrelay/internal/domain"
	"github.com/pscheid92/chatrelay/internal/logging"
	"github.com/pscheid92/chatrelay/internal/manager"
	"github.com/pscheid92/chatrelay/internal/redis"
	"github.com/pscheid92/chatrelay/internal/server"
	"github.com/pscheid92/chatrelay/internal/version"
	goredis "github.com/redis/go-redis/v9"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupBroker connects to Redis when configured. Without REDIS_URL the
// server runs on an in-process broker, which disables cross-instance
// fan-out but keeps a single instance fully functional.
func setupBroker(ctx context.Context, cfg *config.Config) (domain.Broker, *goredis.Client) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-process broker (single instance only)")
		return broker.NewMemoryBroker(), nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redis.NewBroker(client), client
}

func runGracefulShutdown(srv *server.Server, mgr *manager.Manager, redisClient *goredis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		mgr.Shutdown()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	build := version.Get()
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"version", build.Version,
		"commit", build.Commit)

	bus, redisClient := setupBroker(context.Background(), cfg)

	mgr := manager.NewManager(bus, manager.Options{
		Channel:          cfg.PubSubChannel,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		ScanInterval:     cfg.HeartbeatScanInterval,
	}, clock)
	mgr.Start(context.Background())

	authn := auth.NewAuthenticator(cfg.JWTSecret)

	srv := server.NewServer(cfg, mgr, authn, redisClient, clock)

	done := runGracefulShutdown(srv, mgr, redisClient)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
