// main wires configuration, storage, services, and both transports, then
// runs them under one errgroup so any fatal component failure tears the
// process down cleanly.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"trustgraph/internal/platform/config"
	"trustgraph/internal/platform/httpserver"
	"trustgraph/internal/platform/logger"
	pg "trustgraph/internal/platform/postgres"
	platformredis "trustgraph/internal/platform/redis"
	ratelimitConfig "trustgraph/internal/ratelimit/config"
	ratelimitHandler "trustgraph/internal/ratelimit/handler"
	ratelimitMetrics "trustgraph/internal/ratelimit/metrics"
	ratelimitMiddleware "trustgraph/internal/ratelimit/middleware"
	ratelimitService "trustgraph/internal/ratelimit/service"
	"trustgraph/internal/ratelimit/store/keys"
	"trustgraph/internal/ratelimit/store/window"
	httptransport "trustgraph/internal/transport/http"
	"trustgraph/internal/transport/rpc"
	trustHandler "trustgraph/internal/trust/handler"
	trustMetrics "trustgraph/internal/trust/metrics"
	trustService "trustgraph/internal/trust/service"
	"trustgraph/internal/trust/store/attestation"
	"trustgraph/internal/trust/store/bond"
	"trustgraph/internal/trust/store/identity"
	"trustgraph/internal/trust/store/schema"
	"trustgraph/internal/trust/store/scorehistory"
	"trustgraph/internal/trust/store/slashevent"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trustgraph: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := schema.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	healthChecks := map[string]httptransport.HealthCheck{
		"postgres": func(ctx context.Context) error { return pg.Health(ctx, db) },
	}

	var windowStore ratelimitService.WindowStore
	switch cfg.QuotaBackend {
	case "redis":
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		if redisClient == nil {
			return fmt.Errorf("quota backend is redis but REDIS_URL is not set")
		}
		defer redisClient.Close()
		healthChecks["redis"] = redisClient.Health
		windowStore = window.NewRedis(redisClient.Client)
	default:
		windowStore = window.NewInMemory()
	}

	limits, err := ratelimitService.New(
		keys.New(),
		windowStore,
		ratelimitConfig.DefaultConfig(),
		ratelimitService.WithLogger(log),
		ratelimitService.WithMetrics(ratelimitMetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build quota service: %w", err)
	}

	trust, err := trustService.New(trustService.Stores{
		Identities:   identity.NewPostgres(db),
		Bonds:        bond.NewPostgres(db),
		Attestations: attestation.NewPostgres(db),
		SlashEvents:  slashevent.NewPostgres(db),
		ScoreHistory: scorehistory.NewPostgres(db),
	},
		trustService.WithLogger(log),
		trustService.WithMetrics(trustMetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build trust service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Trust:  trustHandler.New(trust, log),
		Admin:  ratelimitHandler.New(limits, log),
		Limits: ratelimitMiddleware.New(limits, log),
		Health: httptransport.NewHealthHandler(healthChecks),
	})

	srv := httpserver.New(cfg.HTTPAddr, router)

	rpcServer, err := rpc.Start(cfg.RPCSocketPath, trust, log)
	if err != nil {
		return fmt.Errorf("start rpc server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "quota_backend", cfg.QuotaBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if closeErr := rpcServer.Close(); err == nil {
			err = closeErr
		}
		return err
	})

	return g.Wait()
}
