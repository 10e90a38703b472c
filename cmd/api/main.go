package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dca-automation/internal/api"
	"dca-automation/internal/cas"
	"dca-automation/internal/config"
	"dca-automation/internal/guard"
	"dca-automation/internal/planstore"
	"dca-automation/internal/ratelimit"
	"dca-automation/internal/scheduler"
	"dca-automation/internal/store"
	"dca-automation/internal/telemetry"
	"dca-automation/internal/workflow"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	planLock := guard.NewPlanLock(redisClient, cfg.PlanLockTTL)
	limiter := ratelimit.NewTokenBucket(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("init content store", zap.Error(err))
	}

	flow := workflow.New(
		publisher,
		scheduler.NewClient(cfg.SchedulerURL, cfg.SchedulerTimeout),
		planstore.NewClient(cfg.PlanStoreURL, cfg.PlanStoreTimeout),
		st,
		logger,
	)

	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	server := api.New(cfg, flow, st, planLock, limiter, logger)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	logger.Info("api listening",
		zap.String("port", cfg.HTTPPort),
		zap.String("cas_backend", cfg.CASBackend),
		zap.String("scheduler_url", cfg.SchedulerURL))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}

func newPublisher(ctx context.Context, cfg config.Config) (cas.Store, error) {
	if cfg.CASBackend == "s3" {
		return cas.NewS3Store(ctx, cfg)
	}
	return cas.NewIPFSClient(cfg.IPFSAPIURL, cfg.IPFSGatewayURL, cfg.IPFSTimeout), nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
