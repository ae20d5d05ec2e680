package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"foodcost/internal/adapters/web"
	"foodcost/internal/app"
	"foodcost/internal/config"
	"foodcost/internal/core"
	"foodcost/internal/db"
	"foodcost/internal/lock"
	"foodcost/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").Fatalf("config: %v", err)
	}
	log := config.NewLogger(cfg.LogLevel)
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns}, log)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if err := migrations.ApplyTracked(ctx, pool, log.WithField("module", "migrate")); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var locker core.Locker = core.NewLocalLocker()
	if cfg.RedisURL != "" {
		redisLocker, rdb, err := lock.NewRedis(ctx, cfg.RedisURL, cfg.LockTTL, log)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		locker = redisLocker
		log.Info("using redis lock for sales confirmation")
	}

	guard := cfg.WriteGuard()
	svc := app.NewAppService(
		core.NewAccountService(pool, guard),
		core.NewCatalogService(pool, guard),
		core.NewInventoryService(pool, guard),
		core.NewSaleService(pool, guard, locker, log),
		core.NewSpoilageService(pool, guard, log),
		core.NewReportingService(pool),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           web.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.ServerPort).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Info("server stopped")
}
