package main

import (
	"context"
	"time"

	"foodcost/internal/config"
	"foodcost/internal/db"
	"foodcost/migrations"
)

func main() {
	cfg, err := config.Load()
	log := config.NewLogger("info")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log = config.NewLogger(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2, PingTimeout: 5 * time.Second}, log)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if err := migrations.ApplyTracked(ctx, pool, log.WithField("module", "migrate")); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Info("all migrations processed")
}
