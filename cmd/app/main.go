package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"foodcost/internal/adapters/cli"
	"foodcost/internal/app"
	"foodcost/internal/config"
	"foodcost/internal/core"
	"foodcost/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").Fatalf("config: %v", err)
	}
	log := config.NewLogger(cfg.LogLevel)

	runner := &cli.Runner{JWTSecret: cfg.JWTSecret, Out: os.Stdout}
	args := os.Args[1:]

	// issue-token needs no database.
	if len(args) == 0 || args[0] != "issue-token" {
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2}, nil)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()

		guard := cfg.WriteGuard()
		runner.Svc = app.NewAppService(
			core.NewAccountService(pool, guard),
			core.NewCatalogService(pool, guard),
			core.NewInventoryService(pool, guard),
			core.NewSaleService(pool, guard, core.NewLocalLocker(), log),
			core.NewSpoilageService(pool, guard, log),
			core.NewReportingService(pool),
		)
	}

	if err := runner.Run(context.Background(), args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}
