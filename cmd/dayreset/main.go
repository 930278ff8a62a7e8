// Command dayreset starts a new business day: the order-code counter goes back
// to zero and every item's remaining_today is restored to its daily quantity.
// Run it from cron (or any scheduler) before the stand opens.
package main

import (
	"context"
	"log"

	"github.com/eightam/preorder-api/internal/config"
	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	qtx := database.New(tx)
	codes := service.NewCodeGenerator(cfg.OrderCodePrefix, cfg.OrderCodeRange)
	if err := codes.Reset(ctx, qtx); err != nil {
		log.Fatalf("Failed to reset order codes: %v", err)
	}

	restocked, err := qtx.ResetDailyStock(ctx)
	if err != nil {
		log.Fatalf("Failed to reset daily stock: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Printf("Day reset complete: next code %s, %d items restocked", codes.Format(1), restocked)
}
