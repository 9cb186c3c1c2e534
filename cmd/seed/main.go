// Seeds the inventory store with the demo catalog. product-C starts at zero
// stock so the unavailable path can be exercised.
package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoide/order-saga/pkg/config"
	"github.com/sokoide/order-saga/pkg/infra/postgres"
)

func main() {
	cfg, err := config.LoadInventory()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewInventoryRepository(pool)
	if err := repo.Init(ctx); err != nil {
		log.Fatalf("schema init error: %v", err)
	}

	seed := map[string]int{
		"product-A": 10,
		"product-B": 5,
		"product-C": 0,
	}
	for productID, stock := range seed {
		if err := repo.UpsertStock(ctx, productID, stock); err != nil {
			log.Fatalf("seed %s error: %v", productID, err)
		}
		log.Printf("seeded %s with stock %d", productID, stock)
	}
	log.Println("inventory seeded")
}
